// SPDX-License-Identifier: GPL-3.0-or-later

package dpcp_test

import (
	"context"
	"fmt"

	"github.com/bassosimone/runtimex"
	"github.com/dpcp-project/dpcp"
)

// This example deploys a two-stage local chain, feeds a payload into the
// first stage, and reads the terminal stage's output after the automatic
// downstream hand-off.
func Example_localChain() {
	ctx := context.Background()

	// Create the supervisor with default configuration. Logging is
	// disabled by default; pass a *slog.Logger to enable it.
	cfg := dpcp.NewConfig()
	sup := dpcp.NewSupervisor(cfg, "example", dpcp.DefaultSLogger())

	// Declare the chain: stage "increment" feeds stage "double".
	sup.SetChainConfig(dpcp.ChainConfig{
		{Services: []dpcp.ServiceRef{{TargetID: "increment"}}, Location: dpcp.LocationLocal},
		{Services: []dpcp.ServiceRef{{TargetID: "double"}}, Location: dpcp.LocationLocal},
	})
	deployment := runtimex.PanicOnError1(sup.DeployChain(ctx))

	// Install the processors stage by stage.
	runtimex.Assert(sup.AddProcessors(deployment.NodeIDs[0],
		dpcp.PureProcessor(func(v any) any { return v.(int) + 1 })) == nil)
	runtimex.Assert(sup.AddProcessors(deployment.NodeIDs[1],
		dpcp.PureProcessor(func(v any) any { return v.(int) * 2 })) == nil)

	// Feed the first stage; completion hands off to the second stage.
	runtimex.PanicOnError1(sup.Dispatch(ctx, dpcp.SupervisorPayload{
		Signal: dpcp.SignalNodeRun,
		ID:     deployment.NodeIDs[0],
		Data:   3,
	}))

	// The terminal stage retains the final output.
	terminal, _ := sup.Node(deployment.NodeIDs[1])
	output, _ := terminal.Output()
	fmt.Println(output)

	// Output:
	// 8
}
