// SPDX-License-Identifier: GPL-3.0-or-later

package dpcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitoringAgentHosts(t *testing.T) {
	agent := NewMonitoringAgent(DefaultSLogger())

	t.Run("miss before registration", func(t *testing.T) {
		_, found := agent.GetRemoteMonitoringHost("chain-1")
		assert.False(t, found)
	})

	t.Run("register and get", func(t *testing.T) {
		agent.Register("chain-1", "http://monitor")
		host, found := agent.GetRemoteMonitoringHost("chain-1")
		require.True(t, found)
		assert.Equal(t, "http://monitor", host)
	})

	t.Run("re-registration overwrites", func(t *testing.T) {
		agent.Register("chain-1", "http://monitor2")
		host, _ := agent.GetRemoteMonitoringHost("chain-1")
		assert.Equal(t, "http://monitor2", host)
	})

	t.Run("forget", func(t *testing.T) {
		agent.Forget("chain-1")
		_, found := agent.GetRemoteMonitoringHost("chain-1")
		assert.False(t, found)
	})
}

func TestMonitoringAgentChainState(t *testing.T) {
	agent := NewMonitoringAgent(DefaultSLogger())

	agent.RecordReport(ReportingMessage{ChainID: "chain-1", NodeID: "a", Status: StatusFailed, Timestamp: 1})
	agent.RecordReport(ReportingMessage{ChainID: "chain-1", NodeID: "b", Status: StatusInProgress, Timestamp: 2})
	agent.RecordReport(ReportingMessage{ChainID: "chain-1", NodeID: "b", Status: StatusCompleted, Timestamp: 3})
	agent.RecordReport(ReportingMessage{ChainID: "chain-2", NodeID: "c", Status: StatusPending, Timestamp: 4})

	t.Run("nodes land in exactly one bucket", func(t *testing.T) {
		state := agent.ChainState("chain-1")
		assert.Equal(t, []string{"b"}, state.Completed)
		assert.Equal(t, []string{"a"}, state.Failed)
		assert.Empty(t, state.Pending)
	})

	t.Run("chains are independent", func(t *testing.T) {
		state := agent.ChainState("chain-2")
		assert.Equal(t, []string{"c"}, state.Pending)
		assert.Empty(t, state.Completed)
		assert.Empty(t, state.Failed)
	})

	t.Run("paused occupies no bucket", func(t *testing.T) {
		agent.RecordReport(ReportingMessage{ChainID: "chain-1", NodeID: "b", Status: StatusPaused, Timestamp: 5})
		state := agent.ChainState("chain-1")
		assert.Empty(t, state.Completed)
		assert.Equal(t, []string{"a"}, state.Failed)
	})

	t.Run("unknown chain snapshots empty", func(t *testing.T) {
		state := agent.ChainState("nope")
		assert.Empty(t, state.Completed)
		assert.Empty(t, state.Pending)
		assert.Empty(t, state.Failed)
	})
}
