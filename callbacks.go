// SPDX-License-Identifier: GPL-3.0-or-later

package dpcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// NewSetupBroadcastFunc returns a new [*SetupBroadcastFunc].
//
// The cfg argument contains the common configuration. The logger argument
// is the [SLogger] to use for structured logging.
func NewSetupBroadcastFunc(cfg *Config, logger SLogger) *SetupBroadcastFunc {
	return &SetupBroadcastFunc{
		Detached:      true,
		ErrClassifier: cfg.ErrClassifier,
		HostResolver:  cfg.HostResolver,
		Logger:        logger,
		Paths:         cfg.Paths,
		Poster:        cfg.Poster,
		TimeNow:       cfg.TimeNow,
	}
}

// SetupBroadcastFunc is the default broadcast-setup callback: it iterates
// the chain's stages, resolves each stage's first service, and issues one
// setup POST per resolvable stage.
//
// The POSTs are fire-and-forget: Call returns once every POST has been
// launched; results are awaited only in a detached goroutine that logs
// aggregate failures. Per-stage errors are isolated — one stage's failure
// does not abort the rest. Unresolved targets and empty stages are logged
// and skipped.
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Call].
type SetupBroadcastFunc struct {
	// Detached controls whether Call returns before the POSTs complete.
	//
	// Set by [NewSetupBroadcastFunc] to true, preserving the
	// fire-and-forget semantics. Set it to false to await delivery;
	// Call then returns the aggregated per-stage errors.
	Detached bool

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewSetupBroadcastFunc] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// HostResolver maps target IDs to peer base URLs.
	//
	// Set by [NewSetupBroadcastFunc] from [Config.HostResolver].
	HostResolver HostResolver

	// Logger is the [SLogger] to use (configurable for testing or custom logging).
	//
	// Set by [NewSetupBroadcastFunc] to the user-provided logger.
	Logger SLogger

	// Paths holds the URL path components appended to resolved hosts.
	//
	// Set by [NewSetupBroadcastFunc] from [Config.Paths].
	Paths Paths

	// Poster performs the HTTP POSTs.
	//
	// Set by [NewSetupBroadcastFunc] from [Config.Poster].
	Poster Poster

	// TimeNow is the function to get the current time (configurable for testing).
	//
	// Set by [NewSetupBroadcastFunc] from [Config.TimeNow].
	TimeNow func() time.Time
}

var _ Func[BroadcastSetupMessage, Unit] = &SetupBroadcastFunc{}

// Call implements [Func].
func (op *SetupBroadcastFunc) Call(ctx context.Context, msg BroadcastSetupMessage) (Unit, error) {
	// The posts must survive the caller returning: detach from the
	// caller's cancellation while preserving its values.
	detached := context.WithoutCancel(ctx)

	group := new(errgroup.Group)
	var (
		failuresMu sync.Mutex
		failures   []error
	)

	for index, stage := range msg.Chain.Config {
		if len(stage.Services) <= 0 {
			op.Logger.Warn(
				"setupStageEmpty",
				slog.String("chainId", msg.Chain.ID),
				slog.Int("stageIndex", index),
			)
			continue
		}
		if len(stage.Services) > 1 {
			op.Logger.Warn(
				"setupFanOutIgnored",
				slog.String("chainId", msg.Chain.ID),
				slog.Int("extraServices", len(stage.Services)-1),
				slog.Int("stageIndex", index),
			)
		}
		primary := stage.Services[0]
		host, found := op.HostResolver.Resolve(primary.TargetID, primary.Meta)
		if !found {
			op.Logger.Warn(
				"setupTargetUnresolved",
				slog.String("chainId", msg.Chain.ID),
				slog.Int("stageIndex", index),
				slog.String("targetId", primary.TargetID),
			)
			continue
		}
		body, err := json.Marshal(SetupMessage{
			ChainID:        msg.Chain.ID,
			RemoteConfigs:  StageConfig{Services: stage.Services},
			MonitoringHost: msg.MonitoringHost,
		})
		if err != nil {
			failuresMu.Lock()
			failures = append(failures, err)
			failuresMu.Unlock()
			continue
		}
		url := host + op.Paths.Setup
		group.Go(func() error {
			if _, err := op.Poster.Post(detached, url, body); err != nil {
				failure := &SetupPostFailedError{Peer: url, Cause: err}
				op.Logger.Warn(
					"setupPostFailed",
					slog.String("chainId", msg.Chain.ID),
					slog.Any("err", failure),
					slog.String("errClass", op.ErrClassifier.Classify(failure)),
					slog.String("url", url),
				)
				failuresMu.Lock()
				failures = append(failures, failure)
				failuresMu.Unlock()
				return failure
			}
			return nil
		})
	}

	t0 := op.TimeNow()
	finish := func() error {
		group.Wait()
		failuresMu.Lock()
		combined := multierr.Combine(failures...)
		failuresMu.Unlock()
		op.Logger.Info(
			"setupBroadcastDone",
			slog.String("chainId", msg.Chain.ID),
			slog.Any("err", combined),
			slog.Time("t0", t0),
			slog.Time("t", op.TimeNow()),
		)
		return combined
	}
	if op.Detached {
		go finish()
		return Unit{}, nil
	}
	return Unit{}, finish()
}

// NewRemoteServiceFunc returns a new [*RemoteServiceFunc].
//
// The cfg argument contains the common configuration. The logger argument
// is the [SLogger] to use for structured logging.
func NewRemoteServiceFunc(cfg *Config, logger SLogger) *RemoteServiceFunc {
	return &RemoteServiceFunc{
		ErrClassifier: cfg.ErrClassifier,
		HostResolver:  cfg.HostResolver,
		Logger:        logger,
		Paths:         cfg.Paths,
		Poster:        cfg.Poster,
		TimeNow:       cfg.TimeNow,
	}
}

// RemoteServiceFunc is the default downstream data hand-off callback: it
// resolves the target's host and POSTs the payload to the peer's run path.
//
// Unlike the setup broadcast, the POST is awaited: the calling node's
// send-data outcome depends on delivery success.
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Call].
type RemoteServiceFunc struct {
	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewRemoteServiceFunc] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// HostResolver maps target IDs to peer base URLs.
	//
	// Set by [NewRemoteServiceFunc] from [Config.HostResolver].
	HostResolver HostResolver

	// Logger is the [SLogger] to use (configurable for testing or custom logging).
	//
	// Set by [NewRemoteServiceFunc] to the user-provided logger.
	Logger SLogger

	// Paths holds the URL path components appended to resolved hosts.
	//
	// Set by [NewRemoteServiceFunc] from [Config.Paths].
	Paths Paths

	// Poster performs the HTTP POST.
	//
	// Set by [NewRemoteServiceFunc] from [Config.Poster].
	Poster Poster

	// TimeNow is the function to get the current time (configurable for testing).
	//
	// Set by [NewRemoteServiceFunc] from [Config.TimeNow].
	TimeNow func() time.Time
}

var _ Func[CallbackPayload, Unit] = &RemoteServiceFunc{}

// Call implements [Func].
func (op *RemoteServiceFunc) Call(ctx context.Context, payload CallbackPayload) (Unit, error) {
	if payload.ChainID == "" {
		return Unit{}, ErrMissingChainID
	}
	host, found := op.HostResolver.Resolve(payload.TargetID, payload.Meta)
	if !found {
		return Unit{}, fmt.Errorf("%w: %s", ErrNoNextConnector, payload.TargetID)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Unit{}, err
	}
	if _, err := op.Poster.Post(ctx, host+op.Paths.Run, body); err != nil {
		return Unit{}, err
	}
	return Unit{}, nil
}

// NewReportForwarder returns the default [ReportSignalHandler]: it injects
// each report into the process-local agent and, when the chain's
// monitoring host is registered, forwards the report to the host's notify
// path.
//
// Forwarding is synchronous on the status-change path, so reports for a
// given node arrive at the monitoring peer in the order the status changes
// occurred. A missing monitoring host means this peer is the chain's
// monitor (or none was advertised); the report stays local.
func NewReportForwarder(cfg *Config, agent *MonitoringAgent, logger SLogger) ReportSignalHandler {
	resolver := NewAgentMonitoringResolver(agent)
	return func(msg ReportingMessage) {
		agent.RecordReport(msg)
		host, err := resolver.Resolve(context.Background(), msg.ChainID)
		if err != nil {
			logger.Debug("reportLocalOnly", slog.String("chainId", msg.ChainID), slog.String("nodeId", msg.NodeID))
			return
		}
		body, err := json.Marshal(msg)
		if err != nil {
			logger.Warn("reportEncodeFailed", slog.String("chainId", msg.ChainID), slog.Any("err", err))
			return
		}
		if _, err := cfg.Poster.Post(context.Background(), host+cfg.Paths.Notify, body); err != nil {
			logger.Warn(
				"reportForwardFailed",
				slog.String("chainId", msg.ChainID),
				slog.Any("err", err),
				slog.String("nodeId", msg.NodeID),
			)
		}
	}
}

// NewBroadcastReportingFunc returns a new [*BroadcastReportingFunc].
//
// The cfg argument contains the common configuration. The resolver
// argument maps chain IDs to monitoring hosts; use
// [NewAgentMonitoringResolver] for the default. The logger argument is the
// [SLogger] to use for structured logging.
func NewBroadcastReportingFunc(cfg *Config, resolver MonitoringResolver, logger SLogger) *BroadcastReportingFunc {
	return &BroadcastReportingFunc{
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		Paths:         cfg.Paths,
		Poster:        cfg.Poster,
		Resolver:      resolver,
		TimeNow:       cfg.TimeNow,
	}
}

// BroadcastReportingFunc is the default chain-level reporting callback: it
// resolves the chain's monitoring host and POSTs the aggregated state to
// the host's notify path.
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Call].
type BroadcastReportingFunc struct {
	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewBroadcastReportingFunc] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use (configurable for testing or custom logging).
	//
	// Set by [NewBroadcastReportingFunc] to the user-provided logger.
	Logger SLogger

	// Paths holds the URL path components appended to resolved hosts.
	//
	// Set by [NewBroadcastReportingFunc] from [Config.Paths].
	Paths Paths

	// Poster performs the HTTP POST.
	//
	// Set by [NewBroadcastReportingFunc] from [Config.Poster].
	Poster Poster

	// Resolver maps chain IDs to monitoring host base URLs.
	//
	// Set by [NewBroadcastReportingFunc] to the user-provided resolver.
	Resolver MonitoringResolver

	// TimeNow is the function to get the current time (configurable for testing).
	//
	// Set by [NewBroadcastReportingFunc] from [Config.TimeNow].
	TimeNow func() time.Time
}

var _ Func[BroadcastReportingMessage, Unit] = &BroadcastReportingFunc{}

// Call implements [Func].
func (op *BroadcastReportingFunc) Call(ctx context.Context, msg BroadcastReportingMessage) (Unit, error) {
	host, err := op.Resolver.Resolve(ctx, msg.ChainID)
	if err != nil {
		return Unit{}, err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return Unit{}, err
	}
	if _, err := op.Poster.Post(ctx, host+op.Paths.Notify, body); err != nil {
		return Unit{}, err
	}
	return Unit{}, nil
}

// WireDefaultCallbacks installs the default callback policy onto the
// supervisor: setup broadcasting, remote-service hand-off, report
// forwarding into the agent, and chain-level broadcast reporting resolved
// through the agent.
//
// Call this once at startup, before the first dispatch.
func WireDefaultCallbacks(sup *Supervisor, cfg *Config, agent *MonitoringAgent, logger SLogger) error {
	if err := sup.SetBroadcastSetupCallback(NewSetupBroadcastFunc(cfg, logger)); err != nil {
		return err
	}
	if err := sup.SetRemoteServiceCallback(NewRemoteServiceFunc(cfg, logger)); err != nil {
		return err
	}
	if err := sup.SetReportingCallback(NewReportForwarder(cfg, agent, logger)); err != nil {
		return err
	}
	return sup.SetBroadcastReportingCallback(NewBroadcastReportingFunc(cfg, NewAgentMonitoringResolver(agent), logger))
}
