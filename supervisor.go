// SPDX-License-Identifier: GPL-3.0-or-later

package dpcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// binding addresses a node by the chain and target it materializes.
type binding struct {
	chainID  string
	targetID string
}

// Supervisor is the process-wide owner of all nodes: it dispatches
// [SupervisorPayload] signals, distributes chains, and routes data between
// nodes and peers.
//
// Construct one supervisor per connector process with [NewSupervisor] and
// wire its callbacks once at startup (typically via [WireDefaultCallbacks])
// before the first dispatch; replacing a callback afterwards fails with
// [ErrCallbacksSealed].
//
// The supervisor serializes all mutation of its node registry. Executions
// and HTTP hand-offs run outside the registry lock, so one node's pipeline
// does not stall control signals for the others.
type Supervisor struct {
	// uid is the identity configured once at startup; it prefixes
	// every chain ID this supervisor allocates.
	uid string

	// paths holds the URL path components appended to resolved hosts.
	paths Paths

	// monitoringHost is the base URL advertised to peers in setup
	// broadcasts; empty when this supervisor advertises none.
	monitoringHost string

	// errClassifier classifies errors for structured logging.
	errClassifier ErrClassifier

	// logger is the SLogger to use.
	logger SLogger

	// timeNow returns the current time.
	timeNow func() time.Time

	// mu guards nodes, bindings, and chainConfig.
	mu          sync.Mutex
	nodes       map[string]*Node
	bindings    map[binding]string
	chainConfig ChainConfig

	// monitoring aggregates the statuses of owned nodes.
	monitoring *NodeMonitoring

	// cbmu guards the callbacks and the seal.
	cbmu               sync.Mutex
	sealed             bool
	broadcastSetup     Func[BroadcastSetupMessage, Unit]
	remoteService      Func[CallbackPayload, Unit]
	reporting          ReportSignalHandler
	broadcastReporting Func[BroadcastReportingMessage, Unit]
}

// NewSupervisor returns a new [*Supervisor].
//
// The cfg argument contains the common configuration. The uid argument is
// the supervisor's fabric identity. The logger argument is the [SLogger]
// to use for structured logging.
func NewSupervisor(cfg *Config, uid string, logger SLogger) *Supervisor {
	s := &Supervisor{
		uid:            uid,
		paths:          cfg.Paths,
		monitoringHost: cfg.MonitoringHost,
		errClassifier:  cfg.ErrClassifier,
		logger:         logger,
		timeNow:        cfg.TimeNow,
		nodes:          make(map[string]*Node),
		bindings:       make(map[binding]string),
		monitoring:     NewNodeMonitoring(cfg.TimeNow),
	}
	s.monitoring.SetEmit(s.report)
	return s
}

// UID returns the supervisor's fabric identity.
func (s *Supervisor) UID() string {
	return s.uid
}

// Paths returns the configured URL path components.
func (s *Supervisor) Paths() Paths {
	return s.paths
}

// Monitoring returns the supervisor's aggregate node monitoring.
func (s *Supervisor) Monitoring() *NodeMonitoring {
	return s.monitoring
}

// Node returns the node with the given ID, if owned by this supervisor.
func (s *Supervisor) Node(nodeID string) (*Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, found := s.nodes[nodeID]
	return node, found
}

// NodeForTarget returns the node materializing the given chain target,
// if any is bound on this supervisor.
func (s *Supervisor) NodeForTarget(chainID, targetID string) (*Node, bool) {
	s.mu.Lock()
	nodeID, found := s.bindings[binding{chainID: chainID, targetID: targetID}]
	s.mu.Unlock()
	if !found {
		return nil, false
	}
	return s.Node(nodeID)
}

// SetBroadcastSetupCallback installs the broadcast-setup callback.
func (s *Supervisor) SetBroadcastSetupCallback(cb Func[BroadcastSetupMessage, Unit]) error {
	s.cbmu.Lock()
	defer s.cbmu.Unlock()
	if s.sealed {
		return ErrCallbacksSealed
	}
	s.broadcastSetup = cb
	return nil
}

// SetRemoteServiceCallback installs the downstream data hand-off callback.
func (s *Supervisor) SetRemoteServiceCallback(cb Func[CallbackPayload, Unit]) error {
	s.cbmu.Lock()
	defer s.cbmu.Unlock()
	if s.sealed {
		return ErrCallbacksSealed
	}
	s.remoteService = cb
	return nil
}

// SetReportingCallback installs the per-node status change handler.
func (s *Supervisor) SetReportingCallback(cb ReportSignalHandler) error {
	s.cbmu.Lock()
	defer s.cbmu.Unlock()
	if s.sealed {
		return ErrCallbacksSealed
	}
	s.reporting = cb
	return nil
}

// SetBroadcastReportingCallback installs the chain-level reporting callback.
func (s *Supervisor) SetBroadcastReportingCallback(cb Func[BroadcastReportingMessage, Unit]) error {
	s.cbmu.Lock()
	defer s.cbmu.Unlock()
	if s.sealed {
		return ErrCallbacksSealed
	}
	s.broadcastReporting = cb
	return nil
}

// seal freezes the callbacks; called on the first dispatch or chain deployment.
func (s *Supervisor) seal() {
	s.cbmu.Lock()
	defer s.cbmu.Unlock()
	s.sealed = true
}

// report routes one node status event through the reporting callback.
func (s *Supervisor) report(msg ReportingMessage) {
	s.cbmu.Lock()
	reporting := s.reporting
	s.cbmu.Unlock()
	if reporting != nil {
		reporting(msg)
	}
}

// Dispatch handles one supervisor signal.
//
// For [SignalNodeCreate] the returned string is the fresh node's ID; it is
// empty for every other signal. Malformed payloads and unknown signals are
// rejected before any state is touched.
func (s *Supervisor) Dispatch(ctx context.Context, payload SupervisorPayload) (string, error) {
	s.seal()
	if err := payload.validate(); err != nil {
		var unknown *UnknownSignalError
		if errors.As(err, &unknown) {
			s.logger.Warn("unknownSignal", slog.String("signal", string(payload.Signal)))
		}
		return "", err
	}
	s.logger.Info(
		"supervisorSignal",
		slog.String("nodeId", payload.ID),
		slog.String("signal", string(payload.Signal)),
		slog.Time("t", s.timeNow()),
	)
	switch payload.Signal {
	case SignalNodeCreate:
		node := s.createNode("", payload.Dependencies)
		return node.ID(), nil

	case SignalNodeDelete:
		s.deleteNode(payload.ID)
		return "", nil

	case SignalNodePause:
		node, err := s.lookup(payload.ID)
		if err != nil {
			return "", err
		}
		return "", node.UpdateStatus(StatusPaused)

	case SignalNodeDelay:
		node, err := s.lookup(payload.ID)
		if err != nil {
			return "", err
		}
		node.SetDelay(payload.DelayDuration())
		return "", nil

	case SignalNodeRun:
		return "", s.runNode(ctx, payload.ID, payload.Data)

	default: // SignalNodeSendData, guaranteed by validate
		node, err := s.lookup(payload.ID)
		if err != nil {
			return "", err
		}
		return "", node.SendData(ctx)
	}
}

// lookup returns the node or an error naming the unknown ID.
func (s *Supervisor) lookup(nodeID string) (*Node, error) {
	node, found := s.Node(nodeID)
	if !found {
		return nil, fmt.Errorf("dpcp: no such node: %s", nodeID)
	}
	return node, nil
}

// createNode registers a fresh PENDING node, optionally bound to a chain.
func (s *Supervisor) createNode(chainID string, dependencies []string) *Node {
	node := newNode(s.logger, s.errClassifier, s.timeNow, dependencies)
	if chainID != "" {
		node.bindChain(chainID)
	}
	node.install(s.deliverDownstream, s.monitoring.OnStatusChange)
	s.mu.Lock()
	s.nodes[node.ID()] = node
	s.mu.Unlock()
	s.monitoring.AddNode(node)
	s.logger.Info(
		"nodeCreated",
		slog.String("chainId", chainID),
		slog.Any("dependencies", dependencies),
		slog.String("nodeId", node.ID()),
		slog.Time("t", s.timeNow()),
	)
	return node
}

// deleteNode removes a node; idempotent on unknown IDs (warn only). An
// in-flight execution continues to completion but its results are
// discarded because the node is no longer addressable.
func (s *Supervisor) deleteNode(nodeID string) {
	s.mu.Lock()
	_, found := s.nodes[nodeID]
	delete(s.nodes, nodeID)
	for key, boundID := range s.bindings {
		if boundID == nodeID {
			delete(s.bindings, key)
		}
	}
	s.mu.Unlock()
	if !found {
		s.logger.Warn("nodeDeleteUnknown", slog.String("nodeId", nodeID))
		return
	}
	s.monitoring.RemoveNode(nodeID)
	s.logger.Info("nodeDeleted", slog.String("nodeId", nodeID), slog.Time("t", s.timeNow()))
}

// bind records that a node materializes a chain target.
func (s *Supervisor) bind(chainID, targetID, nodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings[binding{chainID: chainID, targetID: targetID}] = nodeID
}

// runNode enforces dependencies, executes the node, and performs the
// downstream hand-off when the node designates a next target.
func (s *Supervisor) runNode(ctx context.Context, nodeID string, data any) error {
	node, err := s.lookup(nodeID)
	if err != nil {
		return err
	}
	if unmet := s.unmetDependencies(node); len(unmet) > 0 {
		node.UpdateStatus(StatusFailed)
		return &DependenciesNotMetError{NodeID: nodeID, Unmet: unmet}
	}
	if _, err := node.Execute(ctx, data); err != nil {
		return err
	}
	if node.NextTarget() != nil {
		return node.SendData(ctx)
	}
	return nil
}

// unmetDependencies lists the node's dependencies not yet COMPLETED.
func (s *Supervisor) unmetDependencies(node *Node) []string {
	var unmet []string
	for _, depID := range node.Dependencies() {
		dep, found := s.Node(depID)
		if !found || dep.Status() != StatusCompleted {
			unmet = append(unmet, depID)
		}
	}
	return unmet
}

// deliverDownstream is the downstream delivery path installed into every
// node: hand-offs targeting a node bound on this supervisor short-circuit
// in-process; everything else goes through the remote-service callback.
func (s *Supervisor) deliverDownstream(ctx context.Context, payload CallbackPayload) error {
	if local, found := s.NodeForTarget(payload.ChainID, payload.TargetID); found {
		s.logger.Info(
			"handOffLocal",
			slog.String("chainId", payload.ChainID),
			slog.String("nodeId", local.ID()),
			slog.String("targetId", payload.TargetID),
		)
		return s.runNode(ctx, local.ID(), payload.Data)
	}
	s.cbmu.Lock()
	remoteService := s.remoteService
	s.cbmu.Unlock()
	if remoteService == nil {
		return fmt.Errorf("%w: %s", ErrNoNextConnector, payload.TargetID)
	}
	_, err := remoteService.Call(ctx, payload)
	return err
}

// PublishChainState routes a chain-level aggregated status update to the
// chain's monitoring host through the broadcast-reporting callback.
//
// A [ErrMonitoringNotFound] miss is logged and the report dropped; it is
// never fatal.
func (s *Supervisor) PublishChainState(ctx context.Context, chainID string) error {
	s.cbmu.Lock()
	broadcastReporting := s.broadcastReporting
	s.cbmu.Unlock()
	if broadcastReporting == nil {
		return nil
	}
	snapshot := s.monitoring.Snapshot()
	inChain := func(nodeIDs []string) []string {
		kept := make([]string, 0, len(nodeIDs))
		for _, nodeID := range nodeIDs {
			if node, found := s.Node(nodeID); found && node.ChainID() == chainID {
				kept = append(kept, nodeID)
			}
		}
		return kept
	}
	msg := BroadcastReportingMessage{ChainID: chainID, State: ChainState{
		Completed: inChain(snapshot.Completed),
		Pending:   inChain(snapshot.Pending),
		Failed:    inChain(snapshot.Failed),
	}}
	_, err := broadcastReporting.Call(ctx, msg)
	if errors.Is(err, ErrMonitoringNotFound) {
		s.logger.Warn("chainReportDropped", slog.String("chainId", chainID), slog.Any("err", err))
		return nil
	}
	return err
}
