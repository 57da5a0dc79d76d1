// SPDX-License-Identifier: GPL-3.0-or-later

package dpcp

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Node is a local materialization of a chain stage: an ordered sequence of
// [Processor] values executed over a payload, plus the status machine
// governing when execution and hand-off may happen.
//
// Nodes are created and exclusively owned by a [Supervisor]; the supervisor
// serializes state mutation while allowing executions to overlap I/O.
// Direct use of the exported methods is safe: every method serializes
// against the node's own state.
type Node struct {
	// id is the fresh unique identifier assigned at creation.
	id string

	// mu guards all mutable state below.
	mu sync.Mutex

	// chainID is the owning chain, empty for free-standing nodes.
	chainID string

	// pipeline is the ordered processor sequence.
	pipeline []Processor

	// dependencies lists node IDs that must reach COMPLETED before
	// this node may leave PENDING.
	dependencies []string

	// status is the current lifecycle state.
	status NodeStatus

	// delay is applied before execution begins.
	delay time.Duration

	// output is the last payload produced by the final processor,
	// retained until send-data consumes it.
	output    any
	hasOutput bool

	// nextTarget designates where send-data forwards the output;
	// nil for terminal nodes.
	nextTarget *ServiceRef

	// deliver is the supervisor's downstream delivery path. The closure
	// captures the supervisor by non-owning reference.
	deliver func(ctx context.Context, payload CallbackPayload) error

	// onStatusChange fires once per effective status transition.
	onStatusChange func(nodeID string, status NodeStatus)

	// errClassifier classifies errors for structured logging.
	errClassifier ErrClassifier

	// logger is the SLogger to use.
	logger SLogger

	// timeNow returns the current time.
	timeNow func() time.Time
}

// newNode returns a PENDING node with a fresh ID and no pipeline.
func newNode(logger SLogger, errClassifier ErrClassifier, timeNow func() time.Time, dependencies []string) *Node {
	return &Node{
		id:            NewNodeID(),
		dependencies:  slices.Clone(dependencies),
		status:        StatusPending,
		errClassifier: errClassifier,
		logger:        logger,
		timeNow:       timeNow,
	}
}

// ID returns the node's unique identifier.
func (n *Node) ID() string {
	return n.id
}

// ChainID returns the owning chain's identifier, empty for free-standing nodes.
func (n *Node) ChainID() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.chainID
}

// Status returns the current lifecycle state.
func (n *Node) Status() NodeStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.status
}

// Dependencies returns the node IDs that must complete before this node runs.
func (n *Node) Dependencies() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.dependencies)
}

// NextTarget returns the hand-off target, nil for terminal nodes.
func (n *Node) NextTarget() *ServiceRef {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.nextTarget == nil {
		return nil
	}
	ref := *n.nextTarget
	return &ref
}

// SetNextTarget designates where send-data forwards the output.
func (n *Node) SetNextTarget(ref *ServiceRef) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextTarget = ref
}

// SetDelay stores the pre-execution delay; it takes effect at the next Execute.
func (n *Node) SetDelay(delay time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delay = delay
}

// Output returns the retained output payload and whether one is present.
func (n *Node) Output() (any, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.output, n.hasOutput
}

// AppendProcessors extends the pipeline. Appending is permitted only while
// the node is PENDING or PAUSED.
func (n *Node) AppendProcessors(procs ...Processor) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.status != StatusPending && n.status != StatusPaused {
		return fmt.Errorf("dpcp: node %s: cannot append processors while %s", n.id, n.status)
	}
	n.pipeline = append(n.pipeline, procs...)
	return nil
}

// UpdateStatus transitions the node to the given status.
//
// Same-status updates are idempotent no-ops. Illegal transitions fail with
// [*InvalidTransitionError]. Each effective transition fires the status
// change hook exactly once.
func (n *Node) UpdateStatus(status NodeStatus) error {
	n.mu.Lock()
	if status == n.status {
		n.mu.Unlock()
		return nil
	}
	if !canTransition(n.status, status) {
		err := &InvalidTransitionError{NodeID: n.id, From: n.status, To: status}
		n.mu.Unlock()
		return err
	}
	from := n.status
	n.status = status
	hook := n.onStatusChange
	n.mu.Unlock()
	n.logger.Info(
		"nodeStatusChanged",
		slog.String("chainId", n.ChainID()),
		slog.String("from", string(from)),
		slog.String("nodeId", n.id),
		slog.String("status", string(status)),
		slog.Time("t", n.timeNow()),
	)
	if hook != nil {
		hook(n.id, status)
	}
	return nil
}

// Execute runs the pipeline over the given input.
//
// The node sleeps its configured delay, transitions PENDING -> IN_PROGRESS,
// and applies the processors in order, each fed the previous one's output
// (the first fed input). On success the final value is retained as the
// node's output and the node transitions to COMPLETED. On processor failure
// the node transitions to FAILED and the error is wrapped in
// [*ProcessingFailedError] with the failing stage index.
//
// A node that is not PENDING (including PAUSED) refuses to execute. A
// context canceled during the delay fails the node with StageIndex -1.
func (n *Node) Execute(ctx context.Context, input any) (any, error) {
	n.mu.Lock()
	if n.status != StatusPending {
		err := &InvalidTransitionError{NodeID: n.id, From: n.status, To: StatusInProgress}
		n.mu.Unlock()
		return nil, err
	}
	delay := n.delay
	pipeline := slices.Clone(n.pipeline)
	n.mu.Unlock()

	t0 := n.timeNow()
	n.logger.Info(
		"nodeExecuteStart",
		slog.String("chainId", n.ChainID()),
		slog.Duration("delay", delay),
		slog.String("nodeId", n.id),
		slog.Int("pipelineLen", len(pipeline)),
		slog.Time("t", t0),
	)

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			failure := &ProcessingFailedError{NodeID: n.id, StageIndex: -1, Cause: ctx.Err()}
			n.UpdateStatus(StatusFailed)
			n.logExecuteDone(t0, failure)
			return nil, failure
		case <-timer.C:
		}
	}

	if err := n.UpdateStatus(StatusInProgress); err != nil {
		return nil, err
	}

	current := input
	for idx, proc := range pipeline {
		next, err := proc.Call(ctx, current)
		if err != nil {
			failure := &ProcessingFailedError{NodeID: n.id, StageIndex: idx, Cause: err}
			n.UpdateStatus(StatusFailed)
			n.logExecuteDone(t0, failure)
			return nil, failure
		}
		n.logger.Debug(
			"processorDone",
			slog.String("nodeId", n.id),
			slog.Int("stageIndex", idx),
			slog.Time("t", n.timeNow()),
		)
		current = next
	}

	n.mu.Lock()
	n.output = current
	n.hasOutput = true
	n.mu.Unlock()
	n.UpdateStatus(StatusCompleted)
	n.logExecuteDone(t0, nil)
	return current, nil
}

func (n *Node) logExecuteDone(t0 time.Time, err error) {
	n.logger.Info(
		"nodeExecuteDone",
		slog.String("chainId", n.ChainID()),
		slog.Any("err", err),
		slog.String("errClass", n.errClassifier.Classify(err)),
		slog.String("nodeId", n.id),
		slog.String("status", string(n.Status())),
		slog.Time("t0", t0),
		slog.Time("t", n.timeNow()),
	)
}

// SendData forwards the retained output downstream.
//
// The node must be COMPLETED with an output present, otherwise the call
// fails with [ErrNoOutput]. On success the output is cleared; on delivery
// failure the output is retained and the node's status is unchanged, so
// the caller may retry.
func (n *Node) SendData(ctx context.Context) error {
	n.mu.Lock()
	if n.status != StatusCompleted || !n.hasOutput {
		n.mu.Unlock()
		return ErrNoOutput
	}
	payload := CallbackPayload{ChainID: n.chainID, Data: n.output}
	if n.nextTarget != nil {
		payload.TargetID = n.nextTarget.TargetID
		payload.Meta = n.nextTarget.Meta
	}
	deliver := n.deliver
	n.mu.Unlock()

	t0 := n.timeNow()
	n.logger.Info(
		"nodeSendDataStart",
		slog.String("chainId", payload.ChainID),
		slog.String("nodeId", n.id),
		slog.String("targetId", payload.TargetID),
		slog.Time("t", t0),
	)
	var err error
	if deliver == nil {
		err = ErrNoNextConnector
	} else {
		err = deliver(ctx, payload)
	}
	if err == nil {
		n.mu.Lock()
		n.output = nil
		n.hasOutput = false
		n.mu.Unlock()
	}
	n.logger.Info(
		"nodeSendDataDone",
		slog.String("chainId", payload.ChainID),
		slog.Any("err", err),
		slog.String("errClass", n.errClassifier.Classify(err)),
		slog.String("nodeId", n.id),
		slog.String("targetId", payload.TargetID),
		slog.Time("t0", t0),
		slog.Time("t", n.timeNow()),
	)
	return err
}

// bindChain attaches the node to a chain. Set once during chain distribution.
func (n *Node) bindChain(chainID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.chainID = chainID
}

// install wires the supervisor-provided hooks into the node.
func (n *Node) install(deliver func(ctx context.Context, payload CallbackPayload) error,
	onStatusChange func(nodeID string, status NodeStatus)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliver = deliver
	n.onStatusChange = onStatusChange
}
