// SPDX-License-Identifier: GPL-3.0-or-later

package dpcp

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoOutput means send-data was invoked on a node with nothing to send.
var ErrNoOutput = errors.New("dpcp: no output to send")

// ErrMissingChainID means a downstream hand-off payload carried no chain ID.
var ErrMissingChainID = errors.New("dpcp: missing chain ID")

// ErrNoNextConnector means the host resolver could not place the hand-off target.
var ErrNoNextConnector = errors.New("dpcp: no next connector for target")

// ErrMonitoringNotFound means no monitoring host is registered for the chain.
var ErrMonitoringNotFound = errors.New("dpcp: no monitoring host for chain")

// ErrCallbacksSealed means a callback was replaced after the supervisor
// started dispatching. Callbacks are set once at startup.
var ErrCallbacksSealed = errors.New("dpcp: callbacks are sealed after first dispatch")

// InvalidTransitionError is returned for an illegal node status change.
type InvalidTransitionError struct {
	NodeID string
	From   NodeStatus
	To     NodeStatus
}

// Error implements error.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("dpcp: node %s: invalid transition %s -> %s", e.NodeID, e.From, e.To)
}

// DependenciesNotMetError is returned when a node is asked to execute while
// one or more of its dependencies has not reached COMPLETED.
type DependenciesNotMetError struct {
	NodeID string
	Unmet  []string
}

// Error implements error.
func (e *DependenciesNotMetError) Error() string {
	return fmt.Sprintf("dpcp: node %s: dependencies not met: %s", e.NodeID, strings.Join(e.Unmet, ", "))
}

// ProcessingFailedError is returned when a processor inside a node's
// pipeline fails. StageIndex is the zero-based position of the failing
// processor, or -1 when the failure precedes the pipeline (e.g., the
// pre-execution delay was canceled).
type ProcessingFailedError struct {
	NodeID     string
	StageIndex int
	Cause      error
}

// Error implements error.
func (e *ProcessingFailedError) Error() string {
	return fmt.Sprintf("dpcp: node %s: processing failed at stage %d: %v", e.NodeID, e.StageIndex, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ProcessingFailedError) Unwrap() error {
	return e.Cause
}

// SetupPostFailedError is returned when a setup broadcast POST to a single
// peer fails. Per-stage failures are isolated: one peer's failure does not
// abort the broadcast to the remaining peers.
type SetupPostFailedError struct {
	Peer  string
	Cause error
}

// Error implements error.
func (e *SetupPostFailedError) Error() string {
	return fmt.Sprintf("dpcp: setup post to %s failed: %v", e.Peer, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *SetupPostFailedError) Unwrap() error {
	return e.Cause
}

// BroadcastFailedError is returned when a chain's setup broadcast could not
// be issued. Already-created local nodes are not rolled back.
type BroadcastFailedError struct {
	ChainID string
	Cause   error
}

// Error implements error.
func (e *BroadcastFailedError) Error() string {
	return fmt.Sprintf("dpcp: broadcast for chain %s failed: %v", e.ChainID, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *BroadcastFailedError) Unwrap() error {
	return e.Cause
}

// UnknownSignalError is returned when a supervisor payload carries a signal
// outside the known set. The supervisor state is not mutated.
type UnknownSignalError struct {
	Signal Signal
}

// Error implements error.
func (e *UnknownSignalError) Error() string {
	return fmt.Sprintf("dpcp: unknown signal %q", string(e.Signal))
}

// HTTPStatusError is returned by [HTTPPoster] when the peer answers with a
// status code >= 400. Such responses are not retried.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

// Error implements error.
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("dpcp: POST %s: unexpected status %d", e.URL, e.StatusCode)
}
