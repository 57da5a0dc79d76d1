// SPDX-License-Identifier: GPL-3.0-or-later

package dpcp

// NodeStatus is the lifecycle state of a [Node].
//
// A node is born PENDING, moves to IN_PROGRESS when execution starts, and
// terminates in COMPLETED or FAILED. A node may be placed in PAUSED from any
// non-terminal state and later resumed to PENDING. Terminal states accept no
// further transitions.
type NodeStatus string

const (
	// StatusPending means the node has been created and is waiting to execute.
	StatusPending = NodeStatus("PENDING")

	// StatusInProgress means the node is currently executing its pipeline.
	StatusInProgress = NodeStatus("IN_PROGRESS")

	// StatusCompleted means the pipeline ran to completion and the output
	// is retained until send-data consumes it.
	StatusCompleted = NodeStatus("COMPLETED")

	// StatusFailed means a processor raised or a precondition was violated.
	StatusFailed = NodeStatus("FAILED")

	// StatusPaused means the node refuses execution until resumed.
	StatusPaused = NodeStatus("PAUSED")
)

// Terminal returns true for statuses that accept no further transitions.
func (s NodeStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// legalTransitions enumerates the allowed status changes. Same-status
// updates are not listed: they are idempotent no-ops.
var legalTransitions = map[NodeStatus][]NodeStatus{
	StatusPending:    {StatusInProgress, StatusPaused, StatusFailed},
	StatusInProgress: {StatusCompleted, StatusFailed, StatusPaused},
	StatusPaused:     {StatusPending},
}

// canTransition reports whether moving from one status to another is legal.
func canTransition(from, to NodeStatus) bool {
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
