// SPDX-License-Identifier: GPL-3.0-or-later

package dpcp

import (
	"slices"
	"sync"
	"time"
)

// NodeMonitoring tracks the aggregate state of the nodes owned by a
// supervisor: which IDs are completed, pending, and failed.
//
// A node occupies at most one bucket at a time; PAUSED and IN_PROGRESS
// nodes are members but occupy no bucket. Each effective status change
// emits a [ReportingMessage] through the configured emit hook, which the
// supervisor routes toward the chain's monitoring peer.
type NodeMonitoring struct {
	// mu guards the buckets.
	mu sync.Mutex

	// members maps node ID to the owning chain ID ("" when unchained).
	members map[string]string

	// completed, pending, and failed are the disjoint status buckets.
	completed map[string]struct{}
	pending   map[string]struct{}
	failed    map[string]struct{}

	// emit receives one reporting message per effective status change.
	// Nil disables emission.
	emit ReportSignalHandler

	// timeNow returns the current time.
	timeNow func() time.Time
}

// NewNodeMonitoring returns an empty [*NodeMonitoring].
func NewNodeMonitoring(timeNow func() time.Time) *NodeMonitoring {
	return &NodeMonitoring{
		members:   make(map[string]string),
		completed: make(map[string]struct{}),
		pending:   make(map[string]struct{}),
		failed:    make(map[string]struct{}),
		timeNow:   timeNow,
	}
}

// SetEmit installs the reporting hook invoked on each status change.
func (m *NodeMonitoring) SetEmit(emit ReportSignalHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emit = emit
}

// AddNode registers a node. A freshly created node lands in the pending bucket.
func (m *NodeMonitoring) AddNode(node *Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[node.ID()] = node.ChainID()
	m.placeLocked(node.ID(), node.Status())
}

// RemoveNode forgets a node. Unknown IDs are ignored.
func (m *NodeMonitoring) RemoveNode(nodeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.members, nodeID)
	m.evictLocked(nodeID)
}

// OnStatusChange moves the node into the bucket matching its new status
// and emits a [ReportingMessage]. Unknown IDs are ignored.
func (m *NodeMonitoring) OnStatusChange(nodeID string, status NodeStatus) {
	m.mu.Lock()
	chainID, known := m.members[nodeID]
	if !known {
		m.mu.Unlock()
		return
	}
	m.placeLocked(nodeID, status)
	emit := m.emit
	timestamp := m.timeNow().UnixMilli()
	m.mu.Unlock()
	if emit != nil {
		emit(ReportingMessage{
			ChainID:   chainID,
			NodeID:    nodeID,
			Status:    status,
			Timestamp: timestamp,
		})
	}
}

// Snapshot returns an atomic read of the three buckets, IDs sorted.
func (m *NodeMonitoring) Snapshot() ChainState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ChainState{
		Completed: sortedKeys(m.completed),
		Pending:   sortedKeys(m.pending),
		Failed:    sortedKeys(m.failed),
	}
}

func (m *NodeMonitoring) placeLocked(nodeID string, status NodeStatus) {
	m.evictLocked(nodeID)
	switch status {
	case StatusCompleted:
		m.completed[nodeID] = struct{}{}
	case StatusPending:
		m.pending[nodeID] = struct{}{}
	case StatusFailed:
		m.failed[nodeID] = struct{}{}
	}
}

func (m *NodeMonitoring) evictLocked(nodeID string) {
	delete(m.completed, nodeID)
	delete(m.pending, nodeID)
	delete(m.failed, nodeID)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
