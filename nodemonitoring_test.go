// SPDX-License-Identifier: GPL-3.0-or-later

package dpcp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeMonitoringBuckets(t *testing.T) {
	monitoring := NewNodeMonitoring(time.Now)
	node := newTestNode()
	node.bindChain("chain-1")
	monitoring.AddNode(node)

	t.Run("fresh node is pending", func(t *testing.T) {
		state := monitoring.Snapshot()
		assert.Equal(t, []string{node.ID()}, state.Pending)
		assert.Empty(t, state.Completed)
		assert.Empty(t, state.Failed)
	})

	t.Run("in progress occupies no bucket", func(t *testing.T) {
		monitoring.OnStatusChange(node.ID(), StatusInProgress)
		state := monitoring.Snapshot()
		assert.Empty(t, state.Pending)
		assert.Empty(t, state.Completed)
		assert.Empty(t, state.Failed)
	})

	t.Run("completed occupies exactly one bucket", func(t *testing.T) {
		monitoring.OnStatusChange(node.ID(), StatusCompleted)
		state := monitoring.Snapshot()
		assert.Equal(t, []string{node.ID()}, state.Completed)
		assert.Empty(t, state.Pending)
		assert.Empty(t, state.Failed)
	})

	t.Run("removal evicts everywhere", func(t *testing.T) {
		monitoring.RemoveNode(node.ID())
		state := monitoring.Snapshot()
		assert.Empty(t, state.Completed)
		assert.Empty(t, state.Pending)
		assert.Empty(t, state.Failed)
	})
}

func TestNodeMonitoringEmit(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	monitoring := NewNodeMonitoring(func() time.Time { return fixed })
	var emitted []ReportingMessage
	monitoring.SetEmit(func(msg ReportingMessage) {
		emitted = append(emitted, msg)
	})
	node := newTestNode()
	node.bindChain("chain-1")
	monitoring.AddNode(node)

	monitoring.OnStatusChange(node.ID(), StatusInProgress)
	monitoring.OnStatusChange(node.ID(), StatusFailed)

	require.Len(t, emitted, 2)
	assert.Equal(t, "chain-1", emitted[0].ChainID)
	assert.Equal(t, node.ID(), emitted[0].NodeID)
	assert.Equal(t, StatusInProgress, emitted[0].Status)
	assert.Equal(t, int64(1700000000000), emitted[0].Timestamp)
	assert.Equal(t, StatusFailed, emitted[1].Status)
}

func TestNodeMonitoringUnknownNode(t *testing.T) {
	monitoring := NewNodeMonitoring(time.Now)
	var emitted []ReportingMessage
	monitoring.SetEmit(func(msg ReportingMessage) {
		emitted = append(emitted, msg)
	})

	// Status changes for unknown IDs are ignored and emit nothing.
	monitoring.OnStatusChange("nope", StatusCompleted)

	assert.Empty(t, emitted)
	assert.Empty(t, monitoring.Snapshot().Completed)
}
