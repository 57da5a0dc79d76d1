// SPDX-License-Identifier: GPL-3.0-or-later

package dpcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeStatusTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusInProgress.Terminal())
	assert.False(t, StatusPaused.Terminal())
}

func TestCanTransition(t *testing.T) {
	t.Run("legal transitions", func(t *testing.T) {
		assert.True(t, canTransition(StatusPending, StatusInProgress))
		assert.True(t, canTransition(StatusPending, StatusPaused))
		assert.True(t, canTransition(StatusPending, StatusFailed))
		assert.True(t, canTransition(StatusInProgress, StatusCompleted))
		assert.True(t, canTransition(StatusInProgress, StatusFailed))
		assert.True(t, canTransition(StatusInProgress, StatusPaused))
		assert.True(t, canTransition(StatusPaused, StatusPending))
	})

	t.Run("illegal transitions", func(t *testing.T) {
		assert.False(t, canTransition(StatusPending, StatusCompleted))
		assert.False(t, canTransition(StatusPaused, StatusInProgress))
		assert.False(t, canTransition(StatusPaused, StatusCompleted))
		assert.False(t, canTransition(StatusCompleted, StatusPending))
		assert.False(t, canTransition(StatusCompleted, StatusInProgress))
		assert.False(t, canTransition(StatusFailed, StatusPending))
		assert.False(t, canTransition(StatusFailed, StatusInProgress))
	})
}
