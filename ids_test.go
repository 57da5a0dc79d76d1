// SPDX-License-Identifier: GPL-3.0-or-later

package dpcp

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNodeID(t *testing.T) {
	t.Run("well formed", func(t *testing.T) {
		id := NewNodeID()
		assert.Len(t, id, 36)
	})

	t.Run("unique", func(t *testing.T) {
		seen := make(map[string]struct{})
		for range 10000 {
			id := NewNodeID()
			_, dup := seen[id]
			require.False(t, dup, "duplicate node ID %s", id)
			seen[id] = struct{}{}
		}
	})
}

func TestNewChainID(t *testing.T) {
	t.Run("format", func(t *testing.T) {
		pattern := regexp.MustCompile(`^ci-\d+-[0-9a-f]{8}$`)
		id := NewChainID("ci", time.Now)
		assert.Regexp(t, pattern, id)
	})

	t.Run("embeds the initiator clock", func(t *testing.T) {
		fixed := time.UnixMilli(1234567890123)
		id := NewChainID("peer-1", func() time.Time { return fixed })
		assert.Regexp(t, `^peer-1-1234567890123-[0-9a-f]{8}$`, id)
	})

	t.Run("unique across back-to-back allocations", func(t *testing.T) {
		seen := make(map[string]struct{})
		for range 10000 {
			id := NewChainID("ci", time.Now)
			_, dup := seen[id]
			require.False(t, dup, "duplicate chain ID %s", id)
			seen[id] = struct{}{}
		}
	})
}
