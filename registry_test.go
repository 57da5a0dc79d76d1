// SPDX-License-Identifier: GPL-3.0-or-later

package dpcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceRegistry(t *testing.T) {
	registry := NewServiceRegistry()

	t.Run("miss before registration", func(t *testing.T) {
		_, found := registry.Pipeline("svc-a")
		assert.False(t, found)
	})

	t.Run("builds a fresh pipeline per call", func(t *testing.T) {
		registry.Register("svc-a", func() []Processor {
			return []Processor{addOne(), double()}
		})
		first, found := registry.Pipeline("svc-a")
		require.True(t, found)
		assert.Len(t, first, 2)
		second, found := registry.Pipeline("svc-a")
		require.True(t, found)
		assert.Len(t, second, 2)
	})
}
