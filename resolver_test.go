// SPDX-License-Identifier: GPL-3.0-or-later

package dpcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticHostResolver(t *testing.T) {
	resolver := NewStaticHostResolver(map[string]string{"svc-a": "http://peer1"})

	t.Run("hit", func(t *testing.T) {
		host, found := resolver.Resolve("svc-a", nil)
		require.True(t, found)
		assert.Equal(t, "http://peer1", host)
	})

	t.Run("miss", func(t *testing.T) {
		_, found := resolver.Resolve("svc-z", nil)
		assert.False(t, found)
	})

	t.Run("set adds entries", func(t *testing.T) {
		resolver.Set("svc-b", "http://peer2")
		host, found := resolver.Resolve("svc-b", map[string]any{"ignored": true})
		require.True(t, found)
		assert.Equal(t, "http://peer2", host)
	})
}

func TestHostResolverFunc(t *testing.T) {
	resolver := HostResolverFunc(func(targetID string, meta map[string]any) (string, bool) {
		return "http://" + targetID, true
	})
	host, found := resolver.Resolve("peer9", nil)
	require.True(t, found)
	assert.Equal(t, "http://peer9", host)
}

func TestAgentMonitoringResolver(t *testing.T) {
	agent := NewMonitoringAgent(DefaultSLogger())
	resolver := NewAgentMonitoringResolver(agent)

	t.Run("miss yields ErrMonitoringNotFound", func(t *testing.T) {
		_, err := resolver.Resolve(context.Background(), "chain-1")
		require.ErrorIs(t, err, ErrMonitoringNotFound)
	})

	t.Run("hit yields the registered host", func(t *testing.T) {
		agent.Register("chain-1", "http://monitor")
		host, err := resolver.Resolve(context.Background(), "chain-1")
		require.NoError(t, err)
		assert.Equal(t, "http://monitor", host)
	})
}
