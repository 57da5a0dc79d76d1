// SPDX-License-Identifier: GPL-3.0-or-later

package dpcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()

	require.NotNil(t, cfg)

	// Poster should be set to *HTTPPoster
	_, ok := cfg.Poster.(*HTTPPoster)
	assert.True(t, ok, "Poster should be *HTTPPoster")

	// HostResolver should be set to an empty *StaticHostResolver
	_, ok = cfg.HostResolver.(*StaticHostResolver)
	assert.True(t, ok, "HostResolver should be *StaticHostResolver")
	_, found := cfg.HostResolver.Resolve("anything", nil)
	assert.False(t, found)

	// ErrClassifier should use errclass by default
	assert.Equal(t, "", cfg.ErrClassifier.Classify(nil))
	assert.Equal(t, "ETIMEDOUT", cfg.ErrClassifier.Classify(context.DeadlineExceeded))

	// Paths should carry the defaults
	assert.Equal(t, DefaultPaths(), cfg.Paths)

	// TimeNow should be set and return a valid time
	now := cfg.TimeNow()
	assert.False(t, now.IsZero())
}
