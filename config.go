// SPDX-License-Identifier: GPL-3.0-or-later

package dpcp

import "time"

// Config holds common configuration for supervisors, callbacks, and
// resolvers.
//
// Pass this to constructor functions to pre-wire dependencies.
// All fields have sensible defaults set by [NewConfig].
type Config struct {
	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewConfig] to [DefaultErrClassifier].
	ErrClassifier ErrClassifier

	// HostResolver maps target service IDs to peer base URLs.
	//
	// Set by [NewConfig] to an empty [*StaticHostResolver].
	HostResolver HostResolver

	// MonitoringHost is the base URL this initiator advertises to peers
	// as the chain monitoring host. Empty advertises none.
	//
	// Set by [NewConfig] to the empty string.
	MonitoringHost string

	// Paths holds the URL path components appended to resolved hosts.
	//
	// Set by [NewConfig] to [DefaultPaths].
	Paths Paths

	// Poster is the HTTP POST primitive.
	//
	// Set by [NewConfig] to a default [*HTTPPoster] with discarded logs.
	Poster Poster

	// TimeNow returns the current time.
	//
	// Set by [NewConfig] to [time.Now].
	TimeNow func() time.Time
}

// NewConfig creates a [*Config] with sensible defaults.
func NewConfig() *Config {
	return &Config{
		ErrClassifier: DefaultErrClassifier,
		HostResolver:  NewStaticHostResolver(nil),
		Paths:         DefaultPaths(),
		Poster:        NewHTTPPoster(DefaultSLogger()),
		TimeNow:       time.Now,
	}
}
