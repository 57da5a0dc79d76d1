// SPDX-License-Identifier: GPL-3.0-or-later

package dpcp

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/miekg/dns"
)

// SRVHostResolver resolves target service IDs through DNS SRV records.
//
// A target ID "svc-a" in zone "fabric.example.org" is looked up as
// "_svc-a._tcp.fabric.example.org." and the first SRV answer becomes
// "<scheme>://<target-host>:<port>". Lookup failures and empty answers
// resolve to a miss, matching the degrade-gracefully contract of
// [HostResolver].
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Resolve].
type SRVHostResolver struct {
	// Client performs the DNS exchange.
	//
	// Set by [NewSRVHostResolver] to a default [*dns.Client].
	Client *dns.Client

	// Server is the "host:port" address of the DNS server to query.
	//
	// Set by [NewSRVHostResolver] to the user-provided value.
	Server string

	// Zone is the DNS zone the fabric's services are published under.
	//
	// Set by [NewSRVHostResolver] to the user-provided value.
	Zone string

	// Scheme is the URL scheme of resolved hosts.
	//
	// Set by [NewSRVHostResolver] to "http".
	Scheme string

	// Logger is the [SLogger] to use (configurable for testing or custom logging).
	//
	// Set by [NewSRVHostResolver] to the user-provided logger.
	Logger SLogger

	// TimeNow is the function to get the current time (configurable for testing).
	//
	// Set by [NewSRVHostResolver] to [time.Now].
	TimeNow func() time.Time
}

var _ HostResolver = &SRVHostResolver{}

// NewSRVHostResolver returns a new [*SRVHostResolver].
//
// The server argument is the "host:port" of the DNS server to query; the
// zone argument is the DNS zone the fabric's services are published under.
func NewSRVHostResolver(server, zone string, logger SLogger) *SRVHostResolver {
	return &SRVHostResolver{
		Client:  &dns.Client{},
		Server:  server,
		Zone:    zone,
		Scheme:  "http",
		Logger:  logger,
		TimeNow: time.Now,
	}
}

// Resolve implements [HostResolver].
func (r *SRVHostResolver) Resolve(targetID string, meta map[string]any) (string, bool) {
	name := dns.Fqdn(fmt.Sprintf("_%s._tcp.%s", targetID, r.Zone))
	query := new(dns.Msg)
	query.SetQuestion(name, dns.TypeSRV)

	t0 := r.TimeNow()
	resp, _, err := r.Client.Exchange(query, r.Server)
	if err != nil {
		r.Logger.Warn(
			"srvResolveFailed",
			slog.Any("err", err),
			slog.String("name", name),
			slog.String("targetId", targetID),
			slog.Time("t0", t0),
			slog.Time("t", r.TimeNow()),
		)
		return "", false
	}
	for _, answer := range resp.Answer {
		srv, ok := answer.(*dns.SRV)
		if !ok {
			continue
		}
		url := fmt.Sprintf("%s://%s:%d", r.Scheme, trimFqdn(srv.Target), srv.Port)
		r.Logger.Info(
			"srvResolveDone",
			slog.String("name", name),
			slog.String("targetId", targetID),
			slog.String("url", url),
			slog.Time("t0", t0),
			slog.Time("t", r.TimeNow()),
		)
		return url, true
	}
	r.Logger.Warn(
		"srvResolveEmpty",
		slog.String("name", name),
		slog.String("targetId", targetID),
		slog.Time("t0", t0),
		slog.Time("t", r.TimeNow()),
	)
	return "", false
}

// trimFqdn strips the trailing dot of a fully qualified domain name.
func trimFqdn(name string) string {
	if len(name) > 0 && name[len(name)-1] == '.' {
		return name[:len(name)-1]
	}
	return name
}
