// SPDX-License-Identifier: GPL-3.0-or-later

package dpcp

import (
	"net"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSRVServer runs a DNS server on a random local UDP port publishing a
// single SRV record for svc-a under fabric.test.
func newSRVServer(t *testing.T) (addr string, shutdown func()) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	handler := dns.NewServeMux()
	handler.HandleFunc("fabric.test.", func(w dns.ResponseWriter, req *dns.Msg) {
		resp := new(dns.Msg)
		resp.SetReply(req)
		name := req.Question[0].Name
		if name == "_svc-a._tcp.fabric.test." && req.Question[0].Qtype == dns.TypeSRV {
			resp.Answer = append(resp.Answer, &dns.SRV{
				Hdr: dns.RR_Header{
					Name:   name,
					Rrtype: dns.TypeSRV,
					Class:  dns.ClassINET,
					Ttl:    60,
				},
				Priority: 10,
				Weight:   5,
				Port:     8080,
				Target:   "peer2.fabric.test.",
			})
		}
		w.WriteMsg(resp)
	})
	server := &dns.Server{PacketConn: pc, Handler: handler}
	go server.ActivateAndServe()
	return pc.LocalAddr().String(), func() { server.Shutdown() }
}

func TestSRVHostResolver(t *testing.T) {
	addr, shutdown := newSRVServer(t)
	defer shutdown()

	t.Run("published target resolves to a URL", func(t *testing.T) {
		resolver := NewSRVHostResolver(addr, "fabric.test", DefaultSLogger())
		url, found := resolver.Resolve("svc-a", nil)
		require.True(t, found)
		assert.Equal(t, "http://peer2.fabric.test:8080", url)
	})

	t.Run("empty answer is a miss", func(t *testing.T) {
		logger, records := newCapturingLogger()
		resolver := NewSRVHostResolver(addr, "fabric.test", logger)
		_, found := resolver.Resolve("svc-z", nil)
		assert.False(t, found)
		assert.Equal(t, 1, records.count("srvResolveEmpty"))
	})

	t.Run("custom scheme", func(t *testing.T) {
		resolver := NewSRVHostResolver(addr, "fabric.test", DefaultSLogger())
		resolver.Scheme = "https"
		url, found := resolver.Resolve("svc-a", nil)
		require.True(t, found)
		assert.Equal(t, "https://peer2.fabric.test:8080", url)
	})

	t.Run("exchange failure is a miss", func(t *testing.T) {
		logger, records := newCapturingLogger()
		resolver := NewSRVHostResolver("127.0.0.1:1", "fabric.test", logger)
		_, found := resolver.Resolve("svc-a", nil)
		assert.False(t, found)
		assert.Equal(t, 1, records.count("srvResolveFailed"))
	})
}

func TestTrimFqdn(t *testing.T) {
	assert.Equal(t, "peer2.fabric.test", trimFqdn("peer2.fabric.test."))
	assert.Equal(t, "peer2.fabric.test", trimFqdn("peer2.fabric.test"))
	assert.Equal(t, "", trimFqdn(""))
}
