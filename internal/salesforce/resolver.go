package salesforce

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// NewTransport returns the HTTP transport shared by the authenticator and
// the REST client. When dnsServer is non-empty (host:port), hostname
// lookups go through that server instead of the system resolver — some
// container hosts ship resolv.conf entries that cannot resolve
// *.salesforce.com. This stays at the transport layer; nothing above it
// knows DNS exists.
func NewTransport(dnsServer string) *http.Transport {
	t := &http.Transport{
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if dnsServer == "" {
		return t
	}

	resolver := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			d := net.Dialer{Timeout: 5 * time.Second}
			return d.DialContext(ctx, network, dnsServer)
		},
	}
	dialer := &net.Dialer{
		Timeout:  10 * time.Second,
		Resolver: resolver,
	}
	t.DialContext = dialer.DialContext

	log.Info().Str("dns_server", dnsServer).Msg("using DNS override for outbound calls")
	return t
}
