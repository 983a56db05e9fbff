package dbcapabilities

import (
	"net"
	"strings"
)

// NormalizeHost converts localhost variants to a canonical form.
// It converts "localhost", "127.0.0.1", and "::1" to "localhost".
// All other hosts remain unchanged (no DNS resolution is performed).
// The provider registry uses this when deriving instance cache keys so
// that equivalent loopback spellings collide onto one cached connection.
func NormalizeHost(host string) string {
	host = strings.TrimSpace(host)
	host = strings.ToLower(host)

	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return "localhost"
	}

	// Other loopback addresses in 127.0.0.0/8 range.
	ip := net.ParseIP(host)
	if ip != nil && ip.IsLoopback() {
		return "localhost"
	}

	return host
}
