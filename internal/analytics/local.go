package analytics

import (
	"net/netip"
	"strings"
)

// LocalCity is the pseudo-city recorded for visits from local addresses.
const LocalCity = "local"

// IsLocalIP reports whether ip is private, loopback, link-local or
// unspecified. Unparsable addresses count as local.
func IsLocalIP(ip string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return true
	}
	addr = addr.Unmap()
	return addr.IsPrivate() ||
		addr.IsLoopback() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsUnspecified()
}
