// Package masking reduces client identifiers before they are written to the
// audit trail.
package masking

import (
	"net/netip"
	"strings"
)

const maskToken = "****"

// MaskIP zeroes the host part of an address: the last octet for IPv4 and
// everything past the /48 prefix for IPv6. Unparseable input is masked
// entirely.
func MaskIP(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	addr, err := netip.ParseAddr(trimmed)
	if err != nil {
		return maskToken
	}
	addr = addr.Unmap()

	bits := 48
	if addr.Is4() {
		bits = 24
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return maskToken
	}
	return prefix.Addr().String()
}
