package remote

import (
	"fmt"
	"net"
	"strings"
)

// ValidateAddress rejects anything that is not a bare IP address or DNS
// name. Addresses come from billing payloads and end up on an ssh command
// line, so option-like or whitespace-bearing values are refused outright.
func ValidateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("empty address")
	}
	if net.ParseIP(addr) != nil {
		return nil
	}
	if strings.HasPrefix(addr, "-") || strings.HasPrefix(addr, ".") || len(addr) > 253 {
		return fmt.Errorf("invalid host %q", addr)
	}
	for _, r := range addr {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
		default:
			return fmt.Errorf("invalid host %q", addr)
		}
	}
	return nil
}
