// pkg/detect/ipv4.go

package detect

import (
	"net/netip"
	"regexp"
	"strings"
)

var dottedRun = regexp.MustCompile(`[0-9.]+`)

// FirstIPv4 returns the first valid dotted-quad address in s. Every octet
// must be in 0-255 and a run with more than four groups such as
// 192.168.1.1.1 is not an address.
func FirstIPv4(s string) (string, bool) {
	for _, run := range dottedRun.FindAllString(s, -1) {
		run = strings.Trim(run, ".")
		if strings.Count(run, ".") != 3 {
			continue
		}
		if addr, err := netip.ParseAddr(run); err == nil && addr.Is4() {
			return run, true
		}
	}
	return "", false
}
