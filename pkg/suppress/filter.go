// pkg/suppress/filter.go

package suppress

import (
	"net/netip"
	"strings"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
)

// Reason names why an alert was dropped.
type Reason string

const (
	ReasonIgnoredIP  Reason = "ignored_ip"
	ReasonException  Reason = "exception"
	ReasonMonitoring Reason = "monitoring_noise"
)

// DefaultMonitoringMarkers are substrings of accepted-login lines produced
// by monitoring accounts, including the collector's own sessions.
var DefaultMonitoringMarkers = []string{
	"Accepted publickey for vigil ",
	"Accepted password for vigil ",
	"Accepted publickey for nagios ",
	"Accepted publickey for zabbix ",
	"Accepted publickey for monitoring ",
}

// Filter applies the ignore list, the exception rules and the monitoring
// noise filter, in that order.
type Filter struct {
	ignoredAddrs    map[netip.Addr]struct{}
	ignoredPrefixes []netip.Prefix
	ignoredRaw      map[string]struct{}
	markers         []string
	exceptions      []domain.ExceptionRule
}

// NewFilter builds a filter. Ignore entries may be plain addresses or
// CIDR prefixes; anything else is compared verbatim.
func NewFilter(ignore []string, exceptions []domain.ExceptionRule, extraMarkers []string) *Filter {
	f := &Filter{
		ignoredAddrs: make(map[netip.Addr]struct{}),
		ignoredRaw:   make(map[string]struct{}),
		markers:      append(append([]string{}, DefaultMonitoringMarkers...), extraMarkers...),
		exceptions:   exceptions,
	}
	for _, entry := range ignore {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if p, err := netip.ParsePrefix(entry); err == nil {
			f.ignoredPrefixes = append(f.ignoredPrefixes, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(entry); err == nil {
			f.ignoredAddrs[a] = struct{}{}
			continue
		}
		f.ignoredRaw[entry] = struct{}{}
	}
	return f
}

// Apply returns the surviving alerts and how many were dropped per reason.
func (f *Filter) Apply(alerts []domain.Alert) ([]domain.Alert, map[Reason]int) {
	dropped := make(map[Reason]int)
	kept := make([]domain.Alert, 0, len(alerts))
	for _, a := range alerts {
		switch {
		case f.IgnoredIP(a.IP()):
			dropped[ReasonIgnoredIP]++
		case IsExcepted(a, f.exceptions):
			dropped[ReasonException]++
		case f.isMonitoringNoise(a):
			dropped[ReasonMonitoring]++
		default:
			kept = append(kept, a)
		}
	}
	return kept, dropped
}

// IgnoredIP reports whether ip is on the ignore list.
func (f *Filter) IgnoredIP(ip string) bool {
	if ip == "" {
		return false
	}
	if _, ok := f.ignoredRaw[ip]; ok {
		return true
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	if _, ok := f.ignoredAddrs[addr]; ok {
		return true
	}
	for _, p := range f.ignoredPrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func (f *Filter) isMonitoringNoise(a domain.Alert) bool {
	if a.Rule != domain.RuleSSHDAccepted {
		return false
	}
	if f.IgnoredIP(a.IP()) {
		return true
	}
	for _, m := range f.markers {
		if m != "" && strings.Contains(a.Message, m) {
			return true
		}
	}
	return false
}
