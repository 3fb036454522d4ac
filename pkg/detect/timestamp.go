// pkg/detect/timestamp.go

package detect

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	isoPrefix = regexp.MustCompile(
		`^(\d{4}-\d{2}-\d{2})[ T](\d{2}:\d{2}:\d{2})(?:[,.](\d{1,9}))?(Z|[+-]\d{2}:?\d{2})?(?:\s|$)`)
	syslogPrefix = regexp.MustCompile(
		`^([A-Za-z]{3})\s+(\d{1,2})\s+(\d{2}:\d{2}:\d{2})\s+\S+\s+`)
)

var months = map[string]time.Month{
	"Jan": time.January, "Feb": time.February, "Mar": time.March,
	"Apr": time.April, "May": time.May, "Jun": time.June,
	"Jul": time.July, "Aug": time.August, "Sep": time.September,
	"Oct": time.October, "Nov": time.November, "Dec": time.December,
}

// ParseTimestamp extracts the event time from the start of a log line.
// ISO-8601 prefixes win over syslog prefixes. Syslog lines carry no year,
// so the year of now is assumed and then moved by one when the result
// would sit more than six months away from now. Zone-less values are read
// in now's location.
func ParseTimestamp(line string, now time.Time) (time.Time, bool) {
	if m := isoPrefix.FindStringSubmatch(line); m != nil {
		return parseISO(m, now.Location())
	}
	if m := syslogPrefix.FindStringSubmatch(line); m != nil {
		return parseSyslog(m, now)
	}
	return time.Time{}, false
}

func parseISO(m []string, loc *time.Location) (time.Time, bool) {
	if zone := m[4]; zone != "" {
		loc = parseZone(zone)
		if loc == nil {
			return time.Time{}, false
		}
	}
	t, err := time.ParseInLocation("2006-01-02 15:04:05", m[1]+" "+m[2], loc)
	if err != nil {
		return time.Time{}, false
	}
	if frac := m[3]; frac != "" {
		// ",123" and ".123" are both fractions of a second
		padded := (frac + "000000000")[:9]
		ns, err := strconv.Atoi(padded)
		if err != nil {
			return time.Time{}, false
		}
		t = t.Add(time.Duration(ns))
	}
	return t, true
}

func parseZone(zone string) *time.Location {
	if zone == "Z" {
		return time.UTC
	}
	sign := 1
	if zone[0] == '-' {
		sign = -1
	}
	digits := strings.ReplaceAll(zone[1:], ":", "")
	if len(digits) != 4 {
		return nil
	}
	hh, err1 := strconv.Atoi(digits[:2])
	mm, err2 := strconv.Atoi(digits[2:])
	if err1 != nil || err2 != nil || hh > 23 || mm > 59 {
		return nil
	}
	return time.FixedZone(zone, sign*(hh*3600+mm*60))
}

func parseSyslog(m []string, now time.Time) (time.Time, bool) {
	month, ok := months[m[1]]
	if !ok {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(m[2])
	if err != nil {
		return time.Time{}, false
	}
	clock, err := time.Parse("15:04:05", m[3])
	if err != nil {
		return time.Time{}, false
	}

	build := func(year int) (time.Time, bool) {
		t := time.Date(year, month, day, clock.Hour(), clock.Minute(), clock.Second(), 0, now.Location())
		// time.Date normalises Feb 30 into March
		if t.Month() != month || t.Day() != day {
			return time.Time{}, false
		}
		return t, true
	}

	t, ok := build(now.Year())
	if !ok {
		// Feb 29 may only exist in the neighbouring year
		for _, y := range []int{now.Year() - 1, now.Year() + 1} {
			if t, ok = build(y); ok && withinHalfYear(t, now) {
				return t, true
			}
		}
		return time.Time{}, false
	}
	switch {
	case t.After(now.AddDate(0, 6, 0)):
		return build(now.Year() - 1)
	case t.Before(now.AddDate(0, -6, 0)):
		return build(now.Year() + 1)
	}
	return t, true
}

func withinHalfYear(t, now time.Time) bool {
	return !t.After(now.AddDate(0, 6, 0)) && !t.Before(now.AddDate(0, -6, 0))
}
