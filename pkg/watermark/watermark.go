// pkg/watermark/watermark.go

// Package watermark decides which lines of a tailed log are new since the
// previous collection cycle.
package watermark

import (
	"context"
	"time"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/detect"
)

// Store persists the newest processed event time per server and log.
type Store interface {
	GetWatermark(ctx context.Context, server, logID string) (time.Time, bool, error)
	SetWatermark(ctx context.Context, server, logID string, ts time.Time) error
}

// Selection is the outcome of comparing a fetched batch to a watermark.
type Selection struct {
	Fresh     []string
	Newest    time.Time
	HasNewest bool
}

// Select returns the lines newer than last. With no previous watermark
// every line is fresh. Lines without a parseable timestamp are always
// fresh so nothing is silently dropped. Newest is the maximum timestamp in
// the whole batch, found by scanning rather than by position.
func Select(lines []string, last *time.Time, now time.Time) Selection {
	var sel Selection
	for _, line := range lines {
		ts, ok := detect.ParseTimestamp(line, now)
		if ok && (!sel.HasNewest || ts.After(sel.Newest)) {
			sel.Newest = ts
			sel.HasNewest = true
		}
		if last == nil || !ok || ts.After(*last) {
			sel.Fresh = append(sel.Fresh, line)
		}
	}
	return sel
}

// Advance returns the watermark to store after a batch. It never moves
// backwards.
func Advance(last *time.Time, newest time.Time) time.Time {
	if last != nil && last.After(newest) {
		return *last
	}
	return newest
}

// Format renders a watermark as stored text.
func Format(ts time.Time) string {
	return ts.Format(time.RFC3339Nano)
}

// Parse reads stored watermark text. Older rows written without a zone are
// read as UTC.
func Parse(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05.999999999", s, time.UTC)
}
