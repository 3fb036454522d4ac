package watermark

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func TestSelectWithoutWatermark(t *testing.T) {
	lines := []string{
		"Jan 15 10:00:00 web1 sshd[1]: a",
		"Jan 15 09:00:00 web1 sshd[1]: b",
		"no timestamp here",
	}
	sel := Select(lines, nil, now)
	assert.Equal(t, lines, sel.Fresh)
	require.True(t, sel.HasNewest)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), sel.Newest)
}

func TestSelectAgainstWatermark(t *testing.T) {
	last := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	lines := []string{
		"Jan 15 09:59:59 web1 sshd[1]: older",
		"Jan 15 10:00:00 web1 sshd[1]: equal",
		"Jan 15 10:00:01 web1 sshd[1]: newer",
		"undated line",
	}
	sel := Select(lines, &last, now)
	assert.Equal(t, []string{"Jan 15 10:00:01 web1 sshd[1]: newer", "undated line"}, sel.Fresh)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 0, 1, 0, time.UTC), sel.Newest)
}

func TestSelectEmptyBatch(t *testing.T) {
	sel := Select(nil, nil, now)
	assert.Empty(t, sel.Fresh)
	assert.False(t, sel.HasNewest)
}

func TestSameBatchTwiceIsMonotonic(t *testing.T) {
	lines := []string{
		"Jan 15 10:00:00 web1 sshd[1]: a",
		"Jan 15 10:05:00 web1 sshd[1]: b",
	}
	first := Select(lines, nil, now)
	require.True(t, first.HasNewest)
	wm := Advance(nil, first.Newest)

	second := Select(lines, &wm, now)
	assert.Empty(t, second.Fresh)
	assert.Equal(t, wm, Advance(&wm, second.Newest))
}

func TestAdvanceNeverMovesBack(t *testing.T) {
	last := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	older := last.Add(-time.Hour)
	assert.Equal(t, last, Advance(&last, older))
	assert.Equal(t, last.Add(time.Minute), Advance(&last, last.Add(time.Minute)))
}

func TestFormatParseRoundTrip(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 45, 123_000_000, time.UTC)
	got, err := Parse(Format(ts))
	require.NoError(t, err)
	assert.True(t, ts.Equal(got))

	naive, err := Parse("2024-01-15T10:30:45.123")
	require.NoError(t, err)
	assert.True(t, ts.Equal(naive))
}
