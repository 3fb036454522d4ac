// pkg/detect/classifier.go

package detect

import (
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
)

// Classifier turns raw log lines into alerts. It holds no state between
// calls, so the same input always yields the same alerts.
type Classifier struct {
	detectors []Detector
}

// NewClassifier builds a classifier from an ordered detector list.
func NewClassifier(detectors ...Detector) *Classifier {
	return &Classifier{detectors: detectors}
}

func DefaultClassifier() *Classifier {
	return NewClassifier(DefaultDetectors()...)
}

// Detect classifies lines in the order received. Each line yields at most
// one alert. Lines without a parseable timestamp are stamped with now.
func (c *Classifier) Detect(server, source string, lines []string, now time.Time) []domain.Alert {
	var out []domain.Alert
	for _, line := range lines {
		if a, ok := c.classify(server, source, line, now); ok {
			out = append(out, a)
		}
	}
	return out
}

func (c *Classifier) classify(server, source, line string, now time.Time) (domain.Alert, bool) {
	for _, d := range c.detectors {
		m, ok := d.Match(line)
		if !ok {
			continue
		}
		ts, ok := ParseTimestamp(line, now)
		if !ok {
			ts = now
		}
		return domain.Alert{
			ServerName: server,
			SourceLog:  source,
			Timestamp:  ts,
			Level:      d.Level,
			Rule:       d.Kind,
			Message:    strings.TrimSpace(line),
			IPAddress:  m.IP,
			Username:   m.Username,
		}, true
	}
	return domain.Alert{}, false
}
