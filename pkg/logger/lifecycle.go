/* pkg/logger/lifecycle.go */

package logger

import (
	"github.com/google/uuid"
)

// GenerateTraceID returns a short id that ties together the log lines of
// one collection cycle.
func GenerateTraceID() string {
	return uuid.New().String()[:8]
}
