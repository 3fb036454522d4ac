// pkg/vigil_io/context.go

package vigil_io

import (
	"context"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/telemetry"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_err"
	cerr "github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// RuntimeContext carries the per-command context, logger and span.
type RuntimeContext struct {
	Ctx        context.Context
	Log        *zap.Logger
	Timestamp  time.Time
	Span       trace.Span
	Command    string
	Attributes map[string]string
}

// NewContext starts a span for the command and scopes a logger to it.
func NewContext(parent context.Context, cmdName string) *RuntimeContext {
	ctx, span := telemetry.Start(parent, cmdName)
	logger := zap.L().With(
		zap.String("command", cmdName),
		zap.String("trace_id", span.SpanContext().TraceID().String()),
	)

	return &RuntimeContext{
		Ctx:        ctx,
		Log:        logger,
		Timestamp:  time.Now(),
		Span:       span,
		Command:    cmdName,
		Attributes: make(map[string]string),
	}
}

// HandlePanic recovers panics, logs them, and converts to an error.
func (rc *RuntimeContext) HandlePanic(errPtr *error) {
	if r := recover(); r != nil {
		*errPtr = cerr.AssertionFailedf("panic: %v", r)
		rc.Log.Error("panic recovered", zap.Any("panic", r))
	}
}

// End logs the outcome and closes the command span.
func (rc *RuntimeContext) End(errPtr *error) {
	defer rc.Span.End()

	duration := time.Since(rc.Timestamp)
	var err error
	if errPtr != nil {
		err = *errPtr
	}

	switch {
	case err == nil:
		rc.Log.Debug("Command completed", zap.Duration("duration", duration))
	case vigil_err.IsExpectedUserError(err):
		rc.Log.Warn("Command finished with user error", zap.Duration("duration", duration), zap.Error(err))
	default:
		rc.Log.Error("Command failed", zap.Duration("duration", duration), zap.Error(err))
	}

	rc.Span.SetAttributes(
		attribute.Bool("success", err == nil),
		attribute.Int64("duration_ms", duration.Milliseconds()),
		attribute.String("os", runtime.GOOS),
		attribute.String("args", strings.Join(os.Args[1:], " ")),
		attribute.String("version", Version),
		attribute.String("error_type", classifyError(err)),
	)
	for k, v := range rc.Attributes {
		rc.Span.SetAttributes(attribute.String(k, v))
	}
}

func classifyError(err error) string {
	if err == nil {
		return ""
	}
	if vigil_err.IsExpectedUserError(err) {
		return "user"
	}
	return vigil_err.CategoryOf(err).String()
}
