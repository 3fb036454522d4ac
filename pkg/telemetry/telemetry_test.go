package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestInitDisabledIsNoop(t *testing.T) {
	shutdown, err := Init("vigil-test", config.TelemetryConfig{Enabled: false})
	require.NoError(t, err)

	_, span := Start(context.Background(), "cycle")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitEnabledWritesSpans(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.jsonl")
	shutdown, err := Init("vigil-test", config.TelemetryConfig{Enabled: true, FilePath: path})
	require.NoError(t, err)

	_, span := Start(context.Background(), "collector.cycle", attribute.String("cycle_id", "c1"))
	span.End()
	require.NoError(t, shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "collector.cycle")
}
