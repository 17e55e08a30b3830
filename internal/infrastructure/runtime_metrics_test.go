package infrastructure

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRuntimeMetrics tests the end-of-run runtime snapshot
func TestRuntimeMetrics(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	providers, err := InitializeOTel(nil, logger)
	require.NoError(t, err)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(ctx)
	}()

	rt, err := NewRuntimeMetrics(providers.Meter)
	require.NoError(t, err)

	stats := rt.Collect(context.Background(), time.Now().Add(-time.Second))
	assert.Positive(t, stats.Goroutines)
	assert.Positive(t, stats.HeapAlloc)
	assert.Positive(t, stats.MemSystem)
	assert.GreaterOrEqual(t, stats.Uptime, time.Second)

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, providers.WriteMetricsTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "process_goroutines")
	assert.Contains(t, string(data), "process_heap_alloc_bytes")
	assert.Contains(t, string(data), "process_uptime_seconds")
}
