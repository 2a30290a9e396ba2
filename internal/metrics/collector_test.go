package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOperation(t *testing.T) {
	c, err := NewCollector(&Config{
		Enabled:   true,
		Port:      8080,
		Path:      "/metrics",
		Namespace: "fusevfs",
	})
	require.NoError(t, err)

	c.RecordOperation("getattr", time.Millisecond, true)
	c.RecordOperation("getattr", time.Millisecond, true)
	c.RecordOperation("readdir", time.Millisecond, false)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.operationCounter.WithLabelValues("getattr")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.operationCounter.WithLabelValues("readdir")))
	assert.Equal(t, float64(0), testutil.ToFloat64(c.errorCounter.WithLabelValues("getattr")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.errorCounter.WithLabelValues("readdir")))
}

func TestDisabledCollectorIsNoop(t *testing.T) {
	c, err := NewCollector(&Config{Enabled: false})
	require.NoError(t, err)

	// Safe to call with no registry behind it.
	c.RecordOperation("getattr", time.Millisecond, true)
	require.NoError(t, c.Start())
}

func TestNilConfigUsesDefaults(t *testing.T) {
	c, err := NewCollector(nil)
	require.NoError(t, err)
	assert.NotNil(t, c.registry)
	assert.Equal(t, "fusevfs", c.config.Namespace)
}
