package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProfiler_ReportsOncePerInterval(t *testing.T) {
	start := time.Unix(0, 0)
	p := NewProfiler(start, time.Second)

	for i := 1; i < 30; i++ {
		_, ok := p.Tick(start.Add(time.Duration(i) * 30 * time.Millisecond))
		assert.False(t, ok)
	}

	stats, ok := p.Tick(start.Add(time.Second))
	assert.True(t, ok)
	assert.InDelta(t, 30.0, stats.FPS, 0.001)
	assert.Positive(t, stats.HeapMB)

	_, ok = p.Tick(start.Add(1100 * time.Millisecond))
	assert.False(t, ok)
}

func TestNewProfiler_DefaultInterval(t *testing.T) {
	p := NewProfiler(time.Unix(0, 0), 0)
	assert.Equal(t, time.Second, p.updateInterval)
}
