package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-render/common"
)

// Stats is one report of frame rate and memory statistics.
type Stats struct {
	FPS         float64
	HeapMB      float64
	AllocRateMB float64
	SysMB       float64
	GCCount     uint32
	LastPause   time.Duration
	MaxPause    time.Duration
}

// Profiler tracks frame rate and memory statistics for performance monitoring.
// Stats are logged through the common logger at a fixed interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProfiler creates a new Profiler reporting once per interval, starting at now.
// A non-positive interval defaults to 1 second.
//
// Parameters:
//   - now: the time the first interval starts at
//   - interval: the time between reports
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(now time.Time, interval time.Duration) *Profiler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Profiler{
		lastTime:       now,
		updateInterval: interval,
	}
}

// Tick should be called once per frame. When the interval has elapsed it gathers and logs the
// statistics of the interval and starts the next one.
//
// Parameters:
//   - now: the current frame time
//
// Returns:
//   - Stats: the statistics of the interval that just ended
//   - bool: true if an interval ended on this tick
func (p *Profiler) Tick(now time.Time) (Stats, bool) {
	p.frameCount++
	elapsed := now.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return Stats{}, false
	}

	runtime.ReadMemStats(&p.memStats)
	s := Stats{
		FPS:         float64(p.frameCount) / elapsed.Seconds(),
		HeapMB:      float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		SysMB:       float64(p.memStats.Sys) / 1024 / 1024,
		GCCount:     p.memStats.NumGC,
	}

	// PauseNs is a circular buffer of the last 256 pauses
	if gcCount := p.memStats.NumGC; gcCount > 0 {
		s.LastPause = time.Duration(p.memStats.PauseNs[(gcCount-1)%256])
		start := p.lastGCCount
		if gcCount-start > 256 {
			start = gcCount - 256
		}
		for i := start; i < gcCount; i++ {
			s.MaxPause = max(s.MaxPause, time.Duration(p.memStats.PauseNs[i%256]))
		}
	}

	common.Logger().Info("frame stats",
		"fps", s.FPS,
		"heapMB", s.HeapMB,
		"allocRateMB", s.AllocRateMB,
		"gc", s.GCCount,
		"lastPause", s.LastPause,
		"maxPause", s.MaxPause,
		"sysMB", s.SysMB,
	)

	p.frameCount = 0
	p.lastTime = now
	p.lastGCCount = s.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return s, true
}
