package profiler

import (
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

// Stats is one reporting window of the profiler.
type Stats struct {
	// TPS is the number of ticks per second over the window.
	TPS float64

	// HeapMB is the live heap size in megabytes.
	HeapMB float64

	// AllocRateMB is the heap allocation rate in megabytes per second.
	AllocRateMB float64

	// GCCount is the total number of completed GC cycles.
	GCCount uint32

	// LastPauseUs is the most recent GC pause in microseconds.
	LastPauseUs uint64

	// MaxPauseUs is the longest GC pause in the window, in microseconds.
	MaxPauseUs uint64

	// SysMB is the memory obtained from the OS in megabytes.
	SysMB float64
}

// Profiler tracks tick rate and memory statistics for performance monitoring.
// Outputs stats as structured log events at a configurable interval.
type Profiler struct {
	logger         zerolog.Logger
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Stats
}

// NewProfiler creates a new Profiler reporting to logger.
// Update interval defaults to 1 second.
//
// Parameters:
//   - logger: the logger receiving the periodic stats events
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(logger zerolog.Logger) *Profiler {
	return &Profiler{
		logger:         logger,
		frameCount:     0,
		lastTime:       time.Now(),
		updateInterval: time.Second,
		memStats:       runtime.MemStats{},
	}
}

// SetInterval changes how often stats are reported. Values <= 0 are ignored.
func (p *Profiler) SetInterval(d time.Duration) {
	if d > 0 {
		p.updateInterval = d
	}
}

// Last returns the most recently reported stats.
func (p *Profiler) Last() Stats {
	return p.last
}

// Tick should be called once per engine tick to track timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: TPS, heap usage, allocation rate, GC count/pause times, total memory.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	s := Stats{
		TPS:     float64(p.frameCount) / elapsed.Seconds(),
		HeapMB:  float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:   float64(p.memStats.Sys) / 1024 / 1024,
		GCCount: p.memStats.NumGC,
	}
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	s.AllocRateMB = float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	if s.GCCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses.
		s.LastPauseUs = p.memStats.PauseNs[(s.GCCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if s.GCCount-startIdx > 256 {
			startIdx = s.GCCount - 256
		}
		for i := startIdx; i < s.GCCount; i++ {
			if pause := p.memStats.PauseNs[i%256] / 1000; pause > s.MaxPauseUs {
				s.MaxPauseUs = pause
			}
		}
	}

	p.logger.Info().
		Float64("tps", s.TPS).
		Float64("heap_mb", s.HeapMB).
		Float64("alloc_rate_mb", s.AllocRateMB).
		Uint32("gc", s.GCCount).
		Uint64("gc_last_us", s.LastPauseUs).
		Uint64("gc_max_us", s.MaxPauseUs).
		Float64("sys_mb", s.SysMB).
		Msg("profiler")

	p.last = s
	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = s.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
