package profiler

import (
	"log"
	"runtime"
	"time"
)

// Report is the set of statistics computed at the end of one profiling interval.
type Report struct {
	FPS float64

	// SamplesPerSecond is the number of per-pixel samples traced per second, in millions.
	SamplesPerSecond float64

	// SampleCount is the accumulated sample count of the image at the end of the interval.
	SampleCount uint32

	HeapMB      float64
	AllocRateMB float64
	SysMB       float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64
}

// Profiler tracks frame rate, trace throughput and memory statistics for performance monitoring.
// Outputs stats to the log at a configurable interval. It is not safe for concurrent use; the
// render loop owns it.
type Profiler struct {
	frameCount     int
	pixelSamples   int64
	sampleCount    uint32
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Report
	quiet          bool
}

// NewProfiler creates a new Profiler.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
		memStats:       runtime.MemStats{},
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// AddSamples records that a frame traced one sample for each of pixels pixels and that the
// accumulated image now holds sampleCount samples.
//
// Parameters:
//   - pixels: the number of pixels traced this frame
//   - sampleCount: the accumulated sample count after the frame
func (p *Profiler) AddSamples(pixels int, sampleCount uint32) {
	p.pixelSamples += int64(pixels)
	p.sampleCount = sampleCount
}

// Last returns the report computed by the most recent logging Tick.
//
// Returns:
//   - Report: the last report, or the zero Report before the first interval elapses
func (p *Profiler) Last() Report {
	return p.last
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, traced samples per second, heap usage, allocation rate, GC count/pause times, total memory.
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
	seconds := max(elapsed.Seconds(), 1e-9)

	runtime.ReadMemStats(&p.memStats)
	r := Report{
		FPS:              float64(p.frameCount) / seconds,
		SamplesPerSecond: float64(p.pixelSamples) / 1e6 / seconds,
		SampleCount:      p.sampleCount,
		// Alloc: live heap, TotalAlloc: cumulative (tracks churn), Sys: obtained from the OS
		HeapMB:      float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:       float64(p.memStats.Sys) / 1024 / 1024,
		AllocRateMB: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / seconds,
		GCCount:     p.memStats.NumGC,
	}

	if r.GCCount > 0 {
		// PauseNs is a circular buffer of last 256 GC pauses
		r.LastPauseUs = p.memStats.PauseNs[(r.GCCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if r.GCCount-startIdx > 256 {
			startIdx = r.GCCount - 256
		}
		for i := startIdx; i < r.GCCount; i++ {
			r.MaxPauseUs = max(r.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	if !p.quiet {
		log.Printf("[Profiler] FPS: %.2f | Samples: %.2f M/s (%d spp) | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
			r.FPS, r.SamplesPerSecond, r.SampleCount, r.HeapMB, r.AllocRateMB, r.GCCount, r.LastPauseUs, r.MaxPauseUs, r.SysMB)
	}

	p.last = r
	p.frameCount = 0
	p.pixelSamples = 0
	p.lastTime = currentTime
	p.lastGCCount = r.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
