package profiler

import (
	"testing"
	"time"
)

func TestTickWaitsForInterval(t *testing.T) {
	p := NewProfiler(WithQuiet(true), WithUpdateInterval(time.Hour))
	for range 10 {
		if p.Tick() {
			t.Fatal("Tick reported before the interval elapsed")
		}
	}
	if p.Last() != (Report{}) {
		t.Errorf("Last before any report = %+v", p.Last())
	}
}

func TestTickReportsSamples(t *testing.T) {
	p := NewProfiler(WithQuiet(true), WithUpdateInterval(0))
	p.AddSamples(1920*1080, 1)
	p.AddSamples(1920*1080, 2)
	time.Sleep(time.Millisecond)

	if !p.Tick() {
		t.Fatal("Tick with a zero interval did not report")
	}
	r := p.Last()
	if r.FPS <= 0 || r.SamplesPerSecond <= 0 {
		t.Errorf("report = %+v", r)
	}
	if r.SampleCount != 2 {
		t.Errorf("sample count = %d, want 2", r.SampleCount)
	}
	if r.SysMB <= 0 {
		t.Errorf("sys memory = %v", r.SysMB)
	}

	// Counters reset after a report.
	time.Sleep(time.Millisecond)
	p.Tick()
	if p.Last().SamplesPerSecond != 0 {
		t.Errorf("samples carried over: %v", p.Last().SamplesPerSecond)
	}
}
