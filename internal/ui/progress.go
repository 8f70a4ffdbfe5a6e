package ui

import (
	"sync"
	"time"
)

// ProgressTracker accumulates progress events into display state. It is
// safe for concurrent use.
type ProgressTracker struct {
	mu          sync.Mutex
	stage       Stage
	percent     float64
	processed   int
	skipped     int
	bytes       int64
	currentFile string
	start       time.Time
	errors      []ErrorEvent
	warnings    []ErrorEvent

	lastETA time.Duration

	// Throughput sampling.
	sampleAt        time.Time
	sampleProcessed int
	speed           float64
	avgSpeed        float64
	peakSpeed       float64
	samples         int
	spark           *Sparkline

	now func() time.Time
}

// SpeedStats is documents per second.
type SpeedStats struct {
	Current float64
	Avg     float64
	Peak    float64
}

// ProgressStats is a snapshot of a ProgressTracker.
type ProgressStats struct {
	Stage Stage
	// Percent is in [0,100].
	Percent     float64
	Processed   int
	Skipped     int
	Bytes       int64
	ETA         time.Duration
	Elapsed     time.Duration
	CurrentFile string
	ErrorCount  int
	WarnCount   int
	Speed       SpeedStats
}

// sampleInterval is the minimum spacing of throughput samples.
const sampleInterval = 500 * time.Millisecond

// etaSmoothing is the weight of a fresh ETA estimate against the
// previous one.
const etaSmoothing = 0.3

// NewProgressTracker creates a tracker in the resolving stage.
func NewProgressTracker() *ProgressTracker {
	return newProgressTracker(time.Now)
}

func newProgressTracker(now func() time.Time) *ProgressTracker {
	t := now()
	return &ProgressTracker{
		stage:    StageResolving,
		start:    t,
		sampleAt: t,
		spark:    NewSparkline(60),
		now:      now,
	}
}

// Apply folds a progress event into the tracker. Percent never moves
// backwards.
func (p *ProgressTracker) Apply(event ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if event.Stage > p.stage {
		p.stage = event.Stage
	}
	p.percent = min(max(p.percent, event.Percent), 100)

	if event.CurrentFile != "" {
		p.currentFile = event.CurrentFile
		p.processed++
		p.bytes += event.Bytes
		if event.Skipped {
			p.skipped++
		}
	}

	p.sample()
}

// sample updates throughput figures. Caller holds mu.
func (p *ProgressTracker) sample() {
	now := p.now()
	elapsed := now.Sub(p.sampleAt)
	if elapsed < sampleInterval {
		return
	}

	speed := float64(p.processed-p.sampleProcessed) / elapsed.Seconds()
	p.speed = speed
	p.samples++
	if p.samples == 1 {
		p.avgSpeed = speed
	} else {
		p.avgSpeed = 0.2*speed + 0.8*p.avgSpeed
	}
	p.peakSpeed = max(p.peakSpeed, speed)
	p.spark.Add(speed)

	p.sampleAt = now
	p.sampleProcessed = p.processed
}

// AddError records an error or warning.
func (p *ProgressTracker) AddError(event ErrorEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if event.IsWarn {
		p.warnings = append(p.warnings, event)
	} else {
		p.errors = append(p.errors, event)
	}
}

// Finish moves the tracker to the complete stage.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stage = StageComplete
}

// Stats returns a snapshot.
func (p *ProgressTracker) Stats() ProgressStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return ProgressStats{
		Stage:       p.stage,
		Percent:     p.percent,
		Processed:   p.processed,
		Skipped:     p.skipped,
		Bytes:       p.bytes,
		ETA:         p.eta(),
		Elapsed:     p.now().Sub(p.start),
		CurrentFile: p.currentFile,
		ErrorCount:  len(p.errors),
		WarnCount:   len(p.warnings),
		Speed:       SpeedStats{Current: p.speed, Avg: p.avgSpeed, Peak: p.peakSpeed},
	}
}

// eta extrapolates remaining time from the percentage, smoothed against
// the previous estimate. Caller holds mu.
func (p *ProgressTracker) eta() time.Duration {
	if p.percent <= 0 || p.percent >= 100 {
		return 0
	}

	elapsed := p.now().Sub(p.start)
	raw := time.Duration(float64(elapsed)/(p.percent/100)) - elapsed
	if raw < 0 {
		return 0
	}
	if p.lastETA == 0 {
		p.lastETA = raw
		return raw
	}

	p.lastETA = time.Duration(etaSmoothing*float64(raw) + (1-etaSmoothing)*float64(p.lastETA))
	return p.lastETA
}

// Errors returns the recorded errors.
func (p *ProgressTracker) Errors() []ErrorEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ErrorEvent(nil), p.errors...)
}

// Warnings returns the recorded warnings.
func (p *ProgressTracker) Warnings() []ErrorEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ErrorEvent(nil), p.warnings...)
}

// Sparkline renders recent throughput at width.
func (p *ProgressTracker) Sparkline(width int) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.spark.Render(width)
}
