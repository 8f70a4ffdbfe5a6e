package ui

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestTracker() (*ProgressTracker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	return newProgressTracker(clock.Now), clock
}

func TestProgressTracker_Initial(t *testing.T) {
	tracker, _ := newTestTracker()

	stats := tracker.Stats()

	assert.Equal(t, StageResolving, stats.Stage)
	assert.Zero(t, stats.Percent)
	assert.Zero(t, stats.Processed)
	assert.Zero(t, stats.ETA)
}

func TestProgressTracker_ApplyCountsDocuments(t *testing.T) {
	// Given: a tracker
	tracker, _ := newTestTracker()

	// When: two documents are reported, one already present
	tracker.Apply(ProgressEvent{Stage: StageDownloading, Percent: 25, CurrentFile: "a/x-1.pdf", Bytes: 100})
	tracker.Apply(ProgressEvent{Stage: StageDownloading, Percent: 50, CurrentFile: "a/y-2.pdf", Skipped: true})

	// Then: the counts and the latest file are tracked
	stats := tracker.Stats()
	assert.Equal(t, StageDownloading, stats.Stage)
	assert.Equal(t, 50.0, stats.Percent)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, int64(100), stats.Bytes)
	assert.Equal(t, "a/y-2.pdf", stats.CurrentFile)
}

func TestProgressTracker_PercentNeverDecreasesOrExceeds100(t *testing.T) {
	tracker, _ := newTestTracker()

	tracker.Apply(ProgressEvent{Stage: StageDownloading, Percent: 60})
	tracker.Apply(ProgressEvent{Stage: StageDownloading, Percent: 40})
	assert.Equal(t, 60.0, tracker.Stats().Percent)

	tracker.Apply(ProgressEvent{Stage: StageDownloading, Percent: 130})
	assert.Equal(t, 100.0, tracker.Stats().Percent)
}

func TestProgressTracker_StageNeverRegresses(t *testing.T) {
	tracker, _ := newTestTracker()

	tracker.Apply(ProgressEvent{Stage: StageDownloading})
	tracker.Apply(ProgressEvent{Stage: StageResolving})
	assert.Equal(t, StageDownloading, tracker.Stats().Stage)

	tracker.Finish()
	assert.Equal(t, StageComplete, tracker.Stats().Stage)
}

func TestProgressTracker_SpeedSampling(t *testing.T) {
	// Given: four documents within one second
	tracker, clock := newTestTracker()
	for i := 0; i < 4; i++ {
		tracker.Apply(ProgressEvent{Stage: StageDownloading, CurrentFile: "f.pdf"})
	}
	assert.Zero(t, tracker.Stats().Speed.Current)

	// When: time passes beyond the sample interval
	clock.Advance(time.Second)
	tracker.Apply(ProgressEvent{Stage: StageDownloading, CurrentFile: "g.pdf"})

	// Then: throughput reflects five documents per second
	speed := tracker.Stats().Speed
	assert.InDelta(t, 5.0, speed.Current, 0.001)
	assert.InDelta(t, 5.0, speed.Avg, 0.001)
	assert.InDelta(t, 5.0, speed.Peak, 0.001)
	assert.NotEqual(t, " ", tracker.Sparkline(1))
}

func TestProgressTracker_ETA(t *testing.T) {
	tracker, clock := newTestTracker()
	clock.Advance(10 * time.Second)

	tracker.Apply(ProgressEvent{Stage: StageDownloading, Percent: 50})

	assert.Equal(t, 10*time.Second, tracker.Stats().ETA)
	assert.Equal(t, 10*time.Second, tracker.Stats().Elapsed)

	tracker.Apply(ProgressEvent{Stage: StageDownloading, Percent: 100})
	assert.Zero(t, tracker.Stats().ETA)
}

func TestProgressTracker_Errors(t *testing.T) {
	tracker, _ := newTestTracker()

	tracker.AddError(ErrorEvent{File: "a.pdf", Err: errors.New("boom")})
	tracker.AddError(ErrorEvent{Err: errors.New("slow"), IsWarn: true})

	stats := tracker.Stats()
	assert.Equal(t, 1, stats.ErrorCount)
	assert.Equal(t, 1, stats.WarnCount)
	assert.Len(t, tracker.Errors(), 1)
	assert.Len(t, tracker.Warnings(), 1)
}

func TestProgressTracker_ConcurrentApply(t *testing.T) {
	tracker, _ := newTestTracker()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				tracker.Apply(ProgressEvent{Stage: StageDownloading, CurrentFile: "x.pdf"})
				_ = tracker.Stats()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 400, tracker.Stats().Processed)
}
