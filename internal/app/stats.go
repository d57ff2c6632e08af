package app

import (
	"math"
	"sync"
	"time"

	"famiplay/internal/audio"
)

// timingWindow keeps the most recent duration samples in a ring
type timingWindow struct {
	buffer []time.Duration
	index  int
	size   int
}

func newTimingWindow(capacity int) *timingWindow {
	return &timingWindow{buffer: make([]time.Duration, capacity)}
}

// add stores d, evicting the oldest sample once full
func (w *timingWindow) add(d time.Duration) {
	w.buffer[w.index] = d
	w.index = (w.index + 1) % len(w.buffer)
	if w.size < len(w.buffer) {
		w.size++
	}
}

// average returns the mean of the stored samples
func (w *timingWindow) average() time.Duration {
	if w.size == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range w.buffer[:w.size] {
		total += d
	}
	return total / time.Duration(w.size)
}

// jitter returns the standard deviation of the stored samples
func (w *timingWindow) jitter() time.Duration {
	if w.size < 2 {
		return 0
	}
	avg := w.average()
	var sum float64
	for _, d := range w.buffer[:w.size] {
		diff := float64(d - avg)
		sum += diff * diff
	}
	return time.Duration(math.Sqrt(sum / float64(w.size)))
}

// frameTimer records how long each stage of the frame loop takes. It is
// written by the loop and read by statistics consumers.
type frameTimer struct {
	mu        sync.Mutex
	step      *timingWindow
	render    *timingWindow
	frame     *timingWindow
	lastFrame time.Time
}

func newFrameTimer() *frameTimer {
	return &frameTimer{
		step:   newTimingWindow(120),
		render: newTimingWindow(120),
		frame:  newTimingWindow(120),
	}
}

func (t *frameTimer) record(step, render time.Duration, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.step.add(step)
	t.render.add(render)
	if !t.lastFrame.IsZero() {
		t.frame.add(now.Sub(t.lastFrame))
	}
	t.lastFrame = now
}

// SessionStats summarizes a run
type SessionStats struct {
	Frames      uint64
	Uptime      time.Duration
	AverageFPS  float64
	CurrentFPS  float64
	StepTime    time.Duration // average engine time per frame
	RenderTime  time.Duration // average blit and present time per frame
	FrameJitter time.Duration
	Audio       audio.MixerStats
}

func (t *frameTimer) fill(s *SessionStats) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s.StepTime = t.step.average()
	s.RenderTime = t.render.average()
	s.FrameJitter = t.frame.jitter()
}
