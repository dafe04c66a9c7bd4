package logging

import (
	"sync"
	"time"
)

// ProgressSampler rate-limits progress log lines. Render output can emit
// dozens of updates per second; logging each one drowns the log file. A
// sample is taken when enough time has passed or the percent moved far
// enough, and always at terminal values.
type ProgressSampler struct {
	mu          sync.Mutex
	minInterval time.Duration
	minDelta    float64
	lastTime    time.Time
	lastPercent float64
	started     bool
	now         func() time.Time
}

// NewProgressSampler builds a sampler. Non-positive arguments fall back to
// 2s / 5 percentage points.
func NewProgressSampler(minInterval time.Duration, minDelta float64) *ProgressSampler {
	if minInterval <= 0 {
		minInterval = 2 * time.Second
	}
	if minDelta <= 0 {
		minDelta = 5
	}
	return &ProgressSampler{
		minInterval: minInterval,
		minDelta:    minDelta,
		now:         time.Now,
	}
}

// ShouldLog reports whether this progress value is worth a log line.
func (s *ProgressSampler) ShouldLog(percent float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	if !s.started {
		s.started = true
		s.lastTime = now
		s.lastPercent = percent
		return true
	}

	// Terminal values always log so the file records completion.
	if percent >= 100 {
		s.lastTime = now
		s.lastPercent = percent
		return true
	}

	if now.Sub(s.lastTime) >= s.minInterval || percent-s.lastPercent >= s.minDelta {
		s.lastTime = now
		s.lastPercent = percent
		return true
	}

	return false
}

// Reset clears state so the next update logs unconditionally.
func (s *ProgressSampler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	s.lastPercent = 0
	s.lastTime = time.Time{}
}
