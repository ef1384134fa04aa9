package engine

import "time"

// Clock supplies wall-clock readings for execution timing.
//
// Timing is diagnostic only and never affects results. Tests substitute a
// deterministic clock so reported durations are stable.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real time.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// stopwatch measures the span between consecutive laps.
type stopwatch struct {
	clock Clock
	start time.Time
	last  time.Time
}

func startStopwatch(c Clock) *stopwatch {
	now := c.Now()
	return &stopwatch{clock: c, start: now, last: now}
}

// Lap returns microseconds since the previous lap (or start).
func (s *stopwatch) Lap() int64 {
	now := s.clock.Now()
	d := now.Sub(s.last)
	s.last = now
	return d.Microseconds()
}

// Total returns microseconds from start to the most recent lap.
func (s *stopwatch) Total() int64 {
	return s.last.Sub(s.start).Microseconds()
}
