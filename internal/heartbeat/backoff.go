// Package heartbeat implements an optional per-neighbor liveness check: a
// HEARTBEAT is sent to each TWO_WAY neighbor on an interval, retried with
// backoff on failure, and the neighbor is declared dead after repeated
// failures.
package heartbeat

import "time"

// backoffStrategy is an exponential backoff with a cap, used here to space
// out heartbeat retries against an unresponsive neighbor.
type backoffStrategy struct {
	initialDuration time.Duration
	factor          float32
	durationCap     time.Duration

	duration time.Duration
}

func newBackoff(base time.Duration, factor float32, cap time.Duration) *backoffStrategy {
	return &backoffStrategy{initialDuration: base, factor: factor, durationCap: cap}
}

func (s *backoffStrategy) backoff() {
	s.duration = s.initialDuration + time.Duration(float32(s.duration)*s.factor)
	if s.duration > s.durationCap {
		s.duration = s.durationCap
	}
}

func (s *backoffStrategy) after() <-chan time.Time {
	return time.After(s.duration)
}

func (s *backoffStrategy) reset() {
	s.duration = 0
}
