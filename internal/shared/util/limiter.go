package util

import (
	"time"

	"golang.org/x/time/rate"
)

// Limiter caps how often an action may run. Allow never blocks; a
// denied call simply reports false so the caller can drop the action.
type Limiter struct {
	limiter *rate.Limiter
}

// NewPerMinute builds a limiter allowing n actions per minute with a
// burst of one, so back-to-back triggers collapse to a single action.
func NewPerMinute(n float64) *Limiter {
	if n <= 0 {
		n = 1
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(n/60.0), 1)}
}

func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Reserve reports how long until the next action is allowed without
// consuming a slot.
func (l *Limiter) Delay() time.Duration {
	r := l.limiter.Reserve()
	d := r.Delay()
	r.Cancel()
	return d
}
