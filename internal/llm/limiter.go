package llm

import (
	"time"

	"golang.org/x/time/rate"
)

// Limiter throttles model calls across the whole process. When the hourly
// budget is exhausted the engine degrades to templates instead of blocking.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter allows callsPerHour model calls with a small burst.
func NewLimiter(callsPerHour int) *Limiter {
	if callsPerHour <= 0 {
		callsPerHour = 100
	}
	burst := callsPerHour / 10
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Every(time.Hour/time.Duration(callsPerHour)), burst),
	}
}

// Allow reports whether one more model call fits the budget.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}
