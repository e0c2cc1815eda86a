package fetch

import (
	"math"
	"math/rand/v2"
	"time"
)

// Policy bounds retries for a single job.
type Policy struct {
	Attempts   int           // total attempts, including the first
	Backoff    time.Duration // delay before the second attempt
	MaxBackoff time.Duration
}

// DefaultPolicy returns the retry budget used for tile downloads.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:   3,
		Backoff:    500 * time.Millisecond,
		MaxBackoff: 5 * time.Second,
	}
}

// Delay returns the backoff before retry number n (1-based, so n=1 precedes
// the second attempt): exponential growth capped at MaxBackoff, plus up to
// half again as jitter.
func (p Policy) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}

	d := time.Duration(float64(p.Backoff) * math.Pow(2, float64(n-1)))
	if d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	if d > 0 {
		d += rand.N(d / 2)
	}

	return d
}
