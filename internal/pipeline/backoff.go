package pipeline

import (
	"math/rand"
	"time"
)

// Backoff computes the requeue delay for a retryable failure:
// Base * 2^attempt with equal jitter, capped at Max. The orchestrator only
// records the delay on the job row; waiting it out is the poll loop's job.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// DefaultBackoff is the retry policy used when none is configured.
func DefaultBackoff() Backoff {
	return Backoff{Base: 2 * time.Second, Max: 2 * time.Minute}
}

// Delay returns the backoff before retry of the given attempt (1-indexed).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := b.Base
	for i := 0; i < attempt && d < b.Max; i++ {
		d *= 2
	}
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}
