package feed

import (
	"context"
	"math/rand"
	"time"
)

// Backoff is a capped exponential delay with optional jitter.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Jitter time.Duration
}

func DefaultBackoff(max time.Duration) Backoff {
	if max <= 0 {
		max = 30 * time.Second
	}
	return Backoff{
		Base:   time.Second,
		Max:    max,
		Jitter: 250 * time.Millisecond,
	}
}

// Delay returns the wait before the given reconnect attempt, counting from 1.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	wait := b.Max
	if shift := attempt - 1; shift < 32 {
		if w := b.Base << shift; w > 0 && w < b.Max {
			wait = w
		}
	}
	if b.Jitter > 0 {
		wait += time.Duration(rand.Int63n(int64(b.Jitter)))
	}
	return wait
}

func sleepInterrupted(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return true
	case <-timer.C:
		return false
	}
}
