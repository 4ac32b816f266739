// Package pacer spaces out requests to the listing sites.
package pacer

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// Pacer blocks until the next unit of work may start.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Random sleeps a uniformly random duration in [Min, Max] on every Wait.
type Random struct {
	Min time.Duration
	Max time.Duration

	// randFloat returns a value in [0, 1); defaults to math/rand/v2.
	randFloat func() float64
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewRandom returns a Random pacer. Min and Max are swapped if reversed.
func NewRandom(min, max time.Duration) *Random {
	if max < min {
		min, max = max, min
	}
	return &Random{
		Min:       min,
		Max:       max,
		randFloat: rand.Float64,
		sleep:     sleepContext,
	}
}

// Next returns the delay the next Wait will use.
func (r *Random) Next() time.Duration {
	span := r.Max - r.Min
	if span <= 0 {
		return r.Min
	}
	return r.Min + time.Duration(r.randFloat()*float64(span+1))
}

func (r *Random) Wait(ctx context.Context) error {
	return r.sleep(ctx, r.Next())
}

// TokenBucket paces with a token-bucket limiter.
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket allows perSecond waits per second with the given burst.
func NewTokenBucket(perSecond float64, burst int) *TokenBucket {
	if perSecond <= 0 {
		perSecond = 0.5
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (t *TokenBucket) Wait(ctx context.Context) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("token bucket wait: %w", err)
	}
	return nil
}

// Nop never waits.
type Nop struct{}

func (Nop) Wait(ctx context.Context) error { return ctx.Err() }

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
