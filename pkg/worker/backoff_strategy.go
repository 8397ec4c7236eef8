package worker

import (
	"math"
	"math/rand"
	"time"
)

//nolint:gosec
var randFloat = rand.New(rand.NewSource(time.Now().UnixNano())).Float64

// BackoffStrategy returns how long to wait before the given attempt,
// counting from 1.
type BackoffStrategy interface {
	Backoff(attempt int) time.Duration
}

type BackoffFunc func(attempt int) time.Duration

func (f BackoffFunc) Backoff(attempt int) time.Duration { return f(attempt) }

type ConstBackoff struct {
	Delay time.Duration
}

func (c ConstBackoff) Backoff(int) time.Duration { return c.Delay }

// ExponentialBackoff multiplies InitialDelay by Multiplier for every
// attempt after the first, caps it at MaxDelay and adds up to Jitter
// times the delay at random.
type ExponentialBackoff struct {
	Multiplier   float64
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Jitter       float64
}

func (b *ExponentialBackoff) Backoff(attempt int) time.Duration {
	f := float64(b.InitialDelay) * math.Pow(b.Multiplier, float64(attempt-1))
	if b.MaxDelay > 0 && f > float64(b.MaxDelay) {
		f = float64(b.MaxDelay)
	}
	d := time.Duration(math.MaxInt64)
	if f < math.MaxInt64 {
		d = time.Duration(f)
	}
	if b.Jitter > 0 {
		d += time.Duration(randFloat() * b.Jitter * float64(d))
	}
	return d
}

var DefaultExponentialBackoff = &ExponentialBackoff{
	Multiplier:   1.6,
	InitialDelay: time.Second,
	MaxDelay:     5 * time.Minute,
	Jitter:       0.2,
}
