package worker //nolint:testpackage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConstBackoff(t *testing.T) {
	b := ConstBackoff{Delay: 350 * time.Millisecond}
	for _, attempt := range []int{1, 2, 10} {
		assert.Equal(t, 350*time.Millisecond, b.Backoff(attempt))
	}
}

func TestExponentialBackoff(t *testing.T) {
	randFloat = func() float64 { return 0.5 }

	testCases := []struct {
		Description string
		Backoff     *ExponentialBackoff
		Attempt     int
		Expected    time.Duration
	}{
		{
			Description: "first attempt waits the initial delay",
			Backoff:     &ExponentialBackoff{Multiplier: 2, InitialDelay: 4 * time.Second, MaxDelay: 5 * time.Second},
			Attempt:     1,
			Expected:    4 * time.Second,
		},
		{
			Description: "delay grows by the multiplier",
			Backoff:     &ExponentialBackoff{Multiplier: 2, InitialDelay: 4 * time.Second},
			Attempt:     3,
			Expected:    16 * time.Second,
		},
		{
			Description: "delay is capped",
			Backoff:     &ExponentialBackoff{Multiplier: 2, InitialDelay: 4 * time.Second, MaxDelay: 10 * time.Second},
			Attempt:     3,
			Expected:    10 * time.Second,
		},
		{
			Description: "jitter is added after the cap",
			Backoff:     &ExponentialBackoff{Multiplier: 4, InitialDelay: time.Second, MaxDelay: 10 * time.Second, Jitter: 1},
			Attempt:     111,
			Expected:    15 * time.Second,
		},
		{
			Description: "jitter scales with the delay",
			Backoff:     &ExponentialBackoff{Multiplier: 2, InitialDelay: 4 * time.Second, Jitter: 0.4},
			Attempt:     3,
			Expected:    19*time.Second + 200*time.Millisecond,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.Description, func(t *testing.T) {
			assert.Equal(t, tc.Expected, tc.Backoff.Backoff(tc.Attempt))
		})
	}
}
