package agent

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultInitialBackoff = 500 * time.Millisecond
	DefaultMaxBackoff     = 8 * time.Second
)

// newReconnectBackoff builds the reconnect delay source. Randomization is
// disabled so the k-th consecutive failure waits exactly
// min(initial * 2^k, max), and MaxElapsedTime is disabled because the agent
// never gives up on its own.
func newReconnectBackoff(initial, max time.Duration) *backoff.ExponentialBackOff {
	if initial <= 0 {
		initial = DefaultInitialBackoff
	}
	if max <= 0 {
		max = DefaultMaxBackoff
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = max
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}
