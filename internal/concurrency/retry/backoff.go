// Package retry holds the reconnect delay policy shared by feed transports.
package retry

import "time"

const (
	DefaultInitial    = 800 * time.Millisecond
	DefaultMultiplier = 1.5
	DefaultMax        = 5 * time.Second
)

// Backoff is an exponential delay generator. It is not safe for concurrent
// use; each connection owns its own.
type Backoff struct {
	Initial    time.Duration
	Multiplier float64
	Max        time.Duration

	current time.Duration
}

func NewBackoff(initial time.Duration, multiplier float64, max time.Duration) *Backoff {
	if initial <= 0 {
		initial = DefaultInitial
	}
	if multiplier < 1 {
		multiplier = DefaultMultiplier
	}
	if max < initial {
		max = initial
	}
	return &Backoff{Initial: initial, Multiplier: multiplier, Max: max}
}

// Next returns the delay before the upcoming attempt and advances the policy.
func (b *Backoff) Next() time.Duration {
	if b.current == 0 {
		b.current = b.Initial
	}
	d := b.current
	next := time.Duration(float64(b.current) * b.Multiplier)
	if next > b.Max {
		next = b.Max
	}
	b.current = next
	return d
}

// Peek returns what Next would return without advancing.
func (b *Backoff) Peek() time.Duration {
	if b.current == 0 {
		return b.Initial
	}
	return b.current
}

// Reset starts the sequence over at Initial.
func (b *Backoff) Reset() { b.current = 0 }
