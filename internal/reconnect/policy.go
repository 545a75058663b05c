package reconnect

import (
	"context"
	"fmt"
	"time"
)

// Policy describes how a connection is re-established after loss.
//
// One policy implementation serves every transport (the push channel
// uses it directly; the TCP session can opt in) instead of each layer
// growing its own ad-hoc retry loop.
type Policy struct {
	// MaxAttempts is the number of reconnection attempts before giving
	// up. 0 disables reconnection entirely.
	MaxAttempts int

	// Delay is the fixed pause between attempts. The upstream dashboard
	// protocol uses a fixed delay, not exponential backoff.
	Delay time.Duration
}

// Run executes reconnection attempts until one succeeds, the attempts
// are exhausted, or the context is cancelled.
//
// attempt receives the 1-based attempt number. When all attempts fail,
// fallback is invoked exactly once (if non-nil) before ErrExhausted is
// returned: degrading to the fallback (typically a polling refresh) is
// the availability guarantee, not an afterthought.
//
// Parameters:
//   - ctx: Cancels the retry loop between attempts
//   - attempt: Performs one reconnection attempt
//   - fallback: Invoked once after the final failed attempt (may be nil)
//
// Returns:
//   - error: nil once an attempt succeeds, ctx.Err() on cancellation,
//     ErrExhausted after the final failure
func (p Policy) Run(ctx context.Context, attempt func(n int) error, fallback func()) error {
	if attempt == nil {
		return fmt.Errorf("%w: attempt func is nil", ErrExhausted)
	}

	var lastErr error
	for n := 1; n <= p.MaxAttempts; n++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := attempt(n); err == nil {
			return nil
		} else {
			lastErr = err
		}

		// No pause after the final attempt.
		if n == p.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Delay):
		}
	}

	if fallback != nil {
		fallback()
	}
	if lastErr != nil {
		return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, p.MaxAttempts, lastErr)
	}
	return fmt.Errorf("%w after %d attempts", ErrExhausted, p.MaxAttempts)
}
