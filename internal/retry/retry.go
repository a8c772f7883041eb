// Package retry executes remote calls under a bounded exponential backoff
// policy. It knows nothing about what the calls do: each call site decides
// whether a failure is worth another attempt by wrapping it with Fatal.
package retry

import (
	"context"
	"errors"
	"time"
)

// Outcome is the classification of a single attempt.
type Outcome int

const (
	// Ok means the attempt succeeded.
	Ok Outcome = iota

	// Retryable means the attempt failed but another attempt may succeed.
	Retryable

	// Fatal means the attempt failed and must not be repeated.
	Fatal
)

func (o Outcome) String() string {
	switch o {
	case Ok:
		return "ok"
	case Retryable:
		return "retryable"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Defaults used when a Policy field is left at its zero value.
const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 10 * time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy bounds the number of attempts and the delay between them.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the delay after the first failed attempt.
	BaseDelay time.Duration

	// MaxDelay caps every delay.
	MaxDelay time.Duration

	// Sleep replaces the real timer; tests use it to avoid waiting.
	Sleep SleepFunc

	// OnRetry is called before each backoff sleep. It may be nil.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultPolicy returns the policy used by remote service calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// Delay returns the wait before the attempt that follows failed attempt i
// (0-indexed): min(BaseDelay * 2^i, MaxDelay).
func (p Policy) Delay(attempt int) time.Duration {
	base, ceiling := p.BaseDelay, p.MaxDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	if ceiling <= 0 {
		ceiling = DefaultMaxDelay
	}
	if attempt < 0 {
		attempt = 0
	}
	d := base
	for i := 0; i < attempt; i++ {
		if d >= ceiling/2 {
			return ceiling
		}
		d *= 2
	}
	if d > ceiling {
		return ceiling
	}
	return d
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return DefaultMaxAttempts
	}
	return p.MaxAttempts
}

// fatalError marks an error as not worth retrying.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// MarkFatal wraps err so that Do returns it without further attempts.
// errors.Is and errors.As still see the wrapped error. A nil err stays nil.
func MarkFatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// Classify reports the outcome of an attempt that returned err. Only errors
// wrapped with MarkFatal are Fatal; a per-request timeout matches
// context.DeadlineExceeded and is still Retryable. Cancellation of the
// caller's context is detected by Do itself.
func Classify(err error) Outcome {
	if err == nil {
		return Ok
	}
	var fe *fatalError
	if errors.As(err, &fe) {
		return Fatal
	}
	return Retryable
}

// Do runs op until it succeeds, returns a fatal error, the attempts are
// exhausted, or ctx is done. The error from the last attempt is returned
// unchanged.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	_, err := DoValue(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	attempts := p.attempts()
	var lastErr error
	for i := 0; i < attempts; i++ {
		v, err := op(ctx)
		switch Classify(err) {
		case Ok:
			return v, nil
		case Fatal:
			return zero, err
		}
		lastErr = err
		if ctx.Err() != nil || i == attempts-1 {
			break
		}

		delay := p.Delay(i)
		if p.OnRetry != nil {
			p.OnRetry(i+1, delay, err)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return zero, lastErr
		}
	}
	return zero, lastErr
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
