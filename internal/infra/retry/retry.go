// Package retry bounds outbound calls with a per-attempt timeout and retries
// connection-class failures with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Policy struct {
	Timeout     time.Duration // per attempt
	MaxRetries  int           // retries after the first attempt
	InitialWait time.Duration
	MaxWait     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{Timeout: 30 * time.Second, MaxRetries: 3, InitialWait: 200 * time.Millisecond, MaxWait: 5 * time.Second}
}

// TransientError marks a failure worth retrying, such as an HTTP 5xx or 429.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports timeouts and connection failures.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var oe *net.OpError
	return errors.As(err, &oe)
}

// Do runs op until it succeeds, returns a non-transient error, the parent ctx
// ends, or the retries are used up.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	_, err := DoValue(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

func DoValue[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	if p.Timeout <= 0 {
		p.Timeout = DefaultPolicy().Timeout
	}
	eb := backoff.NewExponentialBackOff()
	if p.InitialWait > 0 {
		eb.InitialInterval = p.InitialWait
	}
	if p.MaxWait > 0 {
		eb.MaxInterval = p.MaxWait
	}
	eb.MaxElapsedTime = 0
	var b backoff.BackOff = eb
	if p.MaxRetries >= 0 {
		b = backoff.WithMaxRetries(b, uint64(p.MaxRetries))
	}
	b = backoff.WithContext(b, ctx)

	attempts := 0
	var out T
	err := backoff.Retry(func() error {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, p.Timeout)
		defer cancel()
		v, err := op(attemptCtx)
		if err == nil {
			out = v
			return nil
		}
		if ctx.Err() != nil || !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("after %d attempt(s): %w", attempts, err)
	}
	return out, nil
}
