package rpc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/goran-ethernal/TokenIndexor/pkg/config"
)

const jitterFraction = 0.25

// transientMarkers are substrings of transport failures that are worth
// another attempt on the same endpoint: timeouts, throttling, proxy errors
// and exhausted client pools.
var transientMarkers = []string{
	"timeout",
	"deadline exceeded",
	"429", "too many requests", "rate limit",
	"502", "503", "504", "bad gateway", "service unavailable", "gateway timeout",
	"connection pool", "no available connection",
}

// retryableError reports whether err is a transport failure worth retrying
// against the same endpoint. Node answers never are.
func retryableError(err error) bool {
	if err == nil || isNodeAnswer(err) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	for _, errno := range []syscall.Errno{syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.EPIPE} {
		if errors.Is(err, errno) {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}

// calculateBackoff returns the wait before attempt. The first attempt runs
// immediately; later ones grow geometrically up to MaxBackoff, ±25% jitter.
func calculateBackoff(attempt int, cfg *config.RetryConfig) time.Duration {
	if attempt <= 1 {
		return 0
	}

	base := float64(cfg.InitialBackoff.Duration) * math.Pow(cfg.BackoffMultiplier, float64(attempt-2))
	base = math.Min(base, float64(cfg.MaxBackoff.Duration))

	jitter := base * jitterFraction * (2*rand.Float64() - 1) //nolint:gosec
	return time.Duration(math.Max(0, base+jitter))
}

// retryWithBackoff runs fn until it succeeds, fails with a non-retryable
// error, or MaxAttempts is reached. A nil cfg runs fn once.
func retryWithBackoff(ctx context.Context, cfg *config.RetryConfig, method string, fn func() error) error {
	if cfg == nil {
		return fn()
	}

	var (
		err   error
		start = time.Now()
	)

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if wait := calculateBackoff(attempt, cfg); wait > 0 {
			RPCRetryInc(method)

			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%s: cancelled before attempt %d/%d: %w", method, attempt, cfg.MaxAttempts, ctx.Err())
			}
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: cancelled before attempt %d/%d: %w", method, attempt, cfg.MaxAttempts, ctxErr)
		}

		if err = fn(); err == nil {
			return nil
		}

		if !retryableError(err) {
			return fmt.Errorf("%s: attempt %d/%d: %w", method, attempt, cfg.MaxAttempts, err)
		}
	}

	return fmt.Errorf("%s: %d attempts failed in %v: %w", method, cfg.MaxAttempts, time.Since(start), err)
}
