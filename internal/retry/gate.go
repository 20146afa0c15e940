// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retry implements the process-wide rate-limit gate shared by every
// LLM call site.
//
// A Gate counts consecutive rate-limit failures across all callers. Any
// successful call, whether observed directly by Do or passively by a
// transport hook, resets the count. When the count reaches MaxAttempts the
// gate gives up and the rate-limit error propagates.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/pdiddy/docdeck/pkg/types"
)

const (
	defaultMaxAttempts  = 5
	defaultDelay        = 10 * time.Second
	defaultSafetyMargin = 2 * time.Second
)

// Sleep waits for d or until ctx is done. Tests replace it to avoid real
// waits.
var Sleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RateLimitError marks a provider response as rate limited. RetryAfter is
// the provider's hint, or zero when it gave none.
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	if e.Err == nil {
		return "rate limited"
	}
	return "rate limited: " + e.Err.Error()
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// IsRateLimit reports whether err carries a RateLimitError.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// Gate is a shared consecutive-failure counter. The zero value uses the
// default limits.
type Gate struct {
	// MaxAttempts is the number of consecutive rate limits tolerated.
	MaxAttempts int

	// DefaultDelay is the wait used when the provider gives no hint.
	DefaultDelay time.Duration

	// Margin is added to every wait.
	Margin time.Duration

	attempts atomic.Int64
}

// Shared is the gate used by production call sites.
var Shared = NewGate(defaultMaxAttempts, defaultDelay)

// NewGate creates a gate with the standard two second margin.
func NewGate(maxAttempts int, delay time.Duration) *Gate {
	return &Gate{MaxAttempts: maxAttempts, DefaultDelay: delay, Margin: defaultSafetyMargin}
}

// Attempts returns the current consecutive rate-limit count.
func (g *Gate) Attempts() int {
	return int(g.attempts.Load())
}

// Reset zeroes the counter.
func (g *Gate) Reset() {
	g.attempts.Store(0)
}

// ObserveSuccess is the passive reset used by transport hooks that see a
// successful provider response outside of Do.
func (g *Gate) ObserveSuccess() {
	g.attempts.Store(0)
}

func (g *Gate) maxAttempts() int64 {
	if g.MaxAttempts <= 0 {
		return defaultMaxAttempts
	}
	return int64(g.MaxAttempts)
}

func (g *Gate) wait(hint time.Duration) time.Duration {
	if hint <= 0 {
		hint = g.DefaultDelay
		if hint <= 0 {
			hint = defaultDelay
		}
	}
	return hint + g.Margin
}

// Do runs op until it succeeds, fails with an error that is not a rate
// limit, or the gate's consecutive rate-limit budget is spent. Exhaustion
// resets the counter and returns the last rate-limit error wrapped with the
// rate_limit kind.
func Do[T any](ctx context.Context, g *Gate, op func(context.Context) (T, error)) (T, error) {
	if g == nil {
		g = Shared
	}
	for {
		v, err := op(ctx)
		if err == nil {
			g.attempts.Store(0)
			return v, nil
		}

		var rl *RateLimitError
		if !errors.As(err, &rl) {
			return v, err
		}

		n := g.attempts.Add(1)
		if n >= g.maxAttempts() {
			g.attempts.Store(0)
			var zero T
			return zero, types.NewError(types.KindRateLimit,
				fmt.Sprintf("giving up after %d consecutive rate limits", n), err)
		}

		d := g.wait(rl.RetryAfter)
		slog.WarnContext(ctx, "rate limited, waiting",
			"delay", d, "attempt", n, "max_attempts", g.maxAttempts())
		if err := Sleep(ctx, d); err != nil {
			var zero T
			return zero, err
		}
	}
}

var delayPatterns = []*regexp.Regexp{
	regexp.MustCompile(`retryDelay["']?\s*:\s*["'](\d+(?:\.\d+)?)s["']`),
	regexp.MustCompile(`(?i)retry in (\d+(?:\.\d+)?)\s*s`),
}

// ParseDelay extracts a provider's retry hint from an error message or
// response body. It recognises `"retryDelay": "13s"`, `'retryDelay': '13s'`
// and "Please retry in 7.5s". It returns zero when no hint is present.
func ParseDelay(text string) time.Duration {
	for _, re := range delayPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		secs, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		return time.Duration(secs * float64(time.Second))
	}
	return 0
}
