package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// MinRequestInterval is the default minimum spacing between outbound
// requests, a safe ceiling of roughly 3 requests per second.
const MinRequestInterval = time.Second / 3

// RateLimiterOpts configures a [RateLimiter].
type RateLimiterOpts struct {
	BaseDelay   time.Duration // base for exponential backoff (default 1s)
	MaxDelay    time.Duration // backoff ceiling (default 60s)
	MaxRetries  int           // retry attempts beyond the first (default 5)
	Jitter      bool          // perturb delays by up to ±10%
	MinInterval time.Duration // request spacing; 0 = default, negative = disabled
	Logger      *log.Logger

	// Sleep replaces the blocking wait, for tests. Defaults to a
	// context-aware timer sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// RateLimiter throttles and retries remote calls. Every Spotify request the
// application makes goes through a single shared instance, so one playlist
// operation cannot starve or outrun another.
//
// Throttle state lives in an internal [rate.Limiter], which is safe for
// concurrent use; the RateLimiter itself holds no other mutable state.
type RateLimiter struct {
	limiter    *rate.Limiter
	baseDelay  time.Duration
	maxDelay   time.Duration
	maxRetries int
	jitter     bool
	logger     *log.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewRateLimiter creates a RateLimiter with the given options, filling in
// defaults for zero values.
func NewRateLimiter(opts RateLimiterOpts) *RateLimiter {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 60 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}

	var limiter *rate.Limiter
	if opts.MinInterval >= 0 {
		interval := opts.MinInterval
		if interval == 0 {
			interval = MinRequestInterval
		}
		limiter = rate.NewLimiter(rate.Every(interval), 1)
	}

	return &RateLimiter{
		limiter:    limiter,
		baseDelay:  opts.BaseDelay,
		maxDelay:   opts.MaxDelay,
		maxRetries: opts.MaxRetries,
		jitter:     opts.Jitter,
		logger:     opts.Logger,
		sleep:      opts.Sleep,
	}
}

// Do executes fn with request throttling and retry logic.
//
// Retryable failures (429 and 5xx [APIError] values) are retried up to
// MaxRetries times with exponential backoff, honoring Retry-After hints
// verbatim. Any other error is returned immediately. When the budget is
// spent the last error is wrapped with [ErrRetriesExhausted].
func (r *RateLimiter) Do(ctx context.Context, op string, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if err := r.throttle(ctx); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			if attempt > 0 {
				r.logger.Info("request succeeded after retries", "op", op, "retries", attempt)
			}
			return nil
		}

		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.Retryable() {
			r.logger.Error("request failed", "op", op, "error", err)
			return err
		}

		if attempt == r.maxRetries {
			break
		}

		delay := r.backoffDelay(attempt, apiErr.RetryAfter)
		r.logger.Info("retrying request",
			"op", op,
			"status", apiErr.Status,
			"attempt", attempt+1,
			"max_retries", r.maxRetries,
			"delay", delay,
		)

		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}

	r.logger.Error("request failed after exhausting retries", "op", op, "error", lastErr)
	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, r.maxRetries+1, lastErr)
}

// throttle blocks until the minimum inter-request interval has elapsed.
func (r *RateLimiter) throttle(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}

	res := r.limiter.Reserve()
	if !res.OK() {
		return fmt.Errorf("rate limiter cannot satisfy request")
	}

	if delay := res.Delay(); delay > 0 {
		r.logger.Debug("throttling request", "wait", delay)
		if err := r.sleep(ctx, delay); err != nil {
			res.Cancel()
			return err
		}
	}

	return nil
}

// backoffDelay computes the wait before the next retry. A Retry-After hint
// takes priority over exponential backoff; both are capped at MaxDelay and
// optionally jittered by up to ±10%, floored at zero.
func (r *RateLimiter) backoffDelay(attempt, retryAfter int) time.Duration {
	var delay time.Duration
	if retryAfter > 0 {
		delay = time.Duration(retryAfter) * time.Second
	} else {
		delay = r.baseDelay << uint(attempt)
	}

	if delay > r.maxDelay {
		delay = r.maxDelay
	}

	if r.jitter {
		jitterRange := float64(delay) * 0.1
		delay += time.Duration((rand.Float64()*2 - 1) * jitterRange)
	}

	if delay < 0 {
		delay = 0
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
