package httpx

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/ripple-social/ripple/pkg/slogx"
)

// ErrCodeWindowExceeded is returned whenever any rate limiter rejects a
// request. Never downgraded to a softer status.
const ErrCodeWindowExceeded = "window_exceeded"

// CounterStore is the shared counter backing fixed-window rate limiting.
// Incr must atomically bump the key's counter for the current window and
// report the post-increment count plus when the window resets. Multiple
// gateway instances pointed at the same store agree on counts.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}

// FixedWindowConfig configures the gateway's fixed-window limiter.
type FixedWindowConfig struct {
	// Limit is the maximum number of requests per key per window.
	Limit int64
	// Window is the fixed, non-overlapping counting window.
	Window time.Duration
	// FailOpen controls behaviour when the counter store is unreachable:
	// true allows the request (logged), false rejects it with 429.
	FailOpen bool
	// KeyFn groups requests; defaults to IPKeyExtractor.
	KeyFn KeyExtractor
}

// FixedWindowMiddleware counts requests per key within discrete windows
// against a shared store. It runs before authentication so that
// unauthenticated endpoints (login above all) are covered too.
func FixedWindowMiddleware(store CounterStore, cfg FixedWindowConfig) Middleware {
	keyFn := cfg.KeyFn
	if keyFn == nil {
		keyFn = IPKeyExtractor
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			key := keyFn(r)
			if key == "" {
				log.Warn("rate limit: unable to extract key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			count, resetAt, err := store.Incr(ctx, key, cfg.Window)
			if err != nil {
				if cfg.FailOpen {
					log.Warn("rate limit store unreachable, failing open", "err", err)
					next.ServeHTTP(w, r)
					return
				}
				log.Error("rate limit store unreachable, failing closed", "err", err)
				WriteError(w, http.StatusTooManyRequests, ErrCodeWindowExceeded,
					"rate limiter unavailable")
				return
			}

			remaining := cfg.Limit - count
			if remaining < 0 {
				remaining = 0
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(cfg.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if count > cfg.Limit {
				retryAfter := max(int(time.Until(resetAt).Seconds()), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				log.Warn("rate limit exceeded",
					"key", key,
					"count", count,
					"limit", cfg.Limit,
				)

				WriteError(w, http.StatusTooManyRequests, ErrCodeWindowExceeded,
					"too many requests, try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
