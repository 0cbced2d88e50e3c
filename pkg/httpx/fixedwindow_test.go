package httpx_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/ripple-social/ripple/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func hit(h http.Handler, addr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/feed", nil)
	req.RemoteAddr = addr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestFixedWindowRejectsExactlyAboveLimit(t *testing.T) {
	t.Parallel()

	store := httpx.NewMemoryCounterStore()
	h := httpx.Chain(okHandler(), httpx.FixedWindowMiddleware(store, httpx.FixedWindowConfig{
		Limit:  25,
		Window: 5 * time.Minute,
	}))

	for i := 1; i <= 25; i++ {
		rec := hit(h, "203.0.113.7:1234")
		require.Equal(t, http.StatusOK, rec.Code, "request %d should pass", i)
		require.Equal(t, strconv.Itoa(25-i), rec.Header().Get("X-RateLimit-Remaining"))
	}

	rec := hit(h, "203.0.113.7:1234")
	require.Equal(t, http.StatusTooManyRequests, rec.Code, "26th request must be rejected")
	require.Equal(t, "25", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Contains(t, rec.Body.String(), "window_exceeded")

	// A different key is unaffected.
	rec = hit(h, "198.51.100.9:1234")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestFixedWindowResetsAfterWindowElapses(t *testing.T) {
	t.Parallel()

	store := httpx.NewMemoryCounterStore()
	const window = 100 * time.Millisecond
	h := httpx.Chain(okHandler(), httpx.FixedWindowMiddleware(store, httpx.FixedWindowConfig{
		Limit:  2,
		Window: window,
	}))

	hit(h, "203.0.113.7:1234")
	hit(h, "203.0.113.7:1234")
	rec := hit(h, "203.0.113.7:1234")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Wait out the current window plus a little slack for the boundary.
	time.Sleep(window + 50*time.Millisecond)

	rec = hit(h, "203.0.113.7:1234")
	require.Equal(t, http.StatusOK, rec.Code)
	// Counter restarted at 1: limit 2, one used, one remaining.
	require.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))
}

type failingCounterStore struct{}

func (failingCounterStore) Incr(context.Context, string, time.Duration) (int64, time.Time, error) {
	return 0, time.Time{}, errors.New("store unreachable")
}

func TestFixedWindowStoreFailurePolicy(t *testing.T) {
	t.Parallel()

	t.Run("fail open allows the request", func(t *testing.T) {
		h := httpx.Chain(okHandler(), httpx.FixedWindowMiddleware(failingCounterStore{}, httpx.FixedWindowConfig{
			Limit:    25,
			Window:   time.Minute,
			FailOpen: true,
		}))

		rec := hit(h, "203.0.113.7:1234")
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("fail closed rejects the request", func(t *testing.T) {
		h := httpx.Chain(okHandler(), httpx.FixedWindowMiddleware(failingCounterStore{}, httpx.FixedWindowConfig{
			Limit:    25,
			Window:   time.Minute,
			FailOpen: false,
		}))

		rec := hit(h, "203.0.113.7:1234")
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.Contains(t, rec.Body.String(), "window_exceeded")
	})
}

func TestMemoryCounterStoreConcurrentIncrements(t *testing.T) {
	t.Parallel()

	store := httpx.NewMemoryCounterStore()
	const workers = 50

	results := make(chan int64, workers)
	for range workers {
		go func() {
			count, _, err := store.Incr(context.Background(), "shared-key", time.Minute)
			require.NoError(t, err)
			results <- count
		}()
	}

	seen := make(map[int64]bool, workers)
	for range workers {
		c := <-results
		require.False(t, seen[c], fmt.Sprintf("count %d handed out twice", c))
		seen[c] = true
	}
	require.True(t, seen[int64(workers)], "highest count must equal total increments")
}
