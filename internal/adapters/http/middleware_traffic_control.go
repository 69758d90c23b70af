package httpadapter

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

func rateLimitMiddleware(next http.Handler, rps float64, burst int) http.Handler {
	if rps <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// backpressureMiddleware caps concurrent in-flight requests. A request that
// cannot acquire a slot within acquireWait gets a 503 instead of queueing
// behind slow retrieval calls.
func backpressureMiddleware(next http.Handler, maxInFlight int, acquireWait time.Duration) http.Handler {
	if maxInFlight <= 0 {
		return next
	}
	if acquireWait <= 0 {
		acquireWait = 50 * time.Millisecond
	}
	sem := semaphore.NewWeighted(int64(maxInFlight))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), acquireWait)
		defer cancel()

		if err := sem.Acquire(ctx, 1); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "server overloaded, try again later"})
			return
		}
		defer sem.Release(1)

		next.ServeHTTP(w, r)
	})
}
