// internal/api/ratelimit.go
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"devtrack/internal/auth"
)

// Fixed rate-limit windows.
const (
	generalLimit  = 100
	generalWindow = 15 * time.Minute

	authLimit  = 5
	authWindow = 15 * time.Minute

	analyzeLimit  = 10
	analyzeWindow = time.Hour

	logCreateLimit  = 30
	logCreateWindow = time.Minute
)

// keyByUserOrIP keys authenticated traffic by user and everything else by IP.
func keyByUserOrIP(r *http.Request) (string, error) {
	if id, ok := auth.UserIDFromContext(r.Context()); ok {
		return id.String(), nil
	}
	return httprate.KeyByIP(r)
}

func rateLimiter(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(keyByUserOrIP),
		httprate.WithLimitHandler(limitExceeded),
	)
}

func limitExceeded(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, http.StatusTooManyRequests, envelope{
		Success: false,
		Error:   "Too many requests, slow down",
	})
}

// failureLimiter is a fixed-window limiter that only counts failed attempts,
// used on the credential endpoints so legitimate logins are never throttled
// by their own successes. httprate counts every request, hence the bespoke
// counter.
type failureLimiter struct {
	mu        sync.Mutex
	counts    map[string]*failureWindow
	limit     int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type failureWindow struct {
	start time.Time
	count int
}

func newFailureLimiter(limit int, window time.Duration) *failureLimiter {
	return &failureLimiter{
		counts: make(map[string]*failureWindow),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Handler rejects callers whose failure count filled the current window and
// records any non-2xx outcome of the wrapped handler.
func (l *failureLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, err := httprate.KeyByIP(r)
		if err != nil {
			key = r.RemoteAddr
		}

		if l.exceeded(key) {
			limitExceeded(w, r)
			return
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		if ww.Status() >= 400 {
			l.record(key)
		}
	})
}

func (l *failureLimiter) exceeded(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	fw, ok := l.counts[key]
	if !ok {
		return false
	}
	if l.now().Sub(fw.start) > l.window {
		delete(l.counts, key)
		return false
	}
	return fw.count >= l.limit
}

func (l *failureLimiter) record(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.sweep(now)
	fw, ok := l.counts[key]
	if !ok || now.Sub(fw.start) > l.window {
		l.counts[key] = &failureWindow{start: now, count: 1}
		return
	}
	fw.count++
}

// sweep evicts every expired window, at most once per window length, so the
// map never accumulates one entry per client forever. Caller holds the lock.
func (l *failureLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for key, fw := range l.counts {
		if now.Sub(fw.start) > l.window {
			delete(l.counts, key)
		}
	}
}
