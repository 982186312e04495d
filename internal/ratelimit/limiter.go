package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"aigate/internal/domain"
)

// Result describes the limiter state observed by one admission check
type Result struct {
	Limit     int
	Window    time.Duration
	Remaining int
	ResetAt   time.Time
}

// Limiter enforces a per-caller sliding-window request cap. Callers are keyed
// by KeyFunc; ExemptFunc short-circuits admission for trusted callers.
type Limiter struct {
	window     time.Duration
	max        int
	bucketSize time.Duration
	now        func() time.Time

	KeyFunc    func(r *http.Request) string
	ExemptFunc func(r *http.Request) bool

	windows map[string]*slidingWindow
	lastUse map[string]time.Time
	mu      sync.Mutex
}

// New creates a limiter allowing max requests per window per caller
func New(window time.Duration, max int) *Limiter {
	bucketSize := window / 60
	if bucketSize < time.Second {
		bucketSize = time.Second
	}
	return &Limiter{
		window:     window,
		max:        max,
		bucketSize: bucketSize,
		now:        time.Now,
		KeyFunc:    CallerKey,
		windows:    make(map[string]*slidingWindow),
		lastUse:    make(map[string]time.Time),
	}
}

// SetClock overrides the time source, for tests
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
	for _, sw := range l.windows {
		sw.now = now
	}
}

// Allow records an admission attempt for key and reports whether it fits
// inside the window. The request is only counted when admitted.
func (l *Limiter) Allow(key string) (bool, Result) {
	sw := l.windowFor(key)

	res := Result{
		Limit:  l.max,
		Window: l.window,
	}

	used := sw.sum()
	if used >= int64(l.max) {
		res.ResetAt = sw.resetAt()
		return false, res
	}

	sw.add()
	res.Remaining = l.max - int(used) - 1
	res.ResetAt = sw.resetAt()
	return true, res
}

// windowFor returns the caller's window, creating it on first use and
// opportunistically pruning windows idle for longer than the limit window.
func (l *Limiter) windowFor(key string) *slidingWindow {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, last := range l.lastUse {
		if now.Sub(last) > l.window {
			delete(l.windows, k)
			delete(l.lastUse, k)
		}
	}

	sw, ok := l.windows[key]
	if !ok {
		sw = newSlidingWindow(l.window, l.bucketSize, l.now)
		l.windows[key] = sw
	}
	l.lastUse[key] = now
	return sw
}

// Middleware rejects over-limit requests with 429 and the structured error
// payload before they reach the handler.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.ExemptFunc != nil && l.ExemptFunc(r) {
			next.ServeHTTP(w, r)
			return
		}

		allowed, res := l.Allow(l.KeyFunc(r))
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

		if !allowed {
			if !res.ResetAt.IsZero() {
				w.Header().Set("Retry-After", strconv.Itoa(int(time.Until(res.ResetAt).Seconds())+1))
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			payload := domain.PayloadFor(&domain.RateLimitError{
				Limit:   res.Limit,
				Window:  res.Window,
				ResetAt: res.ResetAt,
			})
			json.NewEncoder(w).Encode(payload)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// CallerKey identifies the caller by the X-User-ID header, falling back to
// the remote host.
func CallerKey(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// LoopbackExempt reports whether the request originates from the loopback
// interface. Internal health probes and sidecars are not rate limited.
func LoopbackExempt(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
