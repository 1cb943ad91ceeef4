package httpmiddleware

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the sliding window rate limiter.
type RateLimitConfig struct {
	// Max is the request budget per window.
	Max int
	// Window is the sliding window duration.
	Window time.Duration
	// KeyFunc derives the limiter key from a request. Nil uses
	// SessionOrIPKey with the storefront session cookie.
	KeyFunc func(*http.Request) string
}

// bucket holds the counts for one key: the window being filled and the
// previous one, weighted by overlap for the sliding estimate.
type bucket struct {
	count     float64
	start     time.Time
	prevCount float64
	prevStart time.Time
}

type rateLimiter struct {
	max     float64
	window  time.Duration
	keyFor  func(*http.Request) string
	mu      sync.Mutex
	buckets map[string]*bucket
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	keyFor := cfg.KeyFunc
	if keyFor == nil {
		keyFor = SessionOrIPKey("storefront_session")
	}
	return &rateLimiter{
		max:     float64(cfg.Max),
		window:  cfg.Window,
		keyFor:  keyFor,
		buckets: make(map[string]*bucket),
	}
}

// allow records one request for key and reports whether it fits the
// budget, along with the remaining count and window reset time.
func (rl *rateLimiter) allow(key string, now time.Time) (remaining int, resetAt time.Time, ok bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[key]
	if !exists {
		b = &bucket{start: now}
		rl.buckets[key] = b
	}

	if elapsed := now.Sub(b.start); elapsed >= rl.window {
		b.prevCount, b.prevStart = b.count, b.start
		b.count = 0
		b.start = now.Truncate(rl.window)
		if now.Sub(b.prevStart) >= 2*rl.window {
			b.prevCount = 0
		}
	}

	// Weight the previous window by how much of it still overlaps the
	// sliding window ending now.
	weight := 1 - now.Sub(b.start).Seconds()/rl.window.Seconds()
	if weight < 0 {
		weight = 0
	}
	used := b.prevCount*weight + b.count
	resetAt = b.start.Add(rl.window)

	if used >= rl.max {
		return 0, resetAt, false
	}
	b.count++

	remaining = int(rl.max - used - 1)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, resetAt, true
}

func (rl *rateLimiter) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, b := range rl.buckets {
		if now.Sub(b.start) >= 2*rl.window {
			delete(rl.buckets, key)
		}
	}
}

func (rl *rateLimiter) startCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(2 * rl.window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				rl.cleanup(now)
			}
		}
	}()
}

// RateLimit returns a middleware enforcing a per-key sliding window
// limit. Exceeding it yields 429 with a JSON body; every response
// carries X-RateLimit-Limit, X-RateLimit-Remaining, and
// X-RateLimit-Reset.
//
// Stale keys are not evicted; use RateLimitWithCleanup for that.
func RateLimit(cfg RateLimitConfig) Middleware {
	return limit(newRateLimiter(cfg))
}

// RateLimitWithCleanup is RateLimit plus a background goroutine that
// drops expired keys every 2x window. It stops when ctx is cancelled.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	rl := newRateLimiter(cfg)
	rl.startCleanup(ctx)
	return limit(rl)
}

func limit(rl *rateLimiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			remaining, resetAt, ok := rl.allow(rl.keyFor(r), time.Now())

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(int(rl.max)))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !ok {
				retryAfter := time.Until(resetAt)
				if retryAfter < 0 {
					retryAfter = 0
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"code":    http.StatusTooManyRequests,
					"message": "rate limit exceeded",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SessionOrIPKey keys requests by the named session cookie when present,
// falling back to the client IP. Browsers in one session share a budget
// even behind a shared NAT address.
func SessionOrIPKey(cookie string) func(*http.Request) string {
	return func(r *http.Request) string {
		if c, err := r.Cookie(cookie); err == nil && c.Value != "" {
			return "s:" + c.Value
		}
		return "ip:" + ClientIP(r)
	}
}

// ClientIP extracts the caller address: X-Forwarded-For first hop, then
// X-Real-IP, then RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
