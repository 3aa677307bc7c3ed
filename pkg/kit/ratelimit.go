package kit

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// IPRateLimiter is a sliding-window limiter keyed by client IP. Only
// state-changing requests are counted; reads always pass.
//
// X-Forwarded-For is honoured only when trustForwarded is set, i.e. when
// every request arrives through a proxy that overwrites the header.
type IPRateLimiter struct {
	mu             sync.Mutex
	limit          int
	window         time.Duration
	trustForwarded bool
	hits           map[string][]time.Time
	lastSweep      time.Time
	now            func() time.Time
}

// NewIPRateLimiter returns nil when limit is not positive; a nil limiter's
// middleware lets everything through.
func NewIPRateLimiter(limit int, window time.Duration, trustForwarded bool) *IPRateLimiter {
	if limit <= 0 {
		return nil
	}
	return &IPRateLimiter{
		limit:          limit,
		window:         window,
		trustForwarded: trustForwarded,
		hits:           make(map[string][]time.Time),
		now:            time.Now,
	}
}

func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		wait, ok := l.allow(clientIP(r, l.trustForwarded), l.now())
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			WriteError(w, r, http.StatusTooManyRequests, "demasiadas solicitudes", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// allow records a hit for ip unless the window is full. When it is, wait is
// how long until the oldest hit leaves the window.
func (l *IPRateLimiter) allow(ip string, now time.Time) (wait time.Duration, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	recent := l.recent(ip, now)
	if len(recent) >= l.limit {
		l.hits[ip] = recent
		return recent[0].Add(l.window).Sub(now), false
	}

	l.hits[ip] = append(recent, now)
	return 0, true
}

func (l *IPRateLimiter) recent(ip string, now time.Time) []time.Time {
	out := l.hits[ip][:0]
	for _, t := range l.hits[ip] {
		if now.Sub(t) < l.window {
			out = append(out, t)
		}
	}
	return out
}

// sweep drops IPs with no hit inside the window, at most once per window.
func (l *IPRateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now

	for ip, ts := range l.hits {
		if len(ts) == 0 || now.Sub(ts[len(ts)-1]) >= l.window {
			delete(l.hits, ip)
		}
	}
}

func (l *IPRateLimiter) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hits)
}

func isSafeMethod(m string) bool {
	return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}

func clientIP(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if ip := firstForwardedFor(r.Header.Get("X-Forwarded-For")); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}

	return r.RemoteAddr
}

func firstForwardedFor(xff string) string {
	first, _, _ := strings.Cut(xff, ",")
	return strings.TrimSpace(first)
}
