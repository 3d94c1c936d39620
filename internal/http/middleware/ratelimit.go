package middleware

import (
	"net/http"
	"sync"
	"time"
)

// visitor holds the remaining request allowance for one client IP.
type visitor struct {
	allowance float64
	lastSeen  time.Time
}

// Throttle rate-limits the public booking API per client IP. Booking
// traffic is anonymous and bursty (a visitor polls availability a few
// times, then posts a booking), so each IP gets an allowance that
// refills at a sustained per-second rate up to a burst ceiling.
type Throttle struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	perSec   float64
	burst    float64
}

// NewThrottle allows perSec sustained requests per second per IP, with
// bursts up to burst.
func NewThrottle(perSec float64, burst int) *Throttle {
	t := &Throttle{
		visitors: make(map[string]*visitor),
		perSec:   perSec,
		burst:    float64(burst),
	}
	// Most booking visitors are one-shot; evict them so the map stays small.
	go t.evictIdle()
	return t
}

// Admit refills ip's allowance for the elapsed time and spends one
// unit. Returns false when the allowance is exhausted.
func (t *Throttle) Admit(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	v, ok := t.visitors[ip]
	if !ok {
		t.visitors[ip] = &visitor{allowance: t.burst - 1, lastSeen: now}
		return true
	}

	v.allowance += now.Sub(v.lastSeen).Seconds() * t.perSec
	if v.allowance > t.burst {
		v.allowance = t.burst
	}
	v.lastSeen = now

	if v.allowance < 1 {
		return false
	}
	v.allowance--
	return true
}

func (t *Throttle) evictIdle() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		t.mu.Lock()
		cutoff := time.Now().Add(-10 * time.Minute)
		for ip, v := range t.visitors {
			if v.lastSeen.Before(cutoff) {
				delete(t.visitors, ip)
			}
		}
		t.mu.Unlock()
	}
}

// RateLimit guards the public booking endpoints with a per-IP throttle;
// requests over the allowance get 429. Authenticated admin routes and
// operational endpoints are expected to sit outside this middleware.
func RateLimit(perSec float64, burst int) func(http.Handler) http.Handler {
	throttle := NewThrottle(perSec, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !throttle.Admit(clientIP(r)) {
				http.Error(w, "too many requests, slow down", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the address resolved by chi's RealIP middleware.
func clientIP(r *http.Request) string {
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
