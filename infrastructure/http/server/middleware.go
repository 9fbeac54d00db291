package server

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/samber/lo"
	"golang.org/x/time/rate"
)

const (
	defaultRPS   = 5
	defaultBurst = 10
	// limiterIdleAfter is how long a client may stay silent before its bucket is dropped.
	limiterIdleAfter = 10 * time.Minute
)

type SecurityConfig struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterPool holds one token bucket per client address.
// Buckets idle for longer than idleAfter are pruned, at most once per idleAfter.
type limiterPool struct {
	mu        sync.Mutex
	m         map[string]*clientLimiter
	rps       float64
	burst     int
	idleAfter time.Duration
	lastPrune time.Time
	now       func() time.Time
}

func newLimiterPool(rps float64, burst int) *limiterPool {
	if rps <= 0 {
		rps = defaultRPS
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	return &limiterPool{
		m:         make(map[string]*clientLimiter),
		rps:       rps,
		burst:     burst,
		idleAfter: limiterIdleAfter,
		lastPrune: time.Now(),
		now:       time.Now,
	}
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	if now.Sub(p.lastPrune) >= p.idleAfter {
		p.prune(now)
	}
	if l, ok := p.m[key]; ok {
		l.lastSeen = now
		return l.limiter
	}
	l := &clientLimiter{limiter: rate.NewLimiter(rate.Limit(p.rps), p.burst), lastSeen: now}
	p.m[key] = l
	return l.limiter
}

// prune must be called with the lock held.
func (p *limiterPool) prune(now time.Time) {
	for key, l := range p.m {
		if now.Sub(l.lastSeen) >= p.idleAfter {
			delete(p.m, key)
		}
	}
	p.lastPrune = now
}

func (p *limiterPool) Allow(key string) bool {
	return p.get(key).Allow()
}

func (p *limiterPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}

// cors answers preflight requests and sets the allow headers for known origins.
func cors(allowed []string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && originAllowed(origin, allowed) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type,User")
			w.Header().Set("Access-Control-Max-Age", "600")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func originAllowed(origin string, allowed []string) bool {
	return lo.ContainsBy(allowed, func(a string) bool {
		return a == "*" || strings.EqualFold(a, origin)
	})
}

func (s *ChatServer) rateLimit(next http.Handler) http.Handler {
	limiters := newLimiterPool(s.security.RPS, s.security.Burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !limiters.Allow(ip) {
			s.metrics.RateLimited.Inc()
			s.log.Warn("Rate limited", "ip", ip, "path", r.URL.Path)
			s.writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// instrument counts requests by route template and logs them.
func (s *ChatServer) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if template, err := current.GetPathTemplate(); err == nil {
				route = template
			}
		}
		s.metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(sw.code)).Inc()
		s.log.Debug("Request handled", "method", r.Method, "route", route,
			"code", sw.code, "duration", time.Since(start))
	})
}
