package server

import (
	"container/list"
	"context"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// CORSMiddleware lets the listed origins call /api from other pages, for
// example an editor plugin posting a pen to /api/render. "*" allows any
// origin. With no origins the handler is returned unchanged.
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		if len(origins) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAll || allowed[origin]) {
				h := w.Header()
				if allowAll {
					h.Set("Access-Control-Allow-Origin", "*")
				} else {
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type")
				h.Set("Access-Control-Max-Age", "86400")
			}

			// Preflights end here, before chi's method matching.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// pagePolicy is the Content-Security-Policy of the playground page. The
// sandboxed preview frame inherits it, and pens load libraries from any CDN,
// so scripts, styles and media stay open. /preview replaces it with
// previewCSP.
var pagePolicy = strings.Join([]string{
	"default-src 'self'",
	"script-src * 'unsafe-inline' 'unsafe-eval' data: blob:",
	"style-src * 'unsafe-inline' data:",
	"img-src * data: blob:",
	"font-src * data:",
	"media-src * data: blob:",
	"connect-src *",
	"frame-src 'self' about: data: blob:",
	"base-uri 'self'",
	"frame-ancestors 'self'",
}, "; ")

// SecurityHeadersMiddleware sets the page policy and the usual hardening
// headers on every response of the playground.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Frame-Options", "SAMEORIGIN")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Content-Security-Policy", pagePolicy)
			next.ServeHTTP(w, r)
		})
	}
}

const (
	// limiterIdle is how long a client's bucket survives without requests.
	limiterIdle = 10 * time.Minute
	// limiterSweep is how often idle buckets are dropped.
	limiterSweep = 5 * time.Minute
	// evictionLogInterval rate-limits the "at capacity" log line itself.
	evictionLogInterval = 30 * time.Second
	defaultMaxClients   = 10000
)

type clientBucket struct {
	ip       string
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters holds one token bucket per client IP, bounded by max with
// least-recently-used eviction.
type clientLimiters struct {
	rps   rate.Limit
	burst int
	max   int

	mu      sync.Mutex
	buckets map[string]*list.Element
	recent  *list.List // front is the most recent client

	lastEvictLog time.Time
	evicted      int
}

func newClientLimiters(rps float64, burst, maxClients int) *clientLimiters {
	if maxClients <= 0 {
		maxClients = defaultMaxClients
	}
	return &clientLimiters{
		rps:     rate.Limit(rps),
		burst:   burst,
		max:     maxClients,
		buckets: make(map[string]*list.Element),
		recent:  list.New(),
	}
}

// allow takes a token from ip's bucket, creating the bucket if needed.
func (c *clientLimiters) allow(ip string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.buckets[ip]; ok {
		c.recent.MoveToFront(elem)
		b := elem.Value.(*clientBucket)
		b.lastSeen = now
		return b.limiter.Allow()
	}

	if c.recent.Len() >= c.max {
		c.evictOldest(now)
	}
	b := &clientBucket{ip: ip, limiter: rate.NewLimiter(c.rps, c.burst), lastSeen: now}
	c.buckets[ip] = c.recent.PushFront(b)
	return b.limiter.Allow()
}

func (c *clientLimiters) evictOldest(now time.Time) {
	back := c.recent.Back()
	if back == nil {
		return
	}
	c.recent.Remove(back)
	delete(c.buckets, back.Value.(*clientBucket).ip)

	c.evicted++
	if now.Sub(c.lastEvictLog) >= evictionLogInterval {
		log.Printf("[RateLimit] Evicted %d least-recent client(s), tracking %d", c.evicted, c.max)
		c.lastEvictLog = now
		c.evicted = 0
	}
}

// sweep drops buckets idle for longer than limiterIdle. Recency order is by
// access, so idle buckets can sit anywhere in the list.
func (c *clientLimiters) sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for e := c.recent.Back(); e != nil; {
		prev := e.Prev()
		if b := e.Value.(*clientBucket); now.Sub(b.lastSeen) > limiterIdle {
			c.recent.Remove(e)
			delete(c.buckets, b.ip)
		}
		e = prev
	}
}

func (c *clientLimiters) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recent.Len()
}

// RateLimitMiddleware limits /api requests per client IP with a token bucket
// of rps and burst, tracking at most maxIPs clients.
//
// Idle buckets are swept by a goroutine that runs until ctx is cancelled; the
// returned channel is closed when it exits.
func RateLimitMiddleware(ctx context.Context, rps float64, burst int, maxIPs int) (func(http.Handler) http.Handler, <-chan struct{}) {
	limiters := newClientLimiters(rps, burst, maxIPs)

	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(limiterSweep)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				limiters.sweep(now)
			case <-ctx.Done():
				return
			}
		}
	}()

	middleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiters.allow(clientIP(r), time.Now()) {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	return middleware, done
}

// clientIP returns the address a request is rate limited under. Forwarding
// headers count only when the peer is loopback or private, which is where a
// reverse proxy in front of the playground sits.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer := net.ParseIP(host)
	if peer == nil {
		return host
	}
	if !peer.IsLoopback() && !peer.IsPrivate() {
		return peer.String()
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return peer.String()
}
