package handler

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// defaultBucket labels requests that fall under RateLimit.Default.
const defaultBucket = "default"

// Limit is a token bucket: RPS tokens per second up to Burst.
type Limit struct {
	RPS   float64
	Burst int
}

// RateLimit throttles each client IP. Routes listed in Routes (keyed by the
// gin route pattern, e.g. "/api/connect") get a bucket of their own instead
// of drawing from Default. A zero RPS disables that bucket.
type RateLimit struct {
	Default Limit
	Routes  map[string]Limit
	// IdleAfter drops buckets of clients not seen for this long (default 10m).
	IdleAfter time.Duration
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type throttle struct {
	cfg     RateLimit
	mu      sync.Mutex
	buckets map[string]*clientBucket
	now     func() time.Time
}

func newThrottle(cfg RateLimit) *throttle {
	if cfg.IdleAfter == 0 {
		cfg.IdleAfter = 10 * time.Minute
	}
	return &throttle{cfg: cfg, buckets: make(map[string]*clientBucket), now: time.Now}
}

// limitFor returns the bucket name and limit that apply to route.
func (t *throttle) limitFor(route string) (string, Limit) {
	if l, ok := t.cfg.Routes[route]; ok {
		return route, l
	}
	return defaultBucket, t.cfg.Default
}

// reserve takes a token for ip in bucket. It returns how long the client
// must wait when no token is available, or 0 when the request may proceed.
func (t *throttle) reserve(bucket, ip string, l Limit) time.Duration {
	now := t.now()
	key := bucket + "|" + ip

	t.mu.Lock()
	b, ok := t.buckets[key]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(rate.Limit(l.RPS), l.Burst)}
		t.buckets[key] = b
	}
	b.lastSeen = now
	t.mu.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return time.Second
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return d
	}
	return 0
}

// evict drops idle buckets and returns how many were removed.
func (t *throttle) evict() int {
	cutoff := t.now().Add(-t.cfg.IdleAfter)
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for key, b := range t.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(t.buckets, key)
			n++
		}
	}
	return n
}

// RateLimiter returns a Gin middleware enforcing cfg per client IP. Rejected
// requests get 429 with a Retry-After of whole seconds until the next token.
// Idle buckets are swept every IdleAfter/2 until ctx is done.
func RateLimiter(ctx context.Context, cfg RateLimit) gin.HandlerFunc {
	t := newThrottle(cfg)

	go func() {
		ticker := time.NewTicker(t.cfg.IdleAfter / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.evict()
			}
		}
	}()

	return func(c *gin.Context) {
		bucket, l := t.limitFor(c.FullPath())
		if l.RPS <= 0 {
			c.Next()
			return
		}
		if wait := t.reserve(bucket, c.ClientIP(), l); wait > 0 {
			phThrottledTotal.WithLabelValues(bucket).Inc()
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			sendError(c, http.StatusTooManyRequests, "Too many requests.")
			return
		}
		c.Next()
	}
}
