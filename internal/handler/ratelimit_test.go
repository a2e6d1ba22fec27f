package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newLimitedRouter(t *testing.T, cfg RateLimit) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	r := gin.New()
	r.Use(RateLimiter(ctx, cfg))
	ok := func(c *gin.Context) { c.String(http.StatusOK, "ok") }
	r.GET("/api/photos", ok)
	r.POST("/api/connect", ok)
	return r
}

func hit(r http.Handler, method, path, ip string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = ip + ":1234"
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_rejectsBurstOverflow(t *testing.T) {
	r := newLimitedRouter(t, RateLimit{Default: Limit{RPS: 1, Burst: 2}})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := hit(r, http.MethodGet, "/api/photos", "10.0.0.1")
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests && w.Header().Get("Retry-After") != "1" {
			t.Errorf("Retry-After = %q, want 1", w.Header().Get("Retry-After"))
		}
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}

	if w := hit(r, http.MethodGet, "/api/photos", "10.0.0.2"); w.Code != http.StatusOK {
		t.Errorf("other client: expected 200, got %d", w.Code)
	}
}

func TestRateLimiter_connectHasItsOwnStricterBucket(t *testing.T) {
	r := newLimitedRouter(t, RateLimit{
		Default: Limit{RPS: 100, Burst: 100},
		Routes:  map[string]Limit{"/api/connect": {RPS: 0.1, Burst: 1}},
	})

	if w := hit(r, http.MethodPost, "/api/connect", "10.0.0.1"); w.Code != http.StatusOK {
		t.Fatalf("first connect: expected 200, got %d", w.Code)
	}
	w := hit(r, http.MethodPost, "/api/connect", "10.0.0.1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second connect: expected 429, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "10" {
		t.Errorf("Retry-After = %q, want 10", got)
	}

	// Throttled sign-ins do not spend the client's general budget.
	if w := hit(r, http.MethodGet, "/api/photos", "10.0.0.1"); w.Code != http.StatusOK {
		t.Errorf("photos after connect throttle: expected 200, got %d", w.Code)
	}
}

func TestRateLimiter_zeroRateDisablesBucket(t *testing.T) {
	r := newLimitedRouter(t, RateLimit{Routes: map[string]Limit{"/api/connect": {RPS: 1, Burst: 1}}})
	for i := 0; i < 5; i++ {
		if w := hit(r, http.MethodGet, "/api/photos", "10.0.0.1"); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}
}

func TestThrottle_evictsIdleClients(t *testing.T) {
	now := time.Now()
	th := newThrottle(RateLimit{Default: Limit{RPS: 1, Burst: 1}, IdleAfter: time.Minute})
	th.now = func() time.Time { return now }

	th.reserve(defaultBucket, "10.0.0.1", th.cfg.Default)
	now = now.Add(30 * time.Second)
	th.reserve(defaultBucket, "10.0.0.2", th.cfg.Default)
	now = now.Add(45 * time.Second)

	if n := th.evict(); n != 1 {
		t.Errorf("evicted %d buckets, want 1", n)
	}
	if _, ok := th.buckets[defaultBucket+"|10.0.0.2"]; !ok {
		t.Error("recently seen client must be kept")
	}
}
