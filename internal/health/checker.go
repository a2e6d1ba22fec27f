// Package health tracks the reachability of the service's backing stores.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Config holds health check configuration.
type Config struct {
	CheckInterval time.Duration
	ProbeTimeout  time.Duration
	FailThreshold int
}

// Probe checks one dependency, e.g. a database ping.
type Probe func(ctx context.Context) error

// MetricsRecordFunc is an optional callback for recording probe results.
type MetricsRecordFunc func(dependency string, success bool)

// Status values reported per dependency and overall.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// CheckResult is the last known state of one dependency.
type CheckResult struct {
	Status    string    `json:"status"`
	FailCount int       `json:"failCount,omitempty"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
}

// Report is the body served by Handler.
type Report struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Checker runs the registered probes periodically. A dependency is degraded
// after FailThreshold consecutive failures and healthy again after one success.
type Checker struct {
	probes    map[string]Probe
	results   map[string]CheckResult
	mu        sync.Mutex
	cfg       Config
	onMetrics MetricsRecordFunc
	logger    *zap.Logger
}

// New creates a new Checker.
func New(cfg Config, logger *zap.Logger) *Checker {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 30 * time.Second
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 2 * time.Second
	}
	if cfg.FailThreshold == 0 {
		cfg.FailThreshold = 3
	}

	return &Checker{
		probes:  make(map[string]Probe),
		results: make(map[string]CheckResult),
		cfg:     cfg,
		logger:  logger,
	}
}

// Register adds a probe under name. Call before Start.
func (h *Checker) Register(name string, p Probe) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.probes[name] = p
	h.results[name] = CheckResult{Status: StatusHealthy}
}

// SetMetricsRecord configures the metrics recording callback.
func (h *Checker) SetMetricsRecord(fn MetricsRecordFunc) {
	h.onMetrics = fn
}

// Start runs the check loop until ctx is done.
func (h *Checker) Start(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.CheckAll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// CheckAll runs every probe concurrently, each bounded by ProbeTimeout.
func (h *Checker) CheckAll(ctx context.Context) {
	h.mu.Lock()
	probes := make(map[string]Probe, len(h.probes))
	for name, p := range h.probes {
		probes[name] = p
	}
	h.mu.Unlock()

	var wg sync.WaitGroup
	for name, p := range probes {
		wg.Add(1)
		go func(name string, p Probe) {
			defer wg.Done()

			pctx, cancel := context.WithTimeout(ctx, h.cfg.ProbeTimeout)
			err := p(pctx)
			cancel()

			if h.onMetrics != nil {
				h.onMetrics(name, err == nil)
			}
			h.record(name, err)
		}(name, p)
	}
	wg.Wait()
}

func (h *Checker) record(name string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	prev := h.results[name]
	res := CheckResult{Status: StatusHealthy, CheckedAt: time.Now().UTC()}
	if err != nil {
		res.FailCount = prev.FailCount + 1
		res.Error = err.Error()
		res.Status = prev.Status
		if res.FailCount >= h.cfg.FailThreshold {
			res.Status = StatusDegraded
		}
	}
	h.results[name] = res

	switch {
	case err == nil && prev.Status == StatusDegraded:
		h.logger.Info("health: recovered", zap.String("dependency", name))
	case err != nil && res.FailCount == h.cfg.FailThreshold:
		h.logger.Warn("health: degraded",
			zap.String("dependency", name),
			zap.Int("fail_count", res.FailCount),
			zap.Error(err),
		)
	}
}

// Report returns the last known state of every dependency.
func (h *Checker) Report() Report {
	h.mu.Lock()
	defer h.mu.Unlock()

	r := Report{Status: StatusHealthy, Checks: make(map[string]CheckResult, len(h.results))}
	for name, res := range h.results {
		r.Checks[name] = res
		if res.Status == StatusDegraded {
			r.Status = StatusDegraded
		}
	}
	return r
}

// Degraded lists the names of degraded dependencies in order.
func (r Report) Degraded() []string {
	var out []string
	for name, res := range r.Checks {
		if res.Status == StatusDegraded {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Handler serves the report: 200 when healthy, 503 when degraded.
func (h *Checker) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		r := h.Report()
		code := http.StatusOK
		if r.Status != StatusHealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, r)
	}
}
