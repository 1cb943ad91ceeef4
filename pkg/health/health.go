// Package health provides Kubernetes-style liveness and readiness
// probes. Registered checks run on their own tickers and use
// consecutive-failure and consecutive-success thresholds so a single
// flaky probe does not flip the reported state.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc reports the health of one component: nil when healthy, an
// error describing the problem otherwise.
type CheckFunc func(ctx context.Context) error

// probe is one registered check plus its runtime state.
//
// observe runs on a single goroutine per probe, so the consecutive
// counters are unsynchronized. healthy and lastErr are also read by
// HTTP handlers and use atomics.
type probe struct {
	name      string
	timeout   time.Duration
	fn        CheckFunc
	failAfter int
	okAfter   int

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	fails int
	oks   int
}

func newProbe(name string, timeout time.Duration, fn CheckFunc) *probe {
	p := &probe{
		name:      name,
		timeout:   timeout,
		fn:        fn,
		failAfter: 3,
		okAfter:   1,
	}
	// Assume healthy until the first observations say otherwise.
	p.healthy.Store(true)
	return p
}

func (p *probe) observe(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	err := p.fn(cctx)
	cancel()
	p.lastErr.Store(&err)

	if err != nil {
		p.oks = 0
		if p.fails++; p.fails >= p.failAfter {
			p.healthy.Store(false)
		}
		return
	}
	p.fails = 0
	if p.oks++; p.oks >= p.okAfter {
		p.healthy.Store(true)
	}
}

// failure returns a non-empty description when the probe is unhealthy.
func (p *probe) failure() string {
	if p.healthy.Load() {
		return ""
	}
	if e := p.lastErr.Load(); e != nil && *e != nil {
		return (*e).Error()
	}
	return "check is unhealthy"
}

// Health manages the probes for a service.
type Health struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []*probe
	readiness []*probe
	cancel    context.CancelFunc
}

// New creates a Health service. It starts not-ready; call SetReady(true)
// once initialization finishes.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a process-health check (goroutine count,
// GC pauses). Register before Start.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.mu.Lock()
	h.liveness = append(h.liveness, newProbe(name, timeout, check))
	h.mu.Unlock()
}

// AddReadinessCheck registers a traffic-readiness check, typically the
// reachability of a dependency such as the marketplace backend.
// Register before Start.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.mu.Lock()
	h.readiness = append(h.readiness, newProbe(name, timeout, check))
	h.mu.Unlock()
}

// Start runs every registered probe on its own goroutine at interval
// until the context is cancelled or Stop is called.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	probes := append(append([]*probe(nil), h.liveness...), h.readiness...)
	h.mu.Unlock()

	for _, p := range probes {
		go func(p *probe) {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			p.observe(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					p.observe(ctx)
				}
			}
		}(p)
	}
}

// SetReady flips the manual readiness gate. Set false during graceful
// shutdown to drain traffic before the listener closes.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the manual gate is open and every readiness
// probe passes.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, p := range h.readiness {
		if p.failure() != "" {
			return false
		}
	}
	return true
}

// Stop cancels the probe goroutines. Safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

type probeReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez: 200 while the liveness probes pass, 503
// with the failing checks otherwise.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	probes := append([]*probe(nil), h.liveness...)
	h.mu.RUnlock()

	report(w, failures(probes))
}

// ReadyEndpoint serves /readyz: 200 when the manual gate is open and the
// readiness probes pass, 503 with details otherwise.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	ready := h.ready.Load()

	h.mu.RLock()
	probes := append([]*probe(nil), h.readiness...)
	h.mu.RUnlock()

	failed := failures(probes)
	if !ready {
		failed["_readiness"] = "service is not ready"
	}
	report(w, failed)
}

func failures(probes []*probe) map[string]string {
	failed := make(map[string]string)
	for _, p := range probes {
		if msg := p.failure(); msg != "" {
			failed[p.name] = msg
		}
	}
	return failed
}

func report(w http.ResponseWriter, failed map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := probeReport{Status: "ok"}
	code := http.StatusOK
	if len(failed) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failed
		code = http.StatusServiceUnavailable
	}
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
