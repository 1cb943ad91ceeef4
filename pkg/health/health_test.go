package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passing() CheckFunc {
	return func(_ context.Context) error { return nil }
}

func failing(msg string) CheckFunc {
	return func(_ context.Context) error { return errors.New(msg) }
}

func serve(t *testing.T, endpoint http.HandlerFunc, path string) (int, probeReport) {
	t.Helper()
	w := httptest.NewRecorder()
	endpoint(w, httptest.NewRequest(http.MethodGet, path, nil))
	var body probeReport
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

func TestLiveEndpoint(t *testing.T) {
	t.Run("all passing", func(t *testing.T) {
		h := New()
		h.AddLivenessCheck("goroutines", time.Second, passing())
		h.AddLivenessCheck("gc", time.Second, passing())

		code, body := serve(t, h.LiveEndpoint, "/livez")
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", body.Status)
	})

	t.Run("no checks registered", func(t *testing.T) {
		code, body := serve(t, New().LiveEndpoint, "/livez")
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", body.Status)
	})

	t.Run("failing check past threshold", func(t *testing.T) {
		h := New()
		h.AddLivenessCheck("goroutines", time.Second, failing("too many goroutines"))

		ctx := context.Background()
		for range 3 {
			h.liveness[0].observe(ctx)
		}

		code, body := serve(t, h.LiveEndpoint, "/livez")
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "unhealthy", body.Status)
		assert.Equal(t, "too many goroutines", body.Checks["goroutines"])
	})

	t.Run("failures below threshold stay healthy", func(t *testing.T) {
		h := New()
		h.AddLivenessCheck("goroutines", time.Second, failing("blip"))

		ctx := context.Background()
		h.liveness[0].observe(ctx)
		h.liveness[0].observe(ctx)

		code, _ := serve(t, h.LiveEndpoint, "/livez")
		assert.Equal(t, http.StatusOK, code)
	})
}

func TestReadyEndpoint(t *testing.T) {
	t.Run("ready and passing", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("backend", time.Second, passing())
		h.SetReady(true)

		code, body := serve(t, h.ReadyEndpoint, "/readyz")
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", body.Status)
	})

	t.Run("manual gate closed", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("backend", time.Second, passing())

		code, body := serve(t, h.ReadyEndpoint, "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Contains(t, body.Checks, "_readiness")
	})

	t.Run("gate reclosed during shutdown", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("backend", time.Second, passing())
		h.SetReady(true)

		code, _ := serve(t, h.ReadyEndpoint, "/readyz")
		require.Equal(t, http.StatusOK, code)

		h.SetReady(false)
		code, _ = serve(t, h.ReadyEndpoint, "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, code)
	})

	t.Run("one failing probe reported by name", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("backend", time.Second, failing("502 from upstream"))
		h.AddReadinessCheck("cache", time.Second, passing())
		h.SetReady(true)

		ctx := context.Background()
		for range 3 {
			h.readiness[0].observe(ctx)
		}

		code, body := serve(t, h.ReadyEndpoint, "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Contains(t, body.Checks, "backend")
		assert.NotContains(t, body.Checks, "cache")
	})
}

func TestIsReady(t *testing.T) {
	h := New()
	h.AddReadinessCheck("backend", time.Second, passing())

	assert.False(t, h.IsReady())
	h.SetReady(true)
	assert.True(t, h.IsReady())
	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestProbeRecovery(t *testing.T) {
	down := true
	h := New()
	h.AddLivenessCheck("flaky", time.Second, func(_ context.Context) error {
		if down {
			return errors.New("down")
		}
		return nil
	})
	p := h.liveness[0]
	ctx := context.Background()

	for range 3 {
		p.observe(ctx)
	}
	assert.NotEmpty(t, p.failure())

	// One success recovers (okAfter = 1).
	down = false
	p.observe(ctx)
	assert.Empty(t, p.failure())
}

func TestProbeLastError(t *testing.T) {
	h := New()
	h.AddReadinessCheck("backend", time.Second, failing("timeout"))
	p := h.readiness[0]

	for range 3 {
		p.observe(context.Background())
	}
	assert.Equal(t, "timeout", p.failure())
}

func TestStopIdempotent(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, passing())

	h.Start(context.Background(), 100*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	h.Stop()
	h.Stop()
}

func TestConcurrentAccess(t *testing.T) {
	h := New()
	h.AddLivenessCheck("flappy", time.Second, failing("err"))
	h.AddReadinessCheck("backend", time.Second, passing())
	h.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx, 10*time.Millisecond)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				h.IsReady()
				h.LiveEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/livez", nil))
				h.ReadyEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/readyz", nil))
			}
		}()
	}
	wg.Wait()
	h.Stop()
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))

	err := GoroutineCountCheck(0)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds threshold")
}

func TestGCMaxPauseCheck(t *testing.T) {
	assert.NoError(t, GCMaxPauseCheck(time.Hour)(context.Background()))
}
