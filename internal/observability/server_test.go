package observability

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	io_prometheus_client "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/mimir/internal/config"
	"github.com/rafaeljc/mimir/internal/projectconfig"
)

// stubChecker reports a fixed health result under a fixed name.
type stubChecker struct {
	name string
	err  error
}

func (c stubChecker) Name() string                { return c.name }
func (c stubChecker) Check(context.Context) error { return c.err }

func newTestServer(checkers ...Checker) *Server {
	cfg := &config.ObservabilityConfig{
		Port:          "9090",
		Timeout:       time.Second,
		LivenessPath:  "/healthz",
		ReadinessPath: "/readyz",
		MetricsPath:   "/metrics",
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(logger, cfg, checkers...)
}

func TestProbes(t *testing.T) {
	t.Run("Should report liveness unconditionally", func(t *testing.T) {
		s := newTestServer(stubChecker{name: "redis", err: errors.New("down")})

		rr := httptest.NewRecorder()
		s.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Should report ready when every checker passes", func(t *testing.T) {
		s := newTestServer(
			stubChecker{name: "redis"},
			stubChecker{name: "postgres"},
		)

		rr := httptest.NewRecorder()
		s.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		require.Equal(t, http.StatusOK, rr.Code)

		var body struct {
			Status map[string]string `json:"status"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "up", body.Status["redis"])
		assert.Equal(t, "up", body.Status["postgres"])
	})

	t.Run("Should report unavailable when any checker fails", func(t *testing.T) {
		s := newTestServer(
			stubChecker{name: "redis"},
			stubChecker{name: "postgres", err: errors.New("connection refused")},
		)

		rr := httptest.NewRecorder()
		s.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		require.Equal(t, http.StatusServiceUnavailable, rr.Code)

		var body struct {
			Status map[string]string `json:"status"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "up", body.Status["redis"])
		assert.Contains(t, body.Status["postgres"], "down")
	})

	t.Run("Should expose the metrics endpoint", func(t *testing.T) {
		s := newTestServer()

		rr := httptest.NewRecorder()
		s.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestMetricsErrorHandler(t *testing.T) {
	t.Run("Should count not-found signals by entity kind", func(t *testing.T) {
		h := MetricsErrorHandler{}

		before := testCounterValue(t, "experiment")
		h.Handle(&projectconfig.NotFoundError{
			Kind:    projectconfig.KindExperiment,
			Message: `experiment with key "nope" not found`,
		})
		after := testCounterValue(t, "experiment")

		assert.Equal(t, before+1, after)
	})

	t.Run("Should bucket unrecognized errors under other", func(t *testing.T) {
		h := MetricsErrorHandler{}

		before := testCounterValue(t, "other")
		h.Handle(errors.New("something else"))
		after := testCounterValue(t, "other")

		assert.Equal(t, before+1, after)
	})
}

// testCounterValue reads the current lookup-miss count for a kind label.
func testCounterValue(t *testing.T, kind string) float64 {
	t.Helper()

	m, err := LookupMisses.GetMetricWithLabelValues(kind)
	require.NoError(t, err)

	pb := &io_prometheus_client.Metric{}
	require.NoError(t, m.Write(pb))
	return pb.GetCounter().GetValue()
}
