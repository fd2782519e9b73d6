package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzOK(t *testing.T) {
	rec := get(t, Handler(nil), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestHealthzReportsFailingDependency(t *testing.T) {
	checks := Checks{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	}
	rec := get(t, Handler(checks.Health), "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis: connection refused")
	assert.NotContains(t, rec.Body.String(), "postgres")
}

func TestChecksAggregatesAllFailures(t *testing.T) {
	checks := Checks{
		"b": func(context.Context) error { return errors.New("down") },
		"a": func(context.Context) error { return errors.New("down") },
	}
	err := checks.Health(context.Background())
	require.Error(t, err)
	assert.Equal(t, "a: down; b: down", err.Error())
}

func TestMetricsEndpointServesPrometheus(t *testing.T) {
	rec := get(t, Handler(nil), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
