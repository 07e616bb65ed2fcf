package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomarketplace/cartstore/pkg/config"
	"github.com/gomarketplace/cartstore/pkg/types"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func testConfig() *config.Config {
	return &config.Config{App: config.AppConfig{Env: "test"}}
}

func TestHealthLive(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthLive(testConfig())(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", rec.Header().Get(envHeader))
}

func TestHealthReadyAllOK(t *testing.T) {
	h := HealthReady(testConfig(), nil, map[string]Pinger{"storage": stubPinger{}})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body types.SuccessEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	data := body.Data.(map[string]any)
	assert.Equal(t, "ready", data["status"])
	assert.Equal(t, map[string]any{"storage": "ok"}, data["checks"])
}

func TestHealthReadyDependencyDown(t *testing.T) {
	h := HealthReady(testConfig(), nil, map[string]Pinger{
		"redis":   stubPinger{err: errors.New("dial tcp: refused")},
		"storage": stubPinger{},
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "DEPENDENCY_ERROR", body.Error.Code)
	details := body.Error.Details.(map[string]any)
	assert.Equal(t, map[string]any{"redis": "error", "storage": "ok"}, details["checks"])
}
