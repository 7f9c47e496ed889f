package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSidecarHealthCheckSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"0.1.0","trading_mode":"paper"}`))
	}))
	defer server.Close()

	sc := &Sidecar{
		healthURL:  server.URL + "/health",
		httpClient: &http.Client{Timeout: 5 * time.Second},
		exited:     make(chan struct{}),
	}
	close(sc.exited) // no real process backing this sidecar

	health, err := sc.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "0.1.0", health.Version)
	assert.Equal(t, "paper", health.TradingMode)
}

func TestSidecarHealthCheckUnreachable(t *testing.T) {
	sc := &Sidecar{
		healthURL:  "http://127.0.0.1:1/health",
		httpClient: &http.Client{Timeout: 200 * time.Millisecond},
	}
	_, err := sc.HealthCheck(context.Background())
	assert.Error(t, err)
}

func TestSidecarHealthCheckNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	sc := &Sidecar{
		healthURL:  server.URL + "/health",
		httpClient: &http.Client{Timeout: time.Second},
	}
	_, err := sc.HealthCheck(context.Background())
	assert.Error(t, err)
}

func TestSidecarHealthResponseToleratesMissingOptionalFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	sc := &Sidecar{
		healthURL:  server.URL + "/health",
		httpClient: &http.Client{Timeout: time.Second},
	}
	health, err := sc.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.Empty(t, health.Version)
	assert.Empty(t, health.TradingMode)
}

func TestSpawnSidecarFailsWhenProcessExitsImmediately(t *testing.T) {
	_, err := SpawnSidecar(context.Background(), "sh", []string{"-c", "exit 1"}, 19999, "paper",
		200*time.Millisecond, 10*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited during startup")
}

func TestSpawnSidecarFailsOnStartupTimeout(t *testing.T) {
	_, err := SpawnSidecar(context.Background(), "sh", []string{"-c", "sleep 5"}, 19998, "paper",
		100*time.Millisecond, 10*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to become healthy")
}

func TestWaitForHealthySucceedsOnceEndpointIsUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	sc := &Sidecar{
		healthURL:      server.URL + "/health",
		httpClient:     &http.Client{Timeout: time.Second},
		startupTimeout: time.Second,
		healthInterval: 10 * time.Millisecond,
		exited:         make(chan struct{}), // never closed: simulates a running process
	}
	require.NoError(t, sc.waitForHealthy(context.Background()))
}
