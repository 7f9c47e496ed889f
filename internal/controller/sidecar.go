package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"time"
)

// SidecarHealth is the auxiliary weather process's /health response.
type SidecarHealth struct {
	Status      string `json:"status"`
	Version     string `json:"version,omitempty"`
	TradingMode string `json:"trading_mode,omitempty"`
}

// Sidecar supervises the auxiliary weather process: spawn, poll for
// health, and terminate on shutdown.
type Sidecar struct {
	cmd            *exec.Cmd
	healthURL      string
	httpClient     *http.Client
	startupTimeout time.Duration
	healthInterval time.Duration
	exited         chan struct{}
	waitErr        error
}

// SpawnSidecar starts the configured weather process and blocks until its
// /health endpoint reports healthy or startupTimeout elapses.
func SpawnSidecar(ctx context.Context, command string, args []string, port int, tradingMode string, startupTimeout, healthInterval time.Duration) (*Sidecar, error) {
	slog.Info("controller: spawning weather sidecar", "command", command, "port", port)

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("SIDECAR_PORT=%d", port),
		fmt.Sprintf("TRADING_MODE=%s", tradingMode),
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("controller: spawn weather sidecar: %w", err)
	}

	sc := &Sidecar{
		cmd:            cmd,
		healthURL:      fmt.Sprintf("http://127.0.0.1:%d/health", port),
		httpClient:     &http.Client{Timeout: 5 * time.Second},
		startupTimeout: startupTimeout,
		healthInterval: healthInterval,
		exited:         make(chan struct{}),
	}
	go func() {
		sc.waitErr = cmd.Wait()
		close(sc.exited)
	}()

	if err := sc.waitForHealthy(ctx); err != nil {
		sc.Shutdown()
		return nil, err
	}
	return sc, nil
}

func (s *Sidecar) waitForHealthy(ctx context.Context) error {
	deadline := time.Now().Add(s.startupTimeout)
	for {
		if time.Now().After(deadline) {
			return fmt.Errorf("controller: sidecar failed to become healthy within %s", s.startupTimeout)
		}
		if !s.IsRunning() {
			return fmt.Errorf("controller: sidecar process exited during startup: %w", s.waitErr)
		}

		health, err := s.HealthCheck(ctx)
		if err == nil {
			slog.Info("controller: sidecar healthy", "status", health.Status, "version", health.Version)
			return nil
		}
		slog.Debug("controller: sidecar not ready yet", "err", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.healthInterval):
		}
	}
}

// HealthCheck performs a single GET against the sidecar's /health endpoint.
func (s *Sidecar) HealthCheck(ctx context.Context) (SidecarHealth, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.healthURL, nil)
	if err != nil {
		return SidecarHealth{}, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return SidecarHealth{}, fmt.Errorf("controller: reach sidecar health endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return SidecarHealth{}, fmt.Errorf("controller: sidecar health endpoint returned %d", resp.StatusCode)
	}
	var health SidecarHealth
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return SidecarHealth{}, fmt.Errorf("controller: parse sidecar health response: %w", err)
	}
	return health, nil
}

// IsRunning reports whether the sidecar process is still alive.
func (s *Sidecar) IsRunning() bool {
	select {
	case <-s.exited:
		return false
	default:
		return true
	}
}

// Shutdown kills the sidecar process and waits for it to exit. Safe to call
// more than once.
func (s *Sidecar) Shutdown() {
	if !s.IsRunning() {
		return
	}
	slog.Info("controller: shutting down weather sidecar")
	if err := s.cmd.Process.Kill(); err != nil {
		slog.Error("controller: failed to kill sidecar process", "err", err)
		return
	}
	<-s.exited
	slog.Info("controller: weather sidecar terminated")
}
