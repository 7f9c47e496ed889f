package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alejandrodnm/polyagent/internal/ledger"
)

// metricOpenPositions lives here rather than internal/controller because it
// reflects the ledger's open-position count, not something the cycle loop
// computes itself. Bankroll and cycle metrics are owned by internal/controller
// (see metrics.go there) since they update as a direct result of running a
// cycle, not of serving a status request.
var metricOpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "polyagent_open_positions",
	Help: "Number of currently open positions.",
})

// statusServer exposes a read-only view of the ledger: liveness, Prometheus
// metrics, and a small JSON snapshot of bankroll/positions/recent activity.
// It never writes to the ledger and runs independently of the cycle loop.
type statusServer struct {
	db   *ledger.SQLite
	port int
	srv  *http.Server
}

func newStatusServer(db *ledger.SQLite, port int) *statusServer {
	s := &statusServer{db: db, port: port}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/status", s.handleStatus)
	r.Handle("/metrics", promhttp.Handler())

	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *statusServer) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("status server: shutdown", "err", err)
		}
	}()

	slog.Info("status server: listening", "port", s.port)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("status server: serve failed", "err", err)
	}
}

func (s *statusServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type statusResponse struct {
	Bankroll      float64 `json:"bankroll"`
	OpenPositions int     `json:"open_positions"`
	RecentTrades  int     `json:"recent_trades"`
}

func (s *statusServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	bankroll, err := s.db.GetCurrentBankroll(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	positions, err := s.db.GetOpenPositions(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	trades, err := s.db.GetRecentTrades(ctx, 20)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	metricOpenPositions.Set(float64(len(positions)))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statusResponse{
		Bankroll:      bankroll,
		OpenPositions: len(positions),
		RecentTrades:  len(trades),
	})
}
