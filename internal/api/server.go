// Package api exposes a read-only JSON surface for operators and
// dashboards: service status, recent alerts, and per-account stats. It
// never writes to any channel the core reads.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tradewatch/internal/alerts"
	"tradewatch/internal/config"
	"tradewatch/internal/metrics"
	"tradewatch/internal/model"
	"tradewatch/internal/store"
)

type Server struct {
	cfg     *config.Manager
	stats   *metrics.Store
	alerts  *alerts.Store
	events  *store.Store
	logger  *slog.Logger
	version string
	started time.Time
}

type statusResponse struct {
	Status          string   `json:"status"`
	Time            string   `json:"time"`
	Version         string   `json:"version"`
	UptimeSec       int64    `json:"uptime_sec"`
	Topics          topics   `json:"topics"`
	FlaggedAccounts []string `json:"flagged_accounts"`
	TrackedAccounts int      `json:"tracked_accounts"`
}

type topics struct {
	Transactions string `json:"transactions"`
	Alerts       string `json:"alerts"`
	Valid        string `json:"valid"`
}

func Start(ctx context.Context, cfg *config.Manager, stats *metrics.Store, alertStore *alerts.Store,
	events *store.Store, logger *slog.Logger, version string) *http.Server {
	if cfg == nil {
		return nil
	}
	current := cfg.Get().API
	if !current.Enabled {
		if logger != nil {
			logger.Info("api disabled")
		}
		return nil
	}
	if logger != nil {
		logger.Info("api enabled", "addr", current.Addr)
	}
	server := &Server{
		cfg:     cfg,
		stats:   stats,
		alerts:  alertStore,
		events:  events,
		logger:  logger,
		version: version,
		started: time.Now().UTC(),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/status", server.handleStatus)
	mux.HandleFunc("/alerts", server.handleAlerts)
	mux.HandleFunc("/accounts", server.handleAccounts)
	mux.HandleFunc("/accounts/", server.handleAccount)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	httpServer := &http.Server{Addr: current.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctxShutdown)
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if logger != nil {
				logger.Error("api server error", "err", err)
			}
		}
	}()
	return httpServer
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	cfg := s.cfg.Get()
	resp := statusResponse{
		Status:    "ok",
		Time:      time.Now().UTC().Format(time.RFC3339Nano),
		Version:   s.version,
		UptimeSec: int64(time.Since(s.started).Seconds()),
		Topics: topics{
			Transactions: cfg.Kafka.TransactionsTopic,
			Alerts:       cfg.Kafka.AlertsTopic,
			Valid:        cfg.Kafka.ValidTopic,
		},
	}
	if s.events != nil {
		resp.FlaggedAccounts = s.events.FlaggedAccounts()
		resp.TrackedAccounts = len(s.events.Accounts())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	sinceStr := r.URL.Query().Get("since")
	var list []model.Alert
	if sinceStr != "" {
		ts, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		list = s.alerts.Since(ts)
	} else {
		list = s.alerts.List(limit)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": list,
		"count":  len(list),
	})
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	all := s.stats.GetAll()
	writeJSON(w, http.StatusOK, map[string]any{
		"accounts": all,
		"count":    len(all),
	})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	accountID := strings.TrimPrefix(r.URL.Path, "/accounts/")
	if accountID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	stats, updated, ok := s.stats.Get(accountID)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	resp := map[string]any{
		"account":    stats,
		"updated_at": updated.Format(time.RFC3339Nano),
	}
	if s.events != nil {
		resp["flagged"] = s.events.IsFlagged(accountID)
		if s.alerts != nil {
			recent := s.alerts.ForAccount(accountID)
			resp["recent_alerts"] = recent
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
