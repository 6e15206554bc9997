package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"arbmon/internal/history"
	"arbmon/internal/model"
	"arbmon/internal/poller"
)

// Server exposes the monitor's query surface to the presentation layer: one
// snapshot endpoint, a health check and the websocket push channel.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	poller     *poller.Poller
	tracker    *history.Tracker
}

// opportunitiesResponse is the full dashboard payload: the latest snapshot
// plus today's history entries.
type opportunitiesResponse struct {
	model.Snapshot
	History []model.HistoryEntry `json:"history"`
}

func NewServer(addr string, p *poller.Poller, t *history.Tracker, hub *Hub, logger *slog.Logger) *Server {
	s := &Server{
		logger:  logger,
		poller:  p,
		tracker: t,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/opportunities", s.handleOpportunities)
	if hub != nil {
		mux.HandleFunc("GET /ws", hub.HandleWS)
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	resp := opportunitiesResponse{
		Snapshot: s.poller.Snapshot(),
		History:  s.tracker.Today(),
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}
