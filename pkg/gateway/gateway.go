// Package gateway exposes the dialogue engine over HTTP.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/lumiebot/lumie/pkg/corpus"
	"github.com/lumiebot/lumie/pkg/dialog"
	"github.com/lumiebot/lumie/pkg/logger"
	"github.com/lumiebot/lumie/web"
)

const (
	readTimeout     = 10 * time.Second
	writeTimeout    = 15 * time.Second
	shutdownTimeout = 5 * time.Second
)

type chatRequest struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

// StatusFunc reports per-channel running state for the health endpoint.
type StatusFunc func() map[string]interface{}

// Server serves the chat API and the embedded web client.
type Server struct {
	engine        *dialog.Engine
	corpus        *corpus.Corpus
	channelStatus StatusFunc
	http          *http.Server
}

// NewServer builds the gateway. channelStatus may be nil when no chat
// channels are running.
func NewServer(addr string, engine *dialog.Engine, c *corpus.Corpus, channelStatus StatusFunc) *Server {
	s := &Server{
		engine:        engine,
		corpus:        c,
		channelStatus: channelStatus,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS([]string{"*"}))

	r.Post("/api/chat", s.handleChat)
	r.Get("/api", s.handleBanner)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/*", web.Handler())

	s.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	return s
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
// http.ErrServerClosed is swallowed so a clean shutdown returns nil.
func (s *Server) ListenAndServe() error {
	logger.InfoCF("gateway", "HTTP gateway listening", map[string]interface{}{
		"addr": s.http.Addr,
	})
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = clientIP(r)
	}

	resp, err := s.engine.Handle(r.Context(), userID, req.Message)
	if err != nil {
		if errors.Is(err, dialog.ErrEmptyMessage) {
			writeError(w, http.StatusBadRequest, "message must not be empty")
			return
		}
		logger.ErrorCF("gateway", "Chat handling failed", map[string]interface{}{
			"error": err.Error(),
		})
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBanner(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Lumie API is running..."))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":     "ok",
		"intents":    s.corpus.Len(),
		"utterances": s.corpus.UtteranceCount(),
	}
	if s.channelStatus != nil {
		health["channels"] = s.channelStatus()
	}
	writeJSON(w, http.StatusOK, health)
}

// clientIP keys anonymous requests by remote address so rate limits and
// sessions still apply without a userId. RealIP middleware has already
// resolved proxy headers into RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
