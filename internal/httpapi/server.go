// Package httpapi is the HTTP front door: it authenticates and parses
// inbound webhook requests and hands them to the dispatch queue. The
// response is written after enqueue, before delivery happens; delivery
// failures are never visible to the webhook caller.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"seerrgram/internal/dispatch"
	logx "seerrgram/pkg/logx"
)

type Config struct {
	Addr string
	// AuthToken, when set, must match the Authorization header of every
	// webhook request.
	AuthToken string
}

// Enqueuer accepts a raw event for background dispatch.
type Enqueuer interface {
	Enqueue(e dispatch.RawEvent) error
}

// HealthFunc probes the server's collaborators. Keys name the
// collaborator, a nil value means healthy.
type HealthFunc func(ctx context.Context) map[string]error

type Server struct {
	cfg    Config
	queue  Enqueuer
	health HealthFunc
	log    logx.Logger
	srv    *http.Server
}

func New(cfg Config, queue Enqueuer, health HealthFunc, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Server{cfg: cfg, queue: queue, health: health, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/webhook", s.handleWebhook).Methods(http.MethodPost)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Use(s.recoverMiddleware)

	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("webhook server listening", logx.String("addr", s.cfg.Addr))
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shctx); err != nil {
		s.log.Warn("webhook server shutdown", logx.Err(err))
	}
	return nil
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				s.log.Error("handler panic", logx.Any("panic", p), logx.String("path", r.URL.Path))
				writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if s.cfg.AuthToken != "" && r.Header.Get("Authorization") != s.cfg.AuthToken {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
		return
	}

	var e dispatch.RawEvent
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&e); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}

	if err := s.queue.Enqueue(e); err != nil {
		if errors.Is(err, dispatch.ErrQueueFull) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "queue full"})
			return
		}
		s.log.Error("enqueue failed", logx.Err(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
		return
	}

	s.log.Debug("webhook accepted", logx.String("tag", e.Str("notification_type")))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]error{}
	if s.health != nil {
		checks = s.health(r.Context())
	}

	status := http.StatusOK
	out := map[string]any{"status": "ok"}
	detail := make(map[string]string, len(checks))
	for name, err := range checks {
		if err != nil {
			detail[name] = err.Error()
			out["status"] = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		detail[name] = "ok"
	}
	out["checks"] = detail
	writeJSON(w, status, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
