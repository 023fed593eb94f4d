package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/cartography"
	"github.com/aretw0/cartography/internal/logging"
	"github.com/aretw0/cartography/pkg/domain"
	"github.com/aretw0/cartography/pkg/ports"
	"github.com/aretw0/cartography/pkg/projector"
	"github.com/aretw0/cartography/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// DefaultLogTail is the number of log entries returned when ?last is omitted.
const DefaultLogTail = 10

// Server exposes sessions over HTTP.
type Server struct {
	Sessions *session.Manager
	Streams  *StreamManager
	Archive  ports.RunStore
	Metrics  http.Handler
	Logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithArchive exposes archived runs under /runs.
func WithArchive(store ports.RunStore) Option {
	return func(s *Server) {
		s.Archive = store
	}
}

// WithMetrics mounts a metrics handler (usually promhttp) at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.Metrics = h
	}
}

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// NewHandler creates the HTTP handler. streams must be the StreamManager whose
// Hooks were registered on sessions.
func NewHandler(sessions *session.Manager, streams *StreamManager, opts ...Option) http.Handler {
	s := &Server{
		Sessions: sessions,
		Streams:  streams,
		Logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s.Routes()
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.CreateSession)
		r.Get("/", s.ListSessions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Post("/run", s.StartRun)
			r.Post("/cancel", s.CancelRun)
			r.Post("/reset", s.ResetSession)
			r.Get("/snapshot", s.GetSnapshot)
			r.Get("/log", s.GetLog)
			r.Get("/mermaid", s.GetMermaid)
			r.Get("/view", s.GetView)
			r.Get("/events", s.SubscribeEvents)
		})
	})

	if s.Archive != nil {
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.ListRuns)
			r.Get("/{id}", s.GetRun)
			r.Get("/{id}/snapshot", s.GetRunSnapshot)
			r.Delete("/{id}", s.DeleteRun)
		})
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RunBody is the payload of POST /sessions/{id}/run.
type RunBody struct {
	Query    string `json:"query" validate:"max=10000"`
	Steps    int    `json:"steps" validate:"gte=0"`
	DelayMS  int    `json:"delay_ms" validate:"gte=0,lte=60000"`
	Chaining string `json:"chaining,omitempty" validate:"omitempty,oneof=linear branch"`
}

// Request converts the body into a run request.
func (b RunBody) Request() (domain.RunRequest, error) {
	if err := validateBody(b); err != nil {
		return domain.RunRequest{}, err
	}
	return domain.RunRequest{
		Query:    b.Query,
		Steps:    b.Steps,
		Delay:    time.Duration(b.DelayMS) * time.Millisecond,
		Chaining: domain.ChainPolicy(b.Chaining),
	}, nil
}

// CreateSession handles POST /sessions.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Create(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.Info())
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Sessions.List())
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Info())
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Sessions.Delete(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.Streams.Close(id)
	w.WriteHeader(http.StatusNoContent)
}

// StartRun handles POST /sessions/{id}/run.
func (s *Server) StartRun(w http.ResponseWriter, r *http.Request) {
	var body RunBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return
	}
	req, err := body.Request()
	if err != nil {
		s.writeError(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.Sessions.Start(r.Context(), id, req); err != nil {
		s.writeError(w, err)
		return
	}
	sess, err := s.Sessions.Get(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, sess.Info())
}

// CancelRun handles POST /sessions/{id}/cancel.
func (s *Server) CancelRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Sessions.Cancel(id); err != nil {
		s.writeError(w, err)
		return
	}
	sess, err := s.Sessions.Get(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, err := sess.Driver.Wait(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ResetSession handles POST /sessions/{id}/reset.
func (s *Server) ResetSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Reset(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSnapshot handles GET /sessions/{id}/snapshot and returns the projected graph.
func (s *Server) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projector.Project(sess.Graph.Snapshot()))
}

// GetLog handles GET /sessions/{id}/log?last=N. last=0 returns everything.
func (s *Server) GetLog(w http.ResponseWriter, r *http.Request) {
	last := DefaultLogTail
	if raw := r.URL.Query().Get("last"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, fmt.Errorf("%w: last must be a non-negative integer", domain.ErrInvalidRequest))
			return
		}
		last = n
	}

	sess, err := s.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	entries := sess.Graph.LogEntries()
	if last > 0 {
		entries = domain.TailLog(entries, last)
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetMermaid handles GET /sessions/{id}/mermaid.
func (s *Server) GetMermaid(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	var overlay *projector.MermaidOverlay
	if sess.Driver.Status() == domain.StatusRunning {
		overlay = &projector.MermaidOverlay{CurrentNode: sess.Graph.LastID()}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(projector.Mermaid(sess.Graph.Snapshot(), overlay)))
}

// GetView handles GET /sessions/{id}/view and serves the 3D viewer page.
func (s *Server) GetView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.Sessions.Get(id); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := projector.WritePage(w, projector.PageOptions{
		SnapshotURL: "/sessions/" + id + "/snapshot",
	})
	if err != nil {
		s.Logger.Error("view render failed", "session_id", id, "err", err)
	}
}

// SubscribeEvents handles GET /sessions/{id}/events (SSE).
// The first message carries the whole current graph; later ones carry diffs.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.Sessions.Get(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, unsubscribe := s.Streams.Subscribe(id)
	defer unsubscribe()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	snap := sess.Graph.Snapshot()
	replay := newReplayFilter(snap)
	initial := domain.Diff(id, nil, snap).WithStatus(id, sess.Driver.Status())
	if data, err := json.Marshal(initial); err == nil {
		fmt.Fprintf(w, "data: %s\n\n", data)
	}
	flusher.Flush()
	s.Logger.Info("SSE client subscribed", "session_id", id)

	for {
		select {
		case <-r.Context().Done():
			s.Logger.Info("SSE client disconnected", "session_id", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if replay.Skip(msg) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// ListRuns handles GET /runs.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Archive.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

// GetRun handles GET /runs/{id}.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	record, err := s.Archive.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// GetRunSnapshot handles GET /runs/{id}/snapshot.
func (s *Server) GetRunSnapshot(w http.ResponseWriter, r *http.Request) {
	record, err := s.Archive.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projector.Project(record.Snapshot))
}

// DeleteRun handles DELETE /runs/{id}.
func (s *Server) DeleteRun(w http.ResponseWriter, r *http.Request) {
	if err := s.Archive.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"app":      "cartography-http",
		"version":  strings.TrimSpace(cartography.Version),
		"source":   ports.SourceName(s.Sessions.Source()),
		"sessions": s.Sessions.Len(),
		"archive":  s.Archive != nil,
	})
}

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyRunning), errors.Is(err, domain.ErrNotRunning):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrSessionLimit):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.Logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
