package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"dutycal/internal/calendar"
	"dutycal/internal/config"
	appLog "dutycal/internal/log"
	"dutycal/internal/model"
	"dutycal/internal/roster"
	"dutycal/internal/tasklist"
)

// Options wires the server to the calendar engine, the roster and the board.
type Options struct {
	Listen    string
	Engine    *calendar.Engine
	Roster    *roster.Roster
	Board     *tasklist.Board
	BasicAuth *config.BasicAuthConfig
}

// Server exposes the calendar and the task board as a JSON API.
type Server struct {
	listen string
	auth   *config.BasicAuthConfig
	engine *calendar.Engine
	roster *roster.Roster
	mux    *http.ServeMux

	// mu serializes every board access. The gate and filters are those of
	// the last GET /api/board and apply to the mutations that follow.
	mu      sync.Mutex
	board   *tasklist.Board
	day     time.Time
	gate    tasklist.Gate
	session model.Session
	member  *string
}

// NewServer constructs a Server and selects today on the board.
func NewServer(opts Options) *Server {
	s := &Server{
		listen:  opts.Listen,
		auth:    opts.BasicAuth,
		engine:  opts.Engine,
		roster:  opts.Roster,
		board:   opts.Board,
		mux:     http.NewServeMux(),
		session: model.SessionMorning,
	}
	if s.board == nil {
		s.board = tasklist.NewBoard(nil)
	}
	s.selectDay(context.Background(), s.engine.Today())
	s.registerRoutes()
	return s
}

// Handler returns the API handler with request ids and, when configured,
// Basic Auth.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.listen)
		h = s.basicAuthMiddleware(h)
	}
	return requestIDMiddleware(h)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/calendar", s.handleCalendar)
	s.mux.HandleFunc("GET /api/calendar/day", s.handleCalendarDay)

	s.mux.HandleFunc("GET /api/board", s.handleBoard)
	s.mux.HandleFunc("POST /api/board/draft", s.handleDraftStart)
	s.mux.HandleFunc("PATCH /api/board/draft", s.handleDraftUpdate)
	s.mux.HandleFunc("DELETE /api/board/draft", s.handleDraftCancel)
	s.mux.HandleFunc("POST /api/board/draft/save", s.handleDraftSave)
	s.mux.HandleFunc("POST /api/board/draft/steps", s.handleDraftSteps)
	s.mux.HandleFunc("POST /api/board/draft/roles", s.handleDraftRoles)
	s.mux.HandleFunc("DELETE /api/board/tasks/{id}", s.handleTaskRemove)
	s.mux.HandleFunc("POST /api/board/tasks/{id}/toggle", s.handleTaskToggle)
	s.mux.HandleFunc("PUT /api/board/tasks/{id}/done", s.handleTaskDone)
	s.mux.HandleFunc("POST /api/board/drag", s.handleDragBegin)
	s.mux.HandleFunc("DELETE /api/board/drag", s.handleDragCancel)
	s.mux.HandleFunc("POST /api/board/drop", s.handleDrop)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	return s.auth != nil && s.auth.Username != "" && s.auth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.auth.Username
	password := s.auth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="dutycal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

const requestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestIDMiddleware tags each request with an id (the caller's, if sent)
// and logs one line per request.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		kv := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", id,
		}
		if r.URL.Path == "/health" {
			appLog.Debug("http request", kv...)
			return
		}
		appLog.Info("http request", kv...)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
