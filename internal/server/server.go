package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/jpalmerr/vitalboard/internal/panel"
	"github.com/jpalmerr/vitalboard/internal/store"
)

const (
	// streamWriteTimeout is the maximum time allowed for a single SSE or
	// WebSocket write. Must be <= shutdown timeout to ensure clean shutdown.
	streamWriteTimeout = 5 * time.Second

	// shutdownTimeout bounds graceful shutdown.
	shutdownTimeout = 5 * time.Second

	// maxSelectBody limits POST /api/select payloads.
	maxSelectBody = 1 << 16

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "vitalboard"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"
)

// Server handles HTTP requests for the dashboard and API.
type Server struct {
	views      store.Views
	session    *store.Session
	port       int
	httpServer *http.Server
	addr       net.Addr
	assets     fs.FS
	title      string
	logger     *slog.Logger
	metrics    http.Handler
	upgrader   websocket.Upgrader
}

// Option configures a [Server].
type Option func(*Server)

// WithMetricsHandler serves h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - views: published panel views
//   - session: owner of the store; selections and state reads go through it
//   - port: TCP port to listen on (0 picks a free port)
//   - assets: embedded filesystem containing dashboard assets (may be nil)
//   - title: dashboard title (defaults to "vitalboard" if empty)
//   - logger: logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(views store.Views, session *store.Session, port int, assets fs.FS, title string, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		views:   views,
		session: session,
		port:    port,
		assets:  assets,
		title:   title,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/views", s.handleViews)
		r.Get("/views/{id}", s.handleView)
		r.Get("/state", s.handleScopes)
		r.Get("/state/{scope}", s.handleState)
		r.Post("/select", s.handleSelect)
		r.Get("/sse", s.handleSSE)
		r.Get("/ws", s.handleWS)
	})

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	if s.assets != nil {
		r.Get("/", s.handleDashboard)
	}
	return r
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}
	s.addr = ln.Addr()

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts derive from ctx so that cancelling it also ends
		// long-running stream handlers
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	s.logger.Info("http server listening", "addr", s.addr.String())
	return nil
}

// Addr returns the listening address once started.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// handleDashboard serves the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if s.assets == nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// escaped to prevent XSS through the configured title
	title := s.title
	if title == "" {
		title = defaultTitle
	}
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, html.EscapeString(title))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

func (s *Server) handleViews(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.views.GetAll())
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, ok := s.views.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("unknown view %q", id))
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleScopes(w http.ResponseWriter, r *http.Request) {
	if s.session == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no session")
		return
	}
	s.writeJSON(w, http.StatusOK, s.session.Store().Scopes())
}

// handleState returns a snapshot of one scope. Store reads are safe off the
// session goroutine; stored values are replaced, never mutated.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if s.session == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no session")
		return
	}
	scope := chi.URLParam(r, "scope")
	st := s.session.Store()
	if !slices.Contains(st.Scopes(), scope) {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("unknown scope %q", scope))
		return
	}
	s.writeJSON(w, http.StatusOK, st.Snapshot(scope))
}

// selectRequest is the body of POST /api/select.
type selectRequest struct {
	Scope string `json:"scope"`
	Key   string `json:"key"`
	Value any    `json:"value"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if s.session == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no session")
		return
	}

	var req selectRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSelectBody))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Scope == "" || req.Key == "" {
		s.writeError(w, http.StatusBadRequest, "scope and key are required")
		return
	}
	if !slices.Contains(s.session.Store().Scopes(), req.Scope) {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("unknown scope %q", req.Scope))
		return
	}

	var chooseErr error
	err := s.session.Do(r.Context(), func(st *store.Store) {
		chooseErr = panel.Choose(st, req.Scope, req.Key, req.Value)
	})
	switch {
	case err != nil:
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(chooseErr, panel.ErrNotSelectable), errors.Is(chooseErr, panel.ErrInvalidSelection):
		s.writeError(w, http.StatusBadRequest, chooseErr.Error())
	case chooseErr != nil:
		s.writeError(w, http.StatusInternalServerError, chooseErr.Error())
	default:
		s.logger.Debug("selection applied", "scope", req.Scope, "key", req.Key)
		w.WriteHeader(http.StatusNoContent)
	}
}

// writeJSON encodes v before writing so an encoding failure can still be
// reported as a 500.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
		http.Error(w, "encoding failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Debug("failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
