package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jpalmerr/pickstore"
	"github.com/jpalmerr/pickstore/internal/docstate"
	"github.com/jpalmerr/pickstore/internal/host"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// This prevents goroutine leaks when clients are slow or disconnected.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	// shutdownTimeout bounds graceful shutdown of in-flight requests.
	shutdownTimeout = 5 * time.Second

	// maxBodySize limits dispatch request bodies.
	maxBodySize = 1 << 20

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "pickstore"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"
)

// DocumentStore is the store surface the server drives.
// *pickstore.Store[docstate.Document, docstate.Op] implements it.
//
// The server only calls these methods from the host loop.
type DocumentStore interface {
	pickstore.Source[docstate.Document]
	Send(op docstate.Op) error
}

// Config holds the optional parts of a [Server].
type Config struct {
	// Port is the TCP port to listen on. Zero picks a free port.
	Port int

	// Title is shown in the inspector page. Defaults to "pickstore".
	Title string

	// Assets holds assets/index.html for the inspector page. When nil, "/"
	// is not routed.
	Assets fs.FS

	// Metrics, when set, is exposed at /metrics.
	Metrics prometheus.Gatherer

	// Logger receives request and lifecycle logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// Server exposes one store over HTTP.
//
// Server provides these endpoints:
//   - GET /: Serves the embedded inspector page
//   - GET /api/state: Returns the current projection as JSON
//   - POST /api/dispatch: Applies a document operation
//   - GET /api/sse: Server-Sent Events stream of one projection
//   - GET /metrics: Prometheus exposition (when configured)
//
// Every store access happens on the host loop. Documents are never mutated
// in place, so a value read on the loop can be encoded after it is handed
// back to the request goroutine.
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store      DocumentStore
	loop       *host.Loop
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	addr       net.Addr
	done       chan struct{}
}

// NewServer creates a new HTTP [Server] for st. loop must own st and be
// started before requests arrive.
//
// The server is not started until [Server.Start] is called.
func NewServer(st DocumentStore, loop *host.Loop, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:  st,
		loop:   loop,
		cfg:    cfg,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))

	if s.cfg.Assets != nil {
		r.Get("/", s.handleDashboard)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Post("/dispatch", s.handleDispatch)
		r.Get("/sse", s.handleSSE)
	})

	if s.cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.cfg.Metrics, promhttp.HandlerOpts{}))
	}

	return r
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.cfg.Port, err)
	}
	s.addr = ln.Addr()

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// BaseContext derives all request contexts from the server context.
		// When ctx is cancelled, all request contexts are also cancelled,
		// enabling graceful shutdown of long-running handlers like SSE.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		defer close(s.done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// Done is closed once graceful shutdown has finished. It never closes if
// Start was not called or failed.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Addr returns the address the server listens on, or nil before Start.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// stateResponse is the JSON body of state reads, dispatches and SSE events.
type stateResponse struct {
	Select string `json:"select"`
	Value  any    `json:"value"`
}

// errorResponse is the JSON body of failed requests.
type errorResponse struct {
	Error string `json:"error"`
}

// handleDashboard serves the inspector page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Assets == nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// read index.html from embedded assets
	content, err := fs.ReadFile(s.cfg.Assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// apply title substitution with HTML escaping to prevent XSS
	title := s.cfg.Title
	if title == "" {
		title = defaultTitle
	}
	safeTitle := html.EscapeString(title)
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, safeTitle)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

// handleState returns the projection named by the "select" query parameter.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("select")

	var (
		value any
		found bool
	)
	err := s.loop.Do(r.Context(), func() {
		value, found = docstate.Lookup(s.store.Get(), path)
	})
	if err != nil {
		s.writeLoopError(w, err)
		return
	}
	if !found {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("no value at %q", path)})
		return
	}

	s.writeJSON(w, http.StatusOK, stateResponse{Select: path, Value: value})
}

// handleDispatch applies the operation in the request body and returns the
// whole document afterwards.
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var op docstate.Op
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(&op); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if err := docstate.Validate(op); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var (
		doc         docstate.Document
		dispatchErr error
	)
	err := s.loop.Do(r.Context(), func() {
		dispatchErr = s.store.Send(op)
		doc = s.store.Get()
	})
	if err != nil {
		s.writeLoopError(w, err)
		return
	}
	if dispatchErr != nil {
		status := http.StatusInternalServerError
		if errors.Is(dispatchErr, pickstore.ErrNestedDispatch) {
			status = http.StatusConflict
		}
		s.writeJSON(w, status, errorResponse{Error: dispatchErr.Error()})
		return
	}

	s.logger.Info("dispatch applied", "op", op.String(), "request_id", middleware.GetReqID(r.Context()))
	s.writeJSON(w, http.StatusOK, stateResponse{Value: doc})
}

// handleSSE streams one projection via Server-Sent Events.
//
// Each client owns a binding created on the host loop. The binding's notify
// only marks the stream dirty; the handler then re-activates the binding on
// the loop and writes the fresh projection, so bursts of dispatches collapse
// into one event.
//
// The handler uses write deadlines to prevent goroutine leaks when clients are
// slow or disconnected. Without deadlines, a blocked Fprintf call would prevent
// the handler from detecting context cancellation.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	// check if flushing is supported
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	path := r.URL.Query().Get("select")

	dirty := make(chan struct{}, 1)
	notify := func() {
		select {
		case dirty <- struct{}{}:
		default:
		}
	}

	var (
		binding *pickstore.Binding[docstate.Document, any]
		value   any
	)
	// queued behind the activation, so it also releases a binding whose
	// activation finished after ctx ended; fails only once the loop is gone
	defer func() {
		_ = s.loop.Post(func() {
			if binding != nil {
				binding.Close()
			}
		})
	}()

	err := s.loop.Do(ctx, func() {
		binding = pickstore.PickStore[docstate.Document](s.store, notify, pickstore.Select(docstate.Selector(path)))
		value = binding.Activate(nil)
	})
	if err != nil {
		s.writeLoopError(w, err)
		return
	}

	// ResponseController provides deadline-aware write and flush operations.
	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some ResponseWriter impls)
	deadlinesSupported := true

	writeAndFlush := func(v any) error {
		data, err := json.Marshal(stateResponse{Select: path, Value: v})
		if err != nil {
			return err
		}

		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				// deadline not supported by underlying connection, continue without
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}

		// ResponseController.Flush respects the write deadline
		return rc.Flush()
	}

	// set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if err := writeAndFlush(value); err != nil {
		return
	}

	for {
		select {
		case <-dirty:
			if err := s.loop.Do(ctx, func() { value = binding.Activate(nil) }); err != nil {
				return
			}
			if err := writeAndFlush(value); err != nil {
				return
			}

		case <-ctx.Done():
			// request context is derived from server context via BaseContext,
			// so this fires on both client disconnect AND server shutdown
			return
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// writeLoopError maps a host loop failure to a response.
func (s *Server) writeLoopError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, host.ErrStopped):
		s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "store is shutting down"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// client went away; nothing useful to send
	default:
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

// requestLogger logs each request at Debug level with its chi request ID.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
