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

	"golang.org/x/time/rate"

	"github.com/jpalmerr/mcpulse/internal/status"
	"github.com/jpalmerr/mcpulse/internal/store"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write
	// operation. Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	// lookupTimeout caps a single ad-hoc lookup request.
	lookupTimeout = 15 * time.Second

	defaultTitle     = "mcpulse"
	titlePlaceholder = "{{.Title}}"

	defaultLookupRate  = rate.Limit(1)
	defaultLookupBurst = 3
)

var (
	// ErrUnknownServer is returned by a Backend for a name that is not
	// configured.
	ErrUnknownServer = errors.New("unknown server")

	// ErrInvalidLookup is returned by a Backend when lookup parameters
	// cannot be parsed.
	ErrInvalidLookup = errors.New("invalid lookup")
)

// LookupResult is the outcome of an ad-hoc lookup.
type LookupResult struct {
	Protocol string
	Address  string
	Status   status.Result
}

// Backend supplies the configured servers and performs probes on request.
type Backend interface {
	// Servers returns the configured servers in display order.
	Servers() []ServerInfo

	// Refresh probes the named server once and updates the store.
	Refresh(ctx context.Context, name string) error

	// Lookup probes an arbitrary address without touching the store.
	Lookup(ctx context.Context, protocol, address string) (LookupResult, error)
}

// Option configures optional server behaviour.
type Option func(*Server)

// WithLookupLimit sets the per-client-IP rate for /api/lookup. A
// non-positive limit disables the endpoint.
func WithLookupLimit(limit rate.Limit, burst int) Option {
	return func(s *Server) {
		s.lookupRate = limit
		s.lookupBurst = burst
	}
}

// Server handles HTTP requests for the dashboard and API.
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store      store.Store
	backend    Backend
	port       int
	httpServer *http.Server
	assets     fs.FS
	title      string
	logger     *slog.Logger

	lookupRate  rate.Limit
	lookupBurst int
	limiter     *ipLimiter
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - st: status cache to read and subscribe to
//   - backend: configured servers and on-demand probes
//   - port: TCP port to listen on
//   - assets: embedded filesystem containing dashboard assets (may be nil)
//   - title: dashboard title (defaults to "mcpulse" if empty)
//   - logger: logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(st store.Store, backend Backend, port int, assets fs.FS, title string, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		store:       st,
		backend:     backend,
		port:        port,
		assets:      assets,
		title:       title,
		logger:      logger,
		lookupRate:  defaultLookupRate,
		lookupBurst: defaultLookupBurst,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.lookupRate > 0 {
		if s.lookupBurst < 1 {
			s.lookupBurst = 1
		}
		s.limiter = newIPLimiter(s.lookupRate, s.lookupBurst)
	}
	return s
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/sse", s.handleSSE)
	mux.HandleFunc("GET /api/servers/{name}/favicon.png", s.handleFavicon)
	mux.HandleFunc("POST /api/servers/{name}/refresh", s.handleRefresh)
	if s.limiter != nil {
		mux.HandleFunc("GET /api/lookup", s.handleLookup)
	}

	if s.assets != nil {
		mux.HandleFunc("/", s.handleDashboard)
	}
	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns once the listener is bound. The server
// runs until ctx is cancelled, then shuts down with a 5-second timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler: s.Handler(),
		// request contexts derive from ctx so long-running handlers like
		// SSE end on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.limiter != nil {
		go s.limiter.run(ctx)
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
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

	// escape the title to prevent XSS
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

// snapshot joins every configured server with its cache entry.
func (s *Server) snapshot() []StatusView {
	servers := s.backend.Servers()
	views := make([]StatusView, 0, len(servers))
	for _, info := range servers {
		r, ok := s.store.Get(info.Address)
		views = append(views, newStatusView(info, r, ok))
	}
	return views
}

// handleStatus returns all configured servers as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	s.writeJSON(w, http.StatusOK, s.snapshot())
}

// handleSSE streams status updates via Server-Sent Events.
//
// Writes carry a deadline so a slow or vanished client cannot block the
// handler past shutdown.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// may be unsupported by some ResponseWriter implementations
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	sendView := func(v StatusView) error {
		data, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return writeAndFlush(data)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// subscribe before the snapshot so no update falls in between
	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	for _, v := range s.snapshot() {
		if err := sendView(v); err != nil {
			return
		}
	}

	for {
		select {
		case entry, ok := <-ch:
			if !ok {
				return
			}
			// several configured names may share one address
			for _, info := range s.backend.Servers() {
				if info.Address != entry.Address {
					continue
				}
				if err := sendView(newStatusView(info, entry.Result, true)); err != nil {
					return
				}
			}

		case <-r.Context().Done():
			// fires on client disconnect and on server shutdown
			return
		}
	}
}

func (s *Server) findServer(name string) (ServerInfo, bool) {
	for _, info := range s.backend.Servers() {
		if info.Name == name {
			return info, true
		}
	}
	return ServerInfo{}, false
}

// handleFavicon serves the last known icon of a configured server.
func (s *Server) handleFavicon(w http.ResponseWriter, r *http.Request) {
	info, ok := s.findServer(r.PathValue("name"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	res, ok := s.store.Get(info.Address)
	if !ok || len(res.Favicon) == 0 {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(res.Favicon); err != nil {
		s.logger.Error("failed to write favicon", "error", err)
	}
}

// handleRefresh probes one configured server now and returns its view.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	err := s.backend.Refresh(r.Context(), name)
	switch {
	case errors.Is(err, ErrUnknownServer):
		s.writeError(w, http.StatusNotFound, err)
		return
	case err != nil:
		s.logger.Warn("refresh failed", "server", name, "error", err.Error())
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	info, ok := s.findServer(name)
	if !ok {
		s.writeError(w, http.StatusNotFound, ErrUnknownServer)
		return
	}
	res, known := s.store.Get(info.Address)
	s.writeJSON(w, http.StatusOK, newStatusView(info, res, known))
}

// handleLookup probes a caller-supplied address. The result is never
// cached, so arbitrary addresses cannot grow the store.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.allow(clientIP(r)) {
		w.Header().Set("Retry-After", "1")
		s.writeError(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
		return
	}

	q := r.URL.Query()
	address := strings.TrimSpace(q.Get("address"))
	if address == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: address is required", ErrInvalidLookup))
		return
	}
	protocol := q.Get("protocol")
	if protocol == "" {
		protocol = "java"
	}

	ctx, cancel := context.WithTimeout(r.Context(), lookupTimeout)
	defer cancel()

	res, err := s.backend.Lookup(ctx, protocol, address)
	switch {
	case errors.Is(err, ErrInvalidLookup):
		s.writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		s.logger.Warn("lookup failed", "address", address, "error", err.Error())
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	s.writeJSON(w, http.StatusOK, newLookupView(res.Protocol, res.Address, res.Status))
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	s.writeJSON(w, code, map[string]string{"error": err.Error()})
}
