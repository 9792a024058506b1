package api

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grimm.is/iwaf/internal/audit"
	"grimm.is/iwaf/internal/brand"
	"grimm.is/iwaf/internal/console"
	"grimm.is/iwaf/internal/health"
	"grimm.is/iwaf/internal/i18n"
	"grimm.is/iwaf/internal/logging"
	"grimm.is/iwaf/internal/metrics"
	"grimm.is/iwaf/internal/ratelimit"
)

// ServerConfig holds HTTP server security configuration.
type ServerConfig struct {
	ReadHeaderTimeout time.Duration // Slowloris prevention
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodyBytes      int64

	// TLS, when set, serves HTTPS on the listener.
	TLS *tls.Config
}

// DefaultServerConfig returns secure default server configuration.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
		MaxBodyBytes:      1 << 20,
	}
}

// Server handles API requests.
type Server struct {
	console     *console.Console
	logger      *logging.Logger
	metrics     *metrics.Registry
	rateLimiter *ratelimit.Limiter
	wsManager   *WSManager
	health      *health.Checker
	audit       *audit.Store
	config      *ServerConfig
	startTime   time.Time
	httpServer  *http.Server

	mux *http.ServeMux
}

// ServerOptions holds dependencies for the API server
type ServerOptions struct {
	Console *console.Console
	Logger  *logging.Logger
	Metrics *metrics.Registry
	Config  *ServerConfig

	// Audit, when set, records every mutating API request.
	Audit *audit.Store

	// RateLimit throttles each client IP. A zero RequestsPerSecond disables
	// throttling.
	RateLimit ratelimit.Config
}

// NewServer creates a new API server with the provided options
func NewServer(opts ServerOptions) (*Server, error) {
	if opts.Console == nil {
		return nil, errors.New("api: console is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.WithComponent("api")
	reg := opts.Metrics
	if reg == nil {
		reg = metrics.Get()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultServerConfig()
	}

	s := &Server{
		console:   opts.Console,
		logger:    logger,
		metrics:   reg,
		config:    cfg,
		audit:     opts.Audit,
		startTime: opts.Console.Clock().Now(),
	}
	if opts.RateLimit.RequestsPerSecond > 0 {
		s.rateLimiter = ratelimit.NewLimiter(opts.RateLimit, opts.Console.Clock())
	}
	s.wsManager = NewWSManager(opts.Console.Hub(), logger, reg)

	s.health = health.NewChecker(opts.Console.Clock())
	s.health.Register("scheduler", health.SchedulerCheck(opts.Console.Tasks))
	s.health.Register("revisions", health.RevisionCheck(opts.Console.Revisions()))
	s.health.Register("events", health.EventsCheck(opts.Console.Hub()))

	s.initRoutes()
	return s, nil
}

func (s *Server) initRoutes() {
	mux := http.NewServeMux()

	// Overview
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/brand", s.handleBrand)
	mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/scheduler/status", s.handleSchedulerStatus)
	mux.HandleFunc("GET /api/scheduler/tasks/{id}", s.handleTaskStatus)
	mux.HandleFunc("POST /api/scheduler/tasks/{id}/run", s.handleRunTask)
	mux.HandleFunc("PUT /api/scheduler/tasks/{id}/enabled", s.handleEnableTask)

	// Configuration
	mux.HandleFunc("GET /api/config", s.handleConfig)
	mux.HandleFunc("GET /api/config/export", s.handleExportConfig)
	mux.HandleFunc("PUT /api/config/security", s.handleCommitSecurity)
	mux.HandleFunc("POST /api/config/security/reset", s.handleResetSecurity)
	mux.HandleFunc("PUT /api/config/ratelimit", s.handleCommitRateLimit)
	mux.HandleFunc("PUT /api/config/system", s.handleCommitSystem)
	mux.HandleFunc("PUT /api/config/enabled", s.handleSetEnabled)
	mux.HandleFunc("GET /api/config/revisions", s.handleRevisions)
	mux.HandleFunc("GET /api/config/revisions/{id}", s.handleRevision)
	mux.HandleFunc("GET /api/config/diff", s.handleConfigDiff)

	// IP lists
	mux.HandleFunc("GET /api/lists/{list}", s.handleGetList)
	mux.HandleFunc("POST /api/lists/{list}", s.handleAddToList)
	mux.HandleFunc("DELETE /api/lists/{list}/{ip}", s.handleRemoveFromList)
	mux.HandleFunc("GET /api/verdict/{ip}", s.handleVerdict)

	// Logs, stats, notifications
	mux.HandleFunc("GET /api/logs", s.handleLogs)
	mux.HandleFunc("POST /api/logs/refresh", s.handleRefreshLogs)
	mux.HandleFunc("DELETE /api/logs", s.handleClearLogs)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("PUT /api/stats/threat", s.handleSetThreat)
	mux.HandleFunc("GET /api/notifications", s.handleNotifications)
	mux.HandleFunc("DELETE /api/notifications/{id}", s.handleDismissNotification)

	// System
	mux.HandleFunc("POST /api/system/restart", s.handleRestart)
	mux.HandleFunc("GET /api/audit", s.handleAudit)

	// Live updates
	mux.HandleFunc("GET /api/ws", s.handleWS)

	// Health & metrics
	mux.HandleFunc("GET /healthz", s.health.Handler())
	mux.HandleFunc("GET /livez", health.LivenessHandler())
	mux.HandleFunc("GET /readyz", s.health.ReadinessHandler())
	mux.Handle("GET /metrics", s.metricsHandler())

	s.mux = mux
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	// The access log sits next to the mux so it sees the matched pattern.
	h := i18n.Middleware(s.loggingMiddleware(s.mux))
	if s.rateLimiter != nil {
		h = s.apiOnly(s.rateLimiter.Middleware(getClientIP, s.onThrottle), h)
	}
	return s.maxBodyMiddleware(s.config.MaxBodyBytes)(h)
}

// apiOnly applies mw to /api/ routes and leaves health and metrics alone.
func (s *Server) apiOnly(mw func(http.Handler) http.Handler, next http.Handler) http.Handler {
	wrapped := mw(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			wrapped.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) onThrottle(r *http.Request) {
	s.metrics.APIThrottled.Inc()
	s.logger.Warn("client throttled", "ip", getClientIP(r), "path", r.URL.Path)
}

// metricsHandler refreshes the uptime gauge before each scrape.
func (s *Server) metricsHandler() http.Handler {
	prom := promhttp.Handler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.metrics.Uptime.Set(s.console.Clock().Since(s.startTime).Seconds())
		prom.ServeHTTP(w, r)
	})
}

// Start listens on addr and serves until Shutdown.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ln)
}

// ServeListener serves the API on an existing listener.
func (s *Server) ServeListener(listener net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
		MaxHeaderBytes:    s.config.MaxHeaderBytes,
	}
	if s.rateLimiter != nil {
		s.rateLimiter.StartCleanup(5 * time.Minute)
	}
	scheme := "http"
	if s.config.TLS != nil {
		listener = tls.NewListener(listener, s.config.TLS)
		scheme = "https"
	}
	s.logger.Info("API server starting", "addr", listener.Addr().String(), "scheme", scheme)
	err := s.httpServer.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the HTTP server and closes websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.wsManager.Close()
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// maxBodyMiddleware limits the size of request bodies.
func (s *Server) maxBodyMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBytes <= 0 || r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > maxBytes {
				http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) handleBrand(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, brand.Get())
}

