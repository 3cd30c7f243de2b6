package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-grow/internal/action"
	"github.com/nerrad567/gray-logic-grow/internal/actionlog"
	"github.com/nerrad567/gray-logic-grow/internal/dispatch"
	"github.com/nerrad567/gray-logic-grow/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-grow/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-grow/internal/planner"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// PendingLister exposes the scheduler queue.
type PendingLister interface {
	Pending() []action.Entry
}

// StatsSource exposes dispatch counters.
type StatsSource interface {
	Stats() dispatch.Stats
}

// PlanSource exposes planner state. Only the daemon has one.
type PlanSource interface {
	LastPlan() *planner.Result
	NextPlan() (at, day time.Time)
}

// EntityLister exposes the registry ids.
type EntityLister interface {
	IDs() []string
}

// HealthChecker is implemented by the database and the MQTT and InfluxDB
// clients.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	Logger    *logging.Logger
	Scheduler PendingLister
	Log       actionlog.Reader
	Stats     StatsSource
	Planner   PlanSource // optional
	Entities  EntityLister
	Health    map[string]HealthChecker
	Version   string
}

// Server is the HTTP status server.
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	scheduler PendingLister
	log       actionlog.Reader
	stats     StatsSource
	planner   PlanSource
	entities  EntityLister
	health    map[string]HealthChecker
	version   string
	server    *http.Server
	listener  net.Listener
}

// New creates a new API server with the given dependencies. The server is
// not started until Start is called.
//
// Parameters:
//   - deps: Logger, Scheduler and Log are required; Planner and Health
//     may be empty
//
// Returns:
//   - *Server: Configured server, not yet listening
//   - error: If a required dependency is missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Scheduler == nil {
		return nil, fmt.Errorf("scheduler is required")
	}
	if deps.Log == nil {
		return nil, fmt.Errorf("action log reader is required")
	}

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		scheduler: deps.Scheduler,
		log:       deps.Log,
		stats:     deps.Stats,
		planner:   deps.Planner,
		entities:  deps.Entities,
		health:    deps.Health,
		version:   deps.Version,
	}, nil
}

// Start binds the listener and serves in a background goroutine.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.logger.Info("API server starting", "address", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
