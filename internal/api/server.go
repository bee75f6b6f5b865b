package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/PradhanJi-16/nexus-grid-visor/internal/arbitration"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/command"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/infrastructure/config"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/infrastructure/logging"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/journal"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/junction"
)

// gracefulShutdownTimeout bounds how long Close waits for in-flight requests.
const gracefulShutdownTimeout = 10 * time.Second

// WebSocket channels.
const (
	ChannelControlEvent  = "control.event"
	ChannelJunctionState = "junction.state"
)

// Engine is the read side of the arbitration engine.
type Engine interface {
	JunctionState(junctionID string) (arbitration.Snapshot, error)
	Snapshots() []arbitration.Snapshot
	ActivePreemptions() []arbitration.ActivePreemption
}

// Commands executes overrides and preemptions. *command.Dispatcher
// satisfies it.
type Commands interface {
	Override(cmd command.OverrideCommand) (*arbitration.OverrideRequest, error)
	CancelOverride(requestID, junctionID, source string) error
	Preempt(cmd command.PreemptionCommand) (*arbitration.PreemptionRequest, error)
	CancelPreemption(requestID, preemptionID, source string) error
}

// Catalogue describes the signal network. *junction.Table satisfies it.
type Catalogue interface {
	Junction(id string) (junction.Junction, error)
	Corridors() []junction.Corridor
	VehicleTypes() []junction.VehicleType
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	Security  config.SecurityConfig
	Logger    *logging.Logger
	Engine    Engine
	Commands  Commands
	Catalogue Catalogue          // optional: names and corridors
	Journal   journal.Repository // optional: GET /events
	Status    StatusFunc         // optional: extra fields for /metrics
	Version   string
}

// Server is the HTTP API server.
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	secCfg    config.SecurityConfig
	logger    *logging.Logger
	engine    Engine
	commands  Commands
	catalogue Catalogue
	journal   journal.Repository
	status    StatusFunc
	version   string
	startTime time.Time
	tickets   *ticketStore
	hub       *Hub

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	cancel   context.CancelFunc
}

// New creates a server. It is not listening until Start.
//
// Returns:
//   - error: if the logger, engine or commands are missing, or auth is
//     enabled without a JWT secret
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if deps.Commands == nil {
		return nil, fmt.Errorf("commands are required")
	}
	if deps.Security.Auth.Enabled && deps.Security.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required when auth is enabled")
	}

	hub := NewHub(deps.WS, deps.Logger)
	hub.snapshots = deps.Engine.Snapshots

	return &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		secCfg:    deps.Security,
		logger:    deps.Logger,
		engine:    deps.Engine,
		commands:  deps.Commands,
		catalogue: deps.Catalogue,
		journal:   deps.Journal,
		status:    deps.Status,
		version:   deps.Version,
		startTime: time.Now(),
		tickets:   newTicketStore(),
		hub:       hub,
	}, nil
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub { return s.hub }

// Emit broadcasts an engine event on the control.event channel. It makes
// the server an arbitration.EventSink.
func (s *Server) Emit(ev arbitration.Event) {
	s.hub.PublishEvent(ev)
}

// ObserveTick broadcasts the tick's snapshots on the junction.state
// channel. It has the arbitration.TickObserver signature.
func (s *Server) ObserveTick(_ context.Context, _ time.Time, snapshots []arbitration.Snapshot) {
	if s.hub.ClientCount() == 0 {
		return
	}
	s.hub.PublishSnapshots(snapshots)
}

// Start binds the listener and serves in the background.
//
// Returns:
//   - error: if the address cannot be bound
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding API listener on %s: %w", addr, err)
	}

	srvCtx, cancel := context.WithCancel(ctx)
	go s.hub.Run(srvCtx)
	go s.tickets.cleanLoop(srvCtx)

	srv := &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       s.timeout(s.cfg.Timeouts.Read),
		ReadHeaderTimeout: s.timeout(s.cfg.Timeouts.Read),
		WriteTimeout:      s.timeout(s.cfg.Timeouts.Write),
		IdleTimeout:       s.timeout(s.cfg.Timeouts.Idle),
	}

	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS", "address", ln.Addr().String(), "cert", s.cfg.TLS.CertFile)
			err = srv.ServeTLS(ln, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", ln.Addr().String())
			err = srv.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

func (s *Server) timeout(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close stops background goroutines and shuts the server down, waiting
// up to 10 seconds for in-flight requests.
func (s *Server) Close() error {
	s.mu.Lock()
	srv, cancel := s.server, s.cancel
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if cancel != nil {
		cancel()
	}

	ctx, done := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer done()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck reports an error until Start has succeeded.
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}
	if s.Addr() == "" {
		return fmt.Errorf("api server not started")
	}
	return nil
}
