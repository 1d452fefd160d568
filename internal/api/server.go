package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/hubdriver-core/internal/entity"
	"github.com/nerrad567/hubdriver-core/internal/infrastructure/config"
	"github.com/nerrad567/hubdriver-core/internal/infrastructure/logging"
	"github.com/nerrad567/hubdriver-core/internal/outbound"
	"github.com/nerrad567/hubdriver-core/internal/protocol"
	"github.com/nerrad567/hubdriver-core/internal/session"
	"github.com/nerrad567/hubdriver-core/internal/setup"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// APIVersion is the integration API version reported in driver_version.
const APIVersion = "0.20.0"

// Deps holds the dependencies required by the Server.
type Deps struct {
	Server   config.ServerConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Metadata *config.Metadata
	Version  string

	// RequestTimeout bounds driver-initiated requests. Zero selects
	// outbound.DefaultTimeout.
	RequestTimeout time.Duration

	// PacingDelay is waited before progress is reported for user data.
	PacingDelay time.Duration

	// SetupHandler drives the setup wizard. When nil the setup_driver and
	// setup_user_data signals are emitted instead.
	SetupHandler setup.Handler

	// Metrics receives the engine collectors. When nil a private registry
	// with Go runtime collectors is created.
	Metrics *prometheus.Registry

	// Backends are checked by /health, keyed by the name reported there.
	Backends map[string]HealthChecker
}

// HealthChecker is a backend whose status /health reports.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server is the protocol engine and its HTTP listener.
//
// It is created with New() and started with Start(). Handler() exposes the
// router without a listener, which is what tests use.
type Server struct {
	serverCfg config.ServerConfig
	wsCfg     config.WebSocketConfig
	logger    *logging.Logger
	metadata  *config.Metadata
	version   string
	startTime time.Time
	backends  map[string]HealthChecker

	available  *entity.Pool
	configured *entity.Pool
	sessions   *session.Registry
	requests   *outbound.Correlator
	setup      *setup.Flow
	signals    *signalBus
	metrics    *metrics
	reqTable   map[string]requestHandler
	eventTable map[string]SignalKind

	stateMu     sync.RWMutex
	deviceState protocol.DeviceState

	// ctx outlives individual requests; setup steps run under it.
	ctx    context.Context
	cancel context.CancelFunc

	server   *http.Server
	listener net.Listener
}

// New creates a new Server with the given dependencies.
//
// The listener is not opened until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Metadata == nil {
		return nil, fmt.Errorf("driver metadata is required")
	}

	wsCfg := deps.WS
	if wsCfg.Path == "" {
		wsCfg.Path = "/ws"
	}
	if wsCfg.PingInterval <= 0 {
		wsCfg.PingInterval = 30
	}
	if wsCfg.PongTimeout <= 0 {
		wsCfg.PongTimeout = 10
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		serverCfg:   deps.Server,
		wsCfg:       wsCfg,
		logger:      deps.Logger,
		metadata:    deps.Metadata,
		version:     deps.Version,
		startTime:   time.Now(),
		backends:    deps.Backends,
		deviceState: protocol.DeviceDisconnected,
		ctx:         ctx,
		cancel:      cancel,
	}

	s.available = entity.NewPool("available")
	s.available.SetLogger(deps.Logger.Component("entity"))
	s.configured = entity.NewPool("configured")
	s.configured.SetLogger(deps.Logger.Component("entity"))
	s.configured.OnChange(s.broadcastEntityChange)

	s.sessions = session.NewRegistry(session.Config{
		SendBuffer:   wsCfg.SendBuffer,
		WriteTimeout: time.Duration(wsCfg.PongTimeout) * time.Second,
		PingInterval: time.Duration(wsCfg.PingInterval) * time.Second,
	})
	s.sessions.SetLogger(deps.Logger.Component("session"))

	s.requests = outbound.NewCorrelator(s.sessions, deps.RequestTimeout)
	s.requests.SetLogger(deps.Logger.Component("outbound"))

	if deps.SetupHandler != nil {
		s.setup = setup.NewFlow(deps.SetupHandler, s, deps.PacingDelay)
		s.setup.SetLogger(deps.Logger.Component("setup"))
	}

	s.signals = newSignalBus(deps.Logger.Component("signals"))
	s.reqTable = s.requestHandlers()
	s.eventTable = eventSignals()

	m, err := newMetrics(deps.Metrics, s)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("registering metrics: %w", err)
	}
	s.metrics = m
	s.requests.SetOnTimeout(s.metrics.requestTimedOut)

	return s, nil
}

// Available returns the pool of entities the driver offers.
func (s *Server) Available() *entity.Pool { return s.available }

// Configured returns the pool of entities the hub subscribed to.
// Attribute updates go through Configured().UpdateAttributes.
func (s *Server) Configured() *entity.Pool { return s.configured }

// Sessions returns the session registry.
func (s *Server) Sessions() *session.Registry { return s.sessions }

// SetupState returns the wizard state, or setup.StateIdle when the legacy
// setup path is in use.
func (s *Server) SetupState() setup.State {
	if s.setup == nil {
		return setup.StateIdle
	}
	return s.setup.State()
}

// Handler returns the HTTP handler serving the hub endpoint.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start opens the listener and serves in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.serverCfg.Interface, s.serverCfg.Port)

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = ln

	// No Read/WriteTimeout: they would leak into hijacked WebSocket
	// connections, which manage their own deadlines.
	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadHeaderTimeout: time.Duration(s.serverCfg.Timeouts.ReadHeader) * time.Second,
		IdleTimeout:       time.Duration(s.serverCfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("hub endpoint server error", "error", err)
		}
	}()

	s.logger.Info("hub endpoint listening",
		"address", ln.Addr().String(),
		"path", s.wsCfg.Path,
	)
	return nil
}

// Addr returns the listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close stops the engine: pending driver requests fail with
// outbound.ErrClosed, running setup steps are cancelled, every session is
// closed and the listener shuts down.
func (s *Server) Close() error {
	s.cancel()
	s.requests.Close()
	s.sessions.CloseAll()

	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("hub endpoint shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down hub endpoint: %w", err)
	}
	return nil
}

// HealthCheck verifies the server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}

// DeviceState returns the last reported device state.
func (s *Server) DeviceState() protocol.DeviceState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.deviceState
}

// SetDeviceState records the device state and broadcasts a device_state
// event to every session.
func (s *Server) SetDeviceState(state protocol.DeviceState) {
	s.stateMu.Lock()
	s.deviceState = state
	s.stateMu.Unlock()

	s.logger.Info("device state changed", "state", state)
	s.broadcastEvent(protocol.EventDeviceState, protocol.CategoryDevice, protocol.DeviceStatePayload{State: state})
}

// broadcastEntityChange relays a configured-pool merge to every session.
func (s *Server) broadcastEntityChange(c entity.Change) {
	s.broadcastEvent(protocol.EventEntityChange, protocol.CategoryEntity, protocol.EntityChange{
		EntityID:   c.EntityID,
		EntityType: string(c.EntityType),
		Attributes: c.Attributes,
	})
}

// broadcastEvent sends an event frame to every session.
func (s *Server) broadcastEvent(msg string, cat protocol.Category, data any) {
	frame, err := protocol.NewEvent(msg, cat, data)
	if err != nil {
		s.logger.Error("failed to encode event", "msg", msg, "error", err)
		return
	}
	n := s.sessions.Broadcast(frame)
	s.metrics.eventSent(msg, n)
	s.logger.Debug("event broadcast", "msg", msg, "recipients", n)
}

// sendEvent sends an event frame to one session.
func (s *Server) sendEvent(sessionID, msg string, cat protocol.Category, data any) error {
	frame, err := protocol.NewEvent(msg, cat, data)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", msg, err)
	}
	if err := s.sessions.SendTo(sessionID, frame); err != nil {
		return err
	}
	s.metrics.eventSent(msg, 1)
	return nil
}

// respond sends a response frame to the session that sent reqID.
func (s *Server) respond(sessionID string, reqID uint64, msg string, code int, data any) {
	frame, err := protocol.NewResponse(reqID, msg, code, data)
	if err != nil {
		s.logger.Error("failed to encode response", "msg", msg, "req_id", reqID, "error", err)
		return
	}
	if err := s.sessions.SendTo(sessionID, frame); err != nil {
		s.logger.Debug("response not delivered", "session_id", sessionID, "msg", msg, "req_id", reqID, "error", err)
		return
	}
	s.metrics.responseSent(code)
}
