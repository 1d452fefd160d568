// Package discovery announces the driver on the local network with mDNS so
// the hub can find it without manual configuration.
package discovery

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/enbility/zeroconf/v3"
)

// DefaultService is the DNS-SD service type browsed by the hub.
const DefaultService = "_uc-integration._tcp"

// DefaultDomain is the mDNS domain.
const DefaultDomain = "local."

// ErrNoInstance is returned by Start when no instance name is set.
var ErrNoInstance = errors.New("discovery: instance name is required")

// Info describes the advertised driver.
type Info struct {
	// Instance is the DNS-SD instance name, normally the driver id.
	Instance  string
	Port      int
	Name      string
	Version   string
	Developer string
	// WSPath is the WebSocket path served by the engine.
	WSPath string
}

// TXT returns the TXT records announced with the service.
func (i Info) TXT() []string {
	txt := []string{"name=" + i.Name, "ver=" + i.Version}
	if i.Developer != "" {
		txt = append(txt, "developer="+i.Developer)
	}
	if i.WSPath != "" {
		txt = append(txt, "ws_path="+i.WSPath)
	}
	return txt
}

// Config selects the service type, domain and interfaces.
type Config struct {
	Service string
	Domain  string
	// Interfaces limits the announcement to the named interfaces.
	// Empty means all multicast interfaces.
	Interfaces []string
}

// Logger defines the logging interface used by the Advertiser.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// registration is what Start keeps to stop the announcement.
type registration interface {
	Shutdown()
}

// registerFunc matches zeroconf.Register.
type registerFunc func(instance, service, domain string, port int, text []string, ifaces []net.Interface) (registration, error)

func zeroconfRegister(instance, service, domain string, port int, text []string, ifaces []net.Interface) (registration, error) {
	server, err := zeroconf.Register(instance, service, domain, port, text, ifaces)
	if err != nil {
		return nil, err
	}
	return server, nil
}

// Advertiser publishes one mDNS service record.
type Advertiser struct {
	cfg      Config
	logger   Logger
	register registerFunc

	mu     sync.Mutex
	server registration
}

// NewAdvertiser creates an advertiser. Empty fields of cfg take the defaults.
func NewAdvertiser(cfg Config) *Advertiser {
	if cfg.Service == "" {
		cfg.Service = DefaultService
	}
	if cfg.Domain == "" {
		cfg.Domain = DefaultDomain
	}
	return &Advertiser{cfg: cfg, logger: noopLogger{}, register: zeroconfRegister}
}

// SetLogger sets the logger for the advertiser.
func (a *Advertiser) SetLogger(logger Logger) {
	a.logger = logger
}

// Start announces the service, replacing a previous announcement.
func (a *Advertiser) Start(info Info) error {
	if info.Instance == "" {
		return ErrNoInstance
	}

	ifaces, err := a.interfaces()
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	server, err := a.register(info.Instance, a.cfg.Service, a.cfg.Domain, info.Port, info.TXT(), ifaces)
	if err != nil {
		return fmt.Errorf("registering mdns service: %w", err)
	}
	a.server = server

	a.logger.Info("mdns service published",
		"instance", info.Instance,
		"service", a.cfg.Service,
		"port", info.Port,
	)
	return nil
}

// Stop withdraws the announcement. Safe to call when not started.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
		a.logger.Info("mdns service withdrawn", "service", a.cfg.Service)
	}
}

// Active reports whether the service is currently announced.
func (a *Advertiser) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.server != nil
}

// interfaces resolves the configured interface names. nil means all.
func (a *Advertiser) interfaces() ([]net.Interface, error) {
	if len(a.cfg.Interfaces) == 0 {
		return nil, nil
	}
	ifaces := make([]net.Interface, 0, len(a.cfg.Interfaces))
	for _, name := range a.cfg.Interfaces {
		iface, err := net.InterfaceByName(name)
		if err != nil {
			return nil, fmt.Errorf("mdns interface %q: %w", name, err)
		}
		ifaces = append(ifaces, *iface)
	}
	return ifaces, nil
}
