package discovery

import (
	"fmt"
	"net"
	"sync"

	"github.com/grandcat/zeroconf"
	"github.com/pion/logging"
)

// MDNSServer is a live service registration.
type MDNSServer interface {
	Shutdown()
}

// MDNSServerFactory publishes a service and returns its registration.
type MDNSServerFactory interface {
	Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (MDNSServer, error)
}

type zeroconfServerFactory struct{}

func (zeroconfServerFactory) Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (MDNSServer, error) {
	return zeroconf.Register(instance, service, domain, port, txt, ifaces)
}

// AdvertiserConfig configures an Advertiser.
type AdvertiserConfig struct {
	// Interfaces limits where services are published. Default: all.
	Interfaces []net.Interface

	// ServerFactory publishes services. Default: grandcat/zeroconf.
	ServerFactory MDNSServerFactory

	LoggerFactory logging.LoggerFactory
}

type published struct {
	server   MDNSServer
	instance string
	port     int
}

// Advertiser publishes the services of a local device, at most one instance
// per service type. cmd/atvpair uses it to expose a fake device to scanners.
type Advertiser struct {
	ifaces  []net.Interface
	factory MDNSServerFactory
	log     logging.LeveledLogger

	mu     sync.Mutex
	live   map[ServiceType]published
	closed bool
}

// NewAdvertiser creates an Advertiser.
func NewAdvertiser(config AdvertiserConfig) *Advertiser {
	a := &Advertiser{
		ifaces:  config.Interfaces,
		factory: config.ServerFactory,
		live:    make(map[ServiceType]published),
	}
	if a.factory == nil {
		a.factory = zeroconfServerFactory{}
	}
	if config.LoggerFactory != nil {
		a.log = config.LoggerFactory.NewLogger("discovery")
	}
	return a
}

func checkAdvertisement(st ServiceType, instance string, port int) error {
	switch {
	case !st.IsValid():
		return ErrInvalidServiceType
	case instance == "":
		return ErrInvalidInstanceName
	case port < 1 || port > 0xffff:
		return ErrInvalidPort
	}
	return nil
}

// Advertise publishes instance under st with properties as TXT records.
func (a *Advertiser) Advertise(st ServiceType, instance string, port int, properties map[string]string) error {
	if err := checkAdvertisement(st, instance, port); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	if _, ok := a.live[st]; ok {
		return ErrAlreadyStarted
	}

	service := st.ServiceString()
	txt := EncodeTXT(properties)
	server, err := a.factory.Register(instance, service, DefaultDomain, port, txt, a.ifaces)
	if err != nil {
		return fmt.Errorf("discovery: publish %s: %w", service, err)
	}
	a.live[st] = published{server: server, instance: instance, port: port}

	if a.log != nil {
		a.log.Infof("advertising %q as %s on port %d", instance, service, port)
		a.log.Tracef("%s TXT: %v", service, txt)
	}
	return nil
}

// Registered returns the instance and port published for st.
func (a *Advertiser) Registered(st ServiceType) (instance string, port int, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.live[st]
	return p.instance, p.port, ok
}

// Stop withdraws the service published for st.
func (a *Advertiser) Stop(st ServiceType) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	p, ok := a.live[st]
	if !ok {
		return ErrNotStarted
	}
	p.server.Shutdown()
	delete(a.live, st)
	return nil
}

// Close withdraws every service. Later calls are no-ops.
func (a *Advertiser) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	for st, p := range a.live {
		p.server.Shutdown()
		delete(a.live, st)
	}
	return nil
}
