// Package conf models discovered devices and their per-protocol services.
package conf

import (
	"fmt"
	"net"
	"strings"
	"sync"
)

// Device is a media device with one service per protocol.
type Device struct {
	address   net.IP
	name      string
	deepSleep bool

	mu       sync.RWMutex
	services map[Protocol]*Service
}

// NewDevice creates a device without services.
func NewDevice(address net.IP, name string, deepSleep bool) *Device {
	return &Device{
		address:   address,
		name:      name,
		deepSleep: deepSleep,
		services:  make(map[Protocol]*Service),
	}
}

// Address returns the device IP address.
func (d *Device) Address() net.IP {
	return d.address
}

// Name returns the device name.
func (d *Device) Name() string {
	return d.name
}

// DeepSleep reports whether the device was discovered while asleep.
func (d *Device) DeepSleep() bool {
	return d.deepSleep
}

// AddService adds a service, merging it into an existing one of the same
// protocol.
func (d *Device) AddService(s *Service) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, ok := d.services[s.Protocol()]; ok {
		existing.Merge(s)
		return
	}
	d.services[s.Protocol()] = s
}

// Service returns the service for protocol, or nil.
func (d *Device) Service(protocol Protocol) *Service {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.services[protocol]
}

// Services returns all services in protocol order.
func (d *Device) Services() []*Service {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Service, 0, len(d.services))
	for _, p := range Protocols {
		if s, ok := d.services[p]; ok {
			out = append(out, s)
		}
	}
	return out
}

// MainService returns the service to connect to. With no protocols given,
// MRP, DMAP, AirPlay and RAOP are tried in that order.
func (d *Device) MainService(protocols ...Protocol) (*Service, error) {
	if len(protocols) == 0 {
		protocols = mainProtocols
	}
	for _, p := range protocols {
		if s := d.Service(p); s != nil {
			return s, nil
		}
	}
	return nil, ErrNoService
}

// SetCredentials stores a credential token on the protocol's service. It
// reports false when the device has no such service.
func (d *Device) SetCredentials(protocol Protocol, token string) bool {
	s := d.Service(protocol)
	if s == nil {
		return false
	}
	s.SetCredentials(token)
	return true
}

// Identifier returns the main identifier of the device, or "".
func (d *Device) Identifier() string {
	for _, p := range mainProtocols {
		if s := d.Service(p); s != nil {
			return s.Identifier()
		}
	}
	return ""
}

// AllIdentifiers returns every known service identifier.
func (d *Device) AllIdentifiers() []string {
	var ids []string
	for _, s := range d.Services() {
		if id := s.Identifier(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Ready reports whether at least one service has an identifier.
func (d *Device) Ready() bool {
	return len(d.AllIdentifiers()) > 0
}

// String returns a multi-line description.
func (d *Device) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "       Name: %s\n", d.name)
	fmt.Fprintf(&b, "    Address: %s\n", d.address)
	fmt.Fprintf(&b, " Deep Sleep: %t\n", d.deepSleep)
	b.WriteString("Identifiers:\n")
	for _, id := range d.AllIdentifiers() {
		fmt.Fprintf(&b, " - %s\n", id)
	}
	b.WriteString("Services:\n")
	for _, s := range d.Services() {
		fmt.Fprintf(&b, " - %s\n", s)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
