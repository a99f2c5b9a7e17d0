package discovery

import (
	"context"
	"net"
	"strings"
	"sync"

	"github.com/grandcat/zeroconf"
)

// MockMDNSResolver answers queries from registered entries without touching
// the network.
type MockMDNSResolver struct {
	mu      sync.RWMutex
	entries map[string][]*zeroconf.ServiceEntry
}

// NewMockMDNSResolver creates an empty mock.
func NewMockMDNSResolver() *MockMDNSResolver {
	return &MockMDNSResolver{entries: make(map[string][]*zeroconf.ServiceEntry)}
}

// RegisterService adds an answer for service, e.g. "_airplay._tcp".
func (m *MockMDNSResolver) RegisterService(service string, entry *zeroconf.ServiceEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[service] = append(m.entries[service], entry)
}

// ClearServices drops every registered answer.
func (m *MockMDNSResolver) ClearServices() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.entries)
}

func (m *MockMDNSResolver) snapshot(service string) []*zeroconf.ServiceEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*zeroconf.ServiceEntry(nil), m.entries[service]...)
}

func send(ctx context.Context, out chan<- *zeroconf.ServiceEntry, entry *zeroconf.ServiceEntry) error {
	select {
	case out <- entry:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Browse sends every entry registered for service.
func (m *MockMDNSResolver) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	for _, entry := range m.snapshot(service) {
		if err := send(ctx, entries, entry); err != nil {
			return err
		}
	}
	return nil
}

// Lookup sends the first entry registered for service with a matching
// instance name.
func (m *MockMDNSResolver) Lookup(ctx context.Context, instance, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	for _, entry := range m.snapshot(service) {
		if entry.Instance == instance {
			return send(ctx, entries, entry)
		}
	}
	return nil
}

func mockEntry(instance, service string, port int, ip net.IP, txt []string) *zeroconf.ServiceEntry {
	entry := zeroconf.NewServiceEntry(instance, service, DefaultDomain)
	entry.HostName = strings.ReplaceAll(instance, " ", "-") + ".local."
	entry.Port = port
	entry.Text = txt
	if ip.To4() != nil {
		entry.AddrIPv4 = []net.IP{ip}
	} else {
		entry.AddrIPv6 = []net.IP{ip}
	}
	return entry
}

// MockAirPlayService builds an _airplay._tcp answer.
func MockAirPlayService(name, deviceID, features string, port int, ip net.IP) *zeroconf.ServiceEntry {
	return mockEntry(name, ServiceAirPlay, port, ip, []string{
		"deviceid=" + deviceID,
		"features=" + features,
		"model=AppleTV6,2",
		"srcvers=670.6.2",
	})
}

// MockMRPService builds a _mediaremotetv._tcp answer.
func MockMRPService(name, uniqueID string, port int, ip net.IP) *zeroconf.ServiceEntry {
	return mockEntry(name, ServiceMRP, port, ip, []string{
		"Name=" + name,
		"UniqueIdentifier=" + uniqueID,
		"SystemBuildVersion=17K795",
	})
}

// MockRAOPService builds a _raop._tcp answer named "<id>@<name>".
func MockRAOPService(name, id string, port int, ip net.IP) *zeroconf.ServiceEntry {
	return mockEntry(id+"@"+name, ServiceRAOP, port, ip, []string{
		"am=AppleTV6,2",
		"pw=false",
	})
}
