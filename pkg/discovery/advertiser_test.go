package discovery

import (
	"errors"
	"net"
	"sync"
	"testing"
)

type mockServer struct {
	mu       sync.Mutex
	shutdown bool
}

func (m *mockServer) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdown = true
}

type registration struct {
	instance, service string
	port              int
	txt               []string
}

type mockFactory struct {
	mu      sync.Mutex
	regs    []registration
	servers []*mockServer
	err     error
}

func (f *mockFactory) Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (MDNSServer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.regs = append(f.regs, registration{instance, service, port, txt})
	s := &mockServer{}
	f.servers = append(f.servers, s)
	return s, nil
}

func TestAdvertiser(t *testing.T) {
	factory := &mockFactory{}
	a := NewAdvertiser(AdvertiserConfig{ServerFactory: factory})

	props := map[string]string{"deviceid": "AA:BB:CC:DD:EE:FF", "features": "0x18000000"}
	if err := a.Advertise(ServiceTypeAirPlay, "Fake", 7000, props); err != nil {
		t.Fatalf("Advertise failed: %v", err)
	}
	if err := a.Advertise(ServiceTypeAirPlay, "Fake", 7000, props); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Advertise = %v, want ErrAlreadyStarted", err)
	}
	if instance, port, ok := a.Registered(ServiceTypeAirPlay); !ok || instance != "Fake" || port != 7000 {
		t.Errorf("Registered = %q, %d, %t", instance, port, ok)
	}

	reg := factory.regs[0]
	if reg.service != ServiceAirPlay || reg.port != 7000 || len(reg.txt) != 2 {
		t.Errorf("unexpected registration %+v", reg)
	}

	if err := a.Stop(ServiceTypeAirPlay); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !factory.servers[0].shutdown {
		t.Error("server not shut down")
	}
	if err := a.Stop(ServiceTypeAirPlay); !errors.Is(err, ErrNotStarted) {
		t.Errorf("second Stop = %v, want ErrNotStarted", err)
	}
	if _, _, ok := a.Registered(ServiceTypeAirPlay); ok {
		t.Error("stopped service still registered")
	}

	if err := a.Advertise(ServiceTypeRAOP, "x@Fake", 7000, nil); err != nil {
		t.Fatalf("Advertise RAOP failed: %v", err)
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !factory.servers[1].shutdown {
		t.Error("Close left RAOP server running")
	}
	if err := a.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
	if err := a.Advertise(ServiceTypeRAOP, "x@Fake", 7000, nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Advertise after Close = %v, want ErrClosed", err)
	}
}

func TestAdvertiserValidation(t *testing.T) {
	a := NewAdvertiser(AdvertiserConfig{ServerFactory: &mockFactory{}})

	tests := []struct {
		st       ServiceType
		instance string
		port     int
		want     error
	}{
		{ServiceTypeUnknown, "x", 7000, ErrInvalidServiceType},
		{ServiceTypeAirPlay, "", 7000, ErrInvalidInstanceName},
		{ServiceTypeAirPlay, "x", 0, ErrInvalidPort},
		{ServiceTypeAirPlay, "x", 70000, ErrInvalidPort},
	}
	for _, tt := range tests {
		if err := a.Advertise(tt.st, tt.instance, tt.port, nil); !errors.Is(err, tt.want) {
			t.Errorf("Advertise(%s, %q, %d) = %v, want %v", tt.st, tt.instance, tt.port, err, tt.want)
		}
	}

	failing := NewAdvertiser(AdvertiserConfig{ServerFactory: &mockFactory{err: errors.New("boom")}})
	if err := failing.Advertise(ServiceTypeAirPlay, "x", 7000, nil); err == nil {
		t.Error("factory error not propagated")
	}
}
