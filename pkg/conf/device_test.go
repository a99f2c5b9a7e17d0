package conf

import (
	"errors"
	"net"
	"strings"
	"testing"
)

func TestProtocolString(t *testing.T) {
	for _, p := range Protocols {
		parsed, ok := ParseProtocol(strings.ToLower(p.String()))
		if !ok || parsed != p {
			t.Errorf("ParseProtocol(%q) = %v, %v", p.String(), parsed, ok)
		}
	}
	if _, ok := ParseProtocol("carrier-pigeon"); ok {
		t.Error("unknown protocol parsed")
	}
}

func TestServiceDefaults(t *testing.T) {
	s := NewService(ProtocolAirPlay, "id", 0, nil)
	if s.Port() != 7000 {
		t.Errorf("Port() = %d", s.Port())
	}
	if s.Properties() == nil {
		t.Error("Properties() = nil")
	}
}

func TestServiceMerge(t *testing.T) {
	a := NewService(ProtocolAirPlay, "", 7000, map[string]string{"features": "0x1"})
	a.SetCredentials("transient")
	b := NewService(ProtocolAirPlay, "AA:BB", 7000, map[string]string{"model": "AppleTV6,2"})

	a.Merge(b)
	if a.Identifier() != "AA:BB" {
		t.Errorf("Identifier() = %q", a.Identifier())
	}
	if a.Credentials() != "transient" {
		t.Errorf("credentials overwritten by empty: %q", a.Credentials())
	}
	props := a.Properties()
	if props["features"] != "0x1" || props["model"] != "AppleTV6,2" {
		t.Errorf("properties = %v", props)
	}

	b.SetCredentials("null")
	a.Merge(b)
	if a.Credentials() != "null" {
		t.Errorf("credentials not merged: %q", a.Credentials())
	}
}

func TestDeviceServices(t *testing.T) {
	d := NewDevice(net.ParseIP("10.0.0.2"), "Living Room", false)

	if d.Ready() {
		t.Error("empty device is ready")
	}
	if _, err := d.MainService(); !errors.Is(err, ErrNoService) {
		t.Errorf("MainService() error = %v", err)
	}
	if d.SetCredentials(ProtocolAirPlay, "null") {
		t.Error("SetCredentials on missing service returned true")
	}

	d.AddService(NewService(ProtocolRAOP, "raop-id", 0, nil))
	d.AddService(NewService(ProtocolAirPlay, "airplay-id", 0, nil))
	d.AddService(NewService(ProtocolAirPlay, "", 0, map[string]string{"features": "0x5A7FFFF7,0x1E"}))

	if len(d.Services()) != 2 {
		t.Fatalf("Services() = %d", len(d.Services()))
	}
	if got := d.Service(ProtocolAirPlay).Properties()["features"]; got != "0x5A7FFFF7,0x1E" {
		t.Errorf("duplicate service not merged: %q", got)
	}

	main, err := d.MainService()
	if err != nil || main.Protocol() != ProtocolAirPlay {
		t.Errorf("MainService() = %v, %v", main, err)
	}
	if d.Identifier() != "airplay-id" {
		t.Errorf("Identifier() = %q", d.Identifier())
	}
	if ids := d.AllIdentifiers(); len(ids) != 2 || ids[0] != "airplay-id" || ids[1] != "raop-id" {
		t.Errorf("AllIdentifiers() = %v", ids)
	}

	if !d.SetCredentials(ProtocolAirPlay, "transient") {
		t.Error("SetCredentials returned false")
	}
	if !strings.Contains(d.String(), "Credentials: transient") {
		t.Errorf("String() = %q", d.String())
	}
}
