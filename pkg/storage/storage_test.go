package storage

import (
	"bytes"
	"errors"
	"net"
	"path/filepath"
	"testing"

	"github.com/backkem/mediapair/pkg/conf"
	"github.com/backkem/mediapair/pkg/credentials"
)

var (
	hapToken    = credentials.NewHAP(bytes.Repeat([]byte{1}, 32), bytes.Repeat([]byte{2}, 32), []byte("AA:BB:CC:DD:EE:FF"), "client-1").String()
	legacyToken = credentials.NewLegacy("0123456789ABCDEF", bytes.Repeat([]byte{3}, 32)).String()
)

func openStores(t *testing.T) map[string]CredentialStore {
	t.Helper()
	bs, err := OpenBolt(BoltConfig{Path: filepath.Join(t.TempDir(), "sub", "creds.db")})
	if err != nil {
		t.Fatalf("OpenBolt failed: %v", err)
	}
	t.Cleanup(func() { bs.Close() })
	return map[string]CredentialStore{
		"memory": NewMemoryStore(),
		"bolt":   bs,
	}
}

func TestStoreLifecycle(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Load("dev-1", conf.ProtocolAirPlay); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Load on empty store = %v, want ErrNotFound", err)
			}

			if err := store.Save("dev-1", conf.ProtocolAirPlay, hapToken); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			if err := store.Save("dev-1", conf.ProtocolRAOP, legacyToken); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			if err := store.Save("dev-0", conf.ProtocolAirPlay, legacyToken); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			got, err := store.Load("dev-1", conf.ProtocolAirPlay)
			if err != nil || got != hapToken {
				t.Fatalf("Load = %q, %v", got, err)
			}

			entries, err := store.List()
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			want := []struct {
				id     string
				p      conf.Protocol
				scheme string
			}{
				{"dev-0", conf.ProtocolAirPlay, "legacy"},
				{"dev-1", conf.ProtocolAirPlay, "hap"},
				{"dev-1", conf.ProtocolRAOP, "legacy"},
			}
			if len(entries) != len(want) {
				t.Fatalf("List returned %d entries, want %d", len(entries), len(want))
			}
			for i, w := range want {
				e := entries[i]
				if e.DeviceID != w.id || e.Protocol != w.p || e.Scheme() != w.scheme {
					t.Errorf("entry %d = %s/%s/%s, want %s/%s/%s", i, e.DeviceID, e.Protocol, e.Scheme(), w.id, w.p, w.scheme)
				}
			}

			if err := store.Save("dev-1", conf.ProtocolAirPlay, legacyToken); err != nil {
				t.Fatalf("overwrite failed: %v", err)
			}
			if got, _ := store.Load("dev-1", conf.ProtocolAirPlay); got != legacyToken {
				t.Errorf("overwrite not visible, got %q", got)
			}

			if err := store.Delete("dev-0", conf.ProtocolAirPlay); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if err := store.Delete("dev-0", conf.ProtocolAirPlay); !errors.Is(err, ErrNotFound) {
				t.Errorf("second Delete = %v, want ErrNotFound", err)
			}
			if entries, _ := store.List(); len(entries) != 2 {
				t.Errorf("List after Delete has %d entries", len(entries))
			}
		})
	}
}

func TestStoreRejectsBadInput(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Save("", conf.ProtocolAirPlay, hapToken); !errors.Is(err, ErrInvalidKey) {
				t.Errorf("empty id = %v", err)
			}
			if err := store.Save("dev", conf.Protocol(99), hapToken); !errors.Is(err, ErrInvalidKey) {
				t.Errorf("unknown protocol = %v", err)
			}
			err := store.Save("dev", conf.ProtocolAirPlay, "hap:zz")
			if !errors.Is(err, credentials.ErrInvalidCredentials) {
				t.Errorf("bad token = %v, want ErrInvalidCredentials", err)
			}
			for _, token := range []string{"transient", "null"} {
				if err := store.Save("dev", conf.ProtocolAirPlay, token); !errors.Is(err, ErrNothingToStore) {
					t.Errorf("Save(%q) = %v, want ErrNothingToStore", token, err)
				}
			}
			if _, err := store.Load("dev", conf.ProtocolAirPlay); !errors.Is(err, ErrNotFound) {
				t.Errorf("rejected token was stored: %v", err)
			}
		})
	}
}

func TestStoreClosed(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			store.Close()
			if err := store.Save("dev", conf.ProtocolAirPlay, hapToken); !errors.Is(err, ErrClosed) {
				t.Errorf("Save after Close = %v", err)
			}
			if _, err := store.List(); !errors.Is(err, ErrClosed) {
				t.Errorf("List after Close = %v", err)
			}
		})
	}
}

func TestBoltPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.db")
	s, err := OpenBolt(BoltConfig{Path: path})
	if err != nil {
		t.Fatalf("OpenBolt failed: %v", err)
	}
	if err := s.Save("dev-1", conf.ProtocolMRP, hapToken); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	s.Close()

	s, err = OpenBolt(BoltConfig{Path: path})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()
	if got, err := s.Load("dev-1", conf.ProtocolMRP); err != nil || got != hapToken {
		t.Errorf("Load after reopen = %q, %v", got, err)
	}
}

func TestApply(t *testing.T) {
	store := NewMemoryStore()
	d := conf.NewDevice(net.ParseIP("10.0.0.2"), "Living Room", false)
	d.AddService(conf.NewService(conf.ProtocolMRP, "mrp-id", 49152, nil))
	d.AddService(conf.NewService(conf.ProtocolAirPlay, "AA:BB:CC:DD:EE:FF", 7000, nil))
	d.AddService(conf.NewService(conf.ProtocolRAOP, "AABBCCDDEEFF", 7000, nil))

	// AirPlay stored under the main identifier, RAOP under its own.
	store.Save("mrp-id", conf.ProtocolAirPlay, hapToken)
	store.Save("AABBCCDDEEFF", conf.ProtocolRAOP, legacyToken)
	store.Save("someone-else", conf.ProtocolMRP, hapToken)

	n, err := Apply(store, d)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if n != 2 {
		t.Errorf("applied %d, want 2", n)
	}
	if got := d.Service(conf.ProtocolAirPlay).Credentials(); got != hapToken {
		t.Errorf("AirPlay credentials = %q", got)
	}
	if got := d.Service(conf.ProtocolRAOP).Credentials(); got != legacyToken {
		t.Errorf("RAOP credentials = %q", got)
	}
	if got := d.Service(conf.ProtocolMRP).Credentials(); got != "" {
		t.Errorf("MRP credentials = %q, want none", got)
	}
}
