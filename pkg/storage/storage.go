// Package storage persists pairing credentials per device and protocol.
//
// Tokens are validated with credentials.Parse before they are stored, so a
// store never hands back a token the pairing code cannot read. Null and
// transient tokens are not stored.
package storage

import (
	"errors"
	"fmt"
	"sort"

	"github.com/backkem/mediapair/pkg/conf"
	"github.com/backkem/mediapair/pkg/credentials"
)

// Store errors.
var (
	// ErrNotFound is returned when no credential is stored for a key.
	ErrNotFound = errors.New("storage: credential not found")
	// ErrInvalidKey is returned for an empty device identifier or unknown protocol.
	ErrInvalidKey = errors.New("storage: invalid key")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("storage: closed")
	// ErrNothingToStore is returned for null and transient tokens, which
	// carry no key material.
	ErrNothingToStore = errors.New("storage: credentials carry no keys")
)

// Entry is one stored credential.
type Entry struct {
	DeviceID string
	Protocol conf.Protocol
	Token    string
}

// Scheme returns the token tag, e.g. "hap".
func (e Entry) Scheme() string {
	c, err := credentials.Parse(e.Token)
	if err != nil {
		return "invalid"
	}
	return c.Type.String()
}

// CredentialStore stores credential tokens keyed by device identifier and
// protocol. Implementations are safe for concurrent use.
type CredentialStore interface {
	Load(deviceID string, protocol conf.Protocol) (string, error)
	Save(deviceID string, protocol conf.Protocol, token string) error
	Delete(deviceID string, protocol conf.Protocol) error
	List() ([]Entry, error)
	Close() error
}

func validate(deviceID string, protocol conf.Protocol) error {
	if deviceID == "" || protocol.String() == "Unknown" {
		return ErrInvalidKey
	}
	return nil
}

func validateToken(token string) error {
	c, err := credentials.Parse(token)
	if err != nil {
		return fmt.Errorf("storage: refusing to save: %w", err)
	}
	if c.IsSentinel() {
		return fmt.Errorf("%w: %s", ErrNothingToStore, c.Type)
	}
	return nil
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].DeviceID != entries[j].DeviceID {
			return entries[i].DeviceID < entries[j].DeviceID
		}
		return entries[i].Protocol < entries[j].Protocol
	})
}

// Apply copies stored credentials onto the services of d. Each service is
// looked up under every identifier of the device, main identifier first.
// It returns the number of services updated.
func Apply(store CredentialStore, d *conf.Device) (int, error) {
	ids := d.AllIdentifiers()
	if main := d.Identifier(); main != "" {
		ids = append([]string{main}, ids...)
	}

	applied := 0
	for _, s := range d.Services() {
		for _, id := range ids {
			token, err := store.Load(id, s.Protocol())
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return applied, err
			}
			s.SetCredentials(token)
			applied++
			break
		}
	}
	return applied, nil
}
