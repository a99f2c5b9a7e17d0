package conf

import (
	"fmt"
	"maps"
	"sync"

	"github.com/backkem/mediapair/pkg/pairing"
)

// Service describes one protocol endpoint of a device.
type Service struct {
	protocol Protocol
	port     int

	mu          sync.RWMutex
	identifier  string
	credentials string
	password    string
	properties  map[string]string
}

// NewService creates a service. A zero port selects the protocol default.
func NewService(protocol Protocol, identifier string, port int, properties map[string]string) *Service {
	if port == 0 {
		port = protocol.DefaultPort()
	}
	props := make(map[string]string, len(properties))
	maps.Copy(props, properties)
	return &Service{
		protocol:   protocol,
		port:       port,
		identifier: identifier,
		properties: props,
	}
}

// Protocol returns the service protocol.
func (s *Service) Protocol() Protocol {
	return s.protocol
}

// Identifier returns the unique identifier, or "" if unknown.
func (s *Service) Identifier() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identifier
}

// Port returns the service port.
func (s *Service) Port() int {
	return s.port
}

// Credentials returns the stored credential token.
func (s *Service) Credentials() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credentials
}

// SetCredentials replaces the stored credential token.
func (s *Service) SetCredentials(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials = token
}

// Password returns the service password, used by RAOP.
func (s *Service) Password() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.password
}

// SetPassword sets the service password.
func (s *Service) SetPassword(password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.password = password
}

// Properties returns a copy of the advertised properties.
func (s *Service) Properties() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.properties)
}

// Merge folds other into s. Credentials and password from other win when
// set; properties are combined.
func (s *Service) Merge(other *Service) {
	if other == nil || other == s {
		return
	}
	other.mu.RLock()
	identifier, creds, password := other.identifier, other.credentials, other.password
	props := maps.Clone(other.properties)
	other.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identifier == "" {
		s.identifier = identifier
	}
	if creds != "" {
		s.credentials = creds
	}
	if password != "" {
		s.password = password
	}
	maps.Copy(s.properties, props)
}

// String returns a one line summary.
func (s *Service) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	str := fmt.Sprintf("Protocol: %s, Port: %d, Credentials: %s", s.protocol, s.port, credentialTag(s.credentials))
	if s.protocol == ProtocolRAOP {
		str += fmt.Sprintf(", Password: %t", s.password != "")
	}
	return str
}

func credentialTag(token string) string {
	if token == "" {
		return "None"
	}
	for i := 0; i < len(token); i++ {
		if token[i] == ':' {
			return token[:i]
		}
	}
	return token
}

var _ pairing.Service = (*Service)(nil)
