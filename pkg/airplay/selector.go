package airplay

import (
	"github.com/backkem/mediapair/pkg/credentials"
	"github.com/backkem/mediapair/pkg/pairing"
)

// SelectAuthentication decides the authentication scheme for a service. A
// stored credential token wins; otherwise the advertised features choose
// between transient pairing and no authentication.
func SelectAuthentication(service pairing.Service) (credentials.AuthenticationType, error) {
	creds, err := ExtractCredentials(service)
	if err != nil {
		return credentials.AuthNull, err
	}
	return creds.Type, nil
}

// ExtractCredentials returns the credentials to present for a service: the
// parsed stored token, the transient sentinel when the device supports
// system or core-utils pairing, or the no-credentials sentinel.
func ExtractCredentials(service pairing.Service) (*credentials.Credentials, error) {
	if token := service.Credentials(); token != "" {
		return credentials.Parse(token)
	}

	transient, err := supportsTransient(service.Properties())
	if err != nil {
		return nil, err
	}
	if transient {
		return credentials.TransientCredentials(), nil
	}
	return credentials.NoCredentials(), nil
}
