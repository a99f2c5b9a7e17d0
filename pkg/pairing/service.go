package pairing

// Service is the view of a service record consumed by pairing.
type Service interface {
	// Identifier returns the unique identifier of the service.
	Identifier() string

	// Credentials returns the stored credential token, or "" when none is
	// stored.
	Credentials() string

	// SetCredentials replaces the stored credential token.
	SetCredentials(token string)

	// Port returns the service port.
	Port() int

	// Properties returns the advertised service properties.
	Properties() map[string]string
}
