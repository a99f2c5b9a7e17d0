package credentials

// AuthenticationType identifies the pairing scheme a set of credentials
// belongs to. It selects both the Pair-Setup/Pair-Verify procedure and the
// key exchange engine variant.
type AuthenticationType uint8

const (
	// AuthNull means no authentication is performed at all.
	AuthNull AuthenticationType = iota
	// AuthLegacy is the legacy SRP-2048/SHA-1 pairing scheme.
	AuthLegacy
	// AuthHAP is HomeKit style pairing with persisted long-term keys.
	AuthHAP
	// AuthTransient is an ephemeral HAP exchange, repeated every session.
	AuthTransient
)

// String returns the tag used for the type in credential tokens.
func (a AuthenticationType) String() string {
	switch a {
	case AuthNull:
		return "null"
	case AuthLegacy:
		return "legacy"
	case AuthHAP:
		return "hap"
	case AuthTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// IsValid reports whether a is a known authentication type.
func (a AuthenticationType) IsValid() bool {
	return a <= AuthTransient
}

// ParseAuthenticationType maps a token tag back to its type.
func ParseAuthenticationType(tag string) (AuthenticationType, bool) {
	switch tag {
	case "null":
		return AuthNull, true
	case "legacy":
		return AuthLegacy, true
	case "hap":
		return AuthHAP, true
	case "transient":
		return AuthTransient, true
	default:
		return AuthNull, false
	}
}
