// Package credentials models the key material produced by pairing and its
// persisted token form.
//
// A token is a colon separated string whose first field is the scheme tag:
//
//	null
//	transient
//	legacy:<hex identifier>:<hex seed>
//	hap:<hex ltpk>:<hex ltsk>:<hex device id>:<hex client id>
//
// Binary fields are lower-case hex. Tokens are only ever parsed under the
// scheme named by their tag.
package credentials

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/backkem/mediapair/pkg/crypto"
)

// Key sizes.
const (
	// PublicKeySize is the size of an Ed25519 public key.
	PublicKeySize = 32

	// SeedSize is the size of an Ed25519 private key seed.
	SeedSize = 32
)

const separator = ":"

// Credentials holds the result of a pairing.
//
// For AuthHAP, Identifier is the client pairing identifier, LongTermPublicKey
// is the device's Ed25519 public key, LongTermSecretKey the client's Ed25519
// seed and Extra the device pairing identifier.
//
// For AuthLegacy, Identifier is the SRP username and LongTermSecretKey the
// Ed25519 seed of the client authentication key. The other fields are empty.
//
// AuthNull and AuthTransient carry no key material.
type Credentials struct {
	Type              AuthenticationType
	Identifier        string
	LongTermPublicKey []byte
	LongTermSecretKey []byte
	Extra             []byte
}

// NoCredentials returns the sentinel for "authentication not performed".
func NoCredentials() *Credentials {
	return &Credentials{Type: AuthNull}
}

// TransientCredentials returns the sentinel for an ephemeral exchange that
// persists nothing.
func TransientCredentials() *Credentials {
	return &Credentials{Type: AuthTransient}
}

// NewHAP creates HAP credentials.
func NewHAP(ltpk, ltsk, deviceID []byte, clientID string) *Credentials {
	return &Credentials{
		Type:              AuthHAP,
		Identifier:        clientID,
		LongTermPublicKey: copyBytes(ltpk),
		LongTermSecretKey: copyBytes(ltsk),
		Extra:             copyBytes(deviceID),
	}
}

// NewLegacy creates legacy credentials.
func NewLegacy(identifier string, seed []byte) *Credentials {
	return &Credentials{
		Type:              AuthLegacy,
		Identifier:        identifier,
		LongTermSecretKey: copyBytes(seed),
	}
}

// Parse decodes a credential token.
func Parse(token string) (*Credentials, error) {
	if token == "" {
		return nil, parseError("", "empty token")
	}

	fields := strings.Split(token, separator)
	authType, ok := ParseAuthenticationType(fields[0])
	if !ok {
		return nil, parseError("", "unrecognized scheme %q", fields[0])
	}
	tag := fields[0]

	switch authType {
	case AuthNull, AuthTransient:
		if len(fields) != 1 {
			return nil, parseError(tag, "unexpected payload")
		}
		return &Credentials{Type: authType}, nil

	case AuthLegacy:
		if len(fields) != 3 {
			return nil, parseError(tag, "expected 2 fields, got %d", len(fields)-1)
		}
		decoded, err := decodeFields(tag, fields[1:])
		if err != nil {
			return nil, err
		}
		if len(decoded[0]) == 0 {
			return nil, parseError(tag, "missing identifier")
		}
		if len(decoded[1]) != SeedSize {
			return nil, parseError(tag, "seed must be %d bytes", SeedSize)
		}
		return NewLegacy(string(decoded[0]), decoded[1]), nil

	case AuthHAP:
		if len(fields) != 5 {
			return nil, parseError(tag, "expected 4 fields, got %d", len(fields)-1)
		}
		decoded, err := decodeFields(tag, fields[1:])
		if err != nil {
			return nil, err
		}
		if len(decoded[0]) != PublicKeySize {
			return nil, parseError(tag, "long-term public key must be %d bytes", PublicKeySize)
		}
		if len(decoded[1]) != SeedSize {
			return nil, parseError(tag, "long-term secret key must be %d bytes", SeedSize)
		}
		if len(decoded[2]) == 0 {
			return nil, parseError(tag, "missing device identifier")
		}
		if len(decoded[3]) == 0 {
			return nil, parseError(tag, "missing client identifier")
		}
		return NewHAP(decoded[0], decoded[1], decoded[2], string(decoded[3])), nil
	}

	return nil, parseError(tag, "unsupported scheme")
}

func decodeFields(tag string, fields []string) ([][]byte, error) {
	out := make([][]byte, len(fields))
	for i, f := range fields {
		b, err := hex.DecodeString(f)
		if err != nil {
			return nil, parseError(tag, "field %d is not hex", i+1)
		}
		out[i] = b
	}
	return out, nil
}

// String encodes the credentials as a token.
func (c *Credentials) String() string {
	if c == nil {
		return AuthNull.String()
	}

	switch c.Type {
	case AuthLegacy:
		return strings.Join([]string{
			c.Type.String(),
			hex.EncodeToString([]byte(c.Identifier)),
			hex.EncodeToString(c.LongTermSecretKey),
		}, separator)
	case AuthHAP:
		return strings.Join([]string{
			c.Type.String(),
			hex.EncodeToString(c.LongTermPublicKey),
			hex.EncodeToString(c.LongTermSecretKey),
			hex.EncodeToString(c.Extra),
			hex.EncodeToString([]byte(c.Identifier)),
		}, separator)
	default:
		return c.Type.String()
	}
}

// DeviceID returns the device pairing identifier of HAP credentials.
func (c *Credentials) DeviceID() string {
	return string(c.Extra)
}

// Validate checks that c carries the key material its scheme needs.
func (c *Credentials) Validate() error {
	invalid := func(reason string) error {
		return fmt.Errorf("%w: %s: %s", ErrInvalidCredentials, c.Type, reason)
	}
	switch c.Type {
	case AuthNull, AuthTransient:
		return nil
	case AuthLegacy:
		if c.Identifier == "" {
			return invalid("missing identifier")
		}
		if len(c.LongTermSecretKey) != SeedSize {
			return invalid("bad seed size")
		}
		return nil
	case AuthHAP:
		switch {
		case len(c.LongTermPublicKey) != PublicKeySize:
			return invalid("bad long-term public key size")
		case len(c.LongTermSecretKey) != SeedSize:
			return invalid("bad long-term secret key size")
		case len(c.Extra) == 0:
			return invalid("missing device identifier")
		case c.Identifier == "":
			return invalid("missing client identifier")
		}
		return nil
	}
	return invalid("unsupported scheme")
}

// IsSentinel reports whether c carries no persisted identity.
func (c *Credentials) IsSentinel() bool {
	return c.Type == AuthNull || c.Type == AuthTransient
}

// Equal reports whether c and other describe the same credentials.
func (c *Credentials) Equal(other *Credentials) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.Type == other.Type &&
		c.Identifier == other.Identifier &&
		bytes.Equal(c.LongTermPublicKey, other.LongTermPublicKey) &&
		bytes.Equal(c.LongTermSecretKey, other.LongTermSecretKey) &&
		bytes.Equal(c.Extra, other.Extra)
}

// Clone returns a deep copy.
func (c *Credentials) Clone() *Credentials {
	if c == nil {
		return nil
	}
	return &Credentials{
		Type:              c.Type,
		Identifier:        c.Identifier,
		LongTermPublicKey: copyBytes(c.LongTermPublicKey),
		LongTermSecretKey: copyBytes(c.LongTermSecretKey),
		Extra:             copyBytes(c.Extra),
	}
}

// Wipe zeroes the secret key in place.
func (c *Credentials) Wipe() {
	if c == nil {
		return
	}
	crypto.Wipe(c.LongTermSecretKey)
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
