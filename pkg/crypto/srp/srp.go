// Package srp wraps the SRP-6a password-authenticated key exchange used by
// both the HAP and the legacy AirPlay pair-setup flows.
//
// Protocol flow:
//
//	Client                               Server
//	------                               ------
//	NewClient(params, user, pin)         NewServer(params, user, pin)
//	                     <--salt, B---   Salt(), PublicKey()
//	ComputeKey(salt, B)
//	PublicKey(), Proof() ---A, M1--->    ComputeKey(A)
//	                                     VerifyClientProof(M1)
//	                     <----M2-----    Proof(M1)
//	VerifyServerProof(M2)
//	K = SessionKey()                     K = SessionKey()
package srp

import (
	"crypto/sha1"
	"crypto/sha512"
	"errors"
	"hash"

	tsrp "github.com/tadglines/go-pkgs/crypto/srp"
)

// Params selects the group and hash of an exchange.
type Params struct {
	Group      string
	Hash       func() hash.Hash
	SaltLength int
}

// HAPParams is SRP-6a over the 3072-bit RFC 5054 group with SHA-512.
var HAPParams = Params{
	Group:      "rfc5054.3072",
	Hash:       sha512.New,
	SaltLength: 16,
}

// LegacyParams is SRP-6a over the 2048-bit RFC 5054 group with SHA-1.
var LegacyParams = Params{
	Group:      "rfc5054.2048",
	Hash:       sha1.New,
	SaltLength: 16,
}

// Errors.
var (
	ErrInvalidState        = errors.New("srp: invalid protocol state for this operation")
	ErrInvalidPublicKey    = errors.New("srp: invalid peer public key")
	ErrServerProofMismatch = errors.New("srp: server proof mismatch")
	ErrClientProofMismatch = errors.New("srp: client proof mismatch")
)

type state int

const (
	stateInit state = iota
	stateKeyComputed
	stateVerified
)

func (p Params) newSRP(username []byte) (*tsrp.SRP, error) {
	s, err := tsrp.NewSRP(p.Group, p.Hash, rfc2945KDF(p.Hash, username))
	if err != nil {
		return nil, err
	}
	s.SaltLength = p.SaltLength
	return s, nil
}

// rfc2945KDF computes x = H(salt | H(username | ":" | password)).
func rfc2945KDF(h func() hash.Hash, username []byte) tsrp.KeyDerivationFunc {
	return func(salt, password []byte) []byte {
		h1 := h()
		h1.Write(username)
		h1.Write([]byte(":"))
		h1.Write(password)

		h2 := h()
		h2.Write(salt)
		h2.Write(h1.Sum(nil))
		return h2.Sum(nil)
	}
}

// Client is the initiating side of an exchange.
type Client struct {
	session *tsrp.ClientSession
	key     []byte
	state   state
}

// NewClient starts a client session for username and password.
func NewClient(p Params, username, password []byte) (*Client, error) {
	s, err := p.newSRP(username)
	if err != nil {
		return nil, err
	}
	return &Client{session: s.NewClientSession(username, password)}, nil
}

// PublicKey returns the client public value A.
func (c *Client) PublicKey() []byte {
	return c.session.GetA()
}

// ComputeKey derives the session key from the server salt and public value B.
func (c *Client) ComputeKey(salt, serverPublic []byte) ([]byte, error) {
	if c.state != stateInit {
		return nil, ErrInvalidState
	}
	key, err := c.session.ComputeKey(salt, serverPublic)
	if err != nil {
		return nil, ErrInvalidPublicKey
	}
	c.key = key
	c.state = stateKeyComputed
	return key, nil
}

// Proof returns the client proof M1.
func (c *Client) Proof() ([]byte, error) {
	if c.state == stateInit {
		return nil, ErrInvalidState
	}
	return c.session.ComputeAuthenticator(), nil
}

// VerifyServerProof checks the server proof M2.
func (c *Client) VerifyServerProof(proof []byte) error {
	if c.state == stateInit {
		return ErrInvalidState
	}
	if !c.session.VerifyServerAuthenticator(proof) {
		return ErrServerProofMismatch
	}
	c.state = stateVerified
	return nil
}

// SessionKey returns K, or nil before ComputeKey.
func (c *Client) SessionKey() []byte {
	return c.key
}

// Server is the responding side of an exchange.
type Server struct {
	session *tsrp.ServerSession
	salt    []byte
	key     []byte
	state   state
}

// NewServer creates a verifier for password with a fresh salt.
func NewServer(p Params, username, password []byte) (*Server, error) {
	s, err := p.newSRP(username)
	if err != nil {
		return nil, err
	}
	salt, verifier, err := s.ComputeVerifier(password)
	if err != nil {
		return nil, err
	}
	return &Server{
		session: s.NewServerSession(username, salt, verifier),
		salt:    salt,
	}, nil
}

// Salt returns the salt sent in the first server message.
func (s *Server) Salt() []byte {
	return s.salt
}

// PublicKey returns the server public value B.
func (s *Server) PublicKey() []byte {
	return s.session.GetB()
}

// ComputeKey derives the session key from the client public value A.
func (s *Server) ComputeKey(clientPublic []byte) ([]byte, error) {
	if s.state != stateInit {
		return nil, ErrInvalidState
	}
	key, err := s.session.ComputeKey(clientPublic)
	if err != nil {
		return nil, ErrInvalidPublicKey
	}
	s.key = key
	s.state = stateKeyComputed
	return key, nil
}

// VerifyClientProof checks the client proof M1.
func (s *Server) VerifyClientProof(proof []byte) error {
	if s.state == stateInit {
		return ErrInvalidState
	}
	if !s.session.VerifyClientAuthenticator(proof) {
		return ErrClientProofMismatch
	}
	s.state = stateVerified
	return nil
}

// Proof returns the server proof M2 for a verified client proof.
func (s *Server) Proof(clientProof []byte) ([]byte, error) {
	if s.state != stateVerified {
		return nil, ErrInvalidState
	}
	return s.session.ComputeAuthenticator(clientProof), nil
}

// SessionKey returns K, or nil before ComputeKey.
func (s *Server) SessionKey() []byte {
	return s.key
}
