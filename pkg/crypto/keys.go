package crypto

import (
	"crypto/ed25519"
	"errors"
	"io"

	"golang.org/x/crypto/curve25519"
)

// Key sizes.
const (
	// X25519KeySize is the size of X25519 scalars and points.
	X25519KeySize = curve25519.PointSize

	// Ed25519SeedSize is the size of an Ed25519 private key seed.
	Ed25519SeedSize = ed25519.SeedSize

	// Ed25519PublicKeySize is the size of an Ed25519 public key.
	Ed25519PublicKeySize = ed25519.PublicKeySize

	// Ed25519SignatureSize is the size of an Ed25519 signature.
	Ed25519SignatureSize = ed25519.SignatureSize
)

// Key errors.
var (
	ErrInvalidPublicKey = errors.New("crypto: invalid public key")
	ErrInvalidSeed      = errors.New("crypto: invalid Ed25519 seed")
)

// X25519KeyPair is an ephemeral Curve25519 Diffie-Hellman key pair.
type X25519KeyPair struct {
	private [X25519KeySize]byte
	public  [X25519KeySize]byte
}

// GenerateX25519 creates a key pair from r.
func GenerateX25519(r io.Reader) (*X25519KeyPair, error) {
	kp := &X25519KeyPair{}
	if _, err := io.ReadFull(r, kp.private[:]); err != nil {
		return nil, err
	}
	pub, err := curve25519.X25519(kp.private[:], curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	copy(kp.public[:], pub)
	return kp, nil
}

// PublicKey returns a copy of the public point.
func (kp *X25519KeyPair) PublicKey() []byte {
	out := make([]byte, X25519KeySize)
	copy(out, kp.public[:])
	return out
}

// SharedSecret computes the X25519 shared secret with a peer public key.
func (kp *X25519KeyPair) SharedSecret(peerPublic []byte) ([]byte, error) {
	if len(peerPublic) != X25519KeySize {
		return nil, ErrInvalidPublicKey
	}
	return curve25519.X25519(kp.private[:], peerPublic)
}

// Wipe zeroes the private scalar.
func (kp *X25519KeyPair) Wipe() {
	if kp == nil {
		return
	}
	Wipe(kp.private[:])
}

// GenerateEd25519Seed reads a fresh Ed25519 seed from r.
func GenerateEd25519Seed(r io.Reader) ([]byte, error) {
	seed := make([]byte, Ed25519SeedSize)
	if _, err := io.ReadFull(r, seed); err != nil {
		return nil, err
	}
	return seed, nil
}

// Ed25519FromSeed expands a seed into a signing key.
func Ed25519FromSeed(seed []byte) (ed25519.PrivateKey, error) {
	if len(seed) != Ed25519SeedSize {
		return nil, ErrInvalidSeed
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// Ed25519PublicKey returns the public half of a signing key.
func Ed25519PublicKey(key ed25519.PrivateKey) []byte {
	pub := key.Public().(ed25519.PublicKey)
	out := make([]byte, len(pub))
	copy(out, pub)
	return out
}

// Ed25519Sign signs the concatenation of parts.
func Ed25519Sign(key ed25519.PrivateKey, parts ...[]byte) []byte {
	return ed25519.Sign(key, concat(parts...))
}

// Ed25519Verify verifies a signature over the concatenation of parts.
func Ed25519Verify(publicKey, signature []byte, parts ...[]byte) bool {
	if len(publicKey) != Ed25519PublicKeySize {
		return false
	}
	return ed25519.Verify(publicKey, concat(parts...), signature)
}

func concat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
