// Package crypto provides the cryptographic primitives used by pairing and
// session encryption: HKDF, SHA-512 labels, AES-CTR/GCM for the legacy
// scheme, ChaCha20-Poly1305 for HAP, X25519 and Ed25519 keys.
package crypto

import "crypto/sha512"

// SHA512Size is the SHA-512 output length in bytes.
const SHA512Size = sha512.Size

// SHA512 computes the SHA-512 digest of the concatenation of parts.
func SHA512(parts ...[]byte) []byte {
	h := sha512.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// SHA512Label computes SHA-512(label || key). The legacy scheme derives its
// AES keys and IVs this way and truncates to 16 bytes.
func SHA512Label(label string, key []byte) []byte {
	return SHA512([]byte(label), key)
}
