package crypto

import (
	"crypto/sha512"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HKDFKeySize is the size of keys derived for HAP sessions and pairing
// message encryption.
const HKDFKeySize = 32

// HKDFSHA512 derives key material using HKDF-SHA512 (RFC 5869).
// All HAP pairing and session keys are derived this way.
//
// Parameters:
//   - inputKey: Input keying material (IKM), e.g. an SRP or X25519 secret
//   - salt: Salt label (e.g. "Control-Salt")
//   - info: Info label (e.g. "Control-Write-Encryption-Key")
//   - length: Number of bytes to derive
func HKDFSHA512(inputKey, salt, info []byte, length int) ([]byte, error) {
	reader := hkdf.New(sha512.New, inputKey, salt, info)
	result := make([]byte, length)
	if _, err := io.ReadFull(reader, result); err != nil {
		return nil, err
	}
	return result, nil
}

// DeriveKey is HKDFSHA512 with string labels and a 32-byte output.
func DeriveKey(inputKey []byte, salt, info string) ([]byte, error) {
	return HKDFSHA512(inputKey, []byte(salt), []byte(info), HKDFKeySize)
}
