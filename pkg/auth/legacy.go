package auth

import (
	"crypto/ed25519"
	"encoding/hex"
	"io"
	"strings"

	"github.com/backkem/mediapair/pkg/credentials"
	"github.com/backkem/mediapair/pkg/crypto"
	"github.com/backkem/mediapair/pkg/crypto/srp"
)

// Legacy key derivation labels.
const (
	LegacySetupAESKey  = "Pair-Setup-AES-Key"
	LegacySetupAESIV   = "Pair-Setup-AES-IV"
	LegacyVerifyAESKey = "Pair-Verify-AES-Key"
	LegacyVerifyAESIV  = "Pair-Verify-AES-IV"
)

// Legacy Pair-Verify message headers.
var (
	legacyVerifyStart  = []byte{0x01, 0x00, 0x00, 0x00}
	legacyVerifyFinish = []byte{0x00, 0x00, 0x00, 0x00}
)

// LegacyVerifyResponseSize is the length of the device's Pair-Verify reply:
// its X25519 public key followed by an encrypted signature.
const LegacyVerifyResponseSize = crypto.X25519KeySize + crypto.Ed25519SignatureSize

// NewLegacyCredentials generates a fresh identifier and authentication seed.
func NewLegacyCredentials(r io.Reader) (*credentials.Credentials, error) {
	id := make([]byte, 8)
	if _, err := io.ReadFull(r, id); err != nil {
		return nil, err
	}
	seed, err := crypto.GenerateEd25519Seed(r)
	if err != nil {
		return nil, err
	}
	return credentials.NewLegacy(strings.ToUpper(hex.EncodeToString(id)), seed), nil
}

// LegacyEngine performs the client side of legacy AirPlay pairing.
type LegacyEngine struct {
	rand  io.Reader
	creds *credentials.Credentials

	authKey   ed25519.PrivateKey
	verifyKey *crypto.X25519KeyPair

	srp    *srp.Client
	shared []byte
}

// NewLegacyEngine binds an engine to legacy credentials.
func NewLegacyEngine(creds *credentials.Credentials, r io.Reader) (*LegacyEngine, error) {
	if creds == nil || creds.Type != credentials.AuthLegacy {
		return nil, ErrWrongCredentials
	}
	return &LegacyEngine{rand: r, creds: creds.Clone()}, nil
}

// Credentials returns the credentials the engine authenticates with.
func (e *LegacyEngine) Credentials() *credentials.Credentials {
	return e.creds
}

// Initialize expands the authentication key and generates the ephemeral
// verify key.
func (e *LegacyEngine) Initialize() error {
	authKey, err := crypto.Ed25519FromSeed(e.creds.LongTermSecretKey)
	if err != nil {
		return err
	}
	verifyKey, err := crypto.GenerateX25519(e.rand)
	if err != nil {
		return err
	}
	e.authKey = authKey
	e.verifyKey = verifyKey
	return nil
}

// AuthPublicKey returns the Ed25519 authentication public key.
func (e *LegacyEngine) AuthPublicKey() []byte {
	if e.authKey == nil {
		return nil
	}
	return crypto.Ed25519PublicKey(e.authKey)
}

// Step1 starts the SRP session for the credential identifier and PIN.
func (e *LegacyEngine) Step1(pin string) error {
	if e.authKey == nil {
		return ErrNotInitialized
	}
	client, err := srp.NewClient(srp.LegacyParams, []byte(e.creds.Identifier), []byte(pin))
	if err != nil {
		return err
	}
	e.srp = client
	return nil
}

// Step2 processes the device public value and salt and returns the client
// public value and proof.
func (e *LegacyEngine) Step2(serverPublic, salt []byte) (publicKey, proof []byte, err error) {
	if e.srp == nil {
		return nil, nil, ErrInvalidState
	}
	if _, err := e.srp.ComputeKey(salt, serverPublic); err != nil {
		return nil, nil, err
	}
	proof, err = e.srp.Proof()
	if err != nil {
		return nil, nil, err
	}
	return e.srp.PublicKey(), proof, nil
}

// VerifyServerProof checks the device proof.
func (e *LegacyEngine) VerifyServerProof(proof []byte) error {
	if e.srp == nil {
		return ErrInvalidState
	}
	return e.srp.VerifyServerProof(proof)
}

// Step3 encrypts the authentication public key under the SRP session key and
// returns the ciphertext and GCM tag.
func (e *LegacyEngine) Step3() (epk, authTag []byte, err error) {
	if e.srp == nil || e.srp.SessionKey() == nil {
		return nil, nil, ErrInvalidState
	}
	key, iv := LegacySetupKeys(e.srp.SessionKey())
	defer crypto.WipeAll(key, iv)
	return crypto.SealGCM(key, iv, e.AuthPublicKey())
}

// LegacySetupKeys derives the AES-GCM key and IV used in the last setup step.
func LegacySetupKeys(sessionKey []byte) (key, iv []byte) {
	key = crypto.SHA512Label(LegacySetupAESKey, sessionKey)[:crypto.AESKeySize]
	iv = crypto.SHA512Label(LegacySetupAESIV, sessionKey)[:crypto.AESIVSize]
	iv[len(iv)-1]++
	return key, iv
}

// LegacyVerifyKeys derives the AES-CTR key and IV from the verify secret.
func LegacyVerifyKeys(shared []byte) (key, iv []byte) {
	key = crypto.SHA512Label(LegacyVerifyAESKey, shared)[:crypto.AESKeySize]
	iv = crypto.SHA512Label(LegacyVerifyAESIV, shared)[:crypto.AESIVSize]
	return key, iv
}

// VerifyStart returns the first Pair-Verify message.
func (e *LegacyEngine) VerifyStart() ([]byte, error) {
	if e.verifyKey == nil {
		return nil, ErrNotInitialized
	}
	msg := make([]byte, 0, len(legacyVerifyStart)+2*crypto.X25519KeySize)
	msg = append(msg, legacyVerifyStart...)
	msg = append(msg, e.verifyKey.PublicKey()...)
	msg = append(msg, e.AuthPublicKey()...)
	return msg, nil
}

// Verify2 processes the device reply and returns the final Pair-Verify
// message carrying the encrypted client signature.
func (e *LegacyEngine) Verify2(devicePublic, encrypted []byte) ([]byte, error) {
	if e.verifyKey == nil {
		return nil, ErrNotInitialized
	}
	shared, err := e.verifyKey.SharedSecret(devicePublic)
	if err != nil {
		return nil, err
	}

	key, iv := LegacyVerifyKeys(shared)
	defer crypto.WipeAll(key, iv)
	stream, err := crypto.NewAESCTR(key, iv)
	if err != nil {
		return nil, err
	}

	// The device data occupies the start of the keystream.
	stream.XOR(encrypted)

	signature := crypto.Ed25519Sign(e.authKey, e.verifyKey.PublicKey(), devicePublic)
	msg := make([]byte, 0, len(legacyVerifyFinish)+len(signature))
	msg = append(msg, legacyVerifyFinish...)
	msg = append(msg, stream.XOR(signature)...)

	e.shared = shared
	return msg, nil
}

// EncryptionKeys derives session keys from the verify secret.
func (e *LegacyEngine) EncryptionKeys(salt, outputInfo, inputInfo string) ([]byte, []byte, error) {
	return deriveKeyPair(e.shared, salt, outputInfo, inputInfo)
}

// Wipe zeroes all secret material held by the engine.
func (e *LegacyEngine) Wipe() {
	crypto.Wipe(e.authKey)
	e.verifyKey.Wipe()
	crypto.Wipe(e.shared)
	e.shared = nil
	e.srp = nil
	e.creds.Wipe()
}
