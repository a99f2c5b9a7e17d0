// Package auth implements the key exchange engines behind AirPlay pairing.
//
// HAPEngine drives HAP Pair-Setup (SRP-6a with SHA-512 followed by an Ed25519
// identity exchange), HAP Pair-Verify (X25519 with signed ephemeral keys) and
// the transient variant that keys the session directly from the SRP secret.
// LegacyEngine drives the older AirPlay pairing built on SRP-6a with SHA-1,
// AES-GCM and AES-CTR.
//
// An engine holds the state of exactly one attempt. Call Wipe once the
// derived session keys have been installed.
package auth

import (
	"crypto/ed25519"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/backkem/mediapair/pkg/credentials"
	"github.com/backkem/mediapair/pkg/crypto"
	"github.com/backkem/mediapair/pkg/crypto/srp"
)

// HAP key derivation labels.
const (
	SetupEncryptSalt   = "Pair-Setup-Encrypt-Salt"
	SetupEncryptInfo   = "Pair-Setup-Encrypt-Info"
	ControllerSignSalt = "Pair-Setup-Controller-Sign-Salt"
	ControllerSignInfo = "Pair-Setup-Controller-Sign-Info"
	AccessorySignSalt  = "Pair-Setup-Accessory-Sign-Salt"
	AccessorySignInfo  = "Pair-Setup-Accessory-Sign-Info"
	VerifyEncryptSalt  = "Pair-Verify-Encrypt-Salt"
	VerifyEncryptInfo  = "Pair-Verify-Encrypt-Info"
	SetupUsername      = "Pair-Setup"
	TransientPIN       = "3939"
	NonceSetupM5       = "PS-Msg05"
	NonceSetupM6       = "PS-Msg06"
	NonceVerifyM2      = "PV-Msg02"
	NonceVerifyM3      = "PV-Msg03"
)

// HAPEngine performs the client side of HAP pairing.
type HAPEngine struct {
	rand io.Reader

	pairingID  string
	signingKey ed25519.PrivateKey
	verifyKey  *crypto.X25519KeyPair

	srp    *srp.Client
	shared []byte
}

// NewHAPEngine creates an engine that draws randomness from r.
func NewHAPEngine(r io.Reader) *HAPEngine {
	return &HAPEngine{rand: r}
}

// Initialize generates the client pairing identifier, long-term signing key
// and ephemeral verify key.
func (e *HAPEngine) Initialize() error {
	id, err := uuid.NewRandomFromReader(e.rand)
	if err != nil {
		return err
	}
	seed, err := crypto.GenerateEd25519Seed(e.rand)
	if err != nil {
		return err
	}
	signingKey, err := crypto.Ed25519FromSeed(seed)
	crypto.Wipe(seed)
	if err != nil {
		return err
	}
	verifyKey, err := crypto.GenerateX25519(e.rand)
	if err != nil {
		return err
	}

	e.pairingID = strings.ToUpper(id.String())
	e.signingKey = signingKey
	e.verifyKey = verifyKey
	return nil
}

// PairingID returns the client pairing identifier sent during Pair-Setup.
func (e *HAPEngine) PairingID() string {
	return e.pairingID
}

// VerifyPublicKey returns the ephemeral X25519 public key for Pair-Verify M1.
func (e *HAPEngine) VerifyPublicKey() []byte {
	if e.verifyKey == nil {
		return nil
	}
	return e.verifyKey.PublicKey()
}

// Step1 starts the SRP session with the PIN as password.
func (e *HAPEngine) Step1(pin string) error {
	if e.verifyKey == nil {
		return ErrNotInitialized
	}
	client, err := srp.NewClient(srp.HAPParams, []byte(SetupUsername), []byte(pin))
	if err != nil {
		return err
	}
	e.srp = client
	return nil
}

// Step2 processes Pair-Setup M2 and returns the public value and proof for M3.
func (e *HAPEngine) Step2(salt, serverPublic []byte) (publicKey, proof []byte, err error) {
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

// VerifyServerProof checks the Pair-Setup M4 proof. On success the SRP
// session key becomes the shared secret, which is what transient pairing
// keys the session from.
func (e *HAPEngine) VerifyServerProof(proof []byte) error {
	if e.srp == nil {
		return ErrInvalidState
	}
	if err := e.srp.VerifyServerProof(proof); err != nil {
		return err
	}
	e.shared = append([]byte(nil), e.srp.SessionKey()...)
	return nil
}

// Step3 checks the M4 proof and returns the encrypted data for M5.
func (e *HAPEngine) Step3(serverProof []byte) ([]byte, error) {
	if err := e.VerifyServerProof(serverProof); err != nil {
		return nil, err
	}
	key := e.srp.SessionKey()

	deviceX, err := crypto.DeriveKey(key, ControllerSignSalt, ControllerSignInfo)
	if err != nil {
		return nil, err
	}
	public := crypto.Ed25519PublicKey(e.signingKey)
	signature := crypto.Ed25519Sign(e.signingKey, deviceX, []byte(e.pairingID), public)

	plain, err := Encode(ExchangeInfo{
		Identifier: e.pairingID,
		PublicKey:  public,
		Signature:  signature,
	})
	if err != nil {
		return nil, err
	}

	sessionKey, err := crypto.DeriveKey(key, SetupEncryptSalt, SetupEncryptInfo)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(sessionKey)
	return crypto.SealPairingMessage(sessionKey, NonceSetupM5, plain)
}

// Step4 decrypts Pair-Setup M6, verifies the device signature and returns the
// resulting long-term credentials.
func (e *HAPEngine) Step4(encrypted []byte) (*credentials.Credentials, error) {
	if e.srp == nil || e.srp.SessionKey() == nil {
		return nil, ErrInvalidState
	}
	key := e.srp.SessionKey()

	sessionKey, err := crypto.DeriveKey(key, SetupEncryptSalt, SetupEncryptInfo)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(sessionKey)

	plain, err := crypto.OpenPairingMessage(sessionKey, NonceSetupM6, encrypted)
	if err != nil {
		return nil, err
	}
	var info ExchangeInfo
	if err := DecodeInto(plain, &info); err != nil {
		return nil, err
	}
	if info.Identifier == "" || len(info.PublicKey) != crypto.Ed25519PublicKeySize {
		return nil, ErrMalformedMessage
	}

	accessoryX, err := crypto.DeriveKey(key, AccessorySignSalt, AccessorySignInfo)
	if err != nil {
		return nil, err
	}
	if !crypto.Ed25519Verify(info.PublicKey, info.Signature, accessoryX, []byte(info.Identifier), info.PublicKey) {
		return nil, ErrSignatureInvalid
	}

	return credentials.NewHAP(
		info.PublicKey,
		e.signingKey.Seed(),
		[]byte(info.Identifier),
		e.pairingID,
	), nil
}

// Verify1 processes Pair-Verify M2 against stored credentials and returns the
// encrypted data for M3.
func (e *HAPEngine) Verify1(creds *credentials.Credentials, devicePublic, encrypted []byte) ([]byte, error) {
	if e.verifyKey == nil {
		return nil, ErrNotInitialized
	}
	if creds == nil || creds.Type != credentials.AuthHAP {
		return nil, ErrWrongCredentials
	}

	shared, err := e.verifyKey.SharedSecret(devicePublic)
	if err != nil {
		return nil, err
	}
	sessionKey, err := crypto.DeriveKey(shared, VerifyEncryptSalt, VerifyEncryptInfo)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(sessionKey)

	plain, err := crypto.OpenPairingMessage(sessionKey, NonceVerifyM2, encrypted)
	if err != nil {
		return nil, err
	}
	var info VerifyInfo
	if err := DecodeInto(plain, &info); err != nil {
		return nil, err
	}
	if info.Identifier != creds.DeviceID() {
		return nil, ErrIdentifierMismatch
	}

	clientPublic := e.verifyKey.PublicKey()
	if !crypto.Ed25519Verify(creds.LongTermPublicKey, info.Signature, devicePublic, []byte(info.Identifier), clientPublic) {
		return nil, ErrSignatureInvalid
	}

	signingKey, err := crypto.Ed25519FromSeed(creds.LongTermSecretKey)
	if err != nil {
		return nil, err
	}
	signature := crypto.Ed25519Sign(signingKey, clientPublic, []byte(creds.Identifier), devicePublic)
	crypto.Wipe(signingKey)

	reply, err := Encode(VerifyInfo{Identifier: creds.Identifier, Signature: signature})
	if err != nil {
		return nil, err
	}
	sealed, err := crypto.SealPairingMessage(sessionKey, NonceVerifyM3, reply)
	if err != nil {
		return nil, err
	}

	e.shared = shared
	return sealed, nil
}

// EncryptionKeys derives the output and input session keys from the shared
// secret with HKDF-SHA512.
func (e *HAPEngine) EncryptionKeys(salt, outputInfo, inputInfo string) ([]byte, []byte, error) {
	return deriveKeyPair(e.shared, salt, outputInfo, inputInfo)
}

// Wipe zeroes all secret material held by the engine.
func (e *HAPEngine) Wipe() {
	crypto.Wipe(e.signingKey)
	e.verifyKey.Wipe()
	crypto.Wipe(e.shared)
	e.shared = nil
	e.srp = nil
}

func deriveKeyPair(shared []byte, salt, outputInfo, inputInfo string) ([]byte, []byte, error) {
	if len(shared) == 0 {
		return nil, nil, ErrNoSharedSecret
	}
	output, err := crypto.DeriveKey(shared, salt, outputInfo)
	if err != nil {
		return nil, nil, err
	}
	input, err := crypto.DeriveKey(shared, salt, inputInfo)
	if err != nil {
		return nil, nil, err
	}
	return output, input, nil
}
