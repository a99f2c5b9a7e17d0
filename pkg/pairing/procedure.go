// Package pairing defines the pairing procedure contracts and the interactive
// handler that drives Pair-Setup and confirms the result with Pair-Verify.
package pairing

import (
	"context"
	"fmt"

	"github.com/backkem/mediapair/pkg/credentials"
)

// SetupProcedure performs Pair-Setup.
type SetupProcedure interface {
	// StartPairing sends the first handshake message. Afterwards the device
	// typically displays a PIN.
	StartPairing(ctx context.Context) error

	// FinishPairing completes the exchange using pin as the shared password
	// and returns the resulting credentials.
	FinishPairing(ctx context.Context, username, pin string) (*credentials.Credentials, error)
}

// VerifyProcedure performs Pair-Verify.
type VerifyProcedure interface {
	// VerifyCredentials runs the verify handshake and reports whether
	// encryption keys can be derived.
	VerifyCredentials(ctx context.Context) (bool, error)

	// EncryptionKeys derives the output and input keys for the given labels.
	// It returns ErrNotSupported before a successful verify.
	EncryptionKeys(salt, outputInfo, inputInfo string) (outputKey, inputKey []byte, err error)

	// Close releases secret material held by the procedure.
	Close()
}

// VerifierFactory builds a VerifyProcedure for credentials.
type VerifierFactory func(ctx context.Context, creds *credentials.Credentials) (VerifyProcedure, error)

// NullVerifyProcedure is used when a service needs no verification.
type NullVerifyProcedure struct{}

// VerifyCredentials always reports that no keys were produced.
func (NullVerifyProcedure) VerifyCredentials(context.Context) (bool, error) {
	return false, nil
}

// EncryptionKeys always fails with ErrNotSupported.
func (NullVerifyProcedure) EncryptionKeys(string, string, string) ([]byte, []byte, error) {
	return nil, nil, fmt.Errorf("%w: encryption keys from null verifier", ErrNotSupported)
}

// Close is a no-op.
func (NullVerifyProcedure) Close() {}

var _ VerifyProcedure = NullVerifyProcedure{}
