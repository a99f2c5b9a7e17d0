// Package airplay binds the pairing procedures to AirPlay devices.
//
// It selects the authentication scheme for a service, builds the Pair-Setup
// and Pair-Verify procedures that speak to the device over HTTP, and
// upgrades a verified connection to encrypted framing.
//
// Procedure variants:
//
//	AuthHAP        HAPSetupProcedure, HAPVerifyProcedure
//	AuthLegacy     LegacySetupProcedure, LegacyVerifyProcedure
//	AuthTransient  TransientVerifyProcedure (no Pair-Setup)
//	AuthNull       pairing.NullVerifyProcedure (no Pair-Setup)
package airplay

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pion/logging"

	"github.com/backkem/mediapair/pkg/auth"
	"github.com/backkem/mediapair/pkg/credentials"
	"github.com/backkem/mediapair/pkg/crypto"
	"github.com/backkem/mediapair/pkg/pairing"
	"github.com/backkem/mediapair/pkg/session"
	"github.com/backkem/mediapair/pkg/transport"
)

// Control channel key derivation labels.
const (
	ControlSalt       = "Control-Salt"
	ControlOutputInfo = "Control-Write-Encryption-Key"
	ControlInputInfo  = "Control-Read-Encryption-Key"
)

// Pairing endpoints.
const (
	pathPairPinStart = "/pair-pin-start"
	pathPairSetup    = "/pair-setup"
	pathPairVerify   = "/pair-verify"
	pathPairSetupPin = "/pair-setup-pin"
)

// X-Apple-HKP values.
const (
	hkpHAP       = "3"
	hkpTransient = "4"
)

const (
	contentTypeOctetStream = "application/octet-stream"
	contentTypePlist       = "application/x-apple-binary-plist"
)

// PairingConfig configures the procedures built by this package.
type PairingConfig struct {
	// AuthType selects the Pair-Setup scheme used by NewPairingHandler.
	// Default: credentials.AuthHAP.
	AuthType credentials.AuthenticationType

	// Timeout bounds dialing and each handler operation.
	// Default: pairing.DefaultTimeout.
	Timeout time.Duration

	// Rand is the randomness source for key generation.
	// Default: crypto/rand.
	Rand io.Reader

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// WithDefaults returns a copy of the config with zero values replaced.
func (c PairingConfig) WithDefaults() PairingConfig {
	if c.AuthType == credentials.AuthNull {
		c.AuthType = credentials.AuthHAP
	}
	if c.Timeout <= 0 {
		c.Timeout = pairing.DefaultTimeout
	}
	if c.Rand == nil {
		c.Rand = rand.Reader
	}
	return c
}

func (c PairingConfig) logger() logging.LeveledLogger {
	if c.LoggerFactory == nil {
		return nil
	}
	return c.LoggerFactory.NewLogger("airplay-auth")
}

// PairSetup returns the Pair-Setup procedure for authType. Transient and
// null schemes have no Pair-Setup and yield pairing.ErrNotSupported.
func PairSetup(authType credentials.AuthenticationType, conn *transport.HTTPConn, config PairingConfig) (pairing.SetupProcedure, error) {
	config = config.WithDefaults()

	switch authType {
	case credentials.AuthLegacy:
		creds, err := auth.NewLegacyCredentials(config.Rand)
		if err != nil {
			return nil, err
		}
		engine, err := auth.NewLegacyEngine(creds, config.Rand)
		creds.Wipe()
		if err != nil {
			return nil, err
		}
		if err := engine.Initialize(); err != nil {
			return nil, err
		}
		return &LegacySetupProcedure{conn: conn, engine: engine, log: config.logger()}, nil

	case credentials.AuthHAP:
		engine := auth.NewHAPEngine(config.Rand)
		if err := engine.Initialize(); err != nil {
			return nil, err
		}
		return &HAPSetupProcedure{conn: conn, engine: engine, log: config.logger()}, nil
	}

	return nil, fmt.Errorf("%w: pair-setup for %s credentials", pairing.ErrNotSupported, authType)
}

// PairVerify returns the Pair-Verify procedure for creds. Any scheme other
// than null, legacy and HAP is verified transiently. Legacy and HAP
// credentials missing key material fail with ErrInvalidCredentials.
func PairVerify(creds *credentials.Credentials, conn *transport.HTTPConn, config PairingConfig) (pairing.VerifyProcedure, error) {
	config = config.WithDefaults()
	if creds == nil {
		creds = credentials.NoCredentials()
	}

	switch creds.Type {
	case credentials.AuthNull:
		return pairing.NullVerifyProcedure{}, nil

	case credentials.AuthLegacy:
		if err := creds.Validate(); err != nil {
			return nil, err
		}
		engine, err := auth.NewLegacyEngine(creds, config.Rand)
		if err != nil {
			return nil, err
		}
		if err := engine.Initialize(); err != nil {
			return nil, err
		}
		return &LegacyVerifyProcedure{conn: conn, engine: engine, log: config.logger()}, nil

	case credentials.AuthHAP:
		if err := creds.Validate(); err != nil {
			return nil, err
		}
		engine := auth.NewHAPEngine(config.Rand)
		if err := engine.Initialize(); err != nil {
			return nil, err
		}
		return &HAPVerifyProcedure{
			conn:   conn,
			engine: engine,
			creds:  creds.Clone(),
			log:    config.logger(),
		}, nil
	}

	engine := auth.NewHAPEngine(config.Rand)
	if err := engine.Initialize(); err != nil {
		return nil, err
	}
	return &TransientVerifyProcedure{conn: conn, engine: engine, log: config.logger()}, nil
}

// VerifyConnection runs Pair-Verify on conn and, when keys result, switches
// the connection to encrypted framing in one step. The returned verifier can
// derive further keys and must be closed by the caller.
func VerifyConnection(ctx context.Context, creds *credentials.Credentials, conn *transport.HTTPConn, config PairingConfig) (pairing.VerifyProcedure, error) {
	verifier, err := PairVerify(creds, conn, config)
	if err != nil {
		return nil, err
	}

	ok, err := verifier.VerifyCredentials(ctx)
	if err != nil {
		verifier.Close()
		return nil, err
	}
	if !ok {
		return verifier, nil
	}

	output, input, err := verifier.EncryptionKeys(ControlSalt, ControlOutputInfo, ControlInputInfo)
	if err != nil {
		verifier.Close()
		return nil, err
	}
	hs, err := session.NewHAPSession(output, input)
	crypto.WipeAll(output, input)
	if err != nil {
		verifier.Close()
		return nil, err
	}
	if err := conn.Conn().SetProcessors(hs.Encrypt, hs.Decrypt); err != nil {
		hs.Wipe()
		verifier.Close()
		return nil, err
	}

	if log := config.logger(); log != nil {
		log.Debugf("connection encrypted with %s credentials", creds.Type)
	}
	return verifier, nil
}

func hapHeader(hkp string) http.Header {
	h := http.Header{}
	h.Set("Connection", "keep-alive")
	h.Set("X-Apple-HKP", hkp)
	h.Set("Content-Type", contentTypeOctetStream)
	return h
}

// postTLV sends a TLV8 message and decodes the reply, surfacing device error
// codes as *auth.DeviceError.
func postTLV(ctx context.Context, conn *transport.HTTPConn, path, hkp string, msg interface{}) (*auth.Message, error) {
	body, err := auth.Encode(msg)
	if err != nil {
		return nil, err
	}
	resp, err := conn.Post(ctx, path, hapHeader(hkp), body)
	if err != nil {
		return nil, err
	}
	reply, err := auth.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrMalformedMessage, err)
	}
	if err := auth.CheckError(reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func errNotVerified(variant string) error {
	return fmt.Errorf("%w: encryption keys before %s verify", pairing.ErrNotSupported, variant)
}
