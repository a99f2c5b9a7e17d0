package airplay

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pion/logging"
	"howett.net/plist"

	"github.com/backkem/mediapair/pkg/auth"
	"github.com/backkem/mediapair/pkg/credentials"
	"github.com/backkem/mediapair/pkg/crypto"
	"github.com/backkem/mediapair/pkg/pairing"
	"github.com/backkem/mediapair/pkg/transport"
)

// Legacy /pair-setup-pin bodies.
type (
	legacyPinRequest struct {
		Method string `plist:"method"`
		User   string `plist:"user"`
	}
	legacyPinResponse struct {
		PublicKey []byte `plist:"pk"`
		Salt      []byte `plist:"salt"`
	}
	legacyProofRequest struct {
		PublicKey []byte `plist:"pk"`
		Proof     []byte `plist:"proof"`
	}
	legacyProofResponse struct {
		Proof []byte `plist:"proof"`
	}
	legacyKeyRequest struct {
		EncryptedKey []byte `plist:"epk"`
		AuthTag      []byte `plist:"authTag"`
	}
)

func postPlist(ctx context.Context, conn *transport.HTTPConn, req, resp interface{}) error {
	body, err := plist.Marshal(req, plist.BinaryFormat)
	if err != nil {
		return err
	}
	header := http.Header{}
	header.Set("Connection", "keep-alive")
	header.Set("Content-Type", contentTypePlist)

	r, err := conn.Post(ctx, pathPairSetupPin, header, body)
	if err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	if _, err := plist.Unmarshal(r.Body, resp); err != nil {
		return fmt.Errorf("%w: %v", auth.ErrMalformedMessage, err)
	}
	return nil
}

// LegacySetupProcedure performs legacy AirPlay pairing with a PIN.
type LegacySetupProcedure struct {
	conn   *transport.HTTPConn
	engine *auth.LegacyEngine
	log    logging.LeveledLogger

	started bool
}

// StartPairing asks the device to show a PIN.
func (p *LegacySetupProcedure) StartPairing(ctx context.Context) error {
	header := http.Header{}
	header.Set("Connection", "keep-alive")
	if _, err := p.conn.Post(ctx, pathPairPinStart, header, nil); err != nil {
		return err
	}
	p.started = true
	return nil
}

// FinishPairing runs the three /pair-setup-pin steps and returns the legacy
// credentials the engine was created with.
func (p *LegacySetupProcedure) FinishPairing(ctx context.Context, _ string, pin string) (*credentials.Credentials, error) {
	defer p.engine.Wipe()
	if !p.started {
		return nil, auth.ErrInvalidState
	}

	if err := p.engine.Step1(pin); err != nil {
		return nil, err
	}

	var start legacyPinResponse
	if err := postPlist(ctx, p.conn, legacyPinRequest{
		Method: "pin",
		User:   p.engine.Credentials().Identifier,
	}, &start); err != nil {
		return nil, err
	}

	pub, proof, err := p.engine.Step2(start.PublicKey, start.Salt)
	if err != nil {
		return nil, err
	}
	var verify legacyProofResponse
	if err := postPlist(ctx, p.conn, legacyProofRequest{PublicKey: pub, Proof: proof}, &verify); err != nil {
		return nil, err
	}
	if err := p.engine.VerifyServerProof(verify.Proof); err != nil {
		return nil, err
	}

	epk, tag, err := p.engine.Step3()
	if err != nil {
		return nil, err
	}
	if err := postPlist(ctx, p.conn, legacyKeyRequest{EncryptedKey: epk, AuthTag: tag}, nil); err != nil {
		return nil, err
	}

	creds := p.engine.Credentials().Clone()
	if p.log != nil {
		p.log.Infof("legacy pairing succeeded for %s", creds.Identifier)
	}
	return creds, nil
}

// LegacyVerifyProcedure performs legacy Pair-Verify with stored credentials.
type LegacyVerifyProcedure struct {
	conn   *transport.HTTPConn
	engine *auth.LegacyEngine
	log    logging.LeveledLogger

	verified bool
}

// VerifyCredentials runs both /pair-verify round trips.
func (p *LegacyVerifyProcedure) VerifyCredentials(ctx context.Context) (bool, error) {
	header := http.Header{}
	header.Set("Connection", "keep-alive")
	header.Set("Content-Type", contentTypeOctetStream)

	start, err := p.engine.VerifyStart()
	if err != nil {
		return false, err
	}
	resp, err := p.conn.Post(ctx, pathPairVerify, header, start)
	if err != nil {
		return false, err
	}
	if len(resp.Body) != auth.LegacyVerifyResponseSize {
		return false, fmt.Errorf("%w: verify response of %d bytes", auth.ErrMalformedMessage, len(resp.Body))
	}

	finish, err := p.engine.Verify2(resp.Body[:crypto.X25519KeySize], resp.Body[crypto.X25519KeySize:])
	if err != nil {
		return false, err
	}
	if _, err := p.conn.Post(ctx, pathPairVerify, header, finish); err != nil {
		return false, err
	}

	p.verified = true
	if p.log != nil {
		p.log.Debug("legacy pair-verify succeeded")
	}
	return true, nil
}

// EncryptionKeys derives session keys after a successful verify.
func (p *LegacyVerifyProcedure) EncryptionKeys(salt, outputInfo, inputInfo string) ([]byte, []byte, error) {
	if !p.verified {
		return nil, nil, errNotVerified("legacy")
	}
	return p.engine.EncryptionKeys(salt, outputInfo, inputInfo)
}

// Close wipes the engine.
func (p *LegacyVerifyProcedure) Close() {
	p.verified = false
	p.engine.Wipe()
}

var (
	_ pairing.SetupProcedure  = (*LegacySetupProcedure)(nil)
	_ pairing.VerifyProcedure = (*LegacyVerifyProcedure)(nil)
)
