package airplay

import (
	"context"

	"github.com/pion/logging"

	"github.com/backkem/mediapair/pkg/auth"
	"github.com/backkem/mediapair/pkg/credentials"
	"github.com/backkem/mediapair/pkg/pairing"
	"github.com/backkem/mediapair/pkg/transport"
)

// HAPSetupProcedure performs HAP Pair-Setup (M1 to M6).
type HAPSetupProcedure struct {
	conn   *transport.HTTPConn
	engine *auth.HAPEngine
	log    logging.LeveledLogger

	salt      []byte
	devicePub []byte
}

// StartPairing asks the device to show a PIN and sends M1.
func (p *HAPSetupProcedure) StartPairing(ctx context.Context) error {
	if _, err := p.conn.Post(ctx, pathPairPinStart, hapHeader(hkpHAP), nil); err != nil {
		return err
	}

	resp, err := postTLV(ctx, p.conn, pathPairSetup, hkpHAP, auth.SetupStartRequest{
		Method: byte(auth.MethodPairSetup),
		State:  byte(auth.StateM1),
	})
	if err != nil {
		return err
	}
	if len(resp.Salt) == 0 || len(resp.PublicKey) == 0 {
		return auth.ErrMalformedMessage
	}
	p.salt = resp.Salt
	p.devicePub = resp.PublicKey

	if p.log != nil {
		p.log.Debug("pair-setup started")
	}
	return nil
}

// FinishPairing runs M3 to M6 with pin and returns HAP credentials. The
// engine is wiped whatever the outcome.
func (p *HAPSetupProcedure) FinishPairing(ctx context.Context, _ string, pin string) (*credentials.Credentials, error) {
	defer p.engine.Wipe()
	if p.salt == nil {
		return nil, auth.ErrInvalidState
	}

	if err := p.engine.Step1(pin); err != nil {
		return nil, err
	}
	pub, proof, err := p.engine.Step2(p.salt, p.devicePub)
	if err != nil {
		return nil, err
	}

	resp, err := postTLV(ctx, p.conn, pathPairSetup, hkpHAP, auth.SetupProofRequest{
		PublicKey: pub,
		Proof:     proof,
		State:     byte(auth.StateM3),
	})
	if err != nil {
		return nil, err
	}

	encrypted, err := p.engine.Step3(resp.Proof)
	if err != nil {
		return nil, err
	}
	resp, err = postTLV(ctx, p.conn, pathPairSetup, hkpHAP, auth.EncryptedMessage{
		EncryptedData: encrypted,
		State:         byte(auth.StateM5),
	})
	if err != nil {
		return nil, err
	}

	creds, err := p.engine.Step4(resp.EncryptedData)
	if err != nil {
		return nil, err
	}
	if p.log != nil {
		p.log.Infof("paired with device %s", creds.DeviceID())
	}
	return creds, nil
}

// HAPVerifyProcedure performs HAP Pair-Verify with stored credentials.
type HAPVerifyProcedure struct {
	conn   *transport.HTTPConn
	engine *auth.HAPEngine
	creds  *credentials.Credentials
	log    logging.LeveledLogger

	verified bool
}

// VerifyCredentials runs M1 to M4. The long-term secret is wiped once the
// client signature has been produced.
func (p *HAPVerifyProcedure) VerifyCredentials(ctx context.Context) (bool, error) {
	defer p.creds.Wipe()

	resp, err := postTLV(ctx, p.conn, pathPairVerify, hkpHAP, auth.VerifyStartRequest{
		PublicKey: p.engine.VerifyPublicKey(),
		State:     byte(auth.StateM1),
	})
	if err != nil {
		return false, err
	}

	encrypted, err := p.engine.Verify1(p.creds, resp.PublicKey, resp.EncryptedData)
	if err != nil {
		return false, err
	}
	if _, err := postTLV(ctx, p.conn, pathPairVerify, hkpHAP, auth.EncryptedMessage{
		EncryptedData: encrypted,
		State:         byte(auth.StateM3),
	}); err != nil {
		return false, err
	}

	p.verified = true
	if p.log != nil {
		p.log.Debugf("pair-verify succeeded for device %s", p.creds.DeviceID())
	}
	return true, nil
}

// EncryptionKeys derives session keys after a successful verify.
func (p *HAPVerifyProcedure) EncryptionKeys(salt, outputInfo, inputInfo string) ([]byte, []byte, error) {
	if !p.verified {
		return nil, nil, errNotVerified("hap")
	}
	return p.engine.EncryptionKeys(salt, outputInfo, inputInfo)
}

// Close wipes the engine and the credential copy.
func (p *HAPVerifyProcedure) Close() {
	p.verified = false
	p.engine.Wipe()
	p.creds.Wipe()
}

var (
	_ pairing.SetupProcedure  = (*HAPSetupProcedure)(nil)
	_ pairing.VerifyProcedure = (*HAPVerifyProcedure)(nil)
)
