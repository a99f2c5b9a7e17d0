package airplay

import (
	"context"

	"github.com/pion/logging"

	"github.com/backkem/mediapair/pkg/auth"
	"github.com/backkem/mediapair/pkg/pairing"
	"github.com/backkem/mediapair/pkg/transport"
)

// TransientVerifyProcedure performs a transient Pair-Setup: M1 to M4 with
// the fixed PIN, keying the session from the SRP secret. Nothing is
// persisted.
type TransientVerifyProcedure struct {
	conn   *transport.HTTPConn
	engine *auth.HAPEngine
	log    logging.LeveledLogger

	verified bool
}

// VerifyCredentials runs the transient exchange.
func (p *TransientVerifyProcedure) VerifyCredentials(ctx context.Context) (bool, error) {
	resp, err := postTLV(ctx, p.conn, pathPairSetup, hkpTransient, auth.TransientStartRequest{
		Method: byte(auth.MethodPairSetup),
		State:  byte(auth.StateM1),
		Flags:  auth.FlagTransient,
	})
	if err != nil {
		return false, err
	}

	if err := p.engine.Step1(auth.TransientPIN); err != nil {
		return false, err
	}
	pub, proof, err := p.engine.Step2(resp.Salt, resp.PublicKey)
	if err != nil {
		return false, err
	}

	resp, err = postTLV(ctx, p.conn, pathPairSetup, hkpTransient, auth.SetupProofRequest{
		PublicKey: pub,
		Proof:     proof,
		State:     byte(auth.StateM3),
	})
	if err != nil {
		return false, err
	}
	if err := p.engine.VerifyServerProof(resp.Proof); err != nil {
		return false, err
	}

	p.verified = true
	if p.log != nil {
		p.log.Debug("transient pairing succeeded")
	}
	return true, nil
}

// EncryptionKeys derives session keys after a successful verify.
func (p *TransientVerifyProcedure) EncryptionKeys(salt, outputInfo, inputInfo string) ([]byte, []byte, error) {
	if !p.verified {
		return nil, nil, errNotVerified("transient")
	}
	return p.engine.EncryptionKeys(salt, outputInfo, inputInfo)
}

// Close wipes the engine.
func (p *TransientVerifyProcedure) Close() {
	p.verified = false
	p.engine.Wipe()
}

var _ pairing.VerifyProcedure = (*TransientVerifyProcedure)(nil)
