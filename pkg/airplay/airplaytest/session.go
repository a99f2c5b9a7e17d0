package airplaytest

import (
	"bytes"
	"errors"
	"net/http"

	"howett.net/plist"

	"github.com/backkem/mediapair/pkg/auth"
	"github.com/backkem/mediapair/pkg/crypto"
	"github.com/backkem/mediapair/pkg/crypto/srp"
)

// Content types used by the pairing endpoints.
const (
	ContentTypeTLV   = "application/octet-stream"
	ContentTypePlist = "application/x-apple-binary-plist"
)

// StatusAuthRequired is the status a device answers failed legacy steps with.
const StatusAuthRequired = 470

var (
	errUnexpectedState = errors.New("airplaytest: unexpected pairing state")
	errUnknownPeer     = errors.New("airplaytest: unknown peer")
)

const (
	legacyStartByte  = 0x01
	legacyFinishByte = 0x00
	legacyHeaderSize = 4
	legacyStartSize  = legacyHeaderSize + 2*crypto.X25519KeySize
)

// Session is the device side of one connection. It holds the state of the
// pairing exchanges running on it.
type Session struct {
	d *Device

	setup     *srp.Server
	transient bool

	verifyKey    *crypto.X25519KeyPair
	clientVerify []byte
	verifyShared []byte

	legacySetup  *srp.Server
	legacyUser   string
	legacyStream *crypto.AESCTR
	legacyAuth   []byte

	shared      []byte
	established bool
}

// NewSession starts the device state for a new connection.
func (d *Device) NewSession() *Session {
	return &Session{d: d}
}

// Established reports whether a verify (or a transient setup) completed and
// session keys are available.
func (s *Session) Established() bool {
	return s.established
}

// Transient reports whether the established secret came from a transient
// Pair-Setup.
func (s *Session) Transient() bool {
	return s.transient && s.established
}

// EncryptionKeys derives keys from the established secret the same way the
// client does.
func (s *Session) EncryptionKeys(salt, outputInfo, inputInfo string) ([]byte, []byte, error) {
	if !s.established {
		return nil, nil, auth.ErrNoSharedSecret
	}
	out, err := crypto.DeriveKey(s.shared, salt, outputInfo)
	if err != nil {
		return nil, nil, err
	}
	in, err := crypto.DeriveKey(s.shared, salt, inputInfo)
	if err != nil {
		return nil, nil, err
	}
	return out, in, nil
}

// Wipe zeroes the session secrets.
func (s *Session) Wipe() {
	s.verifyKey.Wipe()
	crypto.WipeAll(s.shared, s.verifyShared)
}

// Handle answers one HTTP request.
func (s *Session) Handle(method, path string, _ http.Header, body []byte) (int, string, []byte) {
	switch {
	case method == http.MethodPost && path == "/pair-pin-start":
		s.d.mu.Lock()
		s.d.pinStarts++
		s.d.mu.Unlock()
		return http.StatusOK, "", nil

	case method == http.MethodPost && path == "/pair-setup":
		return tlvReply(s.PairSetup(body))

	case method == http.MethodPost && path == "/pair-verify":
		if isLegacyVerify(body) {
			resp, err := s.LegacyVerify(body)
			if err != nil {
				return StatusAuthRequired, "", nil
			}
			return http.StatusOK, ContentTypeTLV, resp
		}
		return tlvReply(s.PairVerify(body))

	case method == http.MethodPost && path == "/pair-setup-pin":
		resp, err := s.LegacySetup(body)
		if err != nil {
			return StatusAuthRequired, "", nil
		}
		return http.StatusOK, ContentTypePlist, resp

	case method == http.MethodGet && path == "/info":
		if !s.established {
			return StatusAuthRequired, "", nil
		}
		resp, err := s.d.info()
		if err != nil {
			return http.StatusInternalServerError, "", nil
		}
		return http.StatusOK, ContentTypePlist, resp
	}
	return http.StatusNotFound, "", nil
}

func tlvReply(body []byte, err error) (int, string, []byte) {
	if err != nil {
		return http.StatusBadRequest, "", nil
	}
	return http.StatusOK, ContentTypeTLV, body
}

func isLegacyVerify(body []byte) bool {
	if len(body) < legacyHeaderSize {
		return false
	}
	if body[0] != legacyStartByte && body[0] != legacyFinishByte {
		return false
	}
	return bytes.Equal(body[1:legacyHeaderSize], []byte{0, 0, 0})
}

func errorReply(state auth.State, code auth.ErrorCode) ([]byte, error) {
	return auth.Encode(auth.ErrorResponse{State: byte(state), Error: byte(code)})
}

// PairSetup answers a HAP Pair-Setup message. Authentication failures are
// reported in the TLV error field.
func (s *Session) PairSetup(body []byte) ([]byte, error) {
	msg, err := auth.Decode(body)
	if err != nil {
		return nil, err
	}

	switch auth.State(msg.State) {
	case auth.StateM1:
		pin := s.d.config.PIN
		s.transient = msg.Flags&auth.FlagTransient != 0
		if s.transient {
			pin = auth.TransientPIN
		}
		server, err := srp.NewServer(srp.HAPParams, []byte(auth.SetupUsername), []byte(pin))
		if err != nil {
			return nil, err
		}
		s.setup = server
		return auth.Encode(auth.SetupStartResponse{
			Salt:      server.Salt(),
			PublicKey: server.PublicKey(),
			State:     byte(auth.StateM2),
		})

	case auth.StateM3:
		if s.setup == nil {
			return nil, errUnexpectedState
		}
		if _, err := s.setup.ComputeKey(msg.PublicKey); err != nil {
			return errorReply(auth.StateM4, auth.ErrorAuthentication)
		}
		if err := s.setup.VerifyClientProof(msg.Proof); err != nil {
			return errorReply(auth.StateM4, auth.ErrorAuthentication)
		}
		proof, err := s.setup.Proof(msg.Proof)
		if err != nil {
			return nil, err
		}
		if s.transient {
			s.shared = append([]byte(nil), s.setup.SessionKey()...)
			s.established = true
		}
		return auth.Encode(auth.SetupProofResponse{Proof: proof, State: byte(auth.StateM4)})

	case auth.StateM5:
		if s.setup == nil || s.setup.SessionKey() == nil || s.transient {
			return nil, errUnexpectedState
		}
		resp, err := s.exchange(msg.EncryptedData)
		if err != nil {
			return errorReply(auth.StateM6, auth.ErrorAuthentication)
		}
		return resp, nil
	}
	return nil, errUnexpectedState
}

func (s *Session) exchange(encrypted []byte) ([]byte, error) {
	key := s.setup.SessionKey()
	sessionKey, err := crypto.DeriveKey(key, auth.SetupEncryptSalt, auth.SetupEncryptInfo)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(sessionKey)

	plain, err := crypto.OpenPairingMessage(sessionKey, auth.NonceSetupM5, encrypted)
	if err != nil {
		return nil, err
	}
	var info auth.ExchangeInfo
	if err := auth.DecodeInto(plain, &info); err != nil {
		return nil, err
	}
	deviceX, err := crypto.DeriveKey(key, auth.ControllerSignSalt, auth.ControllerSignInfo)
	if err != nil {
		return nil, err
	}
	if !crypto.Ed25519Verify(info.PublicKey, info.Signature, deviceX, []byte(info.Identifier), info.PublicKey) {
		return nil, auth.ErrSignatureInvalid
	}
	s.d.addHAPPeer(info.Identifier, info.PublicKey)

	accessoryX, err := crypto.DeriveKey(key, auth.AccessorySignSalt, auth.AccessorySignInfo)
	if err != nil {
		return nil, err
	}
	public := s.d.PublicKey()
	reply, err := auth.Encode(auth.ExchangeInfo{
		Identifier: s.d.config.Identifier,
		PublicKey:  public,
		Signature:  crypto.Ed25519Sign(s.d.signingKey, accessoryX, []byte(s.d.config.Identifier), public),
	})
	if err != nil {
		return nil, err
	}
	sealed, err := crypto.SealPairingMessage(sessionKey, auth.NonceSetupM6, reply)
	if err != nil {
		return nil, err
	}
	return auth.Encode(auth.EncryptedMessage{EncryptedData: sealed, State: byte(auth.StateM6)})
}

// PairVerify answers a HAP Pair-Verify message.
func (s *Session) PairVerify(body []byte) ([]byte, error) {
	msg, err := auth.Decode(body)
	if err != nil {
		return nil, err
	}

	switch auth.State(msg.State) {
	case auth.StateM1:
		kp, err := crypto.GenerateX25519(s.d.config.Rand)
		if err != nil {
			return nil, err
		}
		shared, err := kp.SharedSecret(msg.PublicKey)
		if err != nil {
			return errorReply(auth.StateM2, auth.ErrorAuthentication)
		}
		sessionKey, err := crypto.DeriveKey(shared, auth.VerifyEncryptSalt, auth.VerifyEncryptInfo)
		if err != nil {
			return nil, err
		}
		defer crypto.Wipe(sessionKey)

		id := []byte(s.d.config.Identifier)
		info, err := auth.Encode(auth.VerifyInfo{
			Identifier: s.d.config.Identifier,
			Signature:  crypto.Ed25519Sign(s.d.signingKey, kp.PublicKey(), id, msg.PublicKey),
		})
		if err != nil {
			return nil, err
		}
		sealed, err := crypto.SealPairingMessage(sessionKey, auth.NonceVerifyM2, info)
		if err != nil {
			return nil, err
		}

		s.verifyKey = kp
		s.clientVerify = append([]byte(nil), msg.PublicKey...)
		s.verifyShared = shared
		return auth.Encode(auth.VerifyStartResponse{
			PublicKey:     kp.PublicKey(),
			EncryptedData: sealed,
			State:         byte(auth.StateM2),
		})

	case auth.StateM3:
		if s.verifyShared == nil {
			return nil, errUnexpectedState
		}
		if err := s.finishVerify(msg.EncryptedData); err != nil {
			return errorReply(auth.StateM4, auth.ErrorAuthentication)
		}
		s.shared = append([]byte(nil), s.verifyShared...)
		s.transient = false
		s.established = true
		return auth.Encode(auth.ErrorResponse{State: byte(auth.StateM4)})
	}
	return nil, errUnexpectedState
}

func (s *Session) finishVerify(encrypted []byte) error {
	sessionKey, err := crypto.DeriveKey(s.verifyShared, auth.VerifyEncryptSalt, auth.VerifyEncryptInfo)
	if err != nil {
		return err
	}
	defer crypto.Wipe(sessionKey)

	plain, err := crypto.OpenPairingMessage(sessionKey, auth.NonceVerifyM3, encrypted)
	if err != nil {
		return err
	}
	var info auth.VerifyInfo
	if err := auth.DecodeInto(plain, &info); err != nil {
		return err
	}
	ltpk := s.d.hapPeer(info.Identifier)
	if ltpk == nil {
		return errUnknownPeer
	}
	if !crypto.Ed25519Verify(ltpk, info.Signature, s.clientVerify, []byte(info.Identifier), s.verifyKey.PublicKey()) {
		return auth.ErrSignatureInvalid
	}
	return nil
}

// LegacySetup answers one /pair-setup-pin request. The step is chosen by the
// keys present in the property list.
func (s *Session) LegacySetup(body []byte) ([]byte, error) {
	var req map[string]interface{}
	if _, err := plist.Unmarshal(body, &req); err != nil {
		return nil, err
	}

	if method, ok := req["method"].(string); ok && method == "pin" {
		user, _ := req["user"].(string)
		if user == "" {
			return nil, auth.ErrMalformedMessage
		}
		server, err := srp.NewServer(srp.LegacyParams, []byte(user), []byte(s.d.config.PIN))
		if err != nil {
			return nil, err
		}
		s.legacySetup = server
		s.legacyUser = user
		return plist.Marshal(map[string]interface{}{
			"pk":   server.PublicKey(),
			"salt": server.Salt(),
		}, plist.BinaryFormat)
	}

	if s.legacySetup == nil {
		return nil, errUnexpectedState
	}

	if proof, ok := req["proof"].([]byte); ok {
		pk, _ := req["pk"].([]byte)
		if _, err := s.legacySetup.ComputeKey(pk); err != nil {
			return nil, err
		}
		if err := s.legacySetup.VerifyClientProof(proof); err != nil {
			return nil, err
		}
		serverProof, err := s.legacySetup.Proof(proof)
		if err != nil {
			return nil, err
		}
		return plist.Marshal(map[string]interface{}{"proof": serverProof}, plist.BinaryFormat)
	}

	if epk, ok := req["epk"].([]byte); ok {
		tag, _ := req["authTag"].([]byte)
		if s.legacySetup.SessionKey() == nil {
			return nil, errUnexpectedState
		}
		key, iv := auth.LegacySetupKeys(s.legacySetup.SessionKey())
		defer crypto.WipeAll(key, iv)
		pub, err := crypto.OpenGCM(key, iv, epk, tag)
		if err != nil {
			return nil, err
		}
		s.d.addLegacyPeer(s.legacyUser, pub)
		return plist.Marshal(map[string]interface{}{}, plist.BinaryFormat)
	}

	return nil, auth.ErrMalformedMessage
}

// LegacyVerify answers a legacy /pair-verify message.
func (s *Session) LegacyVerify(body []byte) ([]byte, error) {
	switch body[0] {
	case legacyStartByte:
		if len(body) != legacyStartSize {
			return nil, auth.ErrMalformedMessage
		}
		clientPub := body[legacyHeaderSize : legacyHeaderSize+crypto.X25519KeySize]
		authPub := body[legacyHeaderSize+crypto.X25519KeySize:]
		if !s.d.knownLegacyKey(authPub) {
			return nil, errUnknownPeer
		}

		kp, err := crypto.GenerateX25519(s.d.config.Rand)
		if err != nil {
			return nil, err
		}
		shared, err := kp.SharedSecret(clientPub)
		if err != nil {
			return nil, err
		}
		key, iv := auth.LegacyVerifyKeys(shared)
		defer crypto.WipeAll(key, iv)
		stream, err := crypto.NewAESCTR(key, iv)
		if err != nil {
			return nil, err
		}

		signature := crypto.Ed25519Sign(s.d.signingKey, kp.PublicKey(), clientPub)
		resp := append(kp.PublicKey(), stream.XOR(signature)...)

		s.verifyKey = kp
		s.clientVerify = append([]byte(nil), clientPub...)
		s.verifyShared = shared
		s.legacyStream = stream
		s.legacyAuth = append([]byte(nil), authPub...)
		return resp, nil

	case legacyFinishByte:
		if s.legacyStream == nil {
			return nil, errUnexpectedState
		}
		signature := s.legacyStream.XOR(body[legacyHeaderSize:])
		if !crypto.Ed25519Verify(s.legacyAuth, signature, s.clientVerify, s.verifyKey.PublicKey()) {
			return nil, auth.ErrSignatureInvalid
		}
		s.shared = append([]byte(nil), s.verifyShared...)
		s.transient = false
		s.established = true
		return nil, nil
	}
	return nil, auth.ErrMalformedMessage
}
