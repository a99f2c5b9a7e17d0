package auth_test

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"

	"howett.net/plist"

	"github.com/backkem/mediapair/pkg/airplay/airplaytest"
	"github.com/backkem/mediapair/pkg/auth"
	"github.com/backkem/mediapair/pkg/credentials"
)

const (
	testSalt = "Control-Salt"
	testOut  = "Control-Write-Encryption-Key"
	testIn   = "Control-Read-Encryption-Key"
)

func newDevice(t *testing.T) *airplaytest.Device {
	t.Helper()
	d, err := airplaytest.NewDevice(airplaytest.DeviceConfig{PIN: "1234"})
	if err != nil {
		t.Fatalf("NewDevice failed: %v", err)
	}
	return d
}

func exchange(t *testing.T, handler func([]byte) ([]byte, error), req interface{}) *auth.Message {
	t.Helper()
	body, err := auth.Encode(req)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	resp, err := handler(body)
	if err != nil {
		t.Fatalf("device rejected message: %v", err)
	}
	msg, err := auth.Decode(resp)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return msg
}

// requireMatchingKeys checks that client keys mirror the device's.
func requireMatchingKeys(t *testing.T, client interface {
	EncryptionKeys(string, string, string) ([]byte, []byte, error)
}, sess *airplaytest.Session) {
	t.Helper()
	out, in, err := client.EncryptionKeys(testSalt, testOut, testIn)
	if err != nil {
		t.Fatalf("client EncryptionKeys failed: %v", err)
	}
	devOut, devIn, err := sess.EncryptionKeys(testSalt, testIn, testOut)
	if err != nil {
		t.Fatalf("device EncryptionKeys failed: %v", err)
	}
	if !bytes.Equal(out, devIn) || !bytes.Equal(in, devOut) {
		t.Error("client and device keys do not mirror each other")
	}
	if bytes.Equal(out, in) {
		t.Error("output and input keys are equal")
	}
}

func hapSetup(t *testing.T, dev *airplaytest.Device, pin string) (*credentials.Credentials, error) {
	t.Helper()
	sess := dev.NewSession()
	e := auth.NewHAPEngine(rand.Reader)
	defer e.Wipe()
	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	m2 := exchange(t, sess.PairSetup, auth.SetupStartRequest{State: byte(auth.StateM1)})
	if err := e.Step1(pin); err != nil {
		t.Fatal(err)
	}
	pub, proof, err := e.Step2(m2.Salt, m2.PublicKey)
	if err != nil {
		t.Fatalf("Step2 failed: %v", err)
	}

	m4 := exchange(t, sess.PairSetup, auth.SetupProofRequest{PublicKey: pub, Proof: proof, State: byte(auth.StateM3)})
	if err := auth.CheckError(m4); err != nil {
		return nil, err
	}
	m5, err := e.Step3(m4.Proof)
	if err != nil {
		t.Fatalf("Step3 failed: %v", err)
	}
	m6 := exchange(t, sess.PairSetup, auth.EncryptedMessage{EncryptedData: m5, State: byte(auth.StateM5)})
	if err := auth.CheckError(m6); err != nil {
		return nil, err
	}
	return e.Step4(m6.EncryptedData)
}

func TestHAPSetupAndVerify(t *testing.T) {
	dev := newDevice(t)
	creds, err := hapSetup(t, dev, "1234")
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if creds.Type != credentials.AuthHAP || creds.DeviceID() != dev.Identifier() {
		t.Fatalf("unexpected credentials %s", creds)
	}

	sess := dev.NewSession()
	e := auth.NewHAPEngine(rand.Reader)
	defer e.Wipe()
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}
	if _, _, err := e.EncryptionKeys(testSalt, testOut, testIn); !errors.Is(err, auth.ErrNoSharedSecret) {
		t.Errorf("EncryptionKeys before verify = %v, want ErrNoSharedSecret", err)
	}

	m2 := exchange(t, sess.PairVerify, auth.VerifyStartRequest{PublicKey: e.VerifyPublicKey(), State: byte(auth.StateM1)})
	m3, err := e.Verify1(creds, m2.PublicKey, m2.EncryptedData)
	if err != nil {
		t.Fatalf("Verify1 failed: %v", err)
	}
	m4 := exchange(t, sess.PairVerify, auth.EncryptedMessage{EncryptedData: m3, State: byte(auth.StateM3)})
	if err := auth.CheckError(m4); err != nil {
		t.Fatalf("device rejected verify: %v", err)
	}
	if !sess.Established() {
		t.Fatal("device session not established")
	}
	requireMatchingKeys(t, e, sess)
}

func TestHAPSetupWrongPin(t *testing.T) {
	_, err := hapSetup(t, newDevice(t), "0000")
	var derr *auth.DeviceError
	if !errors.As(err, &derr) || derr.Code != auth.ErrorAuthentication {
		t.Fatalf("setup with wrong pin = %v, want authentication error", err)
	}
}

func TestHAPVerifyRejectsForeignDevice(t *testing.T) {
	creds, err := hapSetup(t, newDevice(t), "1234")
	if err != nil {
		t.Fatal(err)
	}

	// A second device signs with a different key and identifier.
	other, err := airplaytest.NewDevice(airplaytest.DeviceConfig{Identifier: "11:22:33:44:55:66"})
	if err != nil {
		t.Fatal(err)
	}
	e := auth.NewHAPEngine(rand.Reader)
	defer e.Wipe()
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}
	m2 := exchange(t, other.NewSession().PairVerify, auth.VerifyStartRequest{PublicKey: e.VerifyPublicKey(), State: byte(auth.StateM1)})
	if _, err := e.Verify1(creds, m2.PublicKey, m2.EncryptedData); !errors.Is(err, auth.ErrIdentifierMismatch) {
		t.Errorf("Verify1 against foreign device = %v, want ErrIdentifierMismatch", err)
	}
}

func TestHAPVerifyWrongCredentialType(t *testing.T) {
	e := auth.NewHAPEngine(rand.Reader)
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Verify1(credentials.TransientCredentials(), make([]byte, 32), nil); !errors.Is(err, auth.ErrWrongCredentials) {
		t.Errorf("Verify1 with transient credentials = %v, want ErrWrongCredentials", err)
	}
}

func TestTransientSetup(t *testing.T) {
	sess := newDevice(t).NewSession()
	e := auth.NewHAPEngine(rand.Reader)
	defer e.Wipe()
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}

	m2 := exchange(t, sess.PairSetup, auth.TransientStartRequest{State: byte(auth.StateM1), Flags: auth.FlagTransient})
	if err := e.Step1(auth.TransientPIN); err != nil {
		t.Fatal(err)
	}
	pub, proof, err := e.Step2(m2.Salt, m2.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	m4 := exchange(t, sess.PairSetup, auth.SetupProofRequest{PublicKey: pub, Proof: proof, State: byte(auth.StateM3)})
	if err := auth.CheckError(m4); err != nil {
		t.Fatalf("device rejected transient proof: %v", err)
	}
	if err := e.VerifyServerProof(m4.Proof); err != nil {
		t.Fatalf("VerifyServerProof failed: %v", err)
	}
	if !sess.Transient() {
		t.Error("device did not establish a transient session")
	}
	requireMatchingKeys(t, e, sess)
}

func TestStepsBeforeInitialize(t *testing.T) {
	e := auth.NewHAPEngine(rand.Reader)
	if err := e.Step1("1234"); !errors.Is(err, auth.ErrNotInitialized) {
		t.Errorf("Step1 = %v, want ErrNotInitialized", err)
	}
	if _, _, err := e.Step2(nil, nil); !errors.Is(err, auth.ErrInvalidState) {
		t.Errorf("Step2 = %v, want ErrInvalidState", err)
	}
	if _, err := e.Step4(nil); !errors.Is(err, auth.ErrInvalidState) {
		t.Errorf("Step4 = %v, want ErrInvalidState", err)
	}
}

func legacySetup(t *testing.T, dev *airplaytest.Device, pin string) (*credentials.Credentials, error) {
	t.Helper()
	creds, err := auth.NewLegacyCredentials(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	e, err := auth.NewLegacyEngine(creds, rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Wipe()
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}
	if err := e.Step1(pin); err != nil {
		t.Fatal(err)
	}

	sess := dev.NewSession()
	call := func(req map[string]interface{}) (map[string]interface{}, error) {
		body, err := plist.Marshal(req, plist.BinaryFormat)
		if err != nil {
			t.Fatal(err)
		}
		resp, err := sess.LegacySetup(body)
		if err != nil {
			return nil, err
		}
		var out map[string]interface{}
		if _, err := plist.Unmarshal(resp, &out); err != nil {
			t.Fatal(err)
		}
		return out, nil
	}

	start, err := call(map[string]interface{}{"method": "pin", "user": creds.Identifier})
	if err != nil {
		t.Fatalf("pin step failed: %v", err)
	}
	pub, proof, err := e.Step2(start["pk"].([]byte), start["salt"].([]byte))
	if err != nil {
		t.Fatal(err)
	}
	verify, err := call(map[string]interface{}{"pk": pub, "proof": proof})
	if err != nil {
		return nil, err
	}
	if err := e.VerifyServerProof(verify["proof"].([]byte)); err != nil {
		t.Fatalf("VerifyServerProof failed: %v", err)
	}
	epk, tag, err := e.Step3()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := call(map[string]interface{}{"epk": epk, "authTag": tag}); err != nil {
		t.Fatalf("key step failed: %v", err)
	}
	return e.Credentials().Clone(), nil
}

func TestLegacySetupAndVerify(t *testing.T) {
	dev := newDevice(t)
	creds, err := legacySetup(t, dev, "1234")
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if len(creds.Identifier) != 16 || creds.Identifier != string(bytes.ToUpper([]byte(creds.Identifier))) {
		t.Errorf("identifier %q is not 16 upper-case hex digits", creds.Identifier)
	}

	e, err := auth.NewLegacyEngine(creds, rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Wipe()
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}

	sess := dev.NewSession()
	start, err := e.VerifyStart()
	if err != nil {
		t.Fatal(err)
	}
	resp, err := sess.LegacyVerify(start)
	if err != nil {
		t.Fatalf("device rejected verify start: %v", err)
	}
	if len(resp) != auth.LegacyVerifyResponseSize {
		t.Fatalf("verify response is %d bytes", len(resp))
	}
	finish, err := e.Verify2(resp[:32], resp[32:])
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sess.LegacyVerify(finish); err != nil {
		t.Fatalf("device rejected client signature: %v", err)
	}
	requireMatchingKeys(t, e, sess)
}

func TestLegacySetupWrongPin(t *testing.T) {
	if _, err := legacySetup(t, newDevice(t), "4321"); err == nil {
		t.Fatal("legacy setup with wrong pin succeeded")
	}
}

func TestLegacyEngineRejectsHAPCredentials(t *testing.T) {
	hap := credentials.NewHAP(make([]byte, 32), make([]byte, 32), []byte("dev"), "client")
	if _, err := auth.NewLegacyEngine(hap, rand.Reader); !errors.Is(err, auth.ErrWrongCredentials) {
		t.Errorf("NewLegacyEngine(hap) = %v, want ErrWrongCredentials", err)
	}
}

func TestLegacyWipeLeavesCallerCredentials(t *testing.T) {
	creds := credentials.NewLegacy("0011223344556677", bytes.Repeat([]byte{9}, 32))
	e, err := auth.NewLegacyEngine(creds, rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	e.Wipe()
	if !bytes.Equal(creds.LongTermSecretKey, bytes.Repeat([]byte{9}, 32)) {
		t.Error("engine Wipe zeroed the caller's credentials")
	}
}
