package srp

import (
	"bytes"
	"testing"
)

func exchange(t *testing.T, p Params, clientPin, serverPin string) (*Client, *Server, error) {
	t.Helper()
	user := []byte("Pair-Setup")

	server, err := NewServer(p, user, []byte(serverPin))
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	client, err := NewClient(p, user, []byte(clientPin))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if _, err := client.ComputeKey(server.Salt(), server.PublicKey()); err != nil {
		t.Fatalf("client ComputeKey failed: %v", err)
	}
	if _, err := server.ComputeKey(client.PublicKey()); err != nil {
		t.Fatalf("server ComputeKey failed: %v", err)
	}
	m1, err := client.Proof()
	if err != nil {
		t.Fatalf("Proof failed: %v", err)
	}
	if err := server.VerifyClientProof(m1); err != nil {
		return client, server, err
	}
	m2, err := server.Proof(m1)
	if err != nil {
		t.Fatalf("server Proof failed: %v", err)
	}
	return client, server, client.VerifyServerProof(m2)
}

func TestExchange(t *testing.T) {
	tests := []struct {
		name   string
		params Params
	}{
		{"hap", HAPParams},
		{"legacy", LegacyParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, server, err := exchange(t, tt.params, "1234", "1234")
			if err != nil {
				t.Fatalf("exchange failed: %v", err)
			}
			if !bytes.Equal(client.SessionKey(), server.SessionKey()) {
				t.Error("session keys differ")
			}
			if len(server.Salt()) != tt.params.SaltLength {
				t.Errorf("salt length = %d", len(server.Salt()))
			}
		})
	}
}

func TestWrongPassword(t *testing.T) {
	_, _, err := exchange(t, HAPParams, "1111", "1234")
	if err != ErrClientProofMismatch {
		t.Fatalf("expected ErrClientProofMismatch, got %v", err)
	}
}

func TestStateGuards(t *testing.T) {
	client, err := NewClient(HAPParams, []byte("Pair-Setup"), []byte("1234"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.Proof(); err != ErrInvalidState {
		t.Errorf("Proof before key: got %v", err)
	}
	if err := client.VerifyServerProof([]byte{1}); err != ErrInvalidState {
		t.Errorf("VerifyServerProof before key: got %v", err)
	}

	server, err := NewServer(HAPParams, []byte("Pair-Setup"), []byte("1234"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := server.Proof([]byte{1}); err != ErrInvalidState {
		t.Errorf("server Proof before verify: got %v", err)
	}
}
