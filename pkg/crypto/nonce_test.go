package crypto

import (
	"bytes"
	"testing"
)

func TestBuildLabelNonce(t *testing.T) {
	nonce, err := BuildLabelNonce("PS-Msg05")
	if err != nil {
		t.Fatalf("BuildLabelNonce failed: %v", err)
	}
	want := append([]byte{0, 0, 0, 0}, []byte("PS-Msg05")...)
	if !bytes.Equal(nonce, want) {
		t.Errorf("nonce = %x, want %x", nonce, want)
	}

	if _, err := BuildLabelNonce("short"); err != ErrInvalidNonceLabel {
		t.Errorf("expected ErrInvalidNonceLabel, got %v", err)
	}
}

func TestBuildCounterNonce(t *testing.T) {
	tests := []struct {
		counter uint64
		want    []byte
	}{
		{0, []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
		{1, []byte{0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0}},
		{0x0102030405060708, []byte{0, 0, 0, 0, 8, 7, 6, 5, 4, 3, 2, 1}},
	}

	for _, tt := range tests {
		got := BuildCounterNonce(tt.counter)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("BuildCounterNonce(%d) = %x, want %x", tt.counter, got, tt.want)
		}
	}
}

func TestPairingMessageRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{9}, 32)
	sealed, err := SealPairingMessage(key, "PV-Msg02", []byte("hello"))
	if err != nil {
		t.Fatalf("SealPairingMessage failed: %v", err)
	}
	if len(sealed) != len("hello")+ChaChaTagSize {
		t.Errorf("sealed length = %d", len(sealed))
	}

	plain, err := OpenPairingMessage(key, "PV-Msg02", sealed)
	if err != nil {
		t.Fatalf("OpenPairingMessage failed: %v", err)
	}
	if string(plain) != "hello" {
		t.Errorf("plain = %q", plain)
	}

	if _, err := OpenPairingMessage(key, "PV-Msg03", sealed); err != ErrChaChaAuthFailed {
		t.Errorf("wrong label: expected ErrChaChaAuthFailed, got %v", err)
	}
}
