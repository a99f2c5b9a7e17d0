package crypto

import (
	"bytes"
	"testing"
)

func TestAESCTRSharedStream(t *testing.T) {
	key := bytes.Repeat([]byte{1}, AESKeySize)
	iv := bytes.Repeat([]byte{2}, AESIVSize)

	// Sender encrypts two messages on one stream.
	sender, err := NewAESCTR(key, iv)
	if err != nil {
		t.Fatalf("NewAESCTR failed: %v", err)
	}
	first := sender.XOR([]byte("device signature"))
	second := sender.XOR([]byte("client signature"))

	// Receiver must consume the first message before decrypting the second.
	receiver, _ := NewAESCTR(key, iv)
	if got := receiver.XOR(first); string(got) != "device signature" {
		t.Errorf("first = %q", got)
	}
	if got := receiver.XOR(second); string(got) != "client signature" {
		t.Errorf("second = %q", got)
	}

	fresh, _ := NewAESCTR(key, iv)
	if got := fresh.XOR(second); string(got) == "client signature" {
		t.Error("second message decrypted without advancing the stream")
	}
}

func TestAESCTRInvalidSizes(t *testing.T) {
	if _, err := NewAESCTR(make([]byte, 8), make([]byte, 16)); err != ErrAESInvalidKeySize {
		t.Errorf("expected ErrAESInvalidKeySize, got %v", err)
	}
	if _, err := NewAESCTR(make([]byte, 16), make([]byte, 12)); err != ErrAESInvalidIVSize {
		t.Errorf("expected ErrAESInvalidIVSize, got %v", err)
	}
}

func TestAESGCMRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{3}, AESKeySize)
	iv := bytes.Repeat([]byte{4}, AESIVSize)
	plain := bytes.Repeat([]byte{5}, 32)

	ct, tag, err := SealGCM(key, iv, plain)
	if err != nil {
		t.Fatalf("SealGCM failed: %v", err)
	}
	if len(ct) != len(plain) || len(tag) != GCMTagSize {
		t.Fatalf("unexpected sizes ct=%d tag=%d", len(ct), len(tag))
	}

	got, err := OpenGCM(key, iv, ct, tag)
	if err != nil {
		t.Fatalf("OpenGCM failed: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Error("round trip mismatch")
	}

	tag[0] ^= 0xff
	if _, err := OpenGCM(key, iv, ct, tag); err != ErrGCMAuthFailed {
		t.Errorf("expected ErrGCMAuthFailed, got %v", err)
	}
}
