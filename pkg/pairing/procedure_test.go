package pairing

import (
	"context"
	"errors"
	"testing"
)

func TestNullVerifyProcedure(t *testing.T) {
	var v VerifyProcedure = NullVerifyProcedure{}

	for i := 0; i < 3; i++ {
		ok, err := v.VerifyCredentials(context.Background())
		if err != nil || ok {
			t.Fatalf("VerifyCredentials() = %v, %v", ok, err)
		}
		out, in, err := v.EncryptionKeys("Control-Salt", "Control-Write-Encryption-Key", "Control-Read-Encryption-Key")
		if !errors.Is(err, ErrNotSupported) {
			t.Fatalf("EncryptionKeys error = %v", err)
		}
		if out != nil || in != nil {
			t.Error("keys returned by null verifier")
		}
	}
	v.Close()
}

func TestNormalizePIN(t *testing.T) {
	tests := []struct {
		pin  int
		want string
	}{
		{0, "0000"},
		{7, "0007"},
		{1234, "1234"},
		{12345678, "12345678"},
	}
	for _, tt := range tests {
		got, err := NormalizePIN(tt.pin)
		if err != nil || got != tt.want {
			t.Errorf("NormalizePIN(%d) = %q, %v", tt.pin, got, err)
		}
	}
	if _, err := NormalizePIN(-1); err != ErrInvalidPin {
		t.Errorf("negative pin: %v", err)
	}
}

func TestParsePIN(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"1234", 1234, false},
		{" 0042\n", 42, false},
		{"123-45-678", 12345678, false},
		{"", 0, true},
		{"12a4", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePIN(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParsePIN(%q) = %d, %v", tt.in, got, err)
		}
	}
}

func TestStateString(t *testing.T) {
	if StatePinSet.String() != "PinSet" || State(99).String() != "Unknown" {
		t.Error("unexpected state names")
	}
	if !StateFailed.Done() || StateBegan.Done() {
		t.Error("Done() mismatch")
	}
}
