package crypto

import (
	"bytes"
	"crypto/sha512"
	"testing"
)

func TestSHA512Concatenates(t *testing.T) {
	want := sha512.Sum512([]byte("Pair-Setup-AES-Keysecret"))
	got := SHA512([]byte("Pair-Setup-AES-Key"), []byte("secret"))
	if !bytes.Equal(got, want[:]) {
		t.Errorf("SHA512 = %x, want %x", got, want)
	}

	label := SHA512Label("Pair-Setup-AES-Key", []byte("secret"))
	if !bytes.Equal(label, want[:]) {
		t.Error("SHA512Label differs from SHA512")
	}
}

func TestWipe(t *testing.T) {
	a := []byte{1, 2, 3}
	b := []byte{4, 5}
	WipeAll(a, nil, b)
	if !bytes.Equal(a, []byte{0, 0, 0}) || !bytes.Equal(b, []byte{0, 0}) {
		t.Errorf("WipeAll left data: %v %v", a, b)
	}
	Wipe(nil)
}
