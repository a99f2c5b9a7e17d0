// Package session implements the encrypted framing used on AirPlay control
// connections after Pair-Verify.
//
// Each frame is:
//
//	length (2 bytes, LE) || ChaCha20-Poly1305(block, aad=length) || tag (16 bytes)
//
// Blocks hold at most 1024 plaintext bytes. The nonce is the per-direction
// frame counter encoded as 4 zero bytes followed by 8 bytes little-endian.
package session

import (
	"encoding/binary"
	"sync"

	"github.com/backkem/mediapair/pkg/crypto"
)

const (
	// KeySize is the size of each direction's ChaCha20-Poly1305 key.
	KeySize = 32

	// MaxBlockSize is the largest plaintext carried by one frame.
	MaxBlockSize = 1024

	// LengthSize is the size of the frame length prefix.
	LengthSize = 2

	// TagSize is the size of the frame authentication tag.
	TagSize = crypto.ChaChaTagSize
)

// HAPSession encrypts outgoing and decrypts incoming frames with independent
// keys and counters. Encrypt and Decrypt may be called from different
// goroutines.
type HAPSession struct {
	writeMu     sync.Mutex
	outputKey   []byte
	outputCount uint64

	readMu      sync.Mutex
	inputKey    []byte
	inputCount  uint64
	inputBuffer []byte
}

// NewHAPSession creates a session with the given output (write) and input
// (read) keys.
func NewHAPSession(outputKey, inputKey []byte) (*HAPSession, error) {
	if len(outputKey) != KeySize || len(inputKey) != KeySize {
		return nil, ErrInvalidKey
	}
	return &HAPSession{
		outputKey: append([]byte(nil), outputKey...),
		inputKey:  append([]byte(nil), inputKey...),
	}, nil
}

// Encrypt splits data into frames and encrypts each one.
func (s *HAPSession) Encrypt(data []byte) ([]byte, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	frames := (len(data) + MaxBlockSize - 1) / MaxBlockSize
	out := make([]byte, 0, len(data)+frames*(LengthSize+TagSize))

	for len(data) > 0 {
		n := len(data)
		if n > MaxBlockSize {
			n = MaxBlockSize
		}
		block := data[:n]
		data = data[n:]

		length := make([]byte, LengthSize)
		binary.LittleEndian.PutUint16(length, uint16(n))

		nonce := crypto.BuildCounterNonce(s.outputCount)
		sealed, err := crypto.ChaChaSeal(s.outputKey, nonce, block, length)
		if err != nil {
			return nil, err
		}
		s.outputCount++

		out = append(out, length...)
		out = append(out, sealed...)
	}
	return out, nil
}

// Decrypt consumes received bytes and returns the plaintext of every complete
// frame. Bytes of an incomplete trailing frame are kept until the next call.
func (s *HAPSession) Decrypt(data []byte) ([]byte, error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	s.inputBuffer = append(s.inputBuffer, data...)

	var out []byte
	for len(s.inputBuffer) >= LengthSize {
		n := int(binary.LittleEndian.Uint16(s.inputBuffer[:LengthSize]))
		if n > MaxBlockSize {
			return nil, ErrFrameTooLarge
		}
		frameSize := LengthSize + n + TagSize
		if len(s.inputBuffer) < frameSize {
			break
		}

		length := s.inputBuffer[:LengthSize]
		nonce := crypto.BuildCounterNonce(s.inputCount)
		plain, err := crypto.ChaChaOpen(s.inputKey, nonce, s.inputBuffer[LengthSize:frameSize], length)
		if err != nil {
			return nil, ErrDecryptFailed
		}
		s.inputCount++

		out = append(out, plain...)
		s.inputBuffer = s.inputBuffer[frameSize:]
	}

	if len(s.inputBuffer) == 0 {
		s.inputBuffer = nil
	}
	if out == nil {
		out = []byte{}
	}
	return out, nil
}

// Pending returns the number of buffered bytes of an incomplete frame.
func (s *HAPSession) Pending() int {
	s.readMu.Lock()
	defer s.readMu.Unlock()
	return len(s.inputBuffer)
}

// Wipe zeroes both keys.
func (s *HAPSession) Wipe() {
	s.writeMu.Lock()
	crypto.Wipe(s.outputKey)
	s.writeMu.Unlock()

	s.readMu.Lock()
	crypto.Wipe(s.inputKey)
	s.readMu.Unlock()
}
