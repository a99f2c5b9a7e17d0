package auth

import (
	"github.com/brutella/hap/tlv8"
)

// Message holds every TLV8 field used by Pair-Setup and Pair-Verify. It is
// the decode target for both requests and responses.
type Message struct {
	Method        byte   `tlv8:"0"`
	Identifier    string `tlv8:"1"`
	Salt          []byte `tlv8:"2"`
	PublicKey     []byte `tlv8:"3"`
	Proof         []byte `tlv8:"4"`
	EncryptedData []byte `tlv8:"5"`
	State         byte   `tlv8:"6"`
	Error         byte   `tlv8:"7"`
	Signature     []byte `tlv8:"10"`
	Flags         byte   `tlv8:"19"`
}

// SetupStartRequest is Pair-Setup M1.
type SetupStartRequest struct {
	Method byte `tlv8:"0"`
	State  byte `tlv8:"6"`
}

// TransientStartRequest is Pair-Setup M1 with the transient flag.
type TransientStartRequest struct {
	Method byte `tlv8:"0"`
	State  byte `tlv8:"6"`
	Flags  byte `tlv8:"19"`
}

// SetupStartResponse is Pair-Setup M2.
type SetupStartResponse struct {
	Salt      []byte `tlv8:"2"`
	PublicKey []byte `tlv8:"3"`
	State     byte   `tlv8:"6"`
}

// SetupProofRequest is Pair-Setup M3.
type SetupProofRequest struct {
	PublicKey []byte `tlv8:"3"`
	Proof     []byte `tlv8:"4"`
	State     byte   `tlv8:"6"`
}

// SetupProofResponse is Pair-Setup M4.
type SetupProofResponse struct {
	Proof []byte `tlv8:"4"`
	State byte   `tlv8:"6"`
}

// EncryptedMessage is Pair-Setup M5/M6 and Pair-Verify M3.
type EncryptedMessage struct {
	EncryptedData []byte `tlv8:"5"`
	State         byte   `tlv8:"6"`
}

// ExchangeInfo is the encrypted sub-TLV of Pair-Setup M5/M6.
type ExchangeInfo struct {
	Identifier string `tlv8:"1"`
	PublicKey  []byte `tlv8:"3"`
	Signature  []byte `tlv8:"10"`
}

// VerifyStartRequest is Pair-Verify M1.
type VerifyStartRequest struct {
	PublicKey []byte `tlv8:"3"`
	State     byte   `tlv8:"6"`
}

// VerifyStartResponse is Pair-Verify M2.
type VerifyStartResponse struct {
	PublicKey     []byte `tlv8:"3"`
	EncryptedData []byte `tlv8:"5"`
	State         byte   `tlv8:"6"`
}

// VerifyInfo is the encrypted sub-TLV of Pair-Verify M2/M3.
type VerifyInfo struct {
	Identifier string `tlv8:"1"`
	Signature  []byte `tlv8:"10"`
}

// ErrorResponse reports a failure at the given state.
type ErrorResponse struct {
	State byte `tlv8:"6"`
	Error byte `tlv8:"7"`
}

// Encode marshals a TLV8 message.
func Encode(v interface{}) ([]byte, error) {
	return tlv8.Marshal(v)
}

// Decode unmarshals a TLV8 payload into a Message.
func Decode(data []byte) (*Message, error) {
	var msg Message
	if err := tlv8.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// DecodeInto unmarshals a TLV8 payload into v.
func DecodeInto(data []byte, v interface{}) error {
	return tlv8.Unmarshal(data, v)
}
