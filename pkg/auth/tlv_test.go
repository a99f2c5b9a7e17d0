package auth

import (
	"errors"
	"testing"
)

func TestDecodeErrorResponse(t *testing.T) {
	data, err := Encode(ErrorResponse{State: byte(StateM4), Error: byte(ErrorAuthentication)})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	msg, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if State(msg.State) != StateM4 {
		t.Errorf("State = %d, want %d", msg.State, StateM4)
	}

	err = CheckError(msg)
	var derr *DeviceError
	if !errors.As(err, &derr) || derr.Code != ErrorAuthentication {
		t.Fatalf("CheckError = %v, want authentication device error", err)
	}
}

func TestTransientFlagEncoded(t *testing.T) {
	data, err := Encode(TransientStartRequest{State: byte(StateM1), Flags: FlagTransient})
	if err != nil {
		t.Fatal(err)
	}
	msg, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Flags != FlagTransient || Method(msg.Method) != MethodPairSetup {
		t.Errorf("decoded flags=%#x method=%d", msg.Flags, msg.Method)
	}
	if CheckError(msg) != nil {
		t.Error("CheckError reported an error for a request")
	}
}

func TestErrorCodeString(t *testing.T) {
	if ErrorBusy.String() == ErrorCode(0).String() {
		t.Error("known code shares the unknown description")
	}
}
