package pairing

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/backkem/mediapair/pkg/credentials"
)

type testService struct {
	mu    sync.Mutex
	creds string
	sets  int
}

func (s *testService) Identifier() string { return "AA:BB:CC:DD:EE:FF" }
func (s *testService) Credentials() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds
}
func (s *testService) SetCredentials(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = token
	s.sets++
}
func (s *testService) Port() int                     { return 7000 }
func (s *testService) Properties() map[string]string { return map[string]string{} }

type testSetup struct {
	startErr  error
	finishErr error
	block     bool

	starts int
	pins   []string
}

func (s *testSetup) StartPairing(ctx context.Context) error {
	s.starts++
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.startErr
}

func (s *testSetup) FinishPairing(ctx context.Context, username, pin string) (*credentials.Credentials, error) {
	s.pins = append(s.pins, pin)
	if s.finishErr != nil {
		return nil, s.finishErr
	}
	return credentials.NewHAP(bytes.Repeat([]byte{1}, 32), bytes.Repeat([]byte{2}, 32), []byte("device"), "client"), nil
}

type testVerifier struct {
	ok     bool
	err    error
	closed bool
}

func (v *testVerifier) VerifyCredentials(context.Context) (bool, error) { return v.ok, v.err }
func (v *testVerifier) EncryptionKeys(string, string, string) ([]byte, []byte, error) {
	return nil, nil, ErrNotSupported
}
func (v *testVerifier) Close() { v.closed = true }

type testConn struct{ closes int }

func (c *testConn) Close() error {
	c.closes++
	return nil
}

func newTestHandler(t *testing.T, setup *testSetup, verifier *testVerifier) (*Handler, *testService, *testConn) {
	t.Helper()
	service := &testService{}
	conn := &testConn{}
	h, err := NewHandler(HandlerConfig{
		Service: service,
		Setup:   setup,
		Verifier: func(ctx context.Context, creds *credentials.Credentials) (VerifyProcedure, error) {
			if creds.Type != credentials.AuthHAP {
				t.Errorf("verifier got %v credentials", creds.Type)
			}
			return verifier, nil
		},
		Conn:              conn,
		DeviceProvidesPIN: true,
	})
	if err != nil {
		t.Fatalf("NewHandler failed: %v", err)
	}
	return h, service, conn
}

func TestHandlerSuccess(t *testing.T) {
	setup := &testSetup{}
	verifier := &testVerifier{ok: true}
	h, service, _ := newTestHandler(t, setup, verifier)
	defer h.Close()

	ctx := context.Background()
	if err := h.Begin(ctx); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if h.State() != StateBegan {
		t.Errorf("state = %v, want Began", h.State())
	}
	if err := h.Pin(42); err != nil {
		t.Fatalf("Pin failed: %v", err)
	}
	if err := h.Finish(ctx); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	if !h.HasPaired() {
		t.Error("HasPaired() = false")
	}
	if h.State() != StateFinished {
		t.Errorf("state = %v, want Finished", h.State())
	}
	if len(setup.pins) != 1 || setup.pins[0] != "0042" {
		t.Errorf("pins = %v, want [0042]", setup.pins)
	}
	if !strings.HasPrefix(service.Credentials(), "hap:") {
		t.Errorf("stored credentials = %q", service.Credentials())
	}
	if !verifier.closed {
		t.Error("verifier not closed")
	}
	if !h.DeviceProvidesPIN() {
		t.Error("DeviceProvidesPIN() = false")
	}
}

func TestHandlerFinishWithoutPin(t *testing.T) {
	tests := []struct {
		name  string
		begin bool
	}{
		{"after begin", true},
		{"without begin", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setup := &testSetup{}
			h, service, _ := newTestHandler(t, setup, &testVerifier{ok: true})
			defer h.Close()

			if tt.begin {
				if err := h.Begin(context.Background()); err != nil {
					t.Fatal(err)
				}
			}

			err := h.Finish(context.Background())
			var perr *Error
			if !errors.As(err, &perr) {
				t.Fatalf("expected *Error, got %T %v", err, err)
			}
			if !errors.Is(err, ErrNoPin) || !strings.Contains(err.Error(), "no pin given") {
				t.Errorf("error = %v", err)
			}
			if h.HasPaired() {
				t.Error("HasPaired() = true")
			}
			if len(setup.pins) != 0 {
				t.Error("FinishPairing called without pin")
			}
			if service.sets != 0 {
				t.Error("credentials stored")
			}
		})
	}
}

func TestHandlerBeginFailure(t *testing.T) {
	boom := errors.New("connection refused")
	setup := &testSetup{startErr: boom}
	h, _, _ := newTestHandler(t, setup, &testVerifier{ok: true})
	defer h.Close()

	err := h.Begin(context.Background())
	var perr *Error
	if !errors.As(err, &perr) || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if h.State() != StateCreated {
		t.Errorf("state = %v after failed begin", h.State())
	}

	// The caller may retry.
	setup.startErr = nil
	if err := h.Begin(context.Background()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if setup.starts != 2 {
		t.Errorf("starts = %d", setup.starts)
	}
}

func TestHandlerPinBeforeBegin(t *testing.T) {
	h, _, _ := newTestHandler(t, &testSetup{}, &testVerifier{ok: true})
	defer h.Close()

	if err := h.Pin(1234); !errors.Is(err, ErrNotBegun) {
		t.Errorf("expected ErrNotBegun, got %v", err)
	}
}

func TestHandlerFailuresKeepStoredCredentials(t *testing.T) {
	tests := []struct {
		name     string
		setup    *testSetup
		verifier *testVerifier
		want     error
	}{
		{"setup fails", &testSetup{finishErr: errors.New("bad pin")}, &testVerifier{ok: true}, nil},
		{"verify fails", &testSetup{}, &testVerifier{err: errors.New("bad signature")}, nil},
		{"verify produces no keys", &testSetup{}, &testVerifier{ok: false}, ErrVerifyFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, service, _ := newTestHandler(t, tt.setup, tt.verifier)
			defer h.Close()
			service.creds = "legacy:41:" + strings.Repeat("00", 32)

			h.Begin(context.Background())
			h.Pin(1111)
			err := h.Finish(context.Background())
			if err == nil {
				t.Fatal("Finish succeeded")
			}
			var perr *Error
			if !errors.As(err, &perr) {
				t.Errorf("expected *Error, got %T", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if h.HasPaired() {
				t.Error("HasPaired() = true")
			}
			if service.sets != 0 || !strings.HasPrefix(service.creds, "legacy:") {
				t.Errorf("stored credentials changed to %q", service.creds)
			}
			if h.State() != StateFailed {
				t.Errorf("state = %v, want Failed", h.State())
			}

			if err := h.Finish(context.Background()); !errors.Is(err, ErrAlreadyFinished) {
				t.Errorf("second Finish: %v", err)
			}
		})
	}
}

func TestHandlerFinishTwice(t *testing.T) {
	h, _, _ := newTestHandler(t, &testSetup{}, &testVerifier{ok: true})
	defer h.Close()

	h.Begin(context.Background())
	h.Pin(1234)
	if err := h.Finish(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := h.Finish(context.Background()); !errors.Is(err, ErrAlreadyFinished) {
		t.Errorf("expected ErrAlreadyFinished, got %v", err)
	}
}

func TestHandlerCloseIdempotent(t *testing.T) {
	h, _, conn := newTestHandler(t, &testSetup{}, &testVerifier{ok: true})

	if err := h.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if conn.closes != 1 {
		t.Errorf("connection closed %d times", conn.closes)
	}
	if err := h.Begin(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Begin after Close: %v", err)
	}
}

func TestHandlerCloseAbortsBegin(t *testing.T) {
	h, _, _ := newTestHandler(t, &testSetup{block: true}, &testVerifier{ok: true})

	done := make(chan error, 1)
	go func() {
		done <- h.Begin(context.Background())
	}()

	time.Sleep(20 * time.Millisecond)
	h.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Begin not aborted by Close")
	}
	if h.State() != StateClosed {
		t.Errorf("state = %v", h.State())
	}
}

func TestNewHandlerValidation(t *testing.T) {
	if _, err := NewHandler(HandlerConfig{}); err != ErrMissingService {
		t.Errorf("expected ErrMissingService, got %v", err)
	}
	if _, err := NewHandler(HandlerConfig{Service: &testService{}}); err != ErrMissingProcedure {
		t.Errorf("expected ErrMissingProcedure, got %v", err)
	}
}
