package pairing

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/pion/logging"
)

// DefaultTimeout bounds each handler operation when the caller's context has
// no deadline.
const DefaultTimeout = 30 * time.Second

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	// Service receives the credential token after a successful pairing.
	// Required.
	Service Service

	// Setup performs Pair-Setup. Required.
	Setup SetupProcedure

	// Verifier builds the Pair-Verify procedure used to confirm new
	// credentials. Required.
	Verifier VerifierFactory

	// Conn is closed by Close. Optional.
	Conn io.Closer

	// DeviceProvidesPIN reports that the device displays the PIN the user
	// must enter, as opposed to the user choosing it.
	DeviceProvidesPIN bool

	// Timeout bounds each operation when the context has no deadline.
	// Default: DefaultTimeout.
	Timeout time.Duration

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Handler drives one interactive pairing attempt: Begin, Pin, Finish.
//
// A Handler is meant for sequential use by one caller. Close may be called
// from any goroutine at any time and aborts in-flight work.
type Handler struct {
	config HandlerConfig
	log    logging.LeveledLogger

	// ctx is cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	state     State
	pin       string
	hasPaired bool

	closeOnce sync.Once
	closeErr  error
}

// NewHandler creates a handler in StateCreated.
func NewHandler(config HandlerConfig) (*Handler, error) {
	if config.Service == nil {
		return nil, ErrMissingService
	}
	if config.Setup == nil || config.Verifier == nil {
		return nil, ErrMissingProcedure
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Handler{
		config: config,
		ctx:    ctx,
		cancel: cancel,
		state:  StateCreated,
	}
	if config.LoggerFactory != nil {
		h.log = config.LoggerFactory.NewLogger("pairing")
	}
	return h, nil
}

// Service returns the service being paired.
func (h *Handler) Service() Service {
	return h.config.Service
}

// State returns the current state.
func (h *Handler) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// HasPaired reports whether pairing and verification both succeeded.
func (h *Handler) HasPaired() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hasPaired
}

// DeviceProvidesPIN reports whether the device displays the PIN.
func (h *Handler) DeviceProvidesPIN() bool {
	return h.config.DeviceProvidesPIN
}

// operationContext derives a context that ends with ctx, with Close, or after
// the configured timeout when ctx has no deadline.
func (h *Handler) operationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	var cancel context.CancelFunc
	if _, ok := ctx.Deadline(); ok {
		ctx, cancel = context.WithCancel(ctx)
	} else {
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
	}
	stop := context.AfterFunc(h.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Begin starts Pair-Setup. On failure the state does not change and Begin
// may be called again.
func (h *Handler) Begin(ctx context.Context) error {
	h.mu.Lock()
	switch {
	case h.state == StateClosed:
		h.mu.Unlock()
		return wrap("begin", ErrClosed)
	case h.state.Done():
		h.mu.Unlock()
		return wrap("begin", ErrAlreadyFinished)
	case h.state != StateCreated:
		h.mu.Unlock()
		return wrap("begin", ErrAlreadyBegun)
	}
	h.mu.Unlock()

	opCtx, cancel := h.operationContext(ctx)
	defer cancel()

	if err := h.config.Setup.StartPairing(opCtx); err != nil {
		if h.log != nil {
			h.log.Warnf("begin pairing with %s failed: %v", h.config.Service.Identifier(), err)
		}
		return wrap("begin", h.closedOr(err))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == StateClosed {
		return wrap("begin", ErrClosed)
	}
	h.state = StateBegan
	if h.log != nil {
		h.log.Debugf("pairing with %s began", h.config.Service.Identifier())
	}
	return nil
}

// Pin sets the PIN used by Finish. It does not contact the device.
func (h *Handler) Pin(pin int) error {
	normalized, err := NormalizePIN(pin)
	if err != nil {
		return wrap("pin", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	switch h.state {
	case StateBegan, StatePinSet:
	case StateClosed:
		return wrap("pin", ErrClosed)
	case StateFinished, StateFailed:
		return wrap("pin", ErrAlreadyFinished)
	default:
		return wrap("pin", ErrNotBegun)
	}
	h.pin = normalized
	h.state = StatePinSet
	return nil
}

// Finish completes Pair-Setup, confirms the new credentials with Pair-Verify
// and only then stores them on the service.
func (h *Handler) Finish(ctx context.Context) error {
	h.mu.Lock()
	switch {
	case h.state == StateClosed:
		h.mu.Unlock()
		return wrap("finish", ErrClosed)
	case h.state.Done():
		h.mu.Unlock()
		return wrap("finish", ErrAlreadyFinished)
	case h.pin == "":
		h.mu.Unlock()
		return wrap("finish", ErrNoPin)
	}
	pin := h.pin
	h.mu.Unlock()

	token, err := h.pairAndVerify(ctx, pin)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == StateClosed {
		return wrap("finish", ErrClosed)
	}
	if err != nil {
		h.state = StateFailed
		if h.log != nil {
			h.log.Warnf("pairing with %s failed: %v", h.config.Service.Identifier(), err)
		}
		return wrap("finish", err)
	}

	h.config.Service.SetCredentials(token)
	h.hasPaired = true
	h.state = StateFinished
	if h.log != nil {
		h.log.Infof("paired with %s", h.config.Service.Identifier())
	}
	return nil
}

func (h *Handler) pairAndVerify(ctx context.Context, pin string) (string, error) {
	opCtx, cancel := h.operationContext(ctx)
	defer cancel()

	creds, err := h.config.Setup.FinishPairing(opCtx, "", pin)
	if err != nil {
		return "", h.closedOr(err)
	}
	defer creds.Wipe()

	verifier, err := h.config.Verifier(opCtx, creds)
	if err != nil {
		return "", h.closedOr(err)
	}
	defer verifier.Close()

	ok, err := verifier.VerifyCredentials(opCtx)
	if err != nil {
		return "", h.closedOr(err)
	}
	if !ok {
		return "", ErrVerifyFailed
	}

	if h.log != nil {
		h.log.Debugf("verified new %s credentials for %s", creds.Type, h.config.Service.Identifier())
	}
	return creds.String(), nil
}

// closedOr reports ErrClosed for failures caused by Close.
func (h *Handler) closedOr(err error) error {
	if h.ctx.Err() != nil {
		return ErrClosed
	}
	return err
}

// Close aborts any in-flight operation and releases the connection. It is
// safe to call more than once.
func (h *Handler) Close() error {
	h.closeOnce.Do(func() {
		h.cancel()

		h.mu.Lock()
		h.state = StateClosed
		h.pin = ""
		h.mu.Unlock()

		if h.config.Conn != nil {
			h.closeErr = h.config.Conn.Close()
		}
		if h.log != nil {
			h.log.Debugf("pairing handler for %s closed", h.config.Service.Identifier())
		}
	})
	return h.closeErr
}
