package airplay

import (
	"context"
	"net"

	"github.com/backkem/mediapair/pkg/credentials"
	"github.com/backkem/mediapair/pkg/pairing"
	"github.com/backkem/mediapair/pkg/transport"
)

// NewPairingHandler dials service.Port() at address and returns an
// interactive handler that pairs service with the configured Pair-Setup
// scheme. Closing the handler closes the connection.
func NewPairingHandler(ctx context.Context, address net.IP, service pairing.Service, config PairingConfig) (*pairing.Handler, error) {
	if address == nil {
		return nil, transport.ErrInvalidAddress
	}
	config = config.WithDefaults()

	conn, err := transport.Dial(ctx, address.String(), service.Port(), transport.DialConfig{
		Timeout:       config.Timeout,
		LoggerFactory: config.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}

	h, err := NewPairingHandlerWithConn(transport.NewHTTPConn(conn, transport.HTTPConfig{
		LoggerFactory: config.LoggerFactory,
	}), service, config)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return h, nil
}

// NewPairingHandlerWithConn returns a handler bound to an existing
// connection. New credentials are confirmed with Pair-Verify on the same
// connection.
func NewPairingHandlerWithConn(conn *transport.HTTPConn, service pairing.Service, config PairingConfig) (*pairing.Handler, error) {
	config = config.WithDefaults()

	setup, err := PairSetup(config.AuthType, conn, config)
	if err != nil {
		return nil, err
	}

	return pairing.NewHandler(pairing.HandlerConfig{
		Service: service,
		Setup:   setup,
		Verifier: func(_ context.Context, creds *credentials.Credentials) (pairing.VerifyProcedure, error) {
			return PairVerify(creds, conn, config)
		},
		Conn:              conn,
		DeviceProvidesPIN: true,
		Timeout:           config.Timeout,
		LoggerFactory:     config.LoggerFactory,
	})
}
