package transport

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/pion/logging"
)

// DefaultDialTimeout bounds Dial when the context has no deadline.
const DefaultDialTimeout = 10 * time.Second

// DialConfig configures Dial.
type DialConfig struct {
	// Timeout bounds connection establishment. Default: DefaultDialTimeout.
	Timeout time.Duration

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// WithDefaults returns a copy of the config with zero values replaced.
func (c DialConfig) WithDefaults() DialConfig {
	if c.Timeout <= 0 {
		c.Timeout = DefaultDialTimeout
	}
	return c
}

// Dial opens a TCP connection to host:port.
func Dial(ctx context.Context, host string, port int, config DialConfig) (*Conn, error) {
	if host == "" || port <= 0 || port > 65535 {
		return nil, ErrInvalidAddress
	}
	config = config.WithDefaults()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	if config.LoggerFactory != nil {
		config.LoggerFactory.NewLogger("transport").Debugf("connected to %s", addr)
	}
	return NewConn(c, ConnConfig{LoggerFactory: config.LoggerFactory}), nil
}
