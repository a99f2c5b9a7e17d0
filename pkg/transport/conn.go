package transport

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/logging"
)

// Processor rewrites bytes on the send or receive path of a Conn.
type Processor func([]byte) ([]byte, error)

type processors struct {
	send    Processor
	receive Processor
}

const readBufferSize = 64 * 1024

// ConnConfig configures a Conn.
type ConnConfig struct {
	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Conn wraps a net.Conn with optional send and receive processors.
//
// Until SetProcessors is called bytes pass through unchanged. Processors are
// installed at most once and take effect for whole Read and Write calls, so a
// concurrent reader or writer never sees a half switched stream.
type Conn struct {
	conn  net.Conn
	procs atomic.Pointer[processors]
	log   logging.LeveledLogger

	readMu  sync.Mutex
	readBuf []byte
	pending []byte

	writeMu sync.Mutex

	closeOnce sync.Once
	closed    atomic.Bool
	closeErr  error
}

// NewConn wraps c.
func NewConn(c net.Conn, config ConnConfig) *Conn {
	conn := &Conn{
		conn:    c,
		readBuf: make([]byte, readBufferSize),
	}
	if config.LoggerFactory != nil {
		conn.log = config.LoggerFactory.NewLogger("transport")
	}
	return conn
}

// SetProcessors installs the send and receive processors. It fails with
// ErrProcessorsInstalled if processors are already present.
func (c *Conn) SetProcessors(send, receive Processor) error {
	if send == nil || receive == nil {
		return ErrProcessorsInstalled
	}
	if !c.procs.CompareAndSwap(nil, &processors{send: send, receive: receive}) {
		return ErrProcessorsInstalled
	}
	if c.log != nil {
		c.log.Debugf("processors installed on %s", c.RemoteAddr())
	}
	return nil
}

// Processors returns the installed processors, or nil for pass-through.
func (c *Conn) Processors() (send, receive Processor) {
	p := c.procs.Load()
	if p == nil {
		return nil, nil
	}
	return p.send, p.receive
}

// Encrypted reports whether processors are installed.
func (c *Conn) Encrypted() bool {
	return c.procs.Load() != nil
}

// Read reads processed bytes. A receive processor that buffers partial input
// does not cause a zero length read.
func (c *Conn) Read(b []byte) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	for len(c.pending) == 0 {
		if c.closed.Load() {
			return 0, ErrClosed
		}
		n, err := c.conn.Read(c.readBuf)
		if n > 0 {
			data := append([]byte(nil), c.readBuf[:n]...)
			if p := c.procs.Load(); p != nil {
				data, err = p.receive(data)
				if err != nil {
					if c.log != nil {
						c.log.Warnf("receive processor failed: %v", err)
					}
					return 0, err
				}
			}
			c.pending = data
			continue
		}
		if err != nil {
			return 0, err
		}
	}

	n := copy(b, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

// Write processes b and writes the result in one call.
func (c *Conn) Write(b []byte) (int, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	data := b
	if p := c.procs.Load(); p != nil {
		var err error
		data, err = p.send(b)
		if err != nil {
			return 0, err
		}
	}

	for len(data) > 0 {
		n, err := c.conn.Write(data)
		if err != nil {
			return 0, err
		}
		data = data[n:]
	}
	return len(b), nil
}

// Close closes the underlying connection. It is safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.conn.Close()
		if c.log != nil {
			c.log.Debugf("closed connection to %s", c.RemoteAddr())
		}
	})
	return c.closeErr
}

// Closed reports whether Close has been called.
func (c *Conn) Closed() bool {
	return c.closed.Load()
}

// LocalAddr returns the local network address.
func (c *Conn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr returns the remote network address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// SetDeadline sets the read and write deadlines.
func (c *Conn) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

// SetReadDeadline sets the read deadline.
func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// SetWriteDeadline sets the write deadline.
func (c *Conn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

// Verify Conn implements net.Conn.
var _ net.Conn = (*Conn)(nil)
