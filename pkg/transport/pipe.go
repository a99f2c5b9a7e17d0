package transport

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pion/transport/v3/test"
)

// PipeConfig configures a Pipe.
type PipeConfig struct {
	// AutoProcess enables automatic delivery in a background goroutine.
	// Default: true
	AutoProcess bool

	// ProcessInterval is how often the auto-processor delivers queued writes.
	// Default: 1ms
	ProcessInterval time.Duration
}

// DefaultPipeConfig returns the default pipe configuration.
func DefaultPipeConfig() PipeConfig {
	return PipeConfig{
		AutoProcess:     true,
		ProcessInterval: 1 * time.Millisecond,
	}
}

// Pipe connects a client and a device endpoint in memory. It wraps pion's
// test.Bridge, which delivers each Write as one unit; readers must use a
// buffer at least as large as the largest write, which Conn does.
type Pipe struct {
	bridge *test.Bridge

	mu              sync.Mutex
	closed          bool
	autoProcess     bool
	processInterval time.Duration
	stopCh          chan struct{}
	wg              sync.WaitGroup
}

// NewPipe creates a pipe with auto-processing enabled.
func NewPipe() *Pipe {
	return NewPipeWithConfig(DefaultPipeConfig())
}

// NewPipeWithConfig creates a pipe with the given configuration.
func NewPipeWithConfig(config PipeConfig) *Pipe {
	p := &Pipe{
		bridge:          test.NewBridge(),
		autoProcess:     config.AutoProcess,
		processInterval: config.ProcessInterval,
		stopCh:          make(chan struct{}),
	}
	if p.processInterval == 0 {
		p.processInterval = 1 * time.Millisecond
	}
	if p.autoProcess {
		p.startAutoProcess()
	}
	return p
}

func (p *Pipe) startAutoProcess() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.processInterval)
		defer ticker.Stop()

		for {
			select {
			case <-p.stopCh:
				return
			case <-ticker.C:
				p.bridge.Tick()
			}
		}
	}()
}

// Conn0 returns the client endpoint.
func (p *Pipe) Conn0() net.Conn {
	return &pipeConn{conn: p.bridge.GetConn0(), local: PipeAddr{ID: 0}, remote: PipeAddr{ID: 1}}
}

// Conn1 returns the device endpoint.
func (p *Pipe) Conn1() net.Conn {
	return &pipeConn{conn: p.bridge.GetConn1(), local: PipeAddr{ID: 1}, remote: PipeAddr{ID: 0}}
}

// Tick delivers one queued write in each direction.
func (p *Pipe) Tick() int {
	return p.bridge.Tick()
}

// Process delivers all queued writes.
func (p *Pipe) Process() int {
	count := 0
	for {
		n := p.Tick()
		if n == 0 {
			break
		}
		count += n
	}
	return count
}

// Close closes both endpoints and stops auto-processing.
func (p *Pipe) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	if p.autoProcess {
		close(p.stopCh)
	}
	p.mu.Unlock()

	p.wg.Wait()

	err0 := p.bridge.GetConn0().Close()
	err1 := p.bridge.GetConn1().Close()
	if err0 != nil {
		return err0
	}
	return err1
}

// NewConnPair returns a client and device Conn joined by a new Pipe.
func NewConnPair(config ConnConfig) (client, device *Conn, pipe *Pipe) {
	pipe = NewPipe()
	return NewConn(pipe.Conn0(), config), NewConn(pipe.Conn1(), config), pipe
}

// PipeAddr implements net.Addr for pipe endpoints.
type PipeAddr struct {
	ID int
}

// Network returns "pipe".
func (a PipeAddr) Network() string { return "pipe" }

// String returns a string representation of the address.
func (a PipeAddr) String() string { return fmt.Sprintf("pipe-%d", a.ID) }

// pipeConn gives bridge endpoints addresses.
type pipeConn struct {
	conn   net.Conn
	local  PipeAddr
	remote PipeAddr
}

func (c *pipeConn) Read(b []byte) (int, error)         { return c.conn.Read(b) }
func (c *pipeConn) Write(b []byte) (int, error)        { return c.conn.Write(b) }
func (c *pipeConn) Close() error                       { return c.conn.Close() }
func (c *pipeConn) LocalAddr() net.Addr                { return c.local }
func (c *pipeConn) RemoteAddr() net.Addr               { return c.remote }
func (c *pipeConn) SetDeadline(t time.Time) error      { return c.conn.SetDeadline(t) }
func (c *pipeConn) SetReadDeadline(t time.Time) error  { return c.conn.SetReadDeadline(t) }
func (c *pipeConn) SetWriteDeadline(t time.Time) error { return c.conn.SetWriteDeadline(t) }

var _ net.Conn = (*pipeConn)(nil)
