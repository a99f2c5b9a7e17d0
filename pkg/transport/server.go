package transport

import (
	"net"
	"sync"

	"github.com/pion/logging"
)

// ConnHandler serves one accepted connection. The connection is closed when
// the handler returns.
type ConnHandler func(*Conn)

// Server accepts TCP connections and serves each one in its own goroutine.
type Server struct {
	listener net.Listener
	handler  ConnHandler
	factory  logging.LoggerFactory
	closeCh  chan struct{}
	wg       sync.WaitGroup
	log      logging.LeveledLogger

	connsMu sync.Mutex
	conns   map[*Conn]struct{}

	mu      sync.Mutex
	started bool
	closed  bool
}

// ServerConfig configures a Server.
type ServerConfig struct {
	// Listener is an optional pre-existing Listener to use.
	// If nil, a new listener will be created using ListenAddr.
	Listener net.Listener

	// ListenAddr is the address to listen on (e.g., "127.0.0.1:7000").
	// Ignored if Listener is provided.
	ListenAddr string

	// Handler is called for each accepted connection.
	// Required.
	Handler ConnHandler

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// NewServer creates a server with the given configuration.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Handler == nil {
		return nil, ErrNoHandler
	}

	s := &Server{
		listener: config.Listener,
		handler:  config.Handler,
		factory:  config.LoggerFactory,
		closeCh:  make(chan struct{}),
		conns:    make(map[*Conn]struct{}),
	}
	if config.LoggerFactory != nil {
		s.log = config.LoggerFactory.NewLogger("transport-server")
	}

	if s.listener == nil {
		addr := config.ListenAddr
		if addr == "" {
			addr = "127.0.0.1:0"
		}
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, err
		}
		s.listener = listener
	}
	return s, nil
}

// Start begins accepting connections.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	if s.log != nil {
		s.log.Infof("listening on %s", s.listener.Addr())
	}

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop closes the listener and all open connections and waits for handlers
// to return.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.closed = true
	s.mu.Unlock()

	close(s.closeCh)
	s.listener.Close()

	s.connsMu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()
	return nil
}

// Addr returns the listening address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		nc, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return
			default:
				if s.log != nil {
					s.log.Warnf("accept failed: %v", err)
				}
				continue
			}
		}

		s.wg.Add(1)
		go s.serve(NewConn(nc, ConnConfig{LoggerFactory: s.factory}))
	}
}

func (s *Server) serve(c *Conn) {
	defer s.wg.Done()

	s.connsMu.Lock()
	s.conns[c] = struct{}{}
	s.connsMu.Unlock()

	select {
	case <-s.closeCh:
		c.Close()
	default:
	}

	defer func() {
		c.Close()
		s.connsMu.Lock()
		delete(s.conns, c)
		s.connsMu.Unlock()
	}()

	s.handler(c)
}
