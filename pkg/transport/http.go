package transport

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/pion/logging"
)

// UserAgent is sent with every request.
const UserAgent = "AirPlay/320.20"

// HTTPConfig configures an HTTPConn.
type HTTPConfig struct {
	// Host is sent in the Host header. Defaults to the remote address.
	Host string

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// HTTPConn issues sequential HTTP/1.1 requests over a Conn. Because the
// underlying Conn may switch to encrypted framing between requests, each
// request is written in a single Write and each response is read in full.
type HTTPConn struct {
	conn   *Conn
	reader *bufio.Reader
	host   string
	log    logging.LeveledLogger

	mu sync.Mutex
}

// NewHTTPConn creates an HTTP client bound to conn.
func NewHTTPConn(conn *Conn, config HTTPConfig) *HTTPConn {
	h := &HTTPConn{
		conn:   conn,
		reader: bufio.NewReader(conn),
		host:   config.Host,
	}
	if h.host == "" && conn.RemoteAddr() != nil {
		h.host = conn.RemoteAddr().String()
	}
	if h.host == "" {
		h.host = "localhost"
	}
	if config.LoggerFactory != nil {
		h.log = config.LoggerFactory.NewLogger("transport-http")
	}
	return h
}

// Conn returns the underlying connection.
func (h *HTTPConn) Conn() *Conn {
	return h.conn
}

// Post sends a POST request and returns the response. Non-2xx statuses are
// returned as *HTTPError.
func (h *HTTPConn) Post(ctx context.Context, path string, header http.Header, body []byte) (*Response, error) {
	return h.Do(ctx, http.MethodPost, path, header, body)
}

// Get sends a GET request and returns the response.
func (h *HTTPConn) Get(ctx context.Context, path string, header http.Header) (*Response, error) {
	return h.Do(ctx, http.MethodGet, path, header, nil)
}

// Do sends a request and reads its response. Cancelling ctx interrupts a
// blocked exchange by expiring the connection deadline.
func (h *HTTPConn) Do(ctx context.Context, method, path string, header http.Header, body []byte) (*Response, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conn.Closed() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deadline, _ := ctx.Deadline()
	if err := h.conn.SetDeadline(deadline); err != nil && h.log != nil {
		h.log.Tracef("set deadline: %v", err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = h.conn.SetDeadline(time.Unix(1, 0))
	})
	defer func() {
		stop()
		_ = h.conn.SetDeadline(time.Time{})
	}()

	resp, err := h.roundTrip(method, path, header, body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if h.conn.Closed() {
			return nil, ErrClosed
		}
		return nil, err
	}

	if h.log != nil {
		h.log.Tracef("%s %s -> %d (%d bytes)", method, path, resp.StatusCode, len(resp.Body))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, &HTTPError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: resp.Body}
	}
	return resp, nil
}

func (h *HTTPConn) roundTrip(method, path string, header http.Header, body []byte) (*Response, error) {
	req, err := http.NewRequest(method, path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Host = h.host
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Content-Length", strconv.Itoa(len(body)))
	req.ContentLength = int64(len(body))

	var buf bytes.Buffer
	if err := req.Write(&buf); err != nil {
		return nil, err
	}
	if _, err := h.conn.Write(buf.Bytes()); err != nil {
		return nil, err
	}

	resp, err := http.ReadResponse(h.reader, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// Close closes the underlying connection.
func (h *HTTPConn) Close() error {
	return h.conn.Close()
}
