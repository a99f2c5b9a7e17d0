package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"
)

// serveOnce answers requests on c with the given status and an echo of the body.
func serveOnce(t *testing.T, c *Conn, status int, count int) <-chan *http.Request {
	t.Helper()
	seen := make(chan *http.Request, count)
	go func() {
		reader := bufio.NewReader(c)
		for i := 0; i < count; i++ {
			req, err := http.ReadRequest(reader)
			if err != nil {
				close(seen)
				return
			}
			body, _ := io.ReadAll(req.Body)
			seen <- req

			resp := &http.Response{
				StatusCode:    status,
				ProtoMajor:    1,
				ProtoMinor:    1,
				Header:        http.Header{"Content-Type": {"application/octet-stream"}},
				ContentLength: int64(len(body)),
				Body:          io.NopCloser(bytes.NewReader(body)),
			}
			var buf bytes.Buffer
			resp.Write(&buf)
			c.Write(buf.Bytes())
		}
	}()
	return seen
}

func TestHTTPPost(t *testing.T) {
	client, device, pipe := NewConnPair(ConnConfig{})
	defer pipe.Close()

	seen := serveOnce(t, device, http.StatusOK, 2)
	h := NewHTTPConn(client, HTTPConfig{Host: "10.0.0.2:7000"})

	header := http.Header{"X-Apple-HKP": {"3"}}
	for _, body := range []string{"first", "second"} {
		resp, err := h.Post(context.Background(), "/pair-setup", header, []byte(body))
		if err != nil {
			t.Fatalf("Post failed: %v", err)
		}
		if string(resp.Body) != body {
			t.Errorf("body = %q, want %q", resp.Body, body)
		}

		req := <-seen
		if req.URL.Path != "/pair-setup" || req.Method != http.MethodPost {
			t.Errorf("request = %s %s", req.Method, req.URL.Path)
		}
		if req.Host != "10.0.0.2:7000" {
			t.Errorf("Host = %q", req.Host)
		}
		if req.Header.Get("X-Apple-HKP") != "3" {
			t.Error("custom header missing")
		}
		if req.Header.Get("User-Agent") != UserAgent {
			t.Errorf("User-Agent = %q", req.Header.Get("User-Agent"))
		}
	}
}

func TestHTTPErrorStatus(t *testing.T) {
	client, device, pipe := NewConnPair(ConnConfig{})
	defer pipe.Close()

	serveOnce(t, device, http.StatusForbidden, 1)
	h := NewHTTPConn(client, HTTPConfig{})

	resp, err := h.Post(context.Background(), "/pair-pin-start", nil, nil)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusForbidden || resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d", httpErr.StatusCode)
	}
}

func TestHTTPClosed(t *testing.T) {
	client, _, pipe := NewConnPair(ConnConfig{})
	defer pipe.Close()

	h := NewHTTPConn(client, HTTPConfig{})
	h.Close()
	if _, err := h.Post(context.Background(), "/pair-setup", nil, nil); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestHTTPCloseUnblocks(t *testing.T) {
	client, _, pipe := NewConnPair(ConnConfig{})
	defer pipe.Close()

	h := NewHTTPConn(client, HTTPConfig{})
	done := make(chan error, 1)
	go func() {
		_, err := h.Post(context.Background(), "/pair-setup", nil, []byte("x"))
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	h.Close()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected error after close")
		}
	case <-time.After(time.Second):
		t.Fatal("Post did not return after Close")
	}
}

func TestHTTPCanceledContext(t *testing.T) {
	client, _, pipe := NewConnPair(ConnConfig{})
	defer pipe.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := NewHTTPConn(client, HTTPConfig{})
	if _, err := h.Post(ctx, "/pair-setup", nil, nil); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestHTTPTruncatedBody(t *testing.T) {
	clientSide, deviceSide := net.Pipe()
	defer clientSide.Close()

	go func() {
		defer deviceSide.Close()
		if _, err := http.ReadRequest(bufio.NewReader(deviceSide)); err != nil {
			return
		}
		io.WriteString(deviceSide, "HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\nonly-ten!!")
	}()

	h := NewHTTPConn(NewConn(clientSide, ConnConfig{}), HTTPConfig{})
	resp, err := h.Post(context.Background(), "/pair-setup", nil, []byte("M1"))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("Post = %+v, %v, want io.ErrUnexpectedEOF", resp, err)
	}
}
