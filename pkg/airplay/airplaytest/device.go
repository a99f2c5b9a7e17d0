// Package airplaytest provides an in-memory AirPlay device that answers the
// pairing endpoints, for testing clients without a network.
package airplaytest

import (
	"bufio"
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/pion/logging"
	"howett.net/plist"

	"github.com/backkem/mediapair/pkg/crypto"
	"github.com/backkem/mediapair/pkg/session"
	"github.com/backkem/mediapair/pkg/transport"
)

// Control channel labels, mirrored from the device's point of view.
const (
	controlSalt       = "Control-Salt"
	controlClientOut  = "Control-Write-Encryption-Key"
	controlClientIn   = "Control-Read-Encryption-Key"
	defaultPIN        = "1234"
	defaultIdentifier = "AA:BB:CC:DD:EE:FF"
)

// DeviceConfig configures a Device.
type DeviceConfig struct {
	// PIN is the Pair-Setup password. Default: "1234".
	PIN string

	// Identifier is the device pairing identifier. Default: "AA:BB:CC:DD:EE:FF".
	Identifier string

	// Name is reported by GET /info.
	Name string

	// Rand is the randomness source. Default: crypto/rand.
	Rand io.Reader

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Device is a fake AirPlay receiver. Pairings made on one connection are
// remembered for later connections.
type Device struct {
	config     DeviceConfig
	log        logging.LeveledLogger
	signingKey ed25519.PrivateKey

	mu          sync.Mutex
	hapPeers    map[string][]byte
	legacyPeers map[string][]byte
	pinStarts   int
	requests    []string
}

// NewDevice creates a device with a fresh long-term key.
func NewDevice(config DeviceConfig) (*Device, error) {
	if config.PIN == "" {
		config.PIN = defaultPIN
	}
	if config.Identifier == "" {
		config.Identifier = defaultIdentifier
	}
	if config.Name == "" {
		config.Name = "Fake Apple TV"
	}
	if config.Rand == nil {
		config.Rand = rand.Reader
	}

	seed, err := crypto.GenerateEd25519Seed(config.Rand)
	if err != nil {
		return nil, err
	}
	key, err := crypto.Ed25519FromSeed(seed)
	if err != nil {
		return nil, err
	}

	d := &Device{
		config:      config,
		signingKey:  key,
		hapPeers:    make(map[string][]byte),
		legacyPeers: make(map[string][]byte),
	}
	if config.LoggerFactory != nil {
		d.log = config.LoggerFactory.NewLogger("airplaytest")
	}
	return d, nil
}

// Identifier returns the device pairing identifier.
func (d *Device) Identifier() string {
	return d.config.Identifier
}

// PIN returns the Pair-Setup password.
func (d *Device) PIN() string {
	return d.config.PIN
}

// PublicKey returns the device long-term Ed25519 public key.
func (d *Device) PublicKey() []byte {
	return crypto.Ed25519PublicKey(d.signingKey)
}

// HAPPeers returns the client identifiers paired with HAP.
func (d *Device) HAPPeers() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return sortedKeys(d.hapPeers)
}

// LegacyPeers returns the client identifiers paired with legacy pairing.
func (d *Device) LegacyPeers() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return sortedKeys(d.legacyPeers)
}

// RemovePeer forgets a pairing.
func (d *Device) RemovePeer(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.hapPeers, id)
	delete(d.legacyPeers, id)
}

// PinStarts returns how often /pair-pin-start was requested.
func (d *Device) PinStarts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pinStarts
}

// Requests returns "METHOD path" for every request served so far.
func (d *Device) Requests() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.requests...)
}

func (d *Device) hapPeer(id string) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hapPeers[id]
}

func (d *Device) addHAPPeer(id string, ltpk []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hapPeers[id] = append([]byte(nil), ltpk...)
}

func (d *Device) addLegacyPeer(id string, pub []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.legacyPeers[id] = append([]byte(nil), pub...)
}

func (d *Device) knownLegacyKey(pub []byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, k := range d.legacyPeers {
		if bytes.Equal(k, pub) {
			return true
		}
	}
	return false
}

// Serve answers HTTP requests on conn until it is closed.
func (d *Device) Serve(conn net.Conn) error {
	return d.ServeConn(transport.NewConn(conn, transport.ConnConfig{LoggerFactory: d.config.LoggerFactory}))
}

// ServeConn answers HTTP requests on c until it is closed. After a
// successful verify the connection switches to encrypted framing.
func (d *Device) ServeConn(c *transport.Conn) error {
	sess := d.NewSession()
	defer sess.Wipe()
	reader := bufio.NewReader(c)

	for {
		req, err := http.ReadRequest(reader)
		if err != nil {
			if errors.Is(err, io.EOF) || c.Closed() {
				return nil
			}
			return err
		}
		body, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return err
		}

		d.mu.Lock()
		d.requests = append(d.requests, req.Method+" "+req.URL.Path)
		d.mu.Unlock()

		status, contentType, respBody := sess.Handle(req.Method, req.URL.Path, req.Header, body)
		if d.log != nil {
			d.log.Debugf("%s %s -> %d", req.Method, req.URL.Path, status)
		}
		if err := writeResponse(c, status, contentType, respBody); err != nil {
			return err
		}

		if sess.Established() && !c.Encrypted() {
			out, in, err := sess.EncryptionKeys(controlSalt, controlClientIn, controlClientOut)
			if err != nil {
				return err
			}
			hs, err := session.NewHAPSession(out, in)
			crypto.WipeAll(out, in)
			if err != nil {
				return err
			}
			if err := c.SetProcessors(hs.Encrypt, hs.Decrypt); err != nil {
				return err
			}
		}
	}
}

// Listen serves the device on a TCP listener bound to addr.
func (d *Device) Listen(addr string) (*transport.Server, error) {
	srv, err := transport.NewServer(transport.ServerConfig{
		ListenAddr: addr,
		Handler: func(c *transport.Conn) {
			if err := d.ServeConn(c); err != nil && d.log != nil {
				d.log.Warnf("serve failed: %v", err)
			}
		},
		LoggerFactory: d.config.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}
	if err := srv.Start(); err != nil {
		return nil, err
	}
	return srv, nil
}

func (d *Device) info() ([]byte, error) {
	return plist.Marshal(map[string]interface{}{
		"deviceID": d.config.Identifier,
		"name":     d.config.Name,
		"pk":       d.PublicKey(),
	}, plist.BinaryFormat)
}

func writeResponse(w io.Writer, status int, contentType string, body []byte) error {
	resp := &http.Response{
		StatusCode:    status,
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{},
		ContentLength: int64(len(body)),
		Body:          io.NopCloser(bytes.NewReader(body)),
	}
	if contentType != "" {
		resp.Header.Set("Content-Type", contentType)
	}
	resp.Header.Set("Content-Length", strconv.Itoa(len(body)))

	var buf bytes.Buffer
	if err := resp.Write(&buf); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
