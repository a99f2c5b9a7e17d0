package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pion/logging"
	bolt "go.etcd.io/bbolt"

	"github.com/backkem/mediapair/pkg/conf"
)

// Layout: bucket "credentials" holds one nested bucket per device identifier,
// which maps protocol names to tokens.
var credentialsBucket = []byte("credentials")

// BoltConfig configures a BoltStore.
type BoltConfig struct {
	// Path of the database file. Parent directories are created.
	Path string

	// Timeout waits for the file lock. Default: 1s.
	Timeout time.Duration

	// LoggerFactory for creating loggers. If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// BoltStore persists credentials in a bbolt database.
type BoltStore struct {
	db  *bolt.DB
	log logging.LeveledLogger
}

// OpenBolt opens or creates the database at config.Path.
func OpenBolt(config BoltConfig) (*BoltStore, error) {
	if config.Timeout == 0 {
		config.Timeout = time.Second
	}
	if dir := filepath.Dir(config.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
	}

	db, err := bolt.Open(config.Path, 0o600, &bolt.Options{Timeout: config.Timeout})
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", config.Path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(credentialsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: init %s: %w", config.Path, err)
	}

	s := &BoltStore{db: db}
	if config.LoggerFactory != nil {
		s.log = config.LoggerFactory.NewLogger("storage")
	}
	if s.log != nil {
		s.log.Debugf("opened credential store %s", config.Path)
	}
	return s, nil
}

// Load returns the token stored for deviceID and protocol.
func (s *BoltStore) Load(deviceID string, protocol conf.Protocol) (string, error) {
	if err := validate(deviceID, protocol); err != nil {
		return "", err
	}
	var token string
	err := s.db.View(func(tx *bolt.Tx) error {
		dev := tx.Bucket(credentialsBucket).Bucket([]byte(deviceID))
		if dev == nil {
			return ErrNotFound
		}
		v := dev.Get([]byte(protocol.String()))
		if v == nil {
			return ErrNotFound
		}
		token = string(v)
		return nil
	})
	if err == bolt.ErrDatabaseNotOpen {
		return "", ErrClosed
	}
	return token, err
}

// Save stores token, replacing any earlier one.
func (s *BoltStore) Save(deviceID string, protocol conf.Protocol, token string) error {
	if err := validate(deviceID, protocol); err != nil {
		return err
	}
	if err := validateToken(token); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		dev, err := tx.Bucket(credentialsBucket).CreateBucketIfNotExists([]byte(deviceID))
		if err != nil {
			return err
		}
		return dev.Put([]byte(protocol.String()), []byte(token))
	})
	if err == bolt.ErrDatabaseNotOpen {
		return ErrClosed
	}
	if err == nil && s.log != nil {
		s.log.Infof("saved %s credential for %s", credentialTag(token), deviceID)
	}
	return err
}

// Delete removes a stored token. A device bucket left empty is removed too.
func (s *BoltStore) Delete(deviceID string, protocol conf.Protocol) error {
	if err := validate(deviceID, protocol); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(credentialsBucket)
		dev := root.Bucket([]byte(deviceID))
		if dev == nil || dev.Get([]byte(protocol.String())) == nil {
			return ErrNotFound
		}
		if err := dev.Delete([]byte(protocol.String())); err != nil {
			return err
		}
		if k, _ := dev.Cursor().First(); k == nil {
			return root.DeleteBucket([]byte(deviceID))
		}
		return nil
	})
	if err == bolt.ErrDatabaseNotOpen {
		return ErrClosed
	}
	return err
}

// List returns every entry ordered by device and protocol. Keys naming an
// unknown protocol are skipped.
func (s *BoltStore) List() ([]Entry, error) {
	var out []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(credentialsBucket)
		return root.ForEach(func(id, v []byte) error {
			dev := root.Bucket(id)
			if v != nil || dev == nil {
				return nil
			}
			return dev.ForEach(func(k, v []byte) error {
				protocol, ok := conf.ParseProtocol(string(k))
				if !ok {
					if s.log != nil {
						s.log.Warnf("skipping unknown protocol %q for %s", k, id)
					}
					return nil
				}
				out = append(out, Entry{DeviceID: string(id), Protocol: protocol, Token: string(v)})
				return nil
			})
		})
	})
	if err == bolt.ErrDatabaseNotOpen {
		return nil, ErrClosed
	}
	if err != nil {
		return nil, err
	}
	sortEntries(out)
	return out, nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func credentialTag(token string) string {
	for i := 0; i < len(token); i++ {
		if token[i] == ':' {
			return token[:i]
		}
	}
	return token
}

var _ CredentialStore = (*BoltStore)(nil)
