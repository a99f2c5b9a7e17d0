package discovery

import (
	"bytes"
	"context"
	"net"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pion/logging"
	"golang.org/x/sync/errgroup"

	"github.com/backkem/mediapair/pkg/conf"
)

// DefaultCacheSize is the number of identifiers the Scanner remembers.
const DefaultCacheSize = 128

// ScannerConfig holds configuration for the Scanner.
type ScannerConfig struct {
	// Resolver browses the network. If nil, a zeroconf resolver is used.
	Resolver *Resolver

	// ServiceTypes limits the browsed types. Default: AllServiceTypes.
	ServiceTypes []ServiceType

	// CacheSize bounds the identifier cache. Default: DefaultCacheSize.
	CacheSize int

	// LoggerFactory for creating loggers.
	LoggerFactory logging.LoggerFactory
}

// Scanner browses every service type concurrently and groups the results
// into devices by address.
type Scanner struct {
	resolver *Resolver
	types    []ServiceType
	cache    *lru.Cache[string, *conf.Device]
	log      logging.LeveledLogger
}

// NewScanner creates a Scanner.
func NewScanner(config ScannerConfig) (*Scanner, error) {
	if config.Resolver == nil {
		config.Resolver = NewResolver(ResolverConfig{})
	}
	if len(config.ServiceTypes) == 0 {
		config.ServiceTypes = AllServiceTypes
	}
	if config.CacheSize <= 0 {
		config.CacheSize = DefaultCacheSize
	}
	for _, st := range config.ServiceTypes {
		if !st.IsValid() {
			return nil, ErrInvalidServiceType
		}
	}

	cache, err := lru.New[string, *conf.Device](config.CacheSize)
	if err != nil {
		return nil, err
	}

	s := &Scanner{
		resolver: config.Resolver,
		types:    config.ServiceTypes,
		cache:    cache,
	}
	if config.LoggerFactory != nil {
		s.log = config.LoggerFactory.NewLogger("discovery")
	}
	return s, nil
}

// Scan browses until ctx ends or the browse timeout expires and returns the
// devices found, ordered by address. Found devices are remembered for Lookup
// under each of their identifiers.
func (s *Scanner) Scan(ctx context.Context) ([]*conf.Device, error) {
	var (
		mu      sync.Mutex
		devices = make(map[string]*conf.Device)
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, st := range s.types {
		g.Go(func() error {
			results, err := s.resolver.Browse(gctx, st)
			if err != nil {
				return err
			}
			for r := range results {
				mu.Lock()
				s.add(devices, r)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*conf.Device, 0, len(devices))
	for _, d := range devices {
		out = append(out, d)
		for _, id := range d.AllIdentifiers() {
			s.cache.Add(id, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Address().To16(), out[j].Address().To16()) < 0
	})

	if s.log != nil {
		s.log.Infof("scan found %d devices", len(out))
	}
	return out, nil
}

func (s *Scanner) add(devices map[string]*conf.Device, r ResolvedService) {
	ip := r.PreferredIP()
	if ip == nil {
		if s.log != nil {
			s.log.Debugf("ignoring %s %q: %v", r.ServiceType, r.InstanceName, ErrNoAddress)
		}
		return
	}
	service, name, err := ServiceInfo(r)
	if err != nil {
		if s.log != nil {
			s.log.Debugf("ignoring %s %q: %v", r.ServiceType, r.InstanceName, err)
		}
		return
	}

	key := ip.String()
	d, ok := devices[key]
	if !ok {
		d = conf.NewDevice(ip, name, false)
		devices[key] = d
	}
	d.AddService(service)

	if s.log != nil {
		s.log.Tracef("found %s service %q at %s", r.ServiceType, r.InstanceName, key)
	}
}

// Lookup returns a device seen by an earlier scan.
func (s *Scanner) Lookup(identifier string) (*conf.Device, bool) {
	return s.cache.Get(identifier)
}

// LookupAddress returns a device seen by an earlier scan at ip.
func (s *Scanner) LookupAddress(ip net.IP) (*conf.Device, bool) {
	for _, id := range s.cache.Keys() {
		if d, ok := s.cache.Peek(id); ok && d.Address().Equal(ip) {
			return d, true
		}
	}
	return nil, false
}
