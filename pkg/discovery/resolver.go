package discovery

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/pion/logging"
)

// Query timeouts applied when the caller's context has no deadline.
const (
	DefaultBrowseTimeout = 3 * time.Second
	DefaultLookupTimeout = 5 * time.Second
)

// ResolvedService is one DNS-SD answer.
type ResolvedService struct {
	ServiceType  ServiceType
	InstanceName string
	HostName     string
	Port         int

	// IPs are ordered by SortIPsByPreference.
	IPs []net.IP

	// Text holds the TXT properties with lower-cased keys.
	Text map[string]string
}

// PreferredIP returns the address to connect to, or nil.
func (r *ResolvedService) PreferredIP() net.IP {
	if len(r.IPs) == 0 {
		return nil
	}
	return r.IPs[0]
}

// MDNSResolver runs one mDNS query, sending answers to entries until ctx
// ends or the query is done. It must not close entries.
type MDNSResolver interface {
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
	Lookup(ctx context.Context, instance, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

// zeroconfResolver adapts grandcat/zeroconf, which owns and closes its result
// channel. Each query gets its own zeroconf.Resolver.
type zeroconfResolver struct{}

func (zeroconfResolver) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	return forward(ctx, entries, func(r *zeroconf.Resolver, ch chan *zeroconf.ServiceEntry) error {
		return r.Browse(ctx, service, domain, ch)
	})
}

func (zeroconfResolver) Lookup(ctx context.Context, instance, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	return forward(ctx, entries, func(r *zeroconf.Resolver, ch chan *zeroconf.ServiceEntry) error {
		return r.Lookup(ctx, instance, service, domain, ch)
	})
}

func forward(ctx context.Context, out chan<- *zeroconf.ServiceEntry, query func(*zeroconf.Resolver, chan *zeroconf.ServiceEntry) error) error {
	r, err := zeroconf.NewResolver(nil)
	if err != nil {
		return err
	}
	in := make(chan *zeroconf.ServiceEntry)
	if err := query(r, in); err != nil {
		return err
	}
	for entry := range in {
		select {
		case out <- entry:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	// MDNSResolver answers queries. Default: grandcat/zeroconf.
	MDNSResolver MDNSResolver

	// BrowseTimeout bounds Browse. Default: DefaultBrowseTimeout.
	BrowseTimeout time.Duration

	// LookupTimeout bounds Lookup. Default: DefaultLookupTimeout.
	LookupTimeout time.Duration

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Resolver turns mDNS answers for the media service types into
// ResolvedService values.
type Resolver struct {
	mdns          MDNSResolver
	browseTimeout time.Duration
	lookupTimeout time.Duration
	log           logging.LeveledLogger
}

// NewResolver creates a Resolver.
func NewResolver(config ResolverConfig) *Resolver {
	r := &Resolver{
		mdns:          config.MDNSResolver,
		browseTimeout: config.BrowseTimeout,
		lookupTimeout: config.LookupTimeout,
	}
	if r.mdns == nil {
		r.mdns = zeroconfResolver{}
	}
	if r.browseTimeout <= 0 {
		r.browseTimeout = DefaultBrowseTimeout
	}
	if r.lookupTimeout <= 0 {
		r.lookupTimeout = DefaultLookupTimeout
	}
	if config.LoggerFactory != nil {
		r.log = config.LoggerFactory.NewLogger("discovery")
	}
	return r
}

func bounded(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

type queryFunc func(ctx context.Context, service string, entries chan<- *zeroconf.ServiceEntry) error

// query runs fn in the background and streams its answers. The results
// channel is closed once fn returns or ctx ends; the context error seen at
// that point is then sent on the outcome channel and cancel is called.
func (r *Resolver) query(ctx context.Context, cancel context.CancelFunc, st ServiceType, fn queryFunc) (<-chan ResolvedService, <-chan error) {
	service := st.ServiceString()
	entries := make(chan *zeroconf.ServiceEntry)
	results := make(chan ResolvedService)
	outcome := make(chan error, 1)

	go func() {
		defer close(entries)
		if err := fn(ctx, service, entries); err != nil && ctx.Err() == nil && r.log != nil {
			r.log.Warnf("%s query failed: %v", service, err)
		}
	}()

	go func() {
		defer cancel()
		for entry := range entries {
			select {
			case results <- entryToResolvedService(entry, st):
			case <-ctx.Done():
				for range entries {
				}
			}
		}
		outcome <- ctx.Err()
		close(results)
	}()
	return results, outcome
}

// Browse streams every instance of serviceType answering before ctx ends or
// the browse timeout expires.
func (r *Resolver) Browse(ctx context.Context, serviceType ServiceType) (<-chan ResolvedService, error) {
	if !serviceType.IsValid() {
		return nil, ErrInvalidServiceType
	}
	ctx, cancel := bounded(ctx, r.browseTimeout)
	results, _ := r.query(ctx, cancel, serviceType, func(ctx context.Context, service string, entries chan<- *zeroconf.ServiceEntry) error {
		return r.mdns.Browse(ctx, service, DefaultDomain, entries)
	})
	return results, nil
}

// Lookup resolves one named instance. It fails with ErrServiceNotFound when
// the query ends without an answer and ErrTimeout when the lookup timeout
// expires first.
func (r *Resolver) Lookup(ctx context.Context, serviceType ServiceType, instanceName string) (*ResolvedService, error) {
	if !serviceType.IsValid() {
		return nil, ErrInvalidServiceType
	}
	if instanceName == "" {
		return nil, ErrInvalidInstanceName
	}

	ctx, cancel := bounded(ctx, r.lookupTimeout)
	results, outcome := r.query(ctx, cancel, serviceType, func(ctx context.Context, service string, entries chan<- *zeroconf.ServiceEntry) error {
		return r.mdns.Lookup(ctx, instanceName, service, DefaultDomain, entries)
	})

	svc, ok := <-results
	cancel()
	if ok {
		return &svc, nil
	}

	switch err := <-outcome; {
	case errors.Is(err, context.DeadlineExceeded):
		return nil, ErrTimeout
	case err != nil:
		return nil, err
	default:
		return nil, ErrServiceNotFound
	}
}

func entryToResolvedService(entry *zeroconf.ServiceEntry, st ServiceType) ResolvedService {
	ips := make([]net.IP, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	ips = append(ips, entry.AddrIPv4...)
	ips = append(ips, entry.AddrIPv6...)

	return ResolvedService{
		ServiceType:  st,
		InstanceName: entry.Instance,
		HostName:     entry.HostName,
		Port:         entry.Port,
		IPs:          SortIPsByPreference(ips),
		Text:         ParseTXT(entry.Text),
	}
}
