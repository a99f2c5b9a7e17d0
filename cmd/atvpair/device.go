package main

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/backkem/mediapair/pkg/conf"
	"github.com/backkem/mediapair/pkg/discovery"
)

// scanResolver replaces the zeroconf resolver when set.
var scanResolver *discovery.Resolver

// Target selects a device either by address or by scanning.
type Target struct {
	Address string `long:"address" description:"Device IP address, skips scanning"`
	Port    int    `long:"port" default:"7000" description:"AirPlay port used with --address"`
	ID      string `long:"id" description:"Device identifier or name"`
}

func (e *env) scan(ctx context.Context) ([]*conf.Device, error) {
	scanner, err := discovery.NewScanner(discovery.ScannerConfig{
		Resolver:      scanResolver,
		ServiceTypes:  discovery.AllServiceTypes,
		LoggerFactory: e.loggers,
	})
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, e.config.ScanTimeout)
	defer cancel()
	return scanner.Scan(ctx)
}

func (e *env) resolve(ctx context.Context, t Target) (*conf.Device, error) {
	if t.Address != "" {
		ip := net.ParseIP(t.Address)
		if ip == nil {
			return nil, fmt.Errorf("invalid address %q", t.Address)
		}
		d := conf.NewDevice(ip, t.ID, false)
		d.AddService(conf.NewService(conf.ProtocolAirPlay, t.ID, t.Port, nil))
		return d, nil
	}
	if t.ID == "" {
		return nil, fmt.Errorf("either --address or --id is required")
	}

	devices, err := e.scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		if strings.EqualFold(d.Name(), t.ID) {
			return d, nil
		}
		for _, id := range d.AllIdentifiers() {
			if strings.EqualFold(id, t.ID) {
				return d, nil
			}
		}
	}
	return nil, fmt.Errorf("device %q not found", t.ID)
}

// deviceKey is the identifier credentials are stored under.
func deviceKey(d *conf.Device) string {
	if id := d.Identifier(); id != "" {
		return id
	}
	return d.Address().String()
}
