package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/backkem/mediapair/pkg/storage"
)

type cmdScan struct {
	Timeout time.Duration `long:"timeout" description:"How long to browse, overrides scan_timeout"`
}

func init() {
	addCommand("scan", "Discover devices", `
The scan command browses the local network for Apple TV, AirPlay, RAOP and
DMAP services and prints one line per device. Devices with stored
credentials are marked.
`, func() flags.Commander { return &cmdScan{} })
}

func (x *cmdScan) Execute(args []string) error {
	if len(args) > 0 {
		return ErrExtraArgs
	}
	e, err := loadEnv()
	if err != nil {
		return err
	}
	if x.Timeout > 0 {
		e.config.ScanTimeout = x.Timeout
	}

	devices, err := e.scan(context.Background())
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Fprintln(Stdout, "No devices found.")
		return nil
	}

	store, err := e.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	w := tabwriter.NewWriter(Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Name\tAddress\tIdentifier\tServices")
	for _, d := range devices {
		if _, err := storage.Apply(store, d); err != nil {
			return err
		}
		var services []string
		for _, s := range d.Services() {
			tag := s.Protocol().String()
			if s.Credentials() != "" {
				tag += "*"
			}
			services = append(services, tag)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Name(), d.Address(), d.Identifier(), strings.Join(services, ","))
	}
	return w.Flush()
}
