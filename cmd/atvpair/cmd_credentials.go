package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/jessevdk/go-flags"

	"github.com/backkem/mediapair/pkg/conf"
)

type cmdCredentials struct {
	Delete   string `long:"delete" description:"Delete the credential of this device identifier"`
	Protocol string `long:"protocol" default:"AirPlay" description:"Protocol of the credential to delete"`
}

func init() {
	addCommand("credentials", "List stored credentials", `
The credentials command lists stored credentials by device, protocol and
scheme. Secrets are never printed.
`, func() flags.Commander { return &cmdCredentials{} })
}

func (x *cmdCredentials) Execute(args []string) error {
	if len(args) > 0 {
		return ErrExtraArgs
	}
	e, err := loadEnv()
	if err != nil {
		return err
	}
	store, err := e.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if x.Delete != "" {
		protocol, ok := conf.ParseProtocol(x.Protocol)
		if !ok {
			return fmt.Errorf("unknown protocol %q", x.Protocol)
		}
		if err := store.Delete(x.Delete, protocol); err != nil {
			return err
		}
		fmt.Fprintf(Stdout, "Deleted %s credential of %s.\n", protocol, x.Delete)
		return nil
	}

	entries, err := store.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(Stdout, "No credentials stored.")
		return nil
	}
	w := tabwriter.NewWriter(Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Device\tProtocol\tScheme")
	for _, entry := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", entry.DeviceID, entry.Protocol, entry.Scheme())
	}
	return w.Flush()
}
