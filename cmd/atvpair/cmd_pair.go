package main

import (
	"bufio"
	"context"
	"fmt"

	"github.com/jessevdk/go-flags"

	"github.com/backkem/mediapair/pkg/airplay"
	"github.com/backkem/mediapair/pkg/conf"
	"github.com/backkem/mediapair/pkg/credentials"
	"github.com/backkem/mediapair/pkg/pairing"
)

type cmdPair struct {
	Target
	Scheme string `long:"scheme" default:"hap" choice:"hap" choice:"legacy" description:"Pair-Setup scheme"`
	PIN    string `long:"pin" description:"PIN shown by the device, prompted for when empty"`
}

func init() {
	addCommand("pair", "Pair with a device", `
The pair command runs Pair-Setup against the AirPlay service of a device,
confirms the new credential with Pair-Verify and stores it. The device shows
a PIN on screen which must be entered when asked.
`, func() flags.Commander { return &cmdPair{} })
}

func (x *cmdPair) Execute(args []string) error {
	if len(args) > 0 {
		return ErrExtraArgs
	}
	e, err := loadEnv()
	if err != nil {
		return err
	}
	authType, ok := credentials.ParseAuthenticationType(x.Scheme)
	if !ok {
		return fmt.Errorf("unknown scheme %q", x.Scheme)
	}

	ctx := context.Background()
	d, err := e.resolve(ctx, x.Target)
	if err != nil {
		return err
	}
	svc := d.Service(conf.ProtocolAirPlay)
	if svc == nil {
		return conf.ErrNoService
	}

	store, err := e.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	h, err := airplay.NewPairingHandler(ctx, d.Address(), svc, airplay.PairingConfig{
		AuthType:      authType,
		Timeout:       e.config.PairTimeout,
		LoggerFactory: e.loggers,
	})
	if err != nil {
		return err
	}
	defer h.Close()

	if err := h.Begin(ctx); err != nil {
		return err
	}

	input := x.PIN
	if input == "" {
		fmt.Fprintf(Stdout, "Enter PIN shown on %s: ", d.Address())
		input, err = bufio.NewReader(Stdin).ReadString('\n')
		if err != nil && input == "" {
			return fmt.Errorf("cannot read PIN: %w", err)
		}
	}
	pin, err := pairing.ParsePIN(input)
	if err != nil {
		return err
	}
	if err := h.Pin(pin); err != nil {
		return err
	}
	if err := h.Finish(ctx); err != nil {
		return err
	}

	key := deviceKey(d)
	if err := store.Save(key, conf.ProtocolAirPlay, svc.Credentials()); err != nil {
		return err
	}
	fmt.Fprintf(Stdout, "Paired with %s, %s credentials stored.\n", key, authType)
	return nil
}
