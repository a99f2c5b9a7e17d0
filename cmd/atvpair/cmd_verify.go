package main

import (
	"context"
	"fmt"

	"github.com/jessevdk/go-flags"
	"howett.net/plist"

	"github.com/backkem/mediapair/pkg/airplay"
	"github.com/backkem/mediapair/pkg/conf"
	"github.com/backkem/mediapair/pkg/credentials"
	"github.com/backkem/mediapair/pkg/storage"
	"github.com/backkem/mediapair/pkg/transport"
)

type cmdVerify struct {
	Target
}

func init() {
	addCommand("verify", "Verify stored credentials", `
The verify command connects to the AirPlay service of a device, runs
Pair-Verify with the stored credential, or transient pairing when the device
supports it, and reports whether the connection is encrypted. A device with
neither is reported as an error.
`, func() flags.Commander { return &cmdVerify{} })
}

func (x *cmdVerify) Execute(args []string) error {
	if len(args) > 0 {
		return ErrExtraArgs
	}
	e, err := loadEnv()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.config.PairTimeout)
	defer cancel()

	d, err := e.resolve(ctx, x.Target)
	if err != nil {
		return err
	}
	store, err := e.openStore()
	if err != nil {
		return err
	}
	_, err = storage.Apply(store, d)
	store.Close()
	if err != nil {
		return err
	}

	svc := d.Service(conf.ProtocolAirPlay)
	if svc == nil {
		return conf.ErrNoService
	}
	creds, err := airplay.ExtractCredentials(svc)
	if err != nil {
		return err
	}
	if creds.Type == credentials.AuthNull {
		return fmt.Errorf("%w: %s is not paired and does not support transient pairing", conf.ErrNoService, deviceKey(d))
	}

	tc, err := transport.Dial(ctx, d.Address().String(), svc.Port(), transport.DialConfig{
		Timeout:       e.config.PairTimeout,
		LoggerFactory: e.loggers,
	})
	if err != nil {
		return err
	}
	conn := transport.NewHTTPConn(tc, transport.HTTPConfig{LoggerFactory: e.loggers})
	defer conn.Close()

	verifier, err := airplay.VerifyConnection(ctx, creds, conn, airplay.PairingConfig{
		Timeout:       e.config.PairTimeout,
		LoggerFactory: e.loggers,
	})
	if err != nil {
		return err
	}
	defer verifier.Close()

	encrypted := tc.Encrypted()
	fmt.Fprintf(Stdout, "Credentials: %s\nEncrypted: %t\n", creds.Type, encrypted)
	if !encrypted {
		return nil
	}

	resp, err := conn.Get(ctx, "/info", nil)
	if err != nil {
		return fmt.Errorf("encrypted request failed: %w", err)
	}
	var info struct {
		Name string `plist:"name"`
	}
	if _, err := plist.Unmarshal(resp.Body, &info); err == nil && info.Name != "" {
		fmt.Fprintf(Stdout, "Name: %s\n", info.Name)
	}
	return nil
}
