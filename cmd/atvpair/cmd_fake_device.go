package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/backkem/mediapair/pkg/airplay"
	"github.com/backkem/mediapair/pkg/airplay/airplaytest"
	"github.com/backkem/mediapair/pkg/discovery"
)

type cmdFakeDevice struct {
	Listen    string `long:"listen" default:":7000" description:"Address to listen on"`
	PIN       string `long:"pin" default:"1234" description:"Pair-Setup PIN"`
	ID        string `long:"id" default:"AA:BB:CC:DD:EE:FF" description:"Device pairing identifier"`
	Name      string `long:"name" default:"Fake Apple TV" description:"Advertised name"`
	Transient bool   `long:"transient" description:"Advertise transient pairing support"`
	Advertise bool   `long:"advertise" description:"Publish the device with mDNS"`
}

func init() {
	addCommand("fake-device", "Serve a fake AirPlay receiver", `
The fake-device command serves the device side of HAP, transient and legacy
pairing until interrupted. With --advertise it is published as an AirPlay
service so scan finds it.
`, func() flags.Commander { return &cmdFakeDevice{} })
}

func (x *cmdFakeDevice) Execute(args []string) error {
	if len(args) > 0 {
		return ErrExtraArgs
	}
	e, err := loadEnv()
	if err != nil {
		return err
	}

	dev, err := airplaytest.NewDevice(airplaytest.DeviceConfig{
		PIN:           x.PIN,
		Identifier:    x.ID,
		Name:          x.Name,
		LoggerFactory: e.loggers,
	})
	if err != nil {
		return err
	}
	srv, err := dev.Listen(x.Listen)
	if err != nil {
		return err
	}
	defer srv.Stop()

	_, portStr, err := net.SplitHostPort(srv.Addr().String())
	if err != nil {
		return err
	}
	port, _ := strconv.Atoi(portStr)

	if x.Advertise {
		var features airplay.Features
		if x.Transient {
			features = airplay.FeatureSupportsCoreUtilsPairingAndEncryption | airplay.FeatureSupportsSystemPairing
		}
		adv := discovery.NewAdvertiser(discovery.AdvertiserConfig{LoggerFactory: e.loggers})
		defer adv.Close()
		err := adv.Advertise(discovery.ServiceTypeAirPlay, x.Name, port, map[string]string{
			discovery.TXTKeyDeviceID: x.ID,
			discovery.TXTKeyFeatures: features.String(),
			discovery.TXTKeyModel:    "AppleTV6,2",
			"pk":                     hex.EncodeToString(dev.PublicKey()),
		})
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(Stdout, "Serving %s (%s) on %s, PIN %s\n", x.Name, x.ID, srv.Addr(), x.PIN)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	return nil
}
