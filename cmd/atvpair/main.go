// atvpair discovers Apple TV and AirPlay receivers on the local network and
// pairs with them.
//
// Usage:
//
//	atvpair [--config FILE] [--log-level LEVEL] [--storage FILE] <command>
//
// Commands:
//
//	scan         list devices found with mDNS
//	pair         run Pair-Setup against a device and store the credential
//	verify       run Pair-Verify with the stored credential
//	credentials  list or delete stored credentials
//	fake-device  serve a fake AirPlay receiver for testing
//
// Example:
//
//	atvpair pair --address 10.0.0.2 --id AA:BB:CC:DD:EE:FF
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"
)

var (
	Stdin  io.Reader = os.Stdin
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

// ErrExtraArgs is returned when a command gets positional arguments.
var ErrExtraArgs = errors.New("too many arguments for command")

type options struct {
	Config   string `long:"config" description:"Path of the YAML configuration file"`
	LogLevel string `long:"log-level" description:"Log level: trace, debug, info, warn or error"`
	Storage  string `long:"storage" description:"Path of the credential database"`
}

var optionsData options

type cmdInfo struct {
	name, shortHelp, longHelp string
	builder                   func() flags.Commander
}

var commands []*cmdInfo

func addCommand(name, shortHelp, longHelp string, builder func() flags.Commander) {
	commands = append(commands, &cmdInfo{
		name:      name,
		shortHelp: shortHelp,
		longHelp:  longHelp,
		builder:   builder,
	})
}

// Parser builds a fresh parser. Commands keep state in their option structs,
// so each run needs its own.
func Parser() *flags.Parser {
	optionsData = options{}
	parser := flags.NewParser(&optionsData, flags.HelpFlag|flags.PassDoubleDash)
	parser.ShortDescription = "Pair with Apple TV and AirPlay devices"
	parser.LongDescription = `
Discover Apple TV and AirPlay receivers, pair with them using HAP or legacy
Pair-Setup and keep the resulting credentials for later connections.
`
	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.shortHelp, strings.TrimSpace(c.longHelp), c.builder()); err != nil {
			panic(fmt.Sprintf("cannot add command %q: %v", c.name, err))
		}
	}
	return parser
}

func run(args []string) error {
	parser := Parser()
	_, err := parser.ParseArgs(args)
	if err != nil {
		var e *flags.Error
		if errors.As(err, &e) {
			switch e.Type {
			case flags.ErrHelp, flags.ErrCommandRequired:
				parser.WriteHelp(Stdout)
				return nil
			case flags.ErrUnknownCommand:
				return fmt.Errorf(`unknown command, see "atvpair --help"`)
			}
		}
	}
	return err
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
