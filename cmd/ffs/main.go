// Command ffs generates Feige-Fiat-Shamir key pairs and runs the identification protocol,
// either within one process or between a verifier and a prover subprocess.
//
// Usage:
//
//	ffs [--keys-dir dir] [--log-level level] <command> [flags]
//
// The exit status is 0 when the prover was accepted (or the command succeeded), 1 when it was
// rejected and 2 on any error.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/go-errors/errors"
	"github.com/sirupsen/logrus"

	"github.com/privacybydesign/ffs"
	"github.com/privacybydesign/ffs/ffskeys"
	"github.com/privacybydesign/ffs/wire"
)

const (
	exitAccepted = 0
	exitRejected = 1
	exitError    = 2
)

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) (int, error)
}

var commands = map[string]command{
	"keygen": {"generate a key pair and store it in the keys directory", runKeygen},
	"auth":   {"authenticate with a stored key pair within this process", runAuth},
	"prove":  {"act as prover on stdin and stdout", runProve},
	"verify": {"verify a prover subprocess (or an in-process prover with --local)", runVerify},
	"attack": {"measure the success rate of an impostor without the secrets", runAttack},
	"bench":  {"compare authentication time to an RSA signature", runBench},
}

// app carries the configuration and streams shared by all commands.
type app struct {
	cfg      *Config
	keysDir  string
	logLevel string

	stdin          io.Reader
	stdout, stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintln(stderr, "ffs:", err)
		return exitError
	}
	a := &app{
		cfg:      cfg,
		keysDir:  cfg.KeysDir,
		logLevel: cfg.LogLevel.String(),
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
	}

	fs := a.flagSet("ffs")
	fs.Usage = a.usage
	if err = fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return exitAccepted
		}
		return exitError
	}
	if fs.NArg() == 0 {
		a.usage()
		return exitError
	}
	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "ffs: unknown command %q\n", name)
		a.usage()
		return exitError
	}

	code, err := cmd.run(ctx, a, fs.Args()[1:])
	if err == flag.ErrHelp {
		return exitAccepted
	}
	if err != nil {
		fmt.Fprintf(stderr, "ffs %s: %v\n", name, err)
		return exitError
	}
	return code
}

// flagSet returns a flag set on which the global flags are already defined, so that they may
// appear before or after the command name.
func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.StringVar(&a.keysDir, "keys-dir", a.keysDir, "directory of the key store")
	fs.StringVar(&a.logLevel, "log-level", a.logLevel, "log level (trace, debug, info, warning, error)")
	return fs
}

// parse parses the flags of a command and configures logging accordingly. Logs always go to
// stderr: stdout is the protocol channel of the prove command.
func (a *app) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return errors.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	level, err := logrus.ParseLevel(a.logLevel)
	if err != nil {
		return err
	}
	ffs.Logger.SetOutput(a.stderr)
	ffs.Logger.SetLevel(level)
	return nil
}

func (a *app) store() (*ffskeys.Store, error) {
	return ffskeys.NewStore(a.keysDir)
}

// connFlags defines --codec and --timeout on fs, defaulting to the configuration.
func (a *app) connFlags(fs *flag.FlagSet) (*string, *time.Duration) {
	codec := fs.String("codec", a.cfg.Codec.Name(), "wire encoding (json or cbor)")
	timeout := fs.Duration("timeout", a.cfg.Timeout, "timeout of every message exchange")
	return codec, timeout
}

func connOptions(codecName string, timeout time.Duration) ([]wire.Option, error) {
	codec, err := wire.CodecByName(codecName)
	if err != nil {
		return nil, err
	}
	return []wire.Option{wire.WithCodec(codec), wire.WithTimeout(timeout)}, nil
}

func (a *app) usage() {
	fmt.Fprintln(a.stderr, "usage: ffs [--keys-dir dir] [--log-level level] <command> [flags]")
	fmt.Fprintln(a.stderr, "\ncommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(a.stderr, "  %-8s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(a.stderr, "\nrun 'ffs <command> --help' for the flags of a command")
}
