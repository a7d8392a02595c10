package main

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"time"

	"github.com/go-errors/errors"
	"github.com/sirupsen/logrus"

	"github.com/privacybydesign/ffs"
	"github.com/privacybydesign/ffs/blumprime"
	"github.com/privacybydesign/ffs/ffskeys"
	"github.com/privacybydesign/ffs/impostor"
	"github.com/privacybydesign/ffs/internal/common"
	"github.com/privacybydesign/ffs/session"
	"github.com/privacybydesign/ffs/wire"
)

// Moduli of at least this many bits are generated on all cores.
const concurrentBits = 1024

// proverExecutable locates the binary that verify starts as prover.
var proverExecutable = os.Executable

func requireName(name string) error {
	if name == "" {
		return errors.New("--name is required")
	}
	return nil
}

func runKeygen(_ context.Context, a *app, args []string) (int, error) {
	fs := a.flagSet("keygen")
	name := fs.String("name", "", "name of the key pair")
	bits := fs.Int("bits", a.cfg.Bits, "size of the modulus n in bits")
	k := fs.Int("k", a.cfg.K, "number of secrets")
	force := fs.Bool("force", false, "overwrite an existing key pair")
	if err := a.parse(fs, args); err != nil {
		return exitError, err
	}
	if err := requireName(*name); err != nil {
		return exitError, err
	}
	store, err := a.store()
	if err != nil {
		return exitError, err
	}
	if !*force && store.Exists(*name) {
		return exitError, errors.Errorf("key pair %s already exists, use --force to replace it", *name)
	}

	primeBits := (*bits + 1) / 2
	var m *blumprime.Modulus
	if *bits >= concurrentBits {
		m, err = blumprime.GenerateModulusConcurrent(rand.Reader, primeBits)
	} else {
		m, err = blumprime.GenerateModulus(rand.Reader, primeBits, common.DefaultMaxAttempts(primeBits))
	}
	if err != nil {
		return exitError, err
	}
	if err = m.Validate(); err != nil {
		return exitError, err
	}
	sk, err := ffskeys.GenerateKeyPair(rand.Reader, m.N, *k)
	if err != nil {
		return exitError, err
	}
	if err = store.Save(*name, sk, *force); err != nil {
		return exitError, err
	}

	fmt.Fprintf(a.stdout, "name:        %s\n", *name)
	fmt.Fprintf(a.stdout, "modulus:     %d bits\n", sk.N.BitLen())
	fmt.Fprintf(a.stdout, "k:           %d\n", sk.K)
	fmt.Fprintf(a.stdout, "public key:  %s\n", store.PublicKeyPath(*name))
	fmt.Fprintf(a.stdout, "private key: %s\n", store.PrivateKeyPath(*name))
	return exitAccepted, nil
}

func runAuth(_ context.Context, a *app, args []string) (int, error) {
	fs := a.flagSet("auth")
	name := fs.String("name", "", "name of the key pair")
	t := fs.Int("t", a.cfg.T, "number of rounds")
	verbose := fs.Bool("verbose", false, "print the values of every round")
	if err := a.parse(fs, args); err != nil {
		return exitError, err
	}
	if err := requireName(*name); err != nil {
		return exitError, err
	}
	sk, err := a.loadPrivateKey(*name)
	if err != nil {
		return exitError, err
	}

	var tracer ffs.Tracer = &ffs.EmptyTracer{}
	if *verbose {
		out := logrus.New()
		out.SetOutput(a.stdout)
		out.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
		tracer = &ffs.LogTracer{Logger: out}
	}
	fmt.Fprintf(a.stdout, "modulus: %d bits, k = %d, t = %d, soundness error %g\n",
		sk.N.BitLen(), sk.K, *t, ffs.SoundnessError(sk.K, *t))
	ok, err := ffs.AuthenticateVerbose(rand.Reader, sk, *t, tracer)
	if err != nil {
		return exitError, err
	}
	return report(a, ok), nil
}

func runProve(ctx context.Context, a *app, args []string) (int, error) {
	fs := a.flagSet("prove")
	name := fs.String("name", "", "name of the key pair")
	t := fs.Int("t", a.cfg.T, "number of rounds")
	codec, timeout := a.connFlags(fs)
	if err := a.parse(fs, args); err != nil {
		return exitError, err
	}
	if err := requireName(*name); err != nil {
		return exitError, err
	}
	opts, err := connOptions(*codec, *timeout)
	if err != nil {
		return exitError, err
	}
	sk, err := a.loadPrivateKey(*name)
	if err != nil {
		return exitError, err
	}

	conn := wire.NewConn(a.stdin, a.stdout, nil, opts...)
	defer common.Close(conn)
	result, err := session.RunProver(ctx, conn, sk, session.Config{Name: *name, Rounds: *t})
	if err != nil {
		return exitError, err
	}
	if result.Outcome == ffs.OutcomeAccepted {
		return exitAccepted, nil
	}
	return exitRejected, nil
}

func runVerify(ctx context.Context, a *app, args []string) (int, error) {
	fs := a.flagSet("verify")
	name := fs.String("name", "", "name of the key pair")
	t := fs.Int("t", a.cfg.T, "number of rounds")
	local := fs.Bool("local", false, "run the prover in this process instead of a subprocess")
	codec, timeout := a.connFlags(fs)
	if err := a.parse(fs, args); err != nil {
		return exitError, err
	}
	if err := requireName(*name); err != nil {
		return exitError, err
	}
	opts, err := connOptions(*codec, *timeout)
	if err != nil {
		return exitError, err
	}
	store, err := a.store()
	if err != nil {
		return exitError, err
	}
	pk, err := store.LoadPublicKey(*name)
	if err != nil {
		return exitError, err
	}

	cfg := session.Config{Name: *name, Rounds: *t}
	var start session.StartFunc
	if *local {
		sk, err := store.LoadPrivateKey(*name)
		if err != nil {
			return exitError, err
		}
		start = session.StartLocal(sk, cfg, opts...)
	} else {
		exe, err := proverExecutable()
		if err != nil {
			return exitError, err
		}
		cmd := exec.Command(exe,
			"--keys-dir", a.keysDir,
			"--log-level", a.logLevel,
			"prove",
			"--name", *name,
			"--t", strconv.Itoa(*t),
			"--codec", *codec,
			"--timeout", timeout.String(),
		)
		cmd.Stderr = a.stderr
		start = session.StartProcess(cmd, opts...)
	}

	result, err := session.Verify(ctx, start, pk, cfg)
	if err != nil {
		return exitError, err
	}
	fmt.Fprintf(a.stdout, "session: %s\nrounds:  %d\n", result.Session, result.Rounds)
	return report(a, result.Outcome == ffs.OutcomeAccepted), nil
}

func runAttack(ctx context.Context, a *app, args []string) (int, error) {
	fs := a.flagSet("attack")
	name := fs.String("name", "", "attack this stored public key instead of a fresh one")
	k := fs.Int("k", a.cfg.K, "number of secrets of a fresh key")
	bits := fs.Int("bits", a.cfg.Bits, "modulus size of a fresh key")
	t := fs.Int("t", a.cfg.T, "number of rounds")
	trials := fs.Int("trials", 2000, "number of authentication attempts")
	workers := fs.Int("workers", runtime.GOMAXPROCS(0), "number of parallel workers")
	if err := a.parse(fs, args); err != nil {
		return exitError, err
	}

	var pk *ffskeys.PublicKey
	if *name != "" {
		store, err := a.store()
		if err != nil {
			return exitError, err
		}
		if pk, err = store.LoadPublicKey(*name); err != nil {
			return exitError, err
		}
	} else {
		sk, err := ffs.GenerateKeyPair(rand.Reader, *bits, *k, common.DefaultMaxAttempts((*bits+1)/2))
		if err != nil {
			return exitError, err
		}
		pk = sk.Public()
	}

	stats, err := impostor.Run(ctx, pk, impostor.Config{Trials: *trials, Rounds: *t, Workers: *workers})
	if err != nil {
		return exitError, err
	}
	fmt.Fprintf(a.stdout, "k = %d, t = %d, trials = %d\n", stats.K, stats.T, stats.Trials)
	fmt.Fprintf(a.stdout, "successes:   %d\n", stats.Successes)
	fmt.Fprintf(a.stdout, "empirical:   %g\n", stats.Empirical)
	fmt.Fprintf(a.stdout, "theoretical: %g\n", stats.Theoretical)
	fmt.Fprintf(a.stdout, "deviation:   %.2f sigma\n", stats.Deviations())
	return exitAccepted, nil
}

func runBench(_ context.Context, a *app, args []string) (int, error) {
	fs := a.flagSet("bench")
	name := fs.String("name", "", "name of the key pair")
	t := fs.Int("t", a.cfg.T, "number of rounds")
	rsaBits := fs.Int("rsa-bits", 2048, "size of the RSA modulus")
	runs := fs.Int("runs", 20, "number of timed runs")
	if err := a.parse(fs, args); err != nil {
		return exitError, err
	}
	if err := requireName(*name); err != nil {
		return exitError, err
	}
	if *runs < 1 {
		return exitError, errors.New("--runs must be at least 1")
	}
	sk, err := a.loadPrivateKey(*name)
	if err != nil {
		return exitError, err
	}

	start := time.Now()
	for i := 0; i < *runs; i++ {
		ok, err := ffs.Authenticate(rand.Reader, sk, *t)
		if err != nil {
			return exitError, err
		}
		if !ok {
			return exitError, errors.New("honest authentication was rejected")
		}
	}
	ffsTime := time.Since(start) / time.Duration(*runs)

	rsaKey, err := rsa.GenerateKey(rand.Reader, *rsaBits)
	if err != nil {
		return exitError, err
	}
	digest := sha256.Sum256([]byte(*name))
	start = time.Now()
	for i := 0; i < *runs; i++ {
		sig, err := rsa.SignPKCS1v15(rand.Reader, rsaKey, crypto.SHA256, digest[:])
		if err != nil {
			return exitError, err
		}
		if err = rsa.VerifyPKCS1v15(&rsaKey.PublicKey, crypto.SHA256, digest[:], sig); err != nil {
			return exitError, err
		}
	}
	rsaTime := time.Since(start) / time.Duration(*runs)

	fmt.Fprintf(a.stdout, "ffs authenticate (%d bits, k = %d, t = %d): %v\n", sk.N.BitLen(), sk.K, *t, ffsTime)
	fmt.Fprintf(a.stdout, "rsa sign+verify (%d bits):                %v\n", *rsaBits, rsaTime)
	return exitAccepted, nil
}

func (a *app) loadPrivateKey(name string) (*ffskeys.PrivateKey, error) {
	store, err := a.store()
	if err != nil {
		return nil, err
	}
	return store.LoadPrivateKey(name)
}

func report(a *app, accepted bool) int {
	if accepted {
		fmt.Fprintln(a.stdout, "accepted")
		return exitAccepted
	}
	fmt.Fprintln(a.stdout, "rejected")
	return exitRejected
}
