package session

import (
	"context"
	"io"
	"net"
	"os/exec"
	"sync"
	"time"

	"github.com/go-errors/errors"
	"golang.org/x/sync/errgroup"

	"github.com/privacybydesign/ffs"
	"github.com/privacybydesign/ffs/ffskeys"
	"github.com/privacybydesign/ffs/internal/common"
	"github.com/privacybydesign/ffs/wire"
)

// ProcessGracePeriod is how long a prover process may take to exit after its stdin is closed
// before it is killed.
var ProcessGracePeriod = 2 * time.Second

type (
	// Endpoint is a prover owned by a verifier: a connection to it and the means to release it.
	// Close terminates the prover if necessary and releases its streams; it is idempotent.
	Endpoint interface {
		Conn() *wire.Conn
		Close() error
	}

	// StartFunc acquires an Endpoint.
	StartFunc func(ctx context.Context) (Endpoint, error)
)

// Verify acquires a prover endpoint, runs the verifier against it and releases the endpoint
// on every exit path.
func Verify(ctx context.Context, start StartFunc, pk *ffskeys.PublicKey, cfg Config) (*Result, error) {
	ep, err := start(ctx)
	if err != nil {
		return &Result{Outcome: ffs.OutcomeFailed}, errors.WrapPrefix(common.ErrTransport, "failed to start prover: "+err.Error(), 0)
	}
	defer func() {
		if err := ep.Close(); err != nil {
			Logger.WithField("error", err).Debug("prover endpoint closed with error")
		}
	}()
	return RunVerifier(ctx, ep.Conn(), pk, cfg)
}

type processEndpoint struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	conn   *wire.Conn

	once sync.Once
	err  error
}

// StartProcess returns a StartFunc that starts cmd, which must speak the protocol as a prover
// on its stdin and stdout. An exec.Cmd can only be started once, so neither can the StartFunc.
func StartProcess(cmd *exec.Cmd, opts ...wire.Option) StartFunc {
	return func(ctx context.Context) (Endpoint, error) {
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, err
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			common.Close(stdin)
			return nil, err
		}
		if err = cmd.Start(); err != nil {
			return nil, err
		}
		Logger.WithField("pid", cmd.Process.Pid).Debug("started prover process")
		return &processEndpoint{
			cmd:    cmd,
			stdin:  stdin,
			stdout: stdout,
			conn:   wire.NewConn(stdout, stdin, nil, opts...),
		}, nil
	}
}

func (p *processEndpoint) Conn() *wire.Conn {
	return p.conn
}

// Close closes the prover's stdin, kills it if it has not exited within ProcessGracePeriod,
// reaps it and closes its streams.
func (p *processEndpoint) Close() error {
	p.once.Do(func() {
		_ = p.conn.Close()
		_ = p.stdin.Close()

		exited := make(chan error, 1)
		go func() { exited <- p.cmd.Wait() }()
		select {
		case p.err = <-exited:
		case <-time.After(ProcessGracePeriod):
			Logger.WithField("pid", p.cmd.Process.Pid).Debug("killing prover process")
			_ = p.cmd.Process.Kill()
			p.err = <-exited
		}
		// Wait closes the pipes as well; this covers a Wait that failed early.
		_ = common.CloseAll(p.stdin, p.stdout)
	})
	return p.err
}

type localEndpoint struct {
	conn   *wire.Conn
	group  *errgroup.Group
	cancel context.CancelFunc

	once sync.Once
	err  error
}

// StartLocal returns a StartFunc that runs RunProver for sk in a goroutine, connected to the
// verifier by an in-memory pipe. Closing the endpoint closes the pipe and waits for the
// prover to return; its error, if any, is the result of Close.
func StartLocal(sk *ffskeys.PrivateKey, cfg Config, opts ...wire.Option) StartFunc {
	return func(ctx context.Context) (Endpoint, error) {
		proverSide, verifierSide := net.Pipe()
		ctx, cancel := context.WithCancel(ctx)
		group, gctx := errgroup.WithContext(ctx)

		proverConn := wire.NewConn(proverSide, proverSide, proverSide, opts...)
		group.Go(func() error {
			defer common.Close(proverConn)
			_, err := RunProver(gctx, proverConn, sk, cfg)
			return err
		})

		return &localEndpoint{
			conn:   wire.NewConn(verifierSide, verifierSide, verifierSide, opts...),
			group:  group,
			cancel: cancel,
		}, nil
	}
}

func (l *localEndpoint) Conn() *wire.Conn {
	return l.conn
}

func (l *localEndpoint) Close() error {
	l.once.Do(func() {
		_ = l.conn.Close()
		l.cancel()
		l.err = l.group.Wait()
	})
	return l.err
}
