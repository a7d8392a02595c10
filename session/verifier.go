package session

import (
	"context"
	"fmt"

	"github.com/go-errors/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/privacybydesign/ffs"
	"github.com/privacybydesign/ffs/ffskeys"
	"github.com/privacybydesign/ffs/internal/common"
	"github.com/privacybydesign/ffs/wire"
)

// RunVerifier verifies the prover at the other end of conn against pk, requiring cfg.Rounds
// accepted rounds. The hello message must announce the prover role, the key's k, exactly
// cfg.Rounds rounds and, if cfg.Name is set, that name. A hello without a session id gets
// one assigned by the verifier.
func RunVerifier(ctx context.Context, conn *wire.Conn, pk *ffskeys.PublicKey, cfg Config) (*Result, error) {
	r := &run{
		ctx:    ctx,
		conn:   conn,
		log:    Logger.WithFields(logrus.Fields{"role": wire.RoleVerifier}),
		result: &Result{Outcome: ffs.OutcomePending},
	}
	verifier, err := ffs.NewVerifier(cfg.rand(), pk, cfg.Rounds)
	if err != nil {
		r.result.Outcome = ffs.OutcomeFailed
		return r.result, err
	}

	msg, err := r.expect(wire.TypeHello)
	if err != nil {
		return r.fail(err)
	}
	hello := msg.(*wire.Hello)
	if err = checkHello(hello, pk, cfg); err != nil {
		return r.fail(err)
	}
	r.result.Session = hello.Session
	if r.result.Session == "" {
		r.result.Session = uuid.NewString()
	}
	r.log = r.log.WithFields(logrus.Fields{"session": r.result.Session, "name": hello.Name})
	r.log.WithFields(logrus.Fields{"k": hello.K, "t": hello.T}).Debug("session started")

	for i := 0; i < cfg.Rounds; i++ {
		if msg, err = r.expect(wire.TypeCommit); err != nil {
			return r.fail(err)
		}
		commit := msg.(*wire.Commit)
		e, err := verifier.Challenge(commit.Round, commit.X)
		if err != nil {
			return r.fail(err)
		}
		if err = conn.Send(ctx, &wire.Challenge{Round: commit.Round, E: e}); err != nil {
			return r.fail(err)
		}

		if msg, err = r.expect(wire.TypeResponse); err != nil {
			return r.fail(err)
		}
		response := msg.(*wire.Response)
		ok, err := verifier.Check(response.Round, response.Y)
		if err != nil {
			return r.fail(err)
		}
		if err = conn.Send(ctx, &wire.Result{Round: commit.Round, OK: ok}); err != nil {
			return r.fail(err)
		}
		r.result.Rounds = commit.Round
		r.log.WithFields(logrus.Fields{"round": commit.Round, "ok": ok}).Trace("round finished")

		if !ok {
			r.result.Outcome = ffs.OutcomeRejected
			r.awaitDone()
			r.log.WithField("round", commit.Round).Info("prover rejected")
			return r.result, nil
		}
	}

	if msg, err = r.expect(wire.TypeDone); err != nil {
		return r.fail(err)
	}
	if !msg.(*wire.Done).OK {
		return r.fail(errors.WrapPrefix(common.ErrProtocol, "prover reported failure after all rounds were accepted", 0))
	}
	if verifier.Outcome() != ffs.OutcomeAccepted {
		return r.fail(errors.WrapPrefix(common.ErrProtocol, "verifier did not complete all rounds", 0))
	}
	r.result.Outcome = ffs.OutcomeAccepted
	r.log.Debug("prover accepted")
	return r.result, nil
}

func checkHello(hello *wire.Hello, pk *ffskeys.PublicKey, cfg Config) error {
	if hello.Role != wire.RoleProver {
		return errors.WrapPrefix(common.ErrProtocol, "peer is not a prover: "+hello.Role, 0)
	}
	if hello.K != pk.K {
		return errors.WrapPrefix(common.ErrProtocol, fmt.Sprintf("prover uses k = %d, key has k = %d", hello.K, pk.K), 0)
	}
	if hello.T != cfg.Rounds {
		return errors.WrapPrefix(common.ErrProtocol, fmt.Sprintf("prover offers t = %d, %d required", hello.T, cfg.Rounds), 0)
	}
	if cfg.Name != "" && hello.Name != cfg.Name {
		return errors.WrapPrefix(common.ErrProtocol, fmt.Sprintf("prover announced key %q, expected %q", hello.Name, cfg.Name), 0)
	}
	if hello.Session != "" {
		if _, err := uuid.Parse(hello.Session); err != nil {
			return errors.WrapPrefix(common.ErrProtocol, "invalid session id", 0)
		}
	}
	return nil
}

// awaitDone reads the prover's done message after a rejection. It never changes the outcome.
func (r *run) awaitDone() {
	ctx, cancel := context.WithTimeout(r.ctx, doneGracePeriod)
	defer cancel()
	msg, err := r.conn.Recv(ctx)
	if err != nil {
		r.log.WithField("error", err).Debug("no done message after rejection")
		return
	}
	if done, ok := msg.(*wire.Done); !ok || done.OK {
		r.log.WithField("type", msg.Type()).Debug("unexpected message after rejection")
	}
}
