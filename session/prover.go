package session

import (
	"context"

	"github.com/go-errors/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/privacybydesign/ffs"
	"github.com/privacybydesign/ffs/ffskeys"
	"github.com/privacybydesign/ffs/internal/common"
	"github.com/privacybydesign/ffs/wire"
)

// RunProver proves knowledge of sk to the verifier at the other end of conn, in cfg.Rounds
// rounds. A rejected round ends the session with OutcomeRejected and a nil error; protocol
// and transport errors end it with OutcomeFailed.
func RunProver(ctx context.Context, conn *wire.Conn, sk *ffskeys.PrivateKey, cfg Config) (*Result, error) {
	id := uuid.NewString()
	r := &run{
		ctx:    ctx,
		conn:   conn,
		log:    Logger.WithFields(logrus.Fields{"session": id, "role": wire.RoleProver}),
		result: &Result{Outcome: ffs.OutcomePending, Session: id},
	}
	if cfg.Rounds < 1 {
		r.result.Outcome = ffs.OutcomeFailed
		return r.result, errors.WrapPrefix(common.ErrInvalidParameter, "t must be at least 1", 0)
	}
	prover, err := ffs.NewProver(cfg.rand(), sk)
	if err != nil {
		r.result.Outcome = ffs.OutcomeFailed
		return r.result, err
	}

	hello := &wire.Hello{Role: wire.RoleProver, Name: cfg.Name, K: sk.K, T: cfg.Rounds, Session: id}
	if err = conn.Send(ctx, hello); err != nil {
		return r.fail(err)
	}
	r.log.WithFields(logrus.Fields{"k": sk.K, "t": cfg.Rounds}).Debug("session started")

	for i := 0; i < cfg.Rounds; i++ {
		round, x, err := prover.Commit()
		if err != nil {
			return r.fail(err)
		}
		if err = conn.Send(ctx, &wire.Commit{Round: round, X: x}); err != nil {
			return r.fail(err)
		}

		msg, err := r.expect(wire.TypeChallenge)
		if err != nil {
			return r.fail(err)
		}
		challenge := msg.(*wire.Challenge)
		y, err := prover.Respond(challenge.Round, challenge.E)
		if err != nil {
			return r.fail(err)
		}
		if err = conn.Send(ctx, &wire.Response{Round: round, Y: y}); err != nil {
			return r.fail(err)
		}

		if msg, err = r.expect(wire.TypeResult); err != nil {
			return r.fail(err)
		}
		result := msg.(*wire.Result)
		if err = prover.Finish(result.Round, result.OK); err != nil {
			return r.fail(err)
		}
		r.result.Rounds = round
		r.log.WithFields(logrus.Fields{"round": round, "ok": result.OK}).Trace("round finished")

		if !result.OK {
			r.result.Outcome = ffs.OutcomeRejected
			if err = conn.Send(ctx, &wire.Done{OK: false}); err != nil {
				r.log.WithField("error", err).Debug("could not send done")
			}
			r.log.Info("verifier rejected")
			return r.result, nil
		}
	}

	if err = conn.Send(ctx, &wire.Done{OK: true}); err != nil {
		return r.fail(err)
	}
	r.result.Outcome = ffs.OutcomeAccepted
	r.log.Debug("verifier accepted")
	return r.result, nil
}
