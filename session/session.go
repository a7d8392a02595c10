// Package session runs the prover and verifier roles of the identification protocol over a
// wire.Conn, keeping both sides in lockstep and failing closed on any deviation from the
// expected message sequence.
package session

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"github.com/go-errors/errors"
	"github.com/sirupsen/logrus"

	"github.com/privacybydesign/ffs"
	"github.com/privacybydesign/ffs/internal/common"
	"github.com/privacybydesign/ffs/wire"
)

var Logger = ffs.Logger

// doneGracePeriod bounds the wait for the prover's done message after a rejected round.
const doneGracePeriod = time.Second

// Config holds the parameters both roles agree on.
type Config struct {
	// Name of the key pair. The prover announces it; a verifier with a non-empty Name
	// requires the announced name to match.
	Name string
	// Rounds is t, the number of rounds to run.
	Rounds int
	// Rand is the randomness source of this session; nil means crypto/rand.
	Rand io.Reader
}

// Result describes how a session ended.
type Result struct {
	Outcome ffs.Outcome
	// Rounds is the number of rounds that were completed.
	Rounds  int
	Session string
}

func (cfg *Config) rand() io.Reader {
	if cfg.Rand == nil {
		return rand.Reader
	}
	return cfg.Rand
}

type run struct {
	ctx    context.Context
	conn   *wire.Conn
	log    *logrus.Entry
	result *Result
	// set when the peer sent an error message, which is never answered
	peerAborted bool
}

// fail ends the session with OutcomeFailed. Protocol errors are reported to the peer first.
func (r *run) fail(err error) (*Result, error) {
	r.result.Outcome = ffs.OutcomeFailed
	if errors.Is(err, common.ErrProtocol) && !r.peerAborted {
		msg := &wire.Error{Round: r.result.Rounds + 1, Message: err.Error()}
		if sendErr := r.conn.Send(r.ctx, msg); sendErr != nil {
			r.log.WithField("error", sendErr).Debug("could not report protocol error to peer")
		}
	}
	r.log.WithField("error", err).Warn("session failed")
	return r.result, err
}

// expect receives the next message and checks that it has the given type.
func (r *run) expect(typ string) (wire.Message, error) {
	msg, err := r.conn.Recv(r.ctx)
	if err != nil {
		return nil, err
	}
	if perr, ok := msg.(*wire.Error); ok {
		r.peerAborted = true
		return nil, errors.WrapPrefix(common.ErrProtocol,
			fmt.Sprintf("peer aborted in round %d: %s", perr.Round, perr.Message), 0)
	}
	if msg.Type() != typ {
		return nil, errors.WrapPrefix(common.ErrProtocol, fmt.Sprintf("expected %s, got %s", typ, msg.Type()), 0)
	}
	return msg, nil
}
