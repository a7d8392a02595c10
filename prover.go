// Copyright 2016 Maarten Everts. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ffs

import (
	"io"

	"github.com/go-errors/errors"
	"github.com/sirupsen/logrus"

	"github.com/privacybydesign/ffs/big"
	"github.com/privacybydesign/ffs/ffskeys"
	"github.com/privacybydesign/ffs/internal/common"
)

// Prover is the round state machine of the party holding the secrets. Rounds are numbered
// from 1. A Prover is not safe for concurrent use, and is discarded after rejection.
type Prover struct {
	rnd   io.Reader
	sk    *ffskeys.PrivateKey
	round int
	state RoundState
	r     *big.Int
}

// NewProver returns a prover for sk, drawing its randomness from rnd.
func NewProver(rnd io.Reader, sk *ffskeys.PrivateKey) (*Prover, error) {
	if rnd == nil || sk == nil {
		return nil, errors.WrapPrefix(common.ErrInvalidParameter, "prover needs randomness and a private key", 0)
	}
	if err := sk.Validate(); err != nil {
		return nil, err
	}
	return &Prover{rnd: rnd, sk: sk, state: CommitPending}, nil
}

// Round returns the number of the current (or last) round, 0 before the first commitment.
func (p *Prover) Round() int {
	return p.round
}

// State returns the state of the current round.
func (p *Prover) State() RoundState {
	return p.state
}

// Commit starts a new round: it draws a fresh unit r and sign b and returns the round number
// and the commitment x = (-1)^b * r^2 mod n.
func (p *Prover) Commit() (int, *big.Int, error) {
	if err := p.canCommit(); err != nil {
		return 0, nil, err
	}
	r, err := common.RandomCoprime(p.rnd, p.sk.N)
	if err != nil {
		return 0, nil, err
	}
	b, err := common.RandomBit(p.rnd)
	if err != nil {
		return 0, nil, err
	}
	return p.commitWith(r, b)
}

func (p *Prover) canCommit() error {
	if p.state != CommitPending && p.state != Verified {
		return wrongState("prover commit", CommitPending, p.state)
	}
	return nil
}

func (p *Prover) commitWith(r *big.Int, b uint) (int, *big.Int, error) {
	if err := p.canCommit(); err != nil {
		return 0, nil, err
	}
	p.round++
	p.r = r
	p.state = ChallengePending
	x := common.SignedSquare(r, b, p.sk.N)
	Logger.WithFields(logrus.Fields{"round": p.round}).Trace("prover committed")
	return p.round, x, nil
}

// Respond answers the challenge e of the given round with y = r * prod_{e_j = 1} s_j mod n.
func (p *Prover) Respond(round int, e []uint) (*big.Int, error) {
	if p.state != ChallengePending {
		return nil, wrongState("prover respond", ChallengePending, p.state)
	}
	if round != p.round {
		return nil, wrongRound("prover respond", p.round, round)
	}
	if err := checkChallenge(e, p.sk.K); err != nil {
		return nil, err
	}
	y := respond(p.sk.N, p.sk.S, p.r, e)
	p.r = nil
	p.state = ResponsePending
	return y, nil
}

// Finish records the verifier's verdict on the given round. After a rejection the prover
// accepts no further rounds.
func (p *Prover) Finish(round int, ok bool) error {
	if p.state != ResponsePending {
		return wrongState("prover finish", ResponsePending, p.state)
	}
	if round != p.round {
		return wrongRound("prover finish", p.round, round)
	}
	if ok {
		p.state = Verified
	} else {
		p.state = Rejected
	}
	return nil
}
