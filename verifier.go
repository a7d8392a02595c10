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

// Verifier is the round state machine of the party holding the public key. It runs exactly t
// rounds and stops at the first rejected one. A Verifier is not safe for concurrent use.
type Verifier struct {
	rnd   io.Reader
	pk    *ffskeys.PublicKey
	t     int
	round int
	state RoundState
	x     *big.Int
	e     []uint
	last  *roundCheck
}

// NewVerifier returns a verifier for pk that requires t accepted rounds.
func NewVerifier(rnd io.Reader, pk *ffskeys.PublicKey, t int) (*Verifier, error) {
	if t < 1 {
		return nil, errors.WrapPrefix(common.ErrInvalidParameter, "t must be at least 1", 0)
	}
	if rnd == nil || pk == nil {
		return nil, errors.WrapPrefix(common.ErrInvalidParameter, "verifier needs randomness and a public key", 0)
	}
	if err := pk.Validate(); err != nil {
		return nil, err
	}
	return &Verifier{rnd: rnd, pk: pk, t: t, state: CommitPending}, nil
}

func (v *Verifier) Round() int {
	return v.round
}

func (v *Verifier) Rounds() int {
	return v.t
}

func (v *Verifier) State() RoundState {
	return v.state
}

// Challenge accepts the commitment x of the given round and returns k fresh challenge bits.
func (v *Verifier) Challenge(round int, x *big.Int) ([]uint, error) {
	if err := v.canChallenge(round, x); err != nil {
		return nil, err
	}
	e, err := common.RandomBits(v.rnd, v.pk.K)
	if err != nil {
		return nil, err
	}
	return v.challengeWith(round, x, e)
}

func (v *Verifier) canChallenge(round int, x *big.Int) error {
	if v.state != CommitPending && v.state != Verified {
		return wrongState("verifier challenge", CommitPending, v.state)
	}
	if v.round >= v.t {
		return errors.WrapPrefix(common.ErrProtocol, "all rounds completed", 0)
	}
	if round != v.round+1 {
		return wrongRound("verifier challenge", v.round+1, round)
	}
	return checkRange("commitment", x, v.pk.N)
}

func (v *Verifier) challengeWith(round int, x *big.Int, e []uint) ([]uint, error) {
	if err := v.canChallenge(round, x); err != nil {
		return nil, err
	}
	if err := checkChallenge(e, v.pk.K); err != nil {
		return nil, err
	}
	v.round = round
	v.x = new(big.Int).Set(x)
	v.e = append([]uint(nil), e...)
	v.last = nil
	v.state = ResponsePending
	return append([]uint(nil), e...), nil
}

// Check evaluates the response y of the given round. A computed rejection is reported as
// (false, nil); errors are reserved for out-of-sequence or malformed input.
func (v *Verifier) Check(round int, y *big.Int) (bool, error) {
	if v.state != ResponsePending {
		return false, wrongState("verifier check", ResponsePending, v.state)
	}
	if round != v.round {
		return false, wrongRound("verifier check", v.round, round)
	}
	if err := checkRange("response", y, v.pk.N); err != nil {
		return false, err
	}

	c := checkResponse(v.pk.N, v.pk.V, v.x, v.e, y)
	v.last = c
	if c.ok {
		v.state = Verified
	} else {
		v.state = Rejected
	}
	Logger.WithFields(logrus.Fields{"round": round, "ok": c.ok}).Trace("verifier checked response")
	return c.ok, nil
}

// Outcome returns OutcomeAccepted once all t rounds are verified, OutcomeRejected after any
// rejected round, and OutcomePending otherwise.
func (v *Verifier) Outcome() Outcome {
	switch {
	case v.state == Rejected:
		return OutcomeRejected
	case v.state == Verified && v.round == v.t:
		return OutcomeAccepted
	default:
		return OutcomePending
	}
}
