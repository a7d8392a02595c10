// Copyright 2016 Maarten Everts. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ffs

import (
	"io"
	"math"

	"github.com/go-errors/errors"
	"github.com/sirupsen/logrus"

	"github.com/privacybydesign/ffs/blumprime"
	"github.com/privacybydesign/ffs/ffskeys"
	"github.com/privacybydesign/ffs/internal/common"
)

// Authenticate runs t rounds between an in-process prover for sk and a verifier for its public
// key, with fresh randomness from rnd in every round. It returns true iff all rounds accept,
// and stops at the first rejected round.
func Authenticate(rnd io.Reader, sk *ffskeys.PrivateKey, t int) (bool, error) {
	return AuthenticateVerbose(rnd, sk, t, &EmptyTracer{})
}

// AuthenticateVerbose is Authenticate, reporting every round to tracer.
func AuthenticateVerbose(rnd io.Reader, sk *ffskeys.PrivateKey, t int, tracer Tracer) (bool, error) {
	if t < 1 {
		return false, errors.WrapPrefix(common.ErrInvalidParameter, "t must be at least 1", 0)
	}
	if tracer == nil {
		tracer = &EmptyTracer{}
	}
	prover, err := NewProver(rnd, sk)
	if err != nil {
		return false, err
	}
	verifier, err := NewVerifier(rnd, sk.Public(), t)
	if err != nil {
		return false, err
	}

	for i := 0; i < t; i++ {
		round, x, err := prover.Commit()
		if err != nil {
			return false, err
		}
		e, err := verifier.Challenge(round, x)
		if err != nil {
			return false, err
		}
		y, err := prover.Respond(round, e)
		if err != nil {
			return false, err
		}
		ok, err := verifier.Check(round, y)
		if err != nil {
			return false, err
		}
		if err = prover.Finish(round, ok); err != nil {
			return false, err
		}

		c := verifier.last
		tracer.Round(&RoundTrace{
			Round:       round,
			X:           x,
			E:           e,
			Y:           y,
			Z:           c.z,
			ZEqualsX:    c.zEqualsX,
			ZEqualsNegX: c.zEqualsNegX,
			OK:          ok,
		})
		if !ok {
			Logger.WithFields(logrus.Fields{"round": round}).Debug("authentication rejected")
			return false, nil
		}
	}
	return verifier.Outcome() == OutcomeAccepted, nil
}

// SoundnessError returns 2^-kt, the probability that an impostor without the secrets
// passes all t rounds.
func SoundnessError(k, t int) float64 {
	return math.Pow(2, -float64(k)*float64(t))
}

// GenerateKeyPair generates a Blum modulus of (about) bits bits and a key pair with k secrets
// over it. maxAttempts bounds each prime search.
func GenerateKeyPair(rnd io.Reader, bits, k, maxAttempts int) (*ffskeys.PrivateKey, error) {
	if k < 1 {
		return nil, errors.WrapPrefix(common.ErrInvalidParameter, "k must be at least 1", 0)
	}
	m, err := blumprime.GenerateModulus(rnd, (bits+1)/2, maxAttempts)
	if err != nil {
		return nil, err
	}
	Logger.WithFields(logrus.Fields{"bits": m.N.BitLen(), "k": k}).Debug("generated modulus")
	return ffskeys.GenerateKeyPair(rnd, m.N, k)
}
