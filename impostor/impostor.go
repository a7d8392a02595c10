// Package impostor measures the soundness of the identification protocol empirically: an
// adversary that knows only the public key tries to pass a real verifier by guessing its
// challenges in advance.
package impostor

import (
	"context"
	"crypto/rand"
	"io"
	"math"

	"github.com/go-errors/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/privacybydesign/ffs"
	"github.com/privacybydesign/ffs/big"
	"github.com/privacybydesign/ffs/ffskeys"
	"github.com/privacybydesign/ffs/internal/common"
)

var Logger = ffs.Logger

// Impostor plays the prover without the secrets. Per round it guesses a challenge e* and picks
// y at random, then commits to x = +-y^2 * prod_{e*_j = 1} v_j, so that y is a valid response
// exactly when the verifier's challenge equals e*.
type Impostor struct {
	rnd   io.Reader
	pk    *ffskeys.PublicKey
	round int
	guess []uint
	y     *big.Int
}

func NewImpostor(rnd io.Reader, pk *ffskeys.PublicKey) *Impostor {
	return &Impostor{rnd: rnd, pk: pk}
}

// Commit prepares the next round around a fresh guess.
func (im *Impostor) Commit() (int, *big.Int, error) {
	guess, err := common.RandomBits(im.rnd, im.pk.K)
	if err != nil {
		return 0, nil, err
	}
	y, err := common.RandomCoprime(im.rnd, im.pk.N)
	if err != nil {
		return 0, nil, err
	}
	sign, err := common.RandomBit(im.rnd)
	if err != nil {
		return 0, nil, err
	}

	x := new(big.Int).Mul(y, y)
	x.Mod(x, im.pk.N)
	for j, gj := range guess {
		if gj == 1 {
			x.Mul(x, im.pk.V[j]).Mod(x, im.pk.N)
		}
	}
	if sign == 1 {
		x = common.ModNeg(x, im.pk.N)
	}

	im.round++
	im.guess = guess
	im.y = y
	return im.round, x, nil
}

// Respond returns the prepared y, which only verifies if e equals the guess.
func (im *Impostor) Respond(round int, e []uint) (*big.Int, error) {
	if round != im.round || im.y == nil {
		return nil, errors.WrapPrefix(common.ErrProtocol, "no commitment for this round", 0)
	}
	y := im.y
	im.y = nil
	return y, nil
}

// Guessed reports whether the challenge e equals the guess of the current round.
func (im *Impostor) Guessed(e []uint) bool {
	if len(e) != len(im.guess) {
		return false
	}
	for j := range e {
		if e[j] != im.guess[j] {
			return false
		}
	}
	return true
}

// Trial runs one authentication attempt of t rounds by an impostor against a real verifier
// and reports whether the verifier accepted.
func Trial(rnd io.Reader, pk *ffskeys.PublicKey, t int) (bool, error) {
	verifier, err := ffs.NewVerifier(rnd, pk, t)
	if err != nil {
		return false, err
	}
	im := NewImpostor(rnd, pk)
	for verifier.Outcome() == ffs.OutcomePending {
		round, x, err := im.Commit()
		if err != nil {
			return false, err
		}
		e, err := verifier.Challenge(round, x)
		if err != nil {
			return false, err
		}
		y, err := im.Respond(round, e)
		if err != nil {
			return false, err
		}
		if _, err = verifier.Check(round, y); err != nil {
			return false, err
		}
	}
	return verifier.Outcome() == ffs.OutcomeAccepted, nil
}

// Config describes a series of trials.
type Config struct {
	Trials int
	Rounds int
	// Workers is the number of trials run in parallel; values below 1 mean 1.
	Workers int
	// NewReader returns the randomness source of a worker; nil means crypto/rand.
	NewReader func(worker int) io.Reader
}

// Stats summarizes a series of trials.
type Stats struct {
	K, T        int
	Trials      int
	Successes   int
	Empirical   float64
	Theoretical float64
	// StdDev is the standard deviation of the empirical rate under the theoretical one.
	StdDev float64
}

// Deviations returns the distance between the empirical and theoretical success rates in
// standard deviations.
func (s *Stats) Deviations() float64 {
	if s.StdDev == 0 {
		return 0
	}
	return math.Abs(s.Empirical-s.Theoretical) / s.StdDev
}

// Run executes cfg.Trials independent trials against pk, spread over cfg.Workers goroutines.
func Run(ctx context.Context, pk *ffskeys.PublicKey, cfg Config) (*Stats, error) {
	if cfg.Trials < 1 || cfg.Rounds < 1 {
		return nil, errors.WrapPrefix(common.ErrInvalidParameter, "trials and rounds must be at least 1", 0)
	}
	if err := pk.Validate(); err != nil {
		return nil, err
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > cfg.Trials {
		workers = cfg.Trials
	}

	successes := make([]int, workers)
	group, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		// Trials are divided as evenly as possible over the workers
		count := cfg.Trials / workers
		if w < cfg.Trials%workers {
			count++
		}
		var rnd io.Reader = rand.Reader
		if cfg.NewReader != nil {
			rnd = cfg.NewReader(w)
		}
		group.Go(func() error {
			for i := 0; i < count; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				ok, err := Trial(rnd, pk, cfg.Rounds)
				if err != nil {
					return err
				}
				if ok {
					successes[w]++
				}
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	stats := &Stats{K: pk.K, T: cfg.Rounds, Trials: cfg.Trials}
	for _, s := range successes {
		stats.Successes += s
	}
	p := ffs.SoundnessError(pk.K, cfg.Rounds)
	stats.Empirical = float64(stats.Successes) / float64(stats.Trials)
	stats.Theoretical = p
	stats.StdDev = math.Sqrt(p * (1 - p) / float64(stats.Trials))

	Logger.WithFields(logrus.Fields{
		"trials":      stats.Trials,
		"successes":   stats.Successes,
		"empirical":   stats.Empirical,
		"theoretical": stats.Theoretical,
	}).Debug("impostor trials finished")
	return stats, nil
}
