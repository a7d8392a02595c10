// Package blumprime computes Blum primes, i.e. primes p with p = 3 (mod 4), and Blum
// integers n = p*q built from two distinct such primes.
package blumprime

import (
	"io"
	"runtime"
	"sync"

	"github.com/go-errors/errors"
	"github.com/privacybydesign/ffs/big"
	"github.com/privacybydesign/ffs/internal/common"
	"github.com/sirupsen/logrus"
)

// Modulus is a Blum integer N = P*Q together with its factors. The factors are
// only needed during key generation and should be discarded afterwards.
type Modulus struct {
	P, Q, N *big.Int
}

// Generate returns a Blum prime of exactly bitsize bits, drawing at most
// maxAttempts candidates from rnd.
func Generate(rnd io.Reader, bitsize int, maxAttempts int) (*big.Int, error) {
	return common.GeneratePrime(rnd, bitsize, true, maxAttempts)
}

// GenerateModulus generates two distinct Blum primes of bitsize bits and their product.
// Each prime search is bounded by maxAttempts, and so is the number of times q is
// resampled because it equals p.
func GenerateModulus(rnd io.Reader, bitsize int, maxAttempts int) (*Modulus, error) {
	p, err := Generate(rnd, bitsize, maxAttempts)
	if err != nil {
		return nil, err
	}
	for i := 0; i < maxAttempts; i++ {
		q, err := Generate(rnd, bitsize, maxAttempts)
		if err != nil {
			return nil, err
		}
		if q.Cmp(p) == 0 {
			Logger.Debug("blumprime: q equals p, resampling q")
			continue
		}
		return &Modulus{P: p, Q: q, N: new(big.Int).Mul(p, q)}, nil
	}
	return nil, errors.WrapPrefix(common.ErrGenerationExhausted, "no distinct second prime found", 0)
}

// GenerateConcurrent concurrently and continuously generates Blum primes on all CPU cores,
// until the stop channel receives a struct or is closed. If an error is encountered, generation is
// stopped in all goroutines, and the error is sent on the second return parameter.
// All goroutines draw from rnd, which must be safe for concurrent use.
func GenerateConcurrent(rnd io.Reader, bitsize int, stop chan struct{}) (<-chan *big.Int, <-chan error) {
	count := runtime.GOMAXPROCS(0)
	ints := make(chan *big.Int, count)
	errs := make(chan error, count)

	// In order to succesfully close all goroutines below when the caller wants them to, they require
	// a channel that is close()d: just sending a struct{}{} would stop one but not all goroutines.
	// Instead of requiring the caller to close() the stop chan parameter we use our own chan for
	// this, so that we always stop all goroutines independent of whether the caller close()s stop
	// or sends a struct{}{} to it.
	stopped := make(chan struct{})
	var once closeOnce
	go func() {
		select {
		case <-stop:
			once.close(stopped)
		case <-stopped: // stopped can also be closed by a goroutine that encountered an error
		}
	}()

	for i := 0; i < count; i++ {
		go func() {
			for {
				select {
				case <-stopped:
					return
				default:
				}

				x, err := Generate(rnd, bitsize, common.DefaultMaxAttempts(bitsize))
				if err != nil {
					select {
					case errs <- err:
					default:
					}
					once.close(stopped)
					return
				}

				// Only send result and continue generating if we have not been told to stop
				select {
				case <-stopped:
					return
				case ints <- x:
				}
			}
		}()
	}

	return ints, errs
}

// GenerateModulusConcurrent generates a Blum modulus with bitsize-bit factors using
// GenerateConcurrent, which is considerably faster than GenerateModulus for large sizes.
func GenerateModulusConcurrent(rnd io.Reader, bitsize int) (*Modulus, error) {
	stop := make(chan struct{})
	defer close(stop)
	ints, errs := GenerateConcurrent(rnd, bitsize, stop)

	var p *big.Int
	for {
		select {
		case x := <-ints:
			if p == nil {
				p = x
				continue
			}
			if x.Cmp(p) == 0 {
				continue
			}
			m := &Modulus{P: p, Q: x, N: new(big.Int).Mul(p, x)}
			Logger.WithFields(logrus.Fields{"bits": m.N.BitLen()}).Debug("blumprime: generated modulus")
			return m, nil
		case err := <-errs:
			return nil, err
		}
	}
}

// ProbablyBlumPrime reports whether x is probably a prime congruent to 3 mod 4, by calling
// big.Int.ProbablyPrime(n) on x.
func ProbablyBlumPrime(x *big.Int, n int) bool {
	if x.Sign() <= 0 || x.Bit(0) != 1 || x.Bit(1) != 1 {
		return false
	}
	return x.ProbablyPrime(n)
}

// Validate checks that P and Q are distinct Blum primes and that N = P*Q.
func (m *Modulus) Validate() error {
	if m.P == nil || m.Q == nil || m.N == nil {
		return errors.WrapPrefix(common.ErrInvalidParameter, "incomplete modulus", 0)
	}
	if m.P.Cmp(m.Q) == 0 {
		return errors.WrapPrefix(common.ErrInvalidParameter, "P and Q must be distinct", 0)
	}
	if !ProbablyBlumPrime(m.P, 40) {
		return errors.WrapPrefix(common.ErrInvalidParameter, "P is not a Blum prime", 0)
	}
	if !ProbablyBlumPrime(m.Q, 40) {
		return errors.WrapPrefix(common.ErrInvalidParameter, "Q is not a Blum prime", 0)
	}
	if new(big.Int).Mul(m.P, m.Q).Cmp(m.N) != 0 {
		return errors.WrapPrefix(common.ErrInvalidParameter, "N does not equal P*Q", 0)
	}
	return nil
}

type closeOnce struct {
	sync.Once
}

func (o *closeOnce) close(c chan struct{}) {
	o.Do(func() { close(c) })
}
