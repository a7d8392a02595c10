// Copyright 2016 Maarten Everts. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package common

import (
	"fmt"
	"io"

	"github.com/go-errors/errors"

	"github.com/privacybydesign/ffs/big"
)

const (
	// MillerRabinRounds is the default number of independent Miller-Rabin witnesses.
	// A composite survives all of them with probability at most 4^-MillerRabinRounds.
	MillerRabinRounds = 16

	// MinPrimeBits is the smallest prime size GeneratePrime accepts.
	MinPrimeBits = 16
)

// SmallPrimes is a list of small prime numbers that allows us to rapidly
// exclude some fraction of composite candidates when searching for a random
// prime. This list is truncated at the point where SmallPrimesProduct exceeds
// a uint64. It does not include two because even candidates are handled
// separately.
var SmallPrimes = []uint8{
	3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53,
}

// SmallPrimesProduct is the product of the values in SmallPrimes and allows us
// to reduce a candidate prime by this number and then determine whether it's
// coprime with all the elements of SmallPrimes without further big.Int
// operations.
var SmallPrimesProduct = new(big.Int).SetUint64(16294579238595022365)

// Every composite below 53^2 has a factor in SmallPrimes or is even.
var smallPrimesBound = uint64(53 * 53)

// IsProbablePrime trial-divides n by SmallPrimes and then runs the Miller-Rabin
// test with the given number of witnesses, drawn independently from rnd.
// It never reports a prime as composite.
func IsProbablePrime(rnd io.Reader, n *big.Int, rounds int) (bool, error) {
	if rounds < 1 {
		return false, errors.WrapPrefix(ErrInvalidParameter, "at least one Miller-Rabin round is required", 0)
	}
	if n.Cmp(bigTWO) < 0 {
		return false, nil
	}
	if n.Bit(0) == 0 {
		return n.Cmp(bigTWO) == 0, nil
	}

	small := n.IsUint64()
	bigMod := new(big.Int).Mod(n, SmallPrimesProduct)
	mod := bigMod.Uint64()
	for _, prime := range SmallPrimes {
		if small && n.Uint64() == uint64(prime) {
			return true, nil
		}
		if mod%uint64(prime) == 0 {
			return false, nil
		}
	}
	if small && n.Uint64() < smallPrimesBound {
		return true, nil
	}

	// write n-1 = d * 2^s
	nm1 := new(big.Int).Sub(n, bigONE)
	d := new(big.Int).Set(nm1)
	s := 0
	for d.Bit(0) == 0 {
		d.Rsh(d, 1)
		s++
	}

	// witnesses are drawn from [2, n-2]
	nm2 := new(big.Int).Sub(n, bigTWO)
	x := new(big.Int)
NextWitness:
	for i := 0; i < rounds; i++ {
		a, err := RandomRange(rnd, bigTWO, nm2)
		if err != nil {
			return false, err
		}
		x.Exp(a, d, n)
		if x.Cmp(bigONE) == 0 || x.Cmp(nm1) == 0 {
			continue
		}
		for j := 1; j < s; j++ {
			x.Mul(x, x).Mod(x, n)
			if x.Cmp(nm1) == 0 {
				continue NextWitness
			}
		}
		return false, nil
	}
	return true, nil
}

// GeneratePrime returns a random probable prime of exactly bits bits. If
// congruent3Mod4 is set, only primes p with p = 3 (mod 4) are returned.
// At most maxAttempts candidates are drawn; after that an
// ErrGenerationExhausted error is returned so the caller can decide what to do.
func GeneratePrime(rnd io.Reader, bits int, congruent3Mod4 bool, maxAttempts int) (*big.Int, error) {
	if bits < MinPrimeBits {
		return nil, errors.WrapPrefix(ErrInvalidParameter, fmt.Sprintf("prime size must be at least %d bits", MinPrimeBits), 0)
	}
	if maxAttempts < 1 {
		return nil, errors.WrapPrefix(ErrInvalidParameter, "maxAttempts must be at least 1", 0)
	}

	b := uint(bits % 8)
	if b == 0 {
		b = 8
	}
	bytes := make([]byte, (bits+7)/8)
	p := new(big.Int)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if _, err := io.ReadFull(rnd, bytes); err != nil {
			return nil, err
		}

		// Clear bits in the first byte to make sure the candidate has a size <= bits.
		bytes[0] &= uint8(int(1<<b) - 1)
		p.SetBytes(bytes)

		// Force the top bit for the exact size, and the low bit for oddness.
		p.SetBit(p, bits-1, 1)
		p.SetBit(p, 0, 1)

		if congruent3Mod4 && p.Bit(1) == 0 {
			continue
		}

		ok, err := IsProbablePrime(rnd, p, MillerRabinRounds)
		if err != nil {
			return nil, err
		}
		if ok {
			return p, nil
		}
	}

	return nil, errors.WrapPrefix(ErrGenerationExhausted,
		fmt.Sprintf("no %d-bit prime found in %d attempts", bits, maxAttempts), 0)
}

// DefaultMaxAttempts returns a candidate budget for GeneratePrime that is large
// compared to the expected O(bits) number of candidates.
func DefaultMaxAttempts(bits int) int {
	return 64 * bits
}
