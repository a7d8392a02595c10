// Copyright 2016 Maarten Everts. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package common

import (
	"io"

	"github.com/go-errors/errors"
	"github.com/privacybydesign/ffs/big"
)

// Some utility code (mostly math stuff) useful in various places in this
// module.

// Often we need to refer to the same small constant big numbers, no point in
// creating them again and again.
var (
	bigZERO  = big.NewInt(0)
	bigONE   = big.NewInt(1)
	bigTWO   = big.NewInt(2)
	bigTHREE = big.NewInt(3)
)

// ModInverse returns ia, the inverse of a modulo n. Unlike the RSA code this
// was taken from, n need not be prime: the inverse exists iff gcd(a, n) = 1,
// and an ErrArithmetic error is returned otherwise.
func ModInverse(a, n *big.Int) (*big.Int, error) {
	if n.Sign() <= 0 {
		return nil, errors.WrapPrefix(ErrInvalidParameter, "modulus must be positive", 0)
	}
	g := new(big.Int)
	x := new(big.Int)
	y := new(big.Int)
	g.GCD(x, y, new(big.Int).Mod(a, n), n)
	if g.Cmp(bigONE) != 0 {
		// In this case, a and n aren't coprime and we cannot calculate
		// the inverse. With a Blum modulus this means a shares a prime
		// factor with n.
		return nil, errors.WrapPrefix(ErrArithmetic, "modular inverse does not exist", 0)
	}

	if x.Sign() < 0 {
		x.Add(x, n)
	}

	return x.Mod(x, n), nil
}

// IsCoprime reports whether gcd(a, n) = 1.
func IsCoprime(a, n *big.Int) bool {
	return new(big.Int).GCD(nil, nil, a, n).Cmp(bigONE) == 0
}

// RandomBigInt returns a random big integer value in the range
// [0,(2^numBits)-1], inclusive.
func RandomBigInt(rnd io.Reader, numBits uint) (*big.Int, error) {
	t := new(big.Int).Lsh(bigONE, numBits)
	return big.RandInt(rnd, t)
}

// RandomRange returns a uniformly random integer in [min, max].
func RandomRange(rnd io.Reader, min, max *big.Int) (*big.Int, error) {
	if max.Cmp(min) < 0 {
		return nil, errors.WrapPrefix(ErrInvalidParameter, "empty range", 0)
	}
	width := new(big.Int).Sub(max, min)
	width.Add(width, bigONE)
	x, err := big.RandInt(rnd, width)
	if err != nil {
		return nil, err
	}
	return x.Add(x, min), nil
}

// RandomCoprime draws x uniformly from [2, n-1], retrying until gcd(x, n) = 1.
func RandomCoprime(rnd io.Reader, n *big.Int) (*big.Int, error) {
	if n.Cmp(bigTHREE) < 0 {
		return nil, errors.WrapPrefix(ErrInvalidParameter, "modulus must be at least 3", 0)
	}
	max := new(big.Int).Sub(n, bigONE)
	for {
		x, err := RandomRange(rnd, bigTWO, max)
		if err != nil {
			return nil, err
		}
		if IsCoprime(x, n) {
			return x, nil
		}
	}
}

// RandomBit returns a fair random bit.
func RandomBit(rnd io.Reader) (uint, error) {
	var buf [1]byte
	if _, err := io.ReadFull(rnd, buf[:]); err != nil {
		return 0, err
	}
	return uint(buf[0] & 1), nil
}

// RandomBits returns k independent fair random bits.
func RandomBits(rnd io.Reader, k int) ([]uint, error) {
	buf := make([]byte, (k+7)/8)
	if _, err := io.ReadFull(rnd, buf); err != nil {
		return nil, err
	}
	bits := make([]uint, k)
	for i := range bits {
		bits[i] = uint(buf[i/8]>>(uint(i)%8)) & 1
	}
	return bits, nil
}

// ModNeg returns -x mod n in [0, n-1].
func ModNeg(x, n *big.Int) *big.Int {
	r := new(big.Int).Neg(x)
	return r.Mod(r, n)
}

// SignedSquare returns (-1)^sign * r^2 mod n.
func SignedSquare(r *big.Int, sign uint, n *big.Int) *big.Int {
	x := new(big.Int).Exp(r, bigTWO, n)
	if sign == 1 {
		return ModNeg(x, n)
	}
	return x
}

// IsZero reports whether x is zero.
func IsZero(x *big.Int) bool {
	return x.Cmp(bigZERO) == 0
}
