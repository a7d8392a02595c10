// Copyright 2016 Maarten Everts. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ffskeys contains the key material of the Feige-Fiat-Shamir identification scheme:
// the private key (s_1..s_k) and the public key (v_1..v_k) over a shared Blum modulus n,
// with v_i = (-1)^b_i * (s_i^2)^-1 mod n for a sign bit b_i fixed at generation time.
package ffskeys

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/go-errors/errors"

	"github.com/privacybydesign/ffs/big"
	"github.com/privacybydesign/ffs/internal/common"
)

type (
	// PublicKey represents the public part of a key pair.
	PublicKey struct {
		N *big.Int   // Modulus n
		K int        // Number of secrets
		V []*big.Int // Public values v_1..v_k
	}

	// PrivateKey represents a key pair. The public values are kept alongside the secrets
	// so that the public key can always be derived from it.
	PrivateKey struct {
		N *big.Int   // Modulus n
		K int        // Number of secrets
		S []*big.Int // Secrets s_1..s_k
		V []*big.Int // Public values v_1..v_k
	}
)

var (
	bigONE   = big.NewInt(1)
	bigTWO   = big.NewInt(2)
	bigTHREE = big.NewInt(3)
)

// GenerateKeyPair draws k secrets s_i uniformly from the units in [2, n-1] and a fair
// sign bit per secret, and computes the corresponding public values.
func GenerateKeyPair(rnd io.Reader, n *big.Int, k int) (*PrivateKey, error) {
	if k < 1 {
		return nil, errors.WrapPrefix(common.ErrInvalidParameter, "k must be at least 1", 0)
	}
	if n == nil || n.Cmp(bigTHREE) < 0 {
		return nil, errors.WrapPrefix(common.ErrInvalidParameter, "modulus must be at least 3", 0)
	}

	s := make([]*big.Int, k)
	signs := make([]uint, k)
	for i := 0; i < k; i++ {
		var err error
		if s[i], err = common.RandomCoprime(rnd, n); err != nil {
			return nil, err
		}
		if signs[i], err = common.RandomBit(rnd); err != nil {
			return nil, err
		}
	}

	return NewPrivateKey(n, s, signs)
}

// NewPrivateKey computes v_i = (-1)^signs[i] * (s_i^2)^-1 mod n for the given secrets.
func NewPrivateKey(n *big.Int, s []*big.Int, signs []uint) (*PrivateKey, error) {
	k := len(s)
	if k < 1 {
		return nil, errors.WrapPrefix(common.ErrInvalidParameter, "k must be at least 1", 0)
	}
	if len(signs) != k {
		return nil, errors.WrapPrefix(common.ErrInvalidParameter, "need exactly one sign bit per secret", 0)
	}
	if n == nil || n.Cmp(bigTHREE) < 0 {
		return nil, errors.WrapPrefix(common.ErrInvalidParameter, "modulus must be at least 3", 0)
	}

	sk := &PrivateKey{
		N: new(big.Int).Set(n),
		K: k,
		S: make([]*big.Int, k),
		V: make([]*big.Int, k),
	}
	for i := 0; i < k; i++ {
		if signs[i] > 1 {
			return nil, errors.WrapPrefix(common.ErrInvalidParameter, "sign bits must be 0 or 1", 0)
		}
		if s[i].Sign() <= 0 || s[i].Cmp(n) >= 0 {
			return nil, errors.WrapPrefix(common.ErrInvalidParameter, fmt.Sprintf("secret %d out of range", i+1), 0)
		}
		sq := new(big.Int).Exp(s[i], bigTWO, n)
		inv, err := common.ModInverse(sq, n)
		if err != nil {
			return nil, errors.WrapPrefix(err, fmt.Sprintf("secret %d", i+1), 0)
		}
		if signs[i] == 1 {
			inv = common.ModNeg(inv, n)
		}
		sk.S[i] = new(big.Int).Set(s[i])
		sk.V[i] = inv
	}
	return sk, nil
}

// Public returns the public key belonging to sk. It shares no memory with sk.
func (sk *PrivateKey) Public() *PublicKey {
	pk := &PublicKey{
		N: new(big.Int).Set(sk.N),
		K: sk.K,
		V: make([]*big.Int, len(sk.V)),
	}
	for i, v := range sk.V {
		pk.V[i] = new(big.Int).Set(v)
	}
	return pk
}

// Sign recovers the sign bit b_i of entry i (0-based): 0 if v_i*s_i^2 = 1 (mod n), and
// 1 if v_i*s_i^2 = -1 (mod n).
func (sk *PrivateKey) Sign(i int) (uint, error) {
	if i < 0 || i >= len(sk.S) || i >= len(sk.V) {
		return 0, errors.WrapPrefix(common.ErrInvalidParameter, "index out of range", 0)
	}
	prod := new(big.Int).Mul(sk.S[i], sk.S[i])
	prod.Mul(prod, sk.V[i]).Mod(prod, sk.N)
	if prod.Cmp(bigONE) == 0 {
		return 0, nil
	}
	if prod.Cmp(new(big.Int).Sub(sk.N, bigONE)) == 0 {
		return 1, nil
	}
	return 0, errors.WrapPrefix(common.ErrArithmetic, fmt.Sprintf("v_%d * s_%d^2 is not +-1 mod n", i+1, i+1), 0)
}

// BitLen returns the bit length of the modulus.
func (pk *PublicKey) BitLen() int {
	return pk.N.BitLen()
}

// Validate checks the structure of the public key: k >= 1, k public values, each of
// them a unit modulo n.
func (pk *PublicKey) Validate() error {
	if pk.N == nil || pk.N.Cmp(bigTHREE) < 0 {
		return errors.WrapPrefix(common.ErrInvalidParameter, "modulus missing or too small", 0)
	}
	if pk.K < 1 {
		return errors.WrapPrefix(common.ErrInvalidParameter, "k must be at least 1", 0)
	}
	return validateUnits(pk.N, pk.K, pk.V, "v")
}

// Validate checks the private key invariants: the public part is valid, every s_i is a unit
// modulo n and v_i*s_i^2 = +-1 (mod n).
func (sk *PrivateKey) Validate() error {
	if err := (&PublicKey{N: sk.N, K: sk.K, V: sk.V}).Validate(); err != nil {
		return err
	}
	if err := validateUnits(sk.N, sk.K, sk.S, "s"); err != nil {
		return err
	}
	for i := 0; i < sk.K; i++ {
		if _, err := sk.Sign(i); err != nil {
			return err
		}
	}
	return nil
}

func validateUnits(n *big.Int, k int, xs []*big.Int, name string) error {
	if len(xs) != k {
		return errors.WrapPrefix(common.ErrInvalidParameter, fmt.Sprintf("expected %d values for %s, got %d", k, name, len(xs)), 0)
	}
	for i, x := range xs {
		if x == nil || x.Sign() <= 0 || x.Cmp(n) >= 0 {
			return errors.WrapPrefix(common.ErrInvalidParameter, fmt.Sprintf("%s_%d out of range", name, i+1), 0)
		}
		if !common.IsCoprime(x, n) {
			return errors.WrapPrefix(common.ErrInvalidParameter, fmt.Sprintf("%s_%d is not invertible modulo n", name, i+1), 0)
		}
	}
	return nil
}

// NewPrivateKeyFromJSON parses and validates a private key record.
func NewPrivateKeyFromJSON(bts []byte) (*PrivateKey, error) {
	sk := &PrivateKey{}
	if err := json.Unmarshal(bts, sk); err != nil {
		return nil, err
	}
	if err := sk.Validate(); err != nil {
		return nil, err
	}
	return sk, nil
}

// NewPublicKeyFromJSON parses and validates a public key record.
func NewPublicKeyFromJSON(bts []byte) (*PublicKey, error) {
	pk := &PublicKey{}
	if err := json.Unmarshal(bts, pk); err != nil {
		return nil, err
	}
	if err := pk.Validate(); err != nil {
		return nil, err
	}
	return pk, nil
}

// NewPrivateKeyFromFile reads a private key from a JSON file.
func NewPrivateKeyFromFile(filename string) (*PrivateKey, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return NewPrivateKeyFromJSON(b)
}

// NewPublicKeyFromFile reads a public key from a JSON file.
func NewPublicKeyFromFile(filename string) (*PublicKey, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return NewPublicKeyFromJSON(b)
}

// WriteTo writes the JSON-serialized private key to the given writer.
func (sk *PrivateKey) WriteTo(writer io.Writer) (int64, error) {
	return writeJSON(writer, sk)
}

// WriteTo writes the JSON-serialized public key to the given writer.
func (pk *PublicKey) WriteTo(writer io.Writer) (int64, error) {
	return writeJSON(writer, pk)
}

// WriteToFile writes the private key to a JSON file readable only by the owner. If any
// existing file with the same filename should be overwritten, set forceOverwrite to true.
func (sk *PrivateKey) WriteToFile(filename string, forceOverwrite bool) (int64, error) {
	return writeFile(filename, forceOverwrite, 0600, sk)
}

// WriteToFile writes the public key to a JSON file. If any existing file with
// the same filename should be overwritten, set forceOverwrite to true.
func (pk *PublicKey) WriteToFile(filename string, forceOverwrite bool) (int64, error) {
	return writeFile(filename, forceOverwrite, 0644, pk)
}

func writeJSON(writer io.Writer, v interface{}) (int64, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return 0, err
	}
	n, err := writer.Write(append(b, '\n'))
	return int64(n), err
}

func writeFile(filename string, forceOverwrite bool, perm os.FileMode, v interface{}) (int64, error) {
	var f *os.File
	var err error
	if forceOverwrite {
		f, err = os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, perm)
	} else {
		// This should return an error if the file already exists
		f, err = os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_EXCL, perm)
	}
	if err != nil {
		return 0, err
	}
	defer common.Close(f)

	return writeJSON(f, v)
}
