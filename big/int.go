// Package big wraps "math/big".Int in a type that is written as a decimal string in JSON and
// text encodings. Moduli and key values are far larger than any JSON number a consumer can be
// expected to parse exactly, so they travel as strings.
package big

import (
	"crypto/rand"
	"encoding/json"
	"io"
	"math/big"

	"github.com/go-errors/errors"
)

// Int is a "math/big".Int with decimal text marshaling. Only nonnegative values can be
// marshaled; every value of the protocol is a residue modulo n.
type Int big.Int

func NewInt(x int64) *Int { return (*Int)(big.NewInt(x)) }

// Convert reinterprets a "math/big".Int as an Int without copying.
func Convert(x *big.Int) *Int { return (*Int)(x) }

// RandInt returns a uniform random value in [0, max) read from rnd. It panics if max <= 0.
func RandInt(rnd io.Reader, max *Int) (*Int, error) {
	x, err := rand.Int(rnd, max.Go())
	return Convert(x), err
}

// Go returns i as a "math/big".Int sharing the same storage.
func (i *Int) Go() *big.Int { return (*big.Int)(i) }

// MarshalText writes i in base 10.
func (i *Int) MarshalText() ([]byte, error) {
	if i.Sign() < 0 {
		return nil, errors.New("negative integers cannot be marshaled")
	}
	return []byte(i.String()), nil
}

// UnmarshalText accepts the canonical decimal form of a nonnegative integer and nothing else:
// no sign, no base prefix, no leading zeros and no surrounding space.
func (i *Int) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		return errors.New("empty integer")
	}
	if len(b) > 1 && b[0] == '0' {
		return errors.Errorf("leading zero in integer %q", b)
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return errors.Errorf("not a decimal integer: %q", b)
		}
	}
	if _, ok := i.Go().SetString(string(b), 10); !ok {
		return errors.Errorf("not a decimal integer: %q", b)
	}
	return nil
}

// UnmarshalJSON accepts a decimal string as well as a plain JSON number.
func (i *Int) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		return i.UnmarshalText([]byte(s))
	}
	if err := json.Unmarshal(b, i.Go()); err != nil {
		return err
	}
	if i.Sign() < 0 {
		return errors.New("negative integers are not supported")
	}
	return nil
}

// The subset of the "math/big".Int API used by this module.

func (i *Int) String() string           { return i.Go().String() }
func (i *Int) Sign() int                { return i.Go().Sign() }
func (i *Int) Cmp(y *Int) int           { return i.Go().Cmp(y.Go()) }
func (i *Int) BitLen() int              { return i.Go().BitLen() }
func (i *Int) Bit(j int) uint           { return i.Go().Bit(j) }
func (i *Int) Bytes() []byte            { return i.Go().Bytes() }
func (i *Int) Int64() int64             { return i.Go().Int64() }
func (i *Int) Uint64() uint64           { return i.Go().Uint64() }
func (i *Int) IsUint64() bool           { return i.Go().IsUint64() }
func (i *Int) ProbablyPrime(n int) bool { return i.Go().ProbablyPrime(n) }

func (i *Int) Set(x *Int) *Int             { return Convert(i.Go().Set(x.Go())) }
func (i *Int) SetUint64(x uint64) *Int     { return Convert(i.Go().SetUint64(x)) }
func (i *Int) SetBytes(buf []byte) *Int    { return Convert(i.Go().SetBytes(buf)) }
func (i *Int) SetBit(x *Int, j int, b uint) *Int {
	return Convert(i.Go().SetBit(x.Go(), j, b))
}
func (i *Int) SetString(s string, base int) (*Int, bool) {
	z, ok := i.Go().SetString(s, base)
	return Convert(z), ok
}

func (i *Int) Add(x, y *Int) *Int       { return Convert(i.Go().Add(x.Go(), y.Go())) }
func (i *Int) Sub(x, y *Int) *Int       { return Convert(i.Go().Sub(x.Go(), y.Go())) }
func (i *Int) Neg(x *Int) *Int          { return Convert(i.Go().Neg(x.Go())) }
func (i *Int) Mul(x, y *Int) *Int       { return Convert(i.Go().Mul(x.Go(), y.Go())) }
func (i *Int) Mod(x, y *Int) *Int       { return Convert(i.Go().Mod(x.Go(), y.Go())) }
func (i *Int) Lsh(x *Int, n uint) *Int  { return Convert(i.Go().Lsh(x.Go(), n)) }
func (i *Int) Rsh(x *Int, n uint) *Int  { return Convert(i.Go().Rsh(x.Go(), n)) }
func (i *Int) Exp(x, y, m *Int) *Int    { return Convert(i.Go().Exp(x.Go(), y.Go(), m.Go())) }
func (i *Int) GCD(x, y, a, b *Int) *Int {
	return Convert(i.Go().GCD(x.Go(), y.Go(), a.Go(), b.Go()))
}
