package ffs

import (
	"fmt"

	"github.com/go-errors/errors"

	"github.com/privacybydesign/ffs/big"
	"github.com/privacybydesign/ffs/internal/common"
)

// roundCheck is the verifier's evaluation of a response.
type roundCheck struct {
	z           *big.Int
	zEqualsX    bool
	zEqualsNegX bool
	ok          bool
}

// respond computes y = r * prod_{e_j = 1} s_j mod n.
func respond(n *big.Int, s []*big.Int, r *big.Int, e []uint) *big.Int {
	y := new(big.Int).Mod(r, n)
	for j, ej := range e {
		if ej == 1 {
			y.Mul(y, s[j]).Mod(y, n)
		}
	}
	return y
}

// checkResponse computes z = y^2 * prod_{e_j = 1} v_j mod n and accepts iff z != 0 and z = +-x.
func checkResponse(n *big.Int, v []*big.Int, x *big.Int, e []uint, y *big.Int) *roundCheck {
	z := new(big.Int).Mul(y, y)
	z.Mod(z, n)
	for j, ej := range e {
		if ej == 1 {
			z.Mul(z, v[j]).Mod(z, n)
		}
	}

	c := &roundCheck{
		z:           z,
		zEqualsX:    z.Cmp(x) == 0,
		zEqualsNegX: z.Cmp(common.ModNeg(x, n)) == 0,
	}
	// Zero is a square of everything sharing a factor with n and must never pass
	c.ok = !common.IsZero(z) && (c.zEqualsX || c.zEqualsNegX)
	return c
}

// checkRange fails with ErrProtocol unless 0 <= x < n.
func checkRange(name string, x, n *big.Int) error {
	if x == nil {
		return errors.WrapPrefix(common.ErrProtocol, name+" missing", 0)
	}
	if x.Sign() < 0 || x.Cmp(n) >= 0 {
		return errors.WrapPrefix(common.ErrProtocol, name+" not in [0, n-1]", 0)
	}
	return nil
}

// checkChallenge fails with ErrProtocol unless e consists of exactly k bits.
func checkChallenge(e []uint, k int) error {
	if len(e) != k {
		return errors.WrapPrefix(common.ErrProtocol, fmt.Sprintf("challenge has length %d, expected %d", len(e), k), 0)
	}
	for _, ej := range e {
		if ej > 1 {
			return errors.WrapPrefix(common.ErrProtocol, "challenge entries must be 0 or 1", 0)
		}
	}
	return nil
}

func wrongState(who string, expected, actual RoundState) error {
	return errors.WrapPrefix(common.ErrProtocol, fmt.Sprintf("%s: expected state %s, was %s", who, expected, actual), 0)
}

func wrongRound(who string, expected, actual int) error {
	return errors.WrapPrefix(common.ErrProtocol, fmt.Sprintf("%s: expected round %d, got %d", who, expected, actual), 0)
}
