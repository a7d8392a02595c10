package ffskeys

import (
	"encoding/json"
	"testing"

	"github.com/go-errors/errors"
	"github.com/privacybydesign/ffs/big"
	"github.com/privacybydesign/ffs/blumprime"
	"github.com/privacybydesign/ffs/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ints(xs ...int64) []*big.Int {
	r := make([]*big.Int, len(xs))
	for i, x := range xs {
		r[i] = big.NewInt(x)
	}
	return r
}

func TestNewPrivateKeySmall(t *testing.T) {
	sk, err := NewPrivateKey(big.NewInt(187), ints(5, 9), []uint{0, 0})
	require.NoError(t, err)
	require.NoError(t, sk.Validate())
	assert.Equal(t, int64(15), sk.V[0].Int64())
	assert.Equal(t, int64(157), sk.V[1].Int64())

	sk, err = NewPrivateKey(big.NewInt(187), ints(5, 9), []uint{1, 0})
	require.NoError(t, err)
	assert.Equal(t, int64(172), sk.V[0].Int64())
	b, err := sk.Sign(0)
	require.NoError(t, err)
	assert.Equal(t, uint(1), b)
	b, err = sk.Sign(1)
	require.NoError(t, err)
	assert.Equal(t, uint(0), b)
}

func TestNewPrivateKeyInvalid(t *testing.T) {
	n := big.NewInt(187)

	_, err := NewPrivateKey(n, nil, nil)
	require.True(t, errors.Is(err, common.ErrInvalidParameter), "%v", err)

	_, err = NewPrivateKey(n, ints(5, 9), []uint{0})
	require.True(t, errors.Is(err, common.ErrInvalidParameter), "%v", err)

	_, err = NewPrivateKey(n, ints(5), []uint{2})
	require.True(t, errors.Is(err, common.ErrInvalidParameter), "%v", err)

	_, err = NewPrivateKey(n, ints(0), []uint{0})
	require.True(t, errors.Is(err, common.ErrInvalidParameter), "%v", err)

	_, err = NewPrivateKey(n, ints(187), []uint{0})
	require.True(t, errors.Is(err, common.ErrInvalidParameter), "%v", err)

	// 22 shares the factor 11 with n
	_, err = NewPrivateKey(n, ints(22), []uint{0})
	require.True(t, errors.Is(err, common.ErrArithmetic), "%v", err)
}

func TestGenerateKeyPairInvalid(t *testing.T) {
	_, err := GenerateKeyPair(common.NewSeededCPRNG(1), big.NewInt(187), 0)
	require.True(t, errors.Is(err, common.ErrInvalidParameter), "%v", err)

	_, err = GenerateKeyPair(common.NewSeededCPRNG(1), big.NewInt(2), 3)
	require.True(t, errors.Is(err, common.ErrInvalidParameter), "%v", err)
}

func TestGenerateKeyPair(t *testing.T) {
	rnd := common.NewSeededCPRNG(21)
	m, err := blumprime.GenerateModulus(rnd, 128, common.DefaultMaxAttempts(128))
	require.NoError(t, err)

	sk, err := GenerateKeyPair(rnd, m.N, 12)
	require.NoError(t, err)
	require.NoError(t, sk.Validate())
	require.Equal(t, 12, sk.K)

	pk := sk.Public()
	require.NoError(t, pk.Validate())
	require.Equal(t, 0, pk.N.Cmp(m.N))
	require.Equal(t, m.N.BitLen(), pk.BitLen())

	// Public must not share memory with the private key
	pk.V[0].Add(pk.V[0], big.NewInt(1))
	require.NoError(t, sk.Validate())
}

func TestSignMatchesDrawnBit(t *testing.T) {
	rnd := common.NewSeededCPRNG(22)
	m, err := blumprime.GenerateModulus(rnd, 64, common.DefaultMaxAttempts(64))
	require.NoError(t, err)

	for trial := 0; trial < 20; trial++ {
		signs, err := common.RandomBits(rnd, 8)
		require.NoError(t, err)
		s := make([]*big.Int, len(signs))
		for i := range s {
			s[i], err = common.RandomCoprime(rnd, m.N)
			require.NoError(t, err)
		}

		sk, err := NewPrivateKey(m.N, s, signs)
		require.NoError(t, err)
		minusOne := new(big.Int).Sub(m.N, big.NewInt(1))
		for i := range signs {
			prod := new(big.Int).Mul(sk.S[i], sk.S[i])
			prod.Mul(prod, sk.V[i]).Mod(prod, m.N)
			if signs[i] == 0 {
				require.Equal(t, int64(1), prod.Int64())
			} else {
				require.Equal(t, 0, prod.Cmp(minusOne))
			}
			b, err := sk.Sign(i)
			require.NoError(t, err)
			require.Equal(t, signs[i], b)
		}
	}
}

func TestValidateTampered(t *testing.T) {
	sk, err := NewPrivateKey(big.NewInt(187), ints(5, 9), []uint{0, 1})
	require.NoError(t, err)

	sk.V[1] = big.NewInt(4)
	require.True(t, errors.Is(sk.Validate(), common.ErrArithmetic))

	sk.V[1] = big.NewInt(0)
	require.True(t, errors.Is(sk.Validate(), common.ErrInvalidParameter))

	sk.V = sk.V[:1]
	require.True(t, errors.Is(sk.Validate(), common.ErrInvalidParameter))

	pk := &PublicKey{N: big.NewInt(187), K: 1, V: ints(33)}
	require.True(t, errors.Is(pk.Validate(), common.ErrInvalidParameter), "33 is not a unit")
}

func TestJSONRecords(t *testing.T) {
	sk, err := NewPrivateKey(big.NewInt(187), ints(5, 9), []uint{0, 0})
	require.NoError(t, err)

	bts, err := json.Marshal(sk)
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"ffs_private","n":"187","k":2,"s":["5","9"],"v":["15","157"]}`, string(bts))

	bts, err = json.Marshal(sk.Public())
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"ffs_public","n":"187","k":2,"v":["15","157"]}`, string(bts))

	pk, err := NewPublicKeyFromJSON(bts)
	require.NoError(t, err)
	require.Equal(t, int64(157), pk.V[1].Int64())

	// A public record is not a private key, and vice versa
	_, err = NewPrivateKeyFromJSON(bts)
	require.True(t, errors.Is(err, common.ErrInvalidParameter), "%v", err)
	_, err = NewPublicKeyFromJSON([]byte(`{"type":"ffs_private","n":"187","k":1,"s":["5"],"v":["15"]}`))
	require.True(t, errors.Is(err, common.ErrInvalidParameter), "%v", err)
}

func TestJSONNumbersAccepted(t *testing.T) {
	sk, err := NewPrivateKeyFromJSON([]byte(`{"type":"ffs_private","n":187,"k":2,"s":[5,9],"v":[15,157]}`))
	require.NoError(t, err)
	require.Equal(t, int64(9), sk.S[1].Int64())
}

func TestJSONInvalidRecords(t *testing.T) {
	for _, rec := range []string{
		`{"type":"ffs_public","n":"187","k":2,"v":["15"]}`,
		`{"type":"ffs_public","n":"187","k":0,"v":[]}`,
		`{"type":"ffs_public","n":"-187","k":1,"v":["15"]}`,
		`{"type":"ffs_public","n":"187","k":1,"v":["1x5"]}`,
		`{"type":"ffs_public","k":1,"v":["15"]}`,
		`{"n":"187","k":1,"v":["15"]}`,
		`not json`,
	} {
		_, err := NewPublicKeyFromJSON([]byte(rec))
		require.Error(t, err, rec)
	}
}
