package blumprime

import (
	"testing"

	"github.com/go-errors/errors"
	"github.com/privacybydesign/ffs/big"
	"github.com/privacybydesign/ffs/internal/common"

	"github.com/stretchr/testify/require"
)

type zeroReader struct{}

func (zeroReader) Read(buf []byte) (int, error) {
	for i := range buf {
		buf[i] = 0
	}
	return len(buf), nil
}

func TestGenerate(t *testing.T) {
	x, err := Generate(common.NewSeededCPRNG(1), 256, common.DefaultMaxAttempts(256))

	require.NoError(t, err)
	require.NotNil(t, x)
	require.Equal(t, 256, x.BitLen())
	require.True(t, x.ProbablyPrime(100), "Generated number was not prime")
	require.True(t, ProbablyBlumPrime(x, 40), "Generated number was not a Blum prime")
}

func TestGenerateModulus(t *testing.T) {
	m, err := GenerateModulus(common.NewSeededCPRNG(2), 128, common.DefaultMaxAttempts(128))
	require.NoError(t, err)
	require.NoError(t, m.Validate())
	require.NotEqual(t, 0, m.P.Cmp(m.Q))
	require.True(t, m.N.BitLen() == 255 || m.N.BitLen() == 256)
}

func TestGenerateModulusExhausted(t *testing.T) {
	// An all-zero stream yields 2^511 + 1 = 1 (mod 4) forever.
	_, err := GenerateModulus(zeroReader{}, 512, 100)
	require.True(t, errors.Is(err, common.ErrGenerationExhausted), "%v", err)
}

func TestGenerateModulusConcurrent(t *testing.T) {
	m, err := GenerateModulusConcurrent(common.NewSeededCPRNG(3), 96)
	require.NoError(t, err)
	require.NoError(t, m.Validate())
}

func TestGenerateModulusConcurrentUsesReader(t *testing.T) {
	_, err := GenerateModulusConcurrent(zeroReader{}, 512)
	require.True(t, errors.Is(err, common.ErrGenerationExhausted), "%v", err)
}

func TestGenerateConcurrentError(t *testing.T) {
	stop := make(chan struct{})
	defer close(stop)
	_, errs := GenerateConcurrent(common.NewSeededCPRNG(4), 8, stop)
	err := <-errs
	require.True(t, errors.Is(err, common.ErrInvalidParameter), "%v", err)
}

func TestValidate(t *testing.T) {
	m := &Modulus{P: big.NewInt(11), Q: big.NewInt(17), N: big.NewInt(187)}
	require.True(t, errors.Is(m.Validate(), common.ErrInvalidParameter), "17 is 1 mod 4")

	m = &Modulus{P: big.NewInt(11), Q: big.NewInt(19), N: big.NewInt(209)}
	require.NoError(t, m.Validate())

	m = &Modulus{P: big.NewInt(11), Q: big.NewInt(11), N: big.NewInt(121)}
	require.Error(t, m.Validate())

	m = &Modulus{P: big.NewInt(11), Q: big.NewInt(19), N: big.NewInt(210)}
	require.Error(t, m.Validate())

	require.False(t, ProbablyBlumPrime(big.NewInt(13), 20))
	require.False(t, ProbablyBlumPrime(big.NewInt(15), 20))
	require.True(t, ProbablyBlumPrime(big.NewInt(23), 20))
}
