package ffskeys

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-errors/errors"
	"github.com/privacybydesign/ffs/big"
	"github.com/privacybydesign/ffs/blumprime"
	"github.com/privacybydesign/ffs/internal/common"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip2048(t *testing.T) {
	rnd := common.NewSeededCPRNG(2048)
	m, err := blumprime.GenerateModulus(rnd, 1024, common.DefaultMaxAttempts(1024))
	require.NoError(t, err)
	require.GreaterOrEqual(t, m.N.BitLen(), 2047)

	sk, err := GenerateKeyPair(rnd, m.N, 16)
	require.NoError(t, err)

	store, err := NewStore(filepath.Join(t.TempDir(), "keys"))
	require.NoError(t, err)
	require.NoError(t, store.Save("alice", sk, false))

	loaded, err := store.LoadPrivateKey("alice")
	require.NoError(t, err)
	require.Equal(t, 0, loaded.N.Cmp(sk.N))
	require.Equal(t, sk.K, loaded.K)
	for i := 0; i < sk.K; i++ {
		require.Equal(t, sk.S[i].Bytes(), loaded.S[i].Bytes())
		require.Equal(t, sk.V[i].Bytes(), loaded.V[i].Bytes())
	}

	pk, err := store.LoadPublicKey("alice")
	require.NoError(t, err)
	require.Equal(t, sk.N.Bytes(), pk.N.Bytes())
	for i := 0; i < sk.K; i++ {
		require.Equal(t, 0, pk.V[i].Cmp(sk.V[i]))
	}
}

func TestStoreFileModes(t *testing.T) {
	sk, err := NewPrivateKey(big.NewInt(187), ints(5, 9), []uint{0, 1})
	require.NoError(t, err)
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Save("bob", sk, false))

	info, err := os.Stat(store.PrivateKeyPath("bob"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	_, err = os.Stat(store.PublicKeyPath("bob"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(store.Dir, "bob_public.json"), store.PublicKeyPath("bob"))
}

func TestStoreOverwrite(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	first, err := NewPrivateKey(big.NewInt(187), ints(5, 9), []uint{0, 0})
	require.NoError(t, err)
	second, err := NewPrivateKey(big.NewInt(187), ints(2, 3), []uint{1, 1})
	require.NoError(t, err)

	require.NoError(t, store.Save("carol", first, false))
	require.Error(t, store.Save("carol", second, false))

	loaded, err := store.LoadPrivateKey("carol")
	require.NoError(t, err)
	require.Equal(t, int64(5), loaded.S[0].Int64())

	require.NoError(t, store.Save("carol", second, true))
	loaded, err = store.LoadPrivateKey("carol")
	require.NoError(t, err)
	require.Equal(t, int64(2), loaded.S[0].Int64())
}

func TestStoreRejectsWrongRecord(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	sk, err := NewPrivateKey(big.NewInt(187), ints(5), []uint{0})
	require.NoError(t, err)

	// A private record in place of the public one
	_, err = sk.WriteToFile(store.PublicKeyPath("dave"), false)
	require.NoError(t, err)
	_, err = store.LoadPublicKey("dave")
	require.True(t, errors.Is(err, common.ErrInvalidParameter), "%v", err)

	_, err = store.LoadPrivateKey("nobody")
	require.Error(t, err)
}

func TestStoreInvalidNames(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	sk, err := NewPrivateKey(big.NewInt(187), ints(5), []uint{0})
	require.NoError(t, err)

	for _, name := range []string{"", ".", "..", "a/b", `a\b`} {
		require.True(t, errors.Is(store.Save(name, sk, false), common.ErrInvalidParameter), name)
		_, err = store.LoadPublicKey(name)
		require.True(t, errors.Is(err, common.ErrInvalidParameter), name)
	}
}
