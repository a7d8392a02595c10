package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/privacybydesign/ffs"
	"github.com/privacybydesign/ffs/ffskeys"
	"github.com/privacybydesign/ffs/session"
	"github.com/privacybydesign/ffs/wire"
)

// runAsMainEnv makes the test binary behave as the ffs command, so that verify can start it
// as a prover subprocess.
const runAsMainEnv = "FFS_CMD_RUN_MAIN"

func TestMain(m *testing.M) {
	if os.Getenv(runAsMainEnv) == "1" {
		os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
	}
	os.Exit(m.Run())
}

type output struct {
	code           int
	stdout, stderr string
}

func execute(t *testing.T, args ...string) output {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, bytes.NewReader(nil), &stdout, &stderr)
	return output{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

// keygen creates a small key pair named name in a fresh keys directory and returns the directory.
func keygen(t *testing.T, name string, k int) string {
	dir := t.TempDir()
	out := execute(t, "--keys-dir", dir, "keygen", "--name", name, "--bits", "128", "--k", strconv.Itoa(k))
	require.Equal(t, exitAccepted, out.code, out.stderr)
	return dir
}

func TestKeygen(t *testing.T) {
	dir := keygen(t, "alice", 3)
	require.FileExists(t, filepath.Join(dir, "alice_public.json"))
	require.FileExists(t, filepath.Join(dir, "alice_private.json"))

	store, err := ffskeys.NewStore(dir)
	require.NoError(t, err)
	sk, err := store.LoadPrivateKey("alice")
	require.NoError(t, err)
	require.Equal(t, 3, sk.K)
	require.Equal(t, 128, sk.N.BitLen())

	out := execute(t, "--keys-dir", dir, "keygen", "--name", "alice", "--bits", "128")
	require.Equal(t, exitError, out.code)
	require.Contains(t, out.stderr, "already exists")

	out = execute(t, "keygen", "--keys-dir", dir, "--name", "alice", "--bits", "128", "--k", "2", "--force")
	require.Equal(t, exitAccepted, out.code, out.stderr)
	sk, err = store.LoadPrivateKey("alice")
	require.NoError(t, err)
	require.Equal(t, 2, sk.K)
}

func TestKeygenInvalid(t *testing.T) {
	dir := t.TempDir()
	require.Equal(t, exitError, execute(t, "--keys-dir", dir, "keygen", "--bits", "128").code)
	require.Equal(t, exitError, execute(t, "--keys-dir", dir, "keygen", "--name", "a", "--bits", "20").code)
	require.Equal(t, exitError, execute(t, "--keys-dir", dir, "keygen", "--name", "a", "--bits", "128", "--k", "0").code)
	require.Equal(t, exitError, execute(t, "--keys-dir", dir, "keygen", "--name", "a", "extra").code)
	require.False(t, (&ffskeys.Store{Dir: dir}).Exists("a"))
}

func TestAuth(t *testing.T) {
	dir := keygen(t, "alice", 3)

	out := execute(t, "--keys-dir", dir, "auth", "--name", "alice", "--t", "4")
	require.Equal(t, exitAccepted, out.code, out.stderr)
	require.Contains(t, out.stdout, "accepted")

	out = execute(t, "--keys-dir", dir, "auth", "--name", "alice", "--t", "2", "--verbose")
	require.Equal(t, exitAccepted, out.code, out.stderr)
	require.Contains(t, out.stdout, "round=1")
	require.Contains(t, out.stdout, "round=2")

	require.Equal(t, exitError, execute(t, "--keys-dir", dir, "auth", "--name", "bob").code)
	require.Equal(t, exitError, execute(t, "--keys-dir", dir, "auth", "--name", "alice", "--t", "0").code)
}

// replacePublicKey overwrites the public key of name with one over the same modulus but with
// different secrets, so that the real prover no longer matches it.
func replacePublicKey(t *testing.T, dir, name string) {
	store, err := ffskeys.NewStore(dir)
	require.NoError(t, err)
	sk, err := store.LoadPrivateKey(name)
	require.NoError(t, err)
	other, err := ffskeys.GenerateKeyPair(rand.Reader, sk.N, sk.K)
	require.NoError(t, err)
	_, err = other.Public().WriteToFile(store.PublicKeyPath(name), true)
	require.NoError(t, err)
}

func TestVerifyLocal(t *testing.T) {
	dir := keygen(t, "alice", 3)

	for _, codec := range []string{"json", "cbor"} {
		out := execute(t, "--keys-dir", dir, "verify", "--name", "alice", "--t", "4", "--local", "--codec", codec)
		require.Equal(t, exitAccepted, out.code, out.stderr)
		require.Contains(t, out.stdout, "rounds:  4")
		require.Contains(t, out.stdout, "accepted")
	}

	replacePublicKey(t, dir, "alice")
	out := execute(t, "--keys-dir", dir, "verify", "--name", "alice", "--t", "8", "--local")
	require.Equal(t, exitRejected, out.code, out.stderr)
	require.Contains(t, out.stdout, "rejected")
}

func TestVerifyProcess(t *testing.T) {
	t.Setenv(runAsMainEnv, "1")
	dir := keygen(t, "alice", 2)

	for _, codec := range []string{"json", "cbor"} {
		out := execute(t, "--keys-dir", dir, "verify", "--name", "alice", "--t", "3", "--codec", codec)
		require.Equal(t, exitAccepted, out.code, out.stderr)
		require.Contains(t, out.stdout, "accepted")
	}

	// The prover fails to load its key, so no hello ever arrives.
	store, err := ffskeys.NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.Remove(store.PrivateKeyPath("alice")))
	out := execute(t, "--keys-dir", dir, "verify", "--name", "alice", "--t", "3", "--timeout", "5s")
	require.Equal(t, exitError, out.code)
}

func TestVerifyInvalid(t *testing.T) {
	dir := keygen(t, "alice", 2)
	require.Equal(t, exitError, execute(t, "--keys-dir", dir, "verify", "--name", "alice", "--local", "--codec", "xml").code)
	require.Equal(t, exitError, execute(t, "--keys-dir", dir, "verify", "--name", "bob", "--local").code)
	require.Equal(t, exitError, execute(t, "--keys-dir", dir, "verify", "--local").code)
}

func TestProve(t *testing.T) {
	dir := keygen(t, "alice", 3)
	store, err := ffskeys.NewStore(dir)
	require.NoError(t, err)
	pk, err := store.LoadPublicKey("alice")
	require.NoError(t, err)

	toProver, proverIn := io.Pipe()
	proverOut, fromProver := io.Pipe()
	codes := make(chan int, 1)
	go func() {
		var stderr bytes.Buffer
		codes <- run(context.Background(),
			[]string{"--keys-dir", dir, "prove", "--name", "alice", "--t", "5", "--codec", "cbor"},
			toProver, fromProver, &stderr)
		_ = fromProver.Close()
	}()

	conn := wire.NewConn(proverOut, proverIn, nil, wire.WithCodec(wire.CBOR))
	result, err := session.RunVerifier(context.Background(), conn, pk, session.Config{Name: "alice", Rounds: 5})
	require.NoError(t, err)
	require.Equal(t, ffs.OutcomeAccepted, result.Outcome)
	require.Equal(t, exitAccepted, <-codes)
	require.NoError(t, proverIn.Close())
}

func TestAttack(t *testing.T) {
	out := execute(t, "attack", "--bits", "128", "--k", "1", "--t", "2", "--trials", "400", "--workers", "2")
	require.Equal(t, exitAccepted, out.code, out.stderr)
	require.Contains(t, out.stdout, "theoretical: 0.25")

	dir := keygen(t, "alice", 4)
	out = execute(t, "--keys-dir", dir, "attack", "--name", "alice", "--t", "4", "--trials", "100")
	require.Equal(t, exitAccepted, out.code, out.stderr)
	require.Contains(t, out.stdout, "k = 4, t = 4")

	require.Equal(t, exitError, execute(t, "attack", "--bits", "128", "--trials", "0").code)
}

func TestBench(t *testing.T) {
	dir := keygen(t, "alice", 3)
	out := execute(t, "--keys-dir", dir, "bench", "--name", "alice", "--t", "2", "--rsa-bits", "1024", "--runs", "2")
	require.Equal(t, exitAccepted, out.code, out.stderr)
	require.Contains(t, out.stdout, "ffs authenticate")
	require.Contains(t, out.stdout, "rsa sign+verify (1024 bits)")

	require.Equal(t, exitError, execute(t, "--keys-dir", dir, "bench", "--name", "alice", "--runs", "0").code)
}

func TestUsage(t *testing.T) {
	out := execute(t)
	require.Equal(t, exitError, out.code)
	require.Contains(t, out.stderr, "keygen")

	out = execute(t, "sign")
	require.Equal(t, exitError, out.code)
	require.Contains(t, out.stderr, `unknown command "sign"`)

	require.Equal(t, exitAccepted, execute(t, "--help").code)
	require.Equal(t, exitAccepted, execute(t, "auth", "--help").code)
	require.Equal(t, exitError, execute(t, "--log-level", "loud", "auth", "--name", "alice").code)
}
