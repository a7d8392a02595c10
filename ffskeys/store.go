package ffskeys

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-errors/errors"

	"github.com/privacybydesign/ffs/internal/common"
)

// DefaultKeysDir is the directory used by the command line tool when none is configured.
const DefaultKeysDir = "keys"

// Store keeps named key pairs in a directory, as <name>_public.json and <name>_private.json.
type Store struct {
	Dir string
}

// NewStore returns a store in dir, creating the directory if necessary.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = DefaultKeysDir
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.WrapPrefix(err, "failed to create keys directory", 0)
	}
	return &Store{Dir: dir}, nil
}

func (s *Store) PublicKeyPath(name string) string {
	return filepath.Join(s.Dir, name+"_public.json")
}

func (s *Store) PrivateKeyPath(name string) string {
	return filepath.Join(s.Dir, name+"_private.json")
}

// Exists reports whether either file of the named key pair is present.
func (s *Store) Exists(name string) bool {
	for _, p := range []string{s.PublicKeyPath(name), s.PrivateKeyPath(name)} {
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}
	return false
}

// Save writes both records of the key pair. Unless forceOverwrite is set it refuses to
// touch an existing key pair of the same name.
func (s *Store) Save(name string, sk *PrivateKey, forceOverwrite bool) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := sk.Validate(); err != nil {
		return err
	}
	if !forceOverwrite && s.Exists(name) {
		return errors.Errorf("key pair %s already exists in %s", name, s.Dir)
	}
	if _, err := sk.WriteToFile(s.PrivateKeyPath(name), forceOverwrite); err != nil {
		return err
	}
	_, err := sk.Public().WriteToFile(s.PublicKeyPath(name), forceOverwrite)
	return err
}

// LoadPrivateKey reads and validates the named private key.
func (s *Store) LoadPrivateKey(name string) (*PrivateKey, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	sk, err := NewPrivateKeyFromFile(s.PrivateKeyPath(name))
	if err != nil {
		return nil, errors.WrapPrefix(err, "private key "+name, 0)
	}
	return sk, nil
}

// LoadPublicKey reads and validates the named public key.
func (s *Store) LoadPublicKey(name string) (*PublicKey, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	pk, err := NewPublicKeyFromFile(s.PublicKeyPath(name))
	if err != nil {
		return nil, errors.WrapPrefix(err, "public key "+name, 0)
	}
	return pk, nil
}

func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return errors.WrapPrefix(common.ErrInvalidParameter, "invalid key name "+quote(name), 0)
	}
	return nil
}
