package ffskeys

import (
	"encoding/json"

	"github.com/go-errors/errors"

	"github.com/privacybydesign/ffs/big"
	"github.com/privacybydesign/ffs/internal/common"
)

// Values of the "type" field that identify a key record.
const (
	PublicKeyType  = "ffs_public"
	PrivateKeyType = "ffs_private"
)

// Helper structs for (un)marshaling. Integers are encoded as decimal strings by big.Int.
type (
	publicRecord struct {
		Type string     `json:"type"`
		N    *big.Int   `json:"n"`
		K    int        `json:"k"`
		V    []*big.Int `json:"v"`
	}

	privateRecord struct {
		Type string     `json:"type"`
		N    *big.Int   `json:"n"`
		K    int        `json:"k"`
		S    []*big.Int `json:"s"`
		V    []*big.Int `json:"v"`
	}
)

// MarshalJSON encodes the public key as a typed record.
func (pk *PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(publicRecord{Type: PublicKeyType, N: pk.N, K: pk.K, V: pk.V})
}

// UnmarshalJSON decodes a typed public key record. Records of another type are refused.
func (pk *PublicKey) UnmarshalJSON(b []byte) error {
	var r publicRecord
	if err := json.Unmarshal(b, &r); err != nil {
		return err
	}
	if r.Type != PublicKeyType {
		return errors.WrapPrefix(common.ErrInvalidParameter, "not a public key record: type "+quote(r.Type), 0)
	}
	*pk = PublicKey{N: r.N, K: r.K, V: r.V}
	return nil
}

// MarshalJSON encodes the private key as a typed record.
func (sk *PrivateKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(privateRecord{Type: PrivateKeyType, N: sk.N, K: sk.K, S: sk.S, V: sk.V})
}

// UnmarshalJSON decodes a typed private key record. Records of another type are refused.
func (sk *PrivateKey) UnmarshalJSON(b []byte) error {
	var r privateRecord
	if err := json.Unmarshal(b, &r); err != nil {
		return err
	}
	if r.Type != PrivateKeyType {
		return errors.WrapPrefix(common.ErrInvalidParameter, "not a private key record: type "+quote(r.Type), 0)
	}
	*sk = PrivateKey{N: r.N, K: r.K, S: r.S, V: r.V}
	return nil
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
