package common

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"sync/atomic"
)

// CPRNG is a deterministic, cryptographically secure io.Reader: AES in counter mode, keyed
// with a 32 byte seed. Two CPRNGs with the same seed produce the same stream. It is safe for
// concurrent use; concurrent readers receive disjoint parts of the stream.
type CPRNG struct {
	block   cipher.Block
	counter uint64
}

// NewCPRNG returns a CPRNG keyed with seed.
func NewCPRNG(seed *[32]byte) (*CPRNG, error) {
	block, err := aes.NewCipher(seed[:])
	if err != nil {
		return nil, err
	}
	return &CPRNG{block: block}, nil
}

// Read fills buf with the next len(buf) bytes of the key stream, rounded up to whole blocks;
// the unused tail of the last block is discarded. It never fails.
func (c *CPRNG) Read(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	blocks := uint64((len(buf) + aes.BlockSize - 1) / aes.BlockSize)
	ctr := atomic.AddUint64(&c.counter, blocks) - blocks

	var in, out [aes.BlockSize]byte
	for off := 0; off < len(buf); off += aes.BlockSize {
		binary.LittleEndian.PutUint64(in[:], ctr)
		ctr++
		c.block.Encrypt(out[:], in[:])
		copy(buf[off:], out[:])
	}
	return len(buf), nil
}

// NewSeededCPRNG returns a CPRNG keyed with seed repeated to 32 bytes. For tests and
// reproducible runs only.
func NewSeededCPRNG(seed uint64) *CPRNG {
	var key [32]byte
	for off := 0; off < len(key); off += 8 {
		binary.LittleEndian.PutUint64(key[off:], seed)
	}
	c, err := NewCPRNG(&key)
	if err != nil {
		panic(fmt.Sprintf("common: AES rejected a 32 byte key: %v", err))
	}
	return c
}
