package vm

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// A RandSource provides the randomness used for base addresses and frames.
type RandSource interface {
	// Uint64 returns a uniformly distributed value over the full range.
	Uint64() uint64

	// Uint64N returns a uniformly distributed value in [0, n). n must be
	// positive.
	Uint64N(n uint64) uint64
}

// NewCryptoRandSource returns a RandSource backed by crypto/rand.
func NewCryptoRandSource() RandSource {
	return rand.New(cryptoSource{})
}

// NewSeededRandSource returns a reproducible RandSource.
func NewSeededRandSource(seed uint64) RandSource {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

type cryptoSource struct{}

func (cryptoSource) Uint64() uint64 {
	var b [8]byte

	_, err := crand.Read(b[:])
	if err != nil {
		panic(err)
	}

	return binary.LittleEndian.Uint64(b[:])
}
