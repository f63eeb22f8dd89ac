// Package addressspace splits input data into blocks and assigns each block
// a logical address.
package addressspace

import (
	"github.com/pkg/errors"
	"github.com/sarchlab/pagesim/mem/vm"
)

// A Builder can build the logical mapping of a piece of data.
type Builder struct {
	blockSize  int
	addrLength int
	randSource vm.RandSource
}

// MakeBuilder creates a new builder with 4-byte blocks and 4-digit addresses.
func MakeBuilder() Builder {
	return Builder{
		blockSize:  4,
		addrLength: 4,
	}
}

// WithBlockSize sets the number of bytes in each block.
func (b Builder) WithBlockSize(blockSize int) Builder {
	b.blockSize = blockSize
	return b
}

// WithAddrLength sets the number of hex digits in a logical address.
func (b Builder) WithAddrLength(addrLength int) Builder {
	b.addrLength = addrLength
	return b
}

// WithRandSource sets where the random base address comes from. Without one,
// crypto/rand is used.
func (b Builder) WithRandSource(src vm.RandSource) Builder {
	b.randSource = src
	return b
}

// Build splits data into blocks and assigns consecutive logical addresses,
// starting from a random base and growing by the block size.
//
// At most Capacity() addresses are assigned. If blocks are left over, the
// mapping of the assigned blocks is returned along with a *vm.CapacityError.
func (b Builder) Build(data []byte) (vm.Mapping, error) {
	if b.blockSize < 1 {
		return nil, errors.Wrapf(vm.ErrInvalidBlockSize,
			"block size %d", b.blockSize)
	}

	format, err := vm.NewAddressFormat(b.addrLength)
	if err != nil {
		return nil, err
	}

	blocks := divide(data, b.blockSize)
	if len(blocks) == 0 {
		return vm.Mapping{}, nil
	}

	count := b.numAddressable(format, len(blocks))
	stride := uint64(b.blockSize)
	addr := b.base(format, count)

	m := make(vm.Mapping, 0, count)
	for i := 0; i < count; i++ {
		m = append(m, vm.Block{Addr: addr, Data: blocks[i]})
		addr += stride
	}

	if count < len(blocks) {
		return m, &vm.CapacityError{
			Assigned: count,
			Dropped:  len(blocks) - count,
		}
	}

	return m, nil
}

// numAddressable limits the number of blocks to the page capacity and to
// what fits in the address width without wrapping around.
func (b Builder) numAddressable(format vm.AddressFormat, numBlocks int) int {
	count := numBlocks
	if uint64(count) > format.Capacity() {
		count = int(format.Capacity())
	}

	maxSteps := format.MaxAddr() / uint64(b.blockSize)
	if uint64(count-1) > maxSteps {
		count = int(maxSteps) + 1
	}

	return count
}

// base draws the first address so that the last of count addresses is still
// representable.
func (b Builder) base(format vm.AddressFormat, count int) uint64 {
	src := b.randSource
	if src == nil {
		src = vm.NewCryptoRandSource()
	}

	span := uint64(count-1) * uint64(b.blockSize)
	numBases := format.MaxAddr() - span + 1
	if numBases == 0 {
		return src.Uint64()
	}

	return src.Uint64N(numBases)
}

func divide(data []byte, blockSize int) [][]byte {
	blocks := make([][]byte, 0, (len(data)+blockSize-1)/blockSize)
	for i := 0; i < len(data); i += blockSize {
		end := min(i+blockSize, len(data))
		blocks = append(blocks, data[i:end:end])
	}

	return blocks
}
