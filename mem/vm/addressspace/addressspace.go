package addressspace

import "github.com/sarchlab/pagesim/mem/vm"

// Build creates the logical mapping of data with crypto-random base address.
func Build(data []byte, blockSize, addrLength int) (vm.Mapping, error) {
	return MakeBuilder().
		WithBlockSize(blockSize).
		WithAddrLength(addrLength).
		Build(data)
}
