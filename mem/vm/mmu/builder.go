package mmu

import (
	"github.com/pkg/errors"
	"github.com/sarchlab/pagesim/mem/vm"
	"github.com/sarchlab/pagesim/memory"
	"github.com/sarchlab/pagesim/sim/naming"
)

// A Builder can build paging units.
type Builder struct {
	addrLength int
	blockSize  int
	randSource vm.RandSource
	pageTable  vm.PageTable
	storage    *memory.Storage
}

// MakeBuilder creates a new builder for 4-digit addresses and 4-byte blocks.
func MakeBuilder() Builder {
	return Builder{
		addrLength: 4,
		blockSize:  4,
	}
}

// WithAddrLength sets the number of hex digits in an address. The page
// number field gets all but the last two digits.
func (b Builder) WithAddrLength(addrLength int) Builder {
	b.addrLength = addrLength
	return b
}

// WithBlockSize sets the number of bytes stored at each logical address.
func (b Builder) WithBlockSize(blockSize int) Builder {
	b.blockSize = blockSize
	return b
}

// WithRandSource sets the source of base addresses and frames.
func (b Builder) WithRandSource(src vm.RandSource) Builder {
	b.randSource = src
	return b
}

// WithPageTable sets the page table that the paging unit uses. Units may
// share a page table, but they must not load concurrently: each unit looks a
// page up and inserts it under its own lock, so two units assigning the same
// page at once panic on the second insert.
func (b Builder) WithPageTable(pageTable vm.PageTable) Builder {
	b.pageTable = pageTable
	return b
}

// WithStorage sets the physical memory that the paging unit writes to.
func (b Builder) WithStorage(storage *memory.Storage) Builder {
	b.storage = storage
	return b
}

// Build returns a newly created paging unit. It panics if the name, the
// address length or the block size is invalid.
func (b Builder) Build(name string) *Comp {
	format := vm.MustNewAddressFormat(b.addrLength)

	if b.blockSize < 1 {
		panic(errors.Wrapf(vm.ErrInvalidBlockSize, "block size %d", b.blockSize))
	}

	c := &Comp{
		NamedBase:   naming.MakeNamedBase(name),
		format:      format,
		blockSize:   b.blockSize,
		randSource:  b.randSource,
		known:       make(map[uint64]struct{}),
		frameOwners: make(map[uint64]uint64),
	}

	if c.randSource == nil {
		c.randSource = vm.NewCryptoRandSource()
	}

	b.createPageTable(c)
	b.createStorage(c)

	return c
}

func (b Builder) createPageTable(c *Comp) {
	if b.pageTable == nil {
		c.pageTable = vm.NewPageTable()
		return
	}

	c.pageTable = b.pageTable
	for _, page := range b.pageTable.Pages() {
		c.frameOwners[page.Frame] = page.PageNum
	}
}

func (b Builder) createStorage(c *Comp) {
	if b.storage == nil {
		c.storage = memory.NewStorage(c.format.AddrSpaceSize())
		return
	}

	b.storageMustCoverAddressSpace(c.format)
	c.storage = b.storage
}

func (b Builder) storageMustCoverAddressSpace(format vm.AddressFormat) {
	capacity := b.storage.Capacity()
	if capacity == 0 {
		return
	}

	if format.AddrSpaceSize() == 0 || capacity < format.AddrSpaceSize() {
		panic("storage capacity does not cover the physical address space")
	}
}

// NewPagingUnit creates a paging unit with crypto-random frames. It panics if
// addrLength is smaller than 3.
func NewPagingUnit(addrLength, blockSize int) *Comp {
	return MakeBuilder().
		WithAddrLength(addrLength).
		WithBlockSize(blockSize).
		Build("PagingUnit")
}
