// Package mmu provides the paging unit, which owns the page table and the
// physical memory and translates logical addresses into physical ones.
package mmu

import (
	"bytes"
	"sync"

	"github.com/pkg/errors"
	"github.com/sarchlab/pagesim/mem/vm"
	"github.com/sarchlab/pagesim/mem/vm/addressspace"
	"github.com/sarchlab/pagesim/memory"
	"github.com/sarchlab/pagesim/sim/hooking"
	"github.com/sarchlab/pagesim/sim/naming"
)

// Comp is the paging unit.
//
// A page number receives a random frame the first time a block on that page
// is loaded and keeps it for the lifetime of the unit. Hooks are invoked
// after the unit releases its lock, so they may call back into the unit.
type Comp struct {
	naming.NamedBase
	hooking.HookableBase

	lock sync.Mutex

	format     vm.AddressFormat
	blockSize  int
	randSource vm.RandSource
	pageTable  vm.PageTable
	storage    *memory.Storage

	logicalAddrs []uint64
	known        map[uint64]struct{}
	frameOwners  map[uint64]uint64
}

// Format returns the address format of the paging unit.
func (c *Comp) Format() vm.AddressFormat {
	return c.format
}

// BlockSize returns the number of bytes stored at each logical address.
func (c *Comp) BlockSize() int {
	return c.blockSize
}

// PageTable returns the page table of the paging unit.
func (c *Comp) PageTable() vm.PageTable {
	return c.pageTable
}

// PhysicalMemory returns the physical memory of the paging unit. Use
// PhysicalEntries when the unit may be loading concurrently.
func (c *Comp) PhysicalMemory() *memory.Storage {
	return c.storage
}

// PhysicalEntries lists the occupied physical addresses.
func (c *Comp) PhysicalEntries() []memory.Entry {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.storage.Entries()
}

// LogicalAddresses returns every loaded logical address in load order.
// Addresses loaded more than once appear more than once.
func (c *Comp) LogicalAddresses() []uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	addrs := make([]uint64, len(c.logicalAddrs))
	copy(addrs, c.logicalAddrs)

	return addrs
}

// LoadData splits data into blocks, assigns logical addresses and loads them.
// When not all blocks can be addressed, the addressed ones are still loaded
// and a *vm.CapacityError is returned.
func (c *Comp) LoadData(data []byte) error {
	m, err := addressspace.MakeBuilder().
		WithBlockSize(c.blockSize).
		WithAddrLength(c.format.AddrLength).
		WithRandSource(c.randSource).
		Build(data)
	if err != nil && !errors.Is(err, vm.ErrCapacityReached) {
		return err
	}

	c.Load(m)

	return err
}

// Load stores the blocks of a logical mapping into physical memory.
func (c *Comp) Load(m vm.Mapping) {
	for _, ctx := range c.loadBlocks(m) {
		c.InvokeHook(ctx)
	}
}

func (c *Comp) loadBlocks(m vm.Mapping) []hooking.HookCtx {
	c.lock.Lock()
	defer c.lock.Unlock()

	events := make([]hooking.HookCtx, 0, len(m))
	for _, block := range m {
		events = c.loadBlock(block, events)
	}

	return events
}

func (c *Comp) loadBlock(
	block vm.Block,
	events []hooking.HookCtx,
) []hooking.HookCtx {
	c.addrMustFit(block.Addr)

	pageNum := c.format.PageNumber(block.Addr)
	page, found := c.pageTable.Find(pageNum)

	var assignment *FrameAssignment
	if !found {
		page, assignment = c.assignFrame(pageNum)
	}

	pAddr := c.format.Compose(page.Frame, block.Addr)
	err := c.storage.Write(pAddr, block.Data)
	if err != nil {
		panic(err)
	}

	c.logicalAddrs = append(c.logicalAddrs, block.Addr)
	c.known[block.Addr] = struct{}{}

	t := Translation{
		Format:       c.format,
		LogicalAddr:  block.Addr,
		PageNumber:   pageNum,
		Frame:        page.Frame,
		PhysicalAddr: pAddr,
		Data:         block.Data,
		Resident:     true,
	}

	if assignment != nil {
		events = append(events, hooking.HookCtx{
			Domain: c,
			Pos:    HookPosFrameAssign,
			Item:   t,
			Detail: *assignment,
		})
	}

	return append(events, hooking.HookCtx{
		Domain: c,
		Pos:    HookPosLoad,
		Item:   t,
	})
}

func (c *Comp) addrMustFit(addr uint64) {
	if addr > c.format.MaxAddr() {
		panic("logical address exceeds the address width")
	}
}

func (c *Comp) assignFrame(pageNum uint64) (vm.Page, *FrameAssignment) {
	page := vm.Page{
		PageNum: pageNum,
		Frame:   c.randSource.Uint64N(c.format.Capacity()),
	}
	c.pageTable.Insert(page)

	assignment := &FrameAssignment{
		PageNumber: pageNum,
		Frame:      page.Frame,
	}

	owner, used := c.frameOwners[page.Frame]
	if used {
		assignment.Collides = true
		assignment.CollidesWith = owner
	} else {
		c.frameOwners[page.Frame] = pageNum
	}

	return page, assignment
}

// Translate looks up the block stored for a logical address. The address is
// hex, with or without the 0x prefix.
//
// Addresses that were never loaded, including malformed ones, produce an
// error matching vm.ErrAddressNotFound. A loaded address whose physical
// location holds nothing is not an error; the Translation is then not
// Resident.
func (c *Comp) Translate(addr string) (Translation, error) {
	lAddr, err := c.format.ParseAddr(addr)
	if err != nil {
		return Translation{}, errors.Wrap(vm.ErrAddressNotFound, err.Error())
	}

	t, known := c.translateKnown(lAddr)
	if !known {
		return Translation{}, errors.Wrapf(vm.ErrAddressNotFound,
			"%s", c.format.FormatAddr(lAddr))
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosTranslate,
		Item:   t,
	})

	return t, nil
}

func (c *Comp) translateKnown(lAddr uint64) (Translation, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if _, known := c.known[lAddr]; !known {
		return Translation{}, false
	}

	return c.translate(lAddr), true
}

// TranslateAll translates every loaded logical address in load order.
func (c *Comp) TranslateAll() []Translation {
	c.lock.Lock()
	defer c.lock.Unlock()

	ts := make([]Translation, 0, len(c.logicalAddrs))
	for _, lAddr := range c.logicalAddrs {
		ts = append(ts, c.translate(lAddr))
	}

	return ts
}

// Concatenate joins the blocks of all loaded logical addresses in load order.
// Without capacity truncation or frame collisions, this reproduces the loaded
// data.
func (c *Comp) Concatenate() []byte {
	var buf bytes.Buffer

	for _, t := range c.TranslateAll() {
		buf.Write(t.Data)
	}

	return buf.Bytes()
}

func (c *Comp) translate(lAddr uint64) Translation {
	pageNum := c.format.PageNumber(lAddr)

	page, found := c.pageTable.Find(pageNum)
	if !found {
		panic(errors.Wrapf(vm.ErrInconsistentPageTable,
			"no frame for page %s", c.format.FormatPage(pageNum)))
	}

	pAddr := c.format.Compose(page.Frame, lAddr)
	data, resident := c.storage.Read(pAddr)

	return Translation{
		Format:       c.format,
		LogicalAddr:  lAddr,
		PageNumber:   pageNum,
		Frame:        page.Frame,
		PhysicalAddr: pAddr,
		Data:         data,
		Resident:     resident,
	}
}
