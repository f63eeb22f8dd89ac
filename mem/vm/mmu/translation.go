package mmu

import (
	"github.com/sarchlab/pagesim/mem/vm"
	"github.com/sarchlab/pagesim/sim/hooking"
)

// Hook positions of the paging unit.
var (
	// HookPosLoad fires for every block stored by Load. Item is the
	// Translation of the block.
	HookPosLoad = &hooking.HookPos{Name: "Load"}

	// HookPosTranslate fires for every successful Translate. Item is the
	// Translation.
	HookPosTranslate = &hooking.HookPos{Name: "Translate"}

	// HookPosFrameAssign fires when a page number gets its frame. Item is
	// the Translation of the block that touched the page first, Detail is a
	// FrameAssignment.
	HookPosFrameAssign = &hooking.HookPos{Name: "FrameAssign"}
)

// A Translation is the result of walking a logical address through the page
// table.
type Translation struct {
	Format       vm.AddressFormat `json:"-"`
	LogicalAddr  uint64           `json:"logical_addr"`
	PageNumber   uint64           `json:"page_number"`
	Frame        uint64           `json:"frame"`
	PhysicalAddr uint64           `json:"physical_addr"`
	Data         []byte           `json:"data"`

	// Resident is false when nothing is stored at the physical address.
	Resident bool `json:"resident"`
}

// Logical renders the logical address.
func (t Translation) Logical() string {
	return t.Format.FormatAddr(t.LogicalAddr)
}

// Page renders the page number.
func (t Translation) Page() string {
	return t.Format.FormatPage(t.PageNumber)
}

// Offset renders the offset shared by the logical and physical addresses.
func (t Translation) Offset() string {
	return t.Format.FormatOffset(t.LogicalAddr)
}

// Physical renders the physical address.
func (t Translation) Physical() string {
	return t.Format.FormatAddr(t.PhysicalAddr)
}

// A FrameAssignment records that a page number received a frame.
//
// Frames are drawn at random and never checked for uniqueness. Collides is set
// when the frame already backs another page, in which case both pages share
// physical addresses and later writes overwrite earlier ones.
type FrameAssignment struct {
	PageNumber   uint64
	Frame        uint64
	Collides     bool
	CollidesWith uint64
}
