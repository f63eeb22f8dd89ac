// Package memory provides the physical memory of the simulated machine.
package memory

import (
	"github.com/pkg/errors"
)

// ErrBeyondCapacity is returned when accessing an address the storage cannot
// hold.
var ErrBeyondCapacity = errors.New(
	"accessing physical address beyond the storage capacity")

// An Entry is a block stored at a physical address.
type Entry struct {
	Addr uint64
	Data []byte
}

// A Storage keeps the data blocks of the simulated machine, keyed by physical
// address.
//
// Only addresses that are written consume memory. Writing to an occupied
// address replaces the old block while the address keeps its original
// position in the listing order.
type Storage struct {
	capacity uint64
	data     map[uint64][]byte
	order    []uint64
}

// NewStorage creates a storage object with the specified capacity. A
// capacity of 0 means the whole 64-bit address range.
func NewStorage(capacity uint64) *Storage {
	storage := new(Storage)

	storage.capacity = capacity
	storage.data = make(map[uint64][]byte)

	return storage
}

func (s *Storage) mustBeInRange(address uint64) error {
	if s.capacity != 0 && address >= s.capacity {
		return errors.Wrapf(ErrBeyondCapacity,
			"address 0x%x, capacity 0x%x", address, s.capacity)
	}

	return nil
}

// Capacity returns the number of addressable locations.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

// Read returns the block stored at address. The bool return value indicates
// if anything was ever written there.
func (s *Storage) Read(address uint64) ([]byte, bool) {
	data, ok := s.data[address]
	if !ok {
		return nil, false
	}

	res := make([]byte, len(data))
	copy(res, data)

	return res, true
}

// Write stores a copy of data at address, replacing what was there.
func (s *Storage) Write(address uint64, data []byte) error {
	if err := s.mustBeInRange(address); err != nil {
		return err
	}

	if _, ok := s.data[address]; !ok {
		s.order = append(s.order, address)
	}

	unit := make([]byte, len(data))
	copy(unit, data)
	s.data[address] = unit

	return nil
}

// Len returns the number of occupied addresses.
func (s *Storage) Len() int {
	return len(s.order)
}

// Entries lists the occupied addresses in the order they were first written.
func (s *Storage) Entries() []Entry {
	entries := make([]Entry, 0, len(s.order))
	for _, addr := range s.order {
		data, _ := s.Read(addr)
		entries = append(entries, Entry{Addr: addr, Data: data})
	}

	return entries
}
