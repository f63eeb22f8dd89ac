package vm

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds reported by the address space and the paging unit.
var (
	// ErrInvalidAddressWidth is returned when an address length leaves no
	// room for the page number field.
	ErrInvalidAddressWidth = errors.New("invalid address width")

	// ErrInvalidBlockSize is returned when the block size is not positive.
	ErrInvalidBlockSize = errors.New("invalid block size")

	// ErrCapacityReached reports that some blocks did not get a logical
	// address. It is not fatal.
	ErrCapacityReached = errors.New("page capacity reached")

	// ErrAddressNotFound is returned when translating an address that was
	// never loaded.
	ErrAddressNotFound = errors.New("logical address not found")

	// ErrInconsistentPageTable means a loaded address has no page table
	// entry. Only a bug can cause it.
	ErrInconsistentPageTable = errors.New("inconsistent page table")
)

// CapacityError describes a truncated build.
type CapacityError struct {
	Assigned int
	Dropped  int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s: %d blocks addressed, %d dropped",
		ErrCapacityReached, e.Assigned, e.Dropped)
}

// Is makes errors.Is(err, ErrCapacityReached) hold.
func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacityReached
}
