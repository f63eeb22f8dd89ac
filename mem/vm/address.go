package vm

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Width limits, counted in hex digits.
const (
	OffsetLength  = 2
	MinAddrLength = OffsetLength + 1
	MaxAddrLength = 16
)

// log2OffsetSize is the number of address bits occupied by the offset field.
const log2OffsetSize = 4 * OffsetLength

// An AddressFormat describes how a logical address of a fixed number of hex
// digits splits into a page number field and an offset field.
type AddressFormat struct {
	AddrLength    int
	PageNumLength int
}

// NewAddressFormat creates the format for addresses of addrLength hex digits.
// The offset field is always OffsetLength digits wide, so addrLength must
// leave at least one digit for the page number.
func NewAddressFormat(addrLength int) (AddressFormat, error) {
	if addrLength < MinAddrLength || addrLength > MaxAddrLength {
		return AddressFormat{}, errors.Wrapf(ErrInvalidAddressWidth,
			"address length %d not in [%d, %d]",
			addrLength, MinAddrLength, MaxAddrLength)
	}

	return AddressFormat{
		AddrLength:    addrLength,
		PageNumLength: addrLength - OffsetLength,
	}, nil
}

// MustNewAddressFormat is NewAddressFormat but panics on invalid widths.
func MustNewAddressFormat(addrLength int) AddressFormat {
	f, err := NewAddressFormat(addrLength)
	if err != nil {
		panic(err)
	}

	return f
}

// Capacity returns the number of distinct page numbers, which is also the
// maximum number of logical addresses a single build can assign.
func (f AddressFormat) Capacity() uint64 {
	return uint64(1) << (4 * f.PageNumLength)
}

// AddrSpaceSize returns the number of representable addresses. It returns 0
// for 16-digit formats, where the space is the whole uint64 range.
func (f AddressFormat) AddrSpaceSize() uint64 {
	if f.AddrLength == MaxAddrLength {
		return 0
	}

	return uint64(1) << (4 * f.AddrLength)
}

// MaxAddr returns the largest representable address.
func (f AddressFormat) MaxAddr() uint64 {
	if f.AddrLength == MaxAddrLength {
		return ^uint64(0)
	}

	return f.AddrSpaceSize() - 1
}

// PageNumber extracts the high-order page number field.
func (f AddressFormat) PageNumber(addr uint64) uint64 {
	return addr >> log2OffsetSize
}

// Offset extracts the low-order offset field.
func (f AddressFormat) Offset(addr uint64) uint64 {
	return addr & (1<<log2OffsetSize - 1)
}

// Compose builds a physical address out of a frame and an offset.
func (f AddressFormat) Compose(frame, offset uint64) uint64 {
	return frame<<log2OffsetSize | f.Offset(offset)
}

// FormatAddr renders an address as 0x followed by exactly AddrLength digits.
func (f AddressFormat) FormatAddr(addr uint64) string {
	return "0x" + pad(addr, f.AddrLength)
}

// FormatPage renders a page number or a frame with PageNumLength digits.
func (f AddressFormat) FormatPage(page uint64) string {
	return pad(page, f.PageNumLength)
}

// FormatOffset renders the offset field of an address.
func (f AddressFormat) FormatOffset(addr uint64) string {
	return pad(f.Offset(addr), OffsetLength)
}

// ParseAddr parses a hex address. The 0x prefix is optional and digits are
// case-insensitive. Values that do not fit the format are rejected.
func (f AddressFormat) ParseAddr(s string) (uint64, error) {
	digits := strings.TrimSpace(s)
	digits = strings.TrimPrefix(strings.TrimPrefix(digits, "0x"), "0X")

	if digits == "" {
		return 0, errors.Errorf("empty address %q", s)
	}

	if len(digits) > f.AddrLength {
		return 0, errors.Errorf("address %q wider than %d digits",
			s, f.AddrLength)
	}

	v, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "malformed address %q", s)
	}

	return v, nil
}

func pad(v uint64, width int) string {
	s := strconv.FormatUint(v, 16)
	if len(s) >= width {
		return s
	}

	return strings.Repeat("0", width-len(s)) + s
}
