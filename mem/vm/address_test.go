package vm

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AddressFormat", func() {
	It("should reject widths without a page number field", func() {
		_, err := NewAddressFormat(2)
		Expect(errors.Is(err, ErrInvalidAddressWidth)).To(BeTrue())

		_, err = NewAddressFormat(17)
		Expect(errors.Is(err, ErrInvalidAddressWidth)).To(BeTrue())

		Expect(func() { MustNewAddressFormat(0) }).To(Panic())
	})

	It("should derive the page number length and capacity", func() {
		f := MustNewAddressFormat(4)

		Expect(f.PageNumLength).To(Equal(2))
		Expect(f.Capacity()).To(Equal(uint64(256)))
		Expect(f.AddrSpaceSize()).To(Equal(uint64(0x10000)))
		Expect(f.MaxAddr()).To(Equal(uint64(0xffff)))
	})

	It("should handle the widest format", func() {
		f := MustNewAddressFormat(16)

		Expect(f.AddrSpaceSize()).To(Equal(uint64(0)))
		Expect(f.MaxAddr()).To(Equal(^uint64(0)))
		Expect(f.Capacity()).To(Equal(uint64(1) << 56))
	})

	It("should split and compose addresses", func() {
		f := MustNewAddressFormat(4)

		Expect(f.PageNumber(0x12ab)).To(Equal(uint64(0x12)))
		Expect(f.Offset(0x12ab)).To(Equal(uint64(0xab)))
		Expect(f.Compose(0x7f, 0x12ab)).To(Equal(uint64(0x7fab)))
	})

	It("should zero-pad every field", func() {
		f := MustNewAddressFormat(6)

		Expect(f.FormatAddr(0xff)).To(Equal("0x0000ff"))
		Expect(f.FormatPage(0x3)).To(Equal("0003"))
		Expect(f.FormatOffset(0x1203)).To(Equal("03"))
	})

	It("should parse addresses with or without prefix", func() {
		f := MustNewAddressFormat(4)

		v, err := f.ParseAddr("0x00AB")
		Expect(err).ToNot(HaveOccurred())
		Expect(v).To(Equal(uint64(0xab)))

		v, err = f.ParseAddr(" 12ab ")
		Expect(err).ToNot(HaveOccurred())
		Expect(v).To(Equal(uint64(0x12ab)))
	})

	It("should reject malformed addresses", func() {
		f := MustNewAddressFormat(4)

		_, err := f.ParseAddr("0x")
		Expect(err).To(HaveOccurred())

		_, err = f.ParseAddr("0x12345")
		Expect(err).To(HaveOccurred())

		_, err = f.ParseAddr("cat")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("CapacityError", func() {
	It("should match ErrCapacityReached", func() {
		var err error = &CapacityError{Assigned: 256, Dropped: 4}

		Expect(errors.Is(err, ErrCapacityReached)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("4 dropped"))
	})
})

var _ = Describe("RandSource", func() {
	It("should be reproducible when seeded", func() {
		a := NewSeededRandSource(42)
		b := NewSeededRandSource(42)

		for i := 0; i < 10; i++ {
			Expect(a.Uint64N(256)).To(Equal(b.Uint64N(256)))
		}
	})

	It("should stay in range", func() {
		src := NewCryptoRandSource()

		for i := 0; i < 100; i++ {
			Expect(src.Uint64N(16)).To(BeNumerically("<", 16))
		}
	})
})
