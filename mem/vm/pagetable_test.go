package vm

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("PageTable", func() {
	var pt PageTable

	BeforeEach(func() {
		pt = NewPageTable()
	})

	It("should find inserted pages", func() {
		pt.Insert(Page{PageNum: 0x12, Frame: 0x7f})

		page, found := pt.Find(0x12)
		Expect(found).To(BeTrue())
		Expect(page.Frame).To(Equal(uint64(0x7f)))
	})

	It("should report absent pages", func() {
		_, found := pt.Find(0x12)
		Expect(found).To(BeFalse())
	})

	It("should treat frame zero as present", func() {
		pt.Insert(Page{PageNum: 0, Frame: 0})

		page, found := pt.Find(0)
		Expect(found).To(BeTrue())
		Expect(page.Frame).To(Equal(uint64(0)))
	})

	It("should never replace a page", func() {
		pt.Insert(Page{PageNum: 1, Frame: 2})

		Expect(func() { pt.Insert(Page{PageNum: 1, Frame: 3}) }).To(Panic())

		page, _ := pt.Find(1)
		Expect(page.Frame).To(Equal(uint64(2)))
	})

	It("should list pages in insertion order", func() {
		pt.Insert(Page{PageNum: 9, Frame: 1})
		pt.Insert(Page{PageNum: 3, Frame: 2})
		pt.Insert(Page{PageNum: 5, Frame: 3})

		Expect(pt.Len()).To(Equal(3))
		Expect(pt.Pages()).To(Equal([]Page{
			{PageNum: 9, Frame: 1},
			{PageNum: 3, Frame: 2},
			{PageNum: 5, Frame: 3},
		}))
	})
})
