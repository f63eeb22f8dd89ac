package mmu

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/pagesim/mem/vm"
	"github.com/sarchlab/pagesim/mem/vm/addressspace"
	"github.com/sarchlab/pagesim/sim/hooking"
	"go.uber.org/mock/gomock"
)

type recordingHook struct {
	ctxs []hooking.HookCtx
}

func (h *recordingHook) Func(ctx hooking.HookCtx) {
	h.ctxs = append(h.ctxs, ctx)
}

func (h *recordingHook) at(pos *hooking.HookPos) []hooking.HookCtx {
	var res []hooking.HookCtx
	for _, ctx := range h.ctxs {
		if ctx.Pos == pos {
			res = append(res, ctx)
		}
	}

	return res
}

var _ = Describe("Paging unit", func() {
	It("should reproduce the loaded data", func() {
		unit := NewPagingUnit(4, 4)

		err := unit.LoadData([]byte("this is a big block"))

		Expect(err).ToNot(HaveOccurred())
		Expect(unit.LogicalAddresses()).To(HaveLen(5))
		Expect(string(unit.Concatenate())).To(Equal("this is a big block"))
	})

	It("should round trip through an address space mapping", func() {
		unit := NewPagingUnit(6, 3)
		m, err := addressspace.Build([]byte("0123456789abcdefghij"), 3, 6)
		Expect(err).ToNot(HaveOccurred())

		unit.Load(m)

		Expect(string(unit.Concatenate())).To(Equal("0123456789abcdefghij"))
	})

	It("should translate the same address to the same block", func() {
		unit := NewPagingUnit(4, 4)
		Expect(unit.LoadData([]byte("this is a big block"))).To(Succeed())

		for _, addr := range unit.LogicalAddresses() {
			s := unit.Format().FormatAddr(addr)

			t1, err := unit.Translate(s)
			Expect(err).ToNot(HaveOccurred())
			t2, err := unit.Translate(s)
			Expect(err).ToNot(HaveOccurred())

			Expect(t1).To(Equal(t2))
			Expect(t1.Resident).To(BeTrue())
		}
	})

	It("should accumulate loads in one physical memory", func() {
		unit := NewPagingUnit(8, 4)
		Expect(unit.LoadData([]byte("first"))).To(Succeed())
		Expect(unit.LoadData([]byte("second"))).To(Succeed())

		Expect(unit.LogicalAddresses()).To(HaveLen(4))
		Expect(string(unit.Concatenate())).To(Equal("firstsecond"))
	})

	It("should report capacity truncation and keep the rest", func() {
		unit := NewPagingUnit(3, 1)

		err := unit.LoadData(make([]byte, 20))

		var capErr *vm.CapacityError
		Expect(errors.As(err, &capErr)).To(BeTrue())
		Expect(capErr.Dropped).To(Equal(4))
		Expect(unit.LogicalAddresses()).To(HaveLen(16))
		Expect(unit.Concatenate()).To(HaveLen(16))
	})

	It("should return an error for invalid block settings", func() {
		unit := NewPagingUnit(4, 4)
		unit.blockSize = 0

		err := unit.LoadData([]byte("abc"))

		Expect(errors.Is(err, vm.ErrInvalidBlockSize)).To(BeTrue())
		Expect(unit.LogicalAddresses()).To(BeEmpty())
	})

	Context("with controlled randomness", func() {
		var (
			mockCtrl   *gomock.Controller
			randSource *MockRandSource
			unit       *Comp
			hook       *recordingHook
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			randSource = NewMockRandSource(mockCtrl)
			hook = &recordingHook{}

			unit = MakeBuilder().
				WithAddrLength(4).
				WithBlockSize(4).
				WithRandSource(randSource).
				Build("MMU")
			unit.AcceptHook(hook)
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should compose frames with offsets", func() {
			randSource.EXPECT().Uint64N(uint64(256)).Return(uint64(0x7f))

			unit.Load(vm.Mapping{
				{Addr: 0x12fc, Data: []byte("abcd")},
				{Addr: 0x1200, Data: []byte("efgh")},
			})

			t, err := unit.Translate("0x12fc")
			Expect(err).ToNot(HaveOccurred())
			Expect(t.Page()).To(Equal("12"))
			Expect(t.Offset()).To(Equal("fc"))
			Expect(t.Physical()).To(Equal("0x7ffc"))
			Expect(string(t.Data)).To(Equal("abcd"))

			Expect(unit.PageTable().Pages()).To(Equal([]vm.Page{
				{PageNum: 0x12, Frame: 0x7f},
			}))
		})

		It("should never reassign a frame", func() {
			randSource.EXPECT().Uint64N(uint64(256)).Return(uint64(0x01))
			randSource.EXPECT().Uint64N(uint64(256)).Return(uint64(0x02))

			unit.Load(vm.Mapping{{Addr: 0x10fc, Data: []byte("a")}})
			unit.Load(vm.Mapping{
				{Addr: 0x1000, Data: []byte("b")},
				{Addr: 0x2000, Data: []byte("c")},
			})

			page, found := unit.PageTable().Find(0x10)
			Expect(found).To(BeTrue())
			Expect(page.Frame).To(Equal(uint64(0x01)))
			Expect(unit.PageTable().Len()).To(Equal(2))
		})

		It("should treat frame zero as assigned", func() {
			randSource.EXPECT().Uint64N(uint64(256)).Return(uint64(0)).Times(1)

			unit.Load(vm.Mapping{
				{Addr: 0x3300, Data: []byte("a")},
				{Addr: 0x3304, Data: []byte("b")},
			})

			Expect(unit.TranslateAll()[1].Physical()).To(Equal("0x0004"))
		})

		It("should let the last writer win on colliding frames", func() {
			randSource.EXPECT().Uint64N(uint64(256)).Return(uint64(0x42)).Times(2)

			unit.Load(vm.Mapping{
				{Addr: 0x1010, Data: []byte("old!")},
				{Addr: 0x2010, Data: []byte("new!")},
			})

			t, err := unit.Translate("0x1010")
			Expect(err).ToNot(HaveOccurred())
			Expect(string(t.Data)).To(Equal("new!"))
			Expect(unit.PhysicalEntries()).To(HaveLen(1))

			assigned := hook.at(HookPosFrameAssign)
			Expect(assigned).To(HaveLen(2))
			second := assigned[1].Detail.(FrameAssignment)
			Expect(second.Collides).To(BeTrue())
			Expect(second.CollidesWith).To(Equal(uint64(0x10)))
		})

		It("should report a non-resident block without failing", func() {
			randSource.EXPECT().Uint64N(uint64(256)).Return(uint64(0x05))

			unit.Load(vm.Mapping{{Addr: 0x1010, Data: []byte("x")}})
			unit.known[0x1020] = struct{}{}

			t, err := unit.Translate("1020")
			Expect(err).ToNot(HaveOccurred())
			Expect(t.Resident).To(BeFalse())
			Expect(t.Data).To(BeNil())
		})

		It("should invoke hooks for loads and translations", func() {
			randSource.EXPECT().Uint64N(uint64(256)).Return(uint64(0x05))

			unit.Load(vm.Mapping{
				{Addr: 0x1010, Data: []byte("x")},
				{Addr: 0x1014, Data: []byte("y")},
			})
			_, err := unit.Translate("0x1014")
			Expect(err).ToNot(HaveOccurred())
			unit.TranslateAll()

			Expect(hook.at(HookPosFrameAssign)).To(HaveLen(1))
			Expect(hook.at(HookPosLoad)).To(HaveLen(2))
			Expect(hook.at(HookPosTranslate)).To(HaveLen(1))
			Expect(hook.ctxs[0].Pos).To(Equal(HookPosFrameAssign))
			Expect(hook.ctxs[0].Domain).To(BeIdenticalTo(unit))
		})
	})

	It("should return not found for unknown addresses", func() {
		unit := NewPagingUnit(4, 4)
		Expect(unit.LoadData([]byte("abcd"))).To(Succeed())
		known := unit.LogicalAddresses()[0]

		_, err := unit.Translate(unit.Format().FormatAddr(known ^ 0x1))
		Expect(errors.Is(err, vm.ErrAddressNotFound)).To(BeTrue())

		_, err = unit.Translate("not an address")
		Expect(errors.Is(err, vm.ErrAddressNotFound)).To(BeTrue())
	})

	It("should panic when the page table lost an entry", func() {
		unit := NewPagingUnit(4, 4)
		unit.known[0x1234] = struct{}{}
		unit.logicalAddrs = append(unit.logicalAddrs, 0x1234)

		Expect(func() { _, _ = unit.Translate("0x1234") }).To(Panic())
		Expect(func() { unit.TranslateAll() }).To(Panic())
	})

	It("should refuse addresses wider than the format", func() {
		unit := NewPagingUnit(4, 4)

		Expect(func() {
			unit.Load(vm.Mapping{{Addr: 0x10000, Data: []byte("a")}})
		}).To(Panic())
	})
})
