package tlb

import (
	ginkgo "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/vmsim/mem/vm"
)

var _ = ginkgo.Describe("TLB", func() {
	var (
		mockCtrl *gomock.Controller
		set      *MockSet
		tlb      *Comp
	)

	ginkgo.BeforeEach(func() {
		mockCtrl = gomock.NewController(ginkgo.GinkgoT())
		set = NewMockSet(mockCtrl)

		tlb = MakeBuilder().Build("TLB")
		tlb.set = set
	})

	ginkgo.AfterEach(func() {
		mockCtrl.Finish()
	})

	ginkgo.It("should report a hit from the set", func() {
		set.EXPECT().Lookup(vm.PageNumber(4)).Return(2, vm.FrameNumber(8), true)

		frame, found := tlb.Lookup(4)

		Expect(found).To(BeTrue())
		Expect(frame).To(Equal(vm.FrameNumber(8)))
	})

	ginkgo.It("should report a miss from the set", func() {
		set.EXPECT().Lookup(vm.PageNumber(4)).Return(0, vm.FrameNumber(0), false)

		_, found := tlb.Lookup(4)

		Expect(found).To(BeFalse())
	})

	ginkgo.It("should write the victim way on insert", func() {
		gomock.InOrder(
			set.EXPECT().Evict().Return(5, true),
			set.EXPECT().Update(5, vm.Mapping{Page: 4, Frame: 8}),
		)

		tlb.Insert(4, 8)
	})

	ginkgo.It("should not write anything when there is no way", func() {
		set.EXPECT().Evict().Return(0, false)

		tlb.Insert(4, 8)
	})
})

var _ = ginkgo.Describe("TLB replacement", func() {
	var tlb *Comp

	ginkgo.BeforeEach(func() {
		tlb = MakeBuilder().Build("TLB")
	})

	ginkgo.It("should have 16 invalid slots by default", func() {
		entries := tlb.Entries()

		Expect(entries).To(HaveLen(16))
		for _, e := range entries {
			Expect(e.Valid).To(BeFalse())
		}
	})

	ginkgo.It("should evict the first page after 17 insertions", func() {
		for p := 0; p < 17; p++ {
			tlb.Insert(vm.PageNumber(p), vm.FrameNumber(p))
		}

		_, found := tlb.Lookup(0)
		Expect(found).To(BeFalse())

		frame, found := tlb.Lookup(16)
		Expect(found).To(BeTrue())
		Expect(frame).To(Equal(vm.FrameNumber(16)))
		Expect(tlb.Entries()[0].Page).To(Equal(vm.PageNumber(16)))
		Expect(tlb.NumInsertions()).To(Equal(uint64(17)))
	})

	ginkgo.It("should overwrite a slot even if it is frequently hit", func() {
		tlb.Insert(100, 1)
		for i := 0; i < 50; i++ {
			_, found := tlb.Lookup(100)
			Expect(found).To(BeTrue())
		}

		for p := 0; p < 16; p++ {
			tlb.Insert(vm.PageNumber(p), vm.FrameNumber(p))
		}

		_, found := tlb.Lookup(100)
		Expect(found).To(BeFalse())
	})

	ginkgo.It("should support a TLB without entries", func() {
		empty := MakeBuilder().WithNumWays(0).Build("Empty")

		empty.Insert(1, 1)

		_, found := empty.Lookup(1)
		Expect(found).To(BeFalse())
		Expect(empty.NumInsertions()).To(Equal(uint64(0)))
	})

	ginkgo.It("should reject a negative size", func() {
		Expect(func() { MakeBuilder().WithNumWays(-1) }).To(Panic())
	})
})
