package mmu

import (
	"errors"
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/vmsim/mem/backingstore"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/sim"
)

func pageFilledWith(v byte) []byte {
	page := make([]byte, vm.PageSize)
	for i := range page {
		page[i] = v
	}

	return page
}

var _ = Describe("MMU", func() {
	var (
		mockCtrl     *gomock.Controller
		backingStore *MockBackingStore
		pageTable    *MockPageTable
		mmu          *Comp
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		backingStore = NewMockBackingStore(mockCtrl)
		pageTable = NewMockPageTable(mockCtrl)

		mmu = MakeBuilder().
			WithBackingStore(backingStore).
			WithPageTable(pageTable).
			Build("MMU")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should load the page on a full miss", func() {
		pageTable.EXPECT().Find(vm.PageNumber(1)).Return(vm.FrameNumber(0), false)
		backingStore.EXPECT().LoadPage(vm.PageNumber(1)).Return(pageFilledWith(7), nil)
		pageTable.EXPECT().Insert(vm.PageNumber(1), vm.FrameNumber(0))

		t, err := mmu.Translate(258)

		Expect(err).NotTo(HaveOccurred())
		Expect(t.Page).To(Equal(vm.PageNumber(1)))
		Expect(t.Offset).To(Equal(uint32(2)))
		Expect(t.Frame).To(Equal(vm.FrameNumber(0)))
		Expect(t.PhysicalAddress).To(Equal(uint32(2)))
		Expect(t.Value).To(Equal(int16(7)))
		Expect(t.Outcome).To(Equal(PageFault))
		Expect(mmu.PageFaults()).To(Equal(uint64(1)))
		Expect(mmu.TLBHits()).To(Equal(uint64(0)))
		Expect(mmu.NumAllocatedFrames()).To(Equal(1))

		frame, found := mmu.TLB().Lookup(1)
		Expect(found).To(BeTrue())
		Expect(frame).To(Equal(vm.FrameNumber(0)))
	})

	It("should refill the TLB on a page table hit without faulting", func() {
		pageTable.EXPECT().Find(vm.PageNumber(3)).Return(vm.FrameNumber(5), true)

		t, err := mmu.Translate(3*256 + 4)

		Expect(err).NotTo(HaveOccurred())
		Expect(t.Outcome).To(Equal(PageTableHit))
		Expect(t.PhysicalAddress).To(Equal(uint32(5*256 + 4)))
		Expect(mmu.PageFaults()).To(Equal(uint64(0)))
		Expect(mmu.TLB().NumInsertions()).To(Equal(uint64(1)))
	})

	It("should serve a TLB hit without the page table", func() {
		mmu.TLB().Insert(2, 9)

		t, err := mmu.Translate(2*256 + 1)

		Expect(err).NotTo(HaveOccurred())
		Expect(t.Outcome).To(Equal(TLBHit))
		Expect(t.PhysicalAddress).To(Equal(uint32(9*256 + 1)))
		Expect(mmu.TLBHits()).To(Equal(uint64(1)))
		Expect(mmu.TLB().NumInsertions()).To(Equal(uint64(1)))
	})

	It("should surface backing store errors", func() {
		ioErr := &backingstore.IOError{
			Op: "read", Path: "x", Page: 4, Err: io.ErrUnexpectedEOF,
		}
		pageTable.EXPECT().Find(vm.PageNumber(4)).Return(vm.FrameNumber(0), false)
		backingStore.EXPECT().LoadPage(vm.PageNumber(4)).Return(nil, ioErr)

		_, err := mmu.Translate(4 * 256)

		var got *backingstore.IOError
		Expect(errors.As(err, &got)).To(BeTrue())
		Expect(got.Page).To(Equal(vm.PageNumber(4)))

		_, found := mmu.TLB().Lookup(4)
		Expect(found).To(BeFalse())
	})

	It("should release the frame of a failed page fault", func() {
		ioErr := &backingstore.IOError{
			Op: "read", Path: "x", Page: 4, Err: io.ErrUnexpectedEOF,
		}
		pageTable.EXPECT().Find(vm.PageNumber(4)).Return(vm.FrameNumber(0), false)
		backingStore.EXPECT().LoadPage(vm.PageNumber(4)).Return(nil, ioErr)
		pageTable.EXPECT().Find(vm.PageNumber(5)).Return(vm.FrameNumber(0), false)
		backingStore.EXPECT().LoadPage(vm.PageNumber(5)).Return(pageFilledWith(3), nil)
		pageTable.EXPECT().Insert(vm.PageNumber(5), vm.FrameNumber(0))

		_, err := mmu.Translate(4 * 256)
		Expect(err).To(HaveOccurred())
		Expect(mmu.NumAllocatedFrames()).To(Equal(0))

		t, err := mmu.Translate(5 * 256)

		Expect(err).NotTo(HaveOccurred())
		Expect(t.Frame).To(Equal(vm.FrameNumber(0)))
		Expect(mmu.NumAllocatedFrames()).To(Equal(1))
		Expect(mmu.PageFaults()).To(Equal(uint64(2)))
	})

	It("should reject addresses outside the address space", func() {
		_, err := mmu.Translate(70000)

		var rangeErr *vm.AddressOutOfRangeError
		Expect(errors.As(err, &rangeErr)).To(BeTrue())
		Expect(mmu.PageFaults()).To(Equal(uint64(0)))
	})

	It("should invoke hooks for a page fault", func() {
		hook := NewMockHook(mockCtrl)
		mmu.AcceptHook(hook)

		positions := []*sim.HookPos{}
		hook.EXPECT().Func(gomock.Any()).
			Do(func(ctx sim.HookCtx) {
				positions = append(positions, ctx.Pos)
				Expect(ctx.Domain).To(BeIdenticalTo(mmu))
				Expect(ctx.Item.(Translation).Page).To(Equal(vm.PageNumber(0)))
			}).
			Times(3)

		pageTable.EXPECT().Find(vm.PageNumber(0)).Return(vm.FrameNumber(0), false)
		backingStore.EXPECT().LoadPage(vm.PageNumber(0)).Return(pageFilledWith(0), nil)
		pageTable.EXPECT().Insert(vm.PageNumber(0), vm.FrameNumber(0))

		_, err := mmu.Translate(0)

		Expect(err).NotTo(HaveOccurred())
		Expect(positions).To(Equal([]*sim.HookPos{
			HookPosTLBMiss, HookPosPageFault, HookPosTranslated,
		}))
	})

	It("should invoke hooks for a TLB hit", func() {
		hook := NewMockHook(mockCtrl)
		mmu.AcceptHook(hook)
		mmu.TLB().Insert(0, 0)

		positions := []*sim.HookPos{}
		hook.EXPECT().Func(gomock.Any()).
			Do(func(ctx sim.HookCtx) {
				positions = append(positions, ctx.Pos)
			}).
			Times(2)

		_, err := mmu.Translate(0)

		Expect(err).NotTo(HaveOccurred())
		Expect(positions).To(Equal([]*sim.HookPos{
			HookPosTLBHit, HookPosTranslated,
		}))
	})
})

var _ = Describe("MMU capacity", func() {
	It("should fail when more pages than frames are requested", func() {
		mmu := MakeBuilder().
			WithBackingStore(backingstore.NewInMemory(
				make([]byte, vm.AddressSpaceSize))).
			WithNumFrames(1).
			Build("MMU")

		_, err := mmu.Translate(0)
		Expect(err).NotTo(HaveOccurred())

		_, err = mmu.Translate(256)

		var capErr *vm.CapacityExceededError
		Expect(errors.As(err, &capErr)).To(BeTrue())
		Expect(capErr.Page).To(Equal(vm.PageNumber(1)))
		Expect(errors.Is(err, vm.ErrCapacityExceeded)).To(BeTrue())

		_, found := mmu.PageTable().Find(1)
		Expect(found).To(BeFalse())
	})

	It("should require a backing store", func() {
		Expect(func() { MakeBuilder().Build("MMU") }).To(Panic())
	})

	It("should reject more frames than physical memory holds", func() {
		Expect(func() {
			MakeBuilder().
				WithBackingStore(backingstore.NewInMemory(nil)).
				WithNumFrames(257).
				Build("MMU")
		}).To(Panic())
	})
})

var _ = Describe("MMU translation properties", func() {
	var mmu *Comp

	// Every byte of page p holds p, so values identify the page they came
	// from.
	pagePattern := func() []byte {
		data := make([]byte, vm.AddressSpaceSize)
		for i := range data {
			data[i] = byte(i / vm.PageSize)
		}

		return data
	}

	BeforeEach(func() {
		mmu = MakeBuilder().
			WithBackingStore(backingstore.NewInMemory(pagePattern())).
			Build("MMU")
	})

	It("should translate every address to frame*256+offset", func() {
		for a := 0; a <= vm.MaxAddress; a++ {
			t, err := mmu.Translate(vm.Address(a))
			Expect(err).NotTo(HaveOccurred())

			frame, found := mmu.PageTable().Find(vm.PageNumber(a / 256))
			Expect(found).To(BeTrue())
			Expect(t.Frame).To(Equal(frame))
			Expect(t.PhysicalAddress).To(Equal(uint32(frame)*256 + uint32(a%256)))
			Expect(t.Value).To(Equal(int16(int8(byte(a / 256)))))
		}

		Expect(mmu.PageFaults()).To(Equal(uint64(256)))
		Expect(mmu.NumAllocatedFrames()).To(Equal(256))
	})

	It("should hit the TLB on a repeated address", func() {
		first, err := mmu.Translate(1234)
		Expect(err).NotTo(HaveOccurred())

		second, err := mmu.Translate(1234)
		Expect(err).NotTo(HaveOccurred())

		Expect(second.PhysicalAddress).To(Equal(first.PhysicalAddress))
		Expect(second.Outcome).To(Equal(TLBHit))
		Expect(mmu.TLBHits()).To(Equal(uint64(1)))
	})

	It("should fault once per page", func() {
		_, err := mmu.Translate(5 * 256)
		Expect(err).NotTo(HaveOccurred())
		Expect(mmu.PageFaults()).To(Equal(uint64(1)))

		for off := 0; off < 256; off += 17 {
			_, err := mmu.Translate(vm.Address(5*256 + off))
			Expect(err).NotTo(HaveOccurred())
		}

		Expect(mmu.PageFaults()).To(Equal(uint64(1)))
	})

	It("should evict the first page after 17 distinct pages", func() {
		for p := 0; p < 17; p++ {
			_, err := mmu.Translate(vm.Address(p * 256))
			Expect(err).NotTo(HaveOccurred())
		}

		t, err := mmu.Translate(0)

		Expect(err).NotTo(HaveOccurred())
		Expect(t.Outcome).To(Equal(PageTableHit))
		Expect(t.Frame).To(Equal(vm.FrameNumber(0)))
		Expect(mmu.PageFaults()).To(Equal(uint64(17)))
		Expect(mmu.TLBHits()).To(Equal(uint64(0)))
	})

	It("should sign-extend values above 127", func() {
		t, err := mmu.Translate(200*256 + 3)

		Expect(err).NotTo(HaveOccurred())
		Expect(t.Value).To(Equal(int16(200 - 256)))
	})
})

var _ = Describe("MMU with a sequential backing store", func() {
	It("should translate 0, 256, 1", func() {
		data := make([]byte, vm.AddressSpaceSize)
		for i := range data {
			data[i] = byte(i % 256)
		}
		mmu := MakeBuilder().
			WithBackingStore(backingstore.NewInMemory(data)).
			Build("MMU")

		t0, err := mmu.Translate(0)
		Expect(err).NotTo(HaveOccurred())
		t1, err := mmu.Translate(256)
		Expect(err).NotTo(HaveOccurred())
		t2, err := mmu.Translate(1)
		Expect(err).NotTo(HaveOccurred())

		Expect(t0.Frame).To(Equal(vm.FrameNumber(0)))
		Expect(t0.PhysicalAddress).To(Equal(uint32(0)))
		Expect(t1.Frame).To(Equal(vm.FrameNumber(1)))
		Expect(t1.PhysicalAddress).To(Equal(uint32(256)))
		Expect(t1.Outcome).To(Equal(PageFault))
		Expect(t2.Frame).To(Equal(vm.FrameNumber(0)))
		Expect(t2.PhysicalAddress).To(Equal(uint32(1)))
		Expect(t2.Value).To(Equal(int16(1)))
		Expect(t2.Outcome).To(Equal(TLBHit))

		Expect(mmu.PageFaults()).To(Equal(uint64(2)))
		Expect(mmu.TLBHits()).To(Equal(uint64(1)))
	})
})
