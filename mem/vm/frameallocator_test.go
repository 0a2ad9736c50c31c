package vm

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FrameAllocator", func() {
	It("should hand out frames from the lowest index", func() {
		a := NewFrameAllocator(4)

		for i := 0; i < 4; i++ {
			frame, err := a.Allocate()
			Expect(err).NotTo(HaveOccurred())
			Expect(frame).To(Equal(FrameNumber(i)))
		}

		Expect(a.NumAllocated()).To(Equal(4))
	})

	It("should hand a released frame out again", func() {
		a := NewFrameAllocator(4)
		_, _ = a.Allocate()
		frame, _ := a.Allocate()

		a.Release(frame)

		Expect(a.NumAllocated()).To(Equal(1))
		Expect(a.Allocate()).To(Equal(FrameNumber(1)))
	})

	It("should panic when releasing a free frame", func() {
		a := NewFrameAllocator(4)

		Expect(func() { a.Release(2) }).To(Panic())
		Expect(func() { a.Release(9) }).To(Panic())
	})

	It("should fail once every frame is in use", func() {
		a := NewFrameAllocator(NumFrames)
		for i := 0; i < NumFrames; i++ {
			_, err := a.Allocate()
			Expect(err).NotTo(HaveOccurred())
		}

		_, err := a.Allocate()

		Expect(err).To(MatchError(ErrCapacityExceeded))
		Expect(a.NumAllocated()).To(Equal(NumFrames))
	})
})
