package mmu

import (
	"github.com/sarchlab/vmsim/mem/backingstore"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/tlb"
	"github.com/sarchlab/vmsim/memory"
)

// A Builder can build MMU component
type Builder struct {
	backingStore backingstore.BackingStore
	pageTable    vm.PageTable
	tlbSize      int
	numFrames    int
}

// MakeBuilder creates a new builder
func MakeBuilder() Builder {
	return Builder{
		tlbSize:   16,
		numFrames: vm.NumFrames,
	}
}

// WithBackingStore sets where pages are loaded from on a page fault.
func (b Builder) WithBackingStore(bs backingstore.BackingStore) Builder {
	b.backingStore = bs
	return b
}

// WithPageTable sets the page table that the MMU uses.
func (b Builder) WithPageTable(pageTable vm.PageTable) Builder {
	b.pageTable = pageTable
	return b
}

// WithTLBSize sets the number of TLB entries.
func (b Builder) WithTLBSize(n int) Builder {
	b.tlbSize = n
	return b
}

// WithNumFrames sets the number of physical frames.
func (b Builder) WithNumFrames(n int) Builder {
	b.numFrames = n
	return b
}

// Build returns a newly created MMU component
func (b Builder) Build(name string) *Comp {
	b.parametersMustBeValid()

	mmu := &Comp{
		name:         name,
		backingStore: b.backingStore,
	}

	mmu.tlb = tlb.MakeBuilder().
		WithNumWays(b.tlbSize).
		Build(name + ".TLB")

	mmu.pageTable = b.pageTable
	if mmu.pageTable == nil {
		mmu.pageTable = vm.NewPageTable(vm.NumPages)
	}

	mmu.frameAllocator = vm.NewFrameAllocator(b.numFrames)
	mmu.storage = memory.NewStorage(
		uint64(b.numFrames)*vm.PageSize, vm.PageSize)

	return mmu
}

func (b Builder) parametersMustBeValid() {
	if b.backingStore == nil {
		panic("backing store is not set")
	}

	if b.numFrames <= 0 || b.numFrames > vm.NumFrames {
		panic("number of frames must be in [1, 256]")
	}
}
