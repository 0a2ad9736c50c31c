// Package mmu provides the translation engine that turns logical addresses
// into physical addresses, loading pages on demand.
package mmu

import (
	"fmt"

	"github.com/sarchlab/vmsim/mem/backingstore"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/tlb"
	"github.com/sarchlab/vmsim/memory"
	"github.com/sarchlab/vmsim/sim"
)

// HookPosTLBHit marks a translation served by the TLB.
var HookPosTLBHit = &sim.HookPos{Name: "TLBHit"}

// HookPosTLBMiss marks a translation that missed the TLB.
var HookPosTLBMiss = &sim.HookPos{Name: "TLBMiss"}

// HookPosPageFault marks a translation that loaded its page from the backing
// store.
var HookPosPageFault = &sim.HookPos{Name: "PageFault"}

// HookPosTranslated is invoked after every successful translation.
var HookPosTranslated = &sim.HookPos{Name: "Translated"}

// Comp is the translation engine. It owns the TLB, the page table, the frame
// allocator, and the physical memory.
type Comp struct {
	sim.HookableBase

	name           string
	tlb            *tlb.Comp
	pageTable      vm.PageTable
	frameAllocator *vm.FrameAllocator
	storage        *memory.Storage
	backingStore   backingstore.BackingStore

	pageFaults uint64
	tlbHits    uint64
}

// Name returns the name of the engine.
func (c *Comp) Name() string {
	return c.name
}

// TLB returns the TLB used by the engine.
func (c *Comp) TLB() *tlb.Comp {
	return c.tlb
}

// PageTable returns the page table used by the engine.
func (c *Comp) PageTable() vm.PageTable {
	return c.pageTable
}

// Storage returns the physical memory.
func (c *Comp) Storage() *memory.Storage {
	return c.storage
}

// PageFaults returns the number of page faults so far.
func (c *Comp) PageFaults() uint64 {
	return c.pageFaults
}

// TLBHits returns the number of translations served by the TLB so far.
func (c *Comp) TLBHits() uint64 {
	return c.tlbHits
}

// NumAllocatedFrames returns the number of frames in use.
func (c *Comp) NumAllocatedFrames() int {
	return c.frameAllocator.NumAllocated()
}

// Translate translates a logical address and reads the value stored at the
// physical address.
//
// Any error returned is fatal to the run. The failing page is not bound, its
// frame is released, and the TLB is not updated. The fault is still counted.
func (c *Comp) Translate(addr vm.Address) (Translation, error) {
	page, offset, err := vm.Decompose(addr)
	if err != nil {
		return Translation{}, err
	}

	t := Translation{
		LogicalAddress: addr,
		Page:           page,
		Offset:         offset,
	}

	frame, found := c.tlb.Lookup(page)
	if found {
		c.tlbHits++
		t.Outcome = TLBHit
	} else {
		frame, t.Outcome, err = c.walkPageTable(page)
		if err != nil {
			return Translation{}, err
		}

		c.tlb.Insert(page, frame)
	}

	t.Frame = frame
	t.PhysicalAddress = vm.PhysicalAddress(frame, offset)

	t.Value, err = c.storage.Read(uint64(t.PhysicalAddress))
	if err != nil {
		return Translation{}, err
	}

	c.invokeHooks(t)

	return t, nil
}

func (c *Comp) walkPageTable(
	page vm.PageNumber,
) (vm.FrameNumber, Outcome, error) {
	frame, found := c.pageTable.Find(page)
	if found {
		return frame, PageTableHit, nil
	}

	frame, err := c.handlePageFault(page)
	if err != nil {
		return 0, PageFault, err
	}

	return frame, PageFault, nil
}

func (c *Comp) handlePageFault(page vm.PageNumber) (vm.FrameNumber, error) {
	c.pageFaults++

	frame, err := c.frameAllocator.Allocate()
	if err != nil {
		return 0, &vm.CapacityExceededError{
			Page:      page,
			NumFrames: c.frameAllocator.NumFrames(),
		}
	}

	data, err := c.backingStore.LoadPage(page)
	if err != nil {
		c.frameAllocator.Release(frame)
		return 0, fmt.Errorf("page fault on page %d: %w", page, err)
	}

	err = c.storage.LoadFrame(frame, data)
	if err != nil {
		c.frameAllocator.Release(frame)
		return 0, fmt.Errorf("page fault on page %d: %w", page, err)
	}

	c.pageTable.Insert(page, frame)

	return frame, nil
}

func (c *Comp) invokeHooks(t Translation) {
	if c.NumHooks() == 0 {
		return
	}

	switch t.Outcome {
	case TLBHit:
		c.invokeHook(HookPosTLBHit, t)
	case PageTableHit:
		c.invokeHook(HookPosTLBMiss, t)
	case PageFault:
		c.invokeHook(HookPosTLBMiss, t)
		c.invokeHook(HookPosPageFault, t)
	}

	c.invokeHook(HookPosTranslated, t)
}

func (c *Comp) invokeHook(pos *sim.HookPos, t Translation) {
	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    pos,
		Item:   t,
	})
}
