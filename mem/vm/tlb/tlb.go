// Package tlb provides a translation look-aside buffer that caches page to
// frame mappings.
package tlb

import (
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/tlb/internal"
)

// An Entry is the content of one TLB slot.
type Entry struct {
	Slot  int
	Valid bool
	Page  vm.PageNumber
	Frame vm.FrameNumber
}

// Comp is a fully associative TLB with round-robin replacement.
type Comp struct {
	name    string
	numWays int
	set     internal.Set
}

// Name returns the name of the TLB.
func (c *Comp) Name() string {
	return c.name
}

// NumWays returns the number of slots.
func (c *Comp) NumWays() int {
	return c.numWays
}

func (c *Comp) reset() {
	c.set = internal.NewSet(c.numWays)
}

// Lookup returns the frame cached for the page. It does not change the TLB.
func (c *Comp) Lookup(page vm.PageNumber) (vm.FrameNumber, bool) {
	_, frame, found := c.set.Lookup(page)
	return frame, found
}

// Insert caches a mapping in the next slot of the round-robin order,
// overwriting whatever the slot held.
func (c *Comp) Insert(page vm.PageNumber, frame vm.FrameNumber) {
	wayID, ok := c.set.Evict()
	if !ok {
		return
	}

	c.set.Update(wayID, vm.Mapping{Page: page, Frame: frame})
}

// NumInsertions returns the number of Insert calls that wrote a slot.
func (c *Comp) NumInsertions() uint64 {
	return c.set.NumEvictions()
}

// Entries returns the content of every slot in slot order.
func (c *Comp) Entries() []Entry {
	blocks := c.set.Blocks()
	entries := make([]Entry, 0, len(blocks))

	for _, b := range blocks {
		entries = append(entries, Entry{
			Slot:  b.WayID,
			Valid: b.Valid,
			Page:  b.Mapping.Page,
			Frame: b.Mapping.Frame,
		})
	}

	return entries
}
