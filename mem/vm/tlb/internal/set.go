// Package internal provides the definition required for defining TLB.
package internal

import "github.com/sarchlab/vmsim/mem/vm"

// A Set holds a certain number of ways, each caching one page mapping.
type Set interface {
	// Lookup scans the ways in index order and returns the first valid way
	// that holds the page. Lookup never changes the set.
	Lookup(page vm.PageNumber) (wayID int, frame vm.FrameNumber, found bool)

	// Update overwrites a way with a new mapping and marks it valid.
	Update(wayID int, mapping vm.Mapping)

	// Evict selects the way to be overwritten next. Ways are selected in
	// strict round-robin order of eviction calls, regardless of how often a
	// way has been hit.
	Evict() (wayID int, ok bool)

	// NumEvictions returns how many times Evict selected a way.
	NumEvictions() uint64

	// Blocks returns a copy of every way in index order.
	Blocks() []Block
}

// A Block is one way of a set.
type Block struct {
	WayID   int
	Valid   bool
	Mapping vm.Mapping
}

// NewSet creates a new set with every way invalid.
func NewSet(numWays int) Set {
	s := &setImpl{}
	s.blocks = make([]Block, numWays)

	for i := range s.blocks {
		s.blocks[i].WayID = i
	}

	return s
}

type setImpl struct {
	blocks    []Block
	evictions uint64
}

func (s *setImpl) Lookup(page vm.PageNumber) (
	wayID int,
	frame vm.FrameNumber,
	found bool,
) {
	for i := range s.blocks {
		b := &s.blocks[i]
		if b.Valid && b.Mapping.Page == page {
			return b.WayID, b.Mapping.Frame, true
		}
	}

	return 0, 0, false
}

func (s *setImpl) Update(wayID int, mapping vm.Mapping) {
	b := &s.blocks[wayID]
	b.Mapping = mapping
	b.Valid = true
}

func (s *setImpl) Evict() (wayID int, ok bool) {
	if len(s.blocks) == 0 {
		return 0, false
	}

	wayID = int(s.evictions % uint64(len(s.blocks)))
	s.evictions++

	return wayID, true
}

func (s *setImpl) NumEvictions() uint64 {
	return s.evictions
}

func (s *setImpl) Blocks() []Block {
	blocks := make([]Block, len(s.blocks))
	copy(blocks, s.blocks)

	return blocks
}
