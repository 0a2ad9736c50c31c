package mmu

import "github.com/sarchlab/vmsim/mem/vm"

// Outcome tells which structure provided the frame of a translation.
type Outcome int

// The outcomes of a translation.
const (
	TLBHit Outcome = iota
	PageTableHit
	PageFault
)

func (o Outcome) String() string {
	switch o {
	case TLBHit:
		return "TLBHit"
	case PageTableHit:
		return "PageTableHit"
	case PageFault:
		return "PageFault"
	default:
		return "Unknown"
	}
}

// A Translation is the result of translating one logical address.
type Translation struct {
	LogicalAddress  vm.Address
	Page            vm.PageNumber
	Offset          uint32
	Frame           vm.FrameNumber
	PhysicalAddress uint32
	Value           int16
	Outcome         Outcome
}
