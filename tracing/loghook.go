package tracing

import (
	"log"

	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/sim"
)

// A LogHook writes TLB and page fault events to a logger.
type LogHook struct {
	*log.Logger
}

// NewLogHook creates a LogHook.
func NewLogHook(logger *log.Logger) *LogHook {
	return &LogHook{Logger: logger}
}

// Func logs the event.
func (h *LogHook) Func(ctx sim.HookCtx) {
	t, ok := ctx.Item.(mmu.Translation)
	if !ok {
		return
	}

	switch ctx.Pos {
	case mmu.HookPosTLBHit:
		h.Printf("tlb hit: page %d -> frame %d", t.Page, t.Frame)
	case mmu.HookPosTLBMiss:
		h.Printf("tlb miss: page %d", t.Page)
	case mmu.HookPosPageFault:
		h.Printf("page fault: page %d loaded into frame %d", t.Page, t.Frame)
	}
}
