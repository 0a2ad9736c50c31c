package cmd

import (
	"fmt"
	"io"

	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/simulation"
)

func printTranslation(w io.Writer, t mmu.Translation) {
	fmt.Fprintf(w, "Logical Address: %d, Physical Memory: %d, Value: %d\n",
		t.LogicalAddress, t.PhysicalAddress, t.Value)
}

func printSummary(w io.Writer, s simulation.Summary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "*** Final Info ***")
	fmt.Fprintf(w, "Number of translations: %d\n", s.Translations)
	fmt.Fprintf(w, "Number of Page Faults: %d\n", s.PageFaults)
	fmt.Fprintf(w, "Page Fault Rate: %.6g\n", s.FaultRate())
	fmt.Fprintf(w, "Number of TLB Hits: %d\n", s.TLBHits)
	fmt.Fprintf(w, "TLB Rate: %.6g\n", s.TLBHitRate())

	if s.Skipped > 0 {
		fmt.Fprintf(w, "Skipped malformed lines: %d\n", s.Skipped)
	}
}
