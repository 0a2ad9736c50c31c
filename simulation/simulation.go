// Package simulation runs a stream of logical addresses through a translation
// engine and reports the statistics.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sarchlab/vmsim/datarecording"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/monitoring"
	"github.com/sarchlab/vmsim/tracing"
	"github.com/sarchlab/vmsim/workload"
)

// SummaryTableName is the table that holds one summary row per run.
const SummaryTableName = "summary"

type summaryEntry struct {
	RunID        string
	Translations uint64
	PageFaults   uint64
	TLBHits      uint64
	Skipped      int
	FaultRate    float64
	TLBHitRate   float64
}

// Summary holds the statistics of a run.
type Summary struct {
	RunID        string
	Translations uint64
	PageFaults   uint64
	TLBHits      uint64
	Skipped      int
}

// FaultRate returns page faults per translation.
func (s Summary) FaultRate() float64 {
	if s.Translations == 0 {
		return 0
	}

	return float64(s.PageFaults) / float64(s.Translations)
}

// TLBHitRate returns TLB hits per translation.
func (s Summary) TLBHitRate() float64 {
	if s.Translations == 0 {
		return 0
	}

	return float64(s.TLBHits) / float64(s.Translations)
}

// A Simulation is one independent run. Simulations share no state.
type Simulation struct {
	id  string
	mmu *mmu.Comp

	dataRecorder datarecording.DataRecorder
	tracer       *tracing.TranslationTracer
	monitor      *monitoring.Monitor
	monitorURL   string

	translations uint64
	skipped      int
	terminated   bool
}

// ID returns the ID of the run.
func (s *Simulation) ID() string {
	return s.id
}

// MMU returns the translation engine.
func (s *Simulation) MMU() *mmu.Comp {
	return s.mmu
}

// Monitor returns the monitor, or nil if monitoring is off.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// MonitorURL returns where the monitor is served, or "" if monitoring is off.
func (s *Simulation) MonitorURL() string {
	return s.monitorURL
}

// Translate translates one address and counts it.
func (s *Simulation) Translate(addr vm.Address) (mmu.Translation, error) {
	t, err := s.mmu.Translate(addr)
	if err != nil {
		return mmu.Translation{}, err
	}

	s.translations++

	if s.tracer != nil && s.tracer.Err() != nil {
		return t, fmt.Errorf("recording translation: %w", s.tracer.Err())
	}

	return t, nil
}

// Run translates every address from the reader in order. onTranslation, if
// not nil, is called after each translation. Run stops at the end of the
// input, at the first error, or when ctx is done.
func (s *Simulation) Run(
	ctx context.Context,
	r *workload.Reader,
	onTranslation func(mmu.Translation),
) (Summary, error) {
	var bar *monitoring.ProgressBar
	if s.monitor != nil {
		bar = s.monitor.CreateProgressBar("Translation", 0)
		defer s.monitor.CompleteProgressBar(bar)
	}

	for {
		err := ctx.Err()
		if err != nil {
			return s.Summary(), err
		}

		addr, err := r.Next()
		s.skipped = r.Skipped()

		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return s.Summary(), err
		}

		if bar != nil {
			bar.IncrementInProgress(1)
		}

		t, err := s.Translate(addr)
		if err != nil {
			return s.Summary(), fmt.Errorf("translating address %d: %w",
				addr, err)
		}

		if bar != nil {
			bar.MoveInProgressToFinished(1)
		}

		if onTranslation != nil {
			onTranslation(t)
		}
	}

	return s.Summary(), nil
}

// Summary returns the statistics so far.
func (s *Simulation) Summary() Summary {
	return Summary{
		RunID:        s.id,
		Translations: s.translations,
		PageFaults:   s.mmu.PageFaults(),
		TLBHits:      s.mmu.TLBHits(),
		Skipped:      s.skipped,
	}
}

// Terminate records the summary, closes the recorder, and freezes the
// monitor. The monitor keeps serving until it is stopped.
func (s *Simulation) Terminate() error {
	if s.terminated {
		return nil
	}

	s.terminated = true

	if s.monitor != nil {
		s.monitor.Freeze()
	}

	if s.dataRecorder == nil {
		return nil
	}

	summary := s.Summary()

	err := s.dataRecorder.InsertData(SummaryTableName, summaryEntry{
		RunID:        summary.RunID,
		Translations: summary.Translations,
		PageFaults:   summary.PageFaults,
		TLBHits:      summary.TLBHits,
		Skipped:      summary.Skipped,
		FaultRate:    summary.FaultRate(),
		TLBHitRate:   summary.TLBHitRate(),
	})
	if err != nil {
		s.closeRecorder()
		return err
	}

	return s.dataRecorder.Close()
}

func (s *Simulation) closeRecorder() {
	if s.dataRecorder != nil {
		_ = s.dataRecorder.Close()
	}
}
