// Package tracing provides hooks that observe the translation engine.
package tracing

import (
	"github.com/sarchlab/vmsim/datarecording"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/sim"
)

// TranslationTableName is the table that TranslationTracer writes to.
const TranslationTableName = "translations"

type translationEntry struct {
	RunID           string
	Seq             uint64
	LogicalAddress  uint32
	Page            uint32
	Offset          uint32
	Frame           uint32
	PhysicalAddress uint32
	Value           int16
	Outcome         string
}

// TranslationTracer records every completed translation into a
// DataRecorder.
type TranslationTracer struct {
	backend datarecording.DataRecorder
	runID   string
	seq     uint64
	err     error
}

// NewTranslationTracer creates the translation table and returns a tracer
// that fills it.
func NewTranslationTracer(
	backend datarecording.DataRecorder,
	runID string,
) (*TranslationTracer, error) {
	err := backend.CreateTable(TranslationTableName, translationEntry{})
	if err != nil {
		return nil, err
	}

	return &TranslationTracer{
		backend: backend,
		runID:   runID,
	}, nil
}

// Func records the translation carried by a HookPosTranslated context.
func (t *TranslationTracer) Func(ctx sim.HookCtx) {
	if ctx.Pos != mmu.HookPosTranslated || t.err != nil {
		return
	}

	tr := ctx.Item.(mmu.Translation)
	t.seq++

	t.err = t.backend.InsertData(TranslationTableName, translationEntry{
		RunID:           t.runID,
		Seq:             t.seq,
		LogicalAddress:  uint32(tr.LogicalAddress),
		Page:            uint32(tr.Page),
		Offset:          tr.Offset,
		Frame:           uint32(tr.Frame),
		PhysicalAddress: tr.PhysicalAddress,
		Value:           tr.Value,
		Outcome:         tr.Outcome.String(),
	})
}

// NumRecorded returns the number of translations recorded.
func (t *TranslationTracer) NumRecorded() uint64 {
	return t.seq
}

// Err returns the first error met while recording. Recording stops after an
// error.
func (t *TranslationTracer) Err() error {
	return t.err
}
