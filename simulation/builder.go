package simulation

import (
	"log"

	"github.com/sarchlab/vmsim/datarecording"
	"github.com/sarchlab/vmsim/mem/backingstore"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/monitoring"
	"github.com/sarchlab/vmsim/sim"
	"github.com/sarchlab/vmsim/tracing"
)

// Builder can be used to build a simulation.
type Builder struct {
	backingStore   backingstore.BackingStore
	tlbSize        int
	numFrames      int
	recordOn       bool
	outputFileName string
	monitorOn      bool
	monitorPort    int
	logger         *log.Logger
	idGenerator    sim.IDGenerator
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		tlbSize:   16,
		numFrames: vm.NumFrames,
	}
}

// WithBackingStore sets the store that pages are loaded from.
func (b Builder) WithBackingStore(bs backingstore.BackingStore) Builder {
	b.backingStore = bs
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

// WithRecording records every translation into a SQLite database. An empty
// file name selects a unique name.
func (b Builder) WithRecording(outputFileName string) Builder {
	b.recordOn = true
	b.outputFileName = outputFileName

	return b
}

// WithMonitoring serves the progress of the simulation over HTTP.
func (b Builder) WithMonitoring() Builder {
	b.monitorOn = true
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithLogger logs TLB and page fault events to the logger.
func (b Builder) WithLogger(logger *log.Logger) Builder {
	b.logger = logger
	return b
}

// WithIDGenerator sets how the simulation ID is generated.
func (b Builder) WithIDGenerator(g sim.IDGenerator) Builder {
	b.idGenerator = g
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.backingStore == nil {
		panic("backing store is not set")
	}

	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}
}

// Build builds the simulation. Every simulation owns fresh translation state.
func (b Builder) Build() (*Simulation, error) {
	b.parametersMustBeValid()

	idGenerator := b.idGenerator
	if idGenerator == nil {
		idGenerator = sim.NewXIDGenerator()
	}

	s := &Simulation{
		id: idGenerator.Generate(),
	}

	s.mmu = mmu.MakeBuilder().
		WithBackingStore(b.backingStore).
		WithTLBSize(b.tlbSize).
		WithNumFrames(b.numFrames).
		Build("MMU")

	if b.logger != nil {
		s.mmu.AcceptHook(tracing.NewLogHook(b.logger))
	}

	err := b.buildRecorder(s)
	if err != nil {
		return nil, err
	}

	if b.monitorOn {
		err = b.buildMonitor(s)
		if err != nil {
			s.closeRecorder()
			return nil, err
		}
	}

	return s, nil
}

func (b Builder) buildRecorder(s *Simulation) error {
	if !b.recordOn {
		return nil
	}

	outputPath := b.outputFileName
	if outputPath == "" {
		outputPath = "vmsim_" + s.id
	}

	recorder, err := datarecording.New(outputPath)
	if err != nil {
		return err
	}

	tracer, err := tracing.NewTranslationTracer(recorder, s.id)
	if err != nil {
		recorder.Close()
		return err
	}

	err = recorder.CreateTable(SummaryTableName, summaryEntry{})
	if err != nil {
		recorder.Close()
		return err
	}

	s.dataRecorder = recorder
	s.tracer = tracer
	s.mmu.AcceptHook(tracer)

	return nil
}

func (b Builder) buildMonitor(s *Simulation) error {
	s.monitor = monitoring.NewMonitor()
	if b.monitorPort > 0 {
		s.monitor.WithPortNumber(b.monitorPort)
	}

	s.monitor.RegisterComponent(s.mmu)
	s.monitor.RegisterComponent(s.mmu.TLB())
	s.mmu.AcceptHook(s.monitor)

	url, err := s.monitor.StartServer()
	if err != nil {
		return err
	}

	s.monitorURL = url

	return nil
}
