// Package monitoring turns a running simulation into a small web server that
// reports its progress.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"

	// Enable profiling
	_ "net/http/pprof"
	"os"
	"runtime/pprof"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/sim"
)

// A Component is anything the monitor can show the state of.
type Component interface {
	Name() string
}

// Stats are the counters of the monitored run.
type Stats struct {
	Translations uint64  `json:"translations"`
	PageFaults   uint64  `json:"page_faults"`
	TLBHits      uint64  `json:"tlb_hits"`
	FaultRate    float64 `json:"fault_rate"`
	TLBHitRate   float64 `json:"tlb_hit_rate"`
}

// Monitor can turn a simulation into a server and allows external monitoring
// of the simulation.
//
// The translation engine is single-threaded. The monitor never touches the
// engine while it runs: counters are copied in by a hook on the engine's
// goroutine, and component state is only served after Freeze.
type Monitor struct {
	portNumber      int
	profileDuration time.Duration
	idGenerator     sim.IDGenerator

	components []Component
	frozen     atomic.Bool

	statsLock sync.Mutex
	stats     Stats

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	server *http.Server
}

// minPortNumber is the lowest port the monitoring server may be bound to.
// Lower ports are privileged.
const minPortNumber = 1024

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		profileDuration: time.Second,
		idGenerator:     sim.NewSequentialIDGenerator(),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < minPortNumber {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterComponent registers a component to be inspected after the run.
func (m *Monitor) RegisterComponent(c Component) {
	m.components = append(m.components, c)
}

// Freeze marks the end of the run. Component state can be served from now on.
func (m *Monitor) Freeze() {
	m.frozen.Store(true)
}

// Func updates the counters from a translation hook.
func (m *Monitor) Func(ctx sim.HookCtx) {
	if ctx.Pos != mmu.HookPosTranslated {
		return
	}

	t := ctx.Item.(mmu.Translation)

	m.statsLock.Lock()
	defer m.statsLock.Unlock()

	m.stats.Translations++

	switch t.Outcome {
	case mmu.TLBHit:
		m.stats.TLBHits++
	case mmu.PageFault:
		m.stats.PageFaults++
	}
}

// Stats returns a copy of the counters.
func (m *Monitor) Stats() Stats {
	m.statsLock.Lock()
	defer m.statsLock.Unlock()

	s := m.stats
	if s.Translations > 0 {
		s.FaultRate = float64(s.PageFaults) / float64(s.Translations)
		s.TLBHitRate = float64(s.TLBHits) / float64(s.Translations)
	}

	return s
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        m.idGenerator.Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the HTTP handler of the monitor.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/summary", m.summary)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.HandleFunc("/api/list_components", m.listComponents)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails)
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", m.listenAddress())
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("monitoring server: %v", err)
		}
	}()

	return url, nil
}

func (m *Monitor) listenAddress() string {
	if m.portNumber >= minPortNumber {
		return fmt.Sprintf(":%d", m.portNumber)
	}

	return ":0"
}

// StopServer shuts the web server down.
func (m *Monitor) StopServer(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

func (m *Monitor) summary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, m.Stats())
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressBarRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	process, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		httpError(w, err)
		return
	}

	cpuPercent, err := process.CPUPercent()
	if err != nil {
		httpError(w, err)
		return
	}

	memoryInfo, err := process.MemoryInfo()
	if err != nil {
		httpError(w, err)
		return
	}

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		httpError(w, err)
		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		httpError(w, err)
		return
	}

	writeJSON(w, prof)
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(m.components))
	for _, c := range m.components {
		names = append(names, c.Name())
	}

	writeJSON(w, names)
}

func (m *Monitor) listComponentDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	component := m.findComponentOr404(w, name)
	if component == nil {
		return
	}

	if !m.frozen.Load() {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, "Simulation is still running")

		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(1)

	err := serializer.Serialize(w)
	if err != nil {
		log.Printf("serializing %s: %v", name, err)
	}
}

func (m *Monitor) findComponentOr404(
	w http.ResponseWriter,
	name string,
) Component {
	for _, c := range m.components {
		if c.Name() == name {
			return c
		}
	}

	w.WriteHeader(http.StatusNotFound)
	fmt.Fprint(w, "Component not found")

	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	if err != nil {
		httpError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(bytes)
	if err != nil {
		log.Printf("monitoring: %v", err)
	}
}

func httpError(w http.ResponseWriter, err error) {
	w.WriteHeader(http.StatusInternalServerError)
	fmt.Fprintf(w, "Error: %s", err)
}
