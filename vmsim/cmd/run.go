package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/sarchlab/vmsim/mem/backingstore"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/simulation"
	"github.com/sarchlab/vmsim/workload"
)

type runOptions struct {
	backingStore  string
	tlbSize       int
	skipMalformed bool
	record        bool
	recordFile    string
	monitor       bool
	monitorPort   int
	openBrowser   bool
	verbose       bool
	quiet         bool
}

func newRunCmd() *cobra.Command {
	opts := runOptions{}

	runCmd := &cobra.Command{
		Use:   "run <address-file>",
		Short: "Translate every address in a file.",
		Long: "`run addresses.txt` translates the logical addresses in the " +
			"file, one per line, and prints the physical address and the " +
			"value stored there, followed by the fault and TLB statistics.",
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return applyConfigDefaults(cmd, &opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslation(cmd, args[0], opts)
		},
	}

	flags := runCmd.Flags()
	flags.StringVar(&opts.backingStore, "backing-store", defaultBackingStore,
		"The file that pages are loaded from (env "+envBackingStore+").")
	flags.IntVar(&opts.tlbSize, "tlb-size", 16,
		"The number of TLB entries (env "+envTLBSize+").")
	flags.BoolVar(&opts.skipMalformed, "skip-malformed", false,
		"Skip malformed address lines with a warning instead of failing.")
	flags.BoolVar(&opts.record, "record", false,
		"Record every translation into a SQLite database.")
	flags.StringVar(&opts.recordFile, "record-file", "",
		"The database to record into; implies --record (env "+envRecordFile+").")
	flags.BoolVar(&opts.monitor, "monitor", false,
		"Serve the progress of the run over HTTP and keep serving "+
			"until interrupted.")
	flags.IntVar(&opts.monitorPort, "monitor-port", 0,
		"The port of the monitoring server (env "+envMonitorPort+").")
	flags.BoolVar(&opts.openBrowser, "open-browser", false,
		"Open the monitoring page in a browser; implies --monitor.")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false,
		"Log TLB hits, misses, and page faults to stderr.")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false,
		"Only print the final statistics.")

	return runCmd
}

func applyConfigDefaults(cmd *cobra.Command, opts *runOptions) error {
	c, err := loadConfig(".env")
	if err != nil {
		return err
	}

	flags := cmd.Flags()

	if !flags.Changed("backing-store") {
		opts.backingStore = c.BackingStore
	}

	if !flags.Changed("tlb-size") {
		opts.tlbSize = c.TLBSize
	}

	if !flags.Changed("record-file") {
		opts.recordFile = c.RecordFile
	}

	if !flags.Changed("monitor-port") {
		opts.monitorPort = c.MonitorPort
	}

	if opts.tlbSize < 0 {
		return fmt.Errorf("--tlb-size must not be negative, got %d",
			opts.tlbSize)
	}

	if opts.recordFile != "" {
		opts.record = true
	}

	if opts.openBrowser || flags.Changed("monitor-port") {
		opts.monitor = true
	}

	return nil
}

func runTranslation(cmd *cobra.Command, addressFile string, opts runOptions) error {
	bs, err := backingstore.Open(opts.backingStore)
	if err != nil {
		return err
	}
	defer bs.Close()

	f, err := os.Open(addressFile)
	if err != nil {
		return fmt.Errorf("opening address file: %w", err)
	}
	defer f.Close()

	s, err := buildSimulation(cmd, bs, opts)
	if err != nil {
		return err
	}
	defer stopMonitor(s)

	r := workload.NewReader(f)
	if opts.skipMalformed {
		r.SkipMalformed(log.New(cmd.ErrOrStderr(), "warning: ", 0))
	}

	out := cmd.OutOrStdout()
	onTranslation := func(t mmu.Translation) { printTranslation(out, t) }
	if opts.quiet {
		onTranslation = nil
	}

	summary, runErr := s.Run(cmd.Context(), r, onTranslation)

	err = s.Terminate()
	if runErr != nil {
		return runErr
	}

	if err != nil {
		return err
	}

	printSummary(out, summary)

	if s.Monitor() != nil {
		waitForInterrupt(cmd, s)
	}

	return nil
}

func buildSimulation(
	cmd *cobra.Command,
	bs backingstore.BackingStore,
	opts runOptions,
) (*simulation.Simulation, error) {
	b := simulation.MakeBuilder().
		WithBackingStore(bs).
		WithTLBSize(opts.tlbSize)

	if opts.record {
		b = b.WithRecording(opts.recordFile)
	}

	if opts.monitor {
		b = b.WithMonitoring().WithMonitorPort(opts.monitorPort)
	}

	if opts.verbose {
		b = b.WithLogger(log.New(cmd.ErrOrStderr(), "", log.Lmicroseconds))
	}

	s, err := b.Build()
	if err != nil {
		return nil, err
	}

	if opts.openBrowser {
		openInBrowser(cmd.ErrOrStderr(), s.MonitorURL()+"/api/summary")
	}

	return s, nil
}

func openInBrowser(w io.Writer, url string) {
	err := browser.OpenURL(url)
	if err != nil {
		fmt.Fprintf(w, "Cannot open %s in a browser: %v\n", url, err)
	}
}

func waitForInterrupt(cmd *cobra.Command, s *simulation.Simulation) {
	fmt.Fprintf(cmd.ErrOrStderr(),
		"Run finished. Monitoring at %s, press Ctrl+C to exit.\n",
		s.MonitorURL())

	<-cmd.Context().Done()
}

func stopMonitor(s *simulation.Simulation) {
	if s.Monitor() == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.Monitor().StopServer(ctx)
	if err != nil {
		log.Printf("stopping monitoring server: %v", err)
	}
}
