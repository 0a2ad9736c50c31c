// Package cmd provides the command-line interface for vmsim.
package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// NewRootCmd creates the vmsim command with all its subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use: "vmsim",
		Short: "vmsim simulates the translation of logical addresses " +
			"through a TLB and a page table.",
		Long: `vmsim simulates the translation of logical addresses ` +
			`through a TLB and a page table. Pages are loaded on demand ` +
			`from a backing store into physical memory. Defaults can be ` +
			`set in a .env file or with VMSIM_* environment variables.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newGenStoreCmd())

	return rootCmd
}

// Execute runs the root command and exits the process. The exit goes through
// atexit so that recorders are flushed.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := NewRootCmd().ExecuteContext(ctx)

	stop()

	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
