package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/vmsim/mem/backingstore"
)

func newGenStoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gen-store <path>",
		Short: "Write a backing store in which byte i holds i % 256.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := backingstore.GenerateFile(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Backing store written to %s\n", args[0])

			return nil
		},
	}
}
