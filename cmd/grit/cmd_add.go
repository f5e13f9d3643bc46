package main

import (
	"fmt"

	"github.com/gritvcs/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>...",
		Short: "Stage file contents for the next commit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			if err := r.Add(args); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "staged %d path(s)\n", len(args))
			return nil
		},
	}
}
