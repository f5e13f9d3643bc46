package main

import (
	"fmt"

	"github.com/gritvcs/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>...",
		Short: "Remove paths from the staging area",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			if err := r.Remove(args); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "unstaged %d path(s)\n", len(args))
			return nil
		},
	}
}
