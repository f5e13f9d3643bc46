package main

import (
	"fmt"

	"github.com/gritvcs/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newCheckoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkout <branch|revision>",
		Short: "Switch branches or check out a commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			target := args[0]
			if err := r.Checkout(target); err != nil {
				return err
			}

			branch, err := r.CurrentBranch()
			if err == nil && branch != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "switched to branch '%s'\n", branch)
				return nil
			}
			head, err := r.Head()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "HEAD is now at %s\n", shortHash(head))
			return nil
		},
	}
}
