package main

import (
	"fmt"

	"github.com/gritvcs/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newRevParseCmd() *cobra.Command {
	var peel bool

	cmd := &cobra.Command{
		Use:   "rev-parse <revision>",
		Short: "Resolve a revision to a full object hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			if peel {
				hash, err := r.ResolveCommit(args[0])
				if err != nil {
					return fmt.Errorf("cannot resolve %q: %w", args[0], err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), hash)
				return nil
			}

			hash, err := r.ResolveRevision(args[0])
			if err != nil {
				return fmt.Errorf("cannot resolve %q: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}

	cmd.Flags().BoolVar(&peel, "commit", false, "peel annotated tags down to the commit")

	return cmd
}
