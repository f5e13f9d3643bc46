package main

import (
	"fmt"
	"time"

	"github.com/gritvcs/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newReflogCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "reflog [ref]",
		Short: "Show the recorded history of a reference",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			entries, err := r.ReadReflog(ref, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, e := range entries {
				when := time.Unix(e.Timestamp, 0).Format("2006-01-02 15:04:05")
				fmt.Fprintf(out, "%s %s@{%d}: %s (%s)\n",
					shortHash(string(e.NewHash)), e.Ref, i, e.Reason, when)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "max-count", "n", 0, "limit the number of entries shown")

	return cmd
}
