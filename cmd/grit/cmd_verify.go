package main

import (
	"fmt"

	"github.com/gritvcs/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check repository integrity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			report, err := r.Verify()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "reachable objects:   %d\n", report.Reachable)
			fmt.Fprintf(out, "unreachable objects: %d\n", report.Unreachable)
			for _, m := range report.Missing {
				fmt.Fprintf(out, "missing: %s\n", m)
			}
			for _, c := range report.Corrupt {
				fmt.Fprintf(out, "corrupt: %s\n", c)
			}

			if !report.OK() {
				return fmt.Errorf("repository verification failed (%d missing, %d corrupt)",
					len(report.Missing), len(report.Corrupt))
			}
			fmt.Fprintln(out, "ok")
			return nil
		},
	}
}
