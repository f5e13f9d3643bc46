package main

import (
	"fmt"

	"github.com/gritvcs/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the working tree status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			entries, err := r.Status()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			branch, _ := r.CurrentBranch()
			if branch != "" {
				fmt.Fprintf(out, "On branch %s\n", branch)
			} else {
				fmt.Fprintln(out, "HEAD detached")
			}

			clean := true
			for _, e := range entries {
				if e.IndexStatus == repo.StatusClean && e.WorkStatus == repo.StatusClean {
					continue
				}
				clean = false
				fmt.Fprintf(out, "%s%s %s\n", statusCode(e.IndexStatus), statusCode(e.WorkStatus), e.Path)
			}
			if clean {
				fmt.Fprintln(out, "nothing to commit, working tree clean")
			}
			return nil
		},
	}
}

func statusCode(s repo.FileStatus) string {
	switch s {
	case repo.StatusNew:
		return "A"
	case repo.StatusModified:
		return "M"
	case repo.StatusDeleted:
		return "D"
	case repo.StatusUntracked:
		return "?"
	case repo.StatusDirty:
		return "M"
	default:
		return " "
	}
}
