package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/gritvcs/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newLogCmd() *cobra.Command {
	var oneline bool
	var limit int

	cmd := &cobra.Command{
		Use:   "log [revision]",
		Short: "Show commit history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			rev := "HEAD"
			if len(args) == 1 {
				rev = args[0]
			}
			start, err := r.ResolveCommit(rev)
			if err != nil {
				return fmt.Errorf("cannot resolve %q: %w", rev, err)
			}

			walk, err := r.NewAncestryWalk(start)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			shown := 0
			for limit <= 0 || shown < limit {
				h, c, ok, err := walk.Next()
				if err != nil {
					return err
				}
				if !ok {
					break
				}
				shown++

				if oneline {
					subject, _, _ := strings.Cut(c.Message, "\n")
					fmt.Fprintf(out, "%s %s\n", shortHash(string(h)), subject)
					continue
				}

				fmt.Fprintf(out, "commit %s\n", h)
				if len(c.Parents) > 1 {
					parents := make([]string, len(c.Parents))
					for i, p := range c.Parents {
						parents[i] = shortHash(string(p))
					}
					fmt.Fprintf(out, "Merge: %s\n", strings.Join(parents, " "))
				}
				fmt.Fprintf(out, "Author: %s\n", c.Author)
				fmt.Fprintf(out, "Date:   %s\n", time.Unix(c.Timestamp, 0).Format(time.RFC1123))
				fmt.Fprintf(out, "\n    %s\n\n", strings.ReplaceAll(strings.TrimRight(c.Message, "\n"), "\n", "\n    "))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&oneline, "oneline", false, "one line per commit")
	cmd.Flags().IntVarP(&limit, "max-count", "n", 0, "limit the number of commits shown")

	return cmd
}
