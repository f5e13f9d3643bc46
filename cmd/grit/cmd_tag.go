package main

import (
	"fmt"

	"github.com/gritvcs/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newTagCmd() *cobra.Command {
	var annotate bool
	var message string
	var deleteTag string
	var force bool

	cmd := &cobra.Command{
		Use:   "tag [name] [revision]",
		Short: "List, create, or delete tags",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			// Delete mode.
			if deleteTag != "" {
				if err := r.DeleteTag(deleteTag); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted tag '%s'\n", deleteTag)
				return nil
			}

			// List mode.
			if len(args) == 0 {
				tags, err := r.ListTags()
				if err != nil {
					return err
				}
				for _, t := range tags {
					fmt.Fprintln(cmd.OutOrStdout(), t)
				}
				return nil
			}

			// Create mode.
			name := args[0]
			rev := "HEAD"
			if len(args) == 2 {
				rev = args[1]
			}
			target, err := r.ResolveRevision(rev)
			if err != nil {
				return fmt.Errorf("cannot resolve %q: %w", rev, err)
			}

			if annotate {
				h, err := r.CreateAnnotatedTag(name, target, r.Config.Identity(), message, force)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "tag '%s' -> %s\n", name, shortHash(string(h)))
				return nil
			}
			if err := r.CreateTag(name, target, force); err != nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&annotate, "annotate", "a", false, "create an annotated tag object")
	cmd.Flags().StringVarP(&message, "message", "m", "", "annotated tag message")
	cmd.Flags().StringVarP(&deleteTag, "delete", "d", "", "delete the named tag")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing tag")

	return cmd
}
