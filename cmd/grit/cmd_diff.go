package main

import (
	"fmt"

	"github.com/gritvcs/grit/pkg/diff"
	"github.com/gritvcs/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newDiffCmd() *cobra.Command {
	var nameStatus bool

	cmd := &cobra.Command{
		Use:   "diff [revision] [revision]",
		Short: "Show changes between commits, or between HEAD and the index",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			var before, after repo.Snapshot
			switch len(args) {
			case 0:
				// Staged changes relative to HEAD.
				before, err = revisionSnapshot(r, "HEAD")
				if err != nil {
					return err
				}
				after, err = stagingSnapshot(r)
			case 1:
				before, err = revisionSnapshot(r, args[0])
				if err != nil {
					return err
				}
				after, err = stagingSnapshot(r)
			case 2:
				before, err = revisionSnapshot(r, args[0])
				if err != nil {
					return err
				}
				after, err = revisionSnapshot(r, args[1])
			}
			if err != nil {
				return err
			}

			changes := repo.DiffSnapshots(before, after)
			out := cmd.OutOrStdout()

			if nameStatus {
				for _, c := range changes {
					fmt.Fprintf(out, "%s\t%s\n", changeCode(c.Kind), c.Path)
				}
				return nil
			}

			for _, c := range changes {
				text, err := renderChange(r, before, after, c)
				if err != nil {
					return err
				}
				fmt.Fprint(out, text)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&nameStatus, "name-status", false, "show only change kinds and paths")

	return cmd
}

// revisionSnapshot flattens the tree of the commit a revision resolves to.
// An unborn HEAD yields an empty snapshot so the first staged files show
// up as additions.
func revisionSnapshot(r *repo.Repo, rev string) (repo.Snapshot, error) {
	commitHash, err := r.ResolveCommit(rev)
	if err != nil {
		if rev == "HEAD" {
			return repo.Snapshot{}, nil
		}
		return nil, fmt.Errorf("cannot resolve %q: %w", rev, err)
	}
	commit, err := r.Store.ReadCommit(commitHash)
	if err != nil {
		return nil, err
	}
	return r.FlattenTree(commit.TreeHash)
}

func stagingSnapshot(r *repo.Repo) (repo.Snapshot, error) {
	stg, err := r.ReadStaging()
	if err != nil {
		return nil, err
	}
	snap := make(repo.Snapshot, len(stg.Entries))
	for path, e := range stg.Entries {
		snap[path] = repo.SnapshotEntry{BlobHash: e.BlobHash, Mode: e.Mode}
	}
	return snap, nil
}

func renderChange(r *repo.Repo, before, after repo.Snapshot, c repo.Change) (string, error) {
	switch c.Kind {
	case repo.Added:
		blob, err := r.Store.ReadBlob(after[c.Path].BlobHash)
		if err != nil {
			return "", err
		}
		return diff.UnifiedAgainstEmpty(c.Path, blob.Data, true)

	case repo.Removed:
		blob, err := r.Store.ReadBlob(before[c.Path].BlobHash)
		if err != nil {
			return "", err
		}
		return diff.UnifiedAgainstEmpty(c.Path, blob.Data, false)

	default:
		oldBlob, err := r.Store.ReadBlob(before[c.Path].BlobHash)
		if err != nil {
			return "", err
		}
		newBlob, err := r.Store.ReadBlob(after[c.Path].BlobHash)
		if err != nil {
			return "", err
		}
		return diff.Unified(c.Path, oldBlob.Data, newBlob.Data)
	}
}

func changeCode(k repo.ChangeKind) string {
	switch k {
	case repo.Added:
		return "A"
	case repo.Removed:
		return "D"
	default:
		return "M"
	}
}
