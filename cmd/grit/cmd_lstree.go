package main

import (
	"fmt"
	"path"

	"github.com/gritvcs/grit/pkg/object"
	"github.com/gritvcs/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newLsTreeCmd() *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "ls-tree <revision>",
		Short: "List the contents of a tree object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			hash, err := r.ResolveRevision(args[0])
			if err != nil {
				return fmt.Errorf("cannot resolve %q: %w", args[0], err)
			}
			treeHash, err := treeHashFor(r, hash)
			if err != nil {
				return err
			}

			return printTree(cmd, r, treeHash, "", recursive)
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "recurse into subtrees")

	return cmd
}

// treeHashFor peels a revision down to a tree: commits yield their root
// tree, tags are peeled to their target first.
func treeHashFor(r *repo.Repo, hash object.Hash) (object.Hash, error) {
	objType, _, err := r.Store.Read(hash)
	if err != nil {
		return "", err
	}

	switch objType {
	case object.TypeTree:
		return hash, nil
	case object.TypeCommit:
		commit, err := r.Store.ReadCommit(hash)
		if err != nil {
			return "", err
		}
		return commit.TreeHash, nil
	case object.TypeTag:
		peeled, err := r.ResolveCommit(string(hash))
		if err != nil {
			return "", err
		}
		commit, err := r.Store.ReadCommit(peeled)
		if err != nil {
			return "", err
		}
		return commit.TreeHash, nil
	}
	return "", fmt.Errorf("object %s is a %s, not a tree", hash, objType)
}

func printTree(cmd *cobra.Command, r *repo.Repo, treeHash object.Hash, prefix string, recursive bool) error {
	tree, err := r.Store.ReadTree(treeHash)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, e := range tree.Entries {
		name := e.Name
		if prefix != "" {
			name = path.Join(prefix, e.Name)
		}

		if e.IsDir {
			if recursive {
				if err := printTree(cmd, r, e.SubtreeHash, name, true); err != nil {
					return err
				}
				continue
			}
			fmt.Fprintf(out, "%s %s %s\t%s\n", e.Mode, object.TypeTree, e.SubtreeHash, name)
			continue
		}
		fmt.Fprintf(out, "%s %s %s\t%s\n", e.Mode, object.TypeBlob, e.BlobHash, name)
	}
	return nil
}
