package main

import (
	"fmt"

	"github.com/gritvcs/grit/pkg/object"
	"github.com/gritvcs/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newCatFileCmd() *cobra.Command {
	var showType bool
	var showSize bool

	cmd := &cobra.Command{
		Use:   "cat-file <revision>",
		Short: "Show the content, type, or size of a stored object",
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

			objType, data, err := r.Store.Read(hash)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case showType:
				fmt.Fprintln(out, objType)
			case showSize:
				fmt.Fprintln(out, len(data))
			default:
				return prettyPrintObject(cmd, r, hash, objType, data)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&showType, "type", "t", false, "show the object type")
	cmd.Flags().BoolVarP(&showSize, "size", "s", false, "show the payload size in bytes")

	return cmd
}

func prettyPrintObject(cmd *cobra.Command, r *repo.Repo, hash object.Hash, objType object.ObjectType, data []byte) error {
	out := cmd.OutOrStdout()

	switch objType {
	case object.TypeBlob:
		_, err := out.Write(data)
		return err

	case object.TypeTree:
		tree, err := object.UnmarshalTree(data, r.Algorithm())
		if err != nil {
			return err
		}
		for _, e := range tree.Entries {
			kind := object.TypeBlob
			if e.IsDir {
				kind = object.TypeTree
			}
			fmt.Fprintf(out, "%s %s %s\t%s\n", e.Mode, kind, e.Target(), e.Name)
		}
		return nil

	case object.TypeCommit:
		commit, err := object.UnmarshalCommit(data)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "tree %s\n", commit.TreeHash)
		for _, p := range commit.Parents {
			fmt.Fprintf(out, "parent %s\n", p)
		}
		fmt.Fprintf(out, "author %s %d %s\n", commit.Author, commit.Timestamp, commit.Timezone)
		if commit.Signature != "" {
			fmt.Fprintf(out, "signature %s\n", commit.Signature)
		}
		fmt.Fprintf(out, "\n%s\n", commit.Message)
		return nil

	case object.TypeTag:
		tag, err := object.UnmarshalTag(data)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "object %s\n", tag.TargetHash)
		fmt.Fprintf(out, "type %s\n", tag.TargetType)
		fmt.Fprintf(out, "tag %s\n", tag.Name)
		fmt.Fprintf(out, "tagger %s %d %s\n", tag.Tagger, tag.Timestamp, tag.Timezone)
		fmt.Fprintf(out, "\n%s\n", tag.Message)
		return nil
	}
	return fmt.Errorf("unknown object type %q for %s", objType, hash)
}
