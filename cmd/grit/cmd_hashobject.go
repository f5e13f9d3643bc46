package main

import (
	"fmt"
	"os"

	"github.com/gritvcs/grit/pkg/object"
	"github.com/gritvcs/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newHashObjectCmd() *cobra.Command {
	var write bool
	var objType string

	cmd := &cobra.Command{
		Use:   "hash-object <file>...",
		Short: "Compute the object hash for files, optionally storing them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			kind := object.ObjectType(objType)
			if !object.KnownType(kind) {
				return fmt.Errorf("unknown object type %q", objType)
			}

			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}

				var hash object.Hash
				if write {
					hash, err = r.Store.Write(kind, data)
					if err != nil {
						return err
					}
				} else {
					hash = r.Algorithm().HashObject(kind, data)
				}
				fmt.Fprintln(cmd.OutOrStdout(), hash)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "store the object instead of only hashing")
	cmd.Flags().StringVarP(&objType, "type", "t", "blob", "object type to hash as")

	return cmd
}
