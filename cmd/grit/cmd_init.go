package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gritvcs/grit/pkg/object"
	"github.com/gritvcs/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var hashName string

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Create an empty grit repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}

			abs, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}

			algo, err := object.ParseAlgorithm(hashName)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(abs, 0o755); err != nil {
				return fmt.Errorf("create directory: %w", err)
			}

			r, err := repo.Init(abs, algo)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "initialized empty grit repository in %s\n", filepath.Join(r.RootDir, ".grit")+string(filepath.Separator))
			return nil
		},
	}

	cmd.Flags().StringVar(&hashName, "hash", string(object.SHA256), "object hash algorithm (sha256 or sha1)")

	return cmd
}
