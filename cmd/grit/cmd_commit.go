package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/gritvcs/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newCommitCmd() *cobra.Command {
	var message string
	var author string
	var signKey string
	var sign bool

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Record changes to the repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			if message == "" {
				return fmt.Errorf("commit message is required (-m)")
			}

			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			if author == "" {
				author = r.Config.Identity()
				if author == "unknown" {
					if user := os.Getenv("USER"); user != "" {
						author = user
					}
				}
			}

			var signer repo.CommitSigner
			if sign || signKey != "" {
				s, keyPath, err := newSSHCommitSigner(signKey)
				if err != nil {
					return err
				}
				signer = s
				fmt.Fprintf(cmd.OutOrStdout(), "signing with %s\n", keyPath)
			}

			h, err := r.CommitWithSigner(message, author, signer)
			if err != nil {
				return err
			}

			branch := "HEAD"
			head, err := r.Head()
			if err == nil && strings.HasPrefix(head, "refs/heads/") {
				branch = strings.TrimPrefix(head, "refs/heads/")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "[%s %s] %s\n", branch, shortHash(string(h)), message)
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.Flags().StringVar(&author, "author", "", "override author (default: configured user)")
	cmd.Flags().BoolVarP(&sign, "sign", "S", false, "sign the commit with the default SSH key")
	cmd.Flags().StringVar(&signKey, "sign-key", "", "sign the commit with the given SSH private key")

	return cmd
}
