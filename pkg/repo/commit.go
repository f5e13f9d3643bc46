package repo

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gritvcs/grit/pkg/object"
)

// CommitSigner signs canonical commit payload bytes and returns an
// encoded signature string to be persisted in CommitObj.Signature.
type CommitSigner func(payload []byte) (string, error)

// Commit creates a new commit from the current staging area.
//
//  1. Read staging
//  2. BuildTree from staging
//  3. Resolve HEAD to get parent commit hash (if any)
//  4. Create CommitObj with tree hash, parent, author, timestamp, message
//  5. Write commit to store
//  6. Update current branch ref to new commit hash
//  7. Return commit hash
//
// The ref update in step 6 is the only mutation of repository-visible
// history and happens strictly last: if it fails, the new commit object
// exists but is unreachable, which is harmless garbage rather than
// half-applied history.
func (r *Repo) Commit(message, author string) (object.Hash, error) {
	return r.CommitWithSigner(message, author, nil)
}

// CommitWithSigner creates a new commit and signs it when signer is
// provided.
func (r *Repo) CommitWithSigner(message, author string, signer CommitSigner) (object.Hash, error) {
	stg, err := r.ReadStaging()
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	if len(stg.Entries) == 0 {
		return "", fmt.Errorf("commit: nothing staged")
	}

	treeHash, err := r.BuildTree(stg)
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	// Resolve HEAD to get the parent. A dangling HEAD target (fresh
	// repository, branch not created yet) means this is the first commit.
	var parents []object.Hash
	parentHash, err := r.ReadRef("HEAD")
	switch {
	case err == nil && parentHash != "":
		parents = append(parents, parentHash)
	case errors.Is(err, ErrDanglingRef):
		parentHash = ""
	case err != nil:
		return "", fmt.Errorf("commit: resolve HEAD: %w", err)
	}

	now := time.Now()
	commitObj := &object.CommitObj{
		TreeHash:  treeHash,
		Parents:   parents,
		Author:    author,
		Timestamp: now.Unix(),
		Timezone:  formatTimezoneOffset(now),
		Message:   message,
	}
	if signer != nil {
		signature, err := signer(object.CommitSigningPayload(commitObj))
		if err != nil {
			return "", fmt.Errorf("commit: sign commit: %w", err)
		}
		commitObj.Signature = signature
	}

	commitHash, err := r.Store.WriteCommit(commitObj)
	if err != nil {
		return "", fmt.Errorf("commit: write commit: %w", err)
	}

	head, err := r.Head()
	if err != nil {
		return "", fmt.Errorf("commit: read HEAD: %w", err)
	}

	// head is either a ref path ("refs/heads/main") or a detached hash.
	if strings.HasPrefix(head, "refs/") {
		if err := r.UpdateRefCAS(head, commitHash, parentHash); err != nil {
			return "", fmt.Errorf("commit: update ref %q: %w", head, err)
		}
	} else {
		// Detached HEAD: update HEAD directly with a CAS against the old hash.
		if err := r.UpdateRefCAS("HEAD", commitHash, object.Hash(strings.TrimSpace(head))); err != nil {
			return "", fmt.Errorf("commit: update detached HEAD: %w", err)
		}
	}

	return commitHash, nil
}

// Log walks ancestry from start and returns up to limit commits,
// newest first. limit <= 0 means no limit.
func (r *Repo) Log(start object.Hash, limit int) ([]*object.CommitObj, error) {
	walk, err := r.NewAncestryWalk(start)
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}

	var commits []*object.CommitObj
	for limit <= 0 || len(commits) < limit {
		_, c, ok, err := walk.Next()
		if err != nil {
			return nil, fmt.Errorf("log: %w", err)
		}
		if !ok {
			break
		}
		commits = append(commits, c)
	}
	return commits, nil
}
