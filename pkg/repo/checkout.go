package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gritvcs/grit/pkg/object"
)

// Checkout switches the working directory to the state of the target.
// The target can be a branch name or any revision (hash, prefix, tag).
//
// Algorithm:
//  1. Check for uncommitted changes — refuse if any exist.
//  2. Resolve target: branch name first, then as a revision.
//  3. Read the target commit, flatten its tree.
//  4. Remove all tracked files (files in current HEAD tree + staging).
//  5. Write all files from the target snapshot to the working directory.
//  6. Rewrite staging to match the new tree.
//  7. Update HEAD (symbolic ref for a branch, locked CAS write for
//     detached) and log the transition in the HEAD reflog.
func (r *Repo) Checkout(target string) error {
	if err := r.ensureClean(); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	isBranch := false
	var targetHash object.Hash

	branchHash, err := r.ReadRef("refs/heads/" + target)
	if err == nil {
		targetHash = branchHash
		isBranch = true
	} else {
		targetHash, err = r.ResolveCommit(target)
		if err != nil {
			return fmt.Errorf("checkout: %w", err)
		}
	}

	commit, err := r.Store.ReadCommit(targetHash)
	if err != nil {
		return fmt.Errorf("checkout: cannot read commit %s: %w", targetHash, err)
	}

	snap, err := r.FlattenTree(commit.TreeHash)
	if err != nil {
		return fmt.Errorf("checkout: flatten target tree: %w", err)
	}

	// Remove everything currently tracked; the target snapshot is written
	// fresh below.
	for path := range r.trackedFiles() {
		absPath := filepath.Join(r.RootDir, filepath.FromSlash(path))
		if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("checkout: remove %q: %w", path, err)
		}
		r.removeEmptyParents(filepath.Dir(absPath))
	}

	for _, path := range snap.Paths() {
		entry := snap[path]
		absPath := filepath.Join(r.RootDir, filepath.FromSlash(path))

		if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
			return fmt.Errorf("checkout: mkdir for %q: %w", path, err)
		}

		blob, err := r.Store.ReadBlob(entry.BlobHash)
		if err != nil {
			return fmt.Errorf("checkout: read blob for %q: %w", path, err)
		}
		if err := os.WriteFile(absPath, blob.Data, filePermFromMode(entry.Mode)); err != nil {
			return fmt.Errorf("checkout: write %q: %w", path, err)
		}
	}

	// Rebuild staging from the target snapshot.
	stg := &Staging{Entries: make(map[string]*StagingEntry, len(snap))}
	for path, entry := range snap {
		absPath := filepath.Join(r.RootDir, filepath.FromSlash(path))
		info, err := os.Stat(absPath)
		if err != nil {
			return fmt.Errorf("checkout: stat %q: %w", path, err)
		}
		blob, err := r.Store.ReadBlob(entry.BlobHash)
		if err != nil {
			return fmt.Errorf("checkout: read blob for %q: %w", path, err)
		}

		stg.Entries[path] = &StagingEntry{
			Path:        path,
			BlobHash:    entry.BlobHash,
			Mode:        entry.Mode,
			Size:        info.Size(),
			ModTime:     info.ModTime().UnixNano(),
			Fingerprint: Fingerprint(blob.Data),
		}
	}
	if err := r.WriteStaging(stg); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	// Record where HEAD pointed before the switch so the transition shows
	// up in the HEAD reflog.
	oldHead, err := r.ReadRef("HEAD")
	if err != nil && !errors.Is(err, ErrDanglingRef) {
		return fmt.Errorf("checkout: read HEAD: %w", err)
	}

	if isBranch {
		if err := r.WriteSymbolicRef("HEAD", "refs/heads/"+target); err != nil {
			return fmt.Errorf("checkout: update HEAD: %w", err)
		}
		if err := r.appendReflog("HEAD", oldHead, targetHash, "checkout: moving to "+target); err != nil {
			return fmt.Errorf("checkout: %w", err)
		}
		return nil
	}
	if err := r.updateRefCASReason("HEAD", targetHash, "checkout: moving to "+target); err != nil {
		return fmt.Errorf("checkout: update HEAD: %w", err)
	}
	return nil
}

// ensureClean checks that the working tree has no uncommitted changes.
func (r *Repo) ensureClean() error {
	entries, err := r.Status()
	if err != nil {
		return fmt.Errorf("check status: %w", err)
	}

	for _, e := range entries {
		if e.IndexStatus != StatusClean || e.WorkStatus != StatusClean {
			return fmt.Errorf("working tree is not clean (file %q has uncommitted changes)", e.Path)
		}
	}
	return nil
}

// trackedFiles returns a set of all currently tracked file paths, merging
// the HEAD tree and the staging index.
func (r *Repo) trackedFiles() map[string]bool {
	files := make(map[string]bool)

	for path := range r.headSnapshot() {
		files[path] = true
	}
	stg, err := r.ReadStaging()
	if err == nil {
		for path := range stg.Entries {
			files[path] = true
		}
	}
	return files
}

// removeEmptyParents removes empty directories up to (but not including)
// the repository root.
func (r *Repo) removeEmptyParents(dir string) {
	for {
		if dir == r.RootDir || !strings.HasPrefix(dir, r.RootDir) {
			return
		}

		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}

		os.Remove(dir)
		dir = filepath.Dir(dir)
	}
}
