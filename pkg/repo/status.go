package repo

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/gritvcs/grit/pkg/object"
)

// FileStatus represents the state of a file in the working tree or index.
type FileStatus int

const (
	StatusClean     FileStatus = iota // file matches between compared areas
	StatusNew                         // in staging, not in HEAD tree
	StatusModified                    // in staging, different from HEAD
	StatusDeleted                     // in HEAD but not in staging (or staged but gone from disk)
	StatusUntracked                   // in working dir but not in staging
	StatusDirty                       // staged but working copy differs from staged
)

// StatusEntry records the status of a single file.
type StatusEntry struct {
	Path        string     // repo-relative path
	IndexStatus FileStatus // staging vs HEAD comparison
	WorkStatus  FileStatus // working tree vs staging comparison
}

// Status computes the working tree status for the repository.
//
// Algorithm:
//  1. Read staging index.
//  2. Walk the working directory (skipping .grit/ and ignored paths).
//  3. Compare working tree files against staging entries.
//  4. Compare staging entries against the HEAD tree snapshot.
//  5. Return a sorted list of status entries.
func (r *Repo) Status() ([]StatusEntry, error) {
	stg, err := r.ReadStaging()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	workFiles, err := r.scanWorktree()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	result := make(map[string]*StatusEntry)

	// --- Working tree vs staging comparison ---

	for path := range workFiles {
		se, inStaging := stg.Entries[path]
		if !inStaging {
			result[path] = &StatusEntry{
				Path:        path,
				IndexStatus: StatusUntracked,
				WorkStatus:  StatusUntracked,
			}
			continue
		}

		dirty, err := r.worktreeDiffersFromStaged(path, se)
		if err != nil {
			return nil, fmt.Errorf("status: %w", err)
		}
		status := StatusClean
		if dirty {
			status = StatusDirty
		}
		result[path] = &StatusEntry{Path: path, WorkStatus: status}
	}

	// Staged entries missing from disk are deletions in the working tree.
	for path := range stg.Entries {
		if _, onDisk := workFiles[path]; !onDisk {
			result[path] = &StatusEntry{Path: path, WorkStatus: StatusDeleted}
		}
	}

	// --- Staging vs HEAD comparison ---

	headSnap := r.headSnapshot()

	for path, se := range stg.Entries {
		entry, exists := result[path]
		if !exists {
			entry = &StatusEntry{Path: path}
			result[path] = entry
		}

		headEntry, inHead := headSnap[path]
		switch {
		case !inHead:
			entry.IndexStatus = StatusNew
		case se.BlobHash != headEntry.BlobHash || normalizeFileMode(se.Mode) != headEntry.Mode:
			entry.IndexStatus = StatusModified
		default:
			entry.IndexStatus = StatusClean
		}
	}

	for path := range headSnap {
		if _, inStaging := stg.Entries[path]; !inStaging {
			entry, exists := result[path]
			if !exists {
				entry = &StatusEntry{Path: path}
				result[path] = entry
			}
			entry.IndexStatus = StatusDeleted
		}
	}

	entries := make([]StatusEntry, 0, len(result))
	for _, e := range result {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
	return entries, nil
}

// scanWorktree lists all regular files under the repository root that are
// not ignored, keyed by repo-relative forward-slash path.
func (r *Repo) scanWorktree() (map[string]bool, error) {
	ic := NewIgnoreChecker(r.RootDir)

	workFiles := make(map[string]bool)
	err := filepath.WalkDir(r.RootDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(r.RootDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if rel == "." {
			return nil
		}
		if ic.IsIgnored(rel) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			workFiles[rel] = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk worktree: %w", err)
	}
	return workFiles, nil
}

// worktreeDiffersFromStaged reports whether the on-disk file at path has
// diverged from its staged entry. Stat metadata and the xxh3 fingerprint
// are checked before falling back to a full content hash.
func (r *Repo) worktreeDiffersFromStaged(path string, se *StagingEntry) (bool, error) {
	absPath := filepath.Join(r.RootDir, filepath.FromSlash(path))
	info, err := os.Stat(absPath)
	if err != nil {
		return false, fmt.Errorf("stat %q: %w", path, err)
	}

	workMode := modeFromFileInfo(info)
	if workMode != normalizeFileMode(se.Mode) {
		return true, nil
	}
	if info.Size() != se.Size {
		return true, nil
	}
	if se.ModTime != 0 && info.ModTime().UnixNano() == se.ModTime {
		// Unchanged stat: trust the recorded entry.
		return false, nil
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return false, fmt.Errorf("read %q: %w", path, err)
	}
	if Fingerprint(content) == se.Fingerprint {
		return false, nil
	}
	workHash := r.Algorithm().HashObject(object.TypeBlob, content)
	return workHash != se.BlobHash, nil
}

// headSnapshot flattens the HEAD commit's tree. If there are no commits
// yet (fresh repository) the snapshot is empty.
func (r *Repo) headSnapshot() Snapshot {
	headHash, err := r.ReadRef("HEAD")
	if err != nil {
		return Snapshot{}
	}
	commit, err := r.Store.ReadCommit(headHash)
	if err != nil {
		return Snapshot{}
	}
	snap, err := r.FlattenTree(commit.TreeHash)
	if err != nil {
		return Snapshot{}
	}
	return snap
}
