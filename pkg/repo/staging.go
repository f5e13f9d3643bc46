package repo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gritvcs/grit/pkg/object"
	"github.com/zeebo/xxh3"
)

// StagingEntry records the staged state of a single file: the blob it was
// hashed into plus the stat and content fingerprints used to detect
// worktree modifications cheaply.
type StagingEntry struct {
	Path        string      `json:"path"`
	BlobHash    object.Hash `json:"blob_hash"`
	Mode        string      `json:"mode"`
	Size        int64       `json:"size"`
	ModTime     int64       `json:"mod_time"`
	Fingerprint string      `json:"fingerprint"`
}

// Staging holds the full staging area (index) for a grit repository. It
// describes the tree the next commit will snapshot.
type Staging struct {
	Entries map[string]*StagingEntry `json:"entries"`
}

// Fingerprint computes the fast non-cryptographic content fingerprint
// stored next to the blob hash. It only guards the stat fast path; the
// blob hash remains the source of truth for content identity.
func Fingerprint(data []byte) string {
	return fmt.Sprintf("%x", xxh3.Hash128(data).Bytes())
}

// indexPath returns the filesystem path to the staging index file.
func (r *Repo) indexPath() string {
	return filepath.Join(r.GritDir, "index")
}

// ReadStaging loads the staging area from .grit/index. If the file does
// not exist, an empty Staging is returned (no error).
func (r *Repo) ReadStaging() (*Staging, error) {
	data, err := os.ReadFile(r.indexPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Staging{Entries: make(map[string]*StagingEntry)}, nil
		}
		return nil, fmt.Errorf("read staging: %w", err)
	}

	var stg Staging
	if err := json.Unmarshal(data, &stg); err != nil {
		return nil, fmt.Errorf("read staging: unmarshal: %w", err)
	}
	if stg.Entries == nil {
		stg.Entries = make(map[string]*StagingEntry)
	}
	return &stg, nil
}

// WriteStaging atomically writes the staging area to .grit/index. The
// index is rewritten wholesale; there is no partial update.
func (r *Repo) WriteStaging(s *Staging) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("write staging: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(r.GritDir, ".index-tmp-*")
	if err != nil {
		return fmt.Errorf("write staging: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write staging: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write staging: close: %w", err)
	}

	if err := os.Rename(tmpName, r.indexPath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write staging: rename: %w", err)
	}
	return nil
}

// Stage hashes content, writes it as a blob to the object store, and
// upserts the staging entry for path. This is the core staging primitive
// the worktree scanner feeds (path, content, mode) tuples into; it does
// not flush the index to disk.
func (r *Repo) Stage(stg *Staging, relPath string, content []byte, mode string) (object.Hash, error) {
	blobHash, err := r.Store.WriteBlob(&object.Blob{Data: content})
	if err != nil {
		return "", fmt.Errorf("stage %q: write blob: %w", relPath, err)
	}

	stg.Entries[relPath] = &StagingEntry{
		Path:        relPath,
		BlobHash:    blobHash,
		Mode:        normalizeFileMode(mode),
		Size:        int64(len(content)),
		Fingerprint: Fingerprint(content),
	}
	return blobHash, nil
}

// Add stages the given file paths from the working tree. Each path is
// resolved relative to the repo root, read, hashed into a blob, and
// recorded in the index; the index is flushed once at the end.
func (r *Repo) Add(paths []string) error {
	stg, err := r.ReadStaging()
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}

	for _, p := range paths {
		relPath, err := r.repoRelPath(p)
		if err != nil {
			return fmt.Errorf("add: resolve path %q: %w", p, err)
		}

		absPath := filepath.Join(r.RootDir, filepath.FromSlash(relPath))
		content, err := os.ReadFile(absPath)
		if err != nil {
			return fmt.Errorf("add: read %q: %w", relPath, err)
		}
		info, err := os.Stat(absPath)
		if err != nil {
			return fmt.Errorf("add: stat %q: %w", relPath, err)
		}

		if _, err := r.Stage(stg, relPath, content, modeFromFileInfo(info)); err != nil {
			return fmt.Errorf("add: %w", err)
		}
		stg.Entries[relPath].ModTime = info.ModTime().UnixNano()
	}

	if err := r.WriteStaging(stg); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	return nil
}

// Remove unstages the given paths. The working tree is left untouched;
// blobs already written remain in the store as (possibly unreachable)
// objects.
func (r *Repo) Remove(paths []string) error {
	stg, err := r.ReadStaging()
	if err != nil {
		return fmt.Errorf("rm: %w", err)
	}

	for _, p := range paths {
		relPath, err := r.repoRelPath(p)
		if err != nil {
			return fmt.Errorf("rm: resolve path %q: %w", p, err)
		}
		if _, ok := stg.Entries[relPath]; !ok {
			return fmt.Errorf("rm: path %q is not staged", relPath)
		}
		delete(stg.Entries, relPath)
	}

	if err := r.WriteStaging(stg); err != nil {
		return fmt.Errorf("rm: %w", err)
	}
	return nil
}

// repoRelPath converts a path (absolute, or relative to CWD) into a path
// relative to the repository root. If the path is already relative and
// does not resolve inside the repo root, it is assumed to already be
// repo-relative.
func (r *Repo) repoRelPath(p string) (string, error) {
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(r.RootDir, p)
		if err != nil {
			return "", fmt.Errorf("cannot make %q relative to %q: %w", p, r.RootDir, err)
		}
		return filepath.ToSlash(rel), nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return filepath.ToSlash(filepath.Clean(p)), nil
	}

	abs := filepath.Join(cwd, p)
	rel, err := filepath.Rel(r.RootDir, abs)
	if err != nil {
		return filepath.ToSlash(filepath.Clean(p)), nil
	}
	if len(rel) >= 2 && rel[:2] == ".." {
		return filepath.ToSlash(filepath.Clean(p)), nil
	}
	return filepath.ToSlash(rel), nil
}
