package repo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gritvcs/grit/pkg/object"
)

// SnapshotEntry is a single file in a flattened tree.
type SnapshotEntry struct {
	BlobHash object.Hash
	Mode     string
}

// Snapshot is a transient, in-memory flattening of a tree object: full
// repo-relative path → blob. It is never stored; each operation that
// needs one builds its own.
type Snapshot map[string]SnapshotEntry

// Paths returns the snapshot's paths sorted lexicographically.
func (s Snapshot) Paths() []string {
	paths := make([]string, 0, len(s))
	for p := range s {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// BuildTree converts the flat staging entries into a hierarchical tree
// structure, writing tree objects to the store bottom-up and returning
// the root hash. Identical staging contents always yield an identical
// root hash: entry order is canonicalised at marshal time.
func (r *Repo) BuildTree(s *Staging) (object.Hash, error) {
	return r.buildTreeDir(s, "")
}

// buildTreeDir builds a tree object for the given directory prefix and
// writes it to the store. It returns the tree's hash.
func (r *Repo) buildTreeDir(s *Staging, prefix string) (object.Hash, error) {
	// Collect direct children: files and subdirectory names.
	files := make(map[string]*StagingEntry)
	subdirs := make(map[string]struct{})

	for p, entry := range s.Entries {
		var rel string
		if prefix == "" {
			rel = p
		} else {
			if !strings.HasPrefix(p, prefix+"/") {
				continue
			}
			rel = p[len(prefix)+1:]
		}

		slash := strings.IndexByte(rel, '/')
		if slash < 0 {
			files[rel] = entry
		} else {
			subdirs[rel[:slash]] = struct{}{}
		}
	}

	var entries []object.TreeEntry
	for name, entry := range files {
		entries = append(entries, object.TreeEntry{
			Name:     name,
			IsDir:    false,
			Mode:     normalizeFileMode(entry.Mode),
			BlobHash: entry.BlobHash,
		})
	}
	for name := range subdirs {
		// A name cannot be both a file and a directory.
		if _, isFile := files[name]; isFile {
			continue
		}
		childPrefix := name
		if prefix != "" {
			childPrefix = prefix + "/" + name
		}
		subHash, err := r.buildTreeDir(s, childPrefix)
		if err != nil {
			return "", fmt.Errorf("build tree %q: %w", childPrefix, err)
		}
		entries = append(entries, object.TreeEntry{
			Name:        name,
			IsDir:       true,
			Mode:        object.TreeModeDir,
			SubtreeHash: subHash,
		})
	}

	h, err := r.Store.WriteTree(&object.TreeObj{Entries: entries})
	if err != nil {
		return "", fmt.Errorf("write tree (prefix=%q): %w", prefix, err)
	}
	return h, nil
}

// FlattenTree walks a tree object recursively, returning a Snapshot of
// all file entries keyed by full forward-slash path. Missing or
// malformed objects abort the expansion.
func (r *Repo) FlattenTree(h object.Hash) (Snapshot, error) {
	snap := make(Snapshot)
	if err := r.flattenTreeRec(h, "", snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (r *Repo) flattenTreeRec(h object.Hash, prefix string, snap Snapshot) error {
	treeObj, err := r.Store.ReadTree(h)
	if err != nil {
		return fmt.Errorf("flatten tree %s: %w", h, err)
	}

	for _, entry := range treeObj.Entries {
		fullPath := entry.Name
		if prefix != "" {
			fullPath = prefix + "/" + entry.Name
		}

		if entry.IsDir {
			if err := r.flattenTreeRec(entry.SubtreeHash, fullPath, snap); err != nil {
				return err
			}
			continue
		}
		snap[fullPath] = SnapshotEntry{
			BlobHash: entry.BlobHash,
			Mode:     normalizeFileMode(entry.Mode),
		}
	}
	return nil
}

// TreeEntryAtPath descends from treeHash along relPath and returns the
// file entry there, or found=false when the path does not lead to a file.
func (r *Repo) TreeEntryAtPath(treeHash object.Hash, relPath string) (object.TreeEntry, bool, error) {
	parts := strings.Split(relPath, "/")
	current := treeHash

	for i, part := range parts {
		treeObj, err := r.Store.ReadTree(current)
		if err != nil {
			return object.TreeEntry{}, false, fmt.Errorf("read tree %s: %w", current, err)
		}

		var (
			entry object.TreeEntry
			found bool
		)
		for _, te := range treeObj.Entries {
			if te.Name == part {
				entry = te
				found = true
				break
			}
		}
		if !found {
			return object.TreeEntry{}, false, nil
		}

		last := i == len(parts)-1
		if last {
			if entry.IsDir {
				return object.TreeEntry{}, false, nil
			}
			return entry, true, nil
		}
		if !entry.IsDir || entry.SubtreeHash == "" {
			return object.TreeEntry{}, false, nil
		}
		current = entry.SubtreeHash
	}

	return object.TreeEntry{}, false, nil
}
