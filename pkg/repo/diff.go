package repo

import "sort"

// ChangeKind classifies what happened to a path between two snapshots.
type ChangeKind int

const (
	Added    ChangeKind = iota // path exists only in the after snapshot
	Removed                    // path exists only in the before snapshot
	Modified                   // path exists in both but the blob differs
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Modified:
		return "modified"
	default:
		return "unknown"
	}
}

// Change records a single path-level difference between two snapshots.
type Change struct {
	Path string
	Kind ChangeKind
}

// DiffSnapshots computes the structural diff between two tree snapshots,
// sorted by path. Whether a path is "modified" is decided purely by blob
// hash inequality: equal content at a moved mtime is not a change, and
// the same content at two different paths is a removal plus an addition,
// never a modification.
func DiffSnapshots(before, after Snapshot) []Change {
	var changes []Change

	for path, b := range before {
		a, ok := after[path]
		if !ok {
			changes = append(changes, Change{Path: path, Kind: Removed})
			continue
		}
		if a.BlobHash != b.BlobHash {
			changes = append(changes, Change{Path: path, Kind: Modified})
		}
	}
	for path := range after {
		if _, ok := before[path]; !ok {
			changes = append(changes, Change{Path: path, Kind: Added})
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Path < changes[j].Path
	})
	return changes
}
