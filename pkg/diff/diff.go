// Package diff renders unified text diffs between two blob revisions of a
// path. Structural (tree-level) diffing lives in pkg/repo; this package
// only formats content changes for display.
package diff

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// Unified returns a unified diff between the before and after revisions
// of path, with three lines of context. An empty string means the
// revisions are identical.
func Unified(path string, before, after []byte) (string, error) {
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return "", fmt.Errorf("diff %q: %w", path, err)
	}
	return text, nil
}

// UnifiedAgainstEmpty renders an addition or removal: the missing side is
// treated as an empty file.
func UnifiedAgainstEmpty(path string, content []byte, added bool) (string, error) {
	if added {
		return Unified(path, nil, content)
	}
	return Unified(path, content, nil)
}
