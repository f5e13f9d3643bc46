package repo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gritvcs/grit/pkg/object"
)

// ResolveRef resolves a ref name to an object hash.
//
// Resolution order:
//  1. If name is "HEAD", read HEAD (following the symbolic chain).
//  2. If name starts with "refs/", read .grit/<name>.
//  3. Otherwise, try "refs/heads/<name>".
func (r *Repo) ResolveRef(name string) (object.Hash, error) {
	if name == "HEAD" || strings.HasPrefix(name, "refs/") {
		return r.ReadRef(name)
	}
	return r.ReadRef("refs/heads/" + name)
}

// ResolveRevision resolves user-supplied revision text to an object hash:
// HEAD, a full hash, a branch or tag name, a raw ref path, or an
// abbreviated hash prefix (at least 4 hex characters).
//
// Reference names take precedence over object-hash prefixes: a branch
// named "cafe" shadows objects whose hash starts with cafe, since named
// lookups are the common case.
func (r *Repo) ResolveRevision(rev string) (object.Hash, error) {
	rev = strings.TrimSpace(rev)
	if rev == "" {
		return "", fmt.Errorf("resolve revision: empty name")
	}

	if rev == "HEAD" {
		return r.ReadRef("HEAD")
	}

	// Exact full-length hash of an existing object.
	if len(rev) == r.Algorithm().HexLen() && isHexString(rev) {
		h := object.Hash(strings.ToLower(rev))
		if r.Store.Has(h) {
			return h, nil
		}
	}

	if strings.HasPrefix(rev, "refs/") {
		if h, err := r.ReadRef(rev); err == nil {
			return h, nil
		}
	}
	for _, candidate := range []string{"refs/heads/" + rev, "refs/tags/" + rev} {
		if h, err := r.ReadRef(candidate); err == nil {
			return h, nil
		}
	}

	// Fall back to an abbreviated object hash.
	if isHexString(rev) {
		h, err := r.Store.ResolvePrefix(rev)
		if err == nil {
			return h, nil
		}
		if errors.Is(err, object.ErrAmbiguousPrefix) {
			return "", err
		}
	}

	return "", fmt.Errorf("resolve revision %q: unknown revision", rev)
}

// ResolveCommit resolves a revision and peels annotated tags until a
// commit is reached.
func (r *Repo) ResolveCommit(rev string) (object.Hash, error) {
	h, err := r.ResolveRevision(rev)
	if err != nil {
		return "", err
	}

	// A tag chain in a sane repository is short; the visited set guards
	// against a tag that targets itself.
	visited := make(map[object.Hash]struct{})
	for {
		if _, seen := visited[h]; seen {
			return "", fmt.Errorf("resolve commit %q: tag target cycle", rev)
		}
		visited[h] = struct{}{}

		objType, data, err := r.Store.Read(h)
		if err != nil {
			return "", fmt.Errorf("resolve commit %q: %w", rev, err)
		}
		switch objType {
		case object.TypeCommit:
			return h, nil
		case object.TypeTag:
			tag, err := object.UnmarshalTag(data)
			if err != nil {
				return "", fmt.Errorf("resolve commit %q: %w", rev, err)
			}
			h = tag.TargetHash
		default:
			return "", fmt.Errorf("resolve commit %q: %s is a %s, not a commit", rev, h, objType)
		}
	}
}

func isHexString(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
