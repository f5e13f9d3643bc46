package repo

import (
	"fmt"
	"sort"

	"github.com/gritvcs/grit/pkg/object"
)

// VerifyReport summarises a repository integrity check.
type VerifyReport struct {
	Reachable   int      // objects reachable from refs that decoded cleanly
	Unreachable int      // loose objects no ref leads to (harmless garbage)
	Corrupt     []string // descriptions of objects that failed to decode
	Missing     []string // hashes referenced by reachable objects but absent
}

// OK reports whether the repository passed verification.
func (v *VerifyReport) OK() bool {
	return len(v.Corrupt) == 0 && len(v.Missing) == 0
}

// Verify walks every ref's reachable closure, decodes each object, and
// reports corrupt or missing objects. Unreachable loose objects are
// counted but never deleted: reclamation is not this layer's job.
func (r *Repo) Verify() (*VerifyReport, error) {
	report := &VerifyReport{}

	roots, err := r.refRoots()
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}

	reachable := make(map[object.Hash]struct{})
	for _, root := range roots {
		if err := r.verifyFrom(root, reachable, report); err != nil {
			return nil, fmt.Errorf("verify: %w", err)
		}
	}
	report.Reachable = len(reachable)

	all, err := r.Store.ListAll()
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	for _, h := range all {
		if _, ok := reachable[h]; !ok {
			report.Unreachable++
		}
	}

	sort.Strings(report.Corrupt)
	sort.Strings(report.Missing)
	return report, nil
}

// refRoots collects the hash targets of HEAD and every ref.
func (r *Repo) refRoots() ([]object.Hash, error) {
	var roots []object.Hash

	if h, err := r.ReadRef("HEAD"); err == nil {
		roots = append(roots, h)
	}
	refs, err := r.ListRefs("")
	if err != nil {
		return nil, err
	}
	for _, h := range refs {
		roots = append(roots, h)
	}
	return roots, nil
}

// verifyFrom walks the object graph from root with an explicit stack,
// decoding every object it reaches.
func (r *Repo) verifyFrom(root object.Hash, reachable map[object.Hash]struct{}, report *VerifyReport) error {
	stack := []object.Hash{root}
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if h == "" {
			continue
		}
		if _, seen := reachable[h]; seen {
			continue
		}

		objType, data, err := r.Store.Read(h)
		if err != nil {
			if !r.Store.Has(h) {
				report.Missing = append(report.Missing, string(h))
				continue
			}
			report.Corrupt = append(report.Corrupt, fmt.Sprintf("%s: %v", h, err))
			continue
		}
		reachable[h] = struct{}{}

		refs, err := r.decodeAndCollect(h, objType, data, report)
		if err != nil {
			return err
		}
		stack = append(stack, refs...)
	}
	return nil
}

func (r *Repo) decodeAndCollect(h object.Hash, objType object.ObjectType, data []byte, report *VerifyReport) ([]object.Hash, error) {
	switch objType {
	case object.TypeBlob:
		return nil, nil
	case object.TypeTree:
		tree, err := object.UnmarshalTree(data, r.Algorithm())
		if err != nil {
			report.Corrupt = append(report.Corrupt, fmt.Sprintf("%s: %v", h, err))
			return nil, nil
		}
		refs := make([]object.Hash, 0, len(tree.Entries))
		for _, e := range tree.Entries {
			refs = append(refs, e.Target())
		}
		return refs, nil
	case object.TypeCommit:
		commit, err := object.UnmarshalCommit(data)
		if err != nil {
			report.Corrupt = append(report.Corrupt, fmt.Sprintf("%s: %v", h, err))
			return nil, nil
		}
		refs := append([]object.Hash{commit.TreeHash}, commit.Parents...)
		return refs, nil
	case object.TypeTag:
		tag, err := object.UnmarshalTag(data)
		if err != nil {
			report.Corrupt = append(report.Corrupt, fmt.Sprintf("%s: %v", h, err))
			return nil, nil
		}
		return []object.Hash{tag.TargetHash}, nil
	default:
		report.Corrupt = append(report.Corrupt, fmt.Sprintf("%s: unknown type %q", h, objType))
		return nil, nil
	}
}
