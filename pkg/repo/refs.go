package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gritvcs/grit/pkg/object"
)

const symrefPrefix = "ref: "

// ErrDanglingRef reports a ref chain that bottoms out at a name with no
// stored value. Distinct from a cycle: a dangling ref may legitimately be
// created (e.g. the default branch before the first commit).
var ErrDanglingRef = errors.New("dangling reference")

// ErrReferenceCycle reports a symbolic ref chain that revisits a name.
// This indicates repository corruption and is never auto-repaired.
var ErrReferenceCycle = errors.New("reference cycle")

// ErrRefCASMismatch reports a compare-and-swap update that observed an
// unexpected old value.
var ErrRefCASMismatch = errors.New("ref compare-and-swap mismatch")

var ErrRefUpdatedButReflogAppendFailed = errors.New("ref updated but reflog append failed")

// DanglingRefError wraps ErrDanglingRef with the name that failed to
// resolve.
type DanglingRefError struct {
	Name string
}

func (e *DanglingRefError) Error() string {
	return fmt.Sprintf("%v: %s", ErrDanglingRef, e.Name)
}

func (e *DanglingRefError) Unwrap() error { return ErrDanglingRef }

// RefUpdateReflogError indicates the ref file update succeeded, but
// appending the corresponding reflog entry failed.
type RefUpdateReflogError struct {
	Ref     string
	OldHash object.Hash
	NewHash object.Hash
	Err     error
}

func (e *RefUpdateReflogError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf(
		"update ref %q: %s (old=%s new=%s): %v",
		e.Ref,
		ErrRefUpdatedButReflogAppendFailed,
		e.OldHash,
		e.NewHash,
		e.Err,
	)
}

func (e *RefUpdateReflogError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *RefUpdateReflogError) Is(target error) bool {
	return target == ErrRefUpdatedButReflogAppendFailed
}

const (
	refLockRetryDelay = 5 * time.Millisecond
	refLockWaitLimit  = 2 * time.Second
)

func (r *Repo) refPath(name string) string {
	return filepath.Join(r.GritDir, filepath.FromSlash(name))
}

// ReadRef resolves a ref name to an object hash, following symbolic
// "ref: target" chains. A chain ending at a missing file fails with
// ErrDanglingRef; a chain revisiting a name fails with ErrReferenceCycle.
func (r *Repo) ReadRef(name string) (object.Hash, error) {
	visited := make(map[string]struct{})

	for {
		if _, seen := visited[name]; seen {
			return "", fmt.Errorf("resolve ref %q: %w", name, ErrReferenceCycle)
		}
		visited[name] = struct{}{}

		data, err := os.ReadFile(r.refPath(name))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", &DanglingRefError{Name: name}
			}
			return "", fmt.Errorf("resolve ref %q: %w", name, err)
		}

		content := strings.TrimSpace(string(data))
		if strings.HasPrefix(content, symrefPrefix) {
			name = strings.TrimSpace(strings.TrimPrefix(content, symrefPrefix))
			continue
		}
		if content == "" {
			return "", &DanglingRefError{Name: name}
		}
		return object.Hash(content), nil
	}
}

// WriteSymbolicRef points the named ref at another ref (HEAD-style
// indirection) rather than at a hash.
func (r *Repo) WriteSymbolicRef(name, target string) error {
	refPath := r.refPath(name)
	if err := os.MkdirAll(filepath.Dir(refPath), 0o755); err != nil {
		return fmt.Errorf("write symbolic ref %q: mkdir: %w", name, err)
	}
	content := symrefPrefix + target + "\n"
	if err := os.WriteFile(refPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write symbolic ref %q: %w", name, err)
	}
	return nil
}

// UpdateRef writes a hash to the named ref file under .grit/. Parent
// directories are created as needed.
func (r *Repo) UpdateRef(name string, h object.Hash) error {
	return r.UpdateRefCAS(name, h)
}

// UpdateRefCAS writes a hash to the named ref file under .grit/ using
// lockfile + rename atomic semantics. If expectedOld is provided, the
// update only succeeds when the current ref hash matches it.
//
// Reflog append happens after the ref rename; if reflog append fails, the
// ref update remains committed and a RefUpdateReflogError is returned.
func (r *Repo) UpdateRefCAS(name string, h object.Hash, expectedOld ...object.Hash) error {
	return r.updateRefCASReason(name, h, "update", expectedOld...)
}

func (r *Repo) updateRefCASReason(name string, h object.Hash, reason string, expectedOld ...object.Hash) error {
	if len(expectedOld) > 1 {
		return fmt.Errorf("update ref %q: expected at most one old hash", name)
	}
	hasExpectedOld := len(expectedOld) == 1
	wantOldHash := object.Hash("")
	if hasExpectedOld {
		wantOldHash = expectedOld[0]
	}

	refPath := r.refPath(name)

	dir := filepath.Dir(refPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("update ref %q: mkdir: %w", name, err)
	}

	lockPath := refPath + ".lock"
	lockFile, err := acquireRefLock(lockPath)
	if err != nil {
		return fmt.Errorf("update ref %q: lock: %w", name, err)
	}
	cleanupLock := true
	defer func() {
		if lockFile != nil {
			_ = lockFile.Close()
		}
		if cleanupLock {
			_ = os.Remove(lockPath)
		}
	}()

	oldHash, err := readRefHash(refPath)
	if err != nil {
		return fmt.Errorf("update ref %q: read old hash: %w", name, err)
	}
	if hasExpectedOld && oldHash != wantOldHash {
		return fmt.Errorf(
			"update ref %q: %w (expected %s, found %s)",
			name,
			ErrRefCASMismatch,
			wantOldHash,
			oldHash,
		)
	}

	if _, err := lockFile.WriteString(string(h) + "\n"); err != nil {
		return fmt.Errorf("update ref %q: write: %w", name, err)
	}
	if err := lockFile.Sync(); err != nil {
		return fmt.Errorf("update ref %q: sync: %w", name, err)
	}
	if err := lockFile.Close(); err != nil {
		lockFile = nil
		return fmt.Errorf("update ref %q: close: %w", name, err)
	}
	lockFile = nil

	if err := os.Rename(lockPath, refPath); err != nil {
		return fmt.Errorf("update ref %q: rename: %w", name, err)
	}
	cleanupLock = false

	if err := r.appendReflog(name, oldHash, h, reason); err != nil {
		return &RefUpdateReflogError{
			Ref:     name,
			OldHash: oldHash,
			NewHash: h,
			Err:     err,
		}
	}

	return nil
}

// DeleteRef removes a ref file. Fails if the ref does not exist.
func (r *Repo) DeleteRef(name string) error {
	if err := os.Remove(r.refPath(name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &DanglingRefError{Name: name}
		}
		return fmt.Errorf("delete ref %q: %w", name, err)
	}
	return nil
}

// ListRefs lists references under .grit/refs. Names are returned relative
// to the refs root, e.g. "heads/main", "tags/v1". Symbolic refs appear
// with their resolved hash; dangling symbolic refs are skipped.
func (r *Repo) ListRefs(prefix string) (map[string]object.Hash, error) {
	root := filepath.Join(r.GritDir, "refs")
	dir := root
	if strings.TrimSpace(prefix) != "" {
		dir = filepath.Join(root, filepath.FromSlash(prefix))
	}

	refs := make(map[string]object.Hash)
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".lock") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)

		h, err := r.ReadRef("refs/" + name)
		if err != nil {
			if errors.Is(err, ErrDanglingRef) {
				return nil
			}
			return err
		}
		refs[name] = h
		return nil
	})
	if os.IsNotExist(err) {
		return refs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	return refs, nil
}

func acquireRefLock(lockPath string) (*os.File, error) {
	deadline := time.Now().Add(refLockWaitLimit)
	for {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if os.IsExist(err) {
			if time.Now().After(deadline) {
				return nil, fmt.Errorf("timeout waiting for lock %q", lockPath)
			}
			time.Sleep(refLockRetryDelay)
			continue
		}
		return nil, err
	}
}

func readRefHash(refPath string) (object.Hash, error) {
	data, err := os.ReadFile(refPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	content := strings.TrimSpace(string(data))
	if strings.HasPrefix(content, symrefPrefix) {
		// A symbolic ref being replaced by a direct update has no old hash.
		return "", nil
	}
	return object.Hash(content), nil
}
