package repo

import (
	"errors"
	"testing"

	"github.com/gritvcs/grit/pkg/object"
)

func fakeCommitHash(seed string) object.Hash {
	return object.SHA256.HashObject(object.TypeCommit, []byte(seed))
}

func TestUpdateReadRef(t *testing.T) {
	r := initTestRepo(t)
	h := fakeCommitHash("one")

	if err := r.UpdateRef("refs/heads/main", h); err != nil {
		t.Fatalf("UpdateRef: %v", err)
	}
	got, err := r.ReadRef("refs/heads/main")
	if err != nil {
		t.Fatalf("ReadRef: %v", err)
	}
	if got != h {
		t.Errorf("ReadRef: got %q, want %q", got, h)
	}
}

func TestReadRefFollowsSymbolicChain(t *testing.T) {
	r := initTestRepo(t)
	h := fakeCommitHash("chain")

	if err := r.UpdateRef("refs/heads/main", h); err != nil {
		t.Fatalf("UpdateRef: %v", err)
	}
	if err := r.WriteSymbolicRef("refs/heads/alias", "refs/heads/main"); err != nil {
		t.Fatalf("WriteSymbolicRef: %v", err)
	}
	if err := r.WriteSymbolicRef("refs/heads/alias2", "refs/heads/alias"); err != nil {
		t.Fatalf("WriteSymbolicRef: %v", err)
	}

	got, err := r.ReadRef("refs/heads/alias2")
	if err != nil {
		t.Fatalf("ReadRef through chain: %v", err)
	}
	if got != h {
		t.Errorf("chain resolution: got %q, want %q", got, h)
	}
}

func TestReadRefDangling(t *testing.T) {
	r := initTestRepo(t)

	// Fresh repo: HEAD points at refs/heads/main, which has no file yet.
	_, err := r.ReadRef("HEAD")
	if !errors.Is(err, ErrDanglingRef) {
		t.Errorf("fresh HEAD: got %v, want ErrDanglingRef", err)
	}

	_, err = r.ReadRef("refs/heads/never")
	if !errors.Is(err, ErrDanglingRef) {
		t.Errorf("missing ref: got %v, want ErrDanglingRef", err)
	}
	var de *DanglingRefError
	if !errors.As(err, &de) || de.Name != "refs/heads/never" {
		t.Errorf("dangling error should name the ref, got %v", err)
	}
}

func TestReadRefCycle(t *testing.T) {
	r := initTestRepo(t)
	if err := r.WriteSymbolicRef("refs/heads/a", "refs/heads/b"); err != nil {
		t.Fatal(err)
	}
	if err := r.WriteSymbolicRef("refs/heads/b", "refs/heads/a"); err != nil {
		t.Fatal(err)
	}

	_, err := r.ReadRef("refs/heads/a")
	if !errors.Is(err, ErrReferenceCycle) {
		t.Errorf("cycle: got %v, want ErrReferenceCycle", err)
	}
}

func TestReadRefSelfCycle(t *testing.T) {
	r := initTestRepo(t)
	if err := r.WriteSymbolicRef("refs/heads/self", "refs/heads/self"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ReadRef("refs/heads/self"); !errors.Is(err, ErrReferenceCycle) {
		t.Errorf("self cycle: got %v, want ErrReferenceCycle", err)
	}
}

func TestUpdateRefCAS(t *testing.T) {
	r := initTestRepo(t)
	h1 := fakeCommitHash("v1")
	h2 := fakeCommitHash("v2")

	// Creating a ref with expectedOld "" succeeds on a missing ref.
	if err := r.UpdateRefCAS("refs/heads/main", h1, ""); err != nil {
		t.Fatalf("create via CAS: %v", err)
	}

	// CAS with the right old value succeeds.
	if err := r.UpdateRefCAS("refs/heads/main", h2, h1); err != nil {
		t.Fatalf("CAS update: %v", err)
	}

	// CAS with a stale old value fails and leaves the ref untouched.
	err := r.UpdateRefCAS("refs/heads/main", h1, h1)
	if !errors.Is(err, ErrRefCASMismatch) {
		t.Fatalf("stale CAS: got %v, want ErrRefCASMismatch", err)
	}
	got, err := r.ReadRef("refs/heads/main")
	if err != nil {
		t.Fatalf("ReadRef: %v", err)
	}
	if got != h2 {
		t.Errorf("ref after failed CAS: got %q, want %q", got, h2)
	}
}

func TestDeleteRef(t *testing.T) {
	r := initTestRepo(t)
	h := fakeCommitHash("del")

	if err := r.UpdateRef("refs/heads/gone", h); err != nil {
		t.Fatal(err)
	}
	if err := r.DeleteRef("refs/heads/gone"); err != nil {
		t.Fatalf("DeleteRef: %v", err)
	}
	if _, err := r.ReadRef("refs/heads/gone"); !errors.Is(err, ErrDanglingRef) {
		t.Errorf("after delete: got %v, want ErrDanglingRef", err)
	}
	if err := r.DeleteRef("refs/heads/gone"); !errors.Is(err, ErrDanglingRef) {
		t.Errorf("double delete: got %v, want ErrDanglingRef", err)
	}
}

func TestListRefs(t *testing.T) {
	r := initTestRepo(t)
	h1 := fakeCommitHash("b1")
	h2 := fakeCommitHash("b2")

	if err := r.UpdateRef("refs/heads/main", h1); err != nil {
		t.Fatal(err)
	}
	if err := r.UpdateRef("refs/tags/v1", h2); err != nil {
		t.Fatal(err)
	}
	// Dangling symbolic refs are skipped, not errors.
	if err := r.WriteSymbolicRef("refs/heads/broken", "refs/heads/nowhere"); err != nil {
		t.Fatal(err)
	}

	refs, err := r.ListRefs("")
	if err != nil {
		t.Fatalf("ListRefs: %v", err)
	}
	if got := refs["heads/main"]; got != h1 {
		t.Errorf("heads/main: got %q, want %q", got, h1)
	}
	if got := refs["tags/v1"]; got != h2 {
		t.Errorf("tags/v1: got %q, want %q", got, h2)
	}
	if _, ok := refs["heads/broken"]; ok {
		t.Error("dangling symbolic ref should be skipped")
	}

	heads, err := r.ListRefs("heads")
	if err != nil {
		t.Fatalf("ListRefs(heads): %v", err)
	}
	if _, ok := heads["tags/v1"]; ok {
		t.Error("prefix filter leaked tags into heads listing")
	}
}

func TestUpdateRefAppendsReflog(t *testing.T) {
	r := initTestRepo(t)
	h1 := fakeCommitHash("r1")
	h2 := fakeCommitHash("r2")

	if err := r.UpdateRef("refs/heads/main", h1); err != nil {
		t.Fatal(err)
	}
	if err := r.UpdateRef("refs/heads/main", h2); err != nil {
		t.Fatal(err)
	}

	entries, err := r.ReadReflog("main", 0)
	if err != nil {
		t.Fatalf("ReadReflog: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("reflog entries: got %d, want 2", len(entries))
	}
	// Newest first.
	if entries[0].NewHash != h2 || entries[0].OldHash != h1 {
		t.Errorf("newest entry: old=%q new=%q", entries[0].OldHash, entries[0].NewHash)
	}
	if entries[1].NewHash != h1 || entries[1].OldHash != r.Algorithm().ZeroHash() {
		t.Errorf("first entry: old=%q new=%q", entries[1].OldHash, entries[1].NewHash)
	}
}
