package repo

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gritvcs/grit/pkg/object"
)

func TestFirstCommit(t *testing.T) {
	r := initTestRepo(t)
	writeWorkFile(t, r, "a.txt", "hello")

	h := addAndCommit(t, r, "initial commit", "a.txt")

	commit, err := r.Store.ReadCommit(h)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if len(commit.Parents) != 0 {
		t.Errorf("first commit parents: got %v, want none", commit.Parents)
	}
	if commit.Message != "initial commit" {
		t.Errorf("Message: got %q", commit.Message)
	}
	if commit.Author != "Test User <test@example.com>" {
		t.Errorf("Author: got %q", commit.Author)
	}

	// The branch ref now points at the commit.
	got, err := r.ReadRef("HEAD")
	if err != nil {
		t.Fatalf("ReadRef(HEAD): %v", err)
	}
	if got != h {
		t.Errorf("HEAD: got %q, want %q", got, h)
	}
}

func TestSecondCommitParent(t *testing.T) {
	r := initTestRepo(t)
	writeWorkFile(t, r, "a.txt", "v1")
	c1 := addAndCommit(t, r, "one", "a.txt")

	writeWorkFile(t, r, "a.txt", "v2")
	c2 := addAndCommit(t, r, "two", "a.txt")

	commit, err := r.Store.ReadCommit(c2)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if len(commit.Parents) != 1 || commit.Parents[0] != c1 {
		t.Errorf("parents: got %v, want [%s]", commit.Parents, c1)
	}
}

func TestCommitNothingStaged(t *testing.T) {
	r := initTestRepo(t)
	if _, err := r.Commit("empty", "A <a@b>"); err == nil {
		t.Error("commit with empty staging should fail")
	}
}

func TestCommitMetadataChangesHash(t *testing.T) {
	r := initTestRepo(t)
	writeWorkFile(t, r, "a.txt", "same tree")
	c1 := addAndCommit(t, r, "message one", "a.txt")

	// Same staged tree, different message and parent: distinct commit.
	c2, err := r.Commit("message two", "Test User <test@example.com>")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if c1 == c2 {
		t.Error("commits with different metadata share a hash")
	}

	commit1, err := r.Store.ReadCommit(c1)
	if err != nil {
		t.Fatal(err)
	}
	commit2, err := r.Store.ReadCommit(c2)
	if err != nil {
		t.Fatal(err)
	}
	if commit1.TreeHash != commit2.TreeHash {
		t.Error("identical staging should produce identical trees")
	}
}

func TestCommitWithSigner(t *testing.T) {
	r := initTestRepo(t)
	writeWorkFile(t, r, "a.txt", "signed content")
	if err := r.Add([]string{"a.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	var signedPayload []byte
	signer := func(payload []byte) (string, error) {
		signedPayload = payload
		return "test-signature", nil
	}

	h, err := r.CommitWithSigner("signed", "A <a@b>", signer)
	if err != nil {
		t.Fatalf("CommitWithSigner: %v", err)
	}
	commit, err := r.Store.ReadCommit(h)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if commit.Signature != "test-signature" {
		t.Errorf("Signature: got %q", commit.Signature)
	}

	// The signer saw the serialization without the signature header.
	if !bytes.Equal(signedPayload, object.CommitSigningPayload(commit)) {
		t.Error("signed payload does not match the canonical signing payload")
	}
	if bytes.Contains(signedPayload, []byte("test-signature")) {
		t.Error("signed payload must not embed the signature")
	}
}

func TestLog(t *testing.T) {
	r := initTestRepo(t)
	messages := []string{"one", "two", "three"}
	for _, m := range messages {
		writeWorkFile(t, r, "a.txt", m)
		addAndCommit(t, r, m, "a.txt")
	}

	head, err := r.ReadRef("HEAD")
	if err != nil {
		t.Fatalf("ReadRef: %v", err)
	}

	commits, err := r.Log(head, 0)
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(commits) != 3 {
		t.Fatalf("Log: got %d commits, want 3", len(commits))
	}
	// Newest first.
	got := []string{commits[0].Message, commits[1].Message, commits[2].Message}
	want := []string{"three", "two", "one"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("log order: got %v, want %v", got, want)
	}

	limited, err := r.Log(head, 2)
	if err != nil {
		t.Fatalf("Log(limit): %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limited log: got %d commits, want 2", len(limited))
	}
}

func TestCommitDetachedHead(t *testing.T) {
	r := initTestRepo(t)
	writeWorkFile(t, r, "a.txt", "v1")
	c1 := addAndCommit(t, r, "one", "a.txt")

	if err := r.Checkout(string(c1)); err != nil {
		t.Fatalf("Checkout(detached): %v", err)
	}

	writeWorkFile(t, r, "a.txt", "detached change")
	c2 := addAndCommit(t, r, "detached", "a.txt")

	head, err := r.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head != string(c2) {
		t.Errorf("detached HEAD: got %q, want %q", head, c2)
	}
	// The branch ref stays where it was.
	branchHash, err := r.ReadRef("refs/heads/main")
	if err != nil {
		t.Fatalf("ReadRef(main): %v", err)
	}
	if branchHash != c1 {
		t.Errorf("main moved: got %q, want %q", branchHash, c1)
	}
}
