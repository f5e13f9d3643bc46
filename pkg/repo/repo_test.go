package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gritvcs/grit/pkg/object"
)

// initTestRepo creates a fresh sha256 repository in a temp directory.
func initTestRepo(t *testing.T) *Repo {
	t.Helper()
	r, err := Init(t.TempDir(), object.SHA256)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return r
}

// writeWorkFile writes a file into the repository working directory.
func writeWorkFile(t *testing.T, r *Repo, rel, content string) {
	t.Helper()
	abs := filepath.Join(r.RootDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

// addAndCommit stages the given paths and commits with the message.
func addAndCommit(t *testing.T, r *Repo, message string, paths ...string) object.Hash {
	t.Helper()
	if err := r.Add(paths); err != nil {
		t.Fatalf("Add(%v): %v", paths, err)
	}
	h, err := r.Commit(message, "Test User <test@example.com>")
	if err != nil {
		t.Fatalf("Commit(%q): %v", message, err)
	}
	return h
}

func TestInitLayout(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir, object.SHA256)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	for _, sub := range []string{"objects", "refs/heads", "refs/tags", "config.toml", "HEAD"} {
		if _, err := os.Stat(filepath.Join(r.GritDir, filepath.FromSlash(sub))); err != nil {
			t.Errorf("missing %s: %v", sub, err)
		}
	}

	head, err := r.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head != "refs/heads/main" {
		t.Errorf("HEAD: got %q, want refs/heads/main", head)
	}
}

func TestInitRefusesExisting(t *testing.T) {
	dir := t.TempDir()
	if _, err := Init(dir, object.SHA256); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := Init(dir, object.SHA256); err == nil {
		t.Error("second Init should fail")
	}
}

func TestOpenFindsRootFromSubdir(t *testing.T) {
	r := initTestRepo(t)
	sub := filepath.Join(r.RootDir, "a", "b", "c")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	opened, err := Open(sub)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if opened.RootDir != r.RootDir {
		t.Errorf("RootDir: got %q, want %q", opened.RootDir, r.RootDir)
	}
	if opened.Algorithm() != object.SHA256 {
		t.Errorf("Algorithm: got %q, want sha256", opened.Algorithm())
	}
}

func TestOpenOutsideRepo(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Error("Open outside a repository should fail")
	}
}

func TestOpenSHA1Repo(t *testing.T) {
	dir := t.TempDir()
	if _, err := Init(dir, object.SHA1); err != nil {
		t.Fatalf("Init: %v", err)
	}
	r, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if r.Algorithm() != object.SHA1 {
		t.Errorf("Algorithm: got %q, want sha1", r.Algorithm())
	}
}
