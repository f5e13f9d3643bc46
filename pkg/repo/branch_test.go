package repo

import "testing"

func TestCreateAndListBranches(t *testing.T) {
	r := initTestRepo(t)
	writeWorkFile(t, r, "a.txt", "hello")
	c1 := addAndCommit(t, r, "initial", "a.txt")

	if err := r.CreateBranch("feature", c1); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if err := r.CreateBranch("bugfix", c1); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	names, err := r.ListBranches()
	if err != nil {
		t.Fatalf("ListBranches: %v", err)
	}
	want := []string{"bugfix", "feature", "main"}
	if len(names) != len(want) {
		t.Fatalf("branches: got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("branch %d: got %q, want %q", i, names[i], want[i])
		}
	}

	got, err := r.ReadRef("refs/heads/feature")
	if err != nil {
		t.Fatalf("ReadRef: %v", err)
	}
	if got != c1 {
		t.Errorf("feature: got %q, want %q", got, c1)
	}
}

func TestCreateBranchDuplicate(t *testing.T) {
	r := initTestRepo(t)
	writeWorkFile(t, r, "a.txt", "hello")
	c1 := addAndCommit(t, r, "initial", "a.txt")

	if err := r.CreateBranch("dup", c1); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if err := r.CreateBranch("dup", c1); err == nil {
		t.Error("duplicate CreateBranch should fail")
	}
}

func TestDeleteBranch(t *testing.T) {
	r := initTestRepo(t)
	writeWorkFile(t, r, "a.txt", "hello")
	c1 := addAndCommit(t, r, "initial", "a.txt")

	if err := r.CreateBranch("doomed", c1); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if err := r.DeleteBranch("doomed"); err != nil {
		t.Fatalf("DeleteBranch: %v", err)
	}
	if err := r.DeleteBranch("doomed"); err == nil {
		t.Error("deleting a missing branch should fail")
	}
}

func TestDeleteCurrentBranchRefused(t *testing.T) {
	r := initTestRepo(t)
	writeWorkFile(t, r, "a.txt", "hello")
	addAndCommit(t, r, "initial", "a.txt")

	if err := r.DeleteBranch("main"); err == nil {
		t.Error("deleting the current branch should fail")
	}
}

func TestCurrentBranch(t *testing.T) {
	r := initTestRepo(t)
	branch, err := r.CurrentBranch()
	if err != nil {
		t.Fatalf("CurrentBranch: %v", err)
	}
	if branch != "main" {
		t.Errorf("fresh repo branch: got %q, want main", branch)
	}
}
