package object

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), SHA256)
}

func TestStoreWriteRead(t *testing.T) {
	s := tempStore(t)
	data := []byte("hello world")

	h, err := s.Write(TypeBlob, data)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(h) != 64 {
		t.Errorf("Hash length: got %d, want 64", len(h))
	}
	if want := SHA256.HashObject(TypeBlob, data); h != want {
		t.Errorf("Write hash: got %q, want %q", h, want)
	}

	gotType, gotData, err := s.Read(h)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if gotType != TypeBlob {
		t.Errorf("Type: got %q, want %q", gotType, TypeBlob)
	}
	if !bytes.Equal(gotData, data) {
		t.Errorf("Data: got %q, want %q", gotData, data)
	}
}

func TestStoreFanOutLayout(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, SHA256)

	h, err := s.Write(TypeBlob, []byte("layout"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	path := filepath.Join(dir, "objects", string(h[:2]), string(h[2:]))
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected object file at %s: %v", path, err)
	}
}

func TestStoreWriteIdempotent(t *testing.T) {
	s := tempStore(t)
	data := []byte("same content")

	h1, err := s.Write(TypeBlob, data)
	if err != nil {
		t.Fatalf("first Write: %v", err)
	}
	h2, err := s.Write(TypeBlob, data)
	if err != nil {
		t.Fatalf("second Write: %v", err)
	}
	if h1 != h2 {
		t.Errorf("duplicate write changed hash: %q != %q", h1, h2)
	}

	all, err := s.ListAll()
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("object count after duplicate write: got %d, want 1", len(all))
	}
}

func TestStoreHas(t *testing.T) {
	s := tempStore(t)
	h, err := s.Write(TypeBlob, []byte("exists"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !s.Has(h) {
		t.Error("Has(existing) = false")
	}
	if s.Has(SHA256.HashObject(TypeBlob, []byte("never written"))) {
		t.Error("Has(missing) = true")
	}
	if s.Has("abc") {
		t.Error("Has(bad length) = true")
	}
}

func TestStoreReadNotFound(t *testing.T) {
	s := tempStore(t)
	h := SHA256.HashObject(TypeBlob, []byte("missing"))
	if _, _, err := s.Read(h); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("Read(missing): got %v, want ErrObjectNotFound", err)
	}
	if _, _, err := s.Read("short"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("Read(bad length): got %v, want ErrObjectNotFound", err)
	}
}

func TestStoreReadCorrupt(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, SHA256)

	h, err := s.Write(TypeBlob, []byte("soon corrupt"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	path := filepath.Join(dir, "objects", string(h[:2]), string(h[2:]))
	if err := os.WriteFile(path, []byte("not zstd at all"), 0o644); err != nil {
		t.Fatalf("corrupt object file: %v", err)
	}

	_, _, err = s.Read(h)
	if !errors.Is(err, ErrMalformedObject) {
		t.Errorf("Read(corrupt): got %v, want ErrMalformedObject", err)
	}
	var me *MalformedObjectError
	if !errors.As(err, &me) || me.Hash != h {
		t.Errorf("corrupt error should carry the hash, got %v", err)
	}
}

func TestResolvePrefix(t *testing.T) {
	s := tempStore(t)
	h, err := s.Write(TypeBlob, []byte("prefix me"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := s.ResolvePrefix(string(h[:8]))
	if err != nil {
		t.Fatalf("ResolvePrefix: %v", err)
	}
	if got != h {
		t.Errorf("ResolvePrefix: got %q, want %q", got, h)
	}

	// Full-length hash resolves to itself.
	got, err = s.ResolvePrefix(string(h))
	if err != nil {
		t.Fatalf("ResolvePrefix(full): %v", err)
	}
	if got != h {
		t.Errorf("ResolvePrefix(full): got %q, want %q", got, h)
	}
}

func TestResolvePrefixTooShort(t *testing.T) {
	s := tempStore(t)
	h, err := s.Write(TypeBlob, []byte("short prefixes"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := s.ResolvePrefix(string(h[:3])); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("3-char prefix: got %v, want ErrObjectNotFound", err)
	}
}

func TestResolvePrefixNoMatch(t *testing.T) {
	s := tempStore(t)
	if _, err := s.ResolvePrefix("deadbeef"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("ResolvePrefix(no match): got %v, want ErrObjectNotFound", err)
	}
}

func TestResolvePrefixAmbiguous(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, SHA256)

	// Plant two object files sharing a 6-char prefix; ResolvePrefix only
	// inspects the bucket directory, not file contents.
	bucket := filepath.Join(dir, "objects", "ab")
	if err := os.MkdirAll(bucket, 0o755); err != nil {
		t.Fatal(err)
	}
	tail1 := "cdef" + repeatHex('1', 58)
	tail2 := "cdef" + repeatHex('2', 58)
	for _, name := range []string{tail1, tail2} {
		if err := os.WriteFile(filepath.Join(bucket, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	_, err := s.ResolvePrefix("abcdef")
	if !errors.Is(err, ErrAmbiguousPrefix) {
		t.Fatalf("got %v, want ErrAmbiguousPrefix", err)
	}
	var ae *AmbiguousPrefixError
	if !errors.As(err, &ae) || ae.Count != 2 {
		t.Errorf("ambiguous error detail: %v", err)
	}

	// A longer prefix disambiguates.
	got, err := s.ResolvePrefix("abcdef1")
	if err != nil {
		t.Fatalf("ResolvePrefix(longer): %v", err)
	}
	if got != Hash("ab"+tail1) {
		t.Errorf("got %q, want %q", got, "ab"+tail1)
	}
}

func repeatHex(c byte, n int) string {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = c
	}
	return string(buf)
}

func TestResolvePrefixSkipsTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, SHA256)

	h, err := s.Write(TypeBlob, []byte("real object"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	// A leftover temp file in the same bucket must not make the prefix
	// ambiguous.
	bucket := filepath.Join(dir, "objects", string(h[:2]))
	if err := os.WriteFile(filepath.Join(bucket, ".tmp-123"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := s.ResolvePrefix(string(h[:6]))
	if err != nil {
		t.Fatalf("ResolvePrefix: %v", err)
	}
	if got != h {
		t.Errorf("got %q, want %q", got, h)
	}
}

func TestListAll(t *testing.T) {
	s := tempStore(t)

	all, err := s.ListAll()
	if err != nil {
		t.Fatalf("ListAll(empty): %v", err)
	}
	if len(all) != 0 {
		t.Errorf("empty store: got %d objects", len(all))
	}

	want := make(map[Hash]bool)
	for _, content := range []string{"one", "two", "three"} {
		h, err := s.Write(TypeBlob, []byte(content))
		if err != nil {
			t.Fatalf("Write: %v", err)
		}
		want[h] = true
	}

	all, err = s.ListAll()
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != len(want) {
		t.Fatalf("ListAll: got %d objects, want %d", len(all), len(want))
	}
	for _, h := range all {
		if !want[h] {
			t.Errorf("unexpected hash %q", h)
		}
	}
}

func TestTypedReadMismatch(t *testing.T) {
	s := tempStore(t)
	h, err := s.WriteBlob(&Blob{Data: []byte("blob content")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	if _, err := s.ReadCommit(h); err == nil {
		t.Error("ReadCommit(blob hash): expected type mismatch error")
	}
}

func TestTypedRoundTrips(t *testing.T) {
	s := tempStore(t)

	blobHash, err := s.WriteBlob(&Blob{Data: []byte("file contents")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}

	treeHash, err := s.WriteTree(&TreeObj{Entries: []TreeEntry{
		{Name: "f.txt", Mode: TreeModeFile, BlobHash: blobHash},
	}})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}

	commitHash, err := s.WriteCommit(&CommitObj{
		TreeHash:  treeHash,
		Author:    "A <a@b>",
		Timestamp: 100,
		Timezone:  "+0000",
		Message:   "initial",
	})
	if err != nil {
		t.Fatalf("WriteCommit: %v", err)
	}

	tagHash, err := s.WriteTag(&TagObj{
		TargetHash: commitHash,
		TargetType: TypeCommit,
		Name:       "v1",
		Tagger:     "A <a@b>",
		Timestamp:  101,
		Timezone:   "+0000",
		Message:    "first release",
	})
	if err != nil {
		t.Fatalf("WriteTag: %v", err)
	}

	tree, err := s.ReadTree(treeHash)
	if err != nil {
		t.Fatalf("ReadTree: %v", err)
	}
	if len(tree.Entries) != 1 || tree.Entries[0].BlobHash != blobHash {
		t.Errorf("tree round-trip mismatch: %+v", tree.Entries)
	}

	commit, err := s.ReadCommit(commitHash)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if commit.TreeHash != treeHash {
		t.Errorf("commit tree: got %q, want %q", commit.TreeHash, treeHash)
	}

	tag, err := s.ReadTag(tagHash)
	if err != nil {
		t.Fatalf("ReadTag: %v", err)
	}
	if tag.TargetHash != commitHash || tag.TargetType != TypeCommit {
		t.Errorf("tag round-trip mismatch: %+v", tag)
	}
}

func TestStoreSHA1(t *testing.T) {
	s := NewStore(t.TempDir(), SHA1)
	h, err := s.Write(TypeBlob, []byte("short hashes"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(h) != 40 {
		t.Errorf("sha1 hash length: got %d, want 40", len(h))
	}
	gotType, _, err := s.Read(h)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if gotType != TypeBlob {
		t.Errorf("Type: got %q, want blob", gotType)
	}
}
