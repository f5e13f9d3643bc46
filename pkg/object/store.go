package object

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store is a content-addressed loose-object store with a 2-character
// fan-out directory layout: objects/ab/cdef0123... Envelopes are
// zstd-compressed at rest; all hashing happens over the uncompressed
// canonical bytes.
type Store struct {
	root string
	algo Algorithm
}

// NewStore creates a Store rooted at the given directory, addressing
// objects with the given digest algorithm. The objects/ subdirectory is
// created lazily on first write.
func NewStore(root string, algo Algorithm) *Store {
	return &Store{root: root, algo: algo}
}

// Algorithm returns the digest algorithm the store addresses objects with.
func (s *Store) Algorithm() Algorithm {
	return s.algo
}

// objectPath returns the filesystem path for a given hash.
func (s *Store) objectPath(h Hash) string {
	return filepath.Join(s.root, "objects", string(h[:2]), string(h[2:]))
}

// Has reports whether the store contains an object with the given hash.
func (s *Store) Has(h Hash) bool {
	if len(h) != s.algo.HexLen() {
		return false
	}
	_, err := os.Stat(s.objectPath(h))
	return err == nil
}

// Write stores an object and returns its content hash. Writing identical
// content twice is a no-op: content addressing guarantees the existing
// bytes are already correct, so existing objects are never rewritten.
// Writes are atomic: data goes to a temp file in the bucket directory and
// is then renamed into place, so a crash mid-write never leaves a
// readable, corrupt object under its final hash.
func (s *Store) Write(objType ObjectType, data []byte) (Hash, error) {
	raw := Encode(objType, data)
	h := s.algo.HashObject(objType, data)

	// Fast path: already exists.
	if s.Has(h) {
		return h, nil
	}

	compressed, err := compressZstd(raw)
	if err != nil {
		return "", fmt.Errorf("object write %s: compress: %w", h, err)
	}

	dir := filepath.Join(s.root, "objects", string(h[:2]))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("object write mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("object write tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("object write %s: %w", h, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("object write %s: close: %w", h, err)
	}

	if err := os.Rename(tmpName, s.objectPath(h)); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("object write %s: rename: %w", h, err)
	}

	return h, nil
}

// Read retrieves an object by hash, returning its type and raw payload.
func (s *Store) Read(h Hash) (ObjectType, []byte, error) {
	if len(h) != s.algo.HexLen() {
		return "", nil, fmt.Errorf("object read %q: %w", h, ErrObjectNotFound)
	}
	compressed, err := os.ReadFile(s.objectPath(h))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil, fmt.Errorf("object read %s: %w", h, ErrObjectNotFound)
		}
		return "", nil, fmt.Errorf("object read %s: %w", h, err)
	}

	raw, err := decompressZstd(compressed)
	if err != nil {
		return "", nil, malformed(h, "decompress: %v", err)
	}

	objType, payload, err := DecodeEnvelope(raw)
	if err != nil {
		var me *MalformedObjectError
		if errors.As(err, &me) {
			me.Hash = h
		}
		return "", nil, err
	}
	return objType, payload, nil
}

// ResolvePrefix expands a partial hex hash to the unique full hash it
// prefixes. At least 4 hex characters are required, so the fan-out bucket
// is always known. A full-length hash resolves to itself when present.
func (s *Store) ResolvePrefix(prefix string) (Hash, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if len(prefix) < 4 || len(prefix) > s.algo.HexLen() {
		return "", fmt.Errorf("resolve prefix %q: %w", prefix, ErrObjectNotFound)
	}
	if _, err := hex.DecodeString(padEvenHex(prefix)); err != nil {
		return "", fmt.Errorf("resolve prefix %q: %w", prefix, ErrObjectNotFound)
	}

	if len(prefix) == s.algo.HexLen() {
		h := Hash(prefix)
		if s.Has(h) {
			return h, nil
		}
		return "", fmt.Errorf("resolve prefix %q: %w", prefix, ErrObjectNotFound)
	}

	bucket := filepath.Join(s.root, "objects", prefix[:2])
	entries, err := os.ReadDir(bucket)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("resolve prefix %q: %w", prefix, ErrObjectNotFound)
		}
		return "", fmt.Errorf("resolve prefix %q: %w", prefix, err)
	}

	var candidates []Hash
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if strings.HasPrefix(name, prefix[2:]) {
			candidates = append(candidates, Hash(prefix[:2]+name))
		}
	}

	switch len(candidates) {
	case 0:
		return "", fmt.Errorf("resolve prefix %q: %w", prefix, ErrObjectNotFound)
	case 1:
		return candidates[0], nil
	default:
		return "", &AmbiguousPrefixError{Prefix: prefix, Count: len(candidates)}
	}
}

// ListAll enumerates every object hash in the store. Used by verification
// tooling to find unreachable objects.
func (s *Store) ListAll() ([]Hash, error) {
	objectsDir := filepath.Join(s.root, "objects")
	buckets, err := os.ReadDir(objectsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list objects: %w", err)
	}

	var out []Hash
	for _, b := range buckets {
		if !b.IsDir() || len(b.Name()) != 2 {
			continue
		}
		files, err := os.ReadDir(filepath.Join(objectsDir, b.Name()))
		if err != nil {
			return nil, fmt.Errorf("list objects %s: %w", b.Name(), err)
		}
		for _, f := range files {
			name := f.Name()
			if strings.HasPrefix(name, ".") {
				continue
			}
			if len(b.Name())+len(name) != s.algo.HexLen() {
				continue
			}
			out = append(out, Hash(b.Name()+name))
		}
	}
	return out, nil
}

func padEvenHex(s string) string {
	if len(s)%2 == 1 {
		return s[:len(s)-1]
	}
	return s
}

// ---------------------------------------------------------------------------
// Typed convenience methods
// ---------------------------------------------------------------------------

// WriteBlob serializes and stores a Blob.
func (s *Store) WriteBlob(b *Blob) (Hash, error) {
	return s.Write(TypeBlob, MarshalBlob(b))
}

// ReadBlob reads and deserializes a Blob.
func (s *Store) ReadBlob(h Hash) (*Blob, error) {
	data, err := s.readTyped(h, TypeBlob)
	if err != nil {
		return nil, err
	}
	return UnmarshalBlob(data)
}

// WriteTree serializes and stores a TreeObj.
func (s *Store) WriteTree(tr *TreeObj) (Hash, error) {
	payload, err := MarshalTree(tr)
	if err != nil {
		return "", err
	}
	return s.Write(TypeTree, payload)
}

// ReadTree reads and deserializes a TreeObj.
func (s *Store) ReadTree(h Hash) (*TreeObj, error) {
	data, err := s.readTyped(h, TypeTree)
	if err != nil {
		return nil, err
	}
	return UnmarshalTree(data, s.algo)
}

// WriteCommit serializes and stores a CommitObj.
func (s *Store) WriteCommit(c *CommitObj) (Hash, error) {
	return s.Write(TypeCommit, MarshalCommit(c))
}

// ReadCommit reads and deserializes a CommitObj.
func (s *Store) ReadCommit(h Hash) (*CommitObj, error) {
	data, err := s.readTyped(h, TypeCommit)
	if err != nil {
		return nil, err
	}
	return UnmarshalCommit(data)
}

// WriteTag serializes and stores a TagObj.
func (s *Store) WriteTag(t *TagObj) (Hash, error) {
	return s.Write(TypeTag, MarshalTag(t))
}

// ReadTag reads and deserializes a TagObj.
func (s *Store) ReadTag(h Hash) (*TagObj, error) {
	data, err := s.readTyped(h, TypeTag)
	if err != nil {
		return nil, err
	}
	return UnmarshalTag(data)
}

func (s *Store) readTyped(h Hash, want ObjectType) ([]byte, error) {
	objType, data, err := s.Read(h)
	if err != nil {
		return nil, err
	}
	if objType != want {
		return nil, fmt.Errorf("object %s: type mismatch: got %q, want %q", h, objType, want)
	}
	return data, nil
}
