package object

// Hash is a lowercase hex-encoded digest of an object's canonical envelope.
// Its length depends on the repository's configured Algorithm.
type Hash string

// ObjectType identifies the kind of object stored.
type ObjectType string

const (
	TypeBlob   ObjectType = "blob"
	TypeTree   ObjectType = "tree"
	TypeCommit ObjectType = "commit"
	TypeTag    ObjectType = "tag"
)

// KnownType reports whether t is one of the four object kinds.
func KnownType(t ObjectType) bool {
	switch t {
	case TypeBlob, TypeTree, TypeCommit, TypeTag:
		return true
	}
	return false
}

const (
	// Tree mode constants compatible with Git's canonical mode strings.
	TreeModeDir        = "40000"
	TreeModeFile       = "100644"
	TreeModeExecutable = "100755"
)

// Blob holds raw file data.
type Blob struct {
	Data []byte
}

// TreeEntry is one entry in a tree object. Exactly one of a blob target
// (file) or a subtree target (directory) is set.
type TreeEntry struct {
	Name        string
	IsDir       bool
	Mode        string
	BlobHash    Hash
	SubtreeHash Hash
}

// Target returns the hash the entry points at.
func (e TreeEntry) Target() Hash {
	if e.IsDir {
		return e.SubtreeHash
	}
	return e.BlobHash
}

// TreeObj holds tree entries. Marshalling canonicalises the order, so
// callers may append entries in any order.
type TreeObj struct {
	Entries []TreeEntry
}

// CommitObj represents a commit pointing to a tree with metadata.
type CommitObj struct {
	TreeHash  Hash
	Parents   []Hash
	Author    string
	Timestamp int64
	Timezone  string
	Signature string
	Message   string
}

// TagObj is an annotated tag: a stored object pointing at another object.
// Lightweight tags are plain refs and never become objects.
type TagObj struct {
	TargetHash Hash
	TargetType ObjectType
	Name       string
	Tagger     string
	Timestamp  int64
	Timezone   string
	Message    string
}
