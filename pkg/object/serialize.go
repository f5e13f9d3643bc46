package object

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Envelope
// ---------------------------------------------------------------------------

// Encode wraps a serialized payload in the canonical envelope
// "type len\0payload". The object hash is the digest of these bytes.
func Encode(objType ObjectType, payload []byte) []byte {
	header := fmt.Sprintf("%s %d\x00", objType, len(payload))
	out := make([]byte, 0, len(header)+len(payload))
	out = append(out, header...)
	out = append(out, payload...)
	return out
}

// DecodeEnvelope splits canonical envelope bytes into kind and payload,
// validating the header, the kind and the declared length.
func DecodeEnvelope(raw []byte) (ObjectType, []byte, error) {
	nulIdx := bytes.IndexByte(raw, 0)
	if nulIdx < 0 {
		return "", nil, malformed("", "missing header terminator")
	}
	header := string(raw[:nulIdx])
	payload := raw[nulIdx+1:]

	kind, lenStr, ok := strings.Cut(header, " ")
	if !ok {
		return "", nil, malformed("", "invalid header %q", header)
	}
	objType := ObjectType(kind)
	if !KnownType(objType) {
		return "", nil, malformed("", "unknown object type %q", kind)
	}
	length, err := strconv.Atoi(lenStr)
	if err != nil {
		return "", nil, malformed("", "invalid length %q", lenStr)
	}
	if len(payload) != length {
		return "", nil, malformed("", "length mismatch (header=%d, actual=%d)", length, len(payload))
	}
	return objType, payload, nil
}

// ---------------------------------------------------------------------------
// Blob
// ---------------------------------------------------------------------------

// MarshalBlob serializes a Blob to raw bytes (identity).
func MarshalBlob(b *Blob) []byte {
	out := make([]byte, len(b.Data))
	copy(out, b.Data)
	return out
}

// UnmarshalBlob deserializes raw bytes into a Blob.
func UnmarshalBlob(data []byte) (*Blob, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return &Blob{Data: out}, nil
}

// ---------------------------------------------------------------------------
// TreeObj
// ---------------------------------------------------------------------------

// MarshalTree serializes a TreeObj. Entries are sorted byte-wise by Name,
// so two trees holding the same entries in any insertion order produce
// identical bytes and therefore identical hashes. Each entry is
//
//	<mode> <name>\0<raw-hash-bytes>
//
// where mode is a Git-compatible mode string and the hash is the entry's
// target (subtree for directories, blob otherwise) in raw binary form.
// Duplicate entry names are rejected.
func MarshalTree(tr *TreeObj) ([]byte, error) {
	sorted := make([]TreeEntry, len(tr.Entries))
	copy(sorted, tr.Entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	var buf bytes.Buffer
	for i, e := range sorted {
		if e.Name == "" || strings.ContainsAny(e.Name, "/\x00") {
			return nil, malformed("", "invalid tree entry name %q", e.Name)
		}
		if i > 0 && e.Name == sorted[i-1].Name {
			return nil, malformed("", "duplicate tree entry name %q", e.Name)
		}
		raw, err := hex.DecodeString(string(e.Target()))
		if err != nil || len(raw) == 0 {
			return nil, malformed("", "invalid target hash %q for entry %q", e.Target(), e.Name)
		}
		buf.WriteString(treeModeOrDefault(e))
		buf.WriteByte(' ')
		buf.WriteString(e.Name)
		buf.WriteByte(0)
		buf.Write(raw)
	}
	return buf.Bytes(), nil
}

// UnmarshalTree parses a TreeObj from its serialized form. The raw hash
// width is fixed by the repository algorithm.
func UnmarshalTree(data []byte, algo Algorithm) (*TreeObj, error) {
	tr := &TreeObj{}
	rawLen := algo.RawLen()

	rest := data
	for len(rest) > 0 {
		spaceIdx := bytes.IndexByte(rest, ' ')
		if spaceIdx < 0 {
			return nil, malformed("", "tree entry missing mode separator")
		}
		mode := string(rest[:spaceIdx])
		rest = rest[spaceIdx+1:]

		nulIdx := bytes.IndexByte(rest, 0)
		if nulIdx < 0 {
			return nil, malformed("", "tree entry missing name terminator")
		}
		name := string(rest[:nulIdx])
		rest = rest[nulIdx+1:]

		if len(rest) < rawLen {
			return nil, malformed("", "tree entry %q: truncated hash", name)
		}
		target := Hash(hex.EncodeToString(rest[:rawLen]))
		rest = rest[rawLen:]

		isDir, normMode, err := parseTreeMode(mode)
		if err != nil {
			return nil, malformed("", "tree entry %q: %v", name, err)
		}
		entry := TreeEntry{
			Name:  name,
			IsDir: isDir,
			Mode:  normMode,
		}
		if isDir {
			entry.SubtreeHash = target
		} else {
			entry.BlobHash = target
		}
		tr.Entries = append(tr.Entries, entry)
	}
	return tr, nil
}

func treeModeOrDefault(e TreeEntry) string {
	if e.IsDir {
		return TreeModeDir
	}
	if strings.TrimSpace(e.Mode) == "" {
		return TreeModeFile
	}
	return e.Mode
}

func parseTreeMode(mode string) (bool, string, error) {
	switch mode {
	case TreeModeDir:
		return true, TreeModeDir, nil
	case TreeModeFile:
		return false, TreeModeFile, nil
	case TreeModeExecutable:
		return false, TreeModeExecutable, nil
	default:
		return false, "", fmt.Errorf("unknown mode %q", mode)
	}
}

// ---------------------------------------------------------------------------
// CommitObj
// ---------------------------------------------------------------------------

// MarshalCommit serializes a CommitObj:
//
//	tree H
//	parent H     (zero or more)
//	author A T TZ
//	signature S  (optional)
//
//	message
func MarshalCommit(c *CommitObj) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", string(c.TreeHash))
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", string(p))
	}
	fmt.Fprintf(&buf, "author %s %d %s\n", c.Author, c.Timestamp, tzOrDefault(c.Timezone))
	if strings.TrimSpace(c.Signature) != "" {
		fmt.Fprintf(&buf, "signature %s\n", c.Signature)
	}
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	return buf.Bytes()
}

// UnmarshalCommit parses a CommitObj from its serialized form.
func UnmarshalCommit(data []byte) (*CommitObj, error) {
	header, message, err := splitHeaderBody(data, "commit")
	if err != nil {
		return nil, err
	}

	c := &CommitObj{Message: message}
	for _, line := range strings.Split(header, "\n") {
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, malformed("", "commit: malformed header line %q", line)
		}
		switch key {
		case "tree":
			c.TreeHash = Hash(val)
		case "parent":
			c.Parents = append(c.Parents, Hash(val))
		case "author":
			ident, ts, tz, err := parseIdentLine(val)
			if err != nil {
				return nil, malformed("", "commit: %v", err)
			}
			c.Author, c.Timestamp, c.Timezone = ident, ts, tz
		case "signature":
			c.Signature = val
		default:
			return nil, malformed("", "commit: unknown header key %q", key)
		}
	}
	if c.TreeHash == "" {
		return nil, malformed("", "commit: missing tree header")
	}
	return c, nil
}

// CommitSigningPayload returns the canonical bytes a signer signs: the
// commit serialized without its signature header.
func CommitSigningPayload(c *CommitObj) []byte {
	unsigned := *c
	unsigned.Signature = ""
	return MarshalCommit(&unsigned)
}

// ---------------------------------------------------------------------------
// TagObj
// ---------------------------------------------------------------------------

// MarshalTag serializes a TagObj:
//
//	object H
//	type T
//	tag NAME
//	tagger A T TZ
//
//	message
func MarshalTag(t *TagObj) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "object %s\n", string(t.TargetHash))
	fmt.Fprintf(&buf, "type %s\n", t.TargetType)
	fmt.Fprintf(&buf, "tag %s\n", t.Name)
	fmt.Fprintf(&buf, "tagger %s %d %s\n", t.Tagger, t.Timestamp, tzOrDefault(t.Timezone))
	buf.WriteByte('\n')
	buf.WriteString(t.Message)
	return buf.Bytes()
}

// UnmarshalTag parses a TagObj from its serialized form.
func UnmarshalTag(data []byte) (*TagObj, error) {
	header, message, err := splitHeaderBody(data, "tag")
	if err != nil {
		return nil, err
	}

	t := &TagObj{Message: message}
	for _, line := range strings.Split(header, "\n") {
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, malformed("", "tag: malformed header line %q", line)
		}
		switch key {
		case "object":
			t.TargetHash = Hash(val)
		case "type":
			kind := ObjectType(val)
			if !KnownType(kind) {
				return nil, malformed("", "tag: unknown target type %q", val)
			}
			t.TargetType = kind
		case "tag":
			t.Name = val
		case "tagger":
			ident, ts, tz, err := parseIdentLine(val)
			if err != nil {
				return nil, malformed("", "tag: %v", err)
			}
			t.Tagger, t.Timestamp, t.Timezone = ident, ts, tz
		default:
			return nil, malformed("", "tag: unknown header key %q", key)
		}
	}
	if t.TargetHash == "" {
		return nil, malformed("", "tag: missing object header")
	}
	return t, nil
}

// ---------------------------------------------------------------------------
// Header helpers
// ---------------------------------------------------------------------------

func splitHeaderBody(data []byte, kind string) (string, string, error) {
	idx := bytes.Index(data, []byte("\n\n"))
	if idx < 0 {
		return "", "", malformed("", "%s: missing header/message separator", kind)
	}
	return string(data[:idx]), string(data[idx+2:]), nil
}

// parseIdentLine splits "Name <email> 1690000000 +0200" into the identity,
// unix timestamp and timezone offset. The identity itself may contain
// spaces, so parsing works from the right.
func parseIdentLine(val string) (string, int64, string, error) {
	fields := strings.Split(val, " ")
	if len(fields) < 3 {
		return "", 0, "", fmt.Errorf("malformed identity line %q", val)
	}
	tz := fields[len(fields)-1]
	ts, err := strconv.ParseInt(fields[len(fields)-2], 10, 64)
	if err != nil {
		return "", 0, "", fmt.Errorf("bad timestamp in %q: %v", val, err)
	}
	ident := strings.Join(fields[:len(fields)-2], " ")
	return ident, ts, tz, nil
}

func tzOrDefault(tz string) string {
	if strings.TrimSpace(tz) == "" {
		return "+0000"
	}
	return tz
}
