package object

import (
	"errors"
	"fmt"
)

// ErrObjectNotFound reports that no object with the requested hash exists.
var ErrObjectNotFound = errors.New("object not found")

// ErrMalformedObject reports stored or supplied bytes that do not decode
// as a valid object. It is never auto-repaired.
var ErrMalformedObject = errors.New("malformed object")

// ErrAmbiguousPrefix reports a partial hash matching more than one object.
var ErrAmbiguousPrefix = errors.New("ambiguous object prefix")

// MalformedObjectError wraps ErrMalformedObject with the offending hash
// (when known) and a reason.
type MalformedObjectError struct {
	Hash   Hash
	Reason string
}

func (e *MalformedObjectError) Error() string {
	if e.Hash == "" {
		return fmt.Sprintf("%v: %s", ErrMalformedObject, e.Reason)
	}
	return fmt.Sprintf("%v %s: %s", ErrMalformedObject, e.Hash, e.Reason)
}

func (e *MalformedObjectError) Unwrap() error { return ErrMalformedObject }

func malformed(h Hash, format string, args ...any) error {
	return &MalformedObjectError{Hash: h, Reason: fmt.Sprintf(format, args...)}
}

// AmbiguousPrefixError wraps ErrAmbiguousPrefix with the prefix and the
// number of candidates, so callers can ask for more specificity.
type AmbiguousPrefixError struct {
	Prefix string
	Count  int
}

func (e *AmbiguousPrefixError) Error() string {
	return fmt.Sprintf("%v %q: %d candidates", ErrAmbiguousPrefix, e.Prefix, e.Count)
}

func (e *AmbiguousPrefixError) Unwrap() error { return ErrAmbiguousPrefix }
