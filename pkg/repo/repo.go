package repo

import (
	"github.com/gritvcs/grit/pkg/object"
)

// Repo represents an opened grit repository. All operations take the
// repository context explicitly; there is no ambient global state, so a
// single process can drive several independent repositories.
type Repo struct {
	RootDir string        // working directory root
	GritDir string        // .grit/ directory
	Store   *object.Store // content-addressed object store
	Config  *Config       // repository-local settings
}

// Algorithm returns the digest algorithm this repository addresses
// objects with.
func (r *Repo) Algorithm() object.Algorithm {
	return r.Store.Algorithm()
}
