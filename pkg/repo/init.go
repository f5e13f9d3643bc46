package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gritvcs/grit/pkg/object"
)

// Init creates a new grit repository at path using the given digest
// algorithm. It creates the .grit/ directory structure: config.toml,
// HEAD, objects/, refs/heads/ and refs/tags/. Returns an error if a
// .grit/ directory already exists.
func Init(path string, algo object.Algorithm) (*Repo, error) {
	gritDir := filepath.Join(path, ".grit")

	if _, err := os.Stat(gritDir); err == nil {
		return nil, fmt.Errorf("init: repository already exists at %s", gritDir)
	}

	dirs := []string{
		filepath.Join(gritDir, "objects"),
		filepath.Join(gritDir, "refs", "heads"),
		filepath.Join(gritDir, "refs", "tags"),
		filepath.Join(gritDir, "logs", "refs", "heads"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("init: mkdir %s: %w", d, err)
		}
	}

	cfg := DefaultConfig(algo)
	if err := WriteConfig(gritDir, cfg); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}

	headPath := filepath.Join(gritDir, "HEAD")
	headContent := "ref: refs/heads/" + cfg.Core.DefaultBranch + "\n"
	if err := os.WriteFile(headPath, []byte(headContent), 0o644); err != nil {
		return nil, fmt.Errorf("init: write HEAD: %w", err)
	}

	return &Repo{
		RootDir: path,
		GritDir: gritDir,
		Store:   object.NewStore(gritDir, algo),
		Config:  cfg,
	}, nil
}

// Open searches upward from path for a .grit/ directory and opens the
// repository. The configured hash algorithm determines how the store
// addresses objects. Returns an error if no .grit/ directory is found.
func Open(path string) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open: abs path: %w", err)
	}

	cur := abs
	for {
		gritDir := filepath.Join(cur, ".grit")
		info, err := os.Stat(gritDir)
		if err == nil && info.IsDir() {
			cfg, err := ReadConfig(gritDir)
			if err != nil {
				return nil, fmt.Errorf("open: %w", err)
			}
			algo, err := object.ParseAlgorithm(cfg.Core.Hash)
			if err != nil {
				return nil, fmt.Errorf("open: %w", err)
			}
			return &Repo{
				RootDir: cur,
				GritDir: gritDir,
				Store:   object.NewStore(gritDir, algo),
				Config:  cfg,
			}, nil
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, fmt.Errorf("open: not a grit repository (or any parent up to /)")
		}
		cur = parent
	}
}

// Head reads .grit/HEAD. If the content starts with "ref: ", it returns
// the ref path (e.g. "refs/heads/main"). Otherwise it returns the raw
// content as a detached hash string.
func (r *Repo) Head() (string, error) {
	data, err := os.ReadFile(filepath.Join(r.GritDir, "HEAD"))
	if err != nil {
		return "", fmt.Errorf("head: %w", err)
	}
	content := strings.TrimRight(string(data), "\n")

	if strings.HasPrefix(content, symrefPrefix) {
		return strings.TrimPrefix(content, symrefPrefix), nil
	}
	return content, nil
}
