package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gritvcs/grit/pkg/object"
)

func TestConfigRoundTrip(t *testing.T) {
	r := initTestRepo(t)

	cfg, err := ReadConfig(r.GritDir)
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if cfg.Core.Hash != "sha256" {
		t.Errorf("core.hash: got %q, want sha256", cfg.Core.Hash)
	}
	if cfg.Core.DefaultBranch != "main" {
		t.Errorf("core.default-branch: got %q, want main", cfg.Core.DefaultBranch)
	}
	if cfg.FormatVersion != 0 {
		t.Errorf("format-version: got %d, want 0", cfg.FormatVersion)
	}
}

func TestSetUserPersists(t *testing.T) {
	r := initTestRepo(t)
	if err := r.SetUser("Ada Lovelace", "ada@example.com"); err != nil {
		t.Fatalf("SetUser: %v", err)
	}

	reopened, err := Open(r.RootDir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := reopened.Config.Identity(); got != "Ada Lovelace <ada@example.com>" {
		t.Errorf("Identity: got %q", got)
	}
}

func TestIdentityFallbacks(t *testing.T) {
	var nilCfg *Config
	if got := nilCfg.Identity(); got != "unknown" {
		t.Errorf("nil config Identity: got %q, want unknown", got)
	}
	cfg := &Config{User: UserConfig{Name: "Ada"}}
	if got := cfg.Identity(); got != "Ada" {
		t.Errorf("name-only Identity: got %q, want Ada", got)
	}
}

func TestReadConfigRejectsUnsupportedVersion(t *testing.T) {
	r := initTestRepo(t)
	cfg := DefaultConfig(object.SHA256)
	cfg.FormatVersion = 99
	if err := WriteConfig(r.GritDir, cfg); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	if _, err := ReadConfig(r.GritDir); err == nil {
		t.Error("expected unsupported format-version error")
	}
}

func TestReadConfigRejectsUnknownHash(t *testing.T) {
	gritDir := t.TempDir()
	content := "format-version = 0\n\n[core]\nhash = \"md5\"\ndefault-branch = \"main\"\n"
	if err := os.WriteFile(filepath.Join(gritDir, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadConfig(gritDir); err == nil {
		t.Error("expected unknown hash algorithm error")
	}
}

func TestReadConfigMissing(t *testing.T) {
	if _, err := ReadConfig(t.TempDir()); err == nil {
		t.Error("expected missing config error")
	}
}
