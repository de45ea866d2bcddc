package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dmagro/streampv/internal/config"
)

func TestPreflightFillsTotalSizeFromInputs(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "f")
	if err := os.WriteFile(p, make([]byte, 42), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{Inputs: []string{p}}
	kept, warnings := preflight(cfg)

	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
	if len(kept) != 1 || kept[0] != p {
		t.Errorf("kept = %v, want [%s]", kept, p)
	}
	if cfg.TotalSize != 42 {
		t.Errorf("TotalSize = %d, want 42", cfg.TotalSize)
	}
}

func TestPreflightKeepsETAWhenTotalResolves(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "f")
	if err := os.WriteFile(p, make([]byte, 42), 0o644); err != nil {
		t.Fatal(err)
	}

	// No explicit -s: the total comes from the stat pass, and ETA must
	// survive it.
	cfg := &config.Config{Inputs: []string{p}, ShowETA: true}
	preflight(cfg)

	if !cfg.ShowETA {
		t.Error("ShowETA disabled despite a resolvable total size")
	}
}

func TestPreflightDisablesETAWhenTotalUnknown(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "empty")
	if err := os.WriteFile(p, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{Inputs: []string{p}, ShowETA: true}
	preflight(cfg)

	if cfg.TotalSize != 0 {
		t.Fatalf("TotalSize = %d, want 0", cfg.TotalSize)
	}
	if cfg.ShowETA {
		t.Error("ShowETA still set with no known total size")
	}
}

func TestPreflightRespectsExplicitTotalSize(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "f")
	if err := os.WriteFile(p, make([]byte, 42), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{Inputs: []string{p}, TotalSize: 999}
	preflight(cfg)

	if cfg.TotalSize != 999 {
		t.Errorf("TotalSize = %d, want unchanged 999", cfg.TotalSize)
	}
}
