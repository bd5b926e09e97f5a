package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "ferro.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.VM.MaxInstructions != 0 {
		t.Errorf("MaxInstructions = %d, want 0 (unlimited)", cfg.VM.MaxInstructions)
	}
	if !cfg.Optimizer.ConstantFolding || !cfg.Optimizer.DeadCode {
		t.Error("expected both optimizer passes enabled by default")
	}
}

func TestLoadParsesRecognizedKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ferro.toml")
	contents := `
[vm]
max_instructions = 100000
max_memory_slots = 4096

[optimizer]
constant_folding = true
dead_code = false

[diagnostics]
log_level = "verbose"
`
	if err := writeFile(path, contents); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.VM.MaxInstructions != 100000 {
		t.Errorf("MaxInstructions = %d, want 100000", cfg.VM.MaxInstructions)
	}
	if cfg.VM.MaxMemorySlots != 4096 {
		t.Errorf("MaxMemorySlots = %d, want 4096", cfg.VM.MaxMemorySlots)
	}
	if cfg.Optimizer.DeadCode {
		t.Error("expected dead_code = false to be honored")
	}
	if cfg.Diagnostics.LogLevel != "verbose" {
		t.Errorf("LogLevel = %q, want verbose", cfg.Diagnostics.LogLevel)
	}
}

func TestLoadRejectsMalformedToml(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ferro.toml")
	if err := writeFile(path, "[vm\nmax_instructions = "); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected malformed TOML to produce an error")
	}
}

func writeFile(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0o644)
}
