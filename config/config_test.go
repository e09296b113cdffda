package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Editor.MinSize != 8 {
		t.Fatalf("MinSize = %v", cfg.Editor.MinSize)
	}
	if cfg.Debounce() != time.Second {
		t.Fatalf("Debounce = %v", cfg.Debounce())
	}
	if !cfg.Export.Appearances || cfg.Export.Compression != 6 {
		t.Fatalf("Export = %+v", cfg.Export)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "markup.yaml")
	data := []byte(`
author: reviewer
editor:
  minSize: 12
  debounceMs: 500
encoder:
  edgeStep: 0.5
  ellipseStepDegrees: 1
  cloudPadding: 5
  curveSteps: 8
styles:
  rectangle:
    color: "#00ff00"
    strokeWidth: 3
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Author != "reviewer" || cfg.Editor.MinSize != 12 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Debounce() != 500*time.Millisecond {
		t.Fatalf("Debounce = %v", cfg.Debounce())
	}
	if cfg.Styles["rectangle"].Color != "#00ff00" {
		t.Fatalf("styles not loaded: %+v", cfg.Styles)
	}
	// untouched sections keep their defaults
	if cfg.Raster.DPI != 144 {
		t.Fatalf("raster defaults lost: %+v", cfg.Raster)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PDFMARKUP_AUTHOR", "env-author")
	t.Setenv("PDFMARKUP_MIN_SIZE", "4")
	t.Setenv("PDFMARKUP_DEBOUNCE_MS", "250")
	t.Setenv("PDFMARKUP_DELETE_ON_DBLCLICK", "false")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Author != "env-author" || cfg.Editor.MinSize != 4 || cfg.Editor.DebounceMs != 250 {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.Selection.DeleteOnDoubleClick {
		t.Fatal("DeleteOnDoubleClick should be false")
	}
}

func TestEnvOverrideInvalid(t *testing.T) {
	t.Setenv("PDFMARKUP_MIN_SIZE", "big")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for non-numeric min size")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Encoder.EllipseStep = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero ellipse step")
	}
	cfg = Default()
	cfg.Styles["ellipse"] = StyleConfig{Opacity: 2}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for opacity > 1")
	}
	cfg = Default()
	cfg.Export.Compression = 12
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for compression level 12")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
