package deps

import (
	"os"
	"path/filepath"
	"testing"

	"ngffconverter/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "   "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Path != present {
		t.Fatalf("expected resolved path %q, got %q", present, results[0].Path)
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("expected unconfigured command, got %#v", results[2])
	}
}

func TestConverterRequirementsTiffOptionalForNGFF(t *testing.T) {
	cfg := config.Default()
	cfg.Converters.Bioformats2Raw = "b2r"
	cfg.Converters.Raw2OmeTiff = "r2t"

	reqs := ConverterRequirements(&cfg, "OME-NGFF")
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(reqs))
	}
	if reqs[0].Command != "b2r" || reqs[0].Optional {
		t.Fatalf("unexpected ngff requirement %#v", reqs[0])
	}
	if reqs[1].Command != "r2t" || !reqs[1].Optional {
		t.Fatalf("expected optional tiff requirement, got %#v", reqs[1])
	}

	reqs = ConverterRequirements(&cfg, "ome-tiff")
	if reqs[1].Optional {
		t.Fatal("expected tiff converter to be required for OME-TIFF")
	}
	if ConverterRequirements(nil, "OME-NGFF") != nil {
		t.Fatal("expected nil requirements for nil config")
	}
}

func TestMissingSkipsOptional(t *testing.T) {
	statuses := []Status{
		{Name: "ok", Available: true},
		{Name: "gone"},
		{Name: "extra", Optional: true},
	}
	missing := Missing(statuses)
	if len(missing) != 1 || missing[0].Name != "gone" {
		t.Fatalf("unexpected missing set %#v", missing)
	}
}
