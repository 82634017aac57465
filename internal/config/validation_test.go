package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var knownToolsForTest = []string{"swiftlint", "swiftformat", "clang-format", "xcodegen"}

func findResult(t *testing.T, results []ValidationResult, substr string) ValidationResult {
	t.Helper()
	for _, r := range results {
		if strings.Contains(r.Message, substr) {
			return r
		}
	}
	t.Fatalf("no validation result containing %q in %+v", substr, results)
	return ValidationResult{}
}

func TestValidateCleanConfig(t *testing.T) {
	cfg := Default()
	results := cfg.ValidateStrict(t.TempDir(), knownToolsForTest)
	if len(results) != 0 {
		t.Fatalf("expected no findings, got %+v", results)
	}
}

func TestValidateBadBuildMode(t *testing.T) {
	cfg := Default()
	cfg.Precommit.Build = "sometimes"
	r := findResult(t, cfg.ValidateStrict(t.TempDir(), knownToolsForTest), "precommit.build")
	if r.Level != "error" {
		t.Fatalf("expected error level, got %s", r.Level)
	}
}

func TestValidateLinkFindings(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "Shared"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "Shared", "Util.swift"), []byte("// x\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg := Default()
	cfg.Links = []LinkSpec{
		{Path: "App/Util.swift", Target: "../Shared/Util.swift"},
		{Path: "", Target: "x"},
		{Path: "App/Gone.swift", Target: "../Shared/Gone.swift"},
	}

	results := cfg.ValidateStrict(root, knownToolsForTest)

	empty := findResult(t, results, "path is empty")
	if empty.Level != "error" {
		t.Fatalf("expected error for empty path, got %s", empty.Level)
	}
	missing := findResult(t, results, `target "../Shared/Gone.swift" not found`)
	if missing.Level != "warning" {
		t.Fatalf("expected warning for missing target, got %s", missing.Level)
	}
	for _, r := range results {
		if strings.Contains(r.Message, "Util.swift\" not found") {
			t.Fatalf("resolvable target flagged: %+v", r)
		}
	}
}

func TestValidatePins(t *testing.T) {
	cfg := Default()
	cfg.Tools.Pins = map[string]string{
		"swiftlint": "0.57.0",
		"swiftlnt":  "1.0.0",
		"xcodegen":  "  ",
	}

	results := cfg.ValidateStrict(t.TempDir(), knownToolsForTest)

	unknown := findResult(t, results, `unknown tool "swiftlnt"`)
	if unknown.Level != "warning" {
		t.Fatalf("expected warning for unknown pin, got %s", unknown.Level)
	}
	blank := findResult(t, results, "tools.pins[xcodegen] is empty")
	if blank.Level != "error" {
		t.Fatalf("expected error for blank pin, got %s", blank.Level)
	}
}

func TestValidateHeaderExtensions(t *testing.T) {
	cfg := Default()
	cfg.Headers.Extensions = []string{"swift", ".m", ""}

	results := cfg.ValidateStrict(t.TempDir(), knownToolsForTest)

	dot := findResult(t, results, `".m" should not carry a leading dot`)
	if dot.Level != "warning" {
		t.Fatalf("expected warning, got %s", dot.Level)
	}
	findResult(t, results, "empty entry")
}
