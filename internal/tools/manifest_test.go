package tools

import (
	"path/filepath"
	"testing"
)

func TestCacheRootOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvToolsDir, dir)

	root, err := cacheRoot()
	if err != nil {
		t.Fatalf("cacheRoot: %v", err)
	}
	abs, _ := filepath.Abs(dir)
	if root != abs {
		t.Fatalf("cacheRoot = %q, want %q", root, abs)
	}
}

func TestManifestRoundtrip(t *testing.T) {
	t.Setenv(EnvToolsDir, t.TempDir())

	manifest, err := loadManifest()
	if err != nil {
		t.Fatalf("loadManifest: %v", err)
	}
	if len(manifest.Entries) != 0 {
		t.Fatalf("expected empty manifest, got %d entries", len(manifest.Entries))
	}

	manifest.Entries["swiftlint"] = ManifestEntry{
		Tool:        "swiftlint",
		Version:     "0.57.0",
		Source:      SourceManaged,
		Path:        "/home/dev/.local/bin/swiftlint",
		Checksum:    "abc123",
		InstalledAt: "2026-08-23T10:00:00Z",
	}
	if err := saveManifest(manifest); err != nil {
		t.Fatalf("saveManifest: %v", err)
	}

	loaded, err := loadManifest()
	if err != nil {
		t.Fatalf("loadManifest after save: %v", err)
	}
	entry, ok := loaded.Entries["swiftlint"]
	if !ok {
		t.Fatal("swiftlint entry missing after roundtrip")
	}
	if entry != manifest.Entries["swiftlint"] {
		t.Fatalf("entry = %+v, want %+v", entry, manifest.Entries["swiftlint"])
	}
}
