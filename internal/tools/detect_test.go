package tools

import (
	"context"
	"runtime"
	"testing"
)

func findStatus(t *testing.T, statuses []Status, tool string) Status {
	t.Helper()
	for _, st := range statuses {
		if st.Tool == tool {
			return st
		}
	}
	t.Fatalf("no status for %s", tool)
	return Status{}
}

func TestDetectFindsManagedBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	t.Setenv(EnvToolsDir, t.TempDir())
	binDir := t.TempDir()
	writeFakeTool(t, binDir, "swiftlint", "0.57.0")

	statuses, err := Detect(context.Background(), binDir)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	st := findStatus(t, statuses, "swiftlint")
	if !st.Satisfied {
		t.Fatalf("swiftlint not satisfied: %+v", st)
	}
	if st.Source != SourceManaged {
		t.Fatalf("source = %q, want %q", st.Source, SourceManaged)
	}
	if st.Version != "0.57.0" {
		t.Fatalf("version = %q", st.Version)
	}
	if st.Checksum == "" {
		t.Fatal("checksum missing")
	}

	manifest, err := loadManifest()
	if err != nil {
		t.Fatalf("loadManifest: %v", err)
	}
	if _, ok := manifest.Entries["swiftlint"]; !ok {
		t.Fatal("detection did not record the manifest entry")
	}
}

func TestDetectManifestShortCircuit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	t.Setenv(EnvToolsDir, t.TempDir())
	binDir := t.TempDir()
	path := writeFakeTool(t, binDir, "swiftformat", "0.54.6")

	manifest, _ := loadManifest()
	manifest.Entries["swiftformat"] = ManifestEntry{
		Tool:        "swiftformat",
		Version:     "0.54.6",
		Source:      SourceManaged,
		Path:        path,
		Checksum:    "recorded",
		InstalledAt: "2026-08-01T00:00:00Z",
	}
	if err := saveManifest(manifest); err != nil {
		t.Fatalf("saveManifest: %v", err)
	}

	statuses, err := Detect(context.Background(), binDir)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	st := findStatus(t, statuses, "swiftformat")
	if st.Checksum != "recorded" {
		t.Fatalf("expected the manifest entry to be trusted, got %+v", st)
	}
	if st.InstalledAt != "2026-08-01T00:00:00Z" {
		t.Fatalf("installed_at = %q", st.InstalledAt)
	}
}

func TestDetectReportsBelowMinimum(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	t.Setenv(EnvToolsDir, t.TempDir())
	binDir := t.TempDir()
	writeFakeTool(t, binDir, "swiftlint", "0.1.0")

	statuses, err := Detect(context.Background(), binDir)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	st := findStatus(t, statuses, "swiftlint")
	if st.Satisfied {
		t.Fatalf("expected unsatisfied status: %+v", st)
	}
	if st.Error == "" {
		t.Fatal("expected a minimum version error")
	}
}

func TestDetectMissingTool(t *testing.T) {
	t.Setenv(EnvToolsDir, t.TempDir())
	// Constrain PATH so nothing leaks in from the host.
	t.Setenv("PATH", t.TempDir())

	statuses, err := Detect(context.Background(), "")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	st := findStatus(t, statuses, "swiftlint")
	if st.Satisfied {
		t.Fatalf("expected missing tool, got %+v", st)
	}
	if st.Error == "" {
		t.Fatal("expected a not-found error")
	}
}

func TestDetectSkipsUnsupportedPlatform(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("xcodegen is supported on darwin")
	}

	t.Setenv(EnvToolsDir, t.TempDir())
	t.Setenv("PATH", t.TempDir())

	statuses, err := Detect(context.Background(), "")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	st := findStatus(t, statuses, "xcodegen")
	if !st.Skipped {
		t.Fatalf("expected skip, got %+v", st)
	}
	if st.Error != "" {
		t.Fatalf("skip must not carry an error, got %q", st.Error)
	}
}

func TestValidateManifestEntry(t *testing.T) {
	def, _ := Definition("swiftlint")

	if validateManifestEntry(ManifestEntry{}, def) {
		t.Fatal("empty entry must not validate")
	}
	if validateManifestEntry(ManifestEntry{Tool: "swiftlint"}, def) {
		t.Fatal("entry without path must not validate")
	}
	if validateManifestEntry(ManifestEntry{Tool: "swiftlint", Path: "/nonexistent/swiftlint"}, def) {
		t.Fatal("entry with missing binary must not validate")
	}

	dir := t.TempDir()
	path := writeFakeTool(t, dir, "swiftlint", "0.57.0")
	if !validateManifestEntry(ManifestEntry{Tool: "swiftlint", Path: path}, def) {
		t.Fatal("valid entry rejected")
	}
}

func TestKnownTools(t *testing.T) {
	tools := KnownTools()
	want := []string{"clang-format", "swiftformat", "swiftlint", "xcodegen"}
	if len(tools) != len(want) {
		t.Fatalf("KnownTools = %v, want %v", tools, want)
	}
	for i, name := range want {
		if tools[i] != name {
			t.Fatalf("KnownTools[%d] = %q, want %q", i, tools[i], name)
		}
	}
}
