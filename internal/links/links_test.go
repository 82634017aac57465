package links

import (
	"os"
	"path/filepath"
	"testing"

	"groundcrew/internal/config"
)

type testLogger struct{}

func (testLogger) Printf(format string, v ...any) {}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readThroughLink(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read through link: %v", err)
	}
	return string(data)
}

func TestRelinkCreatesLink(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Shared", "Util.swift"), "shared\n")

	specs := []config.LinkSpec{{Path: "App/Util.swift", Target: "../Shared/Util.swift"}}
	results := Relink(root, specs, testLogger{})

	if len(results) != 1 || results[0].Error != "" {
		t.Fatalf("unexpected results: %+v", results)
	}

	dest, err := os.Readlink(filepath.Join(root, "App", "Util.swift"))
	if err != nil {
		t.Fatalf("readlink: %v", err)
	}
	if dest != "../Shared/Util.swift" {
		t.Fatalf("link points at %q", dest)
	}
	if got := readThroughLink(t, filepath.Join(root, "App", "Util.swift")); got != "shared\n" {
		t.Fatalf("content through link: %q", got)
	}
}

func TestRelinkIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Shared", "Util.swift"), "shared\n")
	specs := []config.LinkSpec{{Path: "App/Util.swift", Target: "../Shared/Util.swift"}}

	for i := 0; i < 3; i++ {
		results := Relink(root, specs, testLogger{})
		if results[0].Error != "" {
			t.Fatalf("run %d failed: %s", i, results[0].Error)
		}
	}

	verify := Verify(root, specs)
	if verify[0].Error != "" {
		t.Fatalf("verify failed: %s", verify[0].Error)
	}
}

func TestRelinkRepointsExistingLink(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Shared", "Old.swift"), "old\n")
	writeFile(t, filepath.Join(root, "Shared", "New.swift"), "new\n")

	Relink(root, []config.LinkSpec{{Path: "App/Util.swift", Target: "../Shared/Old.swift"}}, testLogger{})
	results := Relink(root, []config.LinkSpec{{Path: "App/Util.swift", Target: "../Shared/New.swift"}}, testLogger{})

	if results[0].Error != "" {
		t.Fatalf("repoint failed: %s", results[0].Error)
	}
	if got := readThroughLink(t, filepath.Join(root, "App", "Util.swift")); got != "new\n" {
		t.Fatalf("expected repointed content, got %q", got)
	}
}

func TestRelinkReplacesRegularFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Shared", "Util.swift"), "shared\n")
	writeFile(t, filepath.Join(root, "App", "Util.swift"), "stale copy\n")

	results := Relink(root, []config.LinkSpec{{Path: "App/Util.swift", Target: "../Shared/Util.swift"}}, testLogger{})
	if results[0].Error != "" {
		t.Fatalf("replace failed: %s", results[0].Error)
	}

	info, err := os.Lstat(filepath.Join(root, "App", "Util.swift"))
	if err != nil {
		t.Fatalf("lstat: %v", err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Fatal("expected a symlink after replacement")
	}
	if got := readThroughLink(t, filepath.Join(root, "App", "Util.swift")); got != "shared\n" {
		t.Fatalf("content through link: %q", got)
	}
}

func TestRelinkAllowsDanglingTarget(t *testing.T) {
	root := t.TempDir()

	results := Relink(root, []config.LinkSpec{{Path: "App/Util.swift", Target: "../Shared/Missing.swift"}}, testLogger{})
	if results[0].Error != "" {
		t.Fatalf("dangling link creation failed: %s", results[0].Error)
	}

	dest, err := os.Readlink(filepath.Join(root, "App", "Util.swift"))
	if err != nil {
		t.Fatalf("readlink: %v", err)
	}
	if dest != "../Shared/Missing.swift" {
		t.Fatalf("link points at %q", dest)
	}
}

func TestVerifyReportsDrift(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Shared", "Util.swift"), "shared\n")
	Relink(root, []config.LinkSpec{{Path: "App/Util.swift", Target: "../Shared/Util.swift"}}, testLogger{})

	drifted := Verify(root, []config.LinkSpec{{Path: "App/Util.swift", Target: "../Shared/Other.swift"}})
	if drifted[0].Error == "" {
		t.Fatal("expected drift to be reported")
	}

	missing := Verify(root, []config.LinkSpec{{Path: "App/Absent.swift", Target: "x"}})
	if missing[0].Error == "" {
		t.Fatal("expected missing link to be reported")
	}
}
