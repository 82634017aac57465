package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"groundcrew/internal/config"
	"groundcrew/internal/execx"
	"groundcrew/internal/paths"
)

func TestJoinComma(t *testing.T) {
	tests := []struct {
		input []string
		want  string
	}{
		{nil, ""},
		{[]string{"swiftlint 0.57.0"}, "swiftlint 0.57.0"},
		{[]string{"swiftlint 0.57.0", "xcodegen 2.42.0"}, "swiftlint 0.57.0, xcodegen 2.42.0"},
		{[]string{"a", "b", "c"}, "a, b, c"},
	}

	for _, tt := range tests {
		got := joinComma(tt.input)
		if got != tt.want {
			t.Errorf("joinComma(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestPathListContains(t *testing.T) {
	list := strings.Join([]string{"/usr/bin", "/home/dev/.local/bin/"}, string(os.PathListSeparator))

	if !pathListContains(list, "/usr/bin") {
		t.Error("expected exact entry to match")
	}
	if !pathListContains(list, "/home/dev/.local/bin") {
		t.Error("expected trailing-slash entry to match after cleaning")
	}
	if pathListContains(list, "/opt/bin") {
		t.Error("did not expect /opt/bin to match")
	}
	if pathListContains("", "/usr/bin") {
		t.Error("did not expect a match against an empty list")
	}
}

func TestFirstOutputLine(t *testing.T) {
	tests := []struct {
		name string
		out  execx.RunResult
		want string
	}{
		{"stdout first line", execx.RunResult{Stdout: []byte("git version 2.42.0\nmore\n")}, "git version 2.42.0"},
		{"falls back to stderr", execx.RunResult{Stderr: []byte("xcode-select: note\n")}, "xcode-select: note"},
		{"empty", execx.RunResult{}, ""},
		{"trims whitespace", execx.RunResult{Stdout: []byte("  /Library/Developer \n")}, "/Library/Developer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := firstOutputLine(tt.out); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCheckConfigWithError(t *testing.T) {
	var emptyCfg config.Config
	result := checkConfig(t.TempDir(), emptyCfg, fmt.Errorf("unmarshal config: yaml: line 3: mapping values"))

	if result.Status != "error" {
		t.Errorf("got status=%q, want error", result.Status)
	}
	if result.Name != "Config" {
		t.Errorf("got name=%q, want Config", result.Name)
	}
}

func TestCheckConfigValid(t *testing.T) {
	cfg := config.Default()
	cfg.ApplyDefaults()
	result := checkConfig(t.TempDir(), cfg, nil)

	if result.Status != "ok" {
		t.Errorf("got status=%q, want ok", result.Status)
	}
	if result.Summary != "0 links, 0 pins" {
		t.Errorf("got summary=%q", result.Summary)
	}
}

func TestCheckConfigReportsFindings(t *testing.T) {
	cfg := config.Default()
	cfg.ApplyDefaults()
	cfg.Links = []config.LinkSpec{{Path: "Tools/lint.yml", Target: ""}}

	result := checkConfig(t.TempDir(), cfg, nil)
	if result.Status != "error" {
		t.Errorf("got status=%q, want error", result.Status)
	}
	if !strings.Contains(result.Summary, "1 errors") {
		t.Errorf("expected error count in summary, got %q", result.Summary)
	}
}

func TestCheckHook(t *testing.T) {
	t.Run("not installed", func(t *testing.T) {
		pp, err := paths.Resolve(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		result := checkHook(pp)
		if result.Status != "warning" {
			t.Errorf("got status=%q, want warning", result.Status)
		}
		if !strings.Contains(result.Summary, "not installed") {
			t.Errorf("unexpected summary %q", result.Summary)
		}
	})

	t.Run("installed", func(t *testing.T) {
		pp, err := paths.Resolve(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		writeHookFile(t, pp, hookScript)
		result := checkHook(pp)
		if result.Status != "ok" {
			t.Errorf("got status=%q, want ok", result.Status)
		}
	})

	t.Run("foreign hook", func(t *testing.T) {
		pp, err := paths.Resolve(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		writeHookFile(t, pp, "#!/bin/sh\nmake lint\n")
		result := checkHook(pp)
		if result.Status != "warning" {
			t.Errorf("got status=%q, want warning", result.Status)
		}
		if !strings.Contains(result.Summary, "foreign") {
			t.Errorf("unexpected summary %q", result.Summary)
		}
	})
}

func writeHookFile(t *testing.T, pp paths.ProjectPaths, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(pp.PreCommitHook), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(pp.PreCommitHook, []byte(contents), 0o755); err != nil {
		t.Fatal(err)
	}
}
