package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"groundcrew/internal/config"
)

// EnvBinDir overrides the user-local bin directory tools install into.
const EnvBinDir = "GROUNDCREW_BIN_DIR"

// ProjectPaths captures canonical locations inside a working tree.
type ProjectPaths struct {
	Root            string
	ConfigFile      string
	SwiftLintConfig string
	SwiftFormatFile string
	ClangFormatFile string
	XcodeGenSpec    string
	GitDir          string
	PreCommitHook   string
	ProvisionsDir   string
}

// Resolve determines the project root using the optional --project flag or the
// current working directory when the flag is empty.
func Resolve(projectFlag string) (ProjectPaths, error) {
	var (
		root string
		err  error
	)

	if projectFlag != "" {
		root, err = filepath.Abs(projectFlag)
	} else {
		root, err = os.Getwd()
	}
	if err != nil {
		return ProjectPaths{}, fmt.Errorf("resolve project root: %w", err)
	}

	return newProjectPaths(root), nil
}

func newProjectPaths(root string) ProjectPaths {
	gitDir := filepath.Join(root, ".git")
	return ProjectPaths{
		Root:            root,
		ConfigFile:      filepath.Join(root, "groundcrew.yaml"),
		SwiftLintConfig: filepath.Join(root, ".swiftlint.yml"),
		SwiftFormatFile: filepath.Join(root, ".swiftformat"),
		ClangFormatFile: filepath.Join(root, ".clang-format"),
		XcodeGenSpec:    filepath.Join(root, "project.yml"),
		GitDir:          gitDir,
		PreCommitHook:   filepath.Join(gitDir, "hooks", "pre-commit"),
		ProvisionsDir:   filepath.Join(root, "check"),
	}
}

// ApplyConfig overlays configuration-driven locations on the defaults.
func ApplyConfig(pp ProjectPaths, cfg config.Config) ProjectPaths {
	if dir := strings.TrimSpace(cfg.Provisions.Dir); dir != "" {
		pp.ProvisionsDir = resolveProjectPath(pp.Root, dir)
	}
	return pp
}

func resolveProjectPath(root, value string) string {
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	return filepath.Join(root, value)
}

// BinDir returns the user-local bin directory binaries install into,
// honoring the config override, then GROUNDCREW_BIN_DIR, then the
// ~/.local/bin default. The directory is created if missing.
func BinDir(cfg config.Config) (string, error) {
	dir, err := BinDirPath(cfg)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create bin dir: %w", err)
	}
	return dir, nil
}

// BinDirPath resolves the bin directory without creating it. Read-only
// callers like doctor use this to avoid touching the filesystem.
func BinDirPath(cfg config.Config) (string, error) {
	dir := strings.TrimSpace(cfg.Tools.BinDir)
	if dir == "" {
		dir = os.Getenv(EnvBinDir)
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("detect user home: %w", err)
		}
		dir = filepath.Join(home, ".local", "bin")
	}
	return dir, nil
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
