// Package configs materializes the canonical linter and formatter
// configuration files at a project root. Existing files are authoritative
// and are never rewritten.
package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"groundcrew/internal/paths"
)

const swiftLintYAML = `disabled_rules:
  - trailing_whitespace
  - line_length
opt_in_rules:
  - empty_count
  - closure_spacing
included:
  - Sources
  - App
excluded:
  - Pods
  - Carthage
  - build
  - .build
  - vendor
identifier_name:
  min_length: 2
force_cast: warning
force_try: warning
`

const swiftFormatConfig = `--swiftversion 5.9
--indent 4
--maxwidth 120
--wraparguments before-first
--wrapcollections before-first
--stripunusedargs closure-only
--self remove
--header strip
--exclude Pods,Carthage,build,.build,vendor
`

const clangFormatYAML = `BasedOnStyle: Google
IndentWidth: 4
TabWidth: 4
UseTab: Never
ColumnLimit: 120
AllowShortFunctionsOnASingleLine: Inline
BreakBeforeBraces: Attach
ObjCBlockIndentWidth: 4
ObjCSpaceAfterProperty: true
ObjCSpaceBeforeProtocolList: true
PointerAlignment: Right
SortIncludes: true
`

// File pairs a well-known configuration filename with its canonical content.
type File struct {
	Name    string
	Content string
}

// Result reports the outcome for a single configuration file.
type Result struct {
	Path    string `json:"path"`
	Created bool   `json:"created"`
	Error   string `json:"error,omitempty"`
}

// Logger keeps the subset of log.Logger used locally, enabling easy testing.
type Logger interface {
	Printf(format string, v ...any)
}

// Files returns the fixed configuration table in materialization order.
func Files() []File {
	return []File{
		{Name: ".swiftlint.yml", Content: swiftLintYAML},
		{Name: ".swiftformat", Content: swiftFormatConfig},
		{Name: ".clang-format", Content: clangFormatYAML},
	}
}

// Materialize writes each missing configuration file at root. A failure on
// one file never blocks the others; the joined error carries every failure
// for callers that want one.
func Materialize(root string, logger Logger) ([]Result, error) {
	results := make([]Result, 0, 3)
	var errs []error

	for _, file := range Files() {
		path := filepath.Join(root, file.Name)
		res := Result{Path: path}

		exists, err := paths.FileExists(path)
		if err != nil {
			res.Error = err.Error()
			results = append(results, res)
			errs = append(errs, fmt.Errorf("check %s: %w", file.Name, err))
			continue
		}
		if exists {
			logger.Printf("config exists: %s", path)
			results = append(results, res)
			continue
		}

		if err := os.WriteFile(path, []byte(file.Content), 0o644); err != nil {
			res.Error = err.Error()
			results = append(results, res)
			errs = append(errs, fmt.Errorf("write %s: %w", file.Name, err))
			continue
		}

		logger.Printf("created config: %s", path)
		res.Created = true
		results = append(results, res)
	}

	return results, errors.Join(errs...)
}
