// Package headers normalizes license headers across a source tree. It
// replaces a recognized leading header block with the canonical one and is
// idempotent: normalizing already-normalized content is a byte-level no-op.
package headers

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Outcome classifies what normalization did to one file.
type Outcome string

const (
	Unchanged Outcome = "unchanged"
	Rewritten Outcome = "rewritten"
)

// Rule binds a comment marker to the canonical header text for a family of
// file extensions.
type Rule struct {
	Marker string   // line comment marker, "//" or "#"
	Header []string // canonical header, plain text lines without markers
}

// markerByExtension maps supported extensions (no leading dot) to their line
// comment marker.
var markerByExtension = map[string]string{
	"swift": "//",
	"h":     "//",
	"m":     "//",
	"mm":    "//",
	"c":     "//",
	"cc":    "//",
	"cpp":   "//",
	"cxx":   "//",
	"hpp":   "//",
	"java":  "//",
	"kt":    "//",
	"go":    "//",
	"sh":    "#",
	"bash":  "#",
	"py":    "#",
	"rb":    "#",
	"yml":   "#",
	"yaml":  "#",
}

// licenseMarkers identify a comment block as a license header rather than
// ordinary documentation.
var licenseMarkers = []string{
	"copyright",
	"spdx-license-identifier",
	"licensed under",
	"all rights reserved",
}

// RuleForExtension returns the rule for a file extension, or false when the
// extension has no known comment style.
func RuleForExtension(ext string, header []string) (Rule, bool) {
	marker, ok := markerByExtension[strings.TrimPrefix(ext, ".")]
	if !ok {
		return Rule{}, false
	}
	return Rule{Marker: marker, Header: header}, true
}

// HeaderLines builds the canonical header text from the configured owner and
// license identifier.
func HeaderLines(owner, license string, year int) []string {
	if strings.TrimSpace(owner) == "" {
		owner = "the project authors"
	}
	lines := []string{fmt.Sprintf("Copyright © %d %s. All rights reserved.", year, owner)}
	if strings.TrimSpace(license) != "" {
		lines = append(lines, fmt.Sprintf("SPDX-License-Identifier: %s", license))
	}
	return lines
}

// Render returns the canonical header as a comment block, one marker-prefixed
// line per header line.
func (r Rule) Render() string {
	var b strings.Builder
	for _, line := range r.Header {
		if line == "" {
			b.WriteString(r.Marker)
		} else {
			b.WriteString(r.Marker + " " + line)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Normalize rewrites content so it begins with the canonical header. Any
// shebang line and encoding marker stay in place ahead of the header. A
// leading comment block is replaced only when it reads like a license
// header; documentation comments are preserved below the inserted header.
func Normalize(content []byte, rule Rule) ([]byte, Outcome) {
	text := string(content)
	lines := strings.Split(text, "\n")

	var prologue []string
	idx := 0

	if idx < len(lines) && strings.HasPrefix(lines[idx], "#!") {
		prologue = append(prologue, lines[idx])
		idx++
	}
	if idx < len(lines) && isEncodingMarker(lines[idx]) {
		prologue = append(prologue, lines[idx])
		idx++
	}

	// Skip blank lines between the prologue and the first real line.
	for idx < len(lines) && strings.TrimSpace(lines[idx]) == "" {
		idx++
	}

	candidate, afterCandidate := leadingCommentRun(lines, idx, rule.Marker)
	if !isLicenseBlock(candidate) {
		// Keep the documentation comment; the header goes above it.
		afterCandidate = idx
	}

	// Drop blank lines so the output carries exactly one separator.
	for afterCandidate < len(lines) && strings.TrimSpace(lines[afterCandidate]) == "" {
		afterCandidate++
	}
	rest := strings.Join(lines[afterCandidate:], "\n")

	var b strings.Builder
	for _, line := range prologue {
		b.WriteString(line + "\n")
	}
	b.WriteString(rule.Render())
	if strings.TrimSpace(rest) != "" {
		b.WriteString("\n")
		b.WriteString(rest)
		if !strings.HasSuffix(rest, "\n") {
			b.WriteString("\n")
		}
	}

	out := b.String()
	if out == text {
		return content, Unchanged
	}
	return []byte(out), Rewritten
}

// leadingCommentRun returns the comment block starting at idx and the index
// of the first line after it. A block is either a run of marker-prefixed
// lines or a single /* ... */ comment.
func leadingCommentRun(lines []string, idx int, marker string) ([]string, int) {
	if idx >= len(lines) {
		return nil, idx
	}

	trimmed := strings.TrimSpace(lines[idx])
	if marker == "//" && strings.HasPrefix(trimmed, "/*") {
		var block []string
		for i := idx; i < len(lines); i++ {
			block = append(block, lines[i])
			if strings.Contains(lines[i], "*/") {
				return block, i + 1
			}
		}
		// Unterminated block comment; treat as opaque content.
		return nil, idx
	}

	var block []string
	i := idx
	for i < len(lines) {
		t := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(t, marker) || strings.HasPrefix(t, "#!") {
			break
		}
		block = append(block, lines[i])
		i++
	}
	return block, i
}

func isLicenseBlock(block []string) bool {
	if len(block) == 0 {
		return false
	}
	joined := strings.ToLower(strings.Join(block, "\n"))
	for _, marker := range licenseMarkers {
		if strings.Contains(joined, marker) {
			return true
		}
	}
	return false
}

func isEncodingMarker(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "#") && !strings.HasPrefix(trimmed, "//") {
		return false
	}
	if strings.Count(trimmed, "-*-") >= 2 {
		return true
	}
	return strings.Contains(trimmed, "coding:") || strings.Contains(trimmed, "coding=")
}

// FileResult reports the outcome for one file in a tree walk.
type FileResult struct {
	Path    string  `json:"path"`
	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error,omitempty"`
}

// Options configures a tree normalization pass.
type Options struct {
	Extensions []string
	Header     []string
	Excluded   []string
	DryRun     bool
}

// DefaultExcluded lists directory names skipped during the walk.
var DefaultExcluded = []string{
	"Pods", "Carthage", "vendor", "build", ".build", ".git",
	"DerivedData", "node_modules",
}

// Logger receives a line for every file rewritten or failed.
type Logger interface {
	Printf(format string, v ...any)
}

// NormalizeTree walks root and normalizes every file whose extension is in
// opts.Extensions, skipping excluded directories. With DryRun set, files are
// inspected but never written.
func NormalizeTree(root string, opts Options, logger Logger) ([]FileResult, error) {
	wanted := make(map[string]bool, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		wanted[strings.TrimPrefix(strings.TrimSpace(ext), ".")] = true
	}

	excluded := opts.Excluded
	if excluded == nil {
		excluded = DefaultExcluded
	}
	skip := make(map[string]bool, len(excluded))
	for _, name := range excluded {
		skip[name] = true
	}

	var results []FileResult
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skip[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.TrimPrefix(filepath.Ext(d.Name()), ".")
		if !wanted[ext] {
			return nil
		}
		rule, ok := RuleForExtension(ext, opts.Header)
		if !ok {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}

		outcome, normErr := normalizeFile(path, rule, opts.DryRun)
		res := FileResult{Path: rel, Outcome: outcome}
		if normErr != nil {
			res.Error = normErr.Error()
			logger.Printf("normalize %s: %v", rel, normErr)
		} else if outcome == Rewritten {
			logger.Printf("normalized %s", rel)
		}
		results = append(results, res)
		return nil
	})
	if err != nil {
		return results, fmt.Errorf("walk %s: %w", root, err)
	}
	return results, nil
}

func normalizeFile(path string, rule Rule, dry bool) (Outcome, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Unchanged, fmt.Errorf("read: %w", err)
	}

	out, outcome := Normalize(content, rule)
	if outcome == Unchanged || dry {
		return outcome, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return outcome, fmt.Errorf("stat: %w", err)
	}
	if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return outcome, fmt.Errorf("write: %w", err)
	}
	return outcome, nil
}
