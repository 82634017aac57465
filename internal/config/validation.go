package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

// ValidateStrict runs all strict validations against the config and returns
// structured results.
func (c Config) ValidateStrict(projectRoot string, knownTools []string) []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validateBuildMode()...)
	results = append(results, c.validateTimeout()...)
	results = append(results, c.validateLinks(projectRoot)...)
	results = append(results, c.validateHeaderExtensions()...)
	results = append(results, c.validatePins(knownTools)...)
	results = append(results, c.validateProvisions()...)
	return results
}

func (c Config) validateBuildMode() []ValidationResult {
	switch c.Precommit.Build {
	case "", BuildAuto, BuildAlways, BuildNever:
		return nil
	}
	return []ValidationResult{{
		Level:   "error",
		Message: fmt.Sprintf("precommit.build must be one of %s, %s, %s (got %q)", BuildAuto, BuildAlways, BuildNever, c.Precommit.Build),
	}}
}

func (c Config) validateTimeout() []ValidationResult {
	if c.Precommit.TimeoutSeconds >= 0 {
		return nil
	}
	return []ValidationResult{{
		Level:   "error",
		Message: fmt.Sprintf("precommit.timeout_seconds must not be negative (got %d)", c.Precommit.TimeoutSeconds),
	}}
}

func (c Config) validateLinks(projectRoot string) []ValidationResult {
	var results []ValidationResult
	for i, link := range c.Links {
		path := strings.TrimSpace(link.Path)
		target := strings.TrimSpace(link.Target)
		if path == "" {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("links[%d]: path is empty", i),
			})
			continue
		}
		if target == "" {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("links[%d] (%s): target is empty", i, path),
			})
			continue
		}
		if filepath.IsAbs(path) {
			results = append(results, ValidationResult{
				Level:   "warning",
				Message: fmt.Sprintf("links[%d]: path %q is absolute; link paths are normally relative to the project root", i, path),
			})
		}

		// A relative target resolves from the link's own directory.
		resolved := target
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(projectRoot, filepath.Dir(path), target)
		}
		if _, err := os.Stat(resolved); err != nil {
			results = append(results, ValidationResult{
				Level:   "warning",
				Message: fmt.Sprintf("links[%d] (%s): target %q not found", i, path, target),
			})
		}
	}
	return results
}

func (c Config) validateHeaderExtensions() []ValidationResult {
	var results []ValidationResult
	for _, ext := range c.Headers.Extensions {
		trimmed := strings.TrimSpace(ext)
		if trimmed == "" {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: "headers.extensions contains an empty entry",
			})
			continue
		}
		if strings.HasPrefix(trimmed, ".") {
			results = append(results, ValidationResult{
				Level:   "warning",
				Message: fmt.Sprintf("headers.extensions entry %q should not carry a leading dot", trimmed),
			})
		}
	}
	return results
}

func (c Config) validatePins(knownTools []string) []ValidationResult {
	if len(c.Tools.Pins) == 0 {
		return nil
	}

	known := make(map[string]bool, len(knownTools))
	for _, name := range knownTools {
		known[name] = true
	}

	var results []ValidationResult
	for name, version := range c.Tools.Pins {
		if !known[name] {
			results = append(results, ValidationResult{
				Level:   "warning",
				Message: fmt.Sprintf("tools.pins references unknown tool %q (known tools: %s)", name, strings.Join(knownTools, ", ")),
			})
		}
		if strings.TrimSpace(version) == "" {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("tools.pins[%s] is empty", name),
			})
		}
	}
	return results
}

func (c Config) validateProvisions() []ValidationResult {
	if c.Provisions.WithinDays >= 0 {
		return nil
	}
	return []ValidationResult{{
		Level:   "error",
		Message: fmt.Sprintf("provisions.within_days must not be negative (got %d)", c.Provisions.WithinDays),
	}}
}
