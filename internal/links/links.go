// Package links maintains the symbolic links a project expects, replacing
// whatever currently occupies each link path.
package links

import (
	"fmt"
	"os"
	"path/filepath"

	"groundcrew/internal/config"
)

// Result reports the outcome for a single link.
type Result struct {
	Path   string `json:"path"`
	Target string `json:"target"`
	Error  string `json:"error,omitempty"`
}

// Logger receives one line per link created or repaired.
type Logger interface {
	Printf(format string, v ...any)
}

// Relink creates or replaces every configured symlink. Each link is created
// at a temporary name and renamed over the link path, so a crash never
// leaves a partial entry behind. Targets are recorded verbatim and never
// followed.
func Relink(root string, specs []config.LinkSpec, logger Logger) []Result {
	results := make([]Result, 0, len(specs))
	for _, spec := range specs {
		res := Result{Path: spec.Path, Target: spec.Target}
		if err := relinkOne(root, spec); err != nil {
			res.Error = err.Error()
			logger.Printf("relink %s: %v", spec.Path, err)
		} else {
			logger.Printf("linked %s -> %s", spec.Path, spec.Target)
		}
		results = append(results, res)
	}
	return results
}

func relinkOne(root string, spec config.LinkSpec) error {
	linkPath := spec.Path
	if !filepath.IsAbs(linkPath) {
		linkPath = filepath.Join(root, linkPath)
	}

	if err := os.MkdirAll(filepath.Dir(linkPath), 0o755); err != nil {
		return fmt.Errorf("create link directory: %w", err)
	}

	tmp := fmt.Sprintf("%s.tmp%d", linkPath, os.Getpid())
	_ = os.Remove(tmp)
	if err := os.Symlink(spec.Target, tmp); err != nil {
		return fmt.Errorf("create symlink: %w", err)
	}

	if err := os.Rename(tmp, linkPath); err != nil {
		// Rename cannot replace a directory; fall back to explicit removal.
		if removeErr := os.Remove(linkPath); removeErr != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("replace existing entry: %w", removeErr)
		}
		if err := os.Rename(tmp, linkPath); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("activate symlink: %w", err)
		}
	}
	return nil
}

// Verify reports whether each configured link currently points at its
// configured target.
func Verify(root string, specs []config.LinkSpec) []Result {
	results := make([]Result, 0, len(specs))
	for _, spec := range specs {
		res := Result{Path: spec.Path, Target: spec.Target}

		linkPath := spec.Path
		if !filepath.IsAbs(linkPath) {
			linkPath = filepath.Join(root, linkPath)
		}

		dest, err := os.Readlink(linkPath)
		switch {
		case err != nil:
			res.Error = err.Error()
		case dest != spec.Target:
			res.Error = fmt.Sprintf("points at %q", dest)
		}
		results = append(results, res)
	}
	return results
}
