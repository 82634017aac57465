package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"
)

// Detect returns the status of each known tool, updating the manifest when new
// information is discovered. Resolution order is manifest, then the managed bin
// directory, then the system PATH.
func Detect(ctx context.Context, binDir string) ([]Status, error) {
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}

	manifest, err := loadManifest()
	if err != nil {
		return nil, err
	}

	var statuses []Status
	changed := false

	for _, name := range KnownTools() {
		def, _ := Definition(name)
		status, entry, dirty := detectOne(ctx, def, binDir, manifest.Entries[name])
		statuses = append(statuses, status)
		if dirty {
			if entry.Tool == "" {
				delete(manifest.Entries, name)
			} else {
				if manifest.Entries == nil {
					manifest.Entries = map[string]ManifestEntry{}
				}
				manifest.Entries[name] = entry
			}
			changed = true
		}
	}

	if changed {
		if err := saveManifest(manifest); err != nil {
			return nil, err
		}
	}

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Tool < statuses[j].Tool })
	return statuses, nil
}

func detectOne(ctx context.Context, def ToolDefinition, binDir string, entry ManifestEntry) (Status, ManifestEntry, bool) {
	status := Status{Tool: def.Name, Minimum: def.MinimumVersion}

	if !supportedOnPlatform(def) {
		status.Skipped = true
		status.Notes = append(status.Notes, "not available on this platform")
		if entry.Tool != "" {
			return status, ManifestEntry{}, true
		}
		return status, ManifestEntry{}, false
	}

	// Validate manifest entry if present.
	if entry.Tool != "" {
		if validateManifestEntry(entry, def) {
			version, err := readVersion(ctx, def, entry.Path)
			if err == nil {
				status.Version = version
				status.Path = entry.Path
				status.Source = entry.Source
				status.Checksum = entry.Checksum
				status.InstalledAt = entry.InstalledAt
				status.Satisfied = meetsMinimum(version, def.MinimumVersion)
				if !status.Satisfied {
					status.Error = fmt.Sprintf("version %s below minimum %s", version, def.MinimumVersion)
				}
				return status, entry, false
			}
			status.Notes = append(status.Notes, fmt.Sprintf("manifest entry invalid: %v", err))
		}
	}

	// Check the managed bin directory.
	binPath, err := locateBinDir(def, binDir)
	if err == nil {
		version, verr := readVersion(ctx, def, binPath)
		if verr == nil {
			status.Version = version
			status.Path = binPath
			status.Source = SourceManaged
			status.Satisfied = meetsMinimum(version, def.MinimumVersion)
			if !status.Satisfied {
				status.Error = fmt.Sprintf("version %s below minimum %s", version, def.MinimumVersion)
			}

			checksum, csErr := computeChecksum(binPath)
			if csErr != nil {
				status.Notes = append(status.Notes, fmt.Sprintf("checksum error: %v", csErr))
			} else {
				status.Checksum = checksum
			}

			entry = ManifestEntry{
				Tool:        def.Name,
				Version:     version,
				Source:      SourceManaged,
				Path:        binPath,
				Checksum:    status.Checksum,
				InstalledAt: time.Now().UTC().Format(time.RFC3339),
			}
			return status, entry, true
		}
	}

	// Fallback to system PATH.
	systemPath, err := locateSystem(def)
	if err != nil {
		status.Error = err.Error()
		if entry.Tool != "" {
			return status, ManifestEntry{}, true
		}
		return status, ManifestEntry{}, false
	}

	version, err := readVersion(ctx, def, systemPath)
	if err != nil {
		status.Error = err.Error()
		status.Path = systemPath
		if entry.Tool != "" {
			return status, ManifestEntry{}, true
		}
		return status, ManifestEntry{}, false
	}

	status.Version = version
	status.Path = systemPath
	status.Source = SourceSystem
	status.Satisfied = meetsMinimum(version, def.MinimumVersion)
	if !status.Satisfied {
		status.Error = fmt.Sprintf("version %s below minimum %s", version, def.MinimumVersion)
	}

	newEntry := ManifestEntry{
		Tool:        def.Name,
		Version:     version,
		Source:      SourceSystem,
		Path:        systemPath,
		InstalledAt: time.Now().UTC().Format(time.RFC3339),
	}

	dirty := entry.Tool == "" || entry.Source != SourceSystem || entry.Path != systemPath || entry.Version != version
	if dirty {
		entry = newEntry
	}

	return status, entry, dirty
}

func validateManifestEntry(entry ManifestEntry, def ToolDefinition) bool {
	if entry.Tool != def.Name {
		return false
	}
	if entry.Path == "" {
		return false
	}
	if _, err := os.Stat(entry.Path); err != nil {
		return false
	}
	return true
}

func locateBinDir(def ToolDefinition, binDir string) (string, error) {
	if binDir == "" {
		return "", errors.New("no bin directory configured")
	}
	path := filepath.Join(binDir, def.Executable)
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	return path, nil
}

func locateSystem(def ToolDefinition) (string, error) {
	path, err := exec.LookPath(def.Executable)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH", def.Executable)
	}
	return path, nil
}
