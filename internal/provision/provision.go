// Package provision decodes Apple provisioning profiles and classifies them
// against their expiration date. Profiles arrive either as standalone
// .mobileprovision files or embedded inside .ipa archives.
package provision

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"howett.net/plist"

	"groundcrew/internal/execx"
)

// Profile carries the fields read out of a decoded provisioning profile.
type Profile struct {
	Name       string    `json:"name" plist:"Name"`
	AppIDName  string    `json:"app_id_name,omitempty" plist:"AppIDName"`
	TeamName   string    `json:"team_name,omitempty" plist:"TeamName"`
	UUID       string    `json:"uuid,omitempty" plist:"UUID"`
	Expiration time.Time `json:"expiration" plist:"ExpirationDate"`
}

// Status classifies a profile against the expiry horizon.
type Status string

const (
	StatusValid    Status = "valid"
	StatusExpiring Status = "expiring"
	StatusExpired  Status = "expired"
)

// Result pairs a scanned file with its decoded profile and classification.
type Result struct {
	Path    string  `json:"path"`
	Profile Profile `json:"profile"`
	Status  Status  `json:"status,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// Logger receives a line for every profile that fails to decode.
type Logger interface {
	Printf(format string, v ...any)
}

// Decode runs the profile through `security cms -D` and parses the plist
// payload it prints.
func Decode(ctx context.Context, runner execx.Runner, path string) (Profile, error) {
	out, err := runner.Run(ctx, "security", []string{"cms", "-D", "-i", path}, execx.RunOptions{})
	if err != nil {
		return Profile{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	var profile Profile
	if _, err := plist.Unmarshal(out.Stdout, &profile); err != nil {
		return Profile{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if profile.Expiration.IsZero() {
		return profile, fmt.Errorf("parse %s: no expiration date", filepath.Base(path))
	}
	return profile, nil
}

// Classify places a profile relative to now and the expiring horizon.
func Classify(p Profile, now time.Time, horizon time.Duration) Status {
	switch {
	case !p.Expiration.After(now):
		return StatusExpired
	case p.Expiration.Before(now.Add(horizon)):
		return StatusExpiring
	default:
		return StatusValid
	}
}

// ExtractFromIPA copies the embedded.mobileprovision out of an .ipa archive
// into destDir and returns its path.
func ExtractFromIPA(ipaPath, destDir string) (string, error) {
	archive, err := zip.OpenReader(ipaPath)
	if err != nil {
		return "", fmt.Errorf("open ipa: %w", err)
	}
	defer archive.Close()

	for _, file := range archive.File {
		if !strings.HasSuffix(file.Name, "embedded.mobileprovision") {
			continue
		}

		src, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("open embedded profile: %w", err)
		}
		defer src.Close()

		outPath := filepath.Join(destDir, filepath.Base(ipaPath)+".mobileprovision")
		dst, err := os.Create(outPath)
		if err != nil {
			return "", fmt.Errorf("extract embedded profile: %w", err)
		}
		if _, err := io.Copy(dst, src); err != nil {
			dst.Close()
			return "", fmt.Errorf("extract embedded profile: %w", err)
		}
		if err := dst.Close(); err != nil {
			return "", fmt.Errorf("extract embedded profile: %w", err)
		}
		return outPath, nil
	}
	return "", fmt.Errorf("no embedded.mobileprovision in %s", filepath.Base(ipaPath))
}

// Options configures a scan.
type Options struct {
	Runner  execx.Runner
	Now     time.Time
	Horizon time.Duration
	Logger  Logger
}

// Scan walks dir for .mobileprovision and .ipa files and classifies each
// profile it finds. Per-file failures land in the result row; only a missing
// directory is an error.
func Scan(ctx context.Context, dir string, opts Options) ([]Result, error) {
	if opts.Runner == nil {
		opts.Runner = execx.CmdRunner{}
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read provisions dir: %w", err)
	}

	tempDir, err := os.MkdirTemp("", "groundcrew-provisions-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	var results []Result
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		switch {
		case strings.HasSuffix(entry.Name(), ".mobileprovision"):
			results = append(results, scanOne(ctx, path, path, opts))
		case strings.HasSuffix(entry.Name(), ".ipa"):
			extracted, err := ExtractFromIPA(path, tempDir)
			if err != nil {
				results = append(results, Result{Path: path, Error: err.Error()})
				if opts.Logger != nil {
					opts.Logger.Printf("scan %s: %v", entry.Name(), err)
				}
				continue
			}
			results = append(results, scanOne(ctx, extracted, path, opts))
		}
	}
	return results, nil
}

func scanOne(ctx context.Context, decodePath, reportPath string, opts Options) Result {
	res := Result{Path: reportPath}

	profile, err := Decode(ctx, opts.Runner, decodePath)
	if err != nil {
		res.Error = err.Error()
		if opts.Logger != nil {
			opts.Logger.Printf("scan %s: %v", filepath.Base(reportPath), err)
		}
		return res
	}

	res.Profile = profile
	res.Status = Classify(profile, opts.Now, opts.Horizon)
	return res
}
