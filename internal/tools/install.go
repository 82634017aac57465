package tools

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/bodgit/sevenzip"
	"github.com/xi2/xz"
)

// Options configures detection and install behaviour.
type Options struct {
	BinDir string
	Pins   map[string]string
	Force  bool

	// Progress, when set, receives in-flight phase transitions per tool
	// (detecting, resolving, downloading, extracting, installing, verifying).
	// Final state travels in the returned Status rows.
	Progress func(tool, phase string)
}

func (o Options) progress(tool, phase string) {
	if o.Progress != nil {
		o.Progress(tool, phase)
	}
}

const staleLockAge = 10 * time.Minute

// Ensure makes each requested tool available, installing into the bin
// directory when required. One tool's failure never stops the others; failures
// are carried in the Status rows and in the joined error.
func Ensure(ctx context.Context, opts Options, names ...string) ([]Status, error) {
	if len(names) == 0 {
		names = KnownTools()
	}

	for _, name := range names {
		opts.progress(name, "detecting")
	}
	statuses, err := Detect(ctx, opts.BinDir)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]Status, len(statuses))
	for _, st := range statuses {
		byName[st.Tool] = st
	}

	var results []Status
	var errs []error
	for _, name := range names {
		if st, ok := byName[name]; ok && (st.Skipped || (st.Satisfied && !opts.Force)) {
			results = append(results, st)
			continue
		}

		st, err := Install(ctx, name, opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			if st.Tool == "" {
				st.Tool = name
			}
			if st.Error == "" {
				st.Error = err.Error()
			}
			st.Notes = append(st.Notes, installHints(name)...)
		}
		results = append(results, st)
	}
	return results, errors.Join(errs...)
}

// Install downloads and installs the requested tool into the bin directory.
func Install(ctx context.Context, toolName string, opts Options) (Status, error) {
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
	}

	def, ok := Definition(toolName)
	if !ok {
		return Status{}, fmt.Errorf("unknown tool: %s", toolName)
	}
	if !supportedOnPlatform(def) {
		return Status{
			Tool:    def.Name,
			Minimum: def.MinimumVersion,
			Skipped: true,
			Notes:   []string{"not available on this platform"},
		}, nil
	}
	if opts.BinDir == "" {
		err := errors.New("no bin directory configured")
		return Status{Tool: toolName, Error: err.Error()}, err
	}

	current, err := currentStatus(ctx, toolName, opts.BinDir)
	if err != nil {
		return Status{Tool: toolName, Error: err.Error()}, err
	}

	requested := requestedVersion(opts, toolName)
	if current.Source == SourceManaged && current.Satisfied && !opts.Force {
		if requested == "" || requested == current.Version {
			return current, nil
		}
	}

	unlock, err := acquireInstallLock(ctx, def.Name)
	if err != nil {
		return Status{Tool: toolName, Error: err.Error()}, err
	}
	defer unlock()

	current, err = currentStatus(ctx, toolName, opts.BinDir)
	if err != nil {
		return Status{Tool: toolName, Error: err.Error()}, err
	}
	if current.Source == SourceManaged && current.Satisfied && !opts.Force {
		if requested == "" || requested == current.Version {
			return current, nil
		}
	}

	var fallbackNotes []string

	opts.progress(def.Name, "resolving")
	spec, ok, lookupErr := resolveRelease(ctx, def.Name, requested)
	if ok {
		relStatus, installErr := installFromRelease(ctx, def, spec, opts)
		if installErr == nil {
			return relStatus, nil
		}
		fallbackNotes = append(fallbackNotes, fmt.Sprintf("release install failed: %v", installErr))
	} else if lookupErr != nil {
		fallbackNotes = append(fallbackNotes, fmt.Sprintf("resolve: %v", lookupErr))
	} else {
		fallbackNotes = append(fallbackNotes, "resolve: no release available for this platform")
	}

	status, systemErr := installFromSystem(ctx, def, requested, opts, current, fallbackNotes)
	if systemErr == nil {
		return status, nil
	}
	return status, systemErr
}

func currentStatus(ctx context.Context, toolName, binDir string) (Status, error) {
	statuses, err := Detect(ctx, binDir)
	if err != nil {
		return Status{}, err
	}
	for _, st := range statuses {
		if st.Tool == toolName {
			return st, nil
		}
	}
	return Status{Tool: toolName}, nil
}

func requestedVersion(opts Options, toolName string) string {
	if opts.Pins == nil {
		return ""
	}
	return strings.TrimSpace(opts.Pins[toolName])
}

func installFromRelease(ctx context.Context, def ToolDefinition, spec releaseSpec, opts Options) (Status, error) {
	notes := []string{fmt.Sprintf("downloaded release %s", spec.Version)}

	if spec.URL == "" {
		return Status{Tool: def.Name, Notes: notes}, fmt.Errorf("resolve: release metadata missing download url")
	}

	downloads, err := downloadsDir()
	if err != nil {
		return Status{Tool: def.Name, Notes: notes}, err
	}
	if err := os.MkdirAll(downloads, 0o755); err != nil {
		return Status{Tool: def.Name, Notes: notes}, fmt.Errorf("download: prepare downloads dir: %w", err)
	}

	archivePath, err := resolveArchivePath(downloads, spec.URL)
	if err != nil {
		return Status{Tool: def.Name, Notes: notes}, fmt.Errorf("download: %w", err)
	}

	opts.progress(def.Name, "downloading")
	if err := ensureDownload(ctx, archivePath, spec.URL, spec.Checksum, opts.Force); err != nil {
		return Status{Tool: def.Name, Notes: notes}, fmt.Errorf("download: %w", err)
	}

	source := ""
	cleanup := func() {}

	if spec.Archive == archiveFormatNone {
		source = archivePath
	} else {
		opts.progress(def.Name, "extracting")
		extractDir, err := os.MkdirTemp(downloads, def.Name+"-extract-")
		if err != nil {
			return Status{Tool: def.Name, Notes: notes}, fmt.Errorf("extract: create extract dir: %w", err)
		}
		cleanup = func() {
			_ = os.RemoveAll(extractDir)
		}
		if err := extractArchive(spec.Archive, archivePath, extractDir); err != nil {
			cleanup()
			return Status{Tool: def.Name, Notes: notes}, fmt.Errorf("extract: %w", err)
		}
		if spec.BinaryPath != "" {
			candidate := filepath.Join(extractDir, filepath.FromSlash(spec.BinaryPath))
			if _, err := os.Stat(candidate); err != nil {
				cleanup()
				return Status{Tool: def.Name, Notes: notes}, fmt.Errorf("extract: binary %s not in archive: %w", spec.BinaryPath, err)
			}
			source = candidate
		} else {
			found, err := findExecutable(extractDir, def.Executable)
			if err != nil {
				cleanup()
				return Status{Tool: def.Name, Notes: notes}, fmt.Errorf("extract: %w", err)
			}
			if found == "" {
				cleanup()
				return Status{Tool: def.Name, Notes: notes}, fmt.Errorf("extract: binary %s not found in archive", def.Executable)
			}
			source = found
		}
	}
	defer cleanup()

	version := spec.Version
	if version == "" {
		version = def.DefaultVersion
	}

	opts.progress(def.Name, "installing")
	dest := filepath.Join(opts.BinDir, def.Executable)
	if err := commitBinary(source, dest); err != nil {
		return Status{Tool: def.Name, Notes: notes}, fmt.Errorf("stage: %w", err)
	}

	checksum, err := computeChecksum(dest)
	if err != nil {
		return Status{Tool: def.Name, Notes: notes}, fmt.Errorf("stage: %w", err)
	}

	opts.progress(def.Name, "verifying")
	installedVersion, err := readVersion(ctx, def, dest)
	if err != nil {
		return Status{Tool: def.Name, Path: dest, Notes: notes}, fmt.Errorf("verify: %w", err)
	}
	if installedVersion != version {
		notes = append(notes, fmt.Sprintf("installed binary reports %s, release metadata said %s", installedVersion, version))
		version = installedVersion
	}

	notes = append(notes, "installed into "+opts.BinDir)
	return saveInstall(def, version, dest, checksum, notes)
}

func installFromSystem(ctx context.Context, def ToolDefinition, requestedVersion string, opts Options, current Status, extraNotes []string) (Status, error) {
	systemPath := current.Path
	if systemPath == "" || current.Source != SourceSystem {
		var err error
		systemPath, err = locateSystem(def)
		if err != nil {
			st := Status{Tool: def.Name, Error: err.Error(), Notes: append([]string{}, extraNotes...)}
			return st, err
		}
	}

	version, err := readVersion(ctx, def, systemPath)
	if err != nil {
		st := Status{Tool: def.Name, Error: err.Error(), Notes: append([]string{}, extraNotes...)}
		return st, err
	}
	if requestedVersion != "" && requestedVersion != version {
		err := fmt.Errorf("requested version %s unavailable; system reports %s", requestedVersion, version)
		st := Status{Tool: def.Name, Error: err.Error(), Notes: append([]string{}, extraNotes...)}
		return st, err
	}

	notes := append([]string{}, extraNotes...)
	notes = append(notes, "copied binary from system PATH")

	opts.progress(def.Name, "installing")
	dest := filepath.Join(opts.BinDir, def.Executable)
	if err := commitBinary(systemPath, dest); err != nil {
		wrapped := fmt.Errorf("stage: %w", err)
		st := Status{Tool: def.Name, Error: wrapped.Error(), Notes: notes}
		return st, wrapped
	}

	checksum, err := computeChecksum(dest)
	if err != nil {
		wrapped := fmt.Errorf("stage: %w", err)
		st := Status{Tool: def.Name, Error: wrapped.Error(), Notes: notes}
		return st, wrapped
	}

	status, err := saveInstall(def, version, dest, checksum, notes)
	if err != nil {
		return Status{Tool: def.Name, Error: err.Error(), Notes: notes}, err
	}
	return status, nil
}

func commitBinary(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("prepare bin dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+"-*")
	if err != nil {
		return fmt.Errorf("create temp binary: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	source, err := os.Open(src)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("open source binary: %w", err)
	}
	_, copyErr := io.Copy(tmp, source)
	source.Close()
	if copyErr != nil {
		tmp.Close()
		return fmt.Errorf("write temp binary: %w", copyErr)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp binary: %w", err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0o755); err != nil {
			return fmt.Errorf("chmod binary: %w", err)
		}
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("commit binary: %w", err)
	}
	return nil
}

func saveInstall(def ToolDefinition, version, binPath, checksum string, notes []string) (Status, error) {
	manifest, err := loadManifest()
	if err != nil {
		return Status{Tool: def.Name, Error: err.Error(), Notes: notes}, err
	}
	if manifest.Entries == nil {
		manifest.Entries = map[string]ManifestEntry{}
	}

	installedAt := time.Now().UTC().Format(time.RFC3339)
	entry := ManifestEntry{
		Tool:        def.Name,
		Version:     version,
		Source:      SourceManaged,
		Path:        binPath,
		Checksum:    checksum,
		InstalledAt: installedAt,
	}
	manifest.Entries[def.Name] = entry
	if err := saveManifest(manifest); err != nil {
		return Status{Tool: def.Name, Error: err.Error(), Notes: notes}, err
	}

	satisfied := meetsMinimum(version, def.MinimumVersion)
	status := Status{
		Tool:        def.Name,
		Version:     version,
		Minimum:     def.MinimumVersion,
		Source:      SourceManaged,
		Path:        binPath,
		InstalledAt: installedAt,
		Checksum:    checksum,
		Satisfied:   satisfied,
		Notes:       append([]string{}, notes...),
	}
	if !satisfied {
		status.Error = fmt.Sprintf("version %s below minimum %s", version, def.MinimumVersion)
	}
	return status, nil
}

func acquireInstallLock(ctx context.Context, tool string) (func(), error) {
	root, err := cacheRoot()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("prepare cache root: %w", err)
	}

	lockPath := filepath.Join(root, fmt.Sprintf("%s.lock", tool))
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_ = f.Close()
			return func() { _ = os.Remove(lockPath) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		// Take over locks abandoned by a crashed invocation.
		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > staleLockAge {
			_ = os.Remove(lockPath)
			continue
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func ensureDownload(ctx context.Context, dest, downloadURL, checksum string, force bool) error {
	if !force {
		if _, err := os.Stat(dest); err == nil {
			if checksum == "" {
				return nil
			}
			if match, err := verifyChecksum(dest, checksum); err == nil && match {
				return nil
			}
		}
	}

	return downloadArtifact(ctx, dest, downloadURL, checksum)
}

func downloadArtifact(ctx context.Context, dest, downloadURL, checksum string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("prepare download destination: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "groundcrew/1.0")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", downloadURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("download %s: unexpected status %s", downloadURL, resp.Status)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(dest), "download-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		tmpFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if checksum != "" {
		match, err := verifyChecksum(tmpPath, checksum)
		if err != nil {
			return err
		}
		if !match {
			return fmt.Errorf("checksum mismatch for %s", downloadURL)
		}
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("finalize download: %w", err)
	}
	return nil
}

func verifyChecksum(path, expected string) (bool, error) {
	sum, err := computeChecksum(path)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(sum, expected), nil
}

func resolveArchivePath(downloadsDir, downloadURL string) (string, error) {
	parsed, err := url.Parse(downloadURL)
	if err != nil {
		return "", fmt.Errorf("parse download url: %w", err)
	}
	base := path.Base(parsed.Path)
	if base == "." || base == "" || base == "/" {
		return "", fmt.Errorf("infer archive name from url: %s", downloadURL)
	}
	return filepath.Join(downloadsDir, base), nil
}

func extractArchive(format archiveFormat, archivePath, dest string) error {
	switch format {
	case archiveFormatZip:
		return extractZip(archivePath, dest)
	case archiveFormatTarGz, archiveFormatTarBz2, archiveFormatTarXz:
		return extractTar(format, archivePath, dest)
	case archiveFormat7z:
		return extract7z(archivePath, dest)
	default:
		return fmt.Errorf("unsupported archive format %q", format)
	}
}

func extractZip(archivePath, dest string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		target := filepath.Join(dest, filepath.FromSlash(file.Name))
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, file.Mode()); err != nil {
				return fmt.Errorf("create dir %s: %w", target, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("prepare file %s: %w", target, err)
		}
		rc, err := file.Open()
		if err != nil {
			return fmt.Errorf("open zip entry %s: %w", file.Name, err)
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, file.Mode())
		if err != nil {
			rc.Close()
			return fmt.Errorf("create file %s: %w", target, err)
		}
		if _, err := io.Copy(out, rc); err != nil {
			rc.Close()
			out.Close()
			return fmt.Errorf("copy file %s: %w", target, err)
		}
		rc.Close()
		if err := out.Close(); err != nil {
			return fmt.Errorf("close file %s: %w", target, err)
		}
	}
	return nil
}

func extractTar(format archiveFormat, archivePath, dest string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	var reader io.Reader = file
	switch format {
	case archiveFormatTarGz:
		gz, err := gzip.NewReader(file)
		if err != nil {
			return fmt.Errorf("gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	case archiveFormatTarBz2:
		reader = bzip2.NewReader(file)
	case archiveFormatTarXz:
		xzr, err := xz.NewReader(file, 0)
		if err != nil {
			return fmt.Errorf("xz reader: %w", err)
		}
		reader = xzr
	}

	return untarStream(reader, dest)
}

func extract7z(archivePath, dest string) error {
	reader, err := sevenzip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open 7z: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		target := filepath.Join(dest, filepath.FromSlash(file.Name))
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create dir %s: %w", target, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("prepare file %s: %w", target, err)
		}
		rc, err := file.Open()
		if err != nil {
			return fmt.Errorf("open 7z entry %s: %w", file.Name, err)
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, file.Mode())
		if err != nil {
			rc.Close()
			return fmt.Errorf("create file %s: %w", target, err)
		}
		if _, err := io.Copy(out, rc); err != nil {
			rc.Close()
			out.Close()
			return fmt.Errorf("copy file %s: %w", target, err)
		}
		rc.Close()
		if err := out.Close(); err != nil {
			return fmt.Errorf("close file %s: %w", target, err)
		}
	}
	return nil
}

func untarStream(r io.Reader, dest string) error {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}
		target := filepath.Join(dest, filepath.FromSlash(header.Name))
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(header.Mode)); err != nil {
				return fmt.Errorf("create dir %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("prepare file %s: %w", target, err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode))
			if err != nil {
				return fmt.Errorf("create file %s: %w", target, err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return fmt.Errorf("write file %s: %w", target, err)
			}
			if err := out.Close(); err != nil {
				return fmt.Errorf("close file %s: %w", target, err)
			}
		default:
			// Ignore other entry types.
		}
	}
	return nil
}

func findExecutable(root, name string) (string, error) {
	var match string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if d.Name() == name {
			match = path
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return match, nil
}

func computeChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for checksum: %w", err)
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
