package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"time"
)

// Overridable for tests.
var (
	releaseAPIBase = "https://api.github.com"
	releaseClient  = &http.Client{Timeout: 30 * time.Second}
)

func resolveRelease(ctx context.Context, tool, version string) (releaseSpec, bool, error) {
	// Check the on-disk cache for "latest" lookups (version == "").
	if version == "" {
		if cached, ok := cachedLatestRelease(tool); ok {
			return cached, true, nil
		}
	}

	spec, err := fetchGitHubRelease(ctx, tool, version)
	if err == nil {
		if version == "" {
			cacheLatestRelease(tool, spec)
		}
		return spec, true, nil
	}
	dynamicErr := err

	spec, ok := lookupStaticRelease(tool, version)
	if ok {
		return spec, true, dynamicErr
	}

	return releaseSpec{}, false, dynamicErr
}

type githubReleaseAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

type githubRelease struct {
	TagName string               `json:"tag_name"`
	Assets  []githubReleaseAsset `json:"assets"`
}

func fetchGitHubRelease(ctx context.Context, tool, version string) (releaseSpec, error) {
	def, ok := Definition(tool)
	if !ok {
		return releaseSpec{}, fmt.Errorf("unknown tool: %s", tool)
	}

	candidates := assetCandidates(tool)
	if len(candidates) == 0 {
		return releaseSpec{}, fmt.Errorf("%s download unsupported on %s/%s", tool, runtime.GOOS, runtime.GOARCH)
	}

	endpoints := releaseEndpoints(def.Repo, version)

	var lastErr error
	for _, endpoint := range endpoints {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			lastErr = err
			continue
		}
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("User-Agent", "groundcrew/1.0")

		resp, err := releaseClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			resp.Body.Close()
			lastErr = fmt.Errorf("%s release not found at %s", tool, endpoint)
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			lastErr = fmt.Errorf("%s release query failed: %s", tool, resp.Status)
			continue
		}

		var release githubRelease
		if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
			resp.Body.Close()
			lastErr = fmt.Errorf("decode %s release: %w", tool, err)
			continue
		}
		resp.Body.Close()

		asset, err := selectAsset(release.Assets, candidates)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", tool, err)
			continue
		}

		return releaseSpec{
			Version:    versionFromTag(release.TagName),
			URL:        asset.BrowserDownloadURL,
			Archive:    formatForAsset(asset.Name),
			BinaryPath: archiveBinaryPath(tool, asset.Name),
		}, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("%s release metadata unavailable", tool)
	}
	return releaseSpec{}, lastErr
}

func releaseEndpoints(repo, version string) []string {
	base := fmt.Sprintf("%s/repos/%s/releases", releaseAPIBase, repo)
	if version == "" {
		return []string{base + "/latest"}
	}

	ver := url.PathEscape(version)
	endpoints := []string{fmt.Sprintf("%s/tags/%s", base, ver)}
	if repo == "llvm/llvm-project" && !strings.HasPrefix(version, "llvmorg-") {
		endpoints = append(endpoints, fmt.Sprintf("%s/tags/%s", base, url.PathEscape("llvmorg-"+version)))
	}
	if !strings.HasPrefix(version, "v") {
		endpoints = append(endpoints, fmt.Sprintf("%s/tags/%s", base, url.PathEscape("v"+version)))
	}
	return endpoints
}

func versionFromTag(tag string) string {
	trimmed := strings.TrimPrefix(tag, "llvmorg-")
	trimmed = strings.TrimPrefix(trimmed, "v")
	if trimmed == "" {
		return tag
	}
	return trimmed
}

// assetMatch selects a release asset by name prefix and suffix. Exact names
// use the full name for both.
type assetMatch struct {
	prefix string
	suffix string
}

func (m assetMatch) matches(name string) bool {
	return strings.HasPrefix(name, m.prefix) && strings.HasSuffix(name, m.suffix)
}

func assetCandidates(tool string) []assetMatch {
	exact := func(name string) assetMatch { return assetMatch{prefix: name, suffix: name} }

	switch tool {
	case "swiftlint":
		switch runtime.GOOS {
		case "darwin":
			return []assetMatch{exact("portable_swiftlint.zip")}
		case "linux":
			if runtime.GOARCH == "amd64" {
				return []assetMatch{exact("swiftlint_linux.zip")}
			}
		}
	case "swiftformat":
		switch runtime.GOOS {
		case "darwin":
			return []assetMatch{exact("swiftformat.zip")}
		case "linux":
			if runtime.GOARCH == "amd64" {
				return []assetMatch{exact("swiftformat_linux.zip")}
			}
		}
	case "clang-format":
		switch runtime.GOOS {
		case "darwin":
			if runtime.GOARCH == "arm64" {
				return []assetMatch{
					{prefix: "clang+llvm-", suffix: "-arm64-apple-macos11.tar.xz"},
					{prefix: "LLVM-", suffix: "-macOS-ARM64.tar.xz"},
				}
			}
		case "linux":
			if runtime.GOARCH == "amd64" {
				return []assetMatch{
					{prefix: "clang+llvm-", suffix: "-x86_64-linux-gnu-ubuntu-18.04.tar.xz"},
					{prefix: "LLVM-", suffix: "-Linux-X64.tar.xz"},
				}
			}
		}
	case "xcodegen":
		if runtime.GOOS == "darwin" {
			return []assetMatch{exact("xcodegen.zip")}
		}
	}
	return nil
}

func selectAsset(assets []githubReleaseAsset, candidates []assetMatch) (githubReleaseAsset, error) {
	for _, candidate := range candidates {
		for _, asset := range assets {
			if candidate.matches(asset.Name) {
				return asset, nil
			}
		}
	}
	return githubReleaseAsset{}, fmt.Errorf("no release asset available for platform")
}

// archiveBinaryPath reports where the tool's executable lives inside the named
// asset. Empty means search the extracted tree by executable name.
func archiveBinaryPath(tool, assetName string) string {
	switch tool {
	case "swiftformat":
		if assetName == "swiftformat_linux.zip" {
			return "swiftformat_linux"
		}
	case "clang-format":
		if strings.HasSuffix(assetName, ".tar.xz") {
			top := strings.TrimSuffix(assetName, ".tar.xz")
			return top + "/bin/clang-format"
		}
	case "xcodegen":
		return "xcodegen/bin/xcodegen"
	}
	return ""
}
