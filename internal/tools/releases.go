package tools

import (
	"runtime"
	"sort"
	"strings"
)

type archiveFormat string

const (
	archiveFormatNone   archiveFormat = "none"
	archiveFormatZip    archiveFormat = "zip"
	archiveFormatTarGz  archiveFormat = "tar.gz"
	archiveFormatTarBz2 archiveFormat = "tar.bz2"
	archiveFormatTarXz  archiveFormat = "tar.xz"
	archiveFormat7z     archiveFormat = "7z"
)

type releaseSpec struct {
	Version    string
	URL        string
	Checksum   string
	Archive    archiveFormat
	BinaryPath string
}

// releaseIndex captures known download artefacts per tool/OS/arch, used when
// the release API is unreachable. Checksums are currently left blank; populate
// them as part of the release process when the authoritative SHA256 values are
// available.
var releaseIndex = map[string]map[string]map[string]releaseSpec{
	"swiftlint": {
		"darwin-amd64": {
			"0.57.0": {
				Version: "0.57.0",
				URL:     "https://github.com/realm/SwiftLint/releases/download/0.57.0/portable_swiftlint.zip",
				Archive: archiveFormatZip,
			},
		},
		"darwin-arm64": {
			"0.57.0": {
				Version: "0.57.0",
				URL:     "https://github.com/realm/SwiftLint/releases/download/0.57.0/portable_swiftlint.zip",
				Archive: archiveFormatZip,
			},
		},
		"linux-amd64": {
			"0.57.0": {
				Version: "0.57.0",
				URL:     "https://github.com/realm/SwiftLint/releases/download/0.57.0/swiftlint_linux.zip",
				Archive: archiveFormatZip,
			},
		},
	},
	"swiftformat": {
		"darwin-amd64": {
			"0.54.6": {
				Version: "0.54.6",
				URL:     "https://github.com/nicklockwood/SwiftFormat/releases/download/0.54.6/swiftformat.zip",
				Archive: archiveFormatZip,
			},
		},
		"darwin-arm64": {
			"0.54.6": {
				Version: "0.54.6",
				URL:     "https://github.com/nicklockwood/SwiftFormat/releases/download/0.54.6/swiftformat.zip",
				Archive: archiveFormatZip,
			},
		},
		"linux-amd64": {
			"0.54.6": {
				Version:    "0.54.6",
				URL:        "https://github.com/nicklockwood/SwiftFormat/releases/download/0.54.6/swiftformat_linux.zip",
				Archive:    archiveFormatZip,
				BinaryPath: "swiftformat_linux",
			},
		},
	},
	"clang-format": {
		"darwin-arm64": {
			"18.1.8": {
				Version:    "18.1.8",
				URL:        "https://github.com/llvm/llvm-project/releases/download/llvmorg-18.1.8/clang+llvm-18.1.8-arm64-apple-macos11.tar.xz",
				Archive:    archiveFormatTarXz,
				BinaryPath: "clang+llvm-18.1.8-arm64-apple-macos11/bin/clang-format",
			},
		},
		"linux-amd64": {
			"18.1.8": {
				Version:    "18.1.8",
				URL:        "https://github.com/llvm/llvm-project/releases/download/llvmorg-18.1.8/clang+llvm-18.1.8-x86_64-linux-gnu-ubuntu-18.04.tar.xz",
				Archive:    archiveFormatTarXz,
				BinaryPath: "clang+llvm-18.1.8-x86_64-linux-gnu-ubuntu-18.04/bin/clang-format",
			},
		},
	},
	"xcodegen": {
		"darwin-amd64": {
			"2.42.0": {
				Version:    "2.42.0",
				URL:        "https://github.com/yonaskolb/XcodeGen/releases/download/2.42.0/xcodegen.zip",
				Archive:    archiveFormatZip,
				BinaryPath: "xcodegen/bin/xcodegen",
			},
		},
		"darwin-arm64": {
			"2.42.0": {
				Version:    "2.42.0",
				URL:        "https://github.com/yonaskolb/XcodeGen/releases/download/2.42.0/xcodegen.zip",
				Archive:    archiveFormatZip,
				BinaryPath: "xcodegen/bin/xcodegen",
			},
		},
	},
}

func currentPlatformKey() string {
	return runtime.GOOS + "-" + runtime.GOARCH
}

func lookupStaticRelease(tool, version string) (releaseSpec, bool) {
	perTool, ok := releaseIndex[tool]
	if !ok {
		return releaseSpec{}, false
	}
	perPlatform, ok := perTool[currentPlatformKey()]
	if !ok || len(perPlatform) == 0 {
		return releaseSpec{}, false
	}
	if version != "" {
		rel, ok := perPlatform[version]
		if ok {
			return rel, true
		}
		return releaseSpec{}, false
	}
	versions := make([]string, 0, len(perPlatform))
	for v := range perPlatform {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	latest := versions[len(versions)-1]
	rel := perPlatform[latest]
	return rel, true
}

func formatForAsset(name string) archiveFormat {
	switch {
	case strings.HasSuffix(name, ".zip"):
		return archiveFormatZip
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return archiveFormatTarGz
	case strings.HasSuffix(name, ".tar.bz2"):
		return archiveFormatTarBz2
	case strings.HasSuffix(name, ".tar.xz"):
		return archiveFormatTarXz
	case strings.HasSuffix(name, ".7z"):
		return archiveFormat7z
	default:
		return archiveFormatNone
	}
}
