package tools

import (
	"runtime"
	"sort"
)

var toolDefinitions = map[string]ToolDefinition{
	"swiftlint": {
		Name:           "swiftlint",
		Executable:     executableName("swiftlint"),
		VersionArgs:    []string{"--version"},
		Repo:           "realm/SwiftLint",
		MinimumVersion: "0.50.0",
		DefaultVersion: "0.57.0",
	},
	"swiftformat": {
		Name:           "swiftformat",
		Executable:     executableName("swiftformat"),
		VersionArgs:    []string{"--version"},
		Repo:           "nicklockwood/SwiftFormat",
		MinimumVersion: "0.52.0",
		DefaultVersion: "0.54.6",
	},
	"clang-format": {
		Name:           "clang-format",
		Executable:     executableName("clang-format"),
		VersionArgs:    []string{"--version"},
		Repo:           "llvm/llvm-project",
		MinimumVersion: "14.0.0",
		DefaultVersion: "18.1.8",
	},
	"xcodegen": {
		Name:           "xcodegen",
		Executable:     executableName("xcodegen"),
		VersionArgs:    []string{"--version"},
		Repo:           "yonaskolb/XcodeGen",
		MinimumVersion: "2.38.0",
		DefaultVersion: "2.42.0",
		DarwinOnly:     true,
	},
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

// KnownTools returns the list of managed tool names.
func KnownTools() []string {
	names := make([]string, 0, len(toolDefinitions))
	for name := range toolDefinitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definition returns the tool definition for the provided name.
func Definition(name string) (ToolDefinition, bool) {
	def, ok := toolDefinitions[name]
	return def, ok
}

func supportedOnPlatform(def ToolDefinition) bool {
	if def.DarwinOnly && runtime.GOOS != "darwin" {
		return false
	}
	return true
}
