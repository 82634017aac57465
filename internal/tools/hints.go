package tools

import "runtime"

func installHints(tool string) []string {
	switch tool {
	case "swiftlint":
		switch runtime.GOOS {
		case "darwin":
			return []string{"Install SwiftLint via Homebrew: brew install swiftlint"}
		case "linux":
			return []string{"Download the prebuilt swiftlint_linux.zip from the realm/SwiftLint releases page"}
		}
	case "swiftformat":
		switch runtime.GOOS {
		case "darwin":
			return []string{"Install SwiftFormat via Homebrew: brew install swiftformat"}
		case "linux":
			return []string{"Download the prebuilt swiftformat_linux.zip from the nicklockwood/SwiftFormat releases page"}
		}
	case "clang-format":
		switch runtime.GOOS {
		case "darwin":
			return []string{"Install clang-format via Homebrew: brew install clang-format"}
		case "linux":
			return []string{"Install clang-format with your distro package manager, e.g. sudo apt install clang-format"}
		}
	case "xcodegen":
		if runtime.GOOS == "darwin" {
			return []string{
				"Install XcodeGen via Homebrew: brew install xcodegen",
				"or via Mint: mint install yonaskolb/XcodeGen",
			}
		}
	}
	return nil
}
