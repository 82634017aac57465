package tools

type Source string

const (
	SourceUnknown Source = ""
	SourceManaged Source = "managed"
	SourceSystem  Source = "system"
)

// Status captures the resolved state for a managed tool.
type Status struct {
	Tool        string   `json:"tool"`
	Version     string   `json:"version,omitempty"`
	Minimum     string   `json:"minimum,omitempty"`
	Source      Source   `json:"source"`
	Path        string   `json:"path,omitempty"`
	InstalledAt string   `json:"installed_at,omitempty"`
	Checksum    string   `json:"checksum,omitempty"`
	Satisfied   bool     `json:"satisfied"`
	Skipped     bool     `json:"skipped,omitempty"`
	Error       string   `json:"error,omitempty"`
	Notes       []string `json:"notes,omitempty"`
}

// ToolDefinition contains metadata required to manage a tool.
type ToolDefinition struct {
	Name           string
	Executable     string
	VersionArgs    []string
	Repo           string
	MinimumVersion string
	DefaultVersion string
	DarwinOnly     bool
}

// ManifestEntry records an installed tool in the manifest.
type ManifestEntry struct {
	Tool        string `json:"tool"`
	Version     string `json:"version"`
	Source      Source `json:"source"`
	Path        string `json:"path"`
	Checksum    string `json:"checksum,omitempty"`
	InstalledAt string `json:"installed_at,omitempty"`
}

// Manifest wraps persisted entries for quick lookup.
type Manifest struct {
	Entries map[string]ManifestEntry `json:"entries"`
}
