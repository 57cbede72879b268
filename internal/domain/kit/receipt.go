package kit

import "time"

// ReceiptSource records one source that contributed to an installation.
type ReceiptSource struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	// Skipped is set when an optional source failed and was left out.
	Skipped bool `yaml:"skipped,omitempty"`
}

// Receipt describes the last successful provisioning of an installation.
type Receipt struct {
	// ToolVersion is the agkit version that wrote the receipt.
	ToolVersion string `yaml:"tool_version"`
	// Mode is global or local.
	Mode Mode `yaml:"mode"`
	// InstalledAt is the completion time of the run.
	InstalledAt time.Time `yaml:"installed_at"`
	// Sources lists the remote sources in merge order.
	Sources []ReceiptSource `yaml:"sources"`
	// MergedFiles counts files copied into the installation.
	MergedFiles int `yaml:"merged_files"`
	// FailedFiles counts files that could not be copied.
	FailedFiles int `yaml:"failed_files"`
}
