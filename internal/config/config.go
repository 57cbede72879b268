package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/agkit/internal/domain/kit"
)

// Config holds everything a provisioning run needs besides the command line.
type Config struct {
	// KitDir is the global installation directory, relative to the home directory.
	KitDir string `yaml:"kit_dir"`
	// LocalDir is the workspace installation directory, relative to the working directory.
	LocalDir string `yaml:"local_dir"`
	// Sources are fetched and merged in order; later sources win.
	Sources []kit.RemoteSource `yaml:"sources"`
	// GovernanceDir replaces the bundled governance overlay when set.
	GovernanceDir string `yaml:"governance_dir,omitempty"`
	// Fetch tunes downloads.
	Fetch Fetch `yaml:"fetch"`
	// CoreEngine is the package-manager initialisation run once per provisioning.
	CoreEngine CoreEngine `yaml:"core_engine"`
	// Finalizers are scripts inside the installation run after the overlay.
	Finalizers []Finalizer `yaml:"finalizers"`
	// UpdateCheck controls the start-up version check.
	UpdateCheck UpdateCheck `yaml:"update_check"`
	// LogLevel is used unless the --log-level flag is given.
	LogLevel string `yaml:"log_level,omitempty"`
}

// Fetch tunes the archive downloader.
type Fetch struct {
	// StallTimeout aborts a transfer that receives no data for this long.
	StallTimeout time.Duration `yaml:"stall_timeout"`
	// MaxAttempts is the total number of attempts per archive.
	MaxAttempts int `yaml:"max_attempts"`
	// RetryDelay is the fixed pause between attempts.
	RetryDelay time.Duration `yaml:"retry_delay"`
	// MaxRedirects caps the redirect chain of one attempt.
	MaxRedirects int `yaml:"max_redirects"`
}

// CoreEngine describes the package-manager commands that initialise the core engine.
type CoreEngine struct {
	Enabled bool `yaml:"enabled"`
	// Local commands run for workspace installs, Global ones otherwise.
	Local  [][]string `yaml:"local"`
	Global [][]string `yaml:"global"`
}

// Finalizer is an external script invoked after the installation is complete.
type Finalizer struct {
	Name string `yaml:"name"`
	// Script is relative to the installation directory.
	Script string `yaml:"script"`
}

// UpdateCheck controls the version check performed at start-up.
type UpdateCheck struct {
	Enabled bool `yaml:"enabled"`
	// URL serves a JSON document with a "version" field.
	URL string `yaml:"url"`
	// Timeout bounds the metadata request.
	Timeout time.Duration `yaml:"timeout"`
	// UpgradeCommand is run after the user confirms the upgrade.
	UpgradeCommand []string `yaml:"upgrade_command"`
}

const (
	// DefaultConfigFilename is looked up in the user config directory.
	DefaultConfigFilename = "agkit.yaml"

	// DefaultKitDir is the global installation directory under the home directory.
	DefaultKitDir = ".gemini/antigravity/kit"

	// DefaultLocalDir is the workspace installation directory.
	DefaultLocalDir = ".agent"

	// DefaultStallTimeout is the inactivity window of a transfer.
	DefaultStallTimeout = 20 * time.Second

	// DefaultMaxAttempts is the number of download attempts per archive.
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the pause between download attempts.
	DefaultRetryDelay = 3 * time.Second

	// DefaultMaxRedirects caps redirect chains.
	DefaultMaxRedirects = 10

	// DefaultUpdateCheckTimeout bounds the version metadata request.
	DefaultUpdateCheckTimeout = 3 * time.Second

	// DefaultUpdateCheckURL serves the latest published version.
	DefaultUpdateCheckURL = "https://raw.githubusercontent.com/oshokin/agkit/main/version.json"

	// DefaultFilePermissions is used when saving the configuration.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errSourceName is returned for a source without a usable name.
	errSourceName = errors.New("source name must be a non-empty single path element")
	// errDuplicateSource is returned when two sources share a name.
	errDuplicateSource = errors.New("duplicate source name")
	// errSourceURL is returned for a source URL that is not http(s).
	errSourceURL = errors.New("source url must be an absolute http or https URL")
	// errNoMappings is returned for a source that maps nothing.
	errNoMappings = errors.New("source has no mappings")
	// errUnknownSubtree is returned when a mapping targets a directory outside the layout.
	errUnknownSubtree = errors.New("mapping targets an unknown subtree")
	// errFinalizer is returned for an incomplete finalizer entry.
	errFinalizer = errors.New("finalizer needs a name and a relative script path")
	// errEmptyCommand is returned for an empty command line.
	errEmptyCommand = errors.New("command must not be empty")
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		KitDir:   DefaultKitDir,
		LocalDir: DefaultLocalDir,
		Sources: []kit.RemoteSource{
			{
				Name: "core",
				URL:  "https://github.com/vudovn/antigravity-kit/archive/refs/heads/main.zip",
				Mappings: []kit.Mapping{
					{From: ".agent/agents", To: kit.SubtreeAgents},
					{From: ".agent/skills", To: kit.SubtreeSkills},
					{From: ".agent/workflows", To: kit.SubtreeWorkflows},
					{From: ".agent/scripts", To: kit.SubtreeScripts},
					{From: ".agent/rules", To: kit.SubtreeRules},
					{From: ".agent/.shared", To: kit.SubtreeShared},
				},
			},
			{
				Name:     "skills",
				URL:      "https://github.com/sickn33/antigravity-awesome-skills/archive/refs/heads/main.zip",
				Optional: true,
				Mappings: []kit.Mapping{
					{From: "skills", To: kit.SubtreeSkills},
				},
			},
		},
		Fetch: Fetch{
			StallTimeout: DefaultStallTimeout,
			MaxAttempts:  DefaultMaxAttempts,
			RetryDelay:   DefaultRetryDelay,
			MaxRedirects: DefaultMaxRedirects,
		},
		CoreEngine: CoreEngine{
			Enabled: true,
			Local: [][]string{
				{"npx", "-y", "@vudovn/ag-kit", "init"},
			},
			Global: [][]string{
				{"npm", "install", "-g", "@vudovn/ag-kit"},
				{"ag-kit", "init"},
			},
		},
		Finalizers: []Finalizer{
			{Name: "indexer", Script: "scripts/generate_index.py"},
		},
		UpdateCheck: UpdateCheck{
			Enabled:        true,
			URL:            DefaultUpdateCheckURL,
			Timeout:        DefaultUpdateCheckTimeout,
			UpgradeCommand: []string{"go", "install", "github.com/oshokin/agkit/cmd/agkit@latest"},
		},
	}
}

// DefaultPath returns the configuration path used when none is given.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return DefaultConfigFilename
	}

	return filepath.Join(dir, "agkit", DefaultConfigFilename)
}

// Load reads configuration from path on top of the defaults.
// An empty path reads DefaultPath and falls back to Default when that file does not exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err = yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultPath()
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the configuration and fills zero values with defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.KitDir == "" {
		cfg.KitDir = DefaultKitDir
	}

	if cfg.LocalDir == "" {
		cfg.LocalDir = DefaultLocalDir
	}

	validateFetch(&cfg.Fetch)

	if err := validateSources(cfg.Sources); err != nil {
		return err
	}

	for _, f := range cfg.Finalizers {
		if f.Name == "" || f.Script == "" || filepath.IsAbs(f.Script) {
			return fmt.Errorf("%q: %w", f.Name, errFinalizer)
		}
	}

	for _, command := range slices.Concat(cfg.CoreEngine.Local, cfg.CoreEngine.Global) {
		if len(command) == 0 {
			return fmt.Errorf("core engine: %w", errEmptyCommand)
		}
	}

	return validateUpdateCheck(&cfg.UpdateCheck)
}

func validateFetch(f *Fetch) {
	if f.StallTimeout <= 0 {
		f.StallTimeout = DefaultStallTimeout
	}

	if f.MaxAttempts <= 0 {
		f.MaxAttempts = DefaultMaxAttempts
	}

	if f.RetryDelay < 0 {
		f.RetryDelay = DefaultRetryDelay
	}

	if f.MaxRedirects <= 0 {
		f.MaxRedirects = DefaultMaxRedirects
	}
}

func validateSources(sources []kit.RemoteSource) error {
	seen := make(map[string]struct{}, len(sources))

	for _, src := range sources {
		if src.Name == "" || strings.ContainsAny(src.Name, `/\`) || src.Name == "." || src.Name == ".." {
			return fmt.Errorf("%q: %w", src.Name, errSourceName)
		}

		if _, dup := seen[src.Name]; dup {
			return fmt.Errorf("%q: %w", src.Name, errDuplicateSource)
		}

		seen[src.Name] = struct{}{}

		parsed, err := url.ParseRequestURI(src.URL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return fmt.Errorf("source %q: %w", src.Name, errSourceURL)
		}

		if len(src.Mappings) == 0 {
			return fmt.Errorf("source %q: %w", src.Name, errNoMappings)
		}

		for _, m := range src.Mappings {
			if !kit.IsSubtree(m.To) {
				return fmt.Errorf("source %q, mapping to %q: %w", src.Name, m.To, errUnknownSubtree)
			}
		}
	}

	return nil
}

func validateUpdateCheck(u *UpdateCheck) error {
	if u.Timeout <= 0 {
		u.Timeout = DefaultUpdateCheckTimeout
	}

	if !u.Enabled {
		return nil
	}

	if u.URL == "" {
		u.URL = DefaultUpdateCheckURL
	}

	if _, err := url.ParseRequestURI(u.URL); err != nil {
		return fmt.Errorf("invalid update check URL: %w", err)
	}

	if len(u.UpgradeCommand) == 0 {
		return fmt.Errorf("upgrade command: %w", errEmptyCommand)
	}

	return nil
}
