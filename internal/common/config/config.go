package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var (
	ErrVDBNotFound     = errors.New("package database path does not exist")
	ErrProfileNotFound = errors.New("profile path does not exist: set portage.profile or check the make.profile link")
	ErrNoRepos         = errors.New("no usable repository configured: set portage.repos or sync the main tree")
)

// Default system paths used when the config file leaves them unset
const (
	DefaultConfigRoot = "/etc/portage"
	DefaultVDB        = "/var/db/pkg"
	DefaultRepo       = "/var/db/repos/gentoo"
)

// Config represents the application configuration
type Config struct {
	Portage  PortageConfig  `yaml:"portage"`
	Audit    AuditConfig    `yaml:"audit"`
	Maintain MaintainConfig `yaml:"maintain"`
}

// PortageConfig holds the system paths the auditor reads
type PortageConfig struct {
	ConfigRoot string   `yaml:"config_root"`
	VDB        string   `yaml:"vdb,omitempty"`
	Repos      []string `yaml:"repos,omitempty"`
	Profile    string   `yaml:"profile,omitempty"`
	Arch       string   `yaml:"arch,omitempty"`
}

// AuditConfig holds the override source locations
type AuditConfig struct {
	KeywordPath string `yaml:"keyword_path,omitempty"`
	UsePath     string `yaml:"use_path,omitempty"`
}

// MaintainConfig holds maintenance pipeline settings
type MaintainConfig struct {
	StepsFile string `yaml:"steps_file,omitempty"`
}

// ConfigPaths returns all possible config file paths in priority order
// 1. ~/.config/portcheck/config.yaml (XDG standard - priority)
// 2. ~/.portcheck/config.yaml (legacy fallback)
func ConfigPaths() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	// Check XDG_CONFIG_HOME first, fallback to ~/.config
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}

	return []string{
		filepath.Join(xdgConfig, "portcheck", "config.yaml"),
		filepath.Join(home, ".portcheck", "config.yaml"),
	}, nil
}

// DefaultConfigPath returns the default config file path (XDG standard)
func DefaultConfigPath() (string, error) {
	paths, err := ConfigPaths()
	if err != nil {
		return "", err
	}
	return paths[0], nil
}

// FindConfigPath returns the first existing config file path
// Returns the default path if no config file exists yet
func FindConfigPath() (string, error) {
	paths, err := ConfigPaths()
	if err != nil {
		return "", err
	}

	// Return first existing config file
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	// No config exists, return default (XDG) path for creation
	return paths[0], nil
}

// Load reads configuration from the first available config file
// Priority: ~/.config/portcheck/config.yaml > ~/.portcheck/config.yaml
func Load() (*Config, error) {
	configPath, err := FindConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom reads configuration from a specific file path
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Create default config
			cfg := &Config{
				Portage: PortageConfig{
					ConfigRoot: DefaultConfigRoot,
				},
			}
			if saveErr := cfg.SaveTo(path); saveErr != nil {
				return nil, saveErr
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes configuration to the default config file
func (c *Config) Save() error {
	configPath, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(configPath)
}

// SaveTo writes configuration to a specific file path
func (c *Config) SaveTo(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ConfigRootPath returns the portage configuration root, defaulted
func (c *Config) ConfigRootPath() string {
	if c.Portage.ConfigRoot != "" {
		return expandHome(c.Portage.ConfigRoot)
	}
	return DefaultConfigRoot
}

// VDBPath returns the package database path, defaulted
func (c *Config) VDBPath() string {
	if c.Portage.VDB != "" {
		return expandHome(c.Portage.VDB)
	}
	return DefaultVDB
}

// GetVDBPath returns the package database path after checking it exists
func (c *Config) GetVDBPath() (string, error) {
	path := c.VDBPath()
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrVDBNotFound
		}
		return "", err
	}
	if !info.IsDir() {
		return "", ErrVDBNotFound
	}
	return path, nil
}

// ProfilePath returns the profile link location, defaulted to the
// make.profile link under the config root
func (c *Config) ProfilePath() string {
	if c.Portage.Profile != "" {
		return expandHome(c.Portage.Profile)
	}
	return filepath.Join(c.ConfigRootPath(), "make.profile")
}

// GetProfilePath returns the profile path after checking it exists
func (c *Config) GetProfilePath() (string, error) {
	path := c.ProfilePath()
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", ErrProfileNotFound
		}
		return "", err
	}
	return path, nil
}

// RepoPaths returns the configured repository roots, defaulted
func (c *Config) RepoPaths() []string {
	if len(c.Portage.Repos) == 0 {
		return []string{DefaultRepo}
	}
	repos := make([]string, 0, len(c.Portage.Repos))
	for _, r := range c.Portage.Repos {
		repos = append(repos, expandHome(r))
	}
	return repos
}

// GetRepoPaths returns the repository roots that pass structure
// validation. Explicitly configured repos that fail validation are an
// error; with only defaults in play an unusable tree yields ErrNoRepos.
func (c *Config) GetRepoPaths() ([]string, error) {
	explicit := len(c.Portage.Repos) > 0

	var valid []string
	for _, path := range c.RepoPaths() {
		result := ValidateRepoStructure(path)
		if result.Valid {
			valid = append(valid, path)
			continue
		}
		if explicit {
			return nil, &RepoValidationError{Path: path, Errors: result.Errors}
		}
	}
	if len(valid) == 0 {
		return nil, ErrNoRepos
	}
	return valid, nil
}

// KeywordPath returns the package.accept_keywords location, defaulted
func (c *Config) KeywordPath() string {
	if c.Audit.KeywordPath != "" {
		return expandHome(c.Audit.KeywordPath)
	}
	return filepath.Join(c.ConfigRootPath(), "package.accept_keywords")
}

// UsePath returns the package.use location, defaulted
func (c *Config) UsePath() string {
	if c.Audit.UsePath != "" {
		return expandHome(c.Audit.UsePath)
	}
	return filepath.Join(c.ConfigRootPath(), "package.use")
}

// StepsFile returns the maintenance pipeline file, empty when unset
func (c *Config) StepsFile() string {
	if c.Maintain.StepsFile != "" {
		return expandHome(c.Maintain.StepsFile)
	}
	return ""
}

// expandHome resolves a leading ~ against the user's home directory
func expandHome(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}

// RepoValidationResult contains repository validation results
type RepoValidationResult struct {
	Valid    bool     // True if the repository structure is usable
	Errors   []string // Critical issues that prevent metadata lookups
	Warnings []string // Non-critical issues
}

// RepoValidationError represents a repository validation failure
type RepoValidationError struct {
	Path   string
	Errors []string
}

func (e *RepoValidationError) Error() string {
	msg := "repository validation failed for " + e.Path + ":"
	for _, err := range e.Errors {
		msg += "\n  - " + err
	}
	msg += "\n\nSuggestion: sync the repository or check the portage.repos configuration"
	return msg
}

// ValidateRepoStructure checks if a path is a usable ebuild repository.
// A usable repository must have a profiles/ directory. A missing
// metadata/md5-cache/ is only a warning: metadata falls back to the
// ebuild files themselves.
func ValidateRepoStructure(path string) *RepoValidationResult {
	result := &RepoValidationResult{
		Valid:    true,
		Errors:   []string{},
		Warnings: []string{},
	}

	// Check for profiles/ directory
	profilesPath := filepath.Join(path, "profiles")
	if _, err := os.Stat(profilesPath); os.IsNotExist(err) {
		result.Valid = false
		result.Errors = append(result.Errors, "missing profiles/ directory")
	}

	// Check for metadata/md5-cache/ directory
	cachePath := filepath.Join(path, "metadata", "md5-cache")
	if _, err := os.Stat(cachePath); os.IsNotExist(err) {
		result.Warnings = append(result.Warnings, "missing metadata/md5-cache/ directory; reading ebuild files directly")
	}

	return result
}
