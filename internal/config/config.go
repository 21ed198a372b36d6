// Package config loads the convertzh configuration file and environment
// overrides.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gobwas/glob"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"convertzh/internal/backup"
	"convertzh/internal/convert"
	"convertzh/internal/encoding"
	"convertzh/internal/errors"
	"convertzh/pkg/types"
)

// Environment variables that override the file.
const (
	EnvProfile       = "CONVERTZH_PROFILE"
	EnvExtensions    = "CONVERTZH_EXTENSIONS"
	EnvEncodings     = "CONVERTZH_ENCODINGS"
	EnvMinConfidence = "CONVERTZH_MIN_CONFIDENCE"
	EnvCollision     = "CONVERTZH_COLLISION"
)

// Config represents the application configuration structure.
type Config struct {
	Convert struct {
		Profile    string   `yaml:"profile"`    // OpenCC profile, s2twp by default
		Extensions []string `yaml:"extensions"` // Eligible file extensions
		Exclude    []string `yaml:"exclude"`    // Glob patterns of entries to skip
		Content    bool     `yaml:"content"`    // Convert file contents
		Rename     bool     `yaml:"rename"`     // Convert file and directory names
		Collision  string   `yaml:"collision"`  // Rename collision strategy: skip or rename
	} `yaml:"convert"`
	Encoding struct {
		Candidates    []string `yaml:"candidates"`     // Ordered fallback list
		MinConfidence int      `yaml:"min_confidence"` // Detector threshold, 0-100
	} `yaml:"encoding"`
	Backup struct {
		Enabled         bool   `yaml:"enabled"`          // Back up before converting
		Dir             string `yaml:"dir"`              // Explicit destination
		TimestampFormat string `yaml:"timestamp_format"` // Go time layout for generated names
	} `yaml:"backup"`
	Logging struct {
		File string `yaml:"file"` // Additional debug log file
		JSON bool   `yaml:"json"` // JSON console output
	} `yaml:"logging"`
}

// DefaultPath returns ~/.config/convertzh/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewConfigError("cannot locate home directory", "config", errors.ConfigNotFound, err)
	}
	return filepath.Join(home, ".config", "convertzh", "config.yaml"), nil
}

// LoadConfig loads configuration from the default location, then applies
// .env and environment overrides.
func LoadConfig() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Load reads path (defaults if it does not exist), loads a .env file from
// the working directory when present, and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg, err := LoadConfigFile(path)
	if err != nil {
		return nil, err
	}

	// A missing .env is normal.
	_ = godotenv.Load()

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFile loads configuration from a specific file path.
// If the file doesn't exist, returns default configuration.
func LoadConfigFile(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.NewConfigError("error reading config file", path, errors.FileOperationFailed, err)
	}

	// Fields absent from the file keep their defaults.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.NewConfigError("error parsing config file", path, errors.InvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from environment variables. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvProfile); ok && v != "" {
		c.Convert.Profile = v
	}
	if v, ok := lookup(EnvExtensions); ok && v != "" {
		c.Convert.Extensions = splitList(v)
	}
	if v, ok := lookup(EnvEncodings); ok && v != "" {
		c.Encoding.Candidates = splitList(v)
	}
	if v, ok := lookup(EnvMinConfidence); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errors.NewConfigError("not a number", EnvMinConfidence, errors.InvalidConfig, err)
		}
		c.Encoding.MinConfidence = n
	}
	if v, ok := lookup(EnvCollision); ok && v != "" {
		c.Convert.Collision = strings.TrimSpace(v)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// defaultConfig returns the default configuration with safe defaults.
func defaultConfig() *Config {
	cfg := &Config{}

	cfg.Convert.Profile = convert.DefaultProfile
	cfg.Convert.Extensions = []string{".txt"}
	cfg.Convert.Exclude = []string{".*"}
	cfg.Convert.Content = true
	cfg.Convert.Rename = true
	cfg.Convert.Collision = types.CollisionSkip

	cfg.Encoding.Candidates = append([]string(nil), encoding.DefaultCandidates...)
	cfg.Encoding.MinConfidence = encoding.DefaultMinConfidence

	cfg.Backup.TimestampFormat = backup.DefaultTimestampFormat

	return cfg
}

// New creates a new configuration instance with default values.
func New() *Config {
	return defaultConfig()
}

// SaveConfig saves the configuration to the specified file.
// It creates parent directories if they don't exist.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewFileError("failed to create config directory", filepath.Dir(path), errors.FileOperationFailed, err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.NewFileError("failed to write config file", path, errors.FileOperationFailed, err)
	}
	return nil
}

// Validate checks if the configuration is valid and normalizes extensions
// to lower case with a leading dot.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrInvalidConfig
	}

	if strings.TrimSpace(c.Convert.Profile) == "" {
		return errors.NewConfigError("profile is required", "profile", errors.InvalidConfig, nil)
	}

	if len(c.Convert.Extensions) == 0 {
		return errors.NewConfigError("at least one extension is required", "extensions", errors.InvalidConfig, nil)
	}
	for i, ext := range c.Convert.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" || ext == "." {
			return errors.NewConfigError("empty extension", "extensions", errors.InvalidConfig, nil)
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Convert.Extensions[i] = ext
	}

	for _, pattern := range c.Convert.Exclude {
		if _, err := glob.Compile(pattern); err != nil {
			return errors.NewConfigError("invalid exclude pattern "+strconv.Quote(pattern), "exclude", errors.InvalidConfig, err)
		}
	}

	switch c.Convert.Collision {
	case types.CollisionSkip, types.CollisionRename:
	default:
		return errors.NewConfigError("invalid collision setting: "+c.Convert.Collision, "collision", errors.InvalidConfig, nil)
	}

	if len(c.Encoding.Candidates) == 0 {
		return errors.NewConfigError("at least one encoding is required", "encoding.candidates", errors.InvalidConfig, nil)
	}
	for _, name := range c.Encoding.Candidates {
		if !encoding.Supported(name) {
			return errors.NewConfigError("unsupported encoding: "+name, "encoding.candidates", errors.InvalidConfig, nil)
		}
	}
	if c.Encoding.MinConfidence < 0 || c.Encoding.MinConfidence > 100 {
		return errors.NewConfigError("min_confidence must be within 0-100", "encoding.min_confidence", errors.InvalidConfig, nil)
	}

	if c.Backup.TimestampFormat == "" {
		return errors.NewConfigError("timestamp format is required", "backup.timestamp_format", errors.InvalidConfig, nil)
	}
	return nil
}

// RunOptions builds the run snapshot described by the configuration. The
// CLI layers its flags on top of the result.
func (c *Config) RunOptions() types.RunOptions {
	opts := types.DefaultRunOptions()
	opts.Backup = c.Backup.Enabled
	opts.BackupDir = c.Backup.Dir
	opts.ConvertContent = c.Convert.Content
	opts.RenameEntries = c.Convert.Rename
	opts.Extensions = append([]string(nil), c.Convert.Extensions...)
	opts.Exclude = append([]string(nil), c.Convert.Exclude...)
	opts.Collision = c.Convert.Collision
	return opts
}
