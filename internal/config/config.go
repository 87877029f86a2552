package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"apidiff/internal/paths"
)

const currentVersion = 1

// Config is the apidiff configuration (.apidiff/config.toml).
type Config struct {
	Version int `toml:"version" mapstructure:"version"`

	// Backend selects the introspection backend: source, treesitter or scip.
	Backend string `toml:"backend" mapstructure:"backend"`
	// CodeListType names the base type whose subtypes are code lists. Either
	// a qualified name ("example.com/api/util.CodeList") or a simple name.
	CodeListType string `toml:"codeListType" mapstructure:"codeListType"`
	// Exclude lists doublestar globs over package paths relative to the
	// module root.
	Exclude []string `toml:"exclude" mapstructure:"exclude"`

	ArtifactsFile    string `toml:"artifactsFile" mapstructure:"artifactsFile"`
	DependenciesFile string `toml:"dependenciesFile,omitempty" mapstructure:"dependenciesFile"`

	Build   BuildConfig   `toml:"build" mapstructure:"build"`
	Cache   CacheConfig   `toml:"cache" mapstructure:"cache"`
	Output  OutputConfig  `toml:"output" mapstructure:"output"`
	Logging LoggingConfig `toml:"logging" mapstructure:"logging"`
}

// BuildConfig is the build context used to evaluate file constraints.
type BuildConfig struct {
	GOOS   string   `toml:"goos" mapstructure:"goos"`
	GOARCH string   `toml:"goarch" mapstructure:"goarch"`
	Tags   []string `toml:"tags" mapstructure:"tags"`
}

// CacheConfig controls the snapshot cache.
type CacheConfig struct {
	Enabled bool `toml:"enabled" mapstructure:"enabled"`
	// Path of the database; empty means .apidiff/apidiff.db.
	Path string `toml:"path,omitempty" mapstructure:"path"`
}

// OutputConfig holds report defaults.
type OutputConfig struct {
	Format string `toml:"format" mapstructure:"format"`
	Title  string `toml:"title" mapstructure:"title"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level      string `toml:"level" mapstructure:"level"`
	Format     string `toml:"format" mapstructure:"format"`
	File       string `toml:"file,omitempty" mapstructure:"file"`
	FileLevel  string `toml:"fileLevel" mapstructure:"fileLevel"`
	MaxSize    string `toml:"maxSize,omitempty" mapstructure:"maxSize"`
	MaxBackups int    `toml:"maxBackups" mapstructure:"maxBackups"`
}

// Backend names accepted in Config.Backend.
var Backends = []string{"source", "treesitter", "scip"}

// Formats accepted in Config.Output.Format.
var Formats = []string{"html", "json", "yaml", "human"}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Version:       currentVersion,
		Backend:       "source",
		CodeListType:  "CodeList",
		Exclude:       []string{},
		ArtifactsFile: "ARTIFACTS.toml",
		Build: BuildConfig{
			Tags: []string{},
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		Output: OutputConfig{
			Format: "html",
			Title:  "API changes",
		},
		Logging: LoggingConfig{
			Level:      "warn",
			Format:     "text",
			FileLevel:  "info",
			MaxBackups: 3,
		},
	}
}

// LoadConfig reads the configuration for the project at root. An explicit
// file overrides .apidiff/config.toml. Missing keys keep their defaults and
// APIDIFF_* environment variables override both.
func LoadConfig(root, file string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix("APIDIFF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("logging.level", "APIDIFF_LOG_LEVEL", "APIDIFF_LOGGING_LEVEL")

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(paths.StateDirPath(root))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("backend", d.Backend)
	v.SetDefault("codeListType", d.CodeListType)
	v.SetDefault("exclude", d.Exclude)
	v.SetDefault("artifactsFile", d.ArtifactsFile)
	v.SetDefault("dependenciesFile", d.DependenciesFile)
	v.SetDefault("build.goos", d.Build.GOOS)
	v.SetDefault("build.goarch", d.Build.GOARCH)
	v.SetDefault("build.tags", d.Build.Tags)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.path", d.Cache.Path)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.title", d.Output.Title)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.fileLevel", d.Logging.FileLevel)
	v.SetDefault("logging.maxSize", d.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)
}

// Save writes the configuration to .apidiff/config.toml.
func (c *Config) Save(root string) error {
	if _, err := paths.EnsureStateDir(root); err != nil {
		return err
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(paths.ConfigPath(root), data, 0644)
}

// DatabasePath returns the cache database location for root.
func (c *Config) DatabasePath(root string) string {
	if c.Cache.Path == "" {
		return paths.DatabasePath(root)
	}
	if filepath.IsAbs(c.Cache.Path) {
		return c.Cache.Path
	}
	return filepath.Join(root, c.Cache.Path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Version != currentVersion {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("unsupported config version %d", c.Version)}
	}
	if !contains(Backends, c.Backend) {
		return &ConfigError{Field: "backend", Message: fmt.Sprintf("unknown backend %q (want one of %s)", c.Backend, strings.Join(Backends, ", "))}
	}
	if strings.TrimSpace(c.CodeListType) == "" {
		return &ConfigError{Field: "codeListType", Message: "must not be empty"}
	}
	for _, pattern := range c.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return &ConfigError{Field: "exclude", Message: fmt.Sprintf("invalid glob %q", pattern)}
		}
	}
	if !contains(Formats, c.Output.Format) {
		return &ConfigError{Field: "output.format", Message: fmt.Sprintf("unknown format %q", c.Output.Format)}
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}
	for field, level := range map[string]string{"logging.level": c.Logging.Level, "logging.fileLevel": c.Logging.FileLevel} {
		if !validLevel(level) {
			return &ConfigError{Field: field, Message: fmt.Sprintf("unknown level %q", level)}
		}
	}
	if c.Logging.MaxBackups < 0 {
		return &ConfigError{Field: "logging.maxBackups", Message: "must not be negative"}
	}
	return nil
}

func validLevel(s string) bool {
	switch strings.ToLower(s) {
	case "debug", "info", "warn", "warning", "error", "silent", "off":
		return true
	}
	return false
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
