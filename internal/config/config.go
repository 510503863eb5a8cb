// Package config loads geckocpp settings. A global file under the user
// config directory (any format viper reads) is overlaid by an optional
// geckocpp.toml at each workspace folder root, and every global key can
// also arrive through GECKOCPP_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/FractalBrew/geckocpp/internal/fspath"
)

// FolderFileName is the per-folder override file, looked up at the
// workspace folder root.
const FolderFileName = "geckocpp.toml"

// Config is the complete geckocpp configuration.
type Config struct {
	Compilers CompilersConfig `json:"compilers" mapstructure:"compilers" toml:"compilers"`
	Mach      MachConfig      `json:"mach" mapstructure:"mach" toml:"mach"`
	Cache     CacheConfig     `json:"cache" mapstructure:"cache" toml:"cache"`
	Headers   HeadersConfig   `json:"headers" mapstructure:"headers" toml:"headers"`
	Watcher   WatcherConfig   `json:"watcher" mapstructure:"watcher" toml:"watcher"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging" toml:"logging"`
}

// CompilersConfig overrides the compiler command per language. Values may
// carry launcher prefixes the same way CC/CXX build variables do.
type CompilersConfig struct {
	C   string `json:"c" mapstructure:"c" toml:"c"`
	CPP string `json:"cpp" mapstructure:"cpp" toml:"cpp"`
}

// MachConfig adjusts how the build tool is invoked.
type MachConfig struct {
	// Path overrides the mach entry point. Empty means <folder>/mach.
	Path string `json:"path" mapstructure:"path" toml:"path"`
	// Env entries are overlaid on the inherited environment for every
	// invocation.
	Env map[string]string `json:"env" mapstructure:"env" toml:"env"`
	// EnvFile is an optional dotenv file loaded beneath Env.
	EnvFile string `json:"envFile" mapstructure:"envFile" toml:"envFile"`
	// MozillaBuild is the Windows MozillaBuild install root.
	MozillaBuild string `json:"mozillaBuild" mapstructure:"mozillaBuild" toml:"mozillaBuild"`
}

// CacheConfig controls the persistent probe cache.
type CacheConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled" toml:"enabled"`
	// Dir overrides the cache location. Empty means the user cache
	// directory.
	Dir string `json:"dir" mapstructure:"dir" toml:"dir"`
}

// HeadersConfig selects the header-language heuristic.
type HeadersConfig struct {
	// Classifier is "sibling" or "content".
	Classifier string `json:"classifier" mapstructure:"classifier" toml:"classifier"`
}

// WatcherConfig controls the build-config watcher used by serve.
type WatcherConfig struct {
	Enabled        bool `json:"enabled" mapstructure:"enabled" toml:"enabled"`
	PollIntervalMs int  `json:"pollIntervalMs" mapstructure:"pollIntervalMs" toml:"pollIntervalMs"`
	DebounceMs     int  `json:"debounceMs" mapstructure:"debounceMs" toml:"debounceMs"`
}

// LoggingConfig controls server-side logging.
type LoggingConfig struct {
	Level string `json:"level" mapstructure:"level" toml:"level"`
	// File overrides the log file location used by serve. Empty means
	// the user state directory.
	File string `json:"file" mapstructure:"file" toml:"file"`
	// MaxSizeKB caps the log file size in kilobytes before it is
	// rotated. Zero disables rotation.
	MaxSizeKB int `json:"maxSizeKb" mapstructure:"maxSizeKb" toml:"maxSizeKb"`
	// MaxBackups is how many rotated files to keep.
	MaxBackups int `json:"maxBackups" mapstructure:"maxBackups" toml:"maxBackups"`
}

// Recognized values of headers.classifier.
const (
	ClassifierSibling = "sibling"
	ClassifierContent = "content"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Compilers: CompilersConfig{},
		Mach: MachConfig{
			Env: map[string]string{},
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		Headers: HeadersConfig{
			Classifier: ClassifierSibling,
		},
		Watcher: WatcherConfig{
			Enabled:        true,
			PollIntervalMs: 2000,
			DebounceMs:     5000,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeKB:  10 * 1024,
			MaxBackups: 3,
		},
	}
}

// GlobalDir returns the directory searched for the global config file.
// GECKOCPP_CONFIG_DIR overrides the platform default.
func GlobalDir() (fspath.Path, error) {
	if dir := os.Getenv("GECKOCPP_CONFIG_DIR"); dir != "" {
		return fspath.New(dir)
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return fspath.Path{}, fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return fspath.New(filepath.Join(base, "geckocpp"))
}

// LoadGlobal reads the global config file from dir, overlaid with
// GECKOCPP_* environment variables. A missing file yields the defaults.
func LoadGlobal(dir fspath.Path) (*Config, error) {
	v := viper.New()

	// Every key needs a default so environment variables bind during
	// Unmarshal.
	defaults := DefaultConfig()
	v.SetDefault("compilers.c", defaults.Compilers.C)
	v.SetDefault("compilers.cpp", defaults.Compilers.CPP)
	v.SetDefault("mach.path", defaults.Mach.Path)
	v.SetDefault("mach.env", defaults.Mach.Env)
	v.SetDefault("mach.envFile", defaults.Mach.EnvFile)
	v.SetDefault("mach.mozillaBuild", defaults.Mach.MozillaBuild)
	v.SetDefault("cache.enabled", defaults.Cache.Enabled)
	v.SetDefault("cache.dir", defaults.Cache.Dir)
	v.SetDefault("headers.classifier", defaults.Headers.Classifier)
	v.SetDefault("watcher.enabled", defaults.Watcher.Enabled)
	v.SetDefault("watcher.pollIntervalMs", defaults.Watcher.PollIntervalMs)
	v.SetDefault("watcher.debounceMs", defaults.Watcher.DebounceMs)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.file", defaults.Logging.File)
	v.SetDefault("logging.maxSizeKb", defaults.Logging.MaxSizeKB)
	v.SetDefault("logging.maxBackups", defaults.Logging.MaxBackups)

	v.SetConfigName("config")
	v.AddConfigPath(dir.String())
	v.SetEnvPrefix("GECKOCPP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read global config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode global config: %w", err)
	}
	return &cfg, nil
}

// Override is a decoded per-folder override file. The TOML metadata
// records which keys the file actually set, so an omitted boolean is not
// mistaken for an explicit false.
type Override struct {
	cfg Config
	md  toml.MetaData
}

func (o *Override) defined(keys ...string) bool {
	return o.md.IsDefined(keys...)
}

// LoadFolder reads the per-folder override file from the folder root.
// Returns nil without error when the folder has none.
func LoadFolder(root fspath.Path) (*Override, error) {
	path := root.Join(FolderFileName)
	if _, err := os.Stat(path.String()); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	var over Override
	md, err := toml.DecodeFile(path.String(), &over.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	over.md = md
	return &over, nil
}

// Overlay merges a folder override onto base: keys the file set win,
// everything else keeps the base value. Mach env maps merge per key.
// Neither input is modified.
func Overlay(base *Config, over *Override) *Config {
	merged := *base
	if over == nil {
		return &merged
	}

	if over.defined("compilers", "c") {
		merged.Compilers.C = over.cfg.Compilers.C
	}
	if over.defined("compilers", "cpp") {
		merged.Compilers.CPP = over.cfg.Compilers.CPP
	}
	if over.defined("mach", "path") {
		merged.Mach.Path = over.cfg.Mach.Path
	}
	if over.defined("mach", "env") {
		env := make(map[string]string, len(base.Mach.Env)+len(over.cfg.Mach.Env))
		for k, val := range base.Mach.Env {
			env[k] = val
		}
		for k, val := range over.cfg.Mach.Env {
			env[k] = val
		}
		merged.Mach.Env = env
	}
	if over.defined("mach", "envFile") {
		merged.Mach.EnvFile = over.cfg.Mach.EnvFile
	}
	if over.defined("mach", "mozillaBuild") {
		merged.Mach.MozillaBuild = over.cfg.Mach.MozillaBuild
	}
	if over.defined("cache", "enabled") {
		merged.Cache.Enabled = over.cfg.Cache.Enabled
	}
	if over.defined("cache", "dir") {
		merged.Cache.Dir = over.cfg.Cache.Dir
	}
	if over.defined("headers", "classifier") {
		merged.Headers.Classifier = over.cfg.Headers.Classifier
	}
	if over.defined("watcher", "enabled") {
		merged.Watcher.Enabled = over.cfg.Watcher.Enabled
	}
	if over.defined("watcher", "pollIntervalMs") {
		merged.Watcher.PollIntervalMs = over.cfg.Watcher.PollIntervalMs
	}
	if over.defined("watcher", "debounceMs") {
		merged.Watcher.DebounceMs = over.cfg.Watcher.DebounceMs
	}
	if over.defined("logging", "level") {
		merged.Logging.Level = over.cfg.Logging.Level
	}
	if over.defined("logging", "file") {
		merged.Logging.File = over.cfg.Logging.File
	}
	if over.defined("logging", "maxSizeKb") {
		merged.Logging.MaxSizeKB = over.cfg.Logging.MaxSizeKB
	}
	if over.defined("logging", "maxBackups") {
		merged.Logging.MaxBackups = over.cfg.Logging.MaxBackups
	}
	return &merged
}

// Load returns the effective configuration for one folder: global config
// overlaid with the folder's geckocpp.toml.
func Load(root fspath.Path) (*Config, error) {
	dir, err := GlobalDir()
	if err != nil {
		return nil, err
	}
	global, err := LoadGlobal(dir)
	if err != nil {
		return nil, err
	}
	over, err := LoadFolder(root)
	if err != nil {
		return nil, err
	}
	cfg := Overlay(global, over)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Headers.Classifier {
	case "", ClassifierSibling, ClassifierContent:
	default:
		return &ConfigError{Field: "headers.classifier",
			Message: fmt.Sprintf("unknown classifier %q", c.Headers.Classifier)}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return &ConfigError{Field: "logging.level",
			Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}

	for field, value := range map[string]string{
		"mach.path":         c.Mach.Path,
		"mach.envFile":      c.Mach.EnvFile,
		"mach.mozillaBuild": c.Mach.MozillaBuild,
		"cache.dir":         c.Cache.Dir,
		"logging.file":      c.Logging.File,
	} {
		if value != "" && !filepath.IsAbs(value) {
			return &ConfigError{Field: field,
				Message: fmt.Sprintf("path must be absolute: %s", value)}
		}
	}

	if c.Watcher.PollIntervalMs < 0 {
		return &ConfigError{Field: "watcher.pollIntervalMs", Message: "must not be negative"}
	}
	if c.Watcher.DebounceMs < 0 {
		return &ConfigError{Field: "watcher.debounceMs", Message: "must not be negative"}
	}
	return nil
}

// Save writes the configuration as TOML to dir/config.toml, creating dir
// when needed.
func (c *Config) Save(dir fspath.Path) error {
	if err := os.MkdirAll(dir.String(), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := c.RenderTOML()
	if err != nil {
		return err
	}
	return os.WriteFile(dir.Join("config.toml").String(), data, 0644)
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
