package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cwygoda/gather/internal/adapter/process"
	"github.com/cwygoda/gather/internal/domain"
)

// Config holds application configuration.
type Config struct {
	Executable      string        `mapstructure:"executable" json:"executable" yaml:"executable"`
	Concurrency     int           `mapstructure:"concurrency" json:"concurrency" yaml:"concurrency"`
	MaxAttempts     int           `mapstructure:"max_attempts" json:"max_attempts" yaml:"max_attempts"`
	RetryDelay      time.Duration `mapstructure:"retry_delay" json:"retry_delay" yaml:"retry_delay"`
	Charset         string        `mapstructure:"charset" json:"charset" yaml:"charset"`
	OutputDir       string        `mapstructure:"output_dir" json:"output_dir" yaml:"output_dir"`
	SeparateFolders bool          `mapstructure:"separate_folders" json:"separate_folders" yaml:"separate_folders"`
	Folder          string        `mapstructure:"folder" json:"folder" yaml:"folder"`
	PreferredFormat string        `mapstructure:"preferred_format" json:"preferred_format" yaml:"preferred_format"`
	ForceOverwrite  bool          `mapstructure:"force_overwrite" json:"force_overwrite" yaml:"force_overwrite"`
	Isolate         bool          `mapstructure:"isolate" json:"isolate" yaml:"isolate"`
	DBPath          string        `mapstructure:"db_path" json:"db_path" yaml:"db_path"`
	Listen          string        `mapstructure:"listen" json:"listen" yaml:"listen"`
	Secret          string        `mapstructure:"secret" json:"secret" yaml:"secret"`
	Debug           bool          `mapstructure:"debug" json:"debug" yaml:"debug"`
}

// EnvPrefix prefixes environment overrides, e.g. GATHER_MAX_ATTEMPTS.
const EnvPrefix = "GATHER"

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"executable":   "executable",
	"concurrency":  "concurrency",
	"max-attempts": "max_attempts",
	"retry-delay":  "retry_delay",
	"charset":      "charset",
	"output-dir":   "output_dir",
	"force":        "force_overwrite",
	"db":           "db_path",
	"listen":       "listen",
	"debug":        "debug",
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Concurrency:     1,
		MaxAttempts:     3,
		OutputDir:       DefaultOutputDir(),
		SeparateFolders: true,
		Isolate:         true,
		DBPath:          DefaultDBPath(),
		Listen:          ":8080",
	}
}

// DefaultDBPath returns the default database path using XDG_CACHE_HOME.
func DefaultDBPath() string {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, _ := os.UserHomeDir()
		cacheDir = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheDir, "gather", "gather.db")
}

// DefaultConfigDir returns the config directory using XDG_CONFIG_HOME.
func DefaultConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "gather")
}

// DefaultConfigPath returns the config file read when none is given.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.toml")
}

// DefaultOutputDir returns the default download directory.
func DefaultOutputDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "Videos")
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Load builds the configuration from defaults, the config file, GATHER_*
// environment variables and changed flags, in increasing precedence. A
// missing config file is not an error unless cfgFile names it explicitly.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("executable", def.Executable)
	v.SetDefault("concurrency", def.Concurrency)
	v.SetDefault("max_attempts", def.MaxAttempts)
	v.SetDefault("retry_delay", def.RetryDelay)
	v.SetDefault("charset", def.Charset)
	v.SetDefault("output_dir", def.OutputDir)
	v.SetDefault("separate_folders", def.SeparateFolders)
	v.SetDefault("folder", def.Folder)
	v.SetDefault("preferred_format", def.PreferredFormat)
	v.SetDefault("force_overwrite", def.ForceOverwrite)
	v.SetDefault("isolate", def.Isolate)
	v.SetDefault("db_path", def.DBPath)
	v.SetDefault("listen", def.Listen)
	v.SetDefault("secret", def.Secret)
	v.SetDefault("debug", def.Debug)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetConfigType("toml")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(DefaultConfigDir())
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: read config file: %v", domain.ErrConfiguration, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	cfg.Executable = ExpandPath(cfg.Executable)
	cfg.OutputDir = ExpandPath(cfg.OutputDir)
	cfg.DBPath = ExpandPath(cfg.DBPath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings the dispatcher cannot run with. The executable
// is checked later, when a run needs it.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1, got %d", domain.ErrConfiguration, c.Concurrency)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: max_attempts must be at least 1, got %d", domain.ErrConfiguration, c.MaxAttempts)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: retry_delay must not be negative", domain.ErrConfiguration)
	}
	if _, err := process.LookupCharset(c.Charset); err != nil {
		return fmt.Errorf("%w: charset: %v", domain.ErrConfiguration, err)
	}
	return nil
}

// fileConfig is the on-disk form. Durations are written as strings.
type fileConfig struct {
	Executable      string `toml:"executable"`
	Concurrency     int    `toml:"concurrency"`
	MaxAttempts     int    `toml:"max_attempts"`
	RetryDelay      string `toml:"retry_delay"`
	Charset         string `toml:"charset"`
	OutputDir       string `toml:"output_dir"`
	SeparateFolders bool   `toml:"separate_folders"`
	Folder          string `toml:"folder"`
	PreferredFormat string `toml:"preferred_format"`
	ForceOverwrite  bool   `toml:"force_overwrite"`
	Isolate         bool   `toml:"isolate"`
	DBPath          string `toml:"db_path"`
	Listen          string `toml:"listen"`
	Secret          string `toml:"secret,omitempty"`
	Debug           bool   `toml:"debug"`
}

// Save writes cfg to path as TOML, creating parent directories.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	fc := fileConfig{
		Executable:      cfg.Executable,
		Concurrency:     cfg.Concurrency,
		MaxAttempts:     cfg.MaxAttempts,
		RetryDelay:      cfg.RetryDelay.String(),
		Charset:         cfg.Charset,
		OutputDir:       cfg.OutputDir,
		SeparateFolders: cfg.SeparateFolders,
		Folder:          cfg.Folder,
		PreferredFormat: cfg.PreferredFormat,
		ForceOverwrite:  cfg.ForceOverwrite,
		Isolate:         cfg.Isolate,
		DBPath:          cfg.DBPath,
		Listen:          cfg.Listen,
		Secret:          cfg.Secret,
		Debug:           cfg.Debug,
	}
	if err := toml.NewEncoder(f).Encode(fc); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return f.Close()
}
