package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Source kinds accepted by the source key.
const (
	SourceBuiltin = "builtin"
	SourceFile    = "file"
	SourceGit     = "git"
	SourceGitHub  = "github"
)

// Config holds all configuration for lmregistry.
type Config struct {
	Source       string       `mapstructure:"source"`
	CatalogPath  string       `mapstructure:"catalog_path"`
	Git          GitConfig    `mapstructure:"git"`
	GitHub       GitHubConfig `mapstructure:"github"`
	CacheDir     string       `mapstructure:"cache_dir"`
	CacheTTL     string       `mapstructure:"cache_ttl"`
	NoCache      bool         `mapstructure:"no_cache"`
	RateLimit    float64      `mapstructure:"rate_limit"`
	LogLevel     string       `mapstructure:"log_level"`
	DefaultModel string       `mapstructure:"default_model"`
}

// GitConfig points at a catalog file inside a local git repository.
type GitConfig struct {
	RepoPath string `mapstructure:"repo_path"`
	Ref      string `mapstructure:"ref"`
	Path     string `mapstructure:"path"`
}

// GitHubConfig points at a catalog file in a GitHub repository.
type GitHubConfig struct {
	Token string `mapstructure:"token"`
	Owner string `mapstructure:"owner"`
	Repo  string `mapstructure:"repo"`
	Path  string `mapstructure:"path"`
	Ref   string `mapstructure:"ref"`
}

// Load reads configuration from file, environment, and defaults.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("source", SourceBuiltin)
	v.SetDefault("catalog_path", "models.yaml")
	v.SetDefault("git.repo_path", ".")
	v.SetDefault("git.ref", "HEAD")
	v.SetDefault("git.path", "models.yaml")
	v.SetDefault("github.path", "models.yaml")
	v.SetDefault("github.ref", "main")
	v.SetDefault("cache_dir", defaultCacheDir())
	v.SetDefault("cache_ttl", "1h")
	v.SetDefault("no_cache", false)
	v.SetDefault("rate_limit", 5)
	v.SetDefault("log_level", "info")
	v.SetDefault("default_model", "")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/lmregistry")
	}

	// Environment variables
	v.SetEnvPrefix("LMREGISTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("github.token", "LMREGISTRY_GITHUB_TOKEN", "GITHUB_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.check(); err != nil {
		return nil, err
	}

	if cfg.Source == SourceFile && !filepath.IsAbs(cfg.CatalogPath) {
		abs, err := filepath.Abs(cfg.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("resolving catalog path: %w", err)
		}
		cfg.CatalogPath = abs
	}

	return &cfg, nil
}

func (c *Config) check() error {
	switch c.Source {
	case SourceBuiltin, SourceFile, SourceGit:
	case SourceGitHub:
		if c.GitHub.Owner == "" || c.GitHub.Repo == "" {
			return fmt.Errorf("source github requires github.owner and github.repo")
		}
	default:
		return fmt.Errorf("unknown source %q, expected one of: builtin, file, git, github", c.Source)
	}
	if _, err := time.ParseDuration(c.CacheTTL); err != nil {
		return fmt.Errorf("invalid cache_ttl %q: %w", c.CacheTTL, err)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("rate_limit must be positive, got %v", c.RateLimit)
	}
	return nil
}

// TTL returns the parsed cache TTL.
func (c *Config) TTL() time.Duration {
	ttl, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return time.Hour
	}
	return ttl
}

// SlogLevel maps log_level onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "lmregistry-cache")
	}
	return filepath.Join(home, ".cache", "lmregistry")
}
