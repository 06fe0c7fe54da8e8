package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Database    DatabaseConfig    `mapstructure:"database" yaml:"database"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	Import      ImportConfig      `mapstructure:"import" yaml:"import"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance" yaml:"maintenance"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Path   string `mapstructure:"path" yaml:"path"`
}

// ImportConfig holds import pipeline tuning.
type ImportConfig struct {
	// EpisodeNameRatio is the fraction of video filenames that must match
	// episode numbering before a directory is treated as TV-structured.
	EpisodeNameRatio float64 `mapstructure:"episode_name_ratio" yaml:"episode_name_ratio"`
	// ActorLimit caps how many cast entries are kept per NFO document.
	ActorLimit int `mapstructure:"actor_limit" yaml:"actor_limit"`
}

// MaintenanceConfig holds background maintenance settings.
type MaintenanceConfig struct {
	// PreWarmMinutes is the interval between cache pre-warm sweeps.
	// Zero disables the sweep.
	PreWarmMinutes int `mapstructure:"prewarm_minutes" yaml:"prewarm_minutes"`
	// RescanMinutes is the interval between re-imports of the watched
	// roots. Zero disables rescanning.
	RescanMinutes int `mapstructure:"rescan_minutes" yaml:"rescan_minutes"`
	// WatchedRoots lists directory trees to re-import on the rescan
	// interval.
	WatchedRoots []string `mapstructure:"watched_roots" yaml:"watched_roots"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8484,
		},
		Database: DatabaseConfig{
			Path: "./data/reelcat.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Path:   "./data/logs",
		},
		Import: ImportConfig{
			EpisodeNameRatio: 0.5,
			ActorLimit:       50,
		},
		Maintenance: MaintenanceConfig{
			PreWarmMinutes: 15,
			WatchedRoots:   []string{},
		},
	}
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.reelcat")
	}

	v.SetEnvPrefix("REELCAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults + env vars
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// WriteDefault materializes the default configuration as a YAML file at
// path, so a fresh install has an editable config on disk.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func setDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("server.host", def.Server.Host)
	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.path", def.Logging.Path)
	v.SetDefault("import.episode_name_ratio", def.Import.EpisodeNameRatio)
	v.SetDefault("import.actor_limit", def.Import.ActorLimit)
	v.SetDefault("maintenance.prewarm_minutes", def.Maintenance.PreWarmMinutes)
	v.SetDefault("maintenance.rescan_minutes", def.Maintenance.RescanMinutes)
	v.SetDefault("maintenance.watched_roots", def.Maintenance.WatchedRoots)
}
