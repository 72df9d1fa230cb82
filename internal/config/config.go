// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	DB      DBConfig      `mapstructure:"database"`
	Run     RunConfig     `mapstructure:"run"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// DBConfig controls access to the sharded url_state store.
type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	TablePrefix string `mapstructure:"table_prefix"`
	MaxConns    int32  `mapstructure:"max_conns"`
	MinConns    int32  `mapstructure:"min_conns"`
}

// RunConfig governs the batch run: shard range, paging, and pool size.
type RunConfig struct {
	Shards    int    `mapstructure:"shards"`
	BatchSize int    `mapstructure:"batch_size"`
	Workers   int    `mapstructure:"workers"`
	Reset     bool   `mapstructure:"reset"`
	RowLimit  int    `mapstructure:"limit"`
	ReportDir string `mapstructure:"report_dir"`
}

// MetricsConfig toggles the ops HTTP surface.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INDEXSELECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// An explicit empty default makes the key visible to Unmarshal so the
	// INDEXSELECT_DATABASE_DSN environment variable can supply it.
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.table_prefix", "url_state")
	v.SetDefault("database.max_conns", 8)
	v.SetDefault("database.min_conns", 0)
	v.SetDefault("run.shards", 256)
	v.SetDefault("run.batch_size", 100)
	v.SetDefault("run.workers", 4)
	v.SetDefault("run.reset", false)
	v.SetDefault("run.limit", 0)
	v.SetDefault("run.report_dir", "result")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.DB.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Run.Shards <= 0 {
		return fmt.Errorf("run.shards must be > 0")
	}
	if c.Run.BatchSize <= 0 {
		return fmt.Errorf("run.batch_size must be > 0")
	}
	if c.Run.Workers <= 0 {
		return fmt.Errorf("run.workers must be > 0")
	}
	if c.Run.RowLimit < 0 {
		return fmt.Errorf("run.limit must be >= 0")
	}
	if c.Metrics.Enabled && c.Metrics.Port <= 0 {
		return fmt.Errorf("metrics.port must be > 0 when metrics are enabled")
	}
	return nil
}
