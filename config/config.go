// Package config loads and validates the pipeline's configuration (spec
// §6.1): storage thresholds, bar intervals, event bus pool sizes, and the
// base data directories each storage tier writes under.
package config

import (
	"fmt"

	"github.com/ionflux/datacenter/feeders"
)

// EventBusConfig sizes the sync worker pools, the async per-instrument
// shard runtime, and the timer producer.
type EventBusConfig struct {
	MarketWorkers  int `yaml:"market_workers"`
	GeneralWorkers int `yaml:"general_workers"`
	AsyncShards    int `yaml:"async_shards"`
	QueueSize      int `yaml:"queue_size"`
	TimerInterval  int `yaml:"timer_interval_seconds"`
}

// HotStoreConfig controls the embedded per-day database tier.
type HotStoreConfig struct {
	DataDir        string `yaml:"data_dir"`
	FlushThreshold int    `yaml:"flush_threshold"`
	FlushInterval  int    `yaml:"flush_interval_seconds"`
}

// AppendLogConfig controls the sharded CSV tier.
type AppendLogConfig struct {
	DataDir        string `yaml:"data_dir"`
	Shards         int    `yaml:"shards"`
	BatchThreshold int    `yaml:"batch_threshold"`
	QueueSize      int    `yaml:"queue_size"`
}

// ColdArchiveConfig controls the cold, columnar-file tier.
type ColdArchiveConfig struct {
	DataDir string `yaml:"data_dir"`
}

// ArchiverConfig controls the hot-to-cold migration cycle.
type ArchiverConfig struct {
	RetentionDays int    `yaml:"retention_days"`
	CronSchedule  string `yaml:"cron_schedule"`
}

// ContractRegistryConfig points at the instrument table and tunes the
// gateway-ready timeout guard.
type ContractRegistryConfig struct {
	InstrumentTablePath string `yaml:"instrument_table_path"`
	MaxWaitSeconds      int    `yaml:"max_wait_seconds"`
	CheckIntervalSecond int    `yaml:"check_interval_seconds"`
}

// Config is the top-level configuration for the pipeline.
type Config struct {
	BarIntervals      []string                `yaml:"bar_intervals"`
	EventBus          EventBusConfig          `yaml:"event_bus"`
	HotStore          HotStoreConfig          `yaml:"hot_store"`
	AppendLog         AppendLogConfig         `yaml:"append_log"`
	ColdArchive       ColdArchiveConfig       `yaml:"cold_archive"`
	Archiver          ArchiverConfig          `yaml:"archiver"`
	ContractRegistry  ContractRegistryConfig  `yaml:"contract_registry"`
}

func defaults() *Config {
	return &Config{
		BarIntervals: []string{"1m", "5m", "1h", "1d"},
		EventBus: EventBusConfig{
			MarketWorkers:  64,
			GeneralWorkers: 16,
			AsyncShards:    32,
			QueueSize:      10000,
			TimerInterval:  1,
		},
		HotStore: HotStoreConfig{
			DataDir:        "data/hot",
			FlushThreshold: 500,
			FlushInterval:  5,
		},
		AppendLog: AppendLogConfig{
			DataDir:        "data/csv",
			Shards:         4,
			BatchThreshold: 5000,
			QueueSize:      50000,
		},
		ColdArchive: ColdArchiveConfig{
			DataDir: "data/cold",
		},
		Archiver: ArchiverConfig{
			RetentionDays: 7,
			CronSchedule:  "0 0 2 * * *",
		},
		ContractRegistry: ContractRegistryConfig{
			InstrumentTablePath: "config/instrument_exchange.json",
			MaxWaitSeconds:      60,
			CheckIntervalSecond: 3,
		},
	}
}

// Load reads the YAML file at path, layers environment overrides on top,
// and validates the result.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		if err := feeders.NewYamlFeeder(path).Feed(cfg); err != nil {
			return nil, err
		}
	}

	env := feeders.NewEnvFeeder(
		feeders.EnvOverride{Key: "DATACENTER_RETENTION_DAYS", Setter: feeders.IntSetter(&cfg.Archiver.RetentionDays)},
		feeders.EnvOverride{Key: "DATACENTER_HOTSTORE_DIR", Setter: feeders.StringSetter(&cfg.HotStore.DataDir)},
		feeders.EnvOverride{Key: "DATACENTER_APPENDLOG_DIR", Setter: feeders.StringSetter(&cfg.AppendLog.DataDir)},
		feeders.EnvOverride{Key: "DATACENTER_COLDARCHIVE_DIR", Setter: feeders.StringSetter(&cfg.ColdArchive.DataDir)},
	)
	if err := env.Feed(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var knownIntervalSuffixes = map[byte]bool{'m': true, 'h': true, 'd': true}

// Validate rejects malformed interval tags, a non-positive retention period
// or shard count, and empty data directories at startup rather than letting
// them surface as a runtime panic later.
func (c *Config) Validate() error {
	if len(c.BarIntervals) == 0 {
		return fmt.Errorf("bar_intervals: %w", errEmptyIntervals)
	}
	for _, tag := range c.BarIntervals {
		if len(tag) < 2 || !knownIntervalSuffixes[tag[len(tag)-1]] {
			return fmt.Errorf("bar_intervals: %q: %w", tag, errUnknownInterval)
		}
	}
	if c.Archiver.RetentionDays <= 0 {
		return fmt.Errorf("archiver.retention_days: %w", errInvalidRetention)
	}
	if c.AppendLog.Shards <= 0 {
		return fmt.Errorf("append_log.shards: %w", errInvalidShardCount)
	}
	if c.HotStore.DataDir == "" || c.AppendLog.DataDir == "" || c.ColdArchive.DataDir == "" {
		return errEmptyDataDir
	}
	return nil
}
