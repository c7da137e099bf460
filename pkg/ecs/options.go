package ecs

import (
	"github.com/argus-labs/erased/pkg/log"
	"github.com/argus-labs/erased/pkg/snapshot"
	"github.com/caarlos0/env/v11"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// worldConfig holds the configuration for a World instance.
// Configuration can be set via environment variables with the specified defaults.
type worldConfig struct {
	// Minimum level of the world's logs.
	LogLevel string `env:"WORLD_LOG_LEVEL" envDefault:"info"`

	// Log output format, "json" or "pretty".
	LogFormat string `env:"WORLD_LOG_FORMAT" envDefault:"json"`

	// Where snapshots are persisted, "NOP" or "REDIS".
	SnapshotStorageType string `env:"WORLD_SNAPSHOT_STORAGE_TYPE" envDefault:"NOP"`

	// Number of ticks between snapshots. 0 disables snapshots.
	SnapshotFrequency uint32 `env:"WORLD_SNAPSHOT_FREQUENCY" envDefault:"0"`

	// Address of the redis server used by the REDIS snapshot storage.
	RedisAddress string `env:"REDIS_ADDRESS" envDefault:"localhost:6379"`

	// Password of the redis server used by the REDIS snapshot storage.
	RedisPassword string `env:"REDIS_PASSWORD"`
}

// loadWorldConfig loads the world configuration from environment variables.
func loadWorldConfig() (worldConfig, error) {
	cfg := worldConfig{}

	if err := env.Parse(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to parse world config")
	}

	if err := cfg.validate(); err != nil {
		return cfg, eris.Wrap(err, "failed to validate config")
	}

	return cfg, nil
}

// validate performs validation on the loaded configuration.
func (cfg *worldConfig) validate() error {
	logCfg := log.Config{Level: cfg.LogLevel, Format: log.Format(cfg.LogFormat)}
	if err := logCfg.Validate(); err != nil {
		return err
	}
	storageType, err := snapshot.ParseStorageType(cfg.SnapshotStorageType)
	if err != nil {
		return err
	}
	if storageType == snapshot.StorageTypeRedis && cfg.RedisAddress == "" {
		return eris.New("redis address cannot be empty when using redis snapshot storage")
	}
	return nil
}

// applyToOptions applies the configuration values to the given WorldOptions.
func (cfg *worldConfig) applyToOptions(opt *WorldOptions) {
	opt.LogLevel = cfg.LogLevel
	opt.LogFormat = log.Format(cfg.LogFormat)
	// validate already rejected unknown storage types.
	opt.SnapshotStorageType, _ = snapshot.ParseStorageType(cfg.SnapshotStorageType)
	opt.SnapshotFrequency = cfg.SnapshotFrequency
	opt.RedisAddress = cfg.RedisAddress
	opt.RedisPassword = cfg.RedisPassword
}

// WorldOptions are the resolved settings of a World.
type WorldOptions struct {
	LogLevel            string               // Minimum log level
	LogFormat           log.Format           // Log output format
	Logger              *zerolog.Logger      // Overrides the logger built from LogLevel and LogFormat
	SnapshotStorageType snapshot.StorageType // Snapshot storage type
	SnapshotStorage     snapshot.Storage     // Overrides the storage built from SnapshotStorageType
	SnapshotFrequency   uint32               // Number of ticks between snapshots, 0 disables them
	RedisAddress        string               // Redis address for the REDIS storage type
	RedisPassword       string               // Redis password for the REDIS storage type
}

// newDefaultWorldOptions creates WorldOptions with default values.
func newDefaultWorldOptions() WorldOptions {
	return WorldOptions{
		LogLevel:            "info",
		LogFormat:           log.FormatJSON,
		Logger:              nil,
		SnapshotStorageType: snapshot.StorageTypeNop,
		SnapshotStorage:     nil,
		SnapshotFrequency:   0,
		RedisAddress:        "",
		RedisPassword:       "",
	}
}

// validate checks that all required options are set and valid.
func (opt *WorldOptions) validate() error {
	if opt.Logger == nil {
		logCfg := log.Config{Level: opt.LogLevel, Format: opt.LogFormat}
		if err := logCfg.Validate(); err != nil {
			return err
		}
	}
	if opt.SnapshotStorage == nil {
		if !opt.SnapshotStorageType.IsValid() {
			return eris.New("invalid snapshot storage type")
		}
		if opt.SnapshotStorageType == snapshot.StorageTypeRedis && opt.RedisAddress == "" {
			return eris.New("redis address cannot be empty when using redis snapshot storage")
		}
	}
	return nil
}

// Option overrides a world option after the environment has been loaded.
type Option func(*WorldOptions)

// WithLogger makes the world log to the given logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(opt *WorldOptions) { opt.Logger = &logger }
}

// WithSnapshotStorage makes the world persist snapshots to the given storage.
func WithSnapshotStorage(storage snapshot.Storage) Option {
	return func(opt *WorldOptions) { opt.SnapshotStorage = storage }
}

// WithSnapshotFrequency sets the number of ticks between snapshots. 0 disables snapshots.
func WithSnapshotFrequency(ticks uint32) Option {
	return func(opt *WorldOptions) { opt.SnapshotFrequency = ticks }
}
