// Package config loads engine configuration from file and environment.
package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/meridian-gis/entitycore/errors"
)

// Config carries the settings the engine needs at startup.
type Config struct {
	Database Database `mapstructure:"database"`
	Log      Log      `mapstructure:"log"`

	// DefaultSRID is the projection used when a filter does not request one.
	DefaultSRID int `mapstructure:"default_srid"`
}

// Database holds connection-pool settings for Postgres.
type Database struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// Log holds logging settings.
type Log struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from the named file (optional) and the
// ENTITYCORE_* environment, applying defaults for everything unset.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("entitycore")
	v.AutomaticEnv()

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("default_srid", 4326)
	v.SetDefault("log.level", "info")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &cfg, nil
}
