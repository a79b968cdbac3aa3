package emberbot

import (
	"fmt"
	"os"
	"time"

	"log/slog"

	"github.com/disgoorg/snowflake/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/emberworks/emberbot/emberbot/database"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log      LogConfig         `toml:"log"`
	Bot      BotConfig         `toml:"bot"`
	DB       database.DBConfig `toml:"db"`
	Pipeline PipelineConfig    `toml:"pipeline"`
	Jobs     JobsConfig        `toml:"jobs"`
}

type BotConfig struct {
	DevGuilds []snowflake.ID `toml:"dev_guilds"`
	Token     string         `toml:"token"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type PipelineConfig struct {
	Workers            int64 `toml:"workers"`
	StorageTimeoutSecs int   `toml:"storage_timeout_secs"`
}

func (c PipelineConfig) StorageTimeout() time.Duration {
	return time.Duration(c.StorageTimeoutSecs) * time.Second
}

type JobsConfig struct {
	ReconcileIntervalHours int `toml:"reconcile_interval_hours"`
	RetentionIntervalHours int `toml:"retention_interval_hours"`
	SweepIntervalMins      int `toml:"sweep_interval_mins"`
	RolloverIntervalMins   int `toml:"rollover_interval_mins"`
}

// Intervals fills any unset job interval with its default.
func (c JobsConfig) Intervals() (reconcile, retention, sweep, rollover time.Duration) {
	reconcile = 24 * time.Hour
	retention = 6 * time.Hour
	sweep = 10 * time.Minute
	rollover = time.Hour
	if c.ReconcileIntervalHours > 0 {
		reconcile = time.Duration(c.ReconcileIntervalHours) * time.Hour
	}
	if c.RetentionIntervalHours > 0 {
		retention = time.Duration(c.RetentionIntervalHours) * time.Hour
	}
	if c.SweepIntervalMins > 0 {
		sweep = time.Duration(c.SweepIntervalMins) * time.Minute
	}
	if c.RolloverIntervalMins > 0 {
		rollover = time.Duration(c.RolloverIntervalMins) * time.Minute
	}
	return reconcile, retention, sweep, rollover
}
