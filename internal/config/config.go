// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

// File formats for the file driver.
const (
	FormatJSON = "json"
	FormatTOML = "toml"
)

// Config holds all application configuration.
type Config struct {
	Bot         BotConfig         `mapstructure:"bot"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Pet         PetConfig         `mapstructure:"pet"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token       string        `mapstructure:"token"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
	// RateLimit is the number of updates per second accepted from one user.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

// StorageConfig selects the persistence gateway.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// PetConfig holds the game balance tunables.
type PetConfig struct {
	DefaultName      string        `mapstructure:"default_name"`
	StartingCoins    int64         `mapstructure:"starting_coins"`
	PlayCooldown     time.Duration `mapstructure:"play_cooldown"`
	PlayExperience   int           `mapstructure:"play_experience"`
	PlayHappinessMin int           `mapstructure:"play_happiness_min"`
	PlayHappinessMax int           `mapstructure:"play_happiness_max"`
	FeedExperience   int           `mapstructure:"feed_experience"`
	DailyCooldown    time.Duration `mapstructure:"daily_cooldown"`
	DailyRewardMin   int64         `mapstructure:"daily_reward_min"`
	DailyRewardMax   int64         `mapstructure:"daily_reward_max"`
	LevelUpCoins     int64         `mapstructure:"level_up_coins"`
	// LockTimeout bounds the wait for a user's previous action to finish.
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

// LeaderboardConfig holds leaderboard display configuration.
type LeaderboardConfig struct {
	TopSize int `mapstructure:"top_size"`
}

// MetricsConfig holds the Prometheus endpoint configuration.
// An empty address disables the endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g., BOT_TOKEN, STORAGE_DRIVER, PET_PLAY_COOLDOWN
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional - env vars can provide all config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration with every default applied and no overrides.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults only contain well-typed values.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.token", "")
	v.SetDefault("bot.poll_timeout", "10s")
	v.SetDefault("bot.rate_limit", 2.0)
	v.SetDefault("bot.rate_burst", 5)

	v.SetDefault("storage.driver", DriverFile)
	v.SetDefault("storage.dir", "data")
	v.SetDefault("storage.format", FormatJSON)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "turtle")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "turtle")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("pet.default_name", "Turtle")
	v.SetDefault("pet.starting_coins", 50)
	v.SetDefault("pet.play_cooldown", "1h")
	v.SetDefault("pet.play_experience", 5)
	v.SetDefault("pet.play_happiness_min", 5)
	v.SetDefault("pet.play_happiness_max", 15)
	v.SetDefault("pet.feed_experience", 2)
	v.SetDefault("pet.daily_cooldown", "24h")
	v.SetDefault("pet.daily_reward_min", 10)
	v.SetDefault("pet.daily_reward_max", 30)
	v.SetDefault("pet.level_up_coins", 5)
	v.SetDefault("pet.lock_timeout", "10s")

	v.SetDefault("leaderboard.top_size", 10)

	v.SetDefault("metrics.addr", "")
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverFile:
		if c.Storage.Format != FormatJSON && c.Storage.Format != FormatTOML {
			return fmt.Errorf("unsupported storage format %q", c.Storage.Format)
		}
	case DriverPostgres:
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}

	p := c.Pet
	if strings.TrimSpace(p.DefaultName) == "" {
		return fmt.Errorf("pet.default_name must not be empty")
	}
	if p.PlayHappinessMin > p.PlayHappinessMax {
		return fmt.Errorf("pet.play_happiness_min %d exceeds max %d", p.PlayHappinessMin, p.PlayHappinessMax)
	}
	if p.DailyRewardMin > p.DailyRewardMax {
		return fmt.Errorf("pet.daily_reward_min %d exceeds max %d", p.DailyRewardMin, p.DailyRewardMax)
	}
	if p.PlayCooldown < 0 || p.DailyCooldown < 0 {
		return fmt.Errorf("cooldowns must not be negative")
	}
	if p.LockTimeout <= 0 {
		return fmt.Errorf("pet.lock_timeout must be positive")
	}
	if c.Leaderboard.TopSize <= 0 {
		return fmt.Errorf("leaderboard.top_size must be positive")
	}
	return nil
}
