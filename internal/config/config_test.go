package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DriverFile, cfg.Storage.Driver)
	assert.Equal(t, FormatJSON, cfg.Storage.Format)
	assert.Equal(t, "Turtle", cfg.Pet.DefaultName)
	assert.Equal(t, int64(50), cfg.Pet.StartingCoins)
	assert.Equal(t, time.Hour, cfg.Pet.PlayCooldown)
	assert.Equal(t, 24*time.Hour, cfg.Pet.DailyCooldown)
	assert.Equal(t, 5, cfg.Pet.PlayHappinessMin)
	assert.Equal(t, 15, cfg.Pet.PlayHappinessMax)
	assert.Equal(t, int64(10), cfg.Pet.DailyRewardMin)
	assert.Equal(t, int64(30), cfg.Pet.DailyRewardMax)
	assert.Equal(t, 10*time.Second, cfg.Pet.LockTimeout)
	assert.Equal(t, 10, cfg.Leaderboard.TopSize)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
bot:
  token: file-token
storage:
  driver: file
  format: toml
pet:
  play_cooldown: 30m
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644))
	t.Setenv("BOT_TOKEN", "env-token")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Bot.Token)
	assert.Equal(t, FormatTOML, cfg.Storage.Format)
	assert.Equal(t, 30*time.Minute, cfg.Pet.PlayCooldown)
	assert.Equal(t, 24*time.Hour, cfg.Pet.DailyCooldown)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Storage.Driver = "redis" }},
		{"unknown format", func(c *Config) { c.Storage.Format = "xml" }},
		{"empty default name", func(c *Config) { c.Pet.DefaultName = "  " }},
		{"inverted play range", func(c *Config) { c.Pet.PlayHappinessMin = 20 }},
		{"inverted daily range", func(c *Config) { c.Pet.DailyRewardMax = 1 }},
		{"negative cooldown", func(c *Config) { c.Pet.PlayCooldown = -time.Second }},
		{"zero lock timeout", func(c *Config) { c.Pet.LockTimeout = 0 }},
		{"zero top size", func(c *Config) { c.Leaderboard.TopSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "n"}
	assert.Equal(t, "postgres://u:p@db:5433/n?sslmode=disable", d.DSN())
}
