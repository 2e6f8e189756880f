package model

import (
	"fmt"
	"time"
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreJSON   = "json"
)

// Case id allocation modes.
const (
	AllocateCount    = "count"
	AllocateSequence = "sequence"
)

// Config stores the application configuration.
type Config struct {
	BotToken          string        `mapstructure:"BOT_TOKEN"`
	StaffRoleIDs      []string      `mapstructure:"STAFF_ROLE_IDS"`
	LogChannelID      string        `mapstructure:"LOG_CHANNEL_ID"`
	ModLogChannelName string        `mapstructure:"MODLOG_CHANNEL_NAME"`
	StoreBackend      string        `mapstructure:"STORE_BACKEND"`
	DBPath            string        `mapstructure:"DB_PATH"`
	ModLogPath        string        `mapstructure:"MODLOG_PATH"`
	CaseIDAllocation  string        `mapstructure:"CASE_ID_ALLOCATION"`
	SweepInterval     time.Duration `mapstructure:"SWEEP_INTERVAL"`
	EnforceTimeout    time.Duration `mapstructure:"ENFORCE_TIMEOUT"`
	RedisURL          string        `mapstructure:"REDIS_URL"`
	RedisChannel      string        `mapstructure:"REDIS_CHANNEL"`
	MetricsAddr       string        `mapstructure:"METRICS_ADDR"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	LogFormat         string        `mapstructure:"LOG_FORMAT"`
}

// Validate checks the values that have no safe fallback.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	switch c.StoreBackend {
	case StoreSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite store")
		}
	case StoreJSON:
		if c.ModLogPath == "" {
			return fmt.Errorf("MODLOG_PATH is required for the json store")
		}
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q (must be %q or %q)", c.StoreBackend, StoreSQLite, StoreJSON)
	}
	if c.CaseIDAllocation != AllocateCount && c.CaseIDAllocation != AllocateSequence {
		return fmt.Errorf("unsupported CASE_ID_ALLOCATION %q (must be %q or %q)", c.CaseIDAllocation, AllocateCount, AllocateSequence)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be > 0, got %s", c.SweepInterval)
	}
	if c.EnforceTimeout <= 0 {
		return fmt.Errorf("ENFORCE_TIMEOUT must be > 0, got %s", c.EnforceTimeout)
	}
	return nil
}
