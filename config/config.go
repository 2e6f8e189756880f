// Package config loads the bot configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"modlog-bot/model"
	"modlog-bot/utils"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var defaults = map[string]any{
	"BOT_TOKEN":           "",
	"STAFF_ROLE_IDS":      "",
	"LOG_CHANNEL_ID":      "",
	"MODLOG_CHANNEL_NAME": "mod-logs",
	"STORE_BACKEND":       model.StoreSQLite,
	"DB_PATH":             "./data/moderation.db",
	"MODLOG_PATH":         "./Database/Moderation",
	"CASE_ID_ALLOCATION":  model.AllocateCount,
	"SWEEP_INTERVAL":      time.Minute,
	"ENFORCE_TIMEOUT":     10 * time.Second,
	"REDIS_URL":           "",
	"REDIS_CHANNEL":       "moderation:cases",
	"METRICS_ADDR":        "",
	"LOG_LEVEL":           "info",
	"LOG_FORMAT":          "text",
}

// Load reads .env if present, then the process environment.
func Load() (*model.Config, error) {
	if err := godotenv.Load(); err != nil {
		utils.Log.Info(".env file not found, relying on environment variables")
	}
	return FromViper(viper.New())
}

// FromViper resolves the configuration from v, which has AutomaticEnv
// enabled on it.
func FromViper(v *viper.Viper) (*model.Config, error) {
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg model.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.StaffRoleIDs = splitIDs(cfg.StaffRoleIDs)
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	cfg.CaseIDAllocation = strings.ToLower(strings.TrimSpace(cfg.CaseIDAllocation))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.LogChannelID == "" {
		utils.Log.Warn("LOG_CHANNEL_ID not set, log channel messages are disabled")
	}
	if len(cfg.StaffRoleIDs) == 0 {
		utils.Log.Warn("STAFF_ROLE_IDS not set, only members with Administrator can moderate")
	}
	return &cfg, nil
}

// splitIDs accepts both an already split list and a single comma list.
func splitIDs(in []string) []string {
	var out []string
	for _, item := range in {
		for _, id := range strings.Split(item, ",") {
			if id = strings.TrimSpace(id); id != "" {
				out = append(out, id)
			}
		}
	}
	return out
}
