// Package config loads, validates and writes the marketlog configuration.
package config

import "time"

// Config holds all application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Model    ModelConfig    `mapstructure:"model"`
	History  HistoryConfig  `mapstructure:"history"`
	Run      RunConfig      `mapstructure:"run"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Serve    ServeConfig    `mapstructure:"serve"`
	Export   ExportConfig   `mapstructure:"export"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ModelConfig configures the model client.
type ModelConfig struct {
	// Provider is anthropic or gemini. Empty means detect from Name.
	Provider    string          `mapstructure:"provider"`
	Name        string          `mapstructure:"name"`
	MaxTokens   int             `mapstructure:"max_tokens"`
	Temperature float64         `mapstructure:"temperature"`
	Timeout     string          `mapstructure:"timeout"`
	APIKey      string          `mapstructure:"api_key"`
	BaseURL     string          `mapstructure:"base_url"`
	WebSearch   WebSearchConfig `mapstructure:"web_search"`
}

// WebSearchConfig configures the provider-side search tool.
type WebSearchConfig struct {
	Enabled bool `mapstructure:"enabled"`
	MaxUses int  `mapstructure:"max_uses"`
}

// HistoryConfig configures history persistence.
type HistoryConfig struct {
	Backend    string `mapstructure:"backend"`
	Path       string `mapstructure:"path"`
	BackupPath string `mapstructure:"backup_path"`
	LockTTL    string `mapstructure:"lock_ttl"`
}

// RunConfig holds default run parameters.
type RunConfig struct {
	Tag     string `mapstructure:"tag"`
	Context string `mapstructure:"context"`
}

// ScheduleConfig configures repeated runs.
type ScheduleConfig struct {
	Cron string `mapstructure:"cron"`
}

// ServeConfig configures the read-only API.
type ServeConfig struct {
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// ExportConfig configures markdown export.
type ExportConfig struct {
	Path string `mapstructure:"path"`
}

// TimeoutDuration returns the parsed model timeout, or zero if unset or invalid.
func (m ModelConfig) TimeoutDuration() time.Duration {
	return parseDuration(m.Timeout)
}

// LockTTLDuration returns the parsed lock TTL, or zero if unset or invalid.
func (h HistoryConfig) LockTTLDuration() time.Duration {
	return parseDuration(h.LockTTL)
}

func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
