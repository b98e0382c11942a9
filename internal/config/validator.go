package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hugo-lorenzo-mato/marketlog/internal/core"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateModel(&cfg.Model)
	v.validateHistory(&cfg.History)
	v.validateSchedule(&cfg.Schedule)
	v.validateServe(&cfg.Serve)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[cfg.Level] {
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"auto": true, "text": true, "json": true,
	}
	if !validFormats[cfg.Format] {
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json")
	}
}

func (v *Validator) validateModel(cfg *ModelConfig) {
	if !core.ValidProviders[strings.ToLower(cfg.Provider)] {
		v.addError("model.provider", cfg.Provider, "must be empty, anthropic or gemini")
	}
	if strings.TrimSpace(cfg.Name) == "" {
		v.addError("model.name", cfg.Name, "required")
	}
	if cfg.MaxTokens <= 0 {
		v.addError("model.max_tokens", cfg.MaxTokens, "must be positive")
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		v.addError("model.temperature", cfg.Temperature, "must be between 0 and 2")
	}
	v.validatePositiveDuration("model.timeout", cfg.Timeout)
	if cfg.WebSearch.Enabled && cfg.WebSearch.MaxUses < 0 {
		v.addError("model.web_search.max_uses", cfg.WebSearch.MaxUses, "must not be negative")
	}
}

func (v *Validator) validateHistory(cfg *HistoryConfig) {
	switch cfg.Backend {
	case "json", "sqlite":
	default:
		v.addError("history.backend", cfg.Backend, "must be one of: json, sqlite")
	}
	if strings.TrimSpace(cfg.Path) == "" {
		v.addError("history.path", cfg.Path, "required")
	}
	v.validatePositiveDuration("history.lock_ttl", cfg.LockTTL)
}

func (v *Validator) validateSchedule(cfg *ScheduleConfig) {
	if cfg.Cron == "" {
		return
	}
	if _, err := cron.ParseStandard(cfg.Cron); err != nil {
		v.addError("schedule.cron", cfg.Cron, "invalid cron expression: "+err.Error())
	}
}

func (v *Validator) validateServe(cfg *ServeConfig) {
	if strings.TrimSpace(cfg.Addr) == "" {
		v.addError("serve.addr", cfg.Addr, "required")
	}
}

func (v *Validator) validatePositiveDuration(field, value string) {
	if value == "" {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		v.addError(field, value, "invalid duration format")
		return
	}
	if d <= 0 {
		v.addError(field, value, "must be positive")
	}
}

// ValidateConfig is a convenience function that creates a validator and validates config.
func ValidateConfig(cfg *Config) error {
	v := NewValidator()
	return v.Validate(cfg)
}
