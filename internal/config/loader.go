package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/marketlog/internal/core"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "MARKETLOG"

// providerKeyEnv lists the conventional key variables per provider, in
// lookup order. They apply only when model.api_key is unset.
var providerKeyEnv = map[string][]string{
	core.ProviderAnthropic: {"ANTHROPIC_API_KEY"},
	core.ProviderGemini:    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return NewLoaderWithViper(viper.New())
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: EnvPrefix,
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// ConfigFileUsed returns the file the configuration was read from, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (MARKETLOG_*)
// 3. Project config (.marketlog.yaml in current directory)
// 4. User config (~/.config/marketlog/config.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName(".marketlog")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "marketlog"))
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// setDefaults configures default values.
func (l *Loader) setDefaults() {
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")

	l.v.SetDefault("model.provider", "")
	l.v.SetDefault("model.name", core.DefaultModel)
	l.v.SetDefault("model.max_tokens", 16000)
	l.v.SetDefault("model.temperature", 0.0)
	l.v.SetDefault("model.timeout", "10m")
	l.v.SetDefault("model.api_key", "")
	l.v.SetDefault("model.base_url", "")
	l.v.SetDefault("model.web_search.enabled", true)
	l.v.SetDefault("model.web_search.max_uses", 15)

	l.v.SetDefault("history.backend", "json")
	l.v.SetDefault("history.path", "data/history.json")
	l.v.SetDefault("history.backup_path", "")
	l.v.SetDefault("history.lock_ttl", "1h")

	l.v.SetDefault("run.tag", "")
	l.v.SetDefault("run.context", "")

	l.v.SetDefault("schedule.cron", "0 6 * * 1")

	l.v.SetDefault("serve.addr", ":8080")
	l.v.SetDefault("serve.cors_origins", []string{"*"})

	l.v.SetDefault("export.path", "data/latest.md")
}

// ResolveAPIKey returns model.api_key, falling back to the provider's
// conventional environment variables read through getenv.
func ResolveAPIKey(cfg *ModelConfig, provider string, getenv func(string) string) string {
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		return key
	}
	for _, name := range providerKeyEnv[provider] {
		if key := strings.TrimSpace(getenv(name)); key != "" {
			return key
		}
	}
	return ""
}
