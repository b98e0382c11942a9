package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/hugo-lorenzo-mato/marketlog/internal/compose"
	"github.com/hugo-lorenzo-mato/marketlog/internal/config"
	"github.com/hugo-lorenzo-mato/marketlog/internal/core"
	"github.com/hugo-lorenzo-mato/marketlog/internal/history"
	"github.com/hugo-lorenzo-mato/marketlog/internal/llm"
	"github.com/hugo-lorenzo-mato/marketlog/internal/logging"
	"github.com/hugo-lorenzo-mato/marketlog/internal/prompt"
)

// app holds what every command needs, built once from the validated config.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	store  core.HistoryStore
	apiKey string
}

// newApp loads and validates the configuration, applies overrides from
// command flags, and opens the history store.
func newApp(cmd *cobra.Command, overrides ...func(*config.Config)) (*app, error) {
	a, err := loadApp(cmd, overrides...)
	if err != nil {
		return nil, err
	}
	if err := a.openStore(); err != nil {
		return nil, err
	}
	return a, nil
}

// loadApp is newApp without the history store. Commands that call a model
// use it so a bad key fails before anything touches the history.
func loadApp(cmd *cobra.Command, overrides ...func(*config.Config)) (*app, error) {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	for _, override := range overrides {
		override(cfg)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, core.ErrConfig(core.CodeInvalidConfig, "invalid configuration").WithCause(err)
	}

	provider := llm.DetectProvider(cfg.Model.Provider, cfg.Model.Name)
	apiKey := config.ResolveAPIKey(&cfg.Model, provider, os.Getenv)

	logger := logging.New(logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cmd.ErrOrStderr(),
		Secrets: []string{apiKey},
	})
	if used := loader.ConfigFileUsed(); used != "" {
		logger.Debug("config loaded", "file", used)
	}

	return &app{cfg: cfg, logger: logger, apiKey: apiKey}, nil
}

func (a *app) openStore() error {
	h := a.cfg.History
	store, err := history.NewStore(h.Backend, h.Path, history.StoreOptions{
		LockTTL:    h.LockTTLDuration(),
		BackupPath: h.BackupPath,
		Logger:     a.logger.Slog(),
	})
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	a.store = store
	return nil
}

// Close releases the history store, if one was opened.
func (a *app) Close() {
	if a.store == nil {
		return
	}
	if err := history.CloseStore(a.store); err != nil {
		a.logger.Warn("closing history store", "error", err)
	}
}

// newRunner builds the model client, then opens the store and wraps both
// in the run pipeline.
func (a *app) newRunner() (*compose.Runner, error) {
	m := a.cfg.Model
	client, err := llm.NewClient(llm.Options{
		Provider:    m.Provider,
		Model:       m.Name,
		APIKey:      a.apiKey,
		MaxTokens:   m.MaxTokens,
		Temperature: m.Temperature,
		WebSearch:   m.WebSearch.Enabled,
		MaxUses:     m.WebSearch.MaxUses,
		BaseURL:     m.BaseURL,
	})
	if err != nil {
		return nil, err
	}

	renderer, err := prompt.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("loading prompts: %w", err)
	}

	if a.store == nil {
		if err := a.openStore(); err != nil {
			return nil, err
		}
	}

	return compose.NewRunner(a.store, client, renderer,
		compose.WithTimeout(m.TimeoutDuration()),
		compose.WithWebSearch(m.WebSearch.Enabled),
		compose.WithRunnerLogger(a.logger.Slog()),
	), nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// terminalWidth reports whether w is a terminal and its width.
func terminalWidth(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0, false
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return 80, true
	}
	return min(width, 120), true
}
