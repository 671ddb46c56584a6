package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/musagithub1/python-code-assistant-ai-bot/pkg/assistant"
	"github.com/musagithub1/python-code-assistant-ai-bot/pkg/config"
	"github.com/musagithub1/python-code-assistant-ai-bot/pkg/providers"
	"github.com/musagithub1/python-code-assistant-ai-bot/pkg/store"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := executeCLI(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

// app carries everything a subcommand needs after bootstrap.
type app struct {
	cfg       *config.Config
	assistant *assistant.Assistant
	archive   *store.Store
	log       zerolog.Logger
}

func (a *app) Close() {
	if a.archive != nil {
		_ = a.archive.Close()
	}
}

func bootstrap(configPath string, verbose bool) (*app, error) {
	log := newLogger(verbose)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	apiKey := cfg.ResolveAPIKey()
	client, err := providers.NewClient(apiKey, cfg.API.BaseURL, cfg.API.Model, cfg.API.Temperature, cfg.API.Proxy)
	if err != nil {
		return nil, err
	}

	var archive *store.Store
	if cfg.App.ArchivePath != "" {
		archive, err = store.Open(cfg.App.ArchivePath)
		if err != nil {
			return nil, fmt.Errorf("open archive: %w", err)
		}
	}

	bot, err := assistant.New(cfg, client, archive, log)
	if err != nil {
		if archive != nil {
			_ = archive.Close()
		}
		return nil, err
	}

	log.Debug().Str("model", cfg.API.Model).Str("provider", cfg.API.Provider).Msg("assistant ready")
	return &app{cfg: cfg, assistant: bot, archive: archive, log: log}, nil
}
