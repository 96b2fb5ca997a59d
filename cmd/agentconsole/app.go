package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/c360studio/agentconsole/chat"
	"github.com/c360studio/agentconsole/client"
	"github.com/c360studio/agentconsole/config"
	"github.com/c360studio/agentconsole/transport"
)

// app carries the wiring shared by every subcommand.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
	client *client.Client
}

// init configures logging, loads config and builds the backend client.
func (a *app) init() error {
	level := slog.LevelInfo
	switch strings.ToLower(a.logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)

	cfg, err := a.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	copts := []transport.DirectOption{
		transport.WithHTTPClient(&http.Client{Timeout: cfg.Backend.Timeout}),
	}
	if cfg.User.Token != "" {
		copts = append(copts, transport.WithAuthToken(cfg.User.Token))
	}
	channel := transport.NewDirectChannel(copts...)
	a.client = client.New(
		client.WithSelector(cfg.Selector()),
		client.WithChannel(channel),
		client.WithUserID(cfg.User.ID),
		client.WithLogger(a.logger),
	)
	return nil
}

func (a *app) loadConfig() (*config.Config, error) {
	if a.configPath != "" {
		cfg, err := config.LoadFromFile(a.configPath)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	loader := config.NewLoader(a.logger)
	if err := loader.EnsureUserConfig(); err != nil {
		a.logger.Warn("could not create default user config", "error", err)
	}
	return loader.Load()
}

// watchConfig hot-reloads the explicitly given config file for the duration
// of a long-lived command, invoking apply for each validated reload.
func (a *app) watchConfig(ctx context.Context, apply func(*config.Config)) error {
	w, err := config.NewWatcher(config.WatcherConfig{Path: a.configPath, Logger: a.logger})
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		_ = w.Stop()
		return fmt.Errorf("watch config: %w", err)
	}
	go func() {
		defer w.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case cfg, ok := <-w.Reloads():
				if !ok {
					return
				}
				apply(cfg)
			}
		}
	}()
	return nil
}

// chatService builds a chat service over a fresh store. The CLI is
// short-lived, so the store only spans one command invocation.
func (a *app) chatService() *chat.Service {
	return chat.NewService(a.client, chat.NewStore(), chat.WithLogger(a.logger))
}
