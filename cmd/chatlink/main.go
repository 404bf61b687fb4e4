package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/marketlane/chatlink/internal/api"
	"github.com/marketlane/chatlink/internal/config"
	"github.com/marketlane/chatlink/internal/session"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "chatlink",
	Short: "Marketplace chat session client",
	Long: "chatlink connects to the marketplace messaging endpoint over a single\n" +
		"multiplexed channel: list rooms, open or reuse a room for a listing,\n" +
		"watch a room live, and send messages with delivery confirmation.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/chatlink.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger and installs it as default.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// loadConfig loads and validates the config file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	return cfg, nil
}

// newAPIClient builds the REST client from config.
func newAPIClient(cfg *config.Config, logger *slog.Logger) *api.Client {
	timeout := cfg.API.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return api.NewClient(cfg.API.RestURL, cfg.API.Token,
		api.WithLogger(logger),
		api.WithTimeout(timeout),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
	)
}

// sessionConfig maps file config onto the session layer.
func sessionConfig(cfg *config.Config) session.Config {
	sc := session.DefaultConfig()
	sc.WSURL = cfg.API.WSURL
	if cfg.Session.SubscribeTimeout > 0 {
		sc.SubscribeTimeout = cfg.Session.SubscribeTimeout
	}
	if cfg.Session.ReconnectBaseDelay > 0 {
		sc.ReconnectBaseDelay = cfg.Session.ReconnectBaseDelay
	}
	if cfg.Session.ReconnectMaxDelay > 0 {
		sc.ReconnectMaxDelay = cfg.Session.ReconnectMaxDelay
	}
	if cfg.Session.ConfirmTimeout > 0 {
		sc.ConfirmTimeout = cfg.Session.ConfirmTimeout
	}
	if cfg.Session.PingTimeout > 0 {
		sc.PingTimeout = cfg.Session.PingTimeout
	}
	if cfg.Session.WriteTimeout > 0 {
		sc.WriteTimeout = cfg.Session.WriteTimeout
	}
	if cfg.Session.BufferSize > 0 {
		sc.BufferSize = cfg.Session.BufferSize
	}
	if cfg.Session.HistorySize > 0 {
		sc.HistorySize = cfg.Session.HistorySize
	}
	return sc
}
