package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"ovpnconsole/internal/config"
	"ovpnconsole/internal/history"
	"ovpnconsole/internal/i18n"
	"ovpnconsole/internal/logging"
	"ovpnconsole/internal/storage"
)

const version = "0.1.0"

type rootOptions struct {
	configPath string
	logLevel   string
}

// env is what every subcommand starts from.
type env struct {
	cfg    config.Config
	logger *logging.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "ovpn-console",
		Short: "Terminal console for OpenVPN servers",
		Long: `ovpn-console opens a live management console to an OpenVPN server through
the monitoring backend's real-time hub and keeps a capped scrollback per server.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: ./ovpn-console.json, then ~/.ovpn-console/config.json)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.SetVersionTemplate("{{.Name}} version {{.Version}}\n")

	root.AddCommand(
		newConsoleCmd(opts),
		newServersCmd(opts),
		newHistoryCmd(opts),
		newConfigCmd(opts),
	)
	return root
}

func loadEnv(opts *rootOptions) (*env, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if lvl := strings.TrimSpace(opts.logLevel); lvl != "" {
		cfg.Logging.Level = strings.ToLower(lvl)
	}
	i18n.Init(cfg.UI.Locale)

	logger, err := logging.New(logging.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.LogPath(),
		Redaction: cfg.Logging.Redaction,
	})
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	return &env{cfg: cfg, logger: logger}, nil
}

func (e *env) Close() error {
	return e.logger.Close()
}

// openHistory opens the scrollback database. With fallback set, an
// unavailable database degrades to an in-memory store and a notice on
// errOut instead of failing.
func (e *env) openHistory(fallback bool, errOut io.Writer) (*history.History, storage.Store, error) {
	log := e.logger.Zerolog()
	var store storage.Store
	sqlite, err := storage.NewSQLiteStore(e.cfg.DBPath())
	switch {
	case err == nil:
		store = sqlite
	case fallback:
		log.Warn().Err(err).Str("path", e.cfg.DBPath()).Msg("scrollback database unavailable, using memory")
		fmt.Fprintln(errOut, i18n.T("storage.fallback", err.Error()))
		store = storage.NewMemoryStore()
	default:
		return nil, nil, fmt.Errorf("open scrollback database: %w", err)
	}
	return history.New(store, e.cfg.Storage.ScrollbackMaxBytes, log), store, nil
}
