package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ovpnconsole/internal/api"
	"ovpnconsole/internal/console"
	"ovpnconsole/internal/hub"
	"ovpnconsole/internal/repl"
	"ovpnconsole/internal/tui"
)

const commandHistoryFile = "command_history"

func newConsoleCmd(opts *rootOptions) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "console <server-id>",
		Short: "Open a live console to a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(opts)
			if err != nil {
				return err
			}
			defer e.Close()
			return runConsole(cmd, e, args[0], plain || e.cfg.UI.Plain)
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "line mode instead of the full-screen view")
	return cmd
}

func runConsole(cmd *cobra.Command, e *env, serverID string, plain bool) error {
	log := e.logger.Zerolog().With().Str("server", serverID).Logger()

	apiClient, err := api.NewClient(e.cfg.API.BaseURL, api.Options{
		Token:   e.cfg.API.Token,
		Timeout: e.cfg.APITimeout(),
		Logger:  log,
	})
	if err != nil {
		return err
	}

	hist, store, err := e.openHistory(true, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer store.Close()

	opts := console.Options{
		Resolver: apiClient,
		Dial: func(endpoint string) hub.Conn {
			return hub.NewClient(endpoint, hub.Options{
				Header:           apiClient.AuthHeader(),
				ReconnectDelays:  e.cfg.ReconnectDelays(),
				HandshakeTimeout: e.cfg.HandshakeTimeout(),
				Logger:           log,
			})
		},
		History: hist,
		Logger:  log,
	}

	stdinTTY := term.IsTerminal(int(os.Stdin.Fd()))
	stdoutTTY := term.IsTerminal(int(os.Stdout.Fd()))
	log.Info().Bool("plain", plain).Bool("tty", stdinTTY && stdoutTTY).Msg("opening console")

	if !plain && stdinTTY && stdoutTTY {
		return tui.Run(cmd.Context(), console.New(serverID, opts))
	}

	var input repl.LineInput
	if stdinTTY {
		input, err = repl.NewLineInput(filepath.Join(e.cfg.Storage.BaseDir, commandHistoryFile))
		if err != nil {
			log.Warn().Err(err).Msg("line editor unavailable, reading stdin directly")
		}
	} else {
		input = repl.NewBasicLineInput(os.Stdin, cmd.OutOrStdout())
	}
	defer input.Close()

	width := 0
	if stdoutTTY {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			width = w
		}
	}
	printer := repl.NewPrinter(input.Output(), repl.PrinterOptions{Color: stdoutTTY, Width: width})
	opts.Observer = printer
	return repl.NewLoop(console.New(serverID, opts), input, printer).Run(cmd.Context())
}
