package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ovpnconsole/internal/i18n"
	"ovpnconsole/internal/tui"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved scrollback",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(opts)
			if err != nil {
				return err
			}
			defer e.Close()
			hist, store, err := e.openHistory(false, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer store.Close()

			ids, err := hist.Servers(cmd.Context())
			if err != nil {
				return fmt.Errorf("list scrollback: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintln(out, i18n.T("cli.history_none"))
				return nil
			}
			rows := make([][]string, 0, len(ids))
			for _, id := range ids {
				size, err := hist.Size(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("size of %s: %w", id, err)
				}
				rows = append(rows, []string{id, tui.FormatBytes(size)})
			}
			fmt.Fprintln(out, renderTable(i18n.T("cli.history_header"), rows))
			return nil
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show <server-id>",
			Short: "Print a server's saved scrollback",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return exportHistory(cmd, opts, args[0], "")
			},
		},
		&cobra.Command{
			Use:   "clear <server-id>",
			Short: "Delete a server's saved scrollback",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				e, err := loadEnv(opts)
				if err != nil {
					return err
				}
				defer e.Close()
				hist, store, err := e.openHistory(false, cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				defer store.Close()

				if err := hist.Clear(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("clear scrollback: %w", err)
				}
				log := e.logger.Zerolog()
				log.Info().Str("server", args[0]).Msg("scrollback cleared from cli")
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.history_cleared", args[0]))
				return nil
			},
		},
		newHistoryExportCmd(opts),
	)
	return cmd
}

func newHistoryExportCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <server-id>",
		Short: "Write a server's saved scrollback to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return exportHistory(cmd, opts, args[0], output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

// exportHistory writes the scrollback to path, or to stdout when path is
// empty.
func exportHistory(cmd *cobra.Command, opts *rootOptions, serverID, path string) error {
	e, err := loadEnv(opts)
	if err != nil {
		return err
	}
	defer e.Close()
	hist, store, err := e.openHistory(false, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer store.Close()

	var w io.Writer = cmd.OutOrStdout()
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create export file: %w", err)
		}
		defer f.Close()
		w = f
	}

	n, err := hist.Export(cmd.Context(), serverID, w)
	if err != nil {
		return fmt.Errorf("export scrollback: %w", err)
	}
	switch {
	case n == 0:
		fmt.Fprintln(cmd.ErrOrStderr(), i18n.T("cli.history_empty", serverID))
	case path != "":
		fmt.Fprintln(cmd.ErrOrStderr(), i18n.T("cli.history_exported", n, serverID, path))
	}
	return nil
}
