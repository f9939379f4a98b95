package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"ovpnconsole/internal/config"
	"ovpnconsole/internal/i18n"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "init [path]",
			Short: "Write a default config file (ovpn-console.json unless a path is given)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path := config.DefaultProjectConfigFileName
				if len(args) == 1 {
					path = args[0]
				}
				created, err := config.InitConfigScaffold(path)
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.config_created", path))
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.config_exists", path))
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration with secrets masked",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load(opts.configPath)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				data, err := json.MarshalIndent(cfg.Redacted(), "", "  ")
				if err != nil {
					return fmt.Errorf("marshal config: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			},
		},
	)
	return cmd
}
