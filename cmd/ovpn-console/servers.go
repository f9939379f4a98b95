package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"ovpnconsole/internal/api"
	"ovpnconsole/internal/i18n"
)

func newServersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "servers",
		Short: "List servers known to the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			client, err := api.NewClient(e.cfg.API.BaseURL, api.Options{
				Token:   e.cfg.API.Token,
				Timeout: e.cfg.APITimeout(),
				Logger:  e.logger.Zerolog(),
			})
			if err != nil {
				return err
			}
			servers, err := client.ListServers(cmd.Context())
			if err != nil {
				return fmt.Errorf("list servers: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(servers) == 0 {
				fmt.Fprintln(out, i18n.T("cli.no_servers"))
				return nil
			}
			rows := make([][]string, 0, len(servers))
			for _, s := range servers {
				rows = append(rows, []string{s.ID.String(), s.Name, s.Status, strconv.Itoa(s.ClientCount)})
			}
			fmt.Fprintln(out, renderTable(i18n.T("cli.servers_header"), rows))
			return nil
		},
	}
}

// renderTable draws rows under a tab-separated header.
func renderTable(header string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(strings.Split(header, "\t")...).
		Rows(rows...).
		String()
}
