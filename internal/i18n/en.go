package i18n

// EnMessages English message catalog
var EnMessages = map[string]string{
	// UI - Title and status bar
	"app.title":                 "OpenVPN Console",
	"status.server":             "Server",
	"status.scrollback":         "Scrollback %s / %s",
	"status.state.idle":         "Idle",
	"status.state.connecting":   "Connecting",
	"status.state.connected":    "Connected",
	"status.state.reconnecting": "Reconnecting",
	"status.state.closed":       "Closed",

	// UI - Input
	"input.placeholder": "Management command, e.g. status 3, version, kill <common-name>",
	"hint.keys":         "enter send · ctrl+l clear · pgup/pgdn scroll · F1 help · ctrl+c quit",
	"hint.help_close":   "esc or F1 to close",

	// UI - Help screen (markdown)
	"help.body": `# OpenVPN Console

Commands are sent to the server's OpenVPN management interface.

| Command | Effect |
|---|---|
| ` + "`status 3`" + ` | Connected clients and routing table |
| ` + "`version`" + ` | OpenVPN and management interface version |
| ` + "`load-stats`" + ` | Client count and traffic totals |
| ` + "`kill <common-name>`" + ` | Disconnect a client |
| ` + "`log 20`" + ` | Last 20 log lines |

## Keys

- **Enter**: send the command
- **Ctrl+L**: clear the console and its saved scrollback
- **PgUp / PgDn**: scroll the transcript
- **Ctrl+C**: close the console
`,

	// REPL
	"repl.banner":  "OpenVPN console for server %s. Type /help for commands, /quit to exit.",
	"repl.help":    "/clear  clear the console and its saved scrollback\n/status show connection state\n/quit   close the console",
	"repl.cleared": "Console cleared.",
	"repl.state":   "State: %s, scrollback %s",

	// CLI
	"cli.no_servers":       "No servers found.",
	"cli.servers_header":   "ID\tNAME\tSTATUS\tCLIENTS",
	"cli.history_header":   "SERVER\tSIZE",
	"cli.history_none":     "No scrollback stored.",
	"cli.history_empty":    "No scrollback stored for %s.",
	"cli.history_cleared":  "Cleared scrollback for %s.",
	"cli.history_exported": "Exported %d lines for %s to %s.",
	"cli.config_created":   "Wrote %s",
	"cli.config_exists":    "%s already exists, left unchanged",
	"storage.fallback":     "Scrollback database unavailable (%s); history will not survive this run.",

	// Errors
	"error.clear": "Clear failed: %s",
}
