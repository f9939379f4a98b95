package i18n

// ZhCNMessages 简体中文消息目录
// ZhCNMessages Simplified Chinese message catalog
var ZhCNMessages = map[string]string{
	"app.title":                 "OpenVPN 控制台",
	"status.server":             "服务器",
	"status.scrollback":         "回滚缓冲 %s / %s",
	"status.state.idle":         "空闲",
	"status.state.connecting":   "连接中",
	"status.state.connected":    "已连接",
	"status.state.reconnecting": "重连中",
	"status.state.closed":       "已关闭",

	"input.placeholder": "管理命令，例如 status 3、version、kill <common-name>",
	"hint.keys":         "enter 发送 · ctrl+l 清空 · pgup/pgdn 滚动 · F1 帮助 · ctrl+c 退出",
	"hint.help_close":   "按 esc 或 F1 关闭",

	"help.body": `# OpenVPN 控制台

命令会发送到服务器的 OpenVPN 管理接口。

| 命令 | 作用 |
|---|---|
| ` + "`status 3`" + ` | 已连接客户端与路由表 |
| ` + "`version`" + ` | OpenVPN 与管理接口版本 |
| ` + "`load-stats`" + ` | 客户端数量与流量统计 |
| ` + "`kill <common-name>`" + ` | 断开某个客户端 |
| ` + "`log 20`" + ` | 最近 20 行日志 |

## 按键

- **Enter**：发送命令
- **Ctrl+L**：清空控制台及已保存的回滚记录
- **PgUp / PgDn**：滚动记录
- **Ctrl+C**：关闭控制台
`,

	"repl.banner":  "服务器 %s 的 OpenVPN 控制台。输入 /help 查看命令，/quit 退出。",
	"repl.help":    "/clear  清空控制台及已保存的回滚记录\n/status 显示连接状态\n/quit   关闭控制台",
	"repl.cleared": "控制台已清空。",
	"repl.state":   "状态：%s，回滚缓冲 %s",

	"cli.no_servers":       "没有找到服务器。",
	"cli.servers_header":   "ID\t名称\t状态\t客户端",
	"cli.history_header":   "服务器\t大小",
	"cli.history_none":     "没有已保存的回滚记录。",
	"cli.history_empty":    "服务器 %s 没有已保存的回滚记录。",
	"cli.history_cleared":  "已清除服务器 %s 的回滚记录。",
	"cli.history_exported": "已导出服务器 %[2]s 的 %[1]d 行到 %[3]s。",
	"cli.config_created":   "已写入 %s",
	"cli.config_exists":    "%s 已存在，未做修改",
	"storage.fallback":     "回滚数据库不可用（%s），本次运行的记录不会被保存。",

	"error.clear": "清空失败：%s",
}
