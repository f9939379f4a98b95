// Package tui is the full-screen console view. Starting the program mounts
// the session and quitting unmounts it.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ovpnconsole/internal/console"
	"ovpnconsole/internal/i18n"
)

// --- Tea Messages ---

// SessionEventMsg 会话后台事件
// SessionEventMsg carries one background event for the session
type SessionEventMsg struct{ Event console.Event }

// App Bubble Tea 主 Model
// App is the main Bubble Tea model
type App struct {
	// 布局 / Layout
	width  int
	height int

	// 会话 / Session
	session *console.Session

	// 视图 / Views
	transcript viewport.Model
	helpView   viewport.Model
	input      textarea.Model
	showHelp   bool

	// 状态 / State
	lastError string

	// 配置 / Config
	theme  Theme
	keys   KeyMap
	locale *i18n.I18n
}

// NewApp 创建 TUI 应用
// NewApp creates the console view for session
func NewApp(session *console.Session) App {
	ta := textarea.New()
	ta.Placeholder = i18n.T("input.placeholder")
	ta.CharLimit = 4096
	ta.ShowLineNumbers = false
	ta.SetHeight(1)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	a := App{
		session:    session,
		transcript: viewport.New(0, 0),
		helpView:   viewport.New(0, 0),
		input:      ta,
		theme:      DarkTheme(),
		keys:       DefaultKeyMap(),
		locale:     i18n.Global(),
	}
	a.refreshTranscript()
	return a
}

func (a App) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, waitForEvent(a.session.Events()))
}

func waitForEvent(events <-chan console.Event) tea.Cmd {
	return func() tea.Msg {
		return SessionEventMsg{Event: <-events}
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.relayout()
		return a, nil

	case SessionEventMsg:
		a.session.Handle(msg.Event)
		a.refreshTranscript()
		return a, waitForEvent(a.session.Events())

	case tea.MouseMsg:
		var cmd tea.Cmd
		a.transcript, cmd = a.transcript.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, a.keys.Quit):
			a.session.Unmount()
			return a, tea.Quit
		case key.Matches(msg, a.keys.Help):
			a.showHelp = !a.showHelp
			return a, nil
		case a.showHelp && key.Matches(msg, a.keys.Cancel):
			a.showHelp = false
			return a, nil
		case a.showHelp && (key.Matches(msg, a.keys.PageUp) || key.Matches(msg, a.keys.PageDown)):
			var cmd tea.Cmd
			a.helpView, cmd = a.helpView.Update(msg)
			return a, cmd
		case a.showHelp:
			// 帮助层遮住输入区时忽略其余按键 / Other keys are ignored while help hides the input.
			return a, nil
		case key.Matches(msg, a.keys.Submit):
			a.submit()
			return a, nil
		case key.Matches(msg, a.keys.ClearScreen):
			a.lastError = ""
			if err := a.session.Clear(context.Background()); err != nil {
				a.lastError = a.locale.T("error.clear", err.Error())
			}
			a.refreshTranscript()
			return a, nil
		case key.Matches(msg, a.keys.PageUp), key.Matches(msg, a.keys.PageDown):
			var cmd tea.Cmd
			a.transcript, cmd = a.transcript.Update(msg)
			return a, cmd
		case key.Matches(msg, a.keys.Top):
			a.transcript.GotoTop()
			return a, nil
		case key.Matches(msg, a.keys.Bottom):
			a.transcript.GotoBottom()
			return a, nil
		}
	}

	// 更新输入区 / Update input area
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	cmds = append(cmds, cmd)

	return a, tea.Batch(cmds...)
}

func (a App) View() string {
	if a.width == 0 || a.height == 0 {
		return "Initializing..."
	}

	title := a.renderTitle(a.width)
	statusBar := a.renderStatusBar(a.width)
	hint := a.theme.MutedStyle.Render(" " + a.locale.T("hint.keys"))
	if a.lastError != "" {
		hint = a.theme.ErrorStyle.Render(" " + a.lastError)
	}

	if a.showHelp {
		help := a.theme.HelpStyle.Width(a.width - 2).Render(a.helpView.View())
		closeHint := a.theme.MutedStyle.Render(" " + a.locale.T("hint.help_close"))
		return lipgloss.JoinVertical(lipgloss.Left, title, help, closeHint, statusBar)
	}

	body := lipgloss.NewStyle().Width(a.width).Height(a.transcript.Height).Render(a.transcript.View())
	inputBox := a.theme.InputStyle.Width(a.width).Render(a.input.View())
	return lipgloss.JoinVertical(lipgloss.Left, title, body, inputBox, hint, statusBar)
}

// --- 内部方法 / Internal methods ---

// 标题 1 行 + 输入 2 行 + 提示 1 行 + 状态栏 1 行
// title 1 + input 2 + hint 1 + status bar 1
const chromeHeight = 5

func (a *App) relayout() {
	bodyHeight := a.height - chromeHeight
	if bodyHeight < 3 {
		bodyHeight = 3
	}

	atBottom := a.transcript.AtBottom()
	a.transcript.Width = a.width
	a.transcript.Height = bodyHeight
	if atBottom {
		a.transcript.GotoBottom()
	}

	a.helpView.Width = a.width - 4
	a.helpView.Height = bodyHeight
	a.helpView.SetContent(RenderMarkdown(a.locale.T("help.body"), a.width-6))

	a.input.SetWidth(a.width - 2)
}

func (a *App) refreshTranscript() {
	follow := a.transcript.AtBottom() || a.transcript.TotalLineCount() == 0
	a.transcript.SetContent(RenderTranscript(a.session.Lines(), a.theme))
	if follow {
		a.transcript.GotoBottom()
	}
}

func (a *App) submit() {
	a.session.SetInput(a.input.Value())
	a.session.Submit()
	a.input.SetValue(a.session.Input())
	a.refreshTranscript()
	a.transcript.GotoBottom()
}

// --- 渲染方法 / Render methods ---

func (a App) renderTitle(width int) string {
	left := a.theme.TitleStyle.Render(" " + a.locale.T("app.title"))
	right := fmt.Sprintf("%s %s ", a.locale.T("status.server"), a.session.ServerID())
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return left + strings.Repeat(" ", gap) + right
}

func (a App) renderStatusBar(width int) string {
	left := " " + a.renderState(a.session.State())
	right := a.locale.T("status.scrollback",
		FormatBytes(a.session.Size()), FormatBytes(a.session.MaxBytes())) + " "

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return a.theme.StatusBarStyle.Width(width).Render(bar)
}

func (a App) renderState(s console.State) string {
	label := a.locale.T("status.state." + s.String())
	switch s {
	case console.StateConnected:
		return a.theme.SuccessStyle.Render("● " + label)
	case console.StateConnecting, console.StateReconnecting:
		return a.theme.WarningStyle.Render("◐ " + label)
	case console.StateClosed:
		return a.theme.ErrorStyle.Render("○ " + label)
	default:
		return a.theme.MutedStyle.Render("○ " + label)
	}
}

// Run 挂载会话并启动 Bubble Tea；退出时卸载
// Run mounts session, runs the Bubble Tea program and unmounts on exit
func Run(ctx context.Context, session *console.Session) error {
	session.Mount(ctx)
	defer session.Unmount()

	p := tea.NewProgram(NewApp(session), tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
