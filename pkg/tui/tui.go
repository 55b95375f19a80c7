package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/go-mclib/gateway/pkg/gateway"
)

const maxLogLines = 1000

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// Gateway defines the methods the dashboard needs from the server
type Gateway interface {
	Addr() string
	SessionCount() int
	Sessions() []gateway.SessionInfo
	Kick(username, reason string) bool
	Restart()
}

// TUI is the operator dashboard for interactive mode
type TUI struct {
	gw        Gateway
	upstream  string
	quit      func()
	viewport  viewport.Model
	textInput textinput.Model
	logs      []string
	logMutex  sync.Mutex
	ready     bool
	sessions  int
	width     int
}

// New creates a dashboard. quit is called when the operator exits.
func New(gw Gateway, upstream string, quit func()) *TUI {
	ti := textinput.New()
	ti.Placeholder = "sessions | kick <name> [reason] | restart"
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 50

	return &TUI{
		gw:        gw,
		upstream:  upstream,
		quit:      quit,
		textInput: ti,
	}
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (t *TUI) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tick())
}

func (t *TUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			if t.quit != nil {
				t.quit()
			}
			return t, tea.Quit

		case tea.KeyEnter:
			input := strings.TrimSpace(t.textInput.Value())
			if input != "" && t.gw != nil {
				t.AddLog("> " + input)
				for _, line := range t.Execute(input) {
					t.AddLog(line)
				}
				t.refresh()
				t.textInput.SetValue("")
			}
			return t, nil
		}

	case tea.WindowSizeMsg:
		if !t.ready {
			t.viewport = viewport.New(msg.Width, msg.Height-4)
			t.viewport.SetContent(t.renderLogs())
			t.ready = true
		} else {
			t.viewport.Width = msg.Width
			t.viewport.Height = msg.Height - 4
		}
		t.width = msg.Width
		t.textInput.Width = msg.Width - 2

	case tickMsg:
		if t.gw != nil {
			t.sessions = t.gw.SessionCount()
		}
		return t, tick()

	case LogMsg:
		t.AddLog(string(msg))
		t.refresh()
		return t, nil
	}

	if t.ready {
		t.viewport, cmd = t.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	t.textInput, cmd = t.textInput.Update(msg)
	cmds = append(cmds, cmd)

	return t, tea.Batch(cmds...)
}

// refresh redraws the log pane, following the tail only if it was already there
func (t *TUI) refresh() {
	if !t.ready {
		return
	}
	wasAtBottom := t.viewport.AtBottom()
	t.viewport.SetContent(t.renderLogs())
	if wasAtBottom {
		t.viewport.GotoBottom()
	}
}

// Execute runs one operator command and returns the lines to print
func (t *TUI) Execute(input string) []string {
	args := strings.Fields(input)
	switch strings.ToLower(args[0]) {
	case "sessions", "ls":
		infos := t.gw.Sessions()
		if len(infos) == 0 {
			return []string{"no sessions"}
		}
		lines := make([]string, 0, len(infos))
		for _, info := range infos {
			state := "login"
			switch {
			case info.Relaying:
				state = "relaying"
			case info.Authenticated:
				state = "dialing"
			}
			lines = append(lines, fmt.Sprintf("#%d %s (%s) %s ping=%s modules=[%s]",
				info.ID, info.Username, info.Remote, state, info.Ping, strings.Join(info.Modules, ", ")))
		}
		return lines

	case "kick":
		if len(args) < 2 {
			return []string{"usage: kick <name> [reason]"}
		}
		reason := "Kicked by an operator."
		if len(args) > 2 {
			reason = strings.Join(args[2:], " ")
		}
		if !t.gw.Kick(args[1], reason) {
			return []string{"no session for " + args[1]}
		}
		return []string{"kicked " + args[1]}

	case "restart":
		t.gw.Restart()
		return []string{"listener restarting"}

	case "help":
		return []string{"commands: sessions, kick <name> [reason], restart"}
	}
	return []string{fmt.Sprintf("unknown command %q", args[0])}
}

func (t *TUI) View() string {
	if !t.ready {
		return "Initializing..."
	}

	addr := ""
	if t.gw != nil {
		addr = t.gw.Addr()
	}
	title := titleStyle.Render(fmt.Sprintf("Gateway %s -> %s", addr, t.upstream))
	status := helpStyle.Render(fmt.Sprintf("%d session(s)", t.sessions))

	return fmt.Sprintf(
		"%s\n%s\n%s\n%s\n%s",
		title,
		status,
		t.viewport.View(),
		inputStyle.Render("> "+t.textInput.View()),
		helpStyle.Render("Enter: run • Ctrl+C/Esc: quit"),
	)
}

// AddLog adds a log line to the dashboard
func (t *TUI) AddLog(msg string) {
	t.logMutex.Lock()
	defer t.logMutex.Unlock()
	t.logs = append(t.logs, msg)

	if len(t.logs) > maxLogLines {
		t.logs = t.logs[len(t.logs)-maxLogLines:]
	}
}

func (t *TUI) renderLogs() string {
	t.logMutex.Lock()
	defer t.logMutex.Unlock()
	return strings.Join(t.logs, "\n")
}

// LogMsg is a message type for logging
type LogMsg string

// Writer is an io.Writer that sends output to the TUI
type Writer struct {
	program *tea.Program
}

func NewWriter(program *tea.Program) *Writer {
	return &Writer{program: program}
}

// Write implements io.Writer
func (w *Writer) Write(p []byte) (n int, err error) {
	msg := strings.TrimSuffix(string(p), "\n")
	if msg != "" {
		w.program.Send(LogMsg(msg))
	}
	return len(p), nil
}

// Start creates a dashboard program, returning it and a writer for logging.
// The gateway may be attached later, before the program runs, so the
// writer can back the gateway's own logger.
func Start(gw Gateway, upstream string, quit func()) (*TUI, *tea.Program, io.Writer) {
	t := New(gw, upstream, quit)
	p := tea.NewProgram(t, tea.WithAltScreen())
	return t, p, NewWriter(p)
}

// Attach sets the gateway the dashboard reports on
func (t *TUI) Attach(gw Gateway) {
	t.gw = gw
}
