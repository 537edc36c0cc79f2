package main

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/python-bridge/errors"
	"github.com/wippyai/python-bridge/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const (
	primaryPrompt   = ">>> "
	secondaryPrompt = "... "
	maxEntries      = 200
)

// console holds the state of one interactive session: the lines of a
// pending statement and the command history. complete decides, like
// the Python REPL, whether the pending lines form a whole statement.
type console struct {
	complete func(src string) (bool, error)
	pending  []string
	history  []string
	histIdx  int
}

// feed adds one input line. It returns the source to run once the pending
// lines form a complete statement. A blank line outside a statement does
// nothing.
func (c *console) feed(line string) (string, bool, error) {
	blank := strings.TrimSpace(line) == ""
	if !blank {
		c.history = append(c.history, line)
	}
	c.histIdx = len(c.history)

	if blank && len(c.pending) == 0 {
		return "", false, nil
	}

	c.pending = append(c.pending, line)
	src := strings.Join(c.pending, "\n")
	ok, err := c.complete(src)
	if err != nil {
		c.pending = nil
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	c.pending = nil
	return src + "\n", true, nil
}

func (c *console) prompt() string {
	if len(c.pending) > 0 {
		return secondaryPrompt
	}
	return primaryPrompt
}

// prev and next walk the history; ok is false at either end.
func (c *console) prev() (string, bool) {
	if c.histIdx == 0 {
		return "", false
	}
	c.histIdx--
	return c.history[c.histIdx], true
}

func (c *console) next() (string, bool) {
	if c.histIdx >= len(c.history) {
		return "", false
	}
	c.histIdx++
	if c.histIdx == len(c.history) {
		return "", true
	}
	return c.history[c.histIdx], true
}

type entry struct {
	input  string
	output string
	err    string
}

type interactiveModel struct {
	ctx     context.Context
	pc      *runtime.Context
	input   textinput.Model
	entries []entry
	con     console
	busy    bool
}

type resultMsg struct {
	out  string
	err  string
	exit bool
}

func newInteractiveModel(ctx context.Context, pc *runtime.Context) *interactiveModel {
	ti := textinput.New()
	ti.Prompt = primaryPrompt
	ti.Width = 80
	ti.Focus()

	return &interactiveModel{
		ctx:   ctx,
		pc:    pc,
		input: ti,
		con: console{
			complete: func(src string) (bool, error) {
				return pc.Complete(ctx, src)
			},
		},
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *interactiveModel) eval(src string) tea.Cmd {
	return func() tea.Msg {
		out, err := m.pc.Interact(m.ctx, src)
		msg := resultMsg{out: out.Stdout + out.Stderr}
		exc, ok := errors.ExceptionOf(err)
		switch {
		case err == nil:
		case !ok:
			msg.err = err.Error()
		case exc.Type == "SystemExit":
			msg.exit = true
		case out.Stderr == "":
			// tracebacks are not printed in quiet mode
			msg.err = exc.String()
		}
		return msg
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+d":
			return m, tea.Quit

		case "up":
			if line, ok := m.con.prev(); ok {
				m.input.SetValue(line)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if line, ok := m.con.next(); ok {
				m.input.SetValue(line)
				m.input.CursorEnd()
			}
			return m, nil

		case "enter":
			if m.busy {
				return m, nil
			}
			line := m.input.Value()
			m.input.Reset()
			m.entries = append(m.entries, entry{input: m.con.prompt() + line})
			src, ready, err := m.con.feed(line)
			m.input.Prompt = m.con.prompt()
			if err != nil {
				m.entries[len(m.entries)-1].err = err.Error()
				return m, nil
			}
			if !ready {
				return m, nil
			}
			m.busy = true
			return m, m.eval(src)
		}

	case resultMsg:
		if msg.exit {
			return m, tea.Quit
		}
		m.busy = false
		if len(m.entries) > 0 {
			last := &m.entries[len(m.entries)-1]
			last.output = msg.out
			last.err = msg.err
		}
		if len(m.entries) > maxEntries {
			m.entries = m.entries[len(m.entries)-maxEntries:]
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Python"))
	b.WriteString(" ")
	b.WriteString(helpStyle.Render("embedded interpreter"))
	b.WriteString("\n\n")

	for _, e := range m.entries {
		b.WriteString(inputStyle.Render(e.input))
		b.WriteString("\n")
		if e.output != "" {
			b.WriteString(resultStyle.Render(strings.TrimRight(e.output, "\n")))
			b.WriteString("\n")
		}
		if e.err != "" {
			b.WriteString(errorStyle.Render("Error: " + e.err))
			b.WriteString("\n")
		}
	}

	if m.busy {
		b.WriteString(helpStyle.Render("running..."))
	} else {
		b.WriteString(m.input.View())
	}
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter run • ↑/↓ history • ctrl+d quit"))

	return b.String()
}

func runInteractive(ctx context.Context, pc *runtime.Context) error {
	p := tea.NewProgram(newInteractiveModel(ctx, pc), tea.WithContext(ctx))
	_, err := p.Run()
	if stderrors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
