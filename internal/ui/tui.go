// Package ui provides the interactive terminal window for the queue.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/nibzard/stq/internal/task"
)

// Engine is the queue surface the window drives.
type Engine interface {
	Enqueue(content string, priority bool)
	CanDequeue() bool
	Dequeue() (task.Task, error)
	MarkDone()
	Save() error
	Pending() []task.Record
	Path() string
}

// TUIOption configures the TUI behavior.
type TUIOption func(*tuiConfig)

// tuiConfig holds TUI configuration.
type tuiConfig struct {
	input     io.Reader
	output    io.Writer
	altScreen bool
}

// WithIO runs the program on the given streams instead of the terminal. The
// TTY check is skipped.
func WithIO(in io.Reader, out io.Writer) TUIOption {
	return func(c *tuiConfig) {
		c.input = in
		c.output = out
		c.altScreen = false
	}
}

// RunTUI runs the window until the user closes it. Closing saves the queue;
// if the program ends any other way the queue is saved before returning.
func RunTUI(ctx context.Context, eng Engine, opts ...TUIOption) error {
	c := &tuiConfig{altScreen: true}
	for _, opt := range opts {
		opt(c)
	}

	if c.input == nil && !IsTTY(os.Stdout) {
		return fmt.Errorf("tui requires a TTY")
	}

	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if c.altScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}
	if c.input != nil {
		programOpts = append(programOpts, tea.WithInput(c.input))
	}
	if c.output != nil {
		programOpts = append(programOpts, tea.WithOutput(c.output))
	}

	model := newTUIModel(eng)
	_, runErr := tea.NewProgram(model, programOpts...).Run()

	switch {
	case model.saved:
		return runErr
	case model.saveErr != nil:
		// The user chose to leave after a failed save.
		return errors.Join(model.saveErr, runErr)
	default:
		if err := eng.Save(); err != nil {
			return errors.Join(err, runErr)
		}
		return runErr
	}
}

// tuiModel is the complete window state. Every key handler mutates only
// this struct.
type tuiModel struct {
	engine Engine
	input  textinput.Model

	// card is the task shown as checked out, nil when the slot is empty.
	card *task.Task

	showQueue bool
	showHelp  bool
	status    string
	saveErr   error
	saved     bool
	width     int
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	cardStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	urgentStyle = cardStyle.BorderForeground(lipgloss.Color("9"))
	mutedStyle  = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func newTUIModel(eng Engine) *tuiModel {
	input := textinput.New()
	input.Prompt = "New task: "
	input.Placeholder = "type and press enter"
	input.CharLimit = 0
	input.Width = 40
	input.Focus()

	return &tuiModel{
		engine: eng,
		input:  input,
		width:  60,
	}
}

func (m *tuiModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(10, msg.Width-len(m.input.Prompt)-2)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m.close()
		case "enter":
			return m.submit(false)
		case "ctrl+p":
			return m.submit(true)
		case "ctrl+n":
			return m.dequeue()
		case "ctrl+d":
			return m.done()
		case "tab":
			m.showQueue = !m.showQueue
			return m, nil
		case "f1":
			m.showHelp = !m.showHelp
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *tuiModel) submit(priority bool) (tea.Model, tea.Cmd) {
	content := m.input.Value()
	m.input.Reset()
	if content == "" {
		return m, nil
	}
	m.engine.Enqueue(content, priority)
	m.clearSaveError()
	if priority {
		m.status = "Added priority task."
	} else {
		m.status = "Added task."
	}
	return m, nil
}

func (m *tuiModel) dequeue() (tea.Model, tea.Cmd) {
	if !m.engine.CanDequeue() {
		m.status = "Queue is empty."
		return m, nil
	}
	next, err := m.engine.Dequeue()
	if err != nil {
		m.status = "Dequeue failed: " + err.Error()
		return m, nil
	}
	m.card = &next
	m.clearSaveError()
	m.status = ""
	return m, nil
}

func (m *tuiModel) done() (tea.Model, tea.Cmd) {
	if m.card == nil {
		return m, nil
	}
	m.engine.MarkDone()
	m.card = nil
	m.clearSaveError()
	m.status = "Done."
	return m, nil
}

// close saves and quits. After a failed save a second close quits without
// saving.
func (m *tuiModel) close() (tea.Model, tea.Cmd) {
	if m.saveErr != nil {
		return m, tea.Quit
	}
	// Save returns the checked-out task to the queue either way.
	err := m.engine.Save()
	m.card = nil
	if err != nil {
		m.saveErr = err
		m.status = ""
		return m, nil
	}
	m.saved = true
	return m, tea.Quit
}

// clearSaveError forgets a failed save once the queue changes, so the next
// close tries again.
func (m *tuiModel) clearSaveError() {
	m.saveErr = nil
}

func (m *tuiModel) View() string {
	var b strings.Builder
	writeTitle(&b)

	if m.showHelp {
		writeHelp(&b)
		writeFooter(&b)
		return b.String()
	}

	b.WriteString(m.input.View() + "\n\n")
	writeCard(&b, m.card, m.width)
	writePending(&b, m.engine.Pending(), m.showQueue)

	if m.saveErr != nil {
		b.WriteString(errorStyle.Render("Save failed: "+m.saveErr.Error()) + "\n")
		b.WriteString("Tasks were NOT saved to " + m.engine.Path() + ". Press esc again to quit anyway.\n\n")
	} else if m.status != "" {
		b.WriteString(m.status + "\n\n")
	}

	writeFooter(&b)
	return b.String()
}

func writeTitle(b *strings.Builder) {
	title := "Simple Task Queue"
	b.WriteString(titleStyle.Render(title) + "\n")
	b.WriteString(strings.Repeat("=", len(title)) + "\n\n")
}

func writeCard(b *strings.Builder, card *task.Task, width int) {
	if card == nil {
		b.WriteString(mutedStyle.Render("  No task checked out. Press ctrl+n to take the next one.") + "\n\n")
		return
	}
	style := cardStyle
	label := card.Content()
	if card.Priority() {
		style = urgentStyle
		label = "! " + label
	}
	if width > 4 {
		style = style.Width(width - 4)
	}
	b.WriteString(style.Render(label) + "\n\n")
}

func writePending(b *strings.Builder, pending []task.Record, expanded bool) {
	urgent := 0
	for _, r := range pending {
		if r.Priority {
			urgent++
		}
	}
	b.WriteString(fmt.Sprintf("Pending: %d (%d priority)\n", len(pending), urgent))
	if !expanded {
		b.WriteString("\n")
		return
	}
	if len(pending) == 0 {
		b.WriteString("  Queue is empty.\n\n")
		return
	}
	for i, r := range pending {
		marker := " "
		if r.Priority {
			marker = "!"
		}
		b.WriteString(fmt.Sprintf("  %2d %s %s\n", i+1, marker, r.Content))
	}
	b.WriteString("\n")
}

func writeHelp(b *strings.Builder) {
	b.WriteString("Keyboard Shortcuts\n\n")
	b.WriteString("  enter        Add task\n")
	b.WriteString("  ctrl+p       Add as priority task\n")
	b.WriteString("  ctrl+n       Take the next task\n")
	b.WriteString("  ctrl+d       Mark the current task done\n")
	b.WriteString("  tab          Show or hide the queue\n")
	b.WriteString("  f1           Toggle this help screen\n")
	b.WriteString("  esc, ctrl+c  Save and quit\n\n")
}

func writeFooter(b *strings.Builder) {
	b.WriteString(mutedStyle.Render("enter add | ctrl+p priority | ctrl+n next | ctrl+d done | f1 help | esc quit") + "\n")
}

// IsTTY returns true if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
