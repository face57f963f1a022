package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Spinner shows a live status line while a run is in progress. It only
// animates when stderr is a terminal; otherwise every method is a no-op.
// A nil *Spinner is valid.
type Spinner struct {
	program *tea.Program
	exited  chan struct{}
}

// StartSpinner starts a spinner with an initial message.
func StartSpinner(message string) *Spinner {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil
	}
	return startSpinner(message, os.Stderr)
}

func startSpinner(message string, w io.Writer) *Spinner {
	s := &Spinner{
		program: tea.NewProgram(newSpinnerModel(message), tea.WithOutput(w), tea.WithInput(nil)),
		exited:  make(chan struct{}),
	}
	go func() {
		defer close(s.exited)
		// spinner failures never affect the run
		_, _ = s.program.Run()
	}()
	return s
}

// Update replaces the status line. Safe to call from any goroutine.
func (s *Spinner) Update(phase string, done, total int) {
	if s == nil {
		return
	}
	s.program.Send(progressMsg{phase: phase, done: done, total: total})
}

// Stop renders the final state and waits for the spinner to exit.
func (s *Spinner) Stop(err error) {
	if s == nil {
		return
	}
	s.program.Send(spinnerDoneMsg{err: err})
	select {
	case <-s.exited:
	case <-time.After(500 * time.Millisecond):
		s.program.Kill()
	}
}

type progressMsg struct {
	phase string
	done  int
	total int
}

type spinnerDoneMsg struct {
	err error
}

// spinnerModel is the bubbletea model behind Spinner.
type spinnerModel struct {
	spinner spinner.Model
	message string
	done    int
	total   int
	stopped bool
	err     error
}

func newSpinnerModel(message string) *spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return &spinnerModel{
		spinner: s,
		message: message,
	}
}

func (m *spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		m.message = msg.phase
		m.done, m.total = msg.done, msg.total
		return m, nil
	case spinnerDoneMsg:
		m.stopped = true
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		if !m.stopped {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m *spinnerModel) View() string {
	if m.stopped {
		if m.err != nil {
			return fmt.Sprintf("❌ %s\n", m.message)
		}
		return fmt.Sprintf("✅ %s\n", m.message)
	}
	if m.total > 0 {
		return fmt.Sprintf("%s %s %d/%d files...", m.spinner.View(), m.message, m.done, m.total)
	}
	return fmt.Sprintf("%s %s...", m.spinner.View(), m.message)
}
