package cli

import (
	"context"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type taskDoneMsg struct{ err error }

// spinnerModel shows a spinner next to label until a taskDoneMsg arrives.
type spinnerModel struct {
	spinner spinner.Model
	label   string
	done    bool
	err     error
}

func newSpinnerModel(label string) spinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(outStyle.spinner),
	)
	if !outOpt.unicode {
		s.Spinner = spinner.Line
	}
	return spinnerModel{spinner: s, label: label}
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case taskDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	return m.spinner.View() + " " + m.label + "\n"
}

// runWithProgress runs fn, showing a spinner on interactive terminals and a
// plain step line everywhere else. An interrupt cancels fn's context.
func runWithProgress(ctx context.Context, label string, fn func(context.Context) error) error {
	if outOpt.quiet {
		return fn(ctx)
	}
	if !isTerminalFn(os.Stdout) {
		step(label)
		return fn(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newSpinnerModel(label),
		tea.WithContext(ctx),
		tea.WithInput(nil),
		tea.WithOutput(outStdout),
	)

	done := make(chan error, 1)
	go func() {
		err := fn(ctx)
		done <- err
		p.Send(taskDoneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
	}
	return <-done
}
