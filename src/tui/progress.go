// Package tui renders the progress of a template version build in the terminal.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"provisioner-watch/src/provider"
)

const (
	// logTailLines is how many log lines the view shows.
	logTailLines = 10
	// logKeepLines bounds the logs kept in memory.
	logKeepLines = 200
	defaultWidth = 80
)

// VersionMsg carries a new observation of the template version.
type VersionMsg struct {
	Version provider.TemplateVersion
}

// LogMsg carries job logs. Logs already seen, by ID, are ignored.
type LogMsg struct {
	Logs []provider.ProvisionerJobLog
}

// DoneMsg ends the wait. Err is nil when the build succeeded.
type DoneMsg struct {
	Err error
}

// BuildModel shows a spinner, the job status, the queue position while pending,
// elapsed time and a tail of recent log lines.
type BuildModel struct {
	spinner   spinner.Model
	styles    *StyleConfig
	version   provider.TemplateVersion
	polls     int
	logs      []string
	lastLogID int64

	started  time.Time
	finished time.Time
	now      func() time.Time

	width       int
	done        bool
	interrupted bool
	err         error
}

// NewBuildModel creates a model for version, starting the clock now.
func NewBuildModel(version provider.TemplateVersion) BuildModel {
	return newBuildModel(version, time.Now)
}

func newBuildModel(version provider.TemplateVersion, now func() time.Time) BuildModel {
	styles := DefaultStyles()
	return BuildModel{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700"))), // Gold
		),
		styles:  styles,
		version: version,
		started: now(),
		now:     now,
		width:   defaultWidth,
	}
}

// Init starts the spinner.
func (m BuildModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles observations, logs, completion and quit keys.
func (m BuildModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.interrupted = true
			return m, tea.Quit
		}

	case VersionMsg:
		m.version = msg.Version
		m.polls++

	case LogMsg:
		m.appendLogs(msg.Logs)

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		m.finished = m.now()
		return m, tea.Quit

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *BuildModel) appendLogs(logs []provider.ProvisionerJobLog) {
	for _, log := range logs {
		if log.ID <= m.lastLogID {
			continue
		}
		m.lastLogID = log.ID
		m.logs = append(m.logs, LogLines(log.Output)...)
	}
	if len(m.logs) > logKeepLines {
		m.logs = append([]string(nil), m.logs[len(m.logs)-logKeepLines:]...)
	}
}

// Err returns the error the build ended with.
func (m BuildModel) Err() error { return m.err }

// Done reports whether the wait finished.
func (m BuildModel) Done() bool { return m.done }

// Interrupted reports whether the user quit before the wait finished.
func (m BuildModel) Interrupted() bool { return m.interrupted }

// Elapsed returns the time since the model was created, frozen once done.
func (m BuildModel) Elapsed() time.Duration {
	end := m.now()
	if m.done {
		end = m.finished
	}
	return end.Sub(m.started).Round(time.Second)
}

func (m BuildModel) name() string {
	if m.version.Name != "" {
		return m.version.Name
	}
	return m.version.ID
}

// View renders the build status.
func (m BuildModel) View() string {
	var lines []string
	status := m.version.Job.Status

	if m.done {
		lines = append(lines, m.summary())
	} else {
		title := m.styles.TitleStyle().Render("Building template version " + m.name())
		state := m.styles.StatusStyle(status).Render(string(status))
		if status == "" {
			state = m.styles.HelpStyle().Render("waiting")
		}
		lines = append(lines, fmt.Sprintf("%s %s  %s · %s", m.spinner.View(), title, state, m.Elapsed()))

		if status == provider.ProvisionerJobPending && m.version.Job.QueuePosition > 0 {
			queue := fmt.Sprintf("Queue position %d", m.version.Job.QueuePosition)
			if m.version.Job.QueueSize > 0 {
				queue += fmt.Sprintf(" of %d", m.version.Job.QueueSize)
			}
			lines = append(lines, m.styles.LogStyle().Render(queue))
		}
	}

	if tail := m.logTail(); len(tail) > 0 {
		lines = append(lines, "")
		for _, line := range tail {
			lines = append(lines, m.styles.LogStyle().Render(line))
		}
	}

	if !m.done {
		lines = append(lines, "", m.styles.HelpStyle().Render("q: quit"))
	}

	return strings.Join(lines, "\n") + "\n"
}

func (m BuildModel) summary() string {
	var jobErr *provider.JobError
	switch {
	case m.err == nil:
		style := m.styles.StatusStyle(provider.ProvisionerJobSucceeded)
		return style.Render(fmt.Sprintf("✓ Template version %s built in %s", m.name(), m.Elapsed()))
	case errors.As(m.err, &jobErr):
		style := m.styles.StatusStyle(jobErr.Job.Status)
		text := fmt.Sprintf("✗ Template version %s %s after %s", m.name(), jobErr.Job.Status, m.Elapsed())
		if jobErr.Job.Error != "" {
			text += "\n" + Wrap(jobErr.Job.Error, m.width-2)
		}
		return style.Render(text)
	default:
		style := m.styles.StatusStyle(provider.ProvisionerJobFailed)
		return style.Render(Wrap("✗ "+m.err.Error(), m.width))
	}
}

// logTail returns the last lines of the log, fitted to the terminal width.
func (m BuildModel) logTail() []string {
	start := len(m.logs) - logTailLines
	if start < 0 {
		start = 0
	}
	tail := make([]string, 0, len(m.logs)-start)
	for _, line := range m.logs[start:] {
		tail = append(tail, Truncate(line, m.width-2, true))
	}
	return tail
}
