package tui

import (
	"github.com/charmbracelet/lipgloss"

	"provisioner-watch/src/provider"
)

// StyleConfig holds the colours of the build progress view.
type StyleConfig struct {
	PrimaryBlue   lipgloss.Color
	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color

	// Status colours
	Pending   lipgloss.Color
	Running   lipgloss.Color
	Succeeded lipgloss.Color
	Failed    lipgloss.Color
	Canceled  lipgloss.Color
}

// DefaultStyles returns the default color palette
func DefaultStyles() *StyleConfig {
	return &StyleConfig{
		PrimaryBlue:   lipgloss.Color("#8AB4F8"),
		TextPrimary:   lipgloss.Color("#E8EAED"),
		TextSecondary: lipgloss.Color("#9AA0A6"),
		Pending:       lipgloss.Color("#FBBC04"), // Yellow
		Running:       lipgloss.Color("#4285F4"), // Blue
		Succeeded:     lipgloss.Color("#34A853"), // Green
		Failed:        lipgloss.Color("#EA4335"), // Red
		Canceled:      lipgloss.Color("#A142F4"), // Purple
	}
}

// StatusColor maps a job status to its colour.
func (s *StyleConfig) StatusColor(status provider.ProvisionerJobStatus) lipgloss.Color {
	switch status {
	case provider.ProvisionerJobPending:
		return s.Pending
	case provider.ProvisionerJobRunning:
		return s.Running
	case provider.ProvisionerJobSucceeded:
		return s.Succeeded
	case provider.ProvisionerJobFailed:
		return s.Failed
	case provider.ProvisionerJobCanceling, provider.ProvisionerJobCanceled:
		return s.Canceled
	default:
		return s.TextSecondary
	}
}

// StatusStyle returns a bold style in the status colour.
func (s *StyleConfig) StatusStyle(status provider.ProvisionerJobStatus) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.StatusColor(status)).
		Bold(true)
}

// TitleStyle returns a title lipgloss style using this config
func (s *StyleConfig) TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.PrimaryBlue).
		Bold(true)
}

// LogStyle returns the dimmed style of the log tail.
func (s *StyleConfig) LogStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextSecondary).
		PaddingLeft(2)
}

// HelpStyle returns a help text lipgloss style using this config
func (s *StyleConfig) HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextSecondary)
}
