// Package theme holds the lipgloss styles for CLI reports.
package theme

import (
	"charm.land/lipgloss/v2"
)

var (
	Primary = lipgloss.Color("#8B5CF6") // Purple
	Accent  = lipgloss.Color("#F97316") // Orange
	Success = lipgloss.Color("#22C55E") // Green
	Error   = lipgloss.Color("#F43F5E") // Rose
	TextDim = lipgloss.Color("#94A3B8") // Slate
	Border  = lipgloss.Color("#334155")
)

var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Label = lipgloss.NewStyle().
		Foreground(TextDim).
		Width(11)

	Dim = lipgloss.NewStyle().
		Foreground(TextDim)

	Warning = lipgloss.NewStyle().
		Foreground(Accent)
)

// Question cards.
var (
	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)

	Tag = lipgloss.NewStyle().
		Foreground(Primary)

	Correct = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)
)

// Run summary counters.
var (
	Accepted = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	Duplicate = lipgloss.NewStyle().
			Foreground(Accent).
			Bold(true)

	Failed = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)
)
