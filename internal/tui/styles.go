package tui

import "github.com/charmbracelet/lipgloss"

// Палитра из рендерера: жёлтый акцент, тёплые точки, тёмный фон
const (
	colorPrimary   = "#FFD700"
	colorWarm      = "#FF6B35"
	colorSuccess   = "#04B575"
	colorError     = "#FF4444"
	colorInfo      = "#8A8A8A"
	colorHighlight = "#1A1A2E"
	colorBorder    = "#FFD700"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(colorPrimary)).
			MarginTop(1).
			MarginBottom(1)

	StatusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorSuccess))

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorError))

	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorInfo))

	PunchlineStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color(colorWarm))

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(colorBorder)).
			Padding(0, 1)

	SelectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(colorHighlight)).
			Background(lipgloss.Color(colorPrimary)).
			Padding(0, 1)
)
