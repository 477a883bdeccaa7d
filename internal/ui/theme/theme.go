// Package theme holds the terminal styles used by CLI reports.
package theme

import (
	"image/color"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/examprep/internal/model"
)

// Palette
var (
	Primary   = lipgloss.Color("#2563EB") // Blue
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Warning   = lipgloss.Color("#F59E0B") // Amber
	Success   = lipgloss.Color("#22C55E") // Green
	Error     = lipgloss.Color("#F43F5E") // Rose
	Text      = lipgloss.Color("#F8FAFC") // White
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	Border    = lipgloss.Color("#334155") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Subtitle = lipgloss.NewStyle().
			Foreground(TextDim)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Section = lipgloss.NewStyle().
		Bold(true).
		Foreground(Secondary).
		MarginTop(1)
)

// Layout
var (
	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)

	TableHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(Secondary).
			Padding(0, 1)

	TableCell = lipgloss.NewStyle().
			Foreground(Text).
			Padding(0, 1)
)

// States
var (
	Good = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Bad = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)

	Caution = lipgloss.NewStyle().
		Foreground(Warning)
)

// ScoreColor maps a 0-100 mastery score to a color band.
func ScoreColor(score float64) color.Color {
	switch {
	case score >= 70:
		return Success
	case score >= 40:
		return Warning
	default:
		return Error
	}
}

// LevelStyle styles a gap level.
func LevelStyle(level model.GapLevel) lipgloss.Style {
	switch level {
	case model.GapCritical:
		return Bad
	case model.GapModerate:
		return Caution
	default:
		return Body
	}
}

// PriorityStyle styles an insight priority.
func PriorityStyle(p model.Priority) lipgloss.Style {
	switch p {
	case model.PriorityHigh:
		return Bad
	case model.PriorityMedium:
		return Caution
	default:
		return Hint
	}
}

// TrendGlyph is a one-character trend marker.
func TrendGlyph(t model.Trend) string {
	switch t {
	case model.TrendImproving:
		return Good.Render("↑")
	case model.TrendDeclining:
		return Bad.Render("↓")
	default:
		return Subtitle.Render("→")
	}
}
