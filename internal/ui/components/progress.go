package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/examprep/internal/ui/theme"
)

// ScoreBar is a horizontal bar for a 0-100 mastery score.
type ScoreBar struct {
	Label      string
	LabelWidth int
	Score      float64
	Width      int
}

// View renders the bar with the label padded to LabelWidth.
func (b ScoreBar) View() string {
	var out string
	if b.Label != "" {
		out = lipgloss.NewStyle().
			Foreground(theme.Text).
			Width(b.LabelWidth).
			Render(b.Label) + " "
	}

	barWidth := b.Width - lipgloss.Width(out) - 6
	if barWidth < 4 {
		barWidth = 4
	}
	filled := int(float64(barWidth) * b.Score / 100)
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}

	out += lipgloss.NewStyle().
		Foreground(theme.ScoreColor(b.Score)).
		Render(strings.Repeat("█", filled))
	out += lipgloss.NewStyle().
		Foreground(theme.Border).
		Render(strings.Repeat("░", barWidth-filled))
	out += theme.Subtitle.Render(fmt.Sprintf(" %5.1f", b.Score))
	return out
}
