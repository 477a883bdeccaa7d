package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"

	"github.com/abhisek/examprep/internal/engine"
	"github.com/abhisek/examprep/internal/model"
	"github.com/abhisek/examprep/internal/ui/components"
	"github.com/abhisek/examprep/internal/ui/theme"
)

const barWidth = 48

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func subtitle(s string) string {
	return theme.Subtitle.Render(s)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.Border)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.TableHeader
			}
			return theme.TableCell
		}).
		Headers(headers...)
}

func renderMasteries(w io.Writer, masteries []model.DomainMastery, domains []model.Domain) {
	fmt.Fprintln(w, theme.Section.Render("Mastery"))
	if len(masteries) == 0 {
		fmt.Fprintln(w, theme.Hint.Render("No answers recorded yet."))
		return
	}
	labelWidth := 0
	for _, m := range masteries {
		if n := len(model.DomainName(domains, m.DomainID)); n > labelWidth {
			labelWidth = n
		}
	}
	for _, m := range masteries {
		bar := components.ScoreBar{
			Label:      model.DomainName(domains, m.DomainID),
			LabelWidth: labelWidth,
			Score:      m.Score,
			Width:      barWidth,
		}
		line := bar.View() + " " + theme.TrendGlyph(m.Trend)
		line += theme.Subtitle.Render(fmt.Sprintf("  %s · %d answers", m.DifficultyTier, m.SampleCount))
		if m.LowConfidence {
			line += theme.Hint.Render("  (low confidence)")
		}
		fmt.Fprintln(w, line)
	}
}

func renderProfile(w io.Writer, p *engine.Profile, domains []model.Domain) {
	fmt.Fprintln(w, theme.Title.Render("Learning profile: "+p.UserID))
	summary := fmt.Sprintf("%d answers · %.0f%% accuracy", p.TotalAnswered, p.Overall.AccuracyRate*100)
	if !p.LastCalculatedAt.IsZero() {
		summary += " · updated " + p.LastCalculatedAt.Local().Format(time.DateTime)
	}
	fmt.Fprintln(w, subtitle(summary))

	renderMasteries(w, p.DomainMasteries, domains)

	if len(p.Trend) > 0 {
		fmt.Fprintln(w, theme.Section.Render("Recent days"))
		t := newTable("Day", "Answered", "Accuracy")
		for _, d := range p.Trend {
			t.Row(d.Date.Format(time.DateOnly), fmt.Sprint(d.Answered), fmt.Sprintf("%.0f%%", d.Accuracy*100))
		}
		fmt.Fprintln(w, t.String())
	}

	fmt.Fprintln(w, theme.Section.Render("Top gaps"))
	renderGaps(w, p.Gaps)

	fmt.Fprintln(w, theme.Section.Render("Insights"))
	renderInsights(w, p.RecentInsights)
}

func renderGaps(w io.Writer, gaps []model.KnowledgeGap) {
	if len(gaps) == 0 {
		fmt.Fprintln(w, theme.Good.Render("No gaps. Every domain is at or above mastery."))
		return
	}
	t := newTable("#", "Domain", "Score", "Level", "Type", "Priority")
	for _, g := range gaps {
		t.Row(
			fmt.Sprint(g.Rank),
			g.DomainName,
			fmt.Sprintf("%.1f", g.Score),
			theme.LevelStyle(g.Level).Render(string(g.Level)),
			strings.ReplaceAll(string(g.GapType), "_", " "),
			fmt.Sprintf("%.0f", g.PriorityScore),
		)
	}
	fmt.Fprintln(w, t.String())
	for _, g := range gaps {
		fmt.Fprintln(w, theme.Hint.Render(fmt.Sprintf("%d. %s", g.Rank, g.Recommendation)))
	}
}

func renderInsights(w io.Writer, list []model.Insight) {
	if len(list) == 0 {
		fmt.Fprintln(w, theme.Hint.Render("No insights yet."))
		return
	}
	for _, in := range list {
		marker := "•"
		if in.IsRead {
			marker = " "
		}
		head := theme.PriorityStyle(in.Priority).Render(fmt.Sprintf("%s [%s] %s", marker, in.Type, in.Title))
		fmt.Fprintln(w, head)
		fmt.Fprintln(w, "    "+theme.Body.Render(in.Message))
		fmt.Fprintln(w, "    "+theme.Hint.Render(in.ID+" · "+in.CreatedAt.Local().Format(time.DateTime)))
	}
}

func renderRecommendation(w io.Writer, rec *engine.Recommendation) {
	if rec.Degraded {
		fmt.Fprintln(w, theme.Caution.Render("Personal data unavailable; showing a random selection."))
	}
	fmt.Fprintln(w, subtitle(fmt.Sprintf("planned gap %d · maintenance %d · stretch %d",
		rec.Allocation.Gap, rec.Allocation.Maintenance, rec.Allocation.Stretch)))

	t := newTable("#", "Question", "Domain", "Difficulty", "Why")
	for i, p := range rec.Questions {
		why := string(p.Category)
		if why == "" {
			why = "-"
		}
		t.Row(fmt.Sprint(i+1), p.Question.ID, p.Question.DomainID, string(p.Question.Difficulty), why)
	}
	fmt.Fprintln(w, t.String())

	if rec.Shortfall > 0 {
		fmt.Fprintln(w, theme.Caution.Render(fmt.Sprintf("%d fewer questions than requested: the bank has no more eligible questions.", rec.Shortfall)))
	}
}

func renderQuestions(w io.Writer, qs []model.Question) {
	t := newTable("#", "Question", "Domain", "Difficulty")
	for i, q := range qs {
		t.Row(fmt.Sprint(i+1), q.ID, q.DomainID, string(q.Difficulty))
	}
	fmt.Fprintln(w, t.String())
}
