// Package report renders the human-readable summary printed after an export.
package report

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"

	"strava-export/internal/export"
)

// minChartPoints is the fewest distances worth plotting
const minChartPoints = 2

// Summary is what gets reported about a finished export
type Summary struct {
	OutputPath string
	Shape      export.Shape
	Stats      export.Stats
	// Distances in km, oldest first. Plotted when Chart is set.
	Distances []float64
	Chart     bool
	RunID     string
}

// TypeCount is one row of the per-type breakdown
type TypeCount struct {
	Type  string
	Count int
}

// SortedTypes orders the per-type counts by count descending, then name
func SortedTypes(byType map[string]int) []TypeCount {
	counts := make([]TypeCount, 0, len(byType))
	for t, n := range byType {
		counts = append(counts, TypeCount{Type: t, Count: n})
	}
	slices.SortFunc(counts, func(a, b TypeCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Type, b.Type)
	})
	return counts
}

// RenderSummary builds the summary block
func RenderSummary(s Summary) string {
	var sections []string

	sections = append(sections, successStyle.Render(fmt.Sprintf("Done! Data saved to %s", s.OutputPath)))
	sections = append(sections, renderTotals(s))

	if len(s.Stats.ByType) > 0 {
		sections = append(sections, renderTypes(s.Stats.ByType))
	}

	if s.Chart && len(s.Distances) >= minChartPoints {
		sections = append(sections, renderChart(s.Distances))
	}

	if s.RunID != "" {
		sections = append(sections, mutedStyle.Render("Archived as run "+s.RunID))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// WriteSummary renders the summary to w
func WriteSummary(w io.Writer, s Summary) error {
	_, err := fmt.Fprintln(w, RenderSummary(s))
	return err
}

func renderTotals(s Summary) string {
	title := titleStyle.Render(fmt.Sprintf("Summary (%s)", s.Shape))

	rows := []string{
		title,
		RenderMetric("Total activities", humanize.Comma(int64(s.Stats.TotalActivities))),
		RenderMetric("Total distance", humanize.Comma(s.Stats.TotalDistance)+" km"),
		RenderMetric("Total time", humanize.Comma(s.Stats.TotalTime)+" hours"),
		RenderMetric("Total elevation", humanize.Comma(s.Stats.TotalElevation)+" m"),
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderTypes(byType map[string]int) string {
	rows := []string{cardTitleStyle.Render("By type")}

	for _, tc := range SortedTypes(byType) {
		rows = append(rows, lipgloss.JoinHorizontal(
			lipgloss.Left,
			metricLabelStyle.Render(tc.Type),
			typeCountStyle.Render(humanize.Comma(int64(tc.Count))),
		))
	}

	return cardStyle.Render(strings.Join(rows, "\n"))
}

func renderChart(distances []float64) string {
	title := cardTitleStyle.Render(fmt.Sprintf("Distance (km) - last %d activities", len(distances)))

	graph := asciigraph.Plot(distances,
		asciigraph.Height(8),
		asciigraph.Width(50),
		asciigraph.Precision(1),
	)

	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, graph))
}
