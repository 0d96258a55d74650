package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rubiojr/cvsearch/pkg/core"
	"github.com/rubiojr/cvsearch/pkg/search"
	"github.com/rubiojr/cvsearch/pkg/storage"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1).
			Margin(0, 0, 1, 0)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")).
			Margin(1, 0, 1, 0)

	resultStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			Margin(0, 0, 1, 2)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	scoreStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("32"))

	failureStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("160"))

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Margin(1, 0)
)

// formatNumber formats a number with K/M suffixes for readability
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	} else if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	} else {
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
}

// formatTime formats a time relative to now or as an absolute date
func formatTime(t time.Time) string {
	now := time.Now()
	diff := now.Sub(t)

	if diff < 24*time.Hour {
		if diff < time.Hour {
			minutes := int(diff.Minutes())
			if minutes < 1 {
				return "just now"
			}
			return fmt.Sprintf("%d minutes ago", minutes)
		}
		return fmt.Sprintf("%d hours ago", int(diff.Hours()))
	}

	if diff < 7*24*time.Hour {
		return fmt.Sprintf("%d days ago", int(diff.Hours()/24))
	}

	if t.Year() == now.Year() {
		return t.Format("Jan 2, 15:04")
	}
	return t.Format("Jan 2, 2006")
}

func renderSearch(w io.Writer, resp *search.Response) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Search: %s", resp.Query)))

	if resp.TotalResults == 0 {
		fmt.Fprintln(w, noDataStyle.Render("No matching documents"))
	}

	for i, r := range resp.Results {
		var b strings.Builder
		fmt.Fprintf(&b, "%d. %s  %s\n", (resp.Page-1)*resp.PerPage+i+1, r.Filename, scoreStyle.Render(fmt.Sprintf("%.2f", r.RelevanceScore)))
		fmt.Fprintf(&b, "%s", metaStyle.Render(fmt.Sprintf("%s · document %d · %d matches", r.CandidateName, r.DocumentID, r.MatchCount)))
		for _, h := range r.Highlights {
			fmt.Fprintf(&b, "\n\n%s", h.Text)
		}
		fmt.Fprintln(w, resultStyle.Render(b.String()))
	}

	fmt.Fprintln(w, metaStyle.Render(fmt.Sprintf("Page %d of %d · %d results in %dms",
		resp.Page, resp.TotalPages, resp.TotalResults, resp.SearchTimeMs)))

	if len(resp.SearchSuggestions) > 0 {
		fmt.Fprintln(w, headerStyle.Render("Related searches"))
		for _, s := range resp.SearchSuggestions {
			fmt.Fprintf(w, "  • %s\n", s)
		}
	}
}

func renderQuick(w io.Writer, query string, results []search.QuickResult) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Quick search: %s", query)))
	if len(results) == 0 {
		fmt.Fprintln(w, noDataStyle.Render("No matching documents"))
		return
	}
	for i, r := range results {
		fmt.Fprintf(w, "%2d. %-32s %-24s %s\n", i+1, r.Filename, r.CandidateName,
			scoreStyle.Render(fmt.Sprintf("%.2f", r.RelevanceScore)))
	}
}

func renderHistory(w io.Writer, entries []core.HistoryEntry) {
	fmt.Fprintln(w, titleStyle.Render("Search history"))
	if len(entries) == 0 {
		fmt.Fprintln(w, noDataStyle.Render("No searches recorded yet"))
		return
	}
	for _, e := range entries {
		line := fmt.Sprintf("%-14s %-40q %4d results %5dms", formatTime(e.SearchedAt), e.Query, e.ResultsCount, e.SearchTimeMs)
		if e.CandidateID != nil {
			line += fmt.Sprintf("  candidate %d", *e.CandidateID)
		}
		if e.SearchType == core.SearchTypeQuick {
			line += "  (quick)"
		}
		if e.Outcome == core.OutcomeFailure {
			line = failureStyle.Render(line + "  failed: " + e.FailureReason)
		}
		fmt.Fprintln(w, line)
	}
}

func renderStatistics(w io.Writer, stats *core.Statistics, db *storage.Stats) {
	fmt.Fprintln(w, titleStyle.Render("📊 Search statistics"))

	if db != nil {
		fmt.Fprintf(w, "Candidates:      %s\n", formatNumber(db.Candidates))
		fmt.Fprintf(w, "Documents:       %s (%s extracted, %s deleted)\n",
			formatNumber(db.Documents), formatNumber(db.ExtractedDocuments), formatNumber(db.DeletedDocuments))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total searches:  %s\n", formatNumber(stats.TotalSearches))
	fmt.Fprintf(w, "Failed searches: %s\n", formatNumber(stats.FailedSearches))
	fmt.Fprintf(w, "Unique queries:  %s\n", formatNumber(stats.UniqueQueries))
	fmt.Fprintf(w, "Average time:    %.2fms\n", stats.AverageSearchTimeMs)

	fmt.Fprintln(w, headerStyle.Render("Popular queries"))
	if len(stats.PopularQueries) == 0 {
		fmt.Fprintln(w, noDataStyle.Render("None yet"))
	}
	for i, q := range stats.PopularQueries {
		fmt.Fprintf(w, "%2d. %-40q %4d searches, %.1f results on average\n", i+1, q.Query, q.UsageCount, q.AvgResults)
	}

	fmt.Fprintln(w, headerStyle.Render("Daily trend"))
	if len(stats.Trends) == 0 {
		fmt.Fprintln(w, noDataStyle.Render("No searches in this period"))
	}
	for _, t := range stats.Trends {
		fmt.Fprintf(w, "%s  %5d searches  %8.1fms\n", t.Date, t.Searches, t.AvgTimeMs)
	}
}
