package orchestrator

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/zk/qjunit/internal/metrics"
	"github.com/zk/qjunit/internal/report"
)

var (
	passStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	timeoutStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// displayResult prints the summary line for a written report; callers hold o.mu
func (o *Orchestrator) displayResult(path string, result *report.SourceResult) {
	_, _ = fmt.Fprintln(o.out, formatSummary(path, result))
}

// formatSummary renders "STATUS path (N suites, N tests, N failures, N errors)"
func formatSummary(path string, result *report.SourceResult) string {
	tests, failures, errors := result.Counts()
	counts := fmt.Sprintf("(%s, %s, %s, %s)",
		plural(len(result.Modules), "suite"),
		plural(tests, "test"),
		plural(failures, "failure"),
		plural(errors, "error"))

	return fmt.Sprintf("%s %s %s", statusLabel(result), path, mutedStyle.Render(counts))
}

func statusLabel(result *report.SourceResult) string {
	switch metrics.Outcome(result) {
	case metrics.OutcomeTimeout:
		return timeoutStyle.Render("TIMEOUT")
	case metrics.OutcomeFailed:
		return failStyle.Render("FAIL")
	default:
		return passStyle.Render("PASS")
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
