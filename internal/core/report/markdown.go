package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/colonyops/tally/internal/core/checklist"
	"github.com/colonyops/tally/internal/core/session"
)

// MarkdownReporter renders a human-readable report with one table per
// section.
type MarkdownReporter struct{}

func (r *MarkdownReporter) Generate(c *checklist.Checklist, sess *session.Session) ([]byte, error) {
	rows := BuildRows(c, sess)
	stats := Collect(rows)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n", escapeCell(c.Name))
	fmt.Fprintf(&buf, "- **Checklist:** %s (domain: %s)\n", c.ID(), c.Domain)
	fmt.Fprintf(&buf, "- **Session:** %s\n", sess.ID)
	fmt.Fprintf(&buf, "- **Status:** %s\n", sess.Status)
	fmt.Fprintf(&buf, "- **Started:** %s\n", sess.StartedAt.Format("2006-01-02 15:04 MST"))
	if sess.CompletedAt != nil {
		fmt.Fprintf(&buf, "- **Completed:** %s\n", sess.CompletedAt.Format("2006-01-02 15:04 MST"))
	}
	if len(sess.Variables) > 0 {
		fmt.Fprintf(&buf, "- **Variables:** %s\n", formatVariables(sess.Variables))
	}

	fmt.Fprintf(&buf, "\n## Summary\n\n")
	fmt.Fprintf(&buf, "| Total | Answered | Pass | Fail | Skip | N/A |\n")
	fmt.Fprintf(&buf, "|------:|---------:|-----:|-----:|-----:|----:|\n")
	fmt.Fprintf(&buf, "| %d | %d | %d | %d | %d | %d |\n",
		stats.TotalItems, stats.Answered, stats.Pass, stats.Fail, stats.Skip, stats.NotApplicable)

	for _, sectionRows := range groupBySection(rows) {
		if sectionRows[0].Section != "" {
			fmt.Fprintf(&buf, "\n## %s\n\n", escapeCell(sectionRows[0].Section))
		} else {
			fmt.Fprintf(&buf, "\n## Items\n\n")
		}
		fmt.Fprintf(&buf, "| Check | Severity | Result | Notes |\n")
		fmt.Fprintf(&buf, "|-------|----------|--------|-------|\n")
		for _, row := range sectionRows {
			fmt.Fprintf(&buf, "| %s | %s | %s | %s |\n",
				escapeCell(row.DisplayCheck()),
				escapeCell(string(row.Severity)),
				resultCell(row),
				notesCell(row))
		}
	}

	return buf.Bytes(), nil
}

func (r *MarkdownReporter) Extension() string { return ".md" }

// groupBySection splits rows into consecutive runs sharing a section name,
// preserving run order.
func groupBySection(rows []Row) [][]Row {
	var groups [][]Row
	for _, row := range rows {
		if n := len(groups); n > 0 && groups[n-1][0].Section == row.Section {
			groups[n-1] = append(groups[n-1], row)
			continue
		}
		groups = append(groups, []Row{row})
	}
	return groups
}

func resultCell(row Row) string {
	if !row.Answered() {
		return "unanswered"
	}
	return string(row.Result)
}

func notesCell(row Row) string {
	parts := make([]string, 0, 2)
	if row.Notes != "" {
		parts = append(parts, row.Notes)
	}
	for _, ev := range row.Evidence {
		parts = append(parts, "evidence: "+ev)
	}
	return escapeCell(strings.Join(parts, "; "))
}

// escapeCell keeps arbitrary text from breaking table layout.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

func formatVariables(variables map[string]string) string {
	pairs := make([]string, 0, len(variables))
	for _, key := range sortedVarKeys(variables) {
		pairs = append(pairs, fmt.Sprintf("%s=%s", key, variables[key]))
	}
	return strings.Join(pairs, ", ")
}
