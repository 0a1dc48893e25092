// Package report renders completed (or in-flight) sessions into shareable
// documents. Three formats share one row model: json, markdown, and html.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/colonyops/tally/internal/core/checklist"
	"github.com/colonyops/tally/internal/core/engine"
	"github.com/colonyops/tally/internal/core/session"
	"github.com/colonyops/tally/internal/core/vars"
)

// Reporter renders a session against its checklist.
type Reporter interface {
	Generate(c *checklist.Checklist, sess *session.Session) ([]byte, error)
	Extension() string
}

// ForFormat returns the reporter for a format name.
func ForFormat(format string) (Reporter, error) {
	switch format {
	case "json":
		return &JSONReporter{}, nil
	case "markdown", "md":
		return &MarkdownReporter{}, nil
	case "html":
		return &HTMLReporter{}, nil
	default:
		return nil, fmt.Errorf("unknown report format %q (expected json, markdown, or html)", format)
	}
}

// Stats aggregates response outcomes for a session.
type Stats struct {
	TotalItems    int `json:"total_items"`
	Answered      int `json:"answered"`
	Pass          int `json:"pass"`
	Fail          int `json:"fail"`
	Skip          int `json:"skip"`
	NotApplicable int `json:"na"`
}

// PassRate is the share of answered items that passed, 0 when nothing was
// answered.
func (s Stats) PassRate() float64 {
	if s.Answered == 0 {
		return 0
	}
	return float64(s.Pass) / float64(s.Answered)
}

// Row is one line of a report: a recorded response joined with the checklist
// item it answered.
type Row struct {
	Section       string             `json:"section,omitempty"`
	ItemID        string             `json:"item_id"`
	Check         string             `json:"check"`
	Severity      checklist.Severity `json:"severity,omitempty"`
	MatrixContext map[string]string  `json:"matrix_context,omitempty"`
	Result        session.Result     `json:"result,omitempty"`
	Notes         string             `json:"notes,omitempty"`
	Evidence      []string           `json:"evidence,omitempty"`
	AnsweredAt    time.Time          `json:"answered_at,omitempty"`
}

// DisplayCheck renders the check text with matrix context appended, matching
// how the item was shown during the run.
func (r Row) DisplayCheck() string {
	return engine.ResolvedItem{
		Item:          checklist.Item{Check: r.Check},
		MatrixContext: r.MatrixContext,
	}.DisplayCheck()
}

// Answered reports whether this row carries a recorded response.
func (r Row) Answered() bool {
	return r.Result != ""
}

// Collect computes response statistics. TotalItems comes from the row count,
// which reflects the session's actual expansion when available.
func Collect(rows []Row) Stats {
	stats := Stats{TotalItems: len(rows)}
	for _, row := range rows {
		if !row.Answered() {
			continue
		}
		stats.Answered++
		switch row.Result {
		case session.ResultPass:
			stats.Pass++
		case session.ResultFail:
			stats.Fail++
		case session.ResultSkip:
			stats.Skip++
		case session.ResultNotApplicable:
			stats.NotApplicable++
		}
	}
	return stats
}

// BuildRows joins responses with their checklist items. It re-expands the
// checklist with the session's frozen variables to recover section names and
// unanswered items in run order; when the expansion no longer lines up with
// the responses (the file changed since the run), rows fall back to the
// stored response data joined by item id.
func BuildRows(c *checklist.Checklist, sess *session.Session) []Row {
	items, err := engine.Expand(c, vars.FromStrings(sess.Variables))
	if err == nil && aligned(items, sess.Responses) {
		rows := make([]Row, 0, len(items))
		for i, item := range items {
			row := Row{
				Section:       item.SectionName,
				ItemID:        item.Item.ID,
				Check:         item.Item.Check,
				Severity:      item.Item.Severity,
				MatrixContext: item.MatrixContext,
			}
			if i < len(sess.Responses) {
				resp := sess.Responses[i]
				row.Result = resp.Result
				row.Notes = resp.Notes
				row.Evidence = resp.Evidence
				row.AnsweredAt = resp.AnsweredAt
			}
			rows = append(rows, row)
		}
		return rows
	}
	return fallbackRows(c, sess)
}

// aligned reports whether each response still answers the item at its
// position in the expansion.
func aligned(items []engine.ResolvedItem, responses []session.Response) bool {
	if len(responses) > len(items) {
		return false
	}
	for i, resp := range responses {
		itemID, matrixKey := items[i].Key()
		if resp.ItemID != itemID || engine.MatrixKey(resp.MatrixContext) != matrixKey {
			return false
		}
	}
	return true
}

func sortedVarKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func fallbackRows(c *checklist.Checklist, sess *session.Session) []Row {
	index := c.ItemsByID()
	rows := make([]Row, 0, len(sess.Responses))
	for _, resp := range sess.Responses {
		row := Row{
			ItemID:        resp.ItemID,
			Check:         resp.ItemID,
			MatrixContext: resp.MatrixContext,
			Result:        resp.Result,
			Notes:         resp.Notes,
			Evidence:      resp.Evidence,
			AnsweredAt:    resp.AnsweredAt,
		}
		if item, ok := index[resp.ItemID]; ok {
			row.Check = item.Check
			row.Severity = item.Severity
		}
		rows = append(rows, row)
	}
	return rows
}
