package report

import (
	"encoding/json"
	"time"

	"github.com/colonyops/tally/internal/core/checklist"
	"github.com/colonyops/tally/internal/core/session"
)

// JSONReporter renders the machine-readable report document.
type JSONReporter struct{}

type jsonDocument struct {
	GeneratedAt   time.Time         `json:"generated_at"`
	ChecklistID   string            `json:"checklist_id"`
	ChecklistName string            `json:"checklist_name"`
	Domain        string            `json:"domain"`
	SessionID     string            `json:"session_id"`
	Status        session.Status    `json:"status"`
	StartedAt     time.Time         `json:"started_at"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
	Variables     map[string]string `json:"variables,omitempty"`
	Stats         Stats             `json:"stats"`
	Rows          []Row             `json:"items"`
}

func (r *JSONReporter) Generate(c *checklist.Checklist, sess *session.Session) ([]byte, error) {
	rows := BuildRows(c, sess)
	doc := jsonDocument{
		GeneratedAt:   time.Now().UTC(),
		ChecklistID:   c.ID(),
		ChecklistName: c.Name,
		Domain:        c.Domain,
		SessionID:     sess.ID,
		Status:        sess.Status,
		StartedAt:     sess.StartedAt,
		CompletedAt:   sess.CompletedAt,
		Variables:     sess.Variables,
		Stats:         Collect(rows),
		Rows:          rows,
	}
	return json.MarshalIndent(doc, "", "  ")
}

func (r *JSONReporter) Extension() string { return ".json" }
