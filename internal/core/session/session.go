// Package session defines the persisted session and response models.
package session

import (
	"encoding/json"
	"time"
)

// Status represents the lifecycle state of a session.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Result is the outcome recorded for a single checklist item.
type Result string

const (
	ResultPass          Result = "pass"
	ResultFail          Result = "fail"
	ResultSkip          Result = "skip"
	ResultNotApplicable Result = "na"
)

// Results lists every result in display order.
func Results() []Result {
	return []Result{ResultPass, ResultFail, ResultSkip, ResultNotApplicable}
}

// ParseResult maps user input to a Result. Unknown or empty input
// falls back to skip, matching batch-mode defaults for unanswered items.
func ParseResult(value string) Result {
	switch value {
	case "pass", "p":
		return ResultPass
	case "fail", "f":
		return ResultFail
	case "skip", "s":
		return ResultSkip
	case "na", "n", "not_applicable", "not-applicable":
		return ResultNotApplicable
	default:
		return ResultSkip
	}
}

// Response is a single recorded answer. Responses are immutable once
// appended; going back removes the tail entry entirely rather than
// editing it in place.
type Response struct {
	ItemID        string            `json:"item_id"`
	Result        Result            `json:"result"`
	AnsweredAt    time.Time         `json:"answered_at"`
	Notes         string            `json:"notes,omitempty"`
	Evidence      []string          `json:"evidence,omitempty"`
	MatrixContext map[string]string `json:"matrix_context,omitempty"`
}

// Session is one run through a checklist's expanded items.
//
// The struct is intentionally mutable: responses accumulate in place during
// execution and status/completed_at flip on completion. The engine wraps it
// in immutable EngineState values that share this object by pointer, so the
// response list is never deep-copied per step.
type Session struct {
	ID              string            `json:"id"`
	ChecklistID     string            `json:"checklist_id"`
	ChecklistPath   string            `json:"checklist_path,omitempty"`
	ChecklistDigest string            `json:"checklist_digest,omitempty"`
	StartedAt       time.Time         `json:"started_at"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
	Status          Status            `json:"status"`
	Variables       map[string]string `json:"variables,omitempty"`
	Responses       []Response        `json:"responses"`
}

// Summary is the listing view of a session.
type Summary struct {
	ID          string    `json:"id"`
	ChecklistID string    `json:"checklist_id"`
	StartedAt   time.Time `json:"started_at"`
	Status      Status    `json:"status"`
}

// Append adds a response to the tail of the response list.
func (s *Session) Append(r Response) {
	s.Responses = append(s.Responses, r)
}

// PopResponse removes and returns the most recent response.
// Returns false when no responses have been recorded.
func (s *Session) PopResponse() (Response, bool) {
	if len(s.Responses) == 0 {
		return Response{}, false
	}
	last := s.Responses[len(s.Responses)-1]
	s.Responses = s.Responses[:len(s.Responses)-1]
	return last, true
}

// MarkCompleted transitions the session to the completed state.
// Completion does not require every item to be answered.
func (s *Session) MarkCompleted(now time.Time) {
	s.CompletedAt = &now
	s.Status = StatusCompleted
}

// Encode serializes the session to its on-disk JSON form.
func Encode(s *Session) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// Decode parses a session from its on-disk JSON form.
func Decode(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
