package engine

import (
	"fmt"

	"github.com/colonyops/tally/internal/core/checklist"
	"github.com/colonyops/tally/internal/core/session"
)

// ValidateSessionDigest recomputes the checklist digest and compares it to
// the one stored on the session. A stored digest that differs fails with
// ErrChecklistMismatch. A session with no digest yet passes: it is treated
// as not yet bound. The computed digest is returned either way.
func ValidateSessionDigest(s *session.Session, c *checklist.Checklist) (string, error) {
	digest, err := c.Digest()
	if err != nil {
		return "", err
	}
	if s.ChecklistDigest != "" && s.ChecklistDigest != digest {
		return "", fmt.Errorf("%w: stored %.12s, current %.12s",
			ErrChecklistMismatch, s.ChecklistDigest, digest)
	}
	return digest, nil
}

// EnsureSessionDigest binds the session to the checklist's digest if it has
// none yet (first-write-wins; covers sessions created before digest
// tracking). Reports whether a write happened so callers know to persist.
func EnsureSessionDigest(s *session.Session, c *checklist.Checklist) (bool, error) {
	digest, err := c.Digest()
	if err != nil {
		return false, err
	}
	if s.ChecklistDigest == "" {
		s.ChecklistDigest = digest
		return true, nil
	}
	return false, nil
}
