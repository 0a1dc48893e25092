// Package jsonfile persists sessions as JSON files in the output directory.
//
// Layout: one session-<id>.json per session plus a session-index.json that
// caches listing metadata. The index is purely an accelerator: when it is
// missing or unreadable the store rebuilds it by scanning session files.
package jsonfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/colonyops/tally/internal/core/session"
)

const indexFilename = "session-index.json"

var sessionIDPattern = regexp.MustCompile(`^[a-f0-9]{32}$`)

// indexEntry is one row of the cached session index.
type indexEntry struct {
	ID          string         `json:"id"`
	ChecklistID string         `json:"checklist_id"`
	Status      session.Status `json:"status"`
	StartedAt   time.Time      `json:"started_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// SessionStore implements session persistence over a directory of JSON files.
type SessionStore struct {
	baseDir string
	mu      sync.RWMutex
}

// NewSessionStore creates a store rooted at baseDir, creating it if needed.
func NewSessionStore(baseDir string) (*SessionStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &SessionStore{baseDir: baseDir}, nil
}

// Dir returns the directory sessions are stored in.
func (s *SessionStore) Dir() string {
	return s.baseDir
}

func (s *SessionStore) pathFor(sessionID string) (string, error) {
	if !sessionIDPattern.MatchString(sessionID) {
		return "", fmt.Errorf("invalid session id %q", sessionID)
	}
	return filepath.Join(s.baseDir, "session-"+sessionID+".json"), nil
}

// Save writes the session atomically and refreshes the index.
// Returns the path written to.
func (s *SessionStore) Save(sess *session.Session) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.pathFor(sess.ID)
	if err != nil {
		return "", err
	}
	data, err := session.Encode(sess)
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	if err := atomicWrite(path, data); err != nil {
		return "", fmt.Errorf("write session: %w", err)
	}

	entries := s.loadIndexOrScan()
	entries[sess.ID] = indexEntry{
		ID:          sess.ID,
		ChecklistID: sess.ChecklistID,
		Status:      sess.Status,
		StartedAt:   sess.StartedAt,
		UpdatedAt:   time.Now().UTC(),
	}
	// Index write failures are not fatal; the scan fallback recovers.
	_ = s.saveIndex(entries)

	return path, nil
}

// Load returns the session with the given id, or nil when it does not exist
// or cannot be read. Callers that need loud failures use LoadFromPath.
func (s *SessionStore) Load(sessionID string) *session.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path, err := s.pathFor(sessionID)
	if err != nil {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	sess, err := session.Decode(data)
	if err != nil {
		return nil
	}
	return sess
}

// LoadFromPath reads a session from an explicit file path. Unlike Load it
// fails loudly: the caller named the file, so problems must surface.
func (s *SessionStore) LoadFromPath(path string) (*session.Session, error) {
	name := filepath.Base(path)
	if !strings.HasPrefix(name, "session-") || !strings.EqualFold(filepath.Ext(name), ".json") {
		return nil, fmt.Errorf("session file name must be session-<id>.json, got %q", name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	sess, err := session.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("parse session file %q: %w", path, err)
	}
	return sess, nil
}

// List returns summaries for every session of the given checklist,
// newest first.
func (s *SessionStore) List(checklistID string) []session.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.loadIndexOrScan()
	var summaries []session.Summary
	for _, entry := range entries {
		if entry.ChecklistID != checklistID {
			continue
		}
		summaries = append(summaries, session.Summary{
			ID:          entry.ID,
			ChecklistID: entry.ChecklistID,
			StartedAt:   entry.StartedAt,
			Status:      entry.Status,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StartedAt.After(summaries[j].StartedAt)
	})
	return summaries
}

// FindLatestInProgress returns the most recently updated in-progress session
// for the checklist, or nil when none exists.
func (s *SessionStore) FindLatestInProgress(checklistID string) *session.Session {
	s.mu.RLock()
	candidates := make([]indexEntry, 0)
	for _, entry := range s.loadIndexOrScan() {
		if entry.ChecklistID == checklistID && entry.Status == session.StatusInProgress {
			candidates = append(candidates, entry)
		}
	}
	s.mu.RUnlock()

	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].UpdatedAt.After(candidates[j].UpdatedAt)
	})
	return s.Load(candidates[0].ID)
}

// loadIndexOrScan reads the index file, rebuilding it from session files
// when the index is missing or unusable. Callers hold the lock.
func (s *SessionStore) loadIndexOrScan() map[string]indexEntry {
	data, err := os.ReadFile(filepath.Join(s.baseDir, indexFilename))
	if err == nil {
		var entries []indexEntry
		if err := json.Unmarshal(data, &entries); err == nil {
			index := make(map[string]indexEntry, len(entries))
			for _, entry := range entries {
				index[entry.ID] = entry
			}
			return index
		}
	}
	return s.scanSessions()
}

// scanSessions rebuilds index entries by reading every session file.
// Unreadable files are skipped.
func (s *SessionStore) scanSessions() map[string]indexEntry {
	index := make(map[string]indexEntry)
	matches, err := filepath.Glob(filepath.Join(s.baseDir, "session-*.json"))
	if err != nil {
		return index
	}
	for _, path := range matches {
		if filepath.Base(path) == indexFilename {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		sess, err := session.Decode(data)
		if err != nil || sess.ID == "" {
			continue
		}
		updated := time.Now().UTC()
		if info, err := os.Stat(path); err == nil {
			updated = info.ModTime().UTC()
		}
		index[sess.ID] = indexEntry{
			ID:          sess.ID,
			ChecklistID: sess.ChecklistID,
			Status:      sess.Status,
			StartedAt:   sess.StartedAt,
			UpdatedAt:   updated,
		}
	}
	return index
}

func (s *SessionStore) saveIndex(index map[string]indexEntry) error {
	entries := make([]indexEntry, 0, len(index))
	for _, entry := range index {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(filepath.Join(s.baseDir, indexFilename), data)
}

// atomicWrite writes data via a temp file and rename so readers never see a
// partial file.
func atomicWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
