// Package cache memoizes parsed checklists and expansion results on disk.
//
// Entries are content-addressed: checklist entries key on a file fingerprint
// (path, size, mtime, content hash) and expansion entries key on the
// checklist digest combined with a digest of the resolved variables. The
// cache is never a source of truth — a stale, missing, or unreadable entry
// is a miss, and write failures are swallowed.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/colonyops/tally/internal/core/checklist"
	"github.com/colonyops/tally/internal/core/engine"
	"github.com/colonyops/tally/internal/core/vars"
)

// Version tags cache entries; bump it when entry layout changes so old
// entries read as misses instead of decoding wrong.
const Version = 1

// Issue mirrors a loader validation issue in cached form.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Fingerprint identifies one checklist file's exact content and location.
type Fingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
	SHA256  string
}

// Signature collapses the fingerprint into a single cache key.
func (f Fingerprint) Signature() string {
	payload := fmt.Sprintf("%s|%d|%d|%s", f.Path, f.Size, f.ModTime.UnixNano(), f.SHA256)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// FingerprintFile builds a fingerprint for a checklist file whose content
// has already been read.
func FingerprintFile(path string, data []byte) (Fingerprint, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Fingerprint{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return Fingerprint{}, err
	}
	sum := sha256.Sum256(data)
	return Fingerprint{
		Path:    abs,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		SHA256:  hex.EncodeToString(sum[:]),
	}, nil
}

// ChecklistEntry caches a parsed checklist document or its validation
// failures.
type ChecklistEntry struct {
	CacheVersion int             `json:"cache_version"`
	Raw          json.RawMessage `json:"raw,omitempty"`
	Issues       []Issue         `json:"issues"`
	CreatedAt    time.Time       `json:"created_at"`
}

type expansionItem struct {
	SectionName   string            `json:"section_name"`
	ItemID        string            `json:"item_id"`
	MatrixContext map[string]string `json:"matrix_context,omitempty"`
	HasMatrix     bool              `json:"has_matrix"`
}

type expansionEntry struct {
	CacheVersion int             `json:"cache_version"`
	Items        []expansionItem `json:"items"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Cache is the on-disk cache rooted at a directory.
type Cache struct {
	dir           string
	checklistsDir string
	expansionsDir string
}

// DefaultDir returns the cache location under the user cache directory,
// honoring TALLY_CACHE_DIR as an override.
func DefaultDir() string {
	if override := os.Getenv("TALLY_CACHE_DIR"); override != "" {
		return override
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(".", ".tally-cache")
	}
	return filepath.Join(base, "tally")
}

// New creates the cache directories under dir.
func New(dir string) (*Cache, error) {
	c := &Cache{
		dir:           dir,
		checklistsDir: filepath.Join(dir, "checklists"),
		expansionsDir: filepath.Join(dir, "expansions"),
	}
	for _, sub := range []string{c.checklistsDir, c.expansionsDir} {
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	return c, nil
}

// Dir returns the cache root directory.
func (c *Cache) Dir() string {
	return c.dir
}

// ReadChecklistEntry returns the cached entry for a fingerprint, or false
// on any miss.
func (c *Cache) ReadChecklistEntry(fp Fingerprint) (ChecklistEntry, bool) {
	path := filepath.Join(c.checklistsDir, fp.Signature()+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return ChecklistEntry{}, false
	}
	var entry ChecklistEntry
	if err := json.Unmarshal(data, &entry); err != nil || entry.CacheVersion != Version {
		return ChecklistEntry{}, false
	}
	return entry, true
}

// WriteChecklistEntry stores a parsed document (raw nil when validation
// failed) and its issues.
func (c *Cache) WriteChecklistEntry(fp Fingerprint, raw json.RawMessage, issues []Issue) {
	entry := ChecklistEntry{
		CacheVersion: Version,
		Raw:          raw,
		Issues:       issues,
		CreatedAt:    time.Now().UTC(),
	}
	if issues == nil {
		entry.Issues = []Issue{}
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_ = os.WriteFile(filepath.Join(c.checklistsDir, fp.Signature()+".json"), data, 0o644)
}

func expansionSignature(c *checklist.Checklist, variables vars.Vars) (string, error) {
	digest, err := c.Digest()
	if err != nil {
		return "", err
	}
	varsPayload, err := json.Marshal(variables.Strings())
	if err != nil {
		return "", err
	}
	varsSum := sha256.Sum256(varsPayload)
	sum := sha256.Sum256([]byte(digest + "|" + hex.EncodeToString(varsSum[:])))
	return hex.EncodeToString(sum[:]), nil
}

// ReadExpansion rebuilds a cached expansion against the current checklist.
// Any cached item id no longer present in the checklist invalidates the
// whole entry.
func (c *Cache) ReadExpansion(cl *checklist.Checklist, variables vars.Vars) ([]engine.ResolvedItem, bool) {
	signature, err := expansionSignature(cl, variables)
	if err != nil {
		return nil, false
	}
	data, err := os.ReadFile(filepath.Join(c.expansionsDir, signature+".json"))
	if err != nil {
		return nil, false
	}
	var entry expansionEntry
	if err := json.Unmarshal(data, &entry); err != nil || entry.CacheVersion != Version {
		return nil, false
	}

	index := cl.ItemsByID()
	resolved := make([]engine.ResolvedItem, 0, len(entry.Items))
	for _, cached := range entry.Items {
		item, ok := index[cached.ItemID]
		if !ok {
			return nil, false
		}
		ctx := cached.MatrixContext
		if cached.HasMatrix && ctx == nil {
			ctx = map[string]string{}
		}
		resolved = append(resolved, engine.ResolvedItem{
			SectionName:   cached.SectionName,
			Item:          item,
			MatrixContext: ctx,
		})
	}
	return resolved, true
}

// WriteExpansion stores an expansion result.
func (c *Cache) WriteExpansion(cl *checklist.Checklist, variables vars.Vars, items []engine.ResolvedItem) {
	signature, err := expansionSignature(cl, variables)
	if err != nil {
		return
	}
	entry := expansionEntry{
		CacheVersion: Version,
		Items:        make([]expansionItem, 0, len(items)),
		CreatedAt:    time.Now().UTC(),
	}
	for _, item := range items {
		entry.Items = append(entry.Items, expansionItem{
			SectionName:   item.SectionName,
			ItemID:        item.Item.ID,
			MatrixContext: item.MatrixContext,
			HasMatrix:     item.MatrixContext != nil,
		})
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_ = os.WriteFile(filepath.Join(c.expansionsDir, signature+".json"), data, 0o644)
}

// Stats summarizes cache contents.
type Stats struct {
	ChecklistEntries int
	ExpansionEntries int
	TotalBytes       int64
}

func (c *Cache) entryPaths() []string {
	matches, err := doublestar.FilepathGlob(filepath.Join(c.dir, "*", "*.json"))
	if err != nil {
		return nil
	}
	return matches
}

// Stats counts entries and bytes across both entry kinds.
func (c *Cache) Stats() Stats {
	stats := Stats{}
	for _, path := range c.entryPaths() {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		stats.TotalBytes += info.Size()
		switch filepath.Base(filepath.Dir(path)) {
		case "checklists":
			stats.ChecklistEntries++
		case "expansions":
			stats.ExpansionEntries++
		}
	}
	return stats
}

// Clean removes every cache entry.
func (c *Cache) Clean() {
	for _, path := range c.entryPaths() {
		_ = os.Remove(path)
	}
}

// Prune removes entries older than maxAge.
func (c *Cache) Prune(maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)
	for _, path := range c.entryPaths() {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(path)
		}
	}
}
