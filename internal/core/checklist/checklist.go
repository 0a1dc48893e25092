// Package checklist defines the validated checklist document model.
//
// A Checklist is produced once by the loader and read-only afterwards.
// Everything downstream (expansion, digests, reports) treats it as an
// immutable value.
package checklist

import (
	"regexp"
	"strings"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts a name to a URL-safe slug.
// "Web Release Checklist" -> "web-release-checklist"
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "checklist"
	}
	return s
}

// Severity classifies how serious a failed check is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Variable is a prompt specification for a runtime variable.
type Variable struct {
	Prompt   string   `json:"prompt" yaml:"prompt"`
	Required bool     `json:"required" yaml:"required"`
	Options  []string `json:"options,omitempty" yaml:"options,omitempty"`
	Default  string   `json:"default,omitempty" yaml:"default,omitempty"`
}

// Metadata carries free-form descriptive fields.
type Metadata struct {
	Author        string   `json:"author,omitempty" yaml:"author,omitempty"`
	Tags          []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	EstimatedTime string   `json:"estimated_time,omitempty" yaml:"estimated_time,omitempty"`
}

// Item is a single check definition. An item with a matrix expands into
// one resolved slot per matrix entry.
type Item struct {
	ID               string              `json:"id" yaml:"id"`
	Check            string              `json:"check" yaml:"check"`
	Severity         Severity            `json:"severity" yaml:"severity"`
	Guidance         string              `json:"guidance,omitempty" yaml:"guidance,omitempty"`
	EvidenceRequired bool                `json:"evidence_required" yaml:"evidence_required"`
	Condition        string              `json:"condition,omitempty" yaml:"condition,omitempty"`
	Matrix           []map[string]string `json:"matrix,omitempty" yaml:"matrix,omitempty"`
}

// Section groups items under a name with an optional gating condition.
type Section struct {
	Name      string `json:"name" yaml:"name"`
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
	Items     []Item `json:"items" yaml:"items"`
}

// Checklist is the full validated document.
type Checklist struct {
	Name      string              `json:"name" yaml:"name"`
	Version   string              `json:"version" yaml:"version"`
	Domain    string              `json:"domain" yaml:"domain"`
	Metadata  Metadata            `json:"metadata" yaml:"metadata"`
	Variables map[string]Variable `json:"variables,omitempty" yaml:"variables,omitempty"`
	Sections  []Section           `json:"sections" yaml:"sections"`

	// digest caches the content hash. Checklists are immutable after
	// load, so the first computed value stays valid.
	digest string
}

// ID derives the checklist identifier from name and version.
func (c *Checklist) ID() string {
	return Slugify(c.Name) + "-" + c.Version
}

// ItemsByID indexes every item in the document by id.
func (c *Checklist) ItemsByID() map[string]Item {
	index := make(map[string]Item)
	for _, section := range c.Sections {
		for _, item := range section.Items {
			index[item.ID] = item
		}
	}
	return index
}
