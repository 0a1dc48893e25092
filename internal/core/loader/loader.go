// Package loader parses checklist YAML documents and validates them against
// an embedded JSON Schema plus semantic rules the schema cannot express.
//
// Validation problems are data, not errors: Load returns them as Issues so
// callers can print every problem at once. The error return is reserved for
// I/O and loader setup failures.
package loader

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/hay-kot/criterio"
	"github.com/kaptinlin/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/colonyops/tally/internal/core/cache"
	"github.com/colonyops/tally/internal/core/checklist"
)

//go:embed schema.json
var schemaJSON []byte

// Issue is one validation problem in a checklist document.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// Loader compiles the schema once and reuses it across loads.
type Loader struct {
	schema *jsonschema.Schema
	cache  *cache.Cache
}

// New builds a loader. The cache is optional; pass nil to disable caching.
func New(c *cache.Cache) (*Loader, error) {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("compile checklist schema: %w", err)
	}
	return &Loader{schema: schema, cache: c}, nil
}

// Load reads, parses, and validates the checklist at path. A non-empty issue
// slice means the document is unusable; the checklist is nil in that case.
func (l *Loader) Load(path string) (*checklist.Checklist, []Issue, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, nil, err
	}

	var fp cache.Fingerprint
	cacheable := false
	if l.cache != nil {
		if fp, err = cache.FingerprintFile(path, data); err == nil {
			cacheable = true
			if entry, ok := l.cache.ReadChecklistEntry(fp); ok {
				return decodeCacheEntry(entry)
			}
		}
	}

	c, issues, err := l.Parse(data)
	if err != nil {
		return nil, nil, err
	}

	if cacheable {
		l.cache.WriteChecklistEntry(fp, encodeCachePayload(c), toCacheIssues(issues))
	}
	return c, issues, nil
}

// Parse validates a checklist document held in memory.
func (l *Loader) Parse(data []byte) (*checklist.Checklist, []Issue, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, []Issue{{Path: "$", Message: fmt.Sprintf("invalid YAML: %v", err)}}, nil
	}
	if doc == nil {
		return nil, []Issue{{Path: "$", Message: "document is empty"}}, nil
	}

	jsonData, err := json.Marshal(doc)
	if err != nil {
		return nil, []Issue{{Path: "$", Message: fmt.Sprintf("document is not representable as JSON: %v", err)}}, nil
	}

	result := l.schema.ValidateJSON(jsonData)
	if !result.IsValid() {
		return nil, schemaIssues(result), nil
	}

	var c checklist.Checklist
	if err := json.Unmarshal(jsonData, &c); err != nil {
		return nil, nil, fmt.Errorf("decode checklist: %w", err)
	}

	if issues := semanticIssues(&c); len(issues) > 0 {
		return nil, issues, nil
	}
	return &c, nil, nil
}

func schemaIssues(result *jsonschema.EvaluationResult) []Issue {
	issues := make([]Issue, 0, len(result.Errors))
	for keyword, detail := range result.Errors {
		issues = append(issues, Issue{Path: keyword, Message: fmt.Sprintf("%v", detail)})
	}
	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Path != issues[j].Path {
			return issues[i].Path < issues[j].Path
		}
		return issues[i].Message < issues[j].Message
	})
	return issues
}

// semanticIssues enforces the rules the schema cannot: unique item ids
// across the whole document, variable defaults that honor their own options,
// and matrix entries with at least one key.
func semanticIssues(c *checklist.Checklist) []Issue {
	var errs criterio.FieldErrorsBuilder

	seen := map[string]string{}
	for si, section := range c.Sections {
		for ii, item := range section.Items {
			field := fmt.Sprintf("sections[%d].items[%d]", si, ii)
			if prev, dup := seen[item.ID]; dup {
				errs = errs.Append(field+".id",
					fmt.Errorf("duplicate item id %q (already used by %s)", item.ID, prev))
			} else {
				seen[item.ID] = field
			}
			for mi, entry := range item.Matrix {
				if len(entry) == 0 {
					errs = errs.Append(fmt.Sprintf("%s.matrix[%d]", field, mi),
						errors.New("matrix entry must have at least one key"))
				}
			}
		}
	}

	for _, name := range sortedVariableNames(c.Variables) {
		spec := c.Variables[name]
		if spec.Default != "" && len(spec.Options) > 0 && !contains(spec.Options, spec.Default) {
			errs = errs.Append(fmt.Sprintf("variables.%s.default", name),
				fmt.Errorf("default %q is not one of the options", spec.Default))
		}
	}

	return toIssues(errs.ToError())
}

func toIssues(err error) []Issue {
	if err == nil {
		return nil
	}
	var fieldErrs criterio.FieldErrors
	if !errors.As(err, &fieldErrs) {
		return []Issue{{Path: "$", Message: err.Error()}}
	}
	issues := make([]Issue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, Issue{Path: fe.Field, Message: fe.Err.Error()})
	}
	return issues
}

func decodeCacheEntry(entry cache.ChecklistEntry) (*checklist.Checklist, []Issue, error) {
	if len(entry.Issues) > 0 {
		issues := make([]Issue, 0, len(entry.Issues))
		for _, issue := range entry.Issues {
			issues = append(issues, Issue{Path: issue.Path, Message: issue.Message})
		}
		return nil, issues, nil
	}
	var c checklist.Checklist
	if err := json.Unmarshal(entry.Raw, &c); err != nil {
		return nil, nil, fmt.Errorf("decode cached checklist: %w", err)
	}
	return &c, nil, nil
}

func encodeCachePayload(c *checklist.Checklist) json.RawMessage {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil
	}
	return data
}

func toCacheIssues(issues []Issue) []cache.Issue {
	if len(issues) == 0 {
		return nil
	}
	out := make([]cache.Issue, 0, len(issues))
	for _, issue := range issues {
		out = append(out, cache.Issue{Path: issue.Path, Message: issue.Message})
	}
	return out
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read checklist: %w", err)
	}
	return data, nil
}

func contains(options []string, value string) bool {
	for _, option := range options {
		if option == value {
			return true
		}
	}
	return false
}

func sortedVariableNames(specs map[string]checklist.Variable) []string {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
