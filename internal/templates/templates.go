// Package templates bundles starter checklists for `tally init`.
package templates

import (
	"embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed checklists/*.yaml
var files embed.FS

// Keys returns the available template keys, sorted.
func Keys() []string {
	entries, err := files.ReadDir("checklists")
	if err != nil {
		return nil
	}
	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		keys = append(keys, strings.TrimSuffix(entry.Name(), ".yaml"))
	}
	sort.Strings(keys)
	return keys
}

// Read returns the raw YAML for a template key.
func Read(key string) ([]byte, error) {
	data, err := files.ReadFile("checklists/" + key + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown template %q (available: %s)", key, strings.Join(Keys(), ", "))
	}
	return data, nil
}

// Filename returns the suggested output file name for a template key.
func Filename(key string) string {
	return key + ".yaml"
}
