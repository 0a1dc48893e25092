package commands

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/colonyops/tally/internal/core/engine"
	"github.com/colonyops/tally/internal/core/session"
)

// answerSpec is one entry in an answers file. It accepts either a bare
// result string ("smoke-1: pass") or a mapping with notes and evidence.
type answerSpec struct {
	Result   string   `yaml:"result"`
	Notes    string   `yaml:"notes"`
	Evidence []string `yaml:"evidence"`
}

func (a *answerSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		a.Result = value.Value
		return nil
	}
	type plain answerSpec
	return value.Decode((*plain)(a))
}

// answerFile maps item keys to answers. Keys are item ids; a matrix slot can
// be targeted precisely with "id@key=value" (multi-key contexts join sorted
// pairs with ';').
type answerFile map[string]answerSpec

// resolvedAnswer is the answer applied to one expansion slot.
type resolvedAnswer struct {
	Result   session.Result
	Notes    string
	Evidence []string
}

// loadAnswers reads the answers file. An empty path yields an empty set, so
// every item falls back to skip.
func loadAnswers(path string) (answerFile, error) {
	if path == "" {
		return answerFile{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read answers file: %w", err)
	}
	var answers answerFile
	if err := yaml.Unmarshal(data, &answers); err != nil {
		return nil, fmt.Errorf("parse answers file: %w", err)
	}
	if answers == nil {
		answers = answerFile{}
	}
	return answers, nil
}

// lookup finds the answer for a slot: the matrix-specific key wins over the
// bare item id, and a missing entry defaults to skip.
func (f answerFile) lookup(item engine.ResolvedItem) resolvedAnswer {
	if len(item.MatrixContext) > 0 {
		if spec, ok := f[item.Item.ID+"@"+engine.MatrixKey(item.MatrixContext)]; ok {
			return spec.resolve()
		}
	}
	if spec, ok := f[item.Item.ID]; ok {
		return spec.resolve()
	}
	return resolvedAnswer{Result: session.ResultSkip}
}

func (a answerSpec) resolve() resolvedAnswer {
	return resolvedAnswer{
		Result:   session.ParseResult(a.Result),
		Notes:    a.Notes,
		Evidence: a.Evidence,
	}
}
