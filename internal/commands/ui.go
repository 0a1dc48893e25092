package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/huh"

	"github.com/colonyops/tally/internal/core/checklist"
	"github.com/colonyops/tally/internal/core/engine"
	"github.com/colonyops/tally/internal/core/session"
)

// itemAction is what the user chose to do at an item prompt.
type itemAction int

const (
	actionAnswer itemAction = iota
	actionBack
	actionQuit
)

// itemAnswer is the outcome of one interactive item prompt.
type itemAnswer struct {
	Action   itemAction
	Result   session.Result
	Notes    string
	Evidence []string
}

// promptVariables collects values for every declared variable via one form,
// in sorted name order. Values come back loosely typed for vars.Resolve.
func promptVariables(specs map[string]checklist.Variable) (map[string]any, error) {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]string, len(names))
	fields := make([]huh.Field, 0, len(names))
	for i, name := range names {
		spec := specs[name]
		values[i] = spec.Default

		title := spec.Prompt
		if title == "" {
			title = name
		}

		if len(spec.Options) > 0 {
			fields = append(fields, huh.NewSelect[string]().
				Title(title).
				Options(huh.NewOptions(spec.Options...)...).
				Value(&values[i]))
			continue
		}

		input := huh.NewInput().
			Title(title).
			Value(&values[i])
		if spec.Required {
			required := name
			input = input.Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("%s is required", required)
				}
				return nil
			})
		}
		fields = append(fields, input)
	}

	if len(fields) > 0 {
		if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
			return nil, err
		}
	}

	raw := make(map[string]any, len(names))
	for i, name := range names {
		if values[i] != "" {
			raw[name] = values[i]
		}
	}
	return raw, nil
}

// promptItem asks for one item's result and follow-up details.
func promptItem(item engine.ResolvedItem, position, total int, canGoBack bool) (itemAnswer, error) {
	choice := string(session.ResultPass)
	options := []huh.Option[string]{
		huh.NewOption("Pass", string(session.ResultPass)),
		huh.NewOption("Fail", string(session.ResultFail)),
		huh.NewOption("Skip", string(session.ResultSkip)),
		huh.NewOption("Not applicable", string(session.ResultNotApplicable)),
	}
	if canGoBack {
		options = append(options, huh.NewOption("Go back", "back"))
	}
	options = append(options, huh.NewOption("Save and quit", "quit"))

	title := fmt.Sprintf("[%d/%d] %s", position, total, item.DisplayCheck())
	description := describeItem(item)

	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title(title).
			Description(description).
			Options(options...).
			Value(&choice),
	)).Run()
	if err != nil {
		return itemAnswer{}, err
	}

	switch choice {
	case "back":
		return itemAnswer{Action: actionBack}, nil
	case "quit":
		return itemAnswer{Action: actionQuit}, nil
	}

	answer := itemAnswer{Action: actionAnswer, Result: session.Result(choice)}

	needsEvidence := item.Item.EvidenceRequired
	askNotes := answer.Result == session.ResultFail || needsEvidence
	if !askNotes {
		return answer, nil
	}

	var evidence string
	fields := []huh.Field{
		huh.NewText().
			Title("Notes").
			Description("What did you observe?").
			Value(&answer.Notes),
	}
	evidenceField := huh.NewInput().
		Title("Evidence").
		Description("Comma-separated file paths or URLs").
		Value(&evidence)
	if needsEvidence {
		evidenceField = evidenceField.Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("this item requires evidence")
			}
			return nil
		})
	}
	fields = append(fields, evidenceField)

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return itemAnswer{}, err
	}
	answer.Evidence = splitEvidence(evidence)
	return answer, nil
}

func describeItem(item engine.ResolvedItem) string {
	var parts []string
	if item.SectionName != "" {
		parts = append(parts, "Section: "+item.SectionName)
	}
	if item.Item.Severity != "" {
		parts = append(parts, "Severity: "+string(item.Item.Severity))
	}
	if item.Item.Guidance != "" {
		parts = append(parts, renderGuidance(item.Item.Guidance))
	}
	return strings.Join(parts, "\n")
}

// renderGuidance renders item guidance markdown for the terminal. Falls back
// to the raw text when rendering fails.
func renderGuidance(markdown string) string {
	out, err := glamour.Render(markdown, "auto")
	if err != nil {
		return markdown
	}
	return strings.TrimSpace(out)
}

func splitEvidence(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	evidence := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			evidence = append(evidence, trimmed)
		}
	}
	return evidence
}
