package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/colonyops/tally/internal/core/checklist"
	"github.com/colonyops/tally/internal/core/condition"
	"github.com/colonyops/tally/internal/core/vars"
)

// ResolvedItem is one concrete answerable slot: an item from a kept section,
// optionally combined with one matrix entry. Resolved items are derived
// fresh by Expand and never persisted as a source of truth.
type ResolvedItem struct {
	SectionName   string
	Item          checklist.Item
	MatrixContext map[string]string // nil for non-matrix items
}

// DisplayCheck renders the check text with its matrix context appended.
func (r ResolvedItem) DisplayCheck() string {
	if len(r.MatrixContext) == 0 {
		return r.Item.Check
	}
	pairs := make([]string, 0, len(r.MatrixContext))
	for _, key := range sortedKeys(r.MatrixContext) {
		pairs = append(pairs, key+"="+r.MatrixContext[key])
	}
	return fmt.Sprintf("%s (%s)", r.Item.Check, strings.Join(pairs, ", "))
}

// Key identifies this slot for positional matching against responses.
func (r ResolvedItem) Key() (string, string) {
	return r.Item.ID, MatrixKey(r.MatrixContext)
}

// matrixKeyNone is the sentinel for "no matrix context". It cannot collide
// with a real context: every non-empty context key contains '='.
const matrixKeyNone = "-"

// MatrixKey normalizes a matrix context into an order-independent string:
// {a:1, b:2} and {b:2, a:1} produce the same key. A nil context maps to a
// sentinel distinct from the empty context.
func MatrixKey(ctx map[string]string) string {
	if ctx == nil {
		return matrixKeyNone
	}
	pairs := make([]string, 0, len(ctx))
	for _, key := range sortedKeys(ctx) {
		pairs = append(pairs, key+"="+ctx[key])
	}
	return strings.Join(pairs, ";")
}

// Expand resolves a checklist plus variables into the ordered item sequence.
//
// It is a pure function of its inputs: sections in document order, a false
// section condition drops the section and all its items, a false item
// condition drops the item before any matrix fan-out, and matrix entries
// emit one slot each in list order. Evaluator errors abort the whole
// expansion; a checklist with an unresolvable condition has no valid
// expansion at all.
func Expand(c *checklist.Checklist, variables vars.Vars) ([]ResolvedItem, error) {
	condVars := variables.Condition()
	var resolved []ResolvedItem

	for _, section := range c.Sections {
		keep, err := condition.Evaluate(section.Condition, condVars)
		if err != nil {
			return nil, fmt.Errorf("section %q: %w", section.Name, err)
		}
		if !keep {
			continue
		}

		for _, item := range section.Items {
			keep, err := condition.Evaluate(item.Condition, condVars)
			if err != nil {
				return nil, fmt.Errorf("item %q: %w", item.ID, err)
			}
			if !keep {
				continue
			}

			if len(item.Matrix) > 0 {
				for _, entry := range item.Matrix {
					resolved = append(resolved, ResolvedItem{
						SectionName:   section.Name,
						Item:          item,
						MatrixContext: entry,
					})
				}
				continue
			}

			resolved = append(resolved, ResolvedItem{
				SectionName: section.Name,
				Item:        item,
			})
		}
	}

	return resolved, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
