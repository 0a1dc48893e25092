// Package vars resolves loosely-typed runtime input into the closed set of
// variable values the engine accepts.
//
// Input arrives as whatever YAML or flag parsing produced. Resolution applies
// defaults, enforces required flags and option membership, and emits a map of
// String|Bool values. Nothing downstream (conditions, expansion) ever sees
// raw untyped input.
package vars

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/colonyops/tally/internal/core/checklist"
)

// Kind discriminates the closed variant of resolved values.
type Kind int

const (
	KindString Kind = iota
	KindBool
)

// Value is a resolved variable: either a string or a bool.
type Value struct {
	kind Kind
	str  string
	b    bool
}

// String builds a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Bool builds a bool value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind reports which variant this value holds.
func (v Value) Kind() Kind { return v.kind }

// Text returns the string form of the value regardless of kind.
// Bools render as "true"/"false", the form sessions persist.
func (v Value) Text() string {
	if v.kind == KindBool {
		return strconv.FormatBool(v.b)
	}
	return v.str
}

// Any returns the underlying value for condition evaluation.
func (v Value) Any() any {
	if v.kind == KindBool {
		return v.b
	}
	return v.str
}

// Vars is a resolved variable mapping.
type Vars map[string]Value

// Condition returns the mapping in the form the condition evaluator takes.
func (vs Vars) Condition() map[string]any {
	out := make(map[string]any, len(vs))
	for name, value := range vs {
		out[name] = value.Any()
	}
	return out
}

// Strings returns the mapping normalized to strings, the form frozen onto a
// session at start.
func (vs Vars) Strings() map[string]string {
	out := make(map[string]string, len(vs))
	for name, value := range vs {
		out[name] = value.Text()
	}
	return out
}

// FromStrings rebuilds resolved variables from a session's stored string
// map. Stored variables are binding for the life of the session, so no
// spec enforcement happens here.
func FromStrings(stored map[string]string) Vars {
	out := make(Vars, len(stored))
	for name, value := range stored {
		out[name] = String(value)
	}
	return out
}

// Resolve validates raw input against the checklist's variable specs:
// defaults fill absent values, required variables must resolve, and values
// for option-constrained variables must be members. All violations are
// collected and returned joined so the caller can report every problem at
// once.
func Resolve(specs map[string]checklist.Variable, input map[string]any) (Vars, error) {
	resolved := make(Vars, len(specs))
	var errs []error

	for _, name := range sortedKeys(specs) {
		spec := specs[name]
		raw, ok := input[name]

		if b, isBool := raw.(bool); ok && isBool && len(spec.Options) == 0 {
			resolved[name] = Bool(b)
			continue
		}

		value := ""
		if ok && raw != nil {
			value = fmt.Sprintf("%v", raw)
		}
		if value == "" {
			value = spec.Default
		}
		if value == "" {
			if spec.Required {
				errs = append(errs, fmt.Errorf("missing required variable: %s", name))
			}
			continue
		}
		if len(spec.Options) > 0 && !member(spec.Options, value) {
			errs = append(errs, fmt.Errorf("invalid value for %s: %s", name, value))
			continue
		}
		resolved[name] = String(value)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return resolved, nil
}

func member(options []string, value string) bool {
	for _, option := range options {
		if option == value {
			return true
		}
	}
	return false
}

func sortedKeys(specs map[string]checklist.Variable) []string {
	keys := make([]string, 0, len(specs))
	for name := range specs {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys
}
