// Package condition evaluates the restricted boolean expressions that gate
// checklist sections and items.
//
// The language is a deliberately tiny subset: variable references, string /
// number / bool literals, list literals, ==, !=, in, not in, and/or and unary
// not. Checklist files may come from untrusted sources, so anything outside
// that subset is rejected at parse time rather than evaluated. The expr-lang
// parser supplies the syntax tree; this package walks it with its own
// evaluator and fails closed on any node kind it does not recognize.
package condition

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

// Error reports a condition that cannot be evaluated: malformed syntax,
// forbidden constructs, or a reference to an unresolved variable.
type Error struct {
	Condition string
	Reason    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("condition %q: %s", e.Condition, e.Reason)
}

// Evaluate runs a condition against resolved variables. An empty condition
// is always true. Referencing a variable that is absent or nil is an error,
// not a falsy result: unresolved variables are configuration mistakes and
// must surface immediately.
func Evaluate(cond string, variables map[string]any) (bool, error) {
	if strings.TrimSpace(cond) == "" {
		return true, nil
	}

	tree, err := parser.Parse(cond)
	if err != nil {
		return false, &Error{Condition: cond, Reason: "invalid syntax"}
	}

	ev := &evaluator{condition: cond, variables: variables}
	if err := ev.validate(tree.Node); err != nil {
		return false, err
	}
	value, err := ev.eval(tree.Node)
	if err != nil {
		return false, err
	}
	return truthy(value), nil
}

type evaluator struct {
	condition string
	variables map[string]any
}

func (e *evaluator) errf(format string, args ...any) *Error {
	return &Error{Condition: e.condition, Reason: fmt.Sprintf(format, args...)}
}

// validate walks the whole tree and rejects any node outside the supported
// subset. This must run before eval: a failing comparison chain stops
// evaluating at the first failed pair, so forbidden syntax in the unreached
// tail would otherwise slip through as a silent false.
func (e *evaluator) validate(node ast.Node) error {
	switch n := node.(type) {
	case *ast.NilNode, *ast.BoolNode, *ast.IntegerNode, *ast.FloatNode,
		*ast.StringNode, *ast.IdentifierNode:
		return nil
	case *ast.ArrayNode:
		for _, element := range n.Nodes {
			if err := e.validate(element); err != nil {
				return err
			}
		}
		return nil
	case *ast.UnaryNode:
		if n.Operator != "not" && n.Operator != "!" {
			return e.errf("unsupported operator %q", n.Operator)
		}
		return e.validate(n.Node)
	case *ast.BinaryNode:
		switch n.Operator {
		case "and", "&&", "or", "||", "==", "!=", "in", "not in":
		default:
			return e.errf("unsupported operator %q", n.Operator)
		}
		if err := e.validate(n.Left); err != nil {
			return err
		}
		return e.validate(n.Right)
	default:
		return e.errf("unsupported expression")
	}
}

func (e *evaluator) eval(node ast.Node) (any, error) {
	switch n := node.(type) {
	case *ast.NilNode:
		return nil, nil
	case *ast.BoolNode:
		return n.Value, nil
	case *ast.IntegerNode:
		return n.Value, nil
	case *ast.FloatNode:
		return n.Value, nil
	case *ast.StringNode:
		return n.Value, nil
	case *ast.IdentifierNode:
		value, ok := e.variables[n.Value]
		if !ok || value == nil {
			return nil, e.errf("missing variable %q", n.Value)
		}
		return value, nil
	case *ast.ArrayNode:
		elements := make([]any, 0, len(n.Nodes))
		for _, element := range n.Nodes {
			value, err := e.eval(element)
			if err != nil {
				return nil, err
			}
			elements = append(elements, value)
		}
		return elements, nil
	case *ast.UnaryNode:
		if n.Operator != "not" && n.Operator != "!" {
			return nil, e.errf("unsupported operator %q", n.Operator)
		}
		value, err := e.eval(n.Node)
		if err != nil {
			return nil, err
		}
		return !truthy(value), nil
	case *ast.BinaryNode:
		return e.evalBinary(n)
	default:
		return nil, e.errf("unsupported expression")
	}
}

func (e *evaluator) evalBinary(n *ast.BinaryNode) (any, error) {
	switch n.Operator {
	case "and", "&&":
		// Both operands are always evaluated so that an unresolved
		// variable on either side surfaces even when the other operand
		// already decides the result.
		left, err := e.eval(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := e.eval(n.Right)
		if err != nil {
			return nil, err
		}
		return truthy(left) && truthy(right), nil
	case "or", "||":
		left, err := e.eval(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := e.eval(n.Right)
		if err != nil {
			return nil, err
		}
		return truthy(left) || truthy(right), nil
	}

	if isComparison(n.Operator) {
		ok, _, err := e.compare(n)
		if err != nil {
			return nil, err
		}
		return ok, nil
	}

	return nil, e.errf("unsupported operator %q", n.Operator)
}

func isComparison(op string) bool {
	switch op {
	case "==", "!=", "in", "not in":
		return true
	}
	return false
}

// compare evaluates a comparison with chained semantics: in a == b == c each
// adjacent pair must hold, evaluated left to right, and evaluation stops at
// the first failing pair. The second return value is the rightmost operand,
// which becomes the left side of the enclosing comparison in a chain.
func (e *evaluator) compare(n *ast.BinaryNode) (bool, any, error) {
	var left any
	if chain, ok := n.Left.(*ast.BinaryNode); ok && isComparison(chain.Operator) {
		held, last, err := e.compare(chain)
		if err != nil {
			return false, nil, err
		}
		if !held {
			return false, nil, nil
		}
		left = last
	} else {
		value, err := e.eval(n.Left)
		if err != nil {
			return false, nil, err
		}
		left = value
	}

	right, err := e.eval(n.Right)
	if err != nil {
		return false, nil, err
	}

	switch n.Operator {
	case "==":
		return equal(left, right), right, nil
	case "!=":
		return !equal(left, right), right, nil
	case "in":
		list, ok := right.([]any)
		if !ok {
			return false, right, nil
		}
		return contains(list, left), right, nil
	case "not in":
		list, ok := right.([]any)
		if !ok {
			return false, right, nil
		}
		return !contains(list, left), right, nil
	}

	return false, nil, e.errf("unsupported operator %q", n.Operator)
}

func contains(list []any, value any) bool {
	for _, element := range list {
		if equal(element, value) {
			return true
		}
	}
	return false
}

func equal(a, b any) bool {
	if an, aok := asNumber(a); aok {
		if bn, bok := asNumber(b); bok {
			return an == bn
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func truthy(v any) bool {
	switch value := v.(type) {
	case nil:
		return false
	case bool:
		return value
	case string:
		return value != ""
	case int:
		return value != 0
	case float64:
		return value != 0
	case []any:
		return len(value) > 0
	default:
		return true
	}
}
