package selection

import (
	"fmt"
	"strconv"
	"strings"
)

// Entity is the minimal read contract the evaluator needs from a row. It
// mirrors spec.md §6's View contract (`entity().value(field_name)`)
// narrowed to what predicate evaluation requires.
type Entity interface {
	Value(field string) (any, bool)
}

// EvalContext carries request-scoped state needed to resolve special
// values like @me.
type EvalContext struct {
	CurrentUser string
}

// Matcher reports whether an entity satisfies a predicate.
type Matcher func(Entity) bool

// Compile turns a predicate AST into a Matcher. A nil node always matches
// (the "true" / no-filter predicate).
func Compile(node Node, ctx EvalContext) (Matcher, error) {
	if node == nil {
		return func(Entity) bool { return true }, nil
	}
	return compileNode(node, ctx)
}

func compileNode(node Node, ctx EvalContext) (Matcher, error) {
	switch n := node.(type) {
	case *BoolLiteral:
		v := n.Value
		return func(Entity) bool { return v }, nil

	case *BinaryExpr:
		left, err := compileNode(n.Left, ctx)
		if err != nil {
			return nil, err
		}
		right, err := compileNode(n.Right, ctx)
		if err != nil {
			return nil, err
		}
		if n.Op == OpAnd {
			return func(e Entity) bool { return left(e) && right(e) }, nil
		}
		return func(e Entity) bool { return left(e) || right(e) }, nil

	case *UnaryExpr:
		inner, err := compileNode(n.Expr, ctx)
		if err != nil {
			return nil, err
		}
		return func(e Entity) bool { return !inner(e) }, nil

	case *Comparison:
		return compileComparison(n, ctx)

	default:
		return nil, fmt.Errorf("unsupported predicate node %T", node)
	}
}

func compileComparison(c *Comparison, ctx EvalContext) (Matcher, error) {
	field := c.Field
	op := c.Operator
	rhs := c.Value

	if list, ok := rhs.(ListValue); ok {
		wantIn := op == OpIn
		return func(e Entity) bool {
			fv, ok := e.Value(field)
			if !ok {
				return false
			}
			for _, v := range list.Values {
				if valueEquals(fv, resolveValue(v, ctx)) {
					return wantIn
				}
			}
			return !wantIn
		}, nil
	}

	return func(e Entity) bool {
		fv, ok := e.Value(field)
		if !ok {
			return matchMissing(op)
		}
		return compareValues(fv, op, resolveValue(rhs, ctx))
	}, nil
}

// matchMissing decides the outcome when the field is absent from the
// entity: only `!=` and `!~` are true for a missing field, matching the
// teacher evaluator's treatment of unset fields.
func matchMissing(op string) bool {
	return op == OpNeq || op == OpNotContains
}

func resolveValue(v Value, ctx EvalContext) any {
	switch val := v.(type) {
	case StringValue:
		return string(val)
	case NumberValue:
		return float64(val)
	case BoolValue:
		return bool(val)
	case SpecialValue:
		switch val.Kind {
		case "me":
			return ctx.CurrentUser
		default:
			return nil
		}
	default:
		return nil
	}
}

func compareValues(fieldValue any, op string, rhs any) bool {
	switch op {
	case OpEq:
		return valueEquals(fieldValue, rhs)
	case OpNeq:
		return !valueEquals(fieldValue, rhs)
	case OpContains:
		return strings.Contains(strings.ToLower(toString(fieldValue)), strings.ToLower(toString(rhs)))
	case OpNotContains:
		return !strings.Contains(strings.ToLower(toString(fieldValue)), strings.ToLower(toString(rhs)))
	case OpLt, OpGt, OpLte, OpGte:
		return compareOrdered(fieldValue, op, rhs)
	default:
		return false
	}
}

func valueEquals(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	return strings.EqualFold(toString(a), toString(b))
}

func compareOrdered(a any, op string, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch op {
		case OpLt:
			return af < bf
		case OpGt:
			return af > bf
		case OpLte:
			return af <= bf
		case OpGte:
			return af >= bf
		}
	}
	as, bs := toString(a), toString(b)
	switch op {
	case OpLt:
		return as < bs
	case OpGt:
		return as > bs
	case OpLte:
		return as <= bs
	case OpGte:
		return as >= bs
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func toString(v any) string {
	return fmt.Sprintf("%v", v)
}
