package selection

// LiteralFromValue converts a raw entity field value into a predicate
// Value, preserving the type tag for numeric and boolean kinds and falling
// back to a string-typed literal for everything else. This is spec.md
// §6's "Value → Literal mapping", used exclusively to build cursor
// predicates — it must stay symmetric with how compareValues/valueEquals
// interpret the resulting literal.
func LiteralFromValue(v any) Value {
	switch n := v.(type) {
	case float64:
		return NumberValue(n)
	case float32:
		return NumberValue(float64(n))
	case int:
		return NumberValue(float64(n))
	case int32:
		return NumberValue(float64(n))
	case int64:
		return NumberValue(float64(n))
	case bool:
		return BoolValue(n)
	case string:
		return StringValue(n)
	default:
		return StringValue(toString(v))
	}
}
