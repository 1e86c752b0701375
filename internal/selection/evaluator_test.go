package selection

import "testing"

type fakeEntity map[string]any

func (f fakeEntity) Value(field string) (any, bool) {
	v, ok := f[field]
	return v, ok
}

func mustMatcher(t *testing.T, query string, ctx EvalContext) Matcher {
	t.Helper()
	sel, err := Parse(query)
	if err != nil {
		t.Fatalf("parse %q: %v", query, err)
	}
	m, err := Compile(sel.Predicate, ctx)
	if err != nil {
		t.Fatalf("compile %q: %v", query, err)
	}
	return m
}

func TestEvaluatorComparisons(t *testing.T) {
	entity := fakeEntity{"timestamp": float64(1050), "sender": "alice", "read": false}

	tests := []struct {
		query string
		want  bool
	}{
		{"timestamp <= 1059", true},
		{"timestamp <= 1049", false},
		{"timestamp > 1000 AND timestamp < 1100", true},
		{`sender = "alice"`, true},
		{`sender = "bob"`, false},
		{`sender != "bob"`, true},
		{`sender ~ "ali"`, true},
		{"read = false", true},
		{"NOT (read = false)", false},
		{`sender = "alice" OR sender = "bob"`, true},
		{"missing_field = 1", false},
		{"missing_field != 1", true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			m := mustMatcher(t, tt.query, EvalContext{})
			if got := m(entity); got != tt.want {
				t.Errorf("match(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestEvaluatorAtMe(t *testing.T) {
	entity := fakeEntity{"sender": "alice"}
	m := mustMatcher(t, "sender = @me", EvalContext{CurrentUser: "alice"})
	if !m(entity) {
		t.Errorf("expected @me to resolve to current user and match")
	}
}

func TestEvaluatorIn(t *testing.T) {
	entity := fakeEntity{"label": "inbox"}
	m := mustMatcher(t, `label IN ("inbox", "sent")`, EvalContext{})
	if !m(entity) {
		t.Errorf("expected label IN (...) to match")
	}
	m2 := mustMatcher(t, `label NOT IN ("trash")`, EvalContext{})
	if !m2(entity) {
		t.Errorf("expected label NOT IN (...) to match")
	}
}

func TestLiteralFromValueRoundTrip(t *testing.T) {
	tests := []struct {
		in   any
		want Value
	}{
		{int64(5), NumberValue(5)},
		{3.5, NumberValue(3.5)},
		{true, BoolValue(true)},
		{"hi", StringValue("hi")},
	}
	for _, tt := range tests {
		got := LiteralFromValue(tt.in)
		if got.String() != tt.want.String() {
			t.Errorf("LiteralFromValue(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
