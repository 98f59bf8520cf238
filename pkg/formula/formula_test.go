package formula

import (
	"errors"
	"reflect"
	"testing"
)

func TestValidate(t *testing.T) {
	testCases := []struct {
		formula     string
		wantErr     bool
		description string
	}{
		{"a (b|c) d", false, "simple group"},
		{"(x|y) (1|2)", false, "two groups"},
		{"plain text", false, "no groups at all"},
		{"литерал (скобки) текст", false, "literal parentheses without pipe"},
		{"a (b", true, "unclosed parenthesis"},
		{"a b)", true, "unexpected closing parenthesis"},
		{"(x|)", true, "empty trailing alternative"},
		{"(|y)", true, "empty leading alternative"},
		{"(x||y)", true, "empty middle alternative"},
		{"()", true, "empty group"},
	}

	for _, tc := range testCases {
		err := Validate(tc.formula)
		if tc.wantErr && err == nil {
			t.Errorf("%s: Validate(%q) = nil, want error", tc.description, tc.formula)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("%s: Validate(%q) = %v, want nil", tc.description, tc.formula, err)
		}
		if tc.wantErr {
			var verr *ValidationError
			if err != nil && !errors.As(err, &verr) {
				t.Errorf("%s: error is %T, want *ValidationError", tc.description, err)
			}
		}
	}
}

func TestExpandSingleGroup(t *testing.T) {
	exp, err := Expand("автобусные (туры | экскурсии)")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"автобусные туры", "автобусные экскурсии"}
	if !reflect.DeepEqual(exp.Queries, want) {
		t.Errorf("Queries = %v, want %v", exp.Queries, want)
	}
	if exp.VariantGroupCount != 1 {
		t.Errorf("VariantGroupCount = %d, want 1", exp.VariantGroupCount)
	}
}

// First group is the outermost loop, last group the innermost.
func TestExpandEnumerationOrder(t *testing.T) {
	exp, err := Expand("(экскурсия | тур) по (Москве | Питеру)")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"экскурсия по Москве",
		"экскурсия по Питеру",
		"тур по Москве",
		"тур по Питеру",
	}
	if !reflect.DeepEqual(exp.Queries, want) {
		t.Errorf("Queries = %v, want %v", exp.Queries, want)
	}
}

func TestExpandCardinality(t *testing.T) {
	exp, err := Expand("(a|b|c) x (1|2) y (м|н)")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := len(exp.Queries), 3*2*2; got != want {
		t.Errorf("len(Queries) = %d, want %d", got, want)
	}
	if exp.VariantGroupCount != 3 {
		t.Errorf("VariantGroupCount = %d, want 3", exp.VariantGroupCount)
	}
}

func TestExpandNoGroups(t *testing.T) {
	exp, err := Expand("  простой запрос  ")
	if err != nil {
		t.Fatal(err)
	}
	if len(exp.Queries) != 1 || exp.Queries[0] != "простой запрос" {
		t.Errorf("Queries = %v, want single trimmed input", exp.Queries)
	}
	if exp.VariantGroupCount != 0 {
		t.Errorf("VariantGroupCount = %d, want 0", exp.VariantGroupCount)
	}
}

func TestExpandLiteralParentheses(t *testing.T) {
	exp, err := Expand("тур (недорого) в (сочи|анапу)")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"тур (недорого) в сочи", "тур (недорого) в анапу"}
	if !reflect.DeepEqual(exp.Queries, want) {
		t.Errorf("Queries = %v, want %v", exp.Queries, want)
	}
}

func TestExpandDeduplicates(t *testing.T) {
	exp, err := Expand("(тур|тур) в москву")
	if err != nil {
		t.Fatal(err)
	}
	if len(exp.Queries) != 1 {
		t.Errorf("duplicate alternatives should collapse: %v", exp.Queries)
	}
}

func TestExpandBatch(t *testing.T) {
	exp, err := ExpandBatch([]string{
		"(тур|экскурсия) в москву",
		"",
		"тур в москву",
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"тур в москву", "экскурсия в москву"}
	if !reflect.DeepEqual(exp.Queries, want) {
		t.Errorf("Queries = %v, want global dedup with first-seen order %v", exp.Queries, want)
	}
}

func TestExpandBatchFailsWholesale(t *testing.T) {
	if _, err := ExpandBatch([]string{"хороший (тур|поездка)", "сломанный (тур|"}); err == nil {
		t.Error("ExpandBatch with one invalid line should fail entirely")
	}
}
