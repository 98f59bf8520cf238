// Package formula expands compact query formulas into full candidate lists.
//
// A formula is plain text interspersed with non-nested variant groups of the
// form (alt1 | alt2 | altN). Expansion is the cartesian product over groups.
// Parenthesized spans without a pipe are literal text and pass through
// unchanged. Nested groups are out of scope: validation only guarantees
// parenthesis balance, and a nested span never matches the group scanner.
package formula

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/avasiliev/semkit/internal/textutil"
)

// Expansion is the result of expanding one formula or a batch of them.
type Expansion struct {
	SourceFormula     string   `json:"sourceFormula"`
	VariantGroupCount int      `json:"variantGroupCount"`
	Queries           []string `json:"queries"`
}

// ValidationError describes the first violation found in a formula. The
// whole expansion is aborted; there is never partial output.
type ValidationError struct {
	Formula string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid formula %q: %s", e.Formula, e.Reason)
}

// groupPattern finds the shortest parenthesized spans that contain no nested
// parentheses. This is what makes the grammar non-nested by construction.
var groupPattern = regexp.MustCompile(`\(([^()]*)\)`)

// group is one variant group located inside a formula, with the byte span of
// the full parenthesized expression.
type group struct {
	start, end   int
	alternatives []string
}

// Validate checks a formula without expanding it. It reports the first
// violation: unbalanced parentheses, an empty group, or an empty alternative.
func Validate(formula string) error {
	depth := 0
	for i, r := range formula {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return &ValidationError{Formula: formula, Reason: fmt.Sprintf("unexpected ')' at position %d", i)}
			}
		}
	}
	if depth != 0 {
		return &ValidationError{Formula: formula, Reason: "unbalanced parentheses"}
	}

	for _, m := range groupPattern.FindAllStringSubmatch(formula, -1) {
		inner := m[1]
		if strings.TrimSpace(inner) == "" {
			return &ValidationError{Formula: formula, Reason: "empty group '()'"}
		}
		if !strings.Contains(inner, "|") {
			// literal parentheses, not a variant group
			continue
		}
		for _, alt := range strings.Split(inner, "|") {
			if strings.TrimSpace(alt) == "" {
				return &ValidationError{Formula: formula, Reason: "empty alternative in group '(" + inner + ")'"}
			}
		}
	}
	return nil
}

// scanGroups locates the variant groups of a validated formula.
func scanGroups(formula string) []group {
	var groups []group
	for _, span := range groupPattern.FindAllStringSubmatchIndex(formula, -1) {
		inner := formula[span[2]:span[3]]
		if !strings.Contains(inner, "|") {
			continue
		}
		parts := strings.Split(inner, "|")
		alts := make([]string, len(parts))
		for i, p := range parts {
			alts[i] = strings.TrimSpace(p)
		}
		groups = append(groups, group{start: span[0], end: span[1], alternatives: alts})
	}
	return groups
}

// Expand validates a formula and produces every combination of its variant
// groups. Enumeration order is first group outermost, last group innermost.
// A formula with no variant groups yields a single-element result equal to
// the trimmed input.
func Expand(formula string) (*Expansion, error) {
	if err := Validate(formula); err != nil {
		return nil, err
	}

	groups := scanGroups(formula)
	if len(groups) == 0 {
		return &Expansion{
			SourceFormula: formula,
			Queries:       []string{strings.TrimSpace(formula)},
		}, nil
	}

	total := 1
	for _, g := range groups {
		total *= len(g.alternatives)
	}

	queries := make([]string, 0, total)
	for n := 0; n < total; n++ {
		// Decode n into one choice per group. Dividing from the last group
		// backwards makes the last group cycle fastest, so the first group
		// behaves as the outermost loop.
		choices := make([]int, len(groups))
		rem := n
		for i := len(groups) - 1; i >= 0; i-- {
			choices[i] = rem % len(groups[i].alternatives)
			rem /= len(groups[i].alternatives)
		}

		// Substitute right to left so earlier spans keep their offsets.
		out := formula
		for i := len(groups) - 1; i >= 0; i-- {
			g := groups[i]
			out = out[:g.start] + g.alternatives[choices[i]] + out[g.end:]
		}
		queries = append(queries, textutil.CollapseSpaces(out))
	}

	return &Expansion{
		SourceFormula:     formula,
		VariantGroupCount: len(groups),
		Queries:           dedupe(queries),
	}, nil
}

// ExpandBatch expands several formula lines and deduplicates globally,
// preserving first-seen order. Blank lines are skipped; a single invalid
// line fails the whole batch.
func ExpandBatch(lines []string) (*Expansion, error) {
	var all []string
	groupCount := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		exp, err := Expand(line)
		if err != nil {
			return nil, err
		}
		groupCount += exp.VariantGroupCount
		all = append(all, exp.Queries...)
	}
	return &Expansion{
		SourceFormula:     strings.Join(lines, "\n"),
		VariantGroupCount: groupCount,
		Queries:           dedupe(all),
	}, nil
}

func dedupe(queries []string) []string {
	seen := make(map[string]struct{}, len(queries))
	out := queries[:0]
	for _, q := range queries {
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	return out
}
