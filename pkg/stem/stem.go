// Package stem implements a heuristic suffix stripper for Russian word forms.
//
// It is intentionally crude: an ordered table of suffix-removal passes with no
// dictionary lookup. False merges and false splits are expected and acceptable,
// since the output is only used as a fuzzy bucketing key for keyword matching,
// never shown to a user. The pass order is load-bearing: downstream stem-set
// matching depends on the specific merges it produces, so do not reorder or
// "improve" the tables without adjusting the matcher tests.
package stem

import (
	"strings"
	"unicode/utf8"
)

// rule removes suffix and appends repl in its place. Most rules have an empty
// replacement; abstract-noun and relational-adjective rules normalize to a
// short representative suffix instead so that related forms land in the same
// bucket.
type rule struct {
	suffix string
	repl   string
}

// passes is applied in order, each pass operating on the already-reduced
// output of the previous one. Within a pass, rules are ordered longest and
// most specific first, and at most one rule fires.
var passes = [][]rule{
	// 1: long nominal/adjectival endings
	{
		{"иями", ""}, {"ями", ""}, {"ами", ""}, {"иях", ""},
		{"ого", ""}, {"его", ""}, {"ому", ""}, {"ему", ""},
		{"ыми", ""}, {"ими", ""},
		{"ая", ""}, {"яя", ""}, {"ое", ""}, {"ее", ""},
		{"ые", ""}, {"ие", ""}, {"ую", ""}, {"юю", ""},
		{"ых", ""}, {"их", ""}, {"ия", ""},
		{"ый", ""}, {"ий", ""},
	},
	// 2: shorter case endings
	{
		{"ам", ""}, {"ям", ""}, {"ах", ""}, {"ях", ""},
		{"ов", ""}, {"ев", ""}, {"ей", ""}, {"ой", ""},
		{"ом", ""}, {"ем", ""}, {"ии", ""}, {"ью", ""},
		{"ья", ""}, {"ье", ""},
	},
	// 3: single-character case endings
	{
		{"а", ""}, {"я", ""}, {"о", ""}, {"е", ""},
		{"у", ""}, {"ю", ""}, {"ы", ""}, {"и", ""},
		{"ь", ""}, {"й", ""},
	},
	// 4: verb endings
	{
		{"ировать", ""}, {"овать", ""}, {"евать", ""},
		{"ться", ""}, {"тся", ""},
		{"ать", ""}, {"ять", ""}, {"еть", ""}, {"ить", ""}, {"ыть", ""}, {"уть", ""},
		{"ешь", ""}, {"ишь", ""},
		{"ал", ""}, {"ял", ""}, {"ил", ""}, {"ыл", ""},
		{"ет", ""}, {"ит", ""}, {"ут", ""}, {"ют", ""}, {"ат", ""}, {"ят", ""},
		{"ла", ""}, {"ло", ""}, {"ли", ""},
	},
	// 5: abstract-noun suffixes, normalized
	{
		{"ность", "н"}, {"ност", "н"}, {"ость", ""}, {"ост", ""},
		{"ение", "ен"}, {"ание", "ан"}, {"ени", "ен"}, {"ани", "ан"},
		{"ация", "ац"}, {"яция", "яц"},
	},
	// 6: relational-adjective suffix, normalized
	{
		{"ическ", "ик"}, {"ческ", "к"}, {"ск", "к"},
	},
}

// minStemRunes keeps a rule from stripping a word down to nothing.
const minStemRunes = 2

// Stem reduces an inflected word form to a crude stem. Words shorter than
// three runes are returned unchanged. Input is lowercased before matching,
// so the function is case-insensitive.
func Stem(word string) string {
	w := strings.ToLower(word)
	if utf8.RuneCountInString(w) < 3 {
		return w
	}
	for _, pass := range passes {
		for _, r := range pass {
			if !strings.HasSuffix(w, r.suffix) {
				continue
			}
			reduced := w[:len(w)-len(r.suffix)] + r.repl
			if utf8.RuneCountInString(reduced) >= minStemRunes {
				w = reduced
			}
			// at most one rule per pass
			break
		}
	}
	return w
}
