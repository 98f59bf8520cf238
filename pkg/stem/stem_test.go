package stem

import (
	"testing"
	"unicode/utf8"
)

// The stemmer is a bucketing heuristic, not a morphological analyzer.
// These cases pin the merges the keyword matcher relies on.
func TestStemMerges(t *testing.T) {
	testCases := []struct {
		words       []string
		description string
	}{
		{[]string{"тур", "туры"}, "plural noun merges with singular"},
		{[]string{"москва", "москве"}, "case-inflected place name"},
		{[]string{"экскурсия", "экскурсии", "экскурсий"}, "noun case forms"},
		{[]string{"автобусные", "автобусных", "автобусный"}, "adjective endings"},
		{[]string{"купить", "купил"}, "verb infinitive and past"},
	}

	for _, tc := range testCases {
		first := Stem(tc.words[0])
		for _, w := range tc.words[1:] {
			if got := Stem(w); got != first {
				t.Errorf("%s: Stem(%q) = %q, want %q (same as Stem(%q))",
					tc.description, w, got, first, tc.words[0])
			}
		}
	}
}

func TestStemShortWordsUnchanged(t *testing.T) {
	for _, w := range []string{"", "а", "по", "в", "ab"} {
		if got := Stem(w); got != w {
			t.Errorf("Stem(%q) = %q, want unchanged", w, got)
		}
	}
}

func TestStemCaseInsensitive(t *testing.T) {
	if Stem("Туры") != Stem("туры") {
		t.Errorf("Stem should be case-insensitive: %q vs %q", Stem("Туры"), Stem("туры"))
	}
}

// Property from the matcher contract: stemming never grows a word.
func TestStemNeverGrows(t *testing.T) {
	words := []string{
		"туры", "турагентство", "экскурсионный", "путешествие",
		"бронирование", "отдых", "гостиница", "ность", "ый",
	}
	for _, w := range words {
		got := Stem(w)
		if utf8.RuneCountInString(got) > utf8.RuneCountInString(w) {
			t.Errorf("Stem(%q) = %q is longer than input", w, got)
		}
	}
}

func TestStemNeverEmpties(t *testing.T) {
	for _, w := range []string{"ыми", "ого", "туры", "яя"} {
		if Stem(w) == "" {
			t.Errorf("Stem(%q) produced empty stem", w)
		}
	}
}
