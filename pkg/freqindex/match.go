package freqindex

import (
	"github.com/avasiliev/semkit/internal/textutil"
)

// Tier identifies which lookup strategy produced a match, in decreasing
// order of confidence.
type Tier string

const (
	TierExact     Tier = "exact"
	TierWordOrder Tier = "word-order"
	TierStem      Tier = "stem"
)

// Keyword is one entry of a batch match request. ID is optional; when empty
// the name doubles as the result key.
type Keyword struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// Key returns the identifier the result map is keyed by.
func (k Keyword) Key() string {
	if k.ID != "" {
		return k.ID
	}
	return k.Name
}

// MatchResult is the outcome for a single keyword: a matched count and the
// tier that produced it, or Found=false.
type MatchResult struct {
	Found        bool   `json:"found"`
	Count        int    `json:"count,omitempty"`
	Tier         Tier   `json:"tier,omitempty"`
	MatchedQuery string `json:"matchedQuery,omitempty"`
}

// BatchResult maps each keyword key to its result, with summary counters
// for observability.
type BatchResult struct {
	Results         map[string]MatchResult `json:"results"`
	Matched         int                    `json:"matched"`
	TotalInDatabase int                    `json:"totalInDatabase"`
	TierCounts      map[Tier]int           `json:"tierCounts"`
}

// Match resolves a single keyword with tiered fallback: exact string, then
// word-set (order-insensitive), then stem-set (fuzzy). Lookup is pure and
// deterministic over a fixed index; no I/O happens here.
func (ix *Index) Match(keyword string) MatchResult {
	query := textutil.Normalize(keyword)
	if query == "" {
		return MatchResult{}
	}

	if rec, ok := ix.exact[query]; ok {
		return MatchResult{Found: true, Count: rec.Count, Tier: TierExact, MatchedQuery: rec.Query}
	}

	if bucket := ix.wordSet[textutil.WordSetKey(query)]; len(bucket) > 0 {
		rec := bestOf(bucket)
		return MatchResult{Found: true, Count: rec.Count, Tier: TierWordOrder, MatchedQuery: rec.Query}
	}

	if ssKey := textutil.StemSetKey(query); ssKey != "" {
		if bucket := ix.stemSet[ssKey]; len(bucket) > 0 {
			rec := bestOf(bucket)
			return MatchResult{Found: true, Count: rec.Count, Tier: TierStem, MatchedQuery: rec.Query}
		}
	}

	return MatchResult{}
}

// MatchBatch resolves a keyword batch. Unmatched keywords never fail the
// batch; they simply come back with Found=false.
func (ix *Index) MatchBatch(keywords []Keyword) BatchResult {
	batch := BatchResult{
		Results:         make(map[string]MatchResult, len(keywords)),
		TotalInDatabase: len(ix.exact),
		TierCounts:      make(map[Tier]int),
	}
	for _, kw := range keywords {
		result := ix.Match(kw.Name)
		batch.Results[kw.Key()] = result
		if result.Found {
			batch.Matched++
			batch.TierCounts[result.Tier]++
		}
	}
	return batch
}

// bestOf picks the highest-count candidate from a bucket. On a count tie the
// earliest-appended record wins, which follows source order and keeps the
// choice deterministic.
func bestOf(bucket []Record) Record {
	best := bucket[0]
	for _, rec := range bucket[1:] {
		if rec.Count > best.Count {
			best = rec
		}
	}
	return best
}
