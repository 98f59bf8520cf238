// Package segment implements the subcluster result pipeline: syncing a raw
// query list into a filtered, aggregated per-segment snapshot, comparing two
// segments pairwise, and resolving conflicts by removing queries from one
// segment in favor of another.
package segment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/avasiliev/semkit/internal/textutil"
	"github.com/avasiliev/semkit/pkg/freqindex"
)

// ErrNotFound marks a missing raw result or segment snapshot. Callers rely
// on it to distinguish "not found" from generic storage failure.
var ErrNotFound = errors.New("not found")

// RawResult is a stored raw query/count list, usually collected from the
// statistics API or from matcher output.
type RawResult struct {
	ID      string             `msgpack:"id" json:"id"`
	Queries []freqindex.Record `msgpack:"queries" json:"queries"`
}

// FilterList is a named minus-word list. Items starting with '#' are
// comments; empty items are ignored.
type FilterList struct {
	ID    string   `msgpack:"id" json:"id"`
	Items []string `msgpack:"items" json:"items"`
}

// MinusWords returns the usable items: non-comment, non-empty, lowercased.
func (f FilterList) MinusWords() []string {
	words := make([]string, 0, len(f.Items))
	for _, item := range f.Items {
		item = strings.TrimSpace(item)
		if item == "" || strings.HasPrefix(item, "#") {
			continue
		}
		words = append(words, strings.ToLower(item))
	}
	return words
}

// Result is the persisted per-segment snapshot. It is replaced wholesale on
// every sync; there is no partial merge with prior state.
type Result struct {
	SegmentID        string             `msgpack:"segmentId" json:"segmentId"`
	SegmentName      string             `msgpack:"segmentName" json:"segmentName"`
	ParentID         string             `msgpack:"parentId" json:"parentId"`
	ParentName       string             `msgpack:"parentName" json:"parentName"`
	AppliedModelIDs  []string           `msgpack:"appliedModelIds" json:"appliedModelIds"`
	AppliedFilterIDs []string           `msgpack:"appliedFilterIds" json:"appliedFilterIds"`
	RawQueries       []freqindex.Record `msgpack:"rawQueries" json:"rawQueries"`
	FilteredQueries  []freqindex.Record `msgpack:"filteredQueries" json:"filteredQueries"`
	TotalImpressions int                `msgpack:"totalImpressions" json:"totalImpressions"`
	UpdatedAt        time.Time          `msgpack:"updatedAt" json:"updatedAt"`
	SourceResultID   string             `msgpack:"sourceResultId" json:"sourceResultId"`
}

// Storage is what the pipeline needs from the persistence layer. The store
// is an opaque document target; implementations return an error matching
// ErrNotFound for missing ids and provide no concurrency control beyond
// last-writer-wins. Callers needing stronger guarantees serialize writes per
// segment id themselves.
type Storage interface {
	GetRawResult(ctx context.Context, id string) (*RawResult, error)
	GetSegment(ctx context.Context, id string) (*Result, error)
	PutSegment(ctx context.Context, result *Result) error
	ListFiltersByIDs(ctx context.Context, ids []string) ([]FilterList, error)
}

// Pipeline owns segment snapshots: it is the only writer of Result documents.
type Pipeline struct {
	store Storage
}

func NewPipeline(store Storage) *Pipeline {
	return &Pipeline{store: store}
}

// SyncRequest names the raw result to load and the segment to (re)build.
type SyncRequest struct {
	ResultID    string   `json:"resultId"`
	SegmentID   string   `json:"segmentId"`
	SegmentName string   `json:"segmentName"`
	ParentID    string   `json:"parentId"`
	ParentName  string   `json:"parentName"`
	ModelIDs    []string `json:"modelIds"`
	FilterIDs   []string `json:"filterIds"`
}

// Sync loads the raw result, applies the union of the named minus-word
// lists, aggregates impressions, and persists a fresh snapshot keyed by
// the segment id. A missing raw result surfaces as ErrNotFound.
func (p *Pipeline) Sync(ctx context.Context, req SyncRequest) (*Result, error) {
	raw, err := p.store.GetRawResult(ctx, req.ResultID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("raw result %s: %w", req.ResultID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading raw result %s: %w", req.ResultID, err)
	}

	filters, err := p.store.ListFiltersByIDs(ctx, req.FilterIDs)
	if err != nil {
		return nil, fmt.Errorf("loading filter lists: %w", err)
	}
	minusWords := unionMinusWords(filters)

	filtered := applyMinusWords(raw.Queries, minusWords)
	total := 0
	for _, q := range filtered {
		total += q.Count
	}

	result := &Result{
		SegmentID:        req.SegmentID,
		SegmentName:      req.SegmentName,
		ParentID:         req.ParentID,
		ParentName:       req.ParentName,
		AppliedModelIDs:  req.ModelIDs,
		AppliedFilterIDs: req.FilterIDs,
		RawQueries:       raw.Queries,
		FilteredQueries:  filtered,
		TotalImpressions: total,
		UpdatedAt:        time.Now().UTC(),
		SourceResultID:   req.ResultID,
	}
	if err := p.store.PutSegment(ctx, result); err != nil {
		return nil, fmt.Errorf("persisting segment %s: %w", req.SegmentID, err)
	}

	log.Debugf("Synced segment %s: %d raw, %d filtered, %d impressions (%d minus-words)",
		req.SegmentID, len(raw.Queries), len(filtered), total, len(minusWords))
	return result, nil
}

// unionMinusWords merges the usable items of every filter list into one set,
// returned as a slice (match order does not matter; first hit wins).
func unionMinusWords(filters []FilterList) []string {
	seen := make(map[string]struct{})
	var words []string
	for _, f := range filters {
		for _, w := range f.MinusWords() {
			if _, dup := seen[w]; dup {
				continue
			}
			seen[w] = struct{}{}
			words = append(words, w)
		}
	}
	return words
}

// applyMinusWords drops every query whose lowercased text contains any
// minus-word as a substring. Token boundaries are deliberately ignored:
// the minus-word "тур" removes "турагентство" too.
func applyMinusWords(queries []freqindex.Record, minusWords []string) []freqindex.Record {
	filtered := make([]freqindex.Record, 0, len(queries))
	for _, q := range queries {
		lower := strings.ToLower(q.Query)
		removed := false
		for _, w := range minusWords {
			if strings.Contains(lower, w) {
				removed = true
				break
			}
		}
		if !removed {
			filtered = append(filtered, q)
		}
	}
	return filtered
}

// Intersection is one query present in both compared segments.
type Intersection struct {
	Query  string `json:"query"`
	CountA int    `json:"countA"`
	CountB int    `json:"countB"`
}

// Comparison is the pairwise result over two segments' filtered queries.
type Comparison struct {
	Intersections []Intersection `json:"intersections"`
	UniqueInA     int            `json:"uniqueInA"`
	UniqueInB     int            `json:"uniqueInB"`
}

// Compare intersects the filtered queries of two segments, matched
// case-insensitively on the exact query string. Intersections are sorted by
// combined count descending. A missing segment contributes nothing: the
// result has zero intersections and the other side's length as its unique
// count.
func (p *Pipeline) Compare(ctx context.Context, segmentIDA, segmentIDB string) (*Comparison, error) {
	a, err := p.loadOptional(ctx, segmentIDA)
	if err != nil {
		return nil, err
	}
	b, err := p.loadOptional(ctx, segmentIDB)
	if err != nil {
		return nil, err
	}

	cmp := &Comparison{Intersections: []Intersection{}}
	if a == nil || b == nil {
		if a != nil {
			cmp.UniqueInA = len(a.FilteredQueries)
		}
		if b != nil {
			cmp.UniqueInB = len(b.FilteredQueries)
		}
		return cmp, nil
	}

	countsB := make(map[string]int, len(b.FilteredQueries))
	for _, q := range b.FilteredQueries {
		countsB[textutil.Normalize(q.Query)] = q.Count
	}

	matchedB := make(map[string]struct{})
	for _, q := range a.FilteredQueries {
		key := textutil.Normalize(q.Query)
		if countB, ok := countsB[key]; ok {
			cmp.Intersections = append(cmp.Intersections, Intersection{
				Query:  key,
				CountA: q.Count,
				CountB: countB,
			})
			matchedB[key] = struct{}{}
		} else {
			cmp.UniqueInA++
		}
	}
	for key := range countsB {
		if _, ok := matchedB[key]; !ok {
			cmp.UniqueInB++
		}
	}

	sort.SliceStable(cmp.Intersections, func(i, j int) bool {
		return cmp.Intersections[i].CountA+cmp.Intersections[i].CountB >
			cmp.Intersections[j].CountA+cmp.Intersections[j].CountB
	})
	return cmp, nil
}

// loadOptional treats a missing segment as nil rather than an error.
func (p *Pipeline) loadOptional(ctx context.Context, id string) (*Result, error) {
	result, err := p.store.GetSegment(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading segment %s: %w", id, err)
	}
	return result, nil
}

// RemovalCounts reports the size of the source segment's lists before and
// after a removal.
type RemovalCounts struct {
	RawBefore        int `json:"rawBefore"`
	RawAfter         int `json:"rawAfter"`
	FilteredBefore   int `json:"filteredBefore"`
	FilteredAfter    int `json:"filteredAfter"`
	TotalImpressions int `json:"totalImpressions"`
}

// RemoveQueriesFavoring removes the given queries (case-insensitive exact
// match) from the source segment's raw and filtered lists and recomputes its
// impressions. The target segment is recorded for audit only and is never
// mutated.
func (p *Pipeline) RemoveQueriesFavoring(ctx context.Context, sourceSegmentID, targetSegmentID string, queries []string) (*RemovalCounts, error) {
	source, err := p.store.GetSegment(ctx, sourceSegmentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("segment %s: %w", sourceSegmentID, ErrNotFound)
		}
		return nil, fmt.Errorf("loading segment %s: %w", sourceSegmentID, err)
	}

	remove := make(map[string]struct{}, len(queries))
	for _, q := range queries {
		remove[textutil.Normalize(q)] = struct{}{}
	}

	counts := &RemovalCounts{
		RawBefore:      len(source.RawQueries),
		FilteredBefore: len(source.FilteredQueries),
	}

	source.RawQueries = dropQueries(source.RawQueries, remove)
	source.FilteredQueries = dropQueries(source.FilteredQueries, remove)
	counts.RawAfter = len(source.RawQueries)
	counts.FilteredAfter = len(source.FilteredQueries)

	// Impressions follow the filtered list when one exists, otherwise the
	// raw list stands in.
	basis := source.FilteredQueries
	if basis == nil {
		basis = source.RawQueries
	}
	total := 0
	for _, q := range basis {
		total += q.Count
	}
	source.TotalImpressions = total
	counts.TotalImpressions = total
	source.UpdatedAt = time.Now().UTC()

	if err := p.store.PutSegment(ctx, source); err != nil {
		return nil, fmt.Errorf("persisting segment %s: %w", sourceSegmentID, err)
	}

	log.Debugf("Removed %d queries from segment %s in favor of %s: raw %d->%d, filtered %d->%d",
		len(remove), sourceSegmentID, targetSegmentID,
		counts.RawBefore, counts.RawAfter, counts.FilteredBefore, counts.FilteredAfter)
	return counts, nil
}

// dropQueries filters out records whose normalized query is in the removal
// set. A nil input stays nil so "no filtered list" survives the operation.
func dropQueries(queries []freqindex.Record, remove map[string]struct{}) []freqindex.Record {
	if queries == nil {
		return nil
	}
	kept := make([]freqindex.Record, 0, len(queries))
	for _, q := range queries {
		if _, gone := remove[textutil.Normalize(q.Query)]; gone {
			continue
		}
		kept = append(kept, q)
	}
	return kept
}
