// Package freqindex builds lookup indices over third-party query-frequency
// data and resolves keyword batches against them with tiered fallback.
//
// Ingestion is rebuild-only: every run parses the full source set, merges
// counts, and produces a fresh Index. Three parallel mappings are derived
// from the merged records: an exact map on the normalized query string, a
// word-set map keyed by the sorted token set (order-insensitive lookup), and
// a stem-set map keyed by the sorted stem set (fuzzy lookup). A patricia trie
// over the same records powers prefix suggestions.
package freqindex

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/avasiliev/semkit/internal/textutil"
)

// Record is one normalized query with its best observed count. When several
// sources report the same query the maximum count is kept, never a sum.
type Record struct {
	Query string `json:"query" msgpack:"query"`
	Count int    `json:"count" msgpack:"count"`
}

// Index holds the three lookup mappings plus the suggestion trie. It is
// immutable after Build and safe for concurrent readers.
type Index struct {
	exact   map[string]Record
	wordSet map[string][]Record
	stemSet map[string][]Record
	trie    *patricia.Trie
}

// Builder accumulates records from heterogeneous sources before the index
// is derived. Source order is preserved so that tie-breaking stays
// deterministic across rebuilds.
type Builder struct {
	best  map[string]Record
	order []string
}

func NewBuilder() *Builder {
	return &Builder{best: make(map[string]Record)}
}

// Add merges records into the builder, keeping max(count) per normalized
// query. Records with empty normalized queries are dropped.
func (b *Builder) Add(records []Record) {
	for _, r := range records {
		query := textutil.Normalize(r.Query)
		if query == "" || r.Count < 0 {
			continue
		}
		prev, seen := b.best[query]
		if !seen {
			b.best[query] = Record{Query: query, Count: r.Count}
			b.order = append(b.order, query)
			continue
		}
		if r.Count > prev.Count {
			b.best[query] = Record{Query: query, Count: r.Count}
		}
	}
}

// AddFile parses one source file and merges its records. A file that cannot
// be read or parsed is reported to the caller but is expected to be skipped;
// ingestion of a source set never fails wholesale because of one bad file.
func (b *Builder) AddFile(path string) error {
	records, err := ParseFile(path)
	if err != nil {
		return err
	}
	b.Add(records)
	return nil
}

// AddDir ingests every regular file under dir (sorted for determinism),
// skipping unreadable or malformed files with a warning.
func (b *Builder) AddDir(dir string) error {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			log.Warnf("Skipping unreadable path %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Strings(paths)

	parsed := 0
	for _, path := range paths {
		if err := b.AddFile(path); err != nil {
			log.Warnf("Skipping source file %s: %v", path, err)
			continue
		}
		parsed++
	}
	log.Debugf("Ingested %d of %d source files from %s", parsed, len(paths), dir)
	return nil
}

// Len reports how many distinct normalized queries the builder holds.
func (b *Builder) Len() int { return len(b.best) }

// Build derives the lookup indices. Every record lands in exactly one
// word-set bucket and one stem-set bucket, computed from itself. Buckets are
// not deduplicated; the matcher picks the max-count candidate at lookup time.
func (b *Builder) Build() *Index {
	ix := &Index{
		exact:   make(map[string]Record, len(b.order)),
		wordSet: make(map[string][]Record, len(b.order)),
		stemSet: make(map[string][]Record, len(b.order)),
		trie:    patricia.NewTrie(),
	}
	for _, query := range b.order {
		rec := b.best[query]
		ix.exact[query] = rec
		wsKey := textutil.WordSetKey(query)
		ix.wordSet[wsKey] = append(ix.wordSet[wsKey], rec)
		if ssKey := textutil.StemSetKey(query); ssKey != "" {
			ix.stemSet[ssKey] = append(ix.stemSet[ssKey], rec)
		}
		ix.trie.Insert(patricia.Prefix(query), rec.Count)
	}
	return ix
}

// Len reports the number of distinct queries in the index.
func (ix *Index) Len() int { return len(ix.exact) }

// Lookup returns the exact record for a normalized query.
func (ix *Index) Lookup(query string) (Record, bool) {
	rec, ok := ix.exact[textutil.Normalize(query)]
	return rec, ok
}

// Suggest returns up to limit records whose query starts with prefix,
// ranked by count descending. Ties are broken alphabetically so repeated
// calls return the same order.
func (ix *Index) Suggest(prefix string, limit int) []Record {
	lowerPrefix := textutil.Normalize(prefix)
	if lowerPrefix == "" {
		return nil
	}

	var results []Record
	err := ix.trie.VisitSubtree(patricia.Prefix(lowerPrefix), func(p patricia.Prefix, item patricia.Item) error {
		count, ok := item.(int)
		if !ok {
			log.Errorf("Unknown item type: %T for query %s", item, p)
			return nil
		}
		results = append(results, Record{Query: string(p), Count: count})
		return nil
	})
	if err != nil {
		log.Errorf("Error visiting trie subtree: %v", err)
		return nil
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Count != results[j].Count {
			return results[i].Count > results[j].Count
		}
		return strings.Compare(results[i].Query, results[j].Query) < 0
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
