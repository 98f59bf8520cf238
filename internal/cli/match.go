// Package cli implements the one-shot command line mode: match a keyword
// list file against an ingested frequency directory and print the results.
// It is primarily intended for testing data sets before serving them.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/avasiliev/semkit/pkg/freqindex"
)

// ReadKeywordFile reads one keyword per line, skipping blanks and lines
// starting with '#'.
func ReadKeywordFile(path string) ([]freqindex.Keyword, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyword file %s: %w", path, err)
	}
	defer f.Close()

	var keywords []freqindex.Keyword
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keywords = append(keywords, freqindex.Keyword{Name: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading keyword file %s: %w", path, err)
	}
	return keywords, nil
}

// RunMatch matches the keyword file against the index and prints one line
// per keyword plus a summary.
func RunMatch(index *freqindex.Index, keywordPath string) error {
	keywords, err := ReadKeywordFile(keywordPath)
	if err != nil {
		return err
	}
	if len(keywords) == 0 {
		return fmt.Errorf("keyword file %s contains no keywords", keywordPath)
	}

	batch := index.MatchBatch(keywords)
	for _, kw := range keywords {
		res := batch.Results[kw.Key()]
		if !res.Found {
			fmt.Printf("%-40s  -\n", kw.Name)
			continue
		}
		fmt.Printf("%-40s  %8d  [%s]\n", kw.Name, res.Count, res.Tier)
	}

	fmt.Printf("\n%d/%d matched (exact=%d word-order=%d stem=%d), %d queries in database\n",
		batch.Matched, len(keywords),
		batch.TierCounts[freqindex.TierExact],
		batch.TierCounts[freqindex.TierWordOrder],
		batch.TierCounts[freqindex.TierStem],
		batch.TotalInDatabase)

	log.Debugf("Match run complete: %d keywords against %d queries", len(keywords), batch.TotalInDatabase)
	return nil
}
