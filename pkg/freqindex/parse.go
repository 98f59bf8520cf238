package freqindex

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// Frequency sources arrive in whatever shape the reporting tool exported:
// a JSON record list, tab-separated lines, or "query count" lines with a
// trailing run of digits. Each shape gets its own parser; parsers are tried
// in a fixed order and the first one that yields records wins. A parser never
// looks at another parser's output.

// sourceParser turns raw file contents into records. An error or an empty
// result means "not my format" and the next parser is tried.
type sourceParser interface {
	Name() string
	Parse(data []byte) ([]Record, error)
}

var parsers = []sourceParser{
	recordListParser{},
	tabSeparatedParser{},
	spaceNumberParser{},
}

// recordListParser handles structured JSON exports: either a bare array of
// {query, count} objects or an object wrapping that array under "items" or
// "queries".
type recordListParser struct{}

func (recordListParser) Name() string { return "record-list" }

type rawRecord struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

type rawEnvelope struct {
	Items   []rawRecord `json:"items"`
	Queries []rawRecord `json:"queries"`
}

func (recordListParser) Parse(data []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty input")
	}

	var raw []rawRecord
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, err
		}
	case '{':
		var env rawEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, err
		}
		raw = env.Items
		if len(raw) == 0 {
			raw = env.Queries
		}
	default:
		return nil, fmt.Errorf("not a JSON record list")
	}

	records := make([]Record, 0, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r.Query) == "" || r.Count < 0 {
			continue
		}
		records = append(records, Record{Query: r.Query, Count: r.Count})
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("record list contained no usable entries")
	}
	return records, nil
}

// tabSeparatedParser handles "query<TAB>count" lines. Lines without a tab or
// with a non-numeric count field are skipped silently.
type tabSeparatedParser struct{}

func (tabSeparatedParser) Name() string { return "tab-separated" }

func (tabSeparatedParser) Parse(data []byte) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		query, countStr, found := strings.Cut(line, "\t")
		if !found {
			continue
		}
		count, err := strconv.Atoi(strings.TrimSpace(countStr))
		if err != nil || count < 0 {
			continue
		}
		query = strings.TrimSpace(query)
		if query == "" {
			continue
		}
		records = append(records, Record{Query: query, Count: count})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no tab-separated entries found")
	}
	return records, nil
}

// spaceNumberParser handles "query count" lines where the count is the
// trailing run of digits. Everything before that run belongs to the query.
type spaceNumberParser struct{}

func (spaceNumberParser) Name() string { return "space-number" }

func (spaceNumberParser) Parse(data []byte) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		idx := strings.LastIndexByte(line, ' ')
		if idx < 0 {
			continue
		}
		countStr := line[idx+1:]
		count, err := strconv.Atoi(countStr)
		if err != nil || count < 0 {
			continue
		}
		query := strings.TrimSpace(line[:idx])
		if query == "" {
			continue
		}
		records = append(records, Record{Query: query, Count: count})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no space-separated entries found")
	}
	return records, nil
}

// ParseSource runs the parser chain over raw file contents.
func ParseSource(data []byte) ([]Record, error) {
	var firstErr error
	for _, p := range parsers {
		records, err := p.Parse(data)
		if err == nil {
			log.Debugf("Parsed %d records with %s parser", len(records), p.Name())
			return records, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, fmt.Errorf("no parser accepted the source: %w", firstErr)
}

// ParseFile reads and parses one frequency source file.
func ParseFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source file %s: %w", path, err)
	}
	return ParseSource(data)
}
