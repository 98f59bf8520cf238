// Package store persists the pipeline's named documents (raw result sets,
// filter lists, segment snapshots) in sqlite, encoded as msgpack blobs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/avasiliev/semkit/pkg/segment"
)

// Store implements segment.Storage on top of a single sqlite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the document database at path. WAL mode
// keeps concurrent readers from blocking the writer.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// put encodes doc as msgpack and upserts it under (kind, id).
func (s *Store) put(ctx context.Context, kind, id string, doc any) error {
	body, err := msgpack.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding %s %s: %w", kind, id, err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO documents (kind, id, body, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)",
		kind, id, body,
	)
	return err
}

// get loads and decodes the document under (kind, id). A missing row comes
// back as segment.ErrNotFound so callers can tell absence from failure.
func (s *Store) get(ctx context.Context, kind, id string, doc any) error {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT body FROM documents WHERE kind = ? AND id = ?",
		kind, id,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, segment.ErrNotFound)
	}
	if err != nil {
		return err
	}
	if err := msgpack.Unmarshal(body, doc); err != nil {
		return fmt.Errorf("decoding %s %s: %w", kind, id, err)
	}
	return nil
}

// PutRawResult stores a raw query/count list under its id.
func (s *Store) PutRawResult(ctx context.Context, raw *segment.RawResult) error {
	return s.put(ctx, kindRawResult, raw.ID, raw)
}

func (s *Store) GetRawResult(ctx context.Context, id string) (*segment.RawResult, error) {
	var raw segment.RawResult
	if err := s.get(ctx, kindRawResult, id, &raw); err != nil {
		return nil, err
	}
	return &raw, nil
}

// PutFilterList stores a minus-word list under its id.
func (s *Store) PutFilterList(ctx context.Context, list segment.FilterList) error {
	return s.put(ctx, kindFilterList, list.ID, list)
}

// ListFiltersByIDs loads the named filter lists. Missing ids are skipped
// rather than failing the batch; filtering works with whatever exists.
func (s *Store) ListFiltersByIDs(ctx context.Context, ids []string) ([]segment.FilterList, error) {
	var lists []segment.FilterList
	for _, id := range ids {
		var list segment.FilterList
		err := s.get(ctx, kindFilterList, id, &list)
		if errors.Is(err, segment.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		lists = append(lists, list)
	}
	return lists, nil
}

func (s *Store) PutSegment(ctx context.Context, result *segment.Result) error {
	return s.put(ctx, kindSegment, result.SegmentID, result)
}

func (s *Store) GetSegment(ctx context.Context, id string) (*segment.Result, error) {
	var result segment.Result
	if err := s.get(ctx, kindSegment, id, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
