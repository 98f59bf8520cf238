package store

// Documents are opaque msgpack blobs addressed by (kind, id). The pipeline
// does read-modify-write with last-writer-wins; no row versioning.
const schema = `
CREATE TABLE IF NOT EXISTS documents (
	kind       TEXT NOT NULL,
	id         TEXT NOT NULL,
	body       BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (kind, id)
);
`

const (
	kindRawResult  = "raw_result"
	kindFilterList = "filter_list"
	kindSegment    = "segment"
)
