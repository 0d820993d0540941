//go:build !sqlite_fts5

package search

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE over the transcripts.body column.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _ string) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) {}

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) Search(query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 20
	}
	like := likePattern(query)
	rows, err := db.conn.Query(`
		SELECT id, filename, body
		FROM transcripts
		WHERE filename LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\'
		ORDER BY created_at
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("search: query: %w", err)
	}
	defer rows.Close()

	out := []Result{}
	for rows.Next() {
		var r Result
		var body string
		if err := rows.Scan(&r.ID, &r.Filename, &body); err != nil {
			return nil, err
		}
		r.Snippet = Snippet(body, query)
		out = append(out, r)
	}
	return out, rows.Err()
}
