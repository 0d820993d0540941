package search

import (
	"fmt"
)

// Row is one indexed transcript.
type Row struct {
	ID        string
	Filename  string
	Language  string
	Duration  float64
	Style     string
	CreatedAt float64
	Checksum  string
}

// Result is one search hit.
type Result struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Snippet  string `json:"snippet"`
}

// Upsert inserts or replaces a transcript and its FTS entry within a transaction.
func (db *DB) Upsert(r Row, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("search: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO transcripts (id, filename, language, duration, style, created_at, checksum, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename   = excluded.filename,
			language   = excluded.language,
			duration   = excluded.duration,
			style      = excluded.style,
			created_at = excluded.created_at,
			checksum   = excluded.checksum,
			body       = excluded.body
	`, r.ID, r.Filename, r.Language, r.Duration, r.Style, r.CreatedAt, r.Checksum, body)
	if err != nil {
		return fmt.Errorf("search: upsert transcript: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, r.ID, r.Filename, body); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a transcript and its FTS entry.
func (db *DB) Delete(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("search: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	if _, err := tx.Exec(`DELETE FROM transcripts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("search: delete transcript: %w", err)
	}
	return tx.Commit()
}

// AllChecksums returns id → checksum for every indexed transcript.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, checksum FROM transcripts`)
	if err != nil {
		return nil, fmt.Errorf("search: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, cs string
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, err
		}
		out[id] = cs
	}
	return out, rows.Err()
}

// Count returns the number of indexed transcripts.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM transcripts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("search: count: %w", err)
	}
	return n, nil
}
