// Package checksum fingerprints saved transcripts so mirrors can skip
// unchanged items.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/starford/scriptorium/internal/models"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Entry returns a digest over the index summary of an item and its text.
// Fields are NUL-separated so adjacent values cannot run together.
func Entry(e models.IndexEntry, body string) string {
	h := sha256.New()
	for _, f := range []string{
		e.ID,
		e.Filename,
		e.Language,
		strconv.FormatFloat(e.Duration, 'g', -1, 64),
		string(e.Style),
		strconv.FormatFloat(e.CreatedAt, 'g', -1, 64),
		body,
	} {
		h.Write([]byte(f))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
