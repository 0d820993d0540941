package search

import "strings"

const snippetRadius = 60

// Snippet returns the text around the first case-insensitive match of query,
// or the start of text when there is no match.
func Snippet(text, query string) string {
	pos, n := -1, 0
	if query != "" {
		pos, n = strings.Index(strings.ToLower(text), strings.ToLower(query)), len(query)
	}
	if pos < 0 {
		pos, n = 0, 0
	}
	// Lowercasing can change byte lengths, so clamp against the original.
	end := min(len(text), pos+n+snippetRadius)
	start := min(max(0, pos-snippetRadius), end)
	return strings.ToValidUTF8(text[start:end], "")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern matches query literally anywhere in a LIKE ... ESCAPE '\' clause.
func likePattern(query string) string {
	return "%" + likeEscaper.Replace(query) + "%"
}
