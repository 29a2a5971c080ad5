// ABOUTME: FTS5 full-text search operations for notes.
// ABOUTME: Provides ranked, user-scoped search across note text and URL metadata.

package db

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/harper/marknote/internal/models"
)

// MinSearchLength is the shortest query SearchNotes will run.
const MinSearchLength = 2

type SearchResult struct {
	*models.Note
	Rank float64 `json:"rank"`
}

// SearchNotes runs a ranked full-text search. Queries shorter than
// MinSearchLength return no results rather than matching everything.
func SearchNotes(ctx context.Context, q Querier, userID, query string, limit int) ([]*SearchResult, error) {
	match := ftsQuery(query)
	if match == "" {
		return []*SearchResult{}, nil
	}
	if limit <= 0 {
		limit = DefaultNoteLimit
	}

	rows, err := q.QueryContext(ctx,
		`SELECT `+noteColumns+`, rank
		 FROM notes_fts
		 JOIN notes n ON notes_fts.rowid = n.rowid
		 WHERE notes_fts MATCH ? AND n.user_id = ?
		 ORDER BY rank
		 LIMIT ?`,
		match, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	results := []*SearchResult{}
	for rows.Next() {
		result := &SearchResult{}
		note, err := scanNote(rows, &result.Rank)
		if err != nil {
			return nil, err
		}
		result.Note = note
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// ftsQuery quotes every whitespace-separated term as a prefix match so user
// punctuation is never parsed as FTS5 syntax.
func ftsQuery(query string) string {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinSearchLength {
		return ""
	}
	fields := strings.Fields(query)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if strings.IndexFunc(f, isWordRune) < 0 {
			continue
		}
		terms = append(terms, `"`+strings.ReplaceAll(f, `"`, `""`)+`"*`)
	}
	return strings.Join(terms, " ")
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
