// ABOUTME: Database operations for notes.
// ABOUTME: Provides user-scoped CRUD, prefix lookup, and filtered listing for notes.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harper/marknote/internal/models"
)

var ErrPrefixTooShort = errors.New("prefix must be at least 6 characters")
var ErrAmbiguousPrefix = errors.New("prefix matches multiple notes")
var ErrNoteNotFound = errors.New("note not found")

// DefaultNoteLimit caps listings when the caller does not ask for a size.
const DefaultNoteLimit = 50

const noteColumns = `n.id, n.user_id, n.title, n.content, n.is_url, n.url, n.url_title,
	n.url_description, n.url_fetched_at, n.created_at, n.updated_at`

// NoteKind restricts a listing to plain notes or saved URLs.
type NoteKind string

const (
	KindAll   NoteKind = "all"
	KindNotes NoteKind = "notes"
	KindURLs  NoteKind = "urls"
)

// NoteFilter selects and orders notes for ListNotes.
type NoteFilter struct {
	TagID     *uuid.UUID
	Search    string
	Kind      NoteKind
	SortBy    string // updated_at, created_at, or title
	SortOrder string // asc or desc
	Limit     int
	Offset    int
}

var sortColumns = map[string]string{
	"updated_at": "n.updated_at",
	"created_at": "n.created_at",
	"title":      "n.title",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(s rowScanner, extra ...any) (*models.Note, error) {
	note := &models.Note{}
	var idStr string
	var url, urlTitle, urlDesc sql.NullString
	var fetchedAt sql.NullTime
	dest := []any{
		&idStr, &note.UserID, &note.Title, &note.Content, &note.IsURL, &url, &urlTitle,
		&urlDesc, &fetchedAt, &note.CreatedAt, &note.UpdatedAt,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid note ID in database: %w", err)
	}
	note.ID = id
	note.URL = url.String
	note.URLTitle = urlTitle.String
	note.URLDescription = urlDesc.String
	if fetchedAt.Valid {
		t := fetchedAt.Time
		note.URLFetchedAt = &t
	}
	return note, nil
}

func collectNotes(rows *sql.Rows) ([]*models.Note, error) {
	defer func() { _ = rows.Close() }()

	notes := []*models.Note{}
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notes, nil
}

func CreateNote(ctx context.Context, q Querier, note *models.Note) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO notes (id, user_id, title, content, is_url, url, url_title, url_description,
		                    url_fetched_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		note.ID.String(), note.UserID, note.Title, note.Content, note.IsURL,
		nullString(note.URL), nullString(note.URLTitle), nullString(note.URLDescription),
		note.URLFetchedAt, note.CreatedAt, note.UpdatedAt,
	)
	return err
}

func GetNoteByID(ctx context.Context, q Querier, userID string, id uuid.UUID) (*models.Note, error) {
	note, err := scanNote(q.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes n WHERE n.id = ? AND n.user_id = ?`,
		id.String(), userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoteNotFound
	}
	if err != nil {
		return nil, err
	}
	return note, nil
}

func GetNoteByPrefix(ctx context.Context, q Querier, userID, prefix string) (*models.Note, error) {
	if len(prefix) < 6 {
		return nil, ErrPrefixTooShort
	}

	rows, err := q.QueryContext(ctx,
		`SELECT `+noteColumns+` FROM notes n
		 WHERE n.user_id = ? AND substr(n.id, 1, length(?)) = ?`,
		userID, prefix, strings.ToLower(prefix),
	)
	if err != nil {
		return nil, err
	}
	notes, err := collectNotes(rows)
	if err != nil {
		return nil, err
	}

	if len(notes) == 0 {
		return nil, ErrNoteNotFound
	}
	if len(notes) > 1 {
		return nil, fmt.Errorf("%w: %d matches", ErrAmbiguousPrefix, len(notes))
	}
	return notes[0], nil
}

// ResolveNote accepts either a full note ID or a unique prefix of one.
func ResolveNote(ctx context.Context, q Querier, userID, ref string) (*models.Note, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return GetNoteByID(ctx, q, userID, id)
	}
	return GetNoteByPrefix(ctx, q, userID, ref)
}

func ListNotes(ctx context.Context, q Querier, userID string, filter *NoteFilter) ([]*models.Note, error) {
	if filter == nil {
		filter = &NoteFilter{}
	}

	var sb strings.Builder
	args := []any{userID}
	sb.WriteString(`SELECT ` + noteColumns + ` FROM notes n WHERE n.user_id = ?`)

	if filter.TagID != nil {
		sb.WriteString(` AND EXISTS (SELECT 1 FROM note_tags nt WHERE nt.note_id = n.id AND nt.tag_id = ?)`)
		args = append(args, filter.TagID.String())
	}

	switch filter.Kind {
	case KindNotes:
		sb.WriteString(` AND n.is_url = 0`)
	case KindURLs:
		sb.WriteString(` AND n.is_url = 1`)
	}

	if s := strings.ToLower(strings.TrimSpace(filter.Search)); s != "" {
		sb.WriteString(` AND (instr(lower(n.title), ?) > 0 OR instr(lower(n.content), ?) > 0)`)
		args = append(args, s, s)
	}

	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = sortColumns["updated_at"]
	}
	direction := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		direction = "ASC"
	}
	fmt.Fprintf(&sb, ` ORDER BY %s %s, n.id %s`, column, direction, direction)

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultNoteLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	sb.WriteString(` LIMIT ? OFFSET ?`)
	args = append(args, limit, offset)

	rows, err := q.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	return collectNotes(rows)
}

func UpdateNote(ctx context.Context, q Querier, note *models.Note) error {
	result, err := q.ExecContext(ctx,
		`UPDATE notes SET title = ?, content = ?, is_url = ?, url = ?, url_title = ?,
		        url_description = ?, url_fetched_at = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		note.Title, note.Content, note.IsURL, nullString(note.URL), nullString(note.URLTitle),
		nullString(note.URLDescription), note.URLFetchedAt, note.UpdatedAt,
		note.ID.String(), note.UserID,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNoteNotFound
	}
	return nil
}

func DeleteNote(ctx context.Context, q Querier, userID string, id uuid.UUID) error {
	result, err := q.ExecContext(ctx, `DELETE FROM notes WHERE id = ? AND user_id = ?`, id.String(), userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNoteNotFound
	}
	return nil
}

// WithTags attaches each note's tags using a single query.
func WithTags(ctx context.Context, q Querier, notes []*models.Note) ([]*models.NoteWithTags, error) {
	out := make([]*models.NoteWithTags, len(notes))
	if len(notes) == 0 {
		return out, nil
	}

	index := make(map[string]*models.NoteWithTags, len(notes))
	placeholders := make([]string, len(notes))
	args := make([]any, len(notes))
	for i, n := range notes {
		out[i] = &models.NoteWithTags{Note: n, Tags: []*models.Tag{}}
		index[n.ID.String()] = out[i]
		placeholders[i] = "?"
		args[i] = n.ID.String()
	}

	rows, err := q.QueryContext(ctx,
		`SELECT `+tagColumns+`, nt.note_id FROM note_tags nt
		 JOIN tags t ON t.id = nt.tag_id
		 WHERE nt.note_id IN (`+strings.Join(placeholders, ", ")+`)
		 ORDER BY t.name`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var noteID string
		tag, err := scanTag(rows, &noteID)
		if err != nil {
			return nil, err
		}
		if nwt := index[noteID]; nwt != nil {
			nwt.Tags = append(nwt.Tags, tag)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
