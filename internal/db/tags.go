// ABOUTME: Database operations for tags and note-tag associations.
// ABOUTME: Provides tag creation, rename, cascade delete, suggestions, counts, and note tagging.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harper/marknote/internal/models"
	"github.com/harper/marknote/internal/tagtree"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrTagNotFound  = errors.New("tag not found")
	ErrTagExists    = errors.New("tag already exists")
	ErrEmptyTagName = errors.New("tag name cannot be empty")
)

// DefaultSuggestLimit is the number of autocomplete suggestions returned.
const DefaultSuggestLimit = 10

const tagColumns = `t.id, t.user_id, t.name, t.slug, t.level, t.parent_id, t.created_at`

func scanTag(s rowScanner, extra ...any) (*models.Tag, error) {
	tag := &models.Tag{}
	var idStr string
	var parent sql.NullString
	dest := []any{&idStr, &tag.UserID, &tag.Name, &tag.Slug, &tag.Level, &parent, &tag.CreatedAt}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid tag ID in database: %w", err)
	}
	tag.ID = id
	if parent.Valid {
		pid, err := uuid.Parse(parent.String)
		if err != nil {
			return nil, fmt.Errorf("invalid parent tag ID in database: %w", err)
		}
		tag.ParentID = &pid
	}
	return tag, nil
}

func collectTags(rows *sql.Rows) ([]*models.Tag, error) {
	defer func() { _ = rows.Close() }()

	tags := []*models.Tag{}
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tags, nil
}

func parentIDArg(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

// ListTags returns every tag the user owns, ordered by name.
func ListTags(ctx context.Context, q Querier, userID string) ([]*models.Tag, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM tags t WHERE t.user_id = ? ORDER BY t.name`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	return collectTags(rows)
}

// NoteCounts maps each of the user's tags to the number of distinct notes
// linked directly to it. Tags without notes are absent.
func NoteCounts(ctx context.Context, q Querier, userID string) (map[uuid.UUID]int, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT nt.tag_id, COUNT(DISTINCT nt.note_id)
		 FROM note_tags nt
		 JOIN tags t ON t.id = nt.tag_id
		 WHERE t.user_id = ?
		 GROUP BY nt.tag_id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var idStr string
		var count int
		if err := rows.Scan(&idStr, &count); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("invalid tag ID in database: %w", err)
		}
		counts[id] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

// GetTagTree loads the user's tags and counts and assembles the forest.
func GetTagTree(ctx context.Context, q Querier, userID string) ([]*models.TagNode, error) {
	tags, err := ListTags(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	counts, err := NoteCounts(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("count notes per tag: %w", err)
	}
	return tagtree.Build(tags, counts), nil
}

func GetTagByID(ctx context.Context, q Querier, userID string, id uuid.UUID) (*models.Tag, error) {
	tag, err := scanTag(q.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags t WHERE t.id = ? AND t.user_id = ?`,
		id.String(), userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTagNotFound
	}
	return tag, err
}

// GetTagByName looks a tag up by its raw or canonical name.
func GetTagByName(ctx context.Context, q Querier, userID, name string) (*models.Tag, error) {
	canonical := models.NormalizeTag(name).Name
	tag, err := scanTag(q.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags t WHERE t.name = ? AND t.user_id = ?`,
		canonical, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTagNotFound
	}
	return tag, err
}

// CreateTag inserts a new tag. Without an explicit parent, the parent is the
// existing tag named by the path minus its last segment, if any.
func CreateTag(ctx context.Context, q Querier, userID, raw string, parentID *uuid.UUID) (*models.Tag, error) {
	tag := models.NewTag(userID, raw)
	if tag.Name == "" {
		return nil, ErrEmptyTagName
	}

	_, err := GetTagByName(ctx, q, userID, tag.Name)
	if err == nil {
		return nil, fmt.Errorf("%w: %s", ErrTagExists, tag.Name)
	}
	if !errors.Is(err, ErrTagNotFound) {
		return nil, err
	}

	if parentID != nil {
		parent, err := GetTagByID(ctx, q, userID, *parentID)
		if err != nil {
			return nil, fmt.Errorf("parent: %w", err)
		}
		tag.ParentID = &parent.ID
	}

	if err := insertTag(ctx, q, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// GetOrCreateTag returns the user's tag with the canonical form of raw,
// creating it when missing.
func GetOrCreateTag(ctx context.Context, q Querier, userID, raw string) (*models.Tag, error) {
	tag := models.NewTag(userID, raw)
	if tag.Name == "" {
		return nil, ErrEmptyTagName
	}

	existing, err := GetTagByName(ctx, q, userID, tag.Name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrTagNotFound) {
		return nil, err
	}

	if err := insertTag(ctx, q, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// insertTag stores tag, resolving its parent by path when none is set, and
// points existing direct children that had no parent at the new row.
func insertTag(ctx context.Context, q Querier, tag *models.Tag) error {
	if tag.ParentID == nil {
		if parentName, ok := models.ParentName(tag.Name); ok {
			parent, err := GetTagByName(ctx, q, tag.UserID, parentName)
			switch {
			case err == nil:
				tag.ParentID = &parent.ID
			case !errors.Is(err, ErrTagNotFound):
				return err
			}
		}
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO tags (id, user_id, name, slug, level, parent_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tag.ID.String(), tag.UserID, tag.Name, tag.Slug, tag.Level, parentIDArg(tag.ParentID), tag.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrTagExists, tag.Name)
	}
	if err != nil {
		return fmt.Errorf("insert tag %q: %w", tag.Name, err)
	}

	prefix := tag.Name + models.PathSeparator
	_, err = q.ExecContext(ctx,
		`UPDATE tags SET parent_id = ?
		 WHERE user_id = ? AND parent_id IS NULL AND level = ?
		   AND substr(name, 1, length(?)) = ?`,
		tag.ID.String(), tag.UserID, tag.Level+1, prefix, prefix,
	)
	if err != nil {
		return fmt.Errorf("link children of %q: %w", tag.Name, err)
	}
	return nil
}

// DeleteTag removes the tag, every tag below it in the path hierarchy, and all
// of their note associations. It returns the number of tags removed.
func DeleteTag(ctx context.Context, db *sql.DB, userID string, id uuid.UUID) (int, error) {
	var removed int
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		tag, err := GetTagByID(ctx, tx, userID, id)
		if err != nil {
			return err
		}

		prefix := tag.Name + models.PathSeparator
		result, err := tx.ExecContext(ctx,
			`DELETE FROM tags
			 WHERE user_id = ? AND (id = ? OR substr(name, 1, length(?)) = ?)`,
			userID, tag.ID.String(), prefix, prefix,
		)
		if err != nil {
			return fmt.Errorf("delete tag %q: %w", tag.Name, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		removed = int(affected)
		return nil
	})
	return removed, err
}

// RenameTag gives the tag a new path and moves its descendants with it, so
// "work" -> "projects" also turns "work/a" into "projects/a". Any collision
// with an existing name aborts the whole rename.
func RenameTag(ctx context.Context, db *sql.DB, userID string, id uuid.UUID, newName string) (*models.Tag, error) {
	target := models.NormalizeTag(newName)
	if target.Name == "" {
		return nil, ErrEmptyTagName
	}

	var renamed *models.Tag
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		tag, err := GetTagByID(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if tag.Name == target.Name {
			renamed = tag
			return nil
		}

		all, err := ListTags(ctx, tx, userID)
		if err != nil {
			return err
		}

		oldPrefix := tag.Name + models.PathSeparator
		var moving []*models.Tag
		staying := make(map[string]bool, len(all))
		for _, t := range all {
			if t.ID == tag.ID || strings.HasPrefix(t.Name, oldPrefix) {
				moving = append(moving, t)
				continue
			}
			staying[t.Name] = true
		}

		for _, t := range moving {
			t.Rename(target.Name + strings.TrimPrefix(t.Name, tag.Name))
			if staying[t.Name] {
				return fmt.Errorf("%w: %s", ErrTagExists, t.Name)
			}
		}

		// Park moving rows on unique placeholders first so an intermediate
		// state never trips UNIQUE(user_id, name).
		for _, t := range moving {
			if _, err := tx.ExecContext(ctx,
				`UPDATE tags SET name = ? WHERE id = ?`, "\x00"+t.ID.String(), t.ID.String(),
			); err != nil {
				return fmt.Errorf("park tag: %w", err)
			}
		}
		for _, t := range moving {
			if _, err := tx.ExecContext(ctx,
				`UPDATE tags SET name = ?, slug = ?, level = ? WHERE id = ?`,
				t.Name, t.Slug, t.Level, t.ID.String(),
			); err != nil {
				return fmt.Errorf("rename tag to %q: %w", t.Name, err)
			}
		}

		if err := reconcileParents(ctx, tx, userID); err != nil {
			return err
		}
		renamed, err = GetTagByID(ctx, tx, userID, tag.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return renamed, nil
}

// reconcileParents rewrites every stored parent_id that disagrees with the
// parent implied by the tag's path.
func reconcileParents(ctx context.Context, q Querier, userID string) error {
	tags, err := ListTags(ctx, q, userID)
	if err != nil {
		return err
	}
	byName := make(map[string]uuid.UUID, len(tags))
	for _, t := range tags {
		byName[t.Name] = t.ID
	}

	for _, t := range tags {
		var want *uuid.UUID
		if parentName, ok := models.ParentName(t.Name); ok {
			if pid, found := byName[parentName]; found {
				want = &pid
			}
		}
		if sameParent(t.ParentID, want) {
			continue
		}
		if _, err := q.ExecContext(ctx,
			`UPDATE tags SET parent_id = ? WHERE id = ?`, parentIDArg(want), t.ID.String(),
		); err != nil {
			return fmt.Errorf("update parent of %q: %w", t.Name, err)
		}
		t.ParentID = want
	}
	return nil
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// SuggestTags returns up to limit tags whose name contains query.
func SuggestTags(ctx context.Context, q Querier, userID, query string, limit int) ([]*models.Tag, error) {
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}
	needle := strings.ToLower(strings.TrimSpace(query))

	sqlQuery := `SELECT ` + tagColumns + ` FROM tags t WHERE t.user_id = ?`
	args := []any{userID}
	if needle != "" {
		sqlQuery += ` AND instr(t.name, ?) > 0`
		args = append(args, needle)
	}
	sqlQuery += ` ORDER BY t.name LIMIT ?`
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	return collectTags(rows)
}

func linkTag(ctx context.Context, q Querier, noteID, tagID uuid.UUID) error {
	_, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO note_tags (note_id, tag_id, created_at) VALUES (?, ?, ?)`,
		noteID.String(), tagID.String(), time.Now(),
	)
	return err
}

// SetNoteTags replaces all of a note's tag associations with rawNames,
// creating missing tags. Blank and duplicate names are skipped.
func SetNoteTags(ctx context.Context, db *sql.DB, userID string, noteID uuid.UUID, rawNames []string) ([]*models.Tag, error) {
	var tags []*models.Tag
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := GetNoteByID(ctx, tx, userID, noteID); err != nil {
			return err
		}
		var err error
		tags, err = replaceNoteTags(ctx, tx, userID, noteID, rawNames)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

// CreateNoteWithTags inserts note and links rawNames to it in one
// transaction, so a tagging failure leaves no note behind.
func CreateNoteWithTags(ctx context.Context, db *sql.DB, note *models.Note, rawNames []string) ([]*models.Tag, error) {
	var tags []*models.Tag
	err := withTx(ctx, db, func(tx *sql.Tx) error {
		if err := CreateNote(ctx, tx, note); err != nil {
			return err
		}
		var err error
		tags, err = replaceNoteTags(ctx, tx, note.UserID, note.ID, rawNames)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func replaceNoteTags(ctx context.Context, q Querier, userID string, noteID uuid.UUID, rawNames []string) ([]*models.Tag, error) {
	if _, err := q.ExecContext(ctx, `DELETE FROM note_tags WHERE note_id = ?`, noteID.String()); err != nil {
		return nil, fmt.Errorf("clear note tags: %w", err)
	}

	tags := []*models.Tag{}
	seen := make(map[string]bool, len(rawNames))
	for _, raw := range rawNames {
		name := models.NormalizeTag(raw).Name
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		tag, err := GetOrCreateTag(ctx, q, userID, name)
		if err != nil {
			return nil, err
		}
		if err := linkTag(ctx, q, noteID, tag.ID); err != nil {
			return nil, fmt.Errorf("link tag %q: %w", name, err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func AddTagToNote(ctx context.Context, q Querier, userID string, noteID uuid.UUID, tagName string) (*models.Tag, error) {
	if _, err := GetNoteByID(ctx, q, userID, noteID); err != nil {
		return nil, err
	}
	tag, err := GetOrCreateTag(ctx, q, userID, tagName)
	if err != nil {
		return nil, err
	}
	if err := linkTag(ctx, q, noteID, tag.ID); err != nil {
		return nil, err
	}
	return tag, nil
}

func RemoveTagFromNote(ctx context.Context, q Querier, userID string, noteID uuid.UUID, tagName string) error {
	_, err := q.ExecContext(ctx,
		`DELETE FROM note_tags
		 WHERE note_id = ? AND tag_id = (SELECT id FROM tags WHERE user_id = ? AND name = ?)`,
		noteID.String(), userID, models.NormalizeTag(tagName).Name,
	)
	return err
}

func GetNoteTags(ctx context.Context, q Querier, noteID uuid.UUID) ([]*models.Tag, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM tags t
		 JOIN note_tags nt ON t.id = nt.tag_id
		 WHERE nt.note_id = ?
		 ORDER BY t.name`,
		noteID.String(),
	)
	if err != nil {
		return nil, err
	}
	return collectTags(rows)
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
