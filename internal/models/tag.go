// ABOUTME: Tag model for hierarchical, slash-delimited note tags.
// ABOUTME: Normalizes raw tag input into its canonical name, slug, and level.

package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PathSeparator delimits the segments of a tag path.
const PathSeparator = "/"

type Tag struct {
	ID        uuid.UUID  `json:"id"`
	UserID    string     `json:"user_id"`
	Name      string     `json:"name"`
	Slug      string     `json:"slug"`
	Level     int        `json:"level"`
	ParentID  *uuid.UUID `json:"parent_id"`
	CreatedAt time.Time  `json:"created_at"`
}

// Canonical is the stored form of a raw tag string.
type Canonical struct {
	Name  string
	Slug  string
	Level int
}

// NormalizeTag converts raw user input into its canonical form. It never fails;
// an empty or blank input yields an empty name, and callers reject that before storing.
func NormalizeTag(raw string) Canonical {
	name := strings.ToLower(strings.TrimSpace(raw))
	return Canonical{
		Name:  name,
		Slug:  Slugify(name),
		Level: strings.Count(name, PathSeparator),
	}
}

// Slugify maps a canonical tag name to its slug: separators become dashes, then
// anything outside [a-z0-9-] is dropped. Each separator yields exactly one dash.
func Slugify(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))
	for _, r := range name {
		switch {
		case r == '/':
			sb.WriteByte('-')
		case r == '-', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// ParentName returns the path of the tag one level up, or false for a root tag.
func ParentName(name string) (string, bool) {
	i := strings.LastIndex(name, PathSeparator)
	if i < 0 {
		return "", false
	}
	return name[:i], true
}

func NewTag(userID, raw string) *Tag {
	c := NormalizeTag(raw)
	return &Tag{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      c.Name,
		Slug:      c.Slug,
		Level:     c.Level,
		CreatedAt: time.Now(),
	}
}

// Rename replaces the tag's canonical fields with those of raw.
func (t *Tag) Rename(raw string) {
	c := NormalizeTag(raw)
	t.Name = c.Name
	t.Slug = c.Slug
	t.Level = c.Level
}

// TagNode is a tag positioned in a user's tag forest. It is rebuilt on
// every fetch and never stored.
type TagNode struct {
	*Tag
	Children  []*TagNode `json:"children"`
	NoteCount int        `json:"note_count"`
}
