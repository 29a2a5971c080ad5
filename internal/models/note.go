// ABOUTME: Note model representing a markdown note or saved URL with metadata.
// ABOUTME: Provides constructor and methods for note lifecycle.

package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultNoteTitle is used when a note is saved without a title.
const DefaultNoteTitle = "Untitled"

type Note struct {
	ID             uuid.UUID  `json:"id"`
	UserID         string     `json:"user_id"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	IsURL          bool       `json:"is_url"`
	URL            string     `json:"url,omitempty"`
	URLTitle       string     `json:"url_title,omitempty"`
	URLDescription string     `json:"url_description,omitempty"`
	URLFetchedAt   *time.Time `json:"url_fetched_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NoteWithTags pairs a note with the tags linked to it.
type NoteWithTags struct {
	*Note
	Tags []*Tag `json:"tags"`
}

func NewNote(userID, title, content string) *Note {
	if title == "" {
		title = DefaultNoteTitle
	}
	now := time.Now()
	return &Note{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (n *Note) Touch() {
	n.UpdatedAt = time.Now()
}

// SetURLMetadata records what was scraped from the note's URL.
func (n *Note) SetURLMetadata(title, description string, fetchedAt time.Time) {
	n.URLTitle = title
	n.URLDescription = description
	n.URLFetchedAt = &fetchedAt
}
