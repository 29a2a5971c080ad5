// ABOUTME: Notes service coordinating storage, tagging, and URL metadata.
// ABOUTME: Shared by the CLI, the HTTP API, and the MCP server.

package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harper/marknote/internal/db"
	"github.com/harper/marknote/internal/metadata"
	"github.com/harper/marknote/internal/models"
	"go.uber.org/zap"
)

var (
	// ErrMissingUser is returned when an operation is attempted without a user.
	ErrMissingUser   = errors.New("user id is required")
	ErrFetchDisabled = errors.New("metadata fetching is disabled")
)

// MetadataFetcher looks up page metadata for URL notes.
type MetadataFetcher interface {
	Fetch(ctx context.Context, url string) (*metadata.Metadata, error)
}

type Service struct {
	db       *sql.DB
	fetcher  MetadataFetcher
	validate *inputValidator
	logger   *zap.Logger
}

// NewService builds a Service. A nil fetcher disables metadata lookups.
func NewService(conn *sql.DB, fetcher MetadataFetcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:       conn,
		fetcher:  fetcher,
		validate: newValidator(),
		logger:   logger,
	}
}

type CreateNoteInput struct {
	Title   string   `json:"title" validate:"max=500"`
	Content string   `json:"content" validate:"max=1000000"`
	IsURL   bool     `json:"is_url"`
	URL     string   `json:"url" validate:"omitempty,http_url,max=2048"`
	Tags    []string `json:"tags" validate:"max=50,dive,max=200"`
}

// UpdateNoteInput changes only the fields that are set. A non-nil Tags
// replaces every tag on the note, so an empty slice clears them.
type UpdateNoteInput struct {
	Title          *string  `json:"title" validate:"omitempty,max=500"`
	Content        *string  `json:"content" validate:"omitempty,max=1000000"`
	IsURL          *bool    `json:"is_url"`
	URL            *string  `json:"url" validate:"omitempty,http_url,max=2048"`
	URLTitle       *string  `json:"url_title" validate:"omitempty,max=500"`
	URLDescription *string  `json:"url_description" validate:"omitempty,max=2000"`
	Tags           []string `json:"tags" validate:"omitempty,max=50,dive,max=200"`
}

type ListNotesInput struct {
	TagID     string `json:"tag_id" validate:"omitempty,uuid"`
	Tag       string `json:"tag"`
	Search    string `json:"search" validate:"max=200"`
	Kind      string `json:"kind" validate:"omitempty,oneof=all notes urls"`
	SortBy    string `json:"sort_by" validate:"omitempty,oneof=updated_at created_at title"`
	SortOrder string `json:"sort_order" validate:"omitempty,oneof=asc desc ASC DESC"`
	Limit     int    `json:"limit" validate:"gte=0,lte=200"`
	Offset    int    `json:"offset" validate:"gte=0"`
}

type CreateTagInput struct {
	Name     string `json:"name" validate:"required,max=200"`
	ParentID string `json:"parent_id" validate:"omitempty,uuid"`
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrMissingUser
	}
	return nil
}

// CreateNote saves a note. For URL notes it fetches the page metadata and
// uses the page title when the caller gave none; a failed fetch is logged and
// the note is saved without metadata.
func (s *Service) CreateNote(ctx context.Context, userID string, in CreateNoteInput) (*models.NoteWithTags, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := s.validate.validate(in); err != nil {
		return nil, err
	}
	if in.IsURL && strings.TrimSpace(in.URL) == "" {
		return nil, fieldError("url", "is required")
	}

	note := models.NewNote(userID, strings.TrimSpace(in.Title), in.Content)
	note.IsURL = in.IsURL
	note.URL = strings.TrimSpace(in.URL)

	if note.IsURL {
		if meta := s.lookup(ctx, note.URL); meta != nil {
			note.SetURLMetadata(meta.Title, meta.Description, meta.FetchedAt)
			if note.Title == models.DefaultNoteTitle {
				note.Title = meta.Title
			}
		}
	}

	tags, err := db.CreateNoteWithTags(ctx, s.db, note, in.Tags)
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}

	s.logger.Info("note created",
		zap.String("user_id", userID),
		zap.String("note_id", note.ID.String()),
		zap.Bool("is_url", note.IsURL),
		zap.Int("tags", len(tags)),
	)
	return &models.NoteWithTags{Note: note, Tags: tags}, nil
}

// lookup fetches metadata, returning nil when there is no fetcher or the
// fetch fails.
func (s *Service) lookup(ctx context.Context, url string) *metadata.Metadata {
	if s.fetcher == nil {
		return nil
	}
	meta, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		s.logger.Warn("url metadata fetch failed", zap.String("url", url), zap.Error(err))
		return nil
	}
	return meta
}

// UpdateNote applies a partial update to the note identified by ref (a full
// ID or a unique prefix). Changing the URL of a URL note refreshes its
// metadata unless the caller supplied url_title or url_description.
func (s *Service) UpdateNote(ctx context.Context, userID, ref string, in UpdateNoteInput) (*models.NoteWithTags, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := s.validate.validate(in); err != nil {
		return nil, err
	}

	note, err := db.ResolveNote(ctx, s.db, userID, ref)
	if err != nil {
		return nil, err
	}

	urlChanged := false
	if in.Title != nil {
		note.Title = strings.TrimSpace(*in.Title)
		if note.Title == "" {
			note.Title = models.DefaultNoteTitle
		}
	}
	if in.Content != nil {
		note.Content = *in.Content
	}
	if in.IsURL != nil {
		note.IsURL = *in.IsURL
	}
	if in.URL != nil {
		next := strings.TrimSpace(*in.URL)
		urlChanged = next != note.URL
		note.URL = next
	}
	if in.URLTitle != nil {
		note.URLTitle = *in.URLTitle
	}
	if in.URLDescription != nil {
		note.URLDescription = *in.URLDescription
	}
	if note.IsURL && note.URL == "" {
		return nil, fieldError("url", "is required")
	}

	if note.IsURL && urlChanged && in.URLTitle == nil && in.URLDescription == nil {
		if meta := s.lookup(ctx, note.URL); meta != nil {
			note.SetURLMetadata(meta.Title, meta.Description, meta.FetchedAt)
		}
	}
	note.Touch()

	if err := db.UpdateNote(ctx, s.db, note); err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}

	var tags []*models.Tag
	if in.Tags != nil {
		tags, err = db.SetNoteTags(ctx, s.db, userID, note.ID, in.Tags)
	} else {
		tags, err = db.GetNoteTags(ctx, s.db, note.ID)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("note updated", zap.String("user_id", userID), zap.String("note_id", note.ID.String()))
	return &models.NoteWithTags{Note: note, Tags: tags}, nil
}

// GetNote returns the note identified by ref with its tags.
func (s *Service) GetNote(ctx context.Context, userID, ref string) (*models.NoteWithTags, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	note, err := db.ResolveNote(ctx, s.db, userID, ref)
	if err != nil {
		return nil, err
	}
	tags, err := db.GetNoteTags(ctx, s.db, note.ID)
	if err != nil {
		return nil, err
	}
	return &models.NoteWithTags{Note: note, Tags: tags}, nil
}

// DeleteNote removes the note identified by ref and returns it.
func (s *Service) DeleteNote(ctx context.Context, userID, ref string) (*models.Note, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	note, err := db.ResolveNote(ctx, s.db, userID, ref)
	if err != nil {
		return nil, err
	}
	if err := db.DeleteNote(ctx, s.db, userID, note.ID); err != nil {
		return nil, err
	}
	s.logger.Info("note deleted", zap.String("user_id", userID), zap.String("note_id", note.ID.String()))
	return note, nil
}

// ListNotes returns a page of notes with tags. Tag may name a tag instead of
// giving its ID.
func (s *Service) ListNotes(ctx context.Context, userID string, in ListNotesInput) ([]*models.NoteWithTags, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := s.validate.validate(in); err != nil {
		return nil, err
	}

	filter := &db.NoteFilter{
		Search:    in.Search,
		Kind:      db.NoteKind(in.Kind),
		SortBy:    in.SortBy,
		SortOrder: in.SortOrder,
		Limit:     in.Limit,
		Offset:    in.Offset,
	}
	switch {
	case in.TagID != "":
		id, err := uuid.Parse(in.TagID)
		if err != nil {
			return nil, fieldError("tag_id", "must be a valid UUID")
		}
		filter.TagID = &id
	case strings.TrimSpace(in.Tag) != "":
		tag, err := db.GetTagByName(ctx, s.db, userID, in.Tag)
		if err != nil {
			return nil, err
		}
		filter.TagID = &tag.ID
	}

	notes, err := db.ListNotes(ctx, s.db, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return db.WithTags(ctx, s.db, notes)
}

func (s *Service) SearchNotes(ctx context.Context, userID, query string, limit int) ([]*db.SearchResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	start := time.Now()
	results, err := db.SearchNotes(ctx, s.db, userID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search notes: %w", err)
	}
	s.logger.Debug("search",
		zap.String("user_id", userID),
		zap.String("query", query),
		zap.Int("results", len(results)),
		zap.Duration("took", time.Since(start)),
	)
	return results, nil
}

// FetchMetadata previews the metadata a URL note would get.
func (s *Service) FetchMetadata(ctx context.Context, url string) (*metadata.Metadata, error) {
	if s.fetcher == nil {
		return nil, ErrFetchDisabled
	}
	if _, err := metadata.ValidateURL(url); err != nil {
		return nil, fieldError("url", "must be an http or https URL")
	}
	return s.fetcher.Fetch(ctx, url)
}
