// ABOUTME: Tag operations of the notes service.
// ABOUTME: Resolves tags by ID or name and delegates to the tag store.

package notes

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/harper/marknote/internal/db"
	"github.com/harper/marknote/internal/models"
	"go.uber.org/zap"
)

func (s *Service) ListTags(ctx context.Context, userID string) ([]*models.Tag, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return db.ListTags(ctx, s.db, userID)
}

// TagTree returns the user's tags as a sorted forest with per-tag note counts.
func (s *Service) TagTree(ctx context.Context, userID string) ([]*models.TagNode, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return db.GetTagTree(ctx, s.db, userID)
}

// ResolveTag finds a tag by UUID or by (raw or canonical) name.
func (s *Service) ResolveTag(ctx context.Context, userID, ref string) (*models.Tag, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if id, err := uuid.Parse(ref); err == nil {
		return db.GetTagByID(ctx, s.db, userID, id)
	}
	return db.GetTagByName(ctx, s.db, userID, ref)
}

func (s *Service) CreateTag(ctx context.Context, userID string, in CreateTagInput) (*models.Tag, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := s.validate.validate(in); err != nil {
		return nil, err
	}

	var parentID *uuid.UUID
	if in.ParentID != "" {
		id, err := uuid.Parse(in.ParentID)
		if err != nil {
			return nil, fieldError("parent_id", "must be a valid UUID")
		}
		parentID = &id
	}

	tag, err := db.CreateTag(ctx, s.db, userID, in.Name, parentID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("tag created", zap.String("user_id", userID), zap.String("tag", tag.Name))
	return tag, nil
}

// RenameTag moves the tag identified by ref, and everything below it, to newName.
func (s *Service) RenameTag(ctx context.Context, userID, ref, newName string) (*models.Tag, error) {
	tag, err := s.ResolveTag(ctx, userID, ref)
	if err != nil {
		return nil, err
	}
	renamed, err := db.RenameTag(ctx, s.db, userID, tag.ID, newName)
	if err != nil {
		return nil, err
	}
	s.logger.Info("tag renamed",
		zap.String("user_id", userID),
		zap.String("from", tag.Name),
		zap.String("to", renamed.Name),
	)
	return renamed, nil
}

// DeleteTag removes the tag identified by ref and its descendants, returning
// how many tags were removed.
func (s *Service) DeleteTag(ctx context.Context, userID, ref string) (int, error) {
	tag, err := s.ResolveTag(ctx, userID, ref)
	if err != nil {
		return 0, err
	}
	removed, err := db.DeleteTag(ctx, s.db, userID, tag.ID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("tag deleted",
		zap.String("user_id", userID),
		zap.String("tag", tag.Name),
		zap.Int("removed", removed),
	)
	return removed, nil
}

func (s *Service) SuggestTags(ctx context.Context, userID, query string, limit int) ([]*models.Tag, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return db.SuggestTags(ctx, s.db, userID, query, limit)
}

// TagNote adds one tag to the note identified by noteRef, creating the tag
// when needed.
func (s *Service) TagNote(ctx context.Context, userID, noteRef, tagName string) (*models.Tag, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if models.NormalizeTag(tagName).Name == "" {
		return nil, db.ErrEmptyTagName
	}
	note, err := db.ResolveNote(ctx, s.db, userID, noteRef)
	if err != nil {
		return nil, err
	}
	tag, err := db.AddTagToNote(ctx, s.db, userID, note.ID, tagName)
	if err != nil {
		return nil, fmt.Errorf("tag note: %w", err)
	}
	return tag, nil
}

func (s *Service) UntagNote(ctx context.Context, userID, noteRef, tagName string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	note, err := db.ResolveNote(ctx, s.db, userID, noteRef)
	if err != nil {
		return err
	}
	return db.RemoveTagFromNote(ctx, s.db, userID, note.ID, tagName)
}
