// ABOUTME: HTTP handlers for notes, tags, and URL metadata.
// ABOUTME: Decode requests, call the notes service, and write envelopes.

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/harper/marknote/internal/notes"
)

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

// Tags

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.svc.ListTags(r.Context(), getUserID(r.Context()))
	if err != nil {
		handleError(w, err, s.logger)
		return
	}
	success(w, http.StatusOK, tags, s.logger)
}

func (s *Server) handleTagTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.svc.TagTree(r.Context(), getUserID(r.Context()))
	if err != nil {
		handleError(w, err, s.logger)
		return
	}
	success(w, http.StatusOK, tree, s.logger)
}

func (s *Server) handleSuggestTags(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		failure(w, http.StatusBadRequest, err.Error(), s.logger)
		return
	}
	tags, err := s.svc.SuggestTags(r.Context(), getUserID(r.Context()), r.URL.Query().Get("q"), limit)
	if err != nil {
		handleError(w, err, s.logger)
		return
	}
	success(w, http.StatusOK, tags, s.logger)
}

func (s *Server) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	var in notes.CreateTagInput
	if err := decodeJSON(w, r, &in); err != nil {
		failure(w, http.StatusBadRequest, err.Error(), s.logger)
		return
	}
	tag, err := s.svc.CreateTag(r.Context(), getUserID(r.Context()), in)
	if err != nil {
		handleError(w, err, s.logger)
		return
	}
	success(w, http.StatusCreated, tag, s.logger)
}

type renameTagRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleRenameTag(w http.ResponseWriter, r *http.Request) {
	var req renameTagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		failure(w, http.StatusBadRequest, err.Error(), s.logger)
		return
	}
	tag, err := s.svc.RenameTag(r.Context(), getUserID(r.Context()), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		handleError(w, err, s.logger)
		return
	}
	success(w, http.StatusOK, tag, s.logger)
}

func (s *Server) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	removed, err := s.svc.DeleteTag(r.Context(), getUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err, s.logger)
		return
	}
	success(w, http.StatusOK, map[string]int{"removed": removed}, s.logger)
}

// Notes

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := queryInt(r, "limit")
	if err != nil {
		failure(w, http.StatusBadRequest, err.Error(), s.logger)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		failure(w, http.StatusBadRequest, err.Error(), s.logger)
		return
	}

	list, err := s.svc.ListNotes(r.Context(), getUserID(r.Context()), notes.ListNotesInput{
		TagID:     q.Get("tag_id"),
		Tag:       q.Get("tag"),
		Search:    q.Get("search"),
		Kind:      q.Get("kind"),
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		handleError(w, err, s.logger)
		return
	}
	success(w, http.StatusOK, list, s.logger)
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var in notes.CreateNoteInput
	if err := decodeJSON(w, r, &in); err != nil {
		failure(w, http.StatusBadRequest, err.Error(), s.logger)
		return
	}
	note, err := s.svc.CreateNote(r.Context(), getUserID(r.Context()), in)
	if err != nil {
		handleError(w, err, s.logger)
		return
	}
	success(w, http.StatusCreated, note, s.logger)
}

func (s *Server) handleSearchNotes(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		failure(w, http.StatusBadRequest, err.Error(), s.logger)
		return
	}
	results, err := s.svc.SearchNotes(r.Context(), getUserID(r.Context()), r.URL.Query().Get("q"), limit)
	if err != nil {
		handleError(w, err, s.logger)
		return
	}
	success(w, http.StatusOK, results, s.logger)
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	note, err := s.svc.GetNote(r.Context(), getUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err, s.logger)
		return
	}
	success(w, http.StatusOK, note, s.logger)
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var in notes.UpdateNoteInput
	if err := decodeJSON(w, r, &in); err != nil {
		failure(w, http.StatusBadRequest, err.Error(), s.logger)
		return
	}
	note, err := s.svc.UpdateNote(r.Context(), getUserID(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		handleError(w, err, s.logger)
		return
	}
	success(w, http.StatusOK, note, s.logger)
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	note, err := s.svc.DeleteNote(r.Context(), getUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err, s.logger)
		return
	}
	success(w, http.StatusOK, map[string]string{"id": note.ID.String()}, s.logger)
}

type tagNoteRequest struct {
	Tag string `json:"tag"`
}

func (s *Server) handleTagNote(w http.ResponseWriter, r *http.Request) {
	var req tagNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		failure(w, http.StatusBadRequest, err.Error(), s.logger)
		return
	}
	tag, err := s.svc.TagNote(r.Context(), getUserID(r.Context()), chi.URLParam(r, "id"), req.Tag)
	if err != nil {
		handleError(w, err, s.logger)
		return
	}
	success(w, http.StatusOK, tag, s.logger)
}

func (s *Server) handleUntagNote(w http.ResponseWriter, r *http.Request) {
	err := s.svc.UntagNote(r.Context(), getUserID(r.Context()), chi.URLParam(r, "id"), r.URL.Query().Get("tag"))
	if err != nil {
		handleError(w, err, s.logger)
		return
	}
	success(w, http.StatusOK, nil, s.logger)
}

type metadataRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleFetchMetadata(w http.ResponseWriter, r *http.Request) {
	var req metadataRequest
	if err := decodeJSON(w, r, &req); err != nil {
		failure(w, http.StatusBadRequest, err.Error(), s.logger)
		return
	}
	if req.URL == "" {
		failure(w, http.StatusBadRequest, "url is required", s.logger)
		return
	}
	meta, err := s.svc.FetchMetadata(r.Context(), req.URL)
	if err != nil {
		handleError(w, err, s.logger)
		return
	}
	success(w, http.StatusOK, meta, s.logger)
}
