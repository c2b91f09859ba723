package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"promptdesk/pkg/domain"
	"promptdesk/pkg/store"
)

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request, userID uint) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateDocument(w, r, userID)
	case http.MethodGet:
		s.handleListDocuments(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request, userID uint) {
	if err := s.parseForm(r); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	fileURL, fileName, err := s.saveUpload(r, "document_file")
	if err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if name, present := formValue(r, "file_name"); present && name != "" {
		fileName = name
	}

	doc := domain.Document{
		FileName: fileName,
		FileURL:  fileURL,
		GUID:     uuid.NewString(),
		UserID:   userID,
	}
	if uid := formUintPtr(r, "user_id"); uid != nil && *uid != 0 {
		doc.UserID = *uid
	}
	tags, err := s.tagsFromForm(r)
	if err != nil {
		storeFail(w, r, err, "create", "document")
		return
	}
	if tags != nil {
		doc.Tags = tags
	}

	if err := s.store.CreateDocument(&doc); err != nil {
		storeFail(w, r, err, "create", "document")
		return
	}
	created, err := s.store.GetDocumentByID(doc.ID)
	if err != nil {
		storeFail(w, r, err, "create", "document")
		return
	}
	ok(w, map[string]any{"document": created})
}

// tagsFromForm resolves the comma separated tag id list. A missing field
// returns nil tags, meaning the association is left alone.
func (s *Server) tagsFromForm(r *http.Request) ([]domain.Tag, error) {
	raw, present := formValue(r, "tags")
	if !present {
		return nil, nil
	}
	var ids []uint
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(n))
	}
	if len(ids) == 0 {
		return []domain.Tag{}, nil
	}
	return s.store.GetTagsByIDs(ids)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	paged := query.Get("page") != "" && query.Get("limit") != ""
	documents, pagination, err := s.store.ListDocuments(parseListFilter(r), paged)
	if err != nil {
		storeFail(w, r, err, "fetch", "documents")
		return
	}
	body := map[string]any{"documents": documents}
	if pagination != nil {
		body["paginationData"] = pagination
	}
	ok(w, body)
}

func (s *Server) handleDocumentByID(w http.ResponseWriter, r *http.Request, userID uint) {
	id, found := parseID(r, "/api/documents/")
	if !found {
		fail(w, http.StatusBadRequest, "Invalid document id.")
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.handleGetDocument(w, r, uint(id))
	case http.MethodPut:
		s.handleUpdateDocument(w, r, uint(id))
	case http.MethodDelete:
		s.handleDeleteDocument(w, r, uint(id))
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request, id uint) {
	doc, err := s.store.GetDocumentByID(id)
	if errors.Is(err, store.ErrNotFound) {
		notFound(w, "Document", uint64(id))
		return
	}
	if err != nil {
		storeFail(w, r, err, "fetch", "document")
		return
	}
	ok(w, map[string]any{"document": doc})
}

func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request, id uint) {
	doc, err := s.store.GetDocumentByID(id)
	if errors.Is(err, store.ErrNotFound) {
		notFound(w, "Document", uint64(id))
		return
	}
	if err != nil {
		storeFail(w, r, err, "update", "document")
		return
	}

	if err := s.parseForm(r); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	fileURL, fileName, err := s.saveUpload(r, "document_file")
	if err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if fileURL != "" {
		doc.FileURL = fileURL
		doc.FileName = fileName
	}
	if name, present := formValue(r, "file_name"); present && name != "" {
		doc.FileName = name
	}
	if uid := formUintPtr(r, "user_id"); uid != nil && *uid != 0 {
		doc.UserID = *uid
	}
	// the guid is assigned at creation and never changes

	tags, err := s.tagsFromForm(r)
	if err != nil {
		storeFail(w, r, err, "update", "document")
		return
	}
	if tags != nil {
		if err := s.store.ReplaceDocumentTags(doc.ID, tags); err != nil {
			storeFail(w, r, err, "update", "document")
			return
		}
	}

	if err := s.store.UpdateDocument(&doc); err != nil {
		storeFail(w, r, err, "update", "document")
		return
	}
	updated, err := s.store.GetDocumentByID(id)
	if err != nil {
		storeFail(w, r, err, "update", "document")
		return
	}
	ok(w, map[string]any{"document": updated})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request, id uint) {
	if err := s.store.DeleteDocument(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			notFound(w, "Document", uint64(id))
			return
		}
		storeFail(w, r, err, "delete", "document")
		return
	}
	ok(w, nil)
}
