package server

import (
	"errors"
	"net/http"

	"promptdesk/pkg/store"
)

func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request, userID uint) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	companies, pagination, err := s.store.ListCompanies(userID, parseListFilter(r))
	if err != nil {
		storeFail(w, r, err, "fetch", "companies")
		return
	}
	ok(w, map[string]any{"companies": companies, "paginationData": pagination})
}

func (s *Server) handleCompanyByID(w http.ResponseWriter, r *http.Request, userID uint) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id, found := parseID(r, "/api/company/")
	if !found {
		fail(w, http.StatusBadRequest, "Invalid company id.")
		return
	}
	company, err := s.store.GetCompanyByID(uint(id), userID)
	if errors.Is(err, store.ErrNotFound) {
		notFound(w, "Company", id)
		return
	}
	if err != nil {
		storeFail(w, r, err, "fetch", "company")
		return
	}
	ok(w, map[string]any{"company": company})
}
