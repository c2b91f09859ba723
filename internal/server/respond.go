package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"promptdesk/pkg/store"
)

// writeJSON serializes the payload with the response envelope already merged
// in by the caller.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// ok wraps a successful payload in the {success:true} envelope. Extra keys
// come from the payload map.
func ok(w http.ResponseWriter, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["success"] = true
	writeJSON(w, http.StatusOK, payload)
}

// fail writes the {success:false, message} envelope.
func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"message": message,
	})
}

// notFound writes the normalized missing-entity response.
func notFound(w http.ResponseWriter, entity string, id uint64) {
	fail(w, http.StatusNotFound, fmt.Sprintf("%s not found with id %d.", entity, id))
}

// storeFail maps a storage error to the client response. Not-found is never
// expected here (callers handle it first); constraint violations become 409,
// anything else a generic 500 with the cause kept in the log only.
func storeFail(w http.ResponseWriter, r *http.Request, err error, verb, entity string) {
	switch {
	case errors.Is(err, store.ErrDuplicate):
		fail(w, http.StatusConflict, fmt.Sprintf("A %s with those details already exists.", strings.ToLower(entity)))
	case errors.Is(err, store.ErrForeignKey):
		fail(w, http.StatusConflict, fmt.Sprintf("The %s references a record that does not exist.", strings.ToLower(entity)))
	default:
		slog.Error("request failed",
			"path", r.URL.Path,
			"method", r.Method,
			"error", err,
		)
		fail(w, http.StatusInternalServerError, fmt.Sprintf("Failed to %s %s.", verb, strings.ToLower(entity)))
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	fail(w, http.StatusMethodNotAllowed, "Method not allowed.")
}

// parseID extracts the numeric id that follows prefix in the request path.
func parseID(r *http.Request, prefix string) (uint64, bool) {
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	rest = strings.Trim(rest, "/")
	if rest == "" || strings.Contains(rest, "/") {
		return 0, false
	}
	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// parseListFilter reads the shared list query parameters. Dates arrive as
// YYYY-MM-DD or RFC 3339; unparsable values are ignored like missing ones.
func parseListFilter(r *http.Request) store.ListFilter {
	q := r.URL.Query()
	filter := store.ListFilter{Search: strings.TrimSpace(q.Get("search"))}
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Page = n
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	filter.StartDate = parseDate(q.Get("start_date"))
	filter.EndDate = parseDate(q.Get("end_date"))
	return filter
}

func parseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}
