package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// errorBody is the wire shape for every error response: status code,
// canonical status text, human-readable message. 403 messages stay
// generic and never name the predicate that failed.
type errorBody struct {
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeJSON(w, code, errorBody{
		Status:    code,
		Error:     http.StatusText(code),
		Message:   msg,
		RequestID: RequestIDFromContext(r.Context()),
	})
}

func forbidden(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusForbidden, "access denied")
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, "resource not found")
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// pagedBody is the wire shape for list endpoints: one page of content
// plus enough bookkeeping for the client to walk the rest.
type pagedBody struct {
	Content       any `json:"content"`
	Page          int `json:"page"`
	Size          int `json:"size"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
}

// pageParams reads the zero-based page and size query parameters,
// falling back to defaults on absent or unusable values.
func pageParams(r *http.Request) (page, size int) {
	page, size = 0, defaultPageSize
	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 1_000_000 {
			page = n
		}
	}
	if v := q.Get("size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			size = min(n, maxPageSize)
		}
	}
	return page, size
}

// writePage slices the already scope-filtered result set into the
// requested page. A page past the end returns empty content, not 404.
func writePage[T any](w http.ResponseWriter, r *http.Request, items []T) {
	page, size := pageParams(r)
	total := len(items)
	start := min(page*size, total)
	end := min(start+size, total)
	writeJSON(w, http.StatusOK, pagedBody{
		Content:       items[start:end],
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    (total + size - 1) / size,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
