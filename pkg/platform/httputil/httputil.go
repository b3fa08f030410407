// Package httputil writes JSON responses and decodes JSON and multipart
// requests. Every error body is {"error": code, "error_description": msg}.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	dErrors "orbit/pkg/domain-errors"
)

// WriteJSON encodes response with the given status.
func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status is already sent, so an encoding failure cannot be reported.
	_ = json.NewEncoder(w).Encode(response)
}

type wireError struct {
	status int
	code   string
}

// wire maps each domain code to its response. Unlisted codes are 500s.
var wire = map[dErrors.Code]wireError{
	dErrors.CodeBadRequest:         {http.StatusBadRequest, "bad_request"},
	dErrors.CodeInvalidInput:       {http.StatusBadRequest, "bad_request"},
	dErrors.CodeValidation:         {http.StatusBadRequest, "validation_failed"},
	dErrors.CodeInvariantViolation: {http.StatusBadRequest, "validation_failed"},
	dErrors.CodeUnauthorized:       {http.StatusUnauthorized, "unauthorized"},
	dErrors.CodeForbidden:          {http.StatusForbidden, "forbidden"},
	dErrors.CodeQuotaExceeded:      {http.StatusForbidden, "quota_exceeded"},
	dErrors.CodeNotFound:           {http.StatusNotFound, "not_found"},
	dErrors.CodeConflict:           {http.StatusConflict, "conflict"},
	dErrors.CodeUpstream:           {http.StatusBadGateway, "upstream_failure"},
	dErrors.CodeTimeout:            {http.StatusGatewayTimeout, "timeout"},
}

var internalError = wireError{http.StatusInternalServerError, "internal_error"}

// WriteError renders err. Only the domain message is exposed, and never on
// a 500; wrapped causes stay in the logs.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		WriteJSON(w, internalError.status, map[string]string{"error": internalError.code})
		return
	}
	we, ok := wire[domainErr.Code]
	if !ok {
		we = internalError
	}
	body := map[string]string{"error": we.code}
	if domainErr.Message != "" && we.status != http.StatusInternalServerError {
		body["error_description"] = domainErr.Message
	}
	WriteJSON(w, we.status, body)
}

// Page holds parsed pagination query parameters.
type Page struct {
	Page  int
	Limit int
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// ParsePage reads ?page= and ?limit= with defaults, clamping limit to maxLimit.
func ParsePage(r *http.Request, defaultLimit, maxLimit int) Page {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return Page{Page: page, Limit: limit}
}

// PageResponse wraps a list result with pagination metadata.
type PageResponse[T any] struct {
	Items        []T `json:"items"`
	TotalResults int `json:"totalResults"`
	TotalPages   int `json:"totalPages"`
	CurrentPage  int `json:"currentPage"`
}

// NewPageResponse computes page counts for total rows.
func NewPageResponse[T any](items []T, total int, p Page) PageResponse[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return PageResponse[T]{Items: items, TotalResults: total, TotalPages: pages, CurrentPage: p.Page}
}
