package documents

import (
	"errors"
	"net/http"
)

// Domain errors for enriched document operations.
var (
	ErrNotFound       = errors.New("enriched document not found")
	ErrDuplicate      = errors.New("document already enriched")
	ErrEmptyText      = errors.New("document has no extracted text")
	ErrInvalidRequest = errors.New("invalid enrichment request")
	ErrTextTooLarge   = errors.New("extracted text exceeds maximum request size")
)

// MapHTTPStatus maps document domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrEmptyText) {
		return http.StatusUnprocessableEntity
	}
	if errors.Is(err, ErrInvalidRequest) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrTextTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}
