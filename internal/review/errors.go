package review

import (
	"errors"
	"net/http"
)

// Domain errors for review operations.
var (
	ErrNotFound        = errors.New("review task not found")
	ErrDuplicate       = errors.New("review task already exists")
	ErrAlreadyResolved = errors.New("review task already resolved")
	ErrInvalidTask     = errors.New("invalid review task")
)

// MapHTTPStatus maps review domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrAlreadyResolved) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidTask) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
