package pipeline

import "errors"

// Domain errors for pipeline orchestration.
var (
	ErrEmptyDocument = errors.New("document has no extracted text")
)
