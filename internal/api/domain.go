package api

import (
	"github.com/epistlelabs/epistle/internal/documents"
	"github.com/epistlelabs/epistle/internal/review"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Documents documents.System
	Reviews   review.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	reviewSystem := review.New(
		runtime.Database.Connection(),
		runtime.Logger,
		runtime.Pagination,
	)

	docsSystem := documents.New(
		runtime.Database.Connection(),
		runtime.Storage,
		reviewSystem,
		runtime.Runtime,
		runtime.Logger,
		runtime.Pagination,
	)

	return &Domain{
		Documents: docsSystem,
		Reviews:   reviewSystem,
	}
}
