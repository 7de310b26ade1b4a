// Package faults classifies tool invocation failures into a fixed taxonomy
// and maps each category to its retry policy and backoff schedule.
package faults

// Category identifies one failure class in the taxonomy. Categories are
// exhaustive and mutually exclusive by classification order.
type Category string

const (
	CategoryTimeout        Category = "timeout"
	CategoryConnection     Category = "connection"
	CategoryOverloaded     Category = "overloaded"
	CategoryInvalidData    Category = "invalid_data"
	CategoryAuthentication Category = "authentication"
	CategoryConflict       Category = "concurrency_conflict"
	CategoryUnknown        Category = "unknown"
)

// Categories returns every category in the taxonomy.
func Categories() []Category {
	return []Category{
		CategoryTimeout,
		CategoryConnection,
		CategoryOverloaded,
		CategoryInvalidData,
		CategoryAuthentication,
		CategoryConflict,
		CategoryUnknown,
	}
}

// Valid reports whether c is a member of the taxonomy.
func (c Category) Valid() bool {
	switch c {
	case CategoryTimeout, CategoryConnection, CategoryOverloaded,
		CategoryInvalidData, CategoryAuthentication, CategoryConflict,
		CategoryUnknown:
		return true
	}
	return false
}

// Record captures one classified failure for retry bookkeeping. It is
// derived state, consumed immediately to pick the next action.
type Record struct {
	Category  Category
	Retryable bool
	Attempt   int
}
