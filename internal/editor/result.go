package editor

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

// RowResult identifies a row that was written during a save.
type RowResult struct {
	FieldName string    `json:"field_name"`
	ID        uuid.UUID `json:"id"`
}

// RowFailure identifies a row whose write failed. ID is uuid.Nil for a
// failed insert.
type RowFailure struct {
	FieldName string    `json:"field_name"`
	ID        uuid.UUID `json:"id"`
	Err       error     `json:"-"`
}

// SaveResult lists the outcome of every row in a save, in catalog order.
// Rows after the first failure are not attempted and appear in Skipped.
type SaveResult struct {
	Succeeded []RowResult  `json:"succeeded"`
	Failed    []RowFailure `json:"failed"`
	Skipped   []string     `json:"skipped"`
}

// OK reports whether every row was written.
func (r SaveResult) OK() bool {
	return len(r.Failed) == 0
}

// Err combines the row failures into one error, or returns nil.
func (r SaveResult) Err() error {
	var merr *multierror.Error
	for _, f := range r.Failed {
		merr = multierror.Append(merr, fmt.Errorf("%s: %w", f.FieldName, f.Err))
	}
	return merr.ErrorOrNil()
}

// PartialSaveError is returned by Save when a row failed. Rows listed in
// Result.Succeeded are committed; failed and skipped rows keep their
// previous stored values.
type PartialSaveError struct {
	Category string
	Result   SaveResult
}

func (e *PartialSaveError) Error() string {
	total := len(e.Result.Succeeded) + len(e.Result.Failed) + len(e.Result.Skipped)
	return fmt.Sprintf("saving field settings for %q: %d of %d rows saved: %v",
		e.Category, len(e.Result.Succeeded), total, e.Result.Err())
}

// Unwrap exposes the row errors to errors.Is and errors.As.
func (e *PartialSaveError) Unwrap() error {
	return e.Result.Err()
}

// Partial reports whether some rows were committed before the failure.
func (e *PartialSaveError) Partial() bool {
	return len(e.Result.Succeeded) > 0
}
