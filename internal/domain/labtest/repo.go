package labtest

import (
	"context"
	"errors"

	"github.com/fhirlab/catalog/internal/domain/audit"
)

// ErrNotFound is returned when an id does not resolve to a stored record.
var ErrNotFound = errors.New("lab test definition not found")

// Repository is the persistence gateway for lab test definitions. Every write
// keeps the primary row, the derived search_index rows, and the audit_log
// entry in one storage transaction; a partial failure rolls back all three.
type Repository interface {
	Get(ctx context.Context, id string) (*TestRecord, error)
	Create(ctx context.Context, rec *TestRecord, meta audit.Meta) error
	Update(ctx context.Context, id string, rec *TestRecord, meta audit.Meta) (*TestRecord, error)
	Delete(ctx context.Context, id string, meta audit.Meta) (bool, error)
	Search(ctx context.Context, p SearchParams) (*SearchPage, error)
	Statistics(ctx context.Context) (*Statistics, error)
}
