package audit

import (
	"context"

	"github.com/fhirlab/catalog/internal/platform/db"
)

// Recorder appends audit entries. It takes a db.Queryer so that entries land
// in the same transaction as the write they describe.
type Recorder interface {
	Record(ctx context.Context, q db.Queryer, e *Entry) error
}

type pgRecorder struct{}

// NewPGRecorder creates a Recorder backed by the audit_log table.
func NewPGRecorder() Recorder {
	return &pgRecorder{}
}

func (r *pgRecorder) Record(ctx context.Context, q db.Queryer, e *Entry) error {
	_, err := q.Exec(ctx, `
		INSERT INTO audit_log (action, resource_type, resource_id, actor, changes, origin)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.Action, e.ResourceType, e.ResourceID, e.Actor, e.Changes, e.Origin)
	return err
}
