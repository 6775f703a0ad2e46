package audit

import (
	"reflect"
	"time"
)

// Actions recorded in the audit log.
const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

// Change is one before/after pair in an update diff.
type Change struct {
	Old interface{} `json:"old"`
	New interface{} `json:"new"`
}

// Entry maps to the append-only audit_log table. Rows are never mutated or
// deleted after insertion.
type Entry struct {
	ID           int64             `db:"id" json:"id"`
	Timestamp    time.Time         `db:"ts" json:"timestamp"`
	Action       string            `db:"action" json:"action"`
	ResourceType string            `db:"resource_type" json:"resource_type"`
	ResourceID   string            `db:"resource_id" json:"resource_id"`
	Actor        string            `db:"actor" json:"actor,omitempty"`
	Changes      map[string]Change `db:"changes" json:"changes,omitempty"`
	Origin       string            `db:"origin" json:"origin,omitempty"`
}

// Meta carries the request attribution that accompanies a write.
type Meta struct {
	Actor  string
	Origin string
}

// Diff computes a top-level field diff between two row projections. Only keys
// present in the new projection are considered; nested structures compare as
// whole values, no deep diff.
func Diff(old, new map[string]interface{}) map[string]Change {
	changes := make(map[string]Change)
	for key, newVal := range new {
		oldVal, ok := old[key]
		if !ok || !reflect.DeepEqual(oldVal, newVal) {
			changes[key] = Change{Old: oldVal, New: newVal}
		}
	}
	if len(changes) == 0 {
		return nil
	}
	return changes
}
