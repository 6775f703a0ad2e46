package labtest

import (
	"encoding/json"
	"time"

	"github.com/fhirlab/catalog/internal/platform/fhir"
)

// TestRecord maps to the lab_test_definitions table. Nested resource parts are
// stored as JSONB columns; search_text is the derived lowercase blob the
// free-text filter matches against.
type TestRecord struct {
	ID                    string                 `db:"id" json:"id"`
	Name                  string                 `db:"name" json:"name"`
	Version               string                 `db:"version" json:"version"`
	Status                string                 `db:"status" json:"status"`
	Category              []fhir.CodeableConcept `db:"category" json:"category"`
	Code                  fhir.CodeableConcept   `db:"code" json:"code"`
	Description           string                 `db:"description" json:"description"`
	ClinicalPurpose       *string                `db:"clinical_purpose" json:"clinical_purpose"`
	ObservationDefinition *ObservationDefinition `db:"observation_definition" json:"observation_definition"`
	SpecimenDefinition    *SpecimenDefinition    `db:"specimen_definition" json:"specimen_definition"`
	ReferenceRanges       []ReferenceRange       `db:"reference_ranges" json:"reference_ranges"`
	CriticalValues        map[string]RangeSpec   `db:"critical_values" json:"critical_values"`
	AnalyticalMethod      *string                `db:"analytical_method" json:"analytical_method"`
	Precision             map[string]float64     `db:"precision" json:"precision"`
	Accuracy              map[string]float64     `db:"accuracy" json:"accuracy"`
	TurnaroundTime        map[string]any         `db:"turnaround_time" json:"turnaround_time"`
	Cost                  map[string]any         `db:"cost" json:"cost"`
	OrderingInformation   map[string]any         `db:"ordering_information" json:"ordering_information"`
	CreatedDate           time.Time              `db:"created_date" json:"created_date"`
	ModifiedDate          time.Time              `db:"modified_date" json:"modified_date"`
	CreatedBy             *string                `db:"created_by" json:"created_by"`
	SearchText            string                 `db:"search_text" json:"-"`
}

// Projection flattens the record into a column-name keyed map through its JSON
// form. Update diffs compare projections of the old and new rows, so changes
// report at column granularity only.
func (r *TestRecord) Projection() map[string]interface{} {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

// IndexKind enumerates the derived search_index row kinds.
const (
	IndexKindName     = "name"
	IndexKindCategory = "category"
	IndexKindCode     = "code"
)

// IndexEntry is one derived search_index row. Entries are regenerated in full
// on every create/update of the owning test and removed on delete.
type IndexEntry struct {
	TestID       string `db:"test_id" json:"test_id"`
	Kind         string `db:"kind" json:"kind"`
	SearchValue  string `db:"search_value" json:"search_value"`
	DisplayValue string `db:"display_value" json:"display_value"`
}
