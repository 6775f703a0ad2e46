package labtest

import (
	"fmt"
	"time"

	"github.com/fhirlab/catalog/internal/platform/fhir"
)

// Status is the closed publication status set. Anything outside it is rejected
// at the boundary before reaching storage.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusActive  Status = "active"
	StatusRetired Status = "retired"
	StatusUnknown Status = "unknown"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusRetired, StatusUnknown:
		return true
	}
	return false
}

// ParseStatus validates a raw status string against the closed set.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("invalid status %q: must be one of draft, active, retired, unknown", raw)
	}
	return s, nil
}

// ObservationDefinition describes what an observation of a test looks like.
// JSON uses FHIR camelCase field names.
type ObservationDefinition struct {
	Type                   string                 `json:"resourceType"`
	ID                     string                 `json:"id,omitempty"`
	Meta                   *fhir.Meta             `json:"meta,omitempty"`
	URL                    string                 `json:"url,omitempty"`
	Identifier             []fhir.Identifier      `json:"identifier,omitempty"`
	Version                string                 `json:"version,omitempty"`
	Name                   string                 `json:"name,omitempty"`
	Title                  string                 `json:"title,omitempty"`
	Status                 Status                 `json:"status"`
	Experimental           *bool                  `json:"experimental,omitempty"`
	Publisher              string                 `json:"publisher,omitempty"`
	Description            string                 `json:"description,omitempty"`
	Purpose                string                 `json:"purpose,omitempty"`
	Category               []fhir.CodeableConcept `json:"category,omitempty"`
	Code                   fhir.CodeableConcept   `json:"code"`
	PermittedDataType      []string               `json:"permittedDataType,omitempty"`
	MultipleResultsAllowed *bool                  `json:"multipleResultsAllowed,omitempty"`
	Method                 *fhir.CodeableConcept  `json:"method,omitempty"`
	PreferredReportName    string                 `json:"preferredReportName,omitempty"`
	QualifiedInterval      []map[string]any       `json:"qualifiedInterval,omitempty"`
	ValidCodedValueSet     *fhir.Reference        `json:"validCodedValueSet,omitempty"`
	NormalCodedValueSet    *fhir.Reference        `json:"normalCodedValueSet,omitempty"`
	AbnormalCodedValueSet  *fhir.Reference        `json:"abnormalCodedValueSet,omitempty"`
	CriticalCodedValueSet  *fhir.Reference        `json:"criticalCodedValueSet,omitempty"`
}

func (o *ObservationDefinition) ResourceType() string { return "ObservationDefinition" }

// SpecimenDefinition describes specimen requirements for a test.
type SpecimenDefinition struct {
	Type                   string                 `json:"resourceType"`
	ID                     string                 `json:"id,omitempty"`
	Meta                   *fhir.Meta             `json:"meta,omitempty"`
	URL                    string                 `json:"url,omitempty"`
	Identifier             []fhir.Identifier      `json:"identifier,omitempty"`
	Version                string                 `json:"version,omitempty"`
	Name                   string                 `json:"name,omitempty"`
	Title                  string                 `json:"title,omitempty"`
	Status                 Status                 `json:"status"`
	SubjectCodeableConcept *fhir.CodeableConcept  `json:"subjectCodeableConcept,omitempty"`
	Publisher              string                 `json:"publisher,omitempty"`
	Description            string                 `json:"description,omitempty"`
	Purpose                string                 `json:"purpose,omitempty"`
	TypeCollected          *fhir.CodeableConcept  `json:"typeCollected,omitempty"`
	PatientPreparation     []string               `json:"patientPreparation,omitempty"`
	TimeAspect             string                 `json:"timeAspect,omitempty"`
	Collection             []fhir.CodeableConcept `json:"collection,omitempty"`
	TypeTested             []map[string]any       `json:"typeTested,omitempty"`
}

func (s *SpecimenDefinition) ResourceType() string { return "SpecimenDefinition" }

// RangeSpec is a numeric low/high pair with a unit, used inside reference
// ranges. No low <= high invariant is enforced.
type RangeSpec struct {
	Low  *float64 `json:"low,omitempty"`
	High *float64 `json:"high,omitempty"`
	Unit string   `json:"unit,omitempty"`
}

// ReferenceRange is one normal-range row: the measured parameter, its range,
// and optional qualifiers.
type ReferenceRange struct {
	Parameter      string    `json:"parameter,omitempty"`
	Range          RangeSpec `json:"range"`
	AgeRange       string    `json:"age_range,omitempty"`
	Gender         string    `json:"gender,omitempty"`
	Condition      string    `json:"condition,omitempty"`
	Interpretation string    `json:"interpretation,omitempty"`
}

// LabTestDefinition is the aggregate root: a lab test with its coded identity,
// embedded FHIR definition resources, ranges, and operational details.
// Top-level JSON uses snake_case; embedded FHIR resources use camelCase.
type LabTestDefinition struct {
	ID                    string                   `json:"id,omitempty"`
	Name                  string                   `json:"name"`
	Code                  fhir.CodeableConcept     `json:"code"`
	Status                Status                   `json:"status,omitempty"`
	Version               string                   `json:"version,omitempty"`
	Category              []fhir.CodeableConcept   `json:"category,omitempty"`
	Description           string                   `json:"description"`
	ClinicalPurpose       string                   `json:"clinical_purpose,omitempty"`
	ObservationDefinition *ObservationDefinition   `json:"observation_definition,omitempty"`
	SpecimenDefinition    *SpecimenDefinition      `json:"specimen_definition,omitempty"`
	ReferenceRanges       []ReferenceRange         `json:"reference_ranges,omitempty"`
	CriticalValues        map[string]RangeSpec     `json:"critical_values,omitempty"`
	AnalyticalMethod      string                   `json:"analytical_method,omitempty"`
	Precision             map[string]float64       `json:"precision,omitempty"`
	Accuracy              map[string]float64       `json:"accuracy,omitempty"`
	TurnaroundTime        map[string]any           `json:"turnaround_time,omitempty"`
	Cost                  map[string]any           `json:"cost,omitempty"`
	OrderingInformation   map[string]any           `json:"ordering_information,omitempty"`
	CreatedDate           time.Time                `json:"created_date,omitempty"`
	ModifiedDate          time.Time                `json:"modified_date,omitempty"`
	CreatedBy             string                   `json:"created_by,omitempty"`
}

func (t *LabTestDefinition) ResourceType() string { return "LabTestDefinition" }
