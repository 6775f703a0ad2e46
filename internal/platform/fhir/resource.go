package fhir

import (
	"fmt"
	"time"
)

// Resource is implemented by every resource kind the server can place in a
// Bundle entry or return as a response body. The set is closed: lab test
// definitions, their two embedded definition resources, and operation outcomes.
type Resource interface {
	ResourceType() string
}

type Meta struct {
	VersionID   string     `json:"versionId,omitempty"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
	Source      string     `json:"source,omitempty"`
	Profile     []string   `json:"profile,omitempty"`
}

type Coding struct {
	System       string `json:"system,omitempty"`
	Version      string `json:"version,omitempty"`
	Code         string `json:"code,omitempty"`
	Display      string `json:"display,omitempty"`
	UserSelected *bool  `json:"userSelected,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

type Identifier struct {
	Use    string           `json:"use,omitempty"`
	Type   *CodeableConcept `json:"type,omitempty"`
	System string           `json:"system,omitempty"`
	Value  string           `json:"value,omitempty"`
	Period *Period          `json:"period,omitempty"`
}

// Reference optionally carries an Identifier for logical references where no
// literal link is known.
type Reference struct {
	Reference  string      `json:"reference,omitempty"`
	Type       string      `json:"type,omitempty"`
	Identifier *Identifier `json:"identifier,omitempty"`
	Display    string      `json:"display,omitempty"`
}

type Quantity struct {
	Value      *float64 `json:"value,omitempty"`
	Comparator string   `json:"comparator,omitempty"`
	Unit       string   `json:"unit,omitempty"`
	System     string   `json:"system,omitempty"`
	Code       string   `json:"code,omitempty"`
}

// Range is a low/high pair. No low <= high check is enforced here; callers own
// that decision.
type Range struct {
	Low  *Quantity `json:"low,omitempty"`
	High *Quantity `json:"high,omitempty"`
}

type Period struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// NewCoding builds a Coding for the given terminology system.
func NewCoding(system, code, display string) Coding {
	return Coding{System: system, Code: code, Display: display}
}

// LOINC and SNOMED CT are the two terminology systems the catalog seeds and
// documents; anything else is carried through untouched.
const (
	SystemLOINC  = "http://loinc.org"
	SystemSNOMED = "http://snomed.info/sct"
)

func LOINCCoding(code, display string) Coding {
	return NewCoding(SystemLOINC, code, display)
}

func SNOMEDCoding(code, display string) Coding {
	return NewCoding(SystemSNOMED, code, display)
}

// Concept wraps codings and an optional free-text label into a CodeableConcept.
func Concept(text string, codings ...Coding) CodeableConcept {
	return CodeableConcept{Coding: codings, Text: text}
}

// FirstCode returns the code of the first coding, or "" when no coding exists.
func (cc CodeableConcept) FirstCode() string {
	if len(cc.Coding) == 0 {
		return ""
	}
	return cc.Coding[0].Code
}

// Label returns the concept's display text, falling back through the first
// coding's display and code.
func (cc CodeableConcept) Label() string {
	if cc.Text != "" {
		return cc.Text
	}
	for _, c := range cc.Coding {
		if c.Display != "" {
			return c.Display
		}
	}
	return cc.FirstCode()
}

// FormatReference creates a relative FHIR reference string.
func FormatReference(resourceType, id string) string {
	return fmt.Sprintf("%s/%s", resourceType, id)
}
