package labtest

import (
	"strings"
	"time"
)

// Defaults applied when storage has no value.
const (
	DefaultVersion = "1.0.0"
	DefaultStatus  = StatusActive
)

// toRecord flattens a wire resource into a persistable row. Every resource
// field maps to exactly one column; the search blob is derived here so create
// and update stamp it consistently.
func toRecord(def *LabTestDefinition) *TestRecord {
	rec := &TestRecord{
		ID:                    def.ID,
		Name:                  def.Name,
		Version:               def.Version,
		Status:                string(def.Status),
		Category:              def.Category,
		Code:                  def.Code,
		Description:           def.Description,
		ClinicalPurpose:       optional(def.ClinicalPurpose),
		ObservationDefinition: def.ObservationDefinition,
		SpecimenDefinition:    def.SpecimenDefinition,
		ReferenceRanges:       def.ReferenceRanges,
		CriticalValues:        def.CriticalValues,
		AnalyticalMethod:      optional(def.AnalyticalMethod),
		Precision:             def.Precision,
		Accuracy:              def.Accuracy,
		TurnaroundTime:        def.TurnaroundTime,
		Cost:                  def.Cost,
		OrderingInformation:   def.OrderingInformation,
		CreatedDate:           def.CreatedDate,
		ModifiedDate:          def.ModifiedDate,
		CreatedBy:             optional(def.CreatedBy),
	}
	rec.SearchText = searchText(rec)
	return rec
}

// fromRecord is the inverse mapping, reconstructing the wire resource from
// stored columns. Version defaults to "1.0.0" and status to "active" when
// absent in storage.
func fromRecord(rec *TestRecord) *LabTestDefinition {
	def := &LabTestDefinition{
		ID:                    rec.ID,
		Name:                  rec.Name,
		Version:               rec.Version,
		Status:                Status(rec.Status),
		Category:              rec.Category,
		Code:                  rec.Code,
		Description:           rec.Description,
		ClinicalPurpose:       deref(rec.ClinicalPurpose),
		ObservationDefinition: rec.ObservationDefinition,
		SpecimenDefinition:    rec.SpecimenDefinition,
		ReferenceRanges:       rec.ReferenceRanges,
		CriticalValues:        rec.CriticalValues,
		AnalyticalMethod:      deref(rec.AnalyticalMethod),
		Precision:             rec.Precision,
		Accuracy:              rec.Accuracy,
		TurnaroundTime:        rec.TurnaroundTime,
		Cost:                  rec.Cost,
		OrderingInformation:   rec.OrderingInformation,
		CreatedDate:           rec.CreatedDate,
		ModifiedDate:          rec.ModifiedDate,
		CreatedBy:             deref(rec.CreatedBy),
	}
	if def.Version == "" {
		def.Version = DefaultVersion
	}
	if def.Status == "" {
		def.Status = DefaultStatus
	}
	if def.ObservationDefinition != nil && def.ObservationDefinition.Type == "" {
		def.ObservationDefinition.Type = "ObservationDefinition"
	}
	if def.SpecimenDefinition != nil && def.SpecimenDefinition.Type == "" {
		def.SpecimenDefinition.Type = "SpecimenDefinition"
	}
	return def
}

// searchText concatenates the record's searchable parts into one lowercase
// blob: name, description, clinical purpose, coding displays and codes, and
// category texts.
func searchText(rec *TestRecord) string {
	var parts []string
	if rec.Name != "" {
		parts = append(parts, rec.Name)
	}
	if rec.Description != "" {
		parts = append(parts, rec.Description)
	}
	if rec.ClinicalPurpose != nil && *rec.ClinicalPurpose != "" {
		parts = append(parts, *rec.ClinicalPurpose)
	}
	for _, coding := range rec.Code.Coding {
		if coding.Display != "" {
			parts = append(parts, coding.Display)
		}
		if coding.Code != "" {
			parts = append(parts, coding.Code)
		}
	}
	for _, cat := range rec.Category {
		if cat.Text != "" {
			parts = append(parts, cat.Text)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// indexEntries derives the full search_index row set for a record: one name
// row, one row per category text, one row per coding code.
func indexEntries(rec *TestRecord) []IndexEntry {
	var entries []IndexEntry
	if rec.Name != "" {
		entries = append(entries, IndexEntry{
			TestID:       rec.ID,
			Kind:         IndexKindName,
			SearchValue:  strings.ToLower(rec.Name),
			DisplayValue: rec.Name,
		})
	}
	for _, cat := range rec.Category {
		if cat.Text == "" {
			continue
		}
		entries = append(entries, IndexEntry{
			TestID:       rec.ID,
			Kind:         IndexKindCategory,
			SearchValue:  strings.ToLower(cat.Text),
			DisplayValue: cat.Text,
		})
	}
	for _, coding := range rec.Code.Coding {
		if coding.Code == "" {
			continue
		}
		display := coding.Display
		if display == "" {
			display = coding.Code
		}
		entries = append(entries, IndexEntry{
			TestID:       rec.ID,
			Kind:         IndexKindCode,
			SearchValue:  strings.ToLower(coding.Code),
			DisplayValue: display,
		})
	}
	return entries
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
