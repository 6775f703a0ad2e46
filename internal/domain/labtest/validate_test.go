package labtest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhirlab/catalog/internal/platform/fhir"
)

func TestValidateCleanResource(t *testing.T) {
	issues := Validate(glucoseDefinition())
	assert.False(t, fhir.HasErrors(issues))
}

func TestValidateMissingRequiredFields(t *testing.T) {
	def := &LabTestDefinition{}
	issues := Validate(def)

	require.True(t, fhir.HasErrors(issues))

	required := 0
	for _, is := range issues {
		if is.Severity == fhir.SeverityError && strings.Contains(is.Diagnostics, "required") {
			required++
		}
	}
	assert.GreaterOrEqual(t, required, 2)
}

func TestValidateCodingWarnings(t *testing.T) {
	def := glucoseDefinition()
	def.Code = fhir.CodeableConcept{Coding: []fhir.Coding{{Code: "2345-7"}}}

	issues := Validate(def)

	assert.False(t, fhir.HasErrors(issues))

	var severities []string
	for _, is := range issues {
		if strings.Contains(is.Diagnostics, "2345-7") {
			severities = append(severities, is.Severity)
		}
	}
	assert.Contains(t, severities, fhir.SeverityWarning)
	assert.Contains(t, severities, fhir.SeverityInformation)
}

func TestValidateEmptyCategoryWarns(t *testing.T) {
	def := glucoseDefinition()
	def.Category = nil

	issues := Validate(def)

	assert.False(t, fhir.HasErrors(issues))
	found := false
	for _, is := range issues {
		if is.Diagnostics == "Test category should be specified" {
			found = true
			assert.Equal(t, fhir.SeverityWarning, is.Severity)
		}
	}
	assert.True(t, found)
}

func TestValidateRejectsUnknownStatus(t *testing.T) {
	def := glucoseDefinition()
	def.Status = Status("published")

	issues := Validate(def)

	require.True(t, fhir.HasErrors(issues))
	found := false
	for _, is := range issues {
		if is.Diagnostics == "Invalid status: published" {
			found = true
			assert.Equal(t, fhir.SeverityError, is.Severity)
			assert.Equal(t, fhir.IssueInvalid, is.Code)
		}
	}
	assert.True(t, found)
}

func TestValidateObservationDefinition(t *testing.T) {
	def := glucoseDefinition()
	def.ObservationDefinition = &ObservationDefinition{Status: Status("bogus")}

	issues := Validate(def)

	require.True(t, fhir.HasErrors(issues))
	var diags []string
	for _, is := range issues {
		if is.Severity == fhir.SeverityError {
			diags = append(diags, is.Diagnostics)
		}
	}
	assert.Contains(t, diags, "Invalid status: bogus")
	assert.Contains(t, diags, "ObservationDefinition code is required")
}

func TestValidateIdempotent(t *testing.T) {
	def := glucoseDefinition()
	def.Name = ""

	first := Validate(def)
	second := Validate(def)

	assert.Equal(t, first, second)
}
