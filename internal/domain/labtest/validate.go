package labtest

import (
	"fmt"

	"github.com/fhirlab/catalog/internal/platform/fhir"
)

// Validate runs the structural validation rules over a resource. It never
// mutates its input and never touches storage; calling it twice on the same
// resource yields the same issue list. Any error-severity issue blocks
// persistence in the caller.
func Validate(def *LabTestDefinition) []fhir.Issue {
	var issues []fhir.Issue

	if def.Name == "" {
		issues = append(issues, fhir.Issue{
			Severity:    fhir.SeverityError,
			Code:        fhir.IssueRequired,
			Diagnostics: "Test name is required",
		})
	}

	if len(def.Code.Coding) == 0 {
		issues = append(issues, fhir.Issue{
			Severity:    fhir.SeverityError,
			Code:        fhir.IssueRequired,
			Diagnostics: "Test code is required",
		})
	}

	if def.Description == "" {
		issues = append(issues, fhir.Issue{
			Severity:    fhir.SeverityError,
			Code:        fhir.IssueRequired,
			Diagnostics: "Test description is required",
		})
	}

	for _, coding := range def.Code.Coding {
		if coding.System == "" {
			issues = append(issues, fhir.Issue{
				Severity:    fhir.SeverityWarning,
				Code:        fhir.IssueIncomplete,
				Diagnostics: fmt.Sprintf("Coding system not specified for code %s", coding.Code),
			})
		}
		if coding.Display == "" {
			issues = append(issues, fhir.Issue{
				Severity:    fhir.SeverityInformation,
				Code:        fhir.IssueIncomplete,
				Diagnostics: fmt.Sprintf("Display name not provided for code %s", coding.Code),
			})
		}
	}

	if def.Status != "" && !def.Status.Valid() {
		issues = append(issues, fhir.Issue{
			Severity:    fhir.SeverityError,
			Code:        fhir.IssueInvalid,
			Diagnostics: fmt.Sprintf("Invalid status: %s", def.Status),
		})
	}

	if len(def.Category) == 0 {
		issues = append(issues, fhir.Issue{
			Severity:    fhir.SeverityWarning,
			Code:        fhir.IssueIncomplete,
			Diagnostics: "Test category should be specified",
		})
	}

	if obs := def.ObservationDefinition; obs != nil {
		if !obs.Status.Valid() {
			issues = append(issues, fhir.Issue{
				Severity:    fhir.SeverityError,
				Code:        fhir.IssueInvalid,
				Diagnostics: fmt.Sprintf("Invalid status: %s", obs.Status),
			})
		}
		if len(obs.Code.Coding) == 0 && obs.Code.Text == "" {
			issues = append(issues, fhir.Issue{
				Severity:    fhir.SeverityError,
				Code:        fhir.IssueRequired,
				Diagnostics: "ObservationDefinition code is required",
			})
		}
	} else {
		issues = append(issues, fhir.Issue{
			Severity:    fhir.SeverityError,
			Code:        fhir.IssueRequired,
			Diagnostics: "ObservationDefinition is required",
		})
	}

	return issues
}
