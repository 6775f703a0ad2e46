package fhir

import (
	"fmt"

	"github.com/google/uuid"
)

// Issue severity levels per FHIR R4.
const (
	SeverityFatal       = "fatal"
	SeverityError       = "error"
	SeverityWarning     = "warning"
	SeverityInformation = "information"
)

// Issue type codes used by this server.
const (
	IssueRequired   = "required"
	IssueInvalid    = "invalid"
	IssueIncomplete = "incomplete"
	IssueNotFound   = "not-found"
	IssueProcessing = "processing"
	IssueException  = "exception"
)

// Issue is a single severity-tagged problem inside an OperationOutcome.
type Issue struct {
	Severity    string `json:"severity"`
	Code        string `json:"code"`
	Diagnostics string `json:"diagnostics,omitempty"`
}

// OperationOutcome is the uniform error/result body for validation responses
// and 4xx/5xx error paths. Every outcome gets a fresh opaque id.
type OperationOutcome struct {
	Type  string  `json:"resourceType"`
	ID    string  `json:"id,omitempty"`
	Issue []Issue `json:"issue"`
}

func (o *OperationOutcome) ResourceType() string { return "OperationOutcome" }

// NewOutcome wraps a list of issues into an OperationOutcome with a generated
// id. A nil or empty issue list yields an outcome with an empty issue slice,
// which $validate uses to signal a clean resource.
func NewOutcome(issues []Issue) *OperationOutcome {
	if issues == nil {
		issues = []Issue{}
	}
	return &OperationOutcome{
		Type:  "OperationOutcome",
		ID:    uuid.NewString(),
		Issue: issues,
	}
}

// ErrorOutcome creates a single-issue processing-error outcome.
func ErrorOutcome(diagnostics string) *OperationOutcome {
	return NewOutcome([]Issue{{
		Severity:    SeverityError,
		Code:        IssueProcessing,
		Diagnostics: diagnostics,
	}})
}

// InvalidOutcome creates a single-issue bad-request outcome.
func InvalidOutcome(diagnostics string) *OperationOutcome {
	return NewOutcome([]Issue{{
		Severity:    SeverityError,
		Code:        IssueInvalid,
		Diagnostics: diagnostics,
	}})
}

// NotFoundOutcome creates an outcome for an id that did not resolve.
func NotFoundOutcome(resourceType, id string) *OperationOutcome {
	return NewOutcome([]Issue{{
		Severity:    SeverityError,
		Code:        IssueNotFound,
		Diagnostics: fmt.Sprintf("%s/%s not found", resourceType, id),
	}})
}

// HasErrors reports whether the outcome carries any error or fatal issue.
// Error-severity issues block downstream persistence.
func (o *OperationOutcome) HasErrors() bool {
	return HasErrors(o.Issue)
}

// HasErrors reports whether any issue in the list is error or fatal severity.
func HasErrors(issues []Issue) bool {
	for _, is := range issues {
		if is.Severity == SeverityError || is.Severity == SeverityFatal {
			return true
		}
	}
	return false
}

// ErrorsOnly filters a list of issues down to those that block persistence.
func ErrorsOnly(issues []Issue) []Issue {
	var out []Issue
	for _, is := range issues {
		if is.Severity == SeverityError || is.Severity == SeverityFatal {
			out = append(out, is)
		}
	}
	return out
}
