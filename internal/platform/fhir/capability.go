package fhir

import "time"

// CapabilityStatement is the server's capability/info document served at the
// API root.
type CapabilityStatement struct {
	Type        string   `json:"resourceType"`
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Title       string   `json:"title,omitempty"`
	Status      string   `json:"status"`
	Date        string   `json:"date"`
	Publisher   string   `json:"publisher,omitempty"`
	Description string   `json:"description,omitempty"`
	Kind        string   `json:"kind"`
	FHIRVersion string   `json:"fhirVersion"`
	Format      []string `json:"format"`
	Rest        []CSRest `json:"rest"`
}

func (cs *CapabilityStatement) ResourceType() string { return "CapabilityStatement" }

type CSRest struct {
	Mode     string       `json:"mode"`
	Resource []CSResource `json:"resource"`
}

type CSResource struct {
	Type        string          `json:"type"`
	Interaction []CSInteraction `json:"interaction"`
	SearchParam []CSSearchParam `json:"searchParam,omitempty"`
}

type CSInteraction struct {
	Code string `json:"code"`
}

type CSSearchParam struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// DefaultInteractions is the interaction set for a fully read/write resource.
func DefaultInteractions() []CSInteraction {
	return []CSInteraction{
		{Code: "read"},
		{Code: "create"},
		{Code: "update"},
		{Code: "delete"},
		{Code: "search-type"},
	}
}

// ReadOnlyInteractions is the interaction set for extracted sub-resources.
func ReadOnlyInteractions() []CSInteraction {
	return []CSInteraction{{Code: "read"}}
}

// NewCapabilityStatement creates the catalog's capability statement.
func NewCapabilityStatement(id, name, description string, resources []CSResource) *CapabilityStatement {
	return &CapabilityStatement{
		Type:        "CapabilityStatement",
		ID:          id,
		Name:        name,
		Title:       name,
		Status:      "active",
		Date:        time.Now().UTC().Format(time.RFC3339),
		Publisher:   name,
		Description: description,
		Kind:        "instance",
		FHIRVersion: "4.0.1",
		Format:      []string{"application/fhir+json", "application/json"},
		Rest:        []CSRest{{Mode: "server", Resource: resources}},
	}
}
