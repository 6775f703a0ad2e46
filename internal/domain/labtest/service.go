package labtest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fhirlab/catalog/internal/domain/audit"
	"github.com/fhirlab/catalog/internal/platform/fhir"
)

// Service coordinates validation, mapping and persistence for lab test
// definitions. All dependencies are injected; the service holds no state
// beyond them.
type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// GetTest fetches one definition by id.
func (s *Service) GetTest(ctx context.Context, id string) (*LabTestDefinition, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return fromRecord(rec), nil
}

// CreateTest validates and persists a new definition. When validation
// produces error-severity issues, nothing is written and the issues are
// returned for the caller to surface.
func (s *Service) CreateTest(ctx context.Context, def *LabTestDefinition, meta audit.Meta) (*LabTestDefinition, []fhir.Issue, error) {
	issues := Validate(def)
	if fhir.HasErrors(issues) {
		return nil, issues, nil
	}

	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	if def.Version == "" {
		def.Version = DefaultVersion
	}
	if def.Status == "" {
		def.Status = DefaultStatus
	}
	now := nowUTC()
	def.CreatedDate = now
	def.ModifiedDate = now
	if def.CreatedBy == "" {
		def.CreatedBy = meta.Actor
	}

	rec := toRecord(def)
	if err := s.repo.Create(ctx, rec, meta); err != nil {
		return nil, nil, err
	}

	s.log.Info().
		Str("test_id", rec.ID).
		Str("name", rec.Name).
		Msg("lab test definition created")

	return fromRecord(rec), issues, nil
}

// UpdateTest validates and replaces an existing definition. The repository
// preserves the creation stamp and diffs old against new for the audit trail.
func (s *Service) UpdateTest(ctx context.Context, id string, def *LabTestDefinition, meta audit.Meta) (*LabTestDefinition, []fhir.Issue, error) {
	issues := Validate(def)
	if fhir.HasErrors(issues) {
		return nil, issues, nil
	}

	if def.Version == "" {
		def.Version = DefaultVersion
	}
	if def.Status == "" {
		def.Status = DefaultStatus
	}

	rec, err := s.repo.Update(ctx, id, toRecord(def), meta)
	if err != nil {
		return nil, nil, err
	}

	s.log.Info().
		Str("test_id", rec.ID).
		Msg("lab test definition updated")

	return fromRecord(rec), issues, nil
}

// DeleteTest removes a definition and its index rows. The bool reports
// whether anything existed to delete.
func (s *Service) DeleteTest(ctx context.Context, id string, meta audit.Meta) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id, meta)
	if err != nil {
		return false, err
	}
	if deleted {
		s.log.Info().Str("test_id", id).Msg("lab test definition deleted")
	}
	return deleted, nil
}

// ValidateTest runs validation without persisting anything.
func (s *Service) ValidateTest(def *LabTestDefinition) []fhir.Issue {
	return Validate(def)
}

// SearchTests runs a filtered search and returns the flat results envelope.
func (s *Service) SearchTests(ctx context.Context, p SearchParams) (*SearchResults, error) {
	page, err := s.repo.Search(ctx, p)
	if err != nil {
		return nil, err
	}

	results := make([]*LabTestDefinition, len(page.Records))
	for i, rec := range page.Records {
		results[i] = fromRecord(rec)
	}

	return &SearchResults{
		Total:   page.Total,
		Count:   len(results),
		Offset:  p.Offset,
		Results: results,
		Facets:  page.Facets,
	}, nil
}

// SearchBundle runs a filtered search and wraps the page in a searchset
// Bundle.
func (s *Service) SearchBundle(ctx context.Context, p SearchParams, selfURL string) (*fhir.Bundle, error) {
	page, err := s.repo.Search(ctx, p)
	if err != nil {
		return nil, err
	}
	return fhir.NewSearchset(s.entries(page.Records), page.Total, selfURL), nil
}

// CollectionBundle wraps a filtered search page in a collection Bundle.
func (s *Service) CollectionBundle(ctx context.Context, p SearchParams) (*fhir.Bundle, error) {
	page, err := s.repo.Search(ctx, p)
	if err != nil {
		return nil, err
	}
	return fhir.NewCollection(s.entries(page.Records), page.Total), nil
}

func (s *Service) entries(records []*TestRecord) []fhir.Entry {
	entries := make([]fhir.Entry, len(records))
	for i, rec := range records {
		entries[i] = fhir.Entry{
			Locator:  fhir.FormatReference("LabTestDefinition", rec.ID),
			Resource: fromRecord(rec),
		}
	}
	return entries
}

// GetObservationDefinition extracts the embedded ObservationDefinition from
// a definition. Absence of the embedded resource is a not-found.
func (s *Service) GetObservationDefinition(ctx context.Context, testID string) (*ObservationDefinition, error) {
	def, err := s.GetTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	if def.ObservationDefinition == nil {
		return nil, ErrNotFound
	}
	obs := def.ObservationDefinition
	if obs.ID == "" {
		obs.ID = fmt.Sprintf("obs-%s", testID)
	}
	return obs, nil
}

// GetSpecimenDefinition extracts the embedded SpecimenDefinition from a
// definition.
func (s *Service) GetSpecimenDefinition(ctx context.Context, testID string) (*SpecimenDefinition, error) {
	def, err := s.GetTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	if def.SpecimenDefinition == nil {
		return nil, ErrNotFound
	}
	spec := def.SpecimenDefinition
	if spec.ID == "" {
		spec.ID = fmt.Sprintf("spec-%s", testID)
	}
	return spec, nil
}

// Statistics returns catalog-wide aggregates.
func (s *Service) Statistics(ctx context.Context) (*Statistics, error) {
	return s.repo.Statistics(ctx)
}
