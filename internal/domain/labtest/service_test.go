package labtest

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhirlab/catalog/internal/domain/audit"
	"github.com/fhirlab/catalog/internal/platform/fhir"
)

// fakeRepo is an in-memory Repository honoring the same write semantics as
// the SQL implementation: derived index rows per record, immutable creation
// stamp on update, audit entry per write.
type fakeRepo struct {
	records map[string]*TestRecord
	index   map[string][]IndexEntry
	audits  []audit.Entry
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		records: map[string]*TestRecord{},
		index:   map[string][]IndexEntry{},
	}
}

func (f *fakeRepo) Get(ctx context.Context, id string) (*TestRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

func (f *fakeRepo) Create(ctx context.Context, rec *TestRecord, meta audit.Meta) error {
	clone := *rec
	f.records[rec.ID] = &clone
	f.index[rec.ID] = indexEntries(rec)
	f.audits = append(f.audits, audit.Entry{
		Action: audit.ActionCreate, ResourceType: "LabTestDefinition",
		ResourceID: rec.ID, Actor: meta.Actor, Origin: meta.Origin,
	})
	return nil
}

func (f *fakeRepo) Update(ctx context.Context, id string, rec *TestRecord, meta audit.Meta) (*TestRecord, error) {
	old, ok := f.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	rec.ID = id
	rec.CreatedDate = old.CreatedDate
	if rec.CreatedBy == nil {
		rec.CreatedBy = old.CreatedBy
	}
	rec.ModifiedDate = nowUTC()
	rec.SearchText = searchText(rec)

	clone := *rec
	f.records[id] = &clone
	f.index[id] = indexEntries(rec)
	f.audits = append(f.audits, audit.Entry{
		Action: audit.ActionUpdate, ResourceType: "LabTestDefinition",
		ResourceID: id, Actor: meta.Actor,
		Changes: audit.Diff(old.Projection(), rec.Projection()),
		Origin:  meta.Origin,
	})
	return rec, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id string, meta audit.Meta) (bool, error) {
	if _, ok := f.records[id]; !ok {
		return false, nil
	}
	delete(f.records, id)
	delete(f.index, id)
	f.audits = append(f.audits, audit.Entry{
		Action: audit.ActionDelete, ResourceType: "LabTestDefinition",
		ResourceID: id, Actor: meta.Actor, Origin: meta.Origin,
	})
	return true, nil
}

func (f *fakeRepo) matches(rec *TestRecord, p SearchParams) bool {
	if p.Query != "" && !strings.Contains(rec.SearchText, strings.ToLower(p.Query)) {
		return false
	}
	if len(p.Category) > 0 {
		hit := false
		for _, want := range p.Category {
			for _, cat := range rec.Category {
				if strings.Contains(strings.ToLower(cat.Text), strings.ToLower(want)) {
					hit = true
				}
			}
		}
		if !hit {
			return false
		}
	}
	if len(p.Status) > 0 {
		hit := false
		for _, s := range p.Status {
			if string(s) == rec.Status {
				hit = true
			}
		}
		if !hit {
			return false
		}
	}
	if p.Code != "" && rec.Code.FirstCode() != p.Code {
		return false
	}
	return true
}

func (f *fakeRepo) Search(ctx context.Context, p SearchParams) (*SearchPage, error) {
	var matched []*TestRecord
	for _, rec := range f.records {
		if f.matches(rec, p) {
			clone := *rec
			matched = append(matched, &clone)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })

	facets := Facets{Status: map[string]int{}, Category: map[string]int{}}
	for _, rec := range matched {
		facets.Status[rec.Status]++
		for _, e := range f.index[rec.ID] {
			if e.Kind == IndexKindCategory {
				facets.Category[e.SearchValue]++
			}
		}
	}

	total := len(matched)
	start := p.Offset
	if start > total {
		start = total
	}
	end := start + p.Limit
	if p.Limit == 0 || end > total {
		end = total
	}

	return &SearchPage{Total: total, Records: matched[start:end], Facets: facets}, nil
}

func (f *fakeRepo) Statistics(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{
		TotalTests:     len(f.records),
		ByStatus:       map[string]int{},
		ByCategory:     map[string]int{},
		RecentActivity: map[string]int{},
	}
	for _, rec := range f.records {
		stats.ByStatus[rec.Status]++
		for _, e := range f.index[rec.ID] {
			if e.Kind == IndexKindCategory {
				stats.ByCategory[e.SearchValue]++
			}
		}
		stats.RecentActivity[rec.CreatedDate.Format("2006-01-02")]++
	}
	return stats, nil
}

func newTestService() (*Service, *fakeRepo) {
	repo := newFakeRepo()
	return NewService(repo, zerolog.Nop()), repo
}

var testMeta = audit.Meta{Actor: "tester", Origin: "unit-test"}

func TestCreateThenGet(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, issues, err := svc.CreateTest(ctx, glucoseDefinition(), testMeta)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.False(t, fhir.HasErrors(issues))

	got, err := svc.GetTest(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestCreateAssignsIDAndDefaults(t *testing.T) {
	svc, _ := newTestService()

	def := glucoseDefinition()
	def.ID = ""
	def.Status = ""
	def.Version = ""

	created, _, err := svc.CreateTest(context.Background(), def, testMeta)
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, DefaultStatus, created.Status)
	assert.Equal(t, DefaultVersion, created.Version)
	assert.False(t, created.CreatedDate.IsZero())
	assert.Equal(t, created.CreatedDate, created.ModifiedDate)
}

func TestCreateBlockedByValidation(t *testing.T) {
	svc, repo := newTestService()

	created, issues, err := svc.CreateTest(context.Background(), &LabTestDefinition{Name: "No code"}, testMeta)
	require.NoError(t, err)

	assert.Nil(t, created)
	assert.True(t, fhir.HasErrors(issues))
	assert.Empty(t, repo.records)
	assert.Empty(t, repo.audits)
}

func TestUpdateRestampsModified(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, _, err := svc.CreateTest(ctx, glucoseDefinition(), testMeta)
	require.NoError(t, err)

	changed := glucoseDefinition()
	changed.Description = "Measures the amount of glucose in blood or plasma"

	updated, issues, err := svc.UpdateTest(ctx, created.ID, changed, testMeta)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.False(t, fhir.HasErrors(issues))

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedDate, updated.CreatedDate)
	assert.True(t, updated.ModifiedDate.After(updated.CreatedDate))
}

func TestUpdateMissingID(t *testing.T) {
	svc, _ := newTestService()

	_, _, err := svc.UpdateTest(context.Background(), "nope", glucoseDefinition(), testMeta)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRecordsFieldDiff(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	created, _, err := svc.CreateTest(ctx, glucoseDefinition(), testMeta)
	require.NoError(t, err)

	changed := glucoseDefinition()
	changed.Description = "Different description"
	_, _, err = svc.UpdateTest(ctx, created.ID, changed, testMeta)
	require.NoError(t, err)

	last := repo.audits[len(repo.audits)-1]
	require.Equal(t, audit.ActionUpdate, last.Action)
	require.Contains(t, last.Changes, "description")
	assert.Equal(t, "Different description", last.Changes["description"].New)
	assert.NotContains(t, last.Changes, "name")
}

func TestDeleteRemovesRecordAndIndex(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	created, _, err := svc.CreateTest(ctx, glucoseDefinition(), testMeta)
	require.NoError(t, err)
	require.NotEmpty(t, repo.index[created.ID])

	deleted, err := svc.DeleteTest(ctx, created.ID, testMeta)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Empty(t, repo.records)
	assert.Empty(t, repo.index)

	deleted, err = svc.DeleteTest(ctx, created.ID, testMeta)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestSearchGlucoseScenario(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, _, err := svc.CreateTest(ctx, glucoseDefinition(), testMeta)
	require.NoError(t, err)

	byQuery, err := svc.SearchTests(ctx, SearchParams{Query: "glucose", Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 1, byQuery.Total)
	assert.Equal(t, "Glucose", byQuery.Results[0].Name)

	byCategory, err := svc.SearchTests(ctx, SearchParams{Category: []string{"chem"}, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 1, byCategory.Total)

	miss, err := svc.SearchTests(ctx, SearchParams{Query: "lipid", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, miss.Total)
}

func TestSearchPaginationEchoesOffsetAndStableTotal(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for _, name := range []string{"Alpha", "Beta", "Gamma"} {
		def := glucoseDefinition()
		def.ID = ""
		def.Name = name
		_, _, err := svc.CreateTest(ctx, def, testMeta)
		require.NoError(t, err)
	}

	page, err := svc.SearchTests(ctx, SearchParams{Limit: 2, Offset: 1})
	require.NoError(t, err)

	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Count)
	assert.Equal(t, 1, page.Offset)
	assert.Equal(t, "Beta", page.Results[0].Name)
}

func TestGetObservationDefinition(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, _, err := svc.CreateTest(ctx, glucoseDefinition(), testMeta)
	require.NoError(t, err)

	obs, err := svc.GetObservationDefinition(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "ObservationDefinition", obs.Type)

	_, err = svc.GetSpecimenDefinition(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchBundle(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, _, err := svc.CreateTest(ctx, glucoseDefinition(), testMeta)
	require.NoError(t, err)

	bundle, err := svc.SearchBundle(ctx, SearchParams{Query: "glucose", Limit: 10}, "/Bundle/lab-tests?query=glucose")
	require.NoError(t, err)

	assert.Equal(t, "searchset", bundle.Kind)
	require.NotNil(t, bundle.Total)
	assert.Equal(t, 1, *bundle.Total)
	require.Len(t, bundle.Entry, 1)
	assert.Equal(t, "LabTestDefinition/"+created.ID, bundle.Entry[0].FullURL)
	assert.Equal(t, "LabTestDefinition", bundle.Entry[0].Resource.ResourceType())
}

func TestCollectionBundle(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, _, err := svc.CreateTest(ctx, glucoseDefinition(), testMeta)
	require.NoError(t, err)

	bundle, err := svc.CollectionBundle(ctx, SearchParams{Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, "collection", bundle.Kind)
	require.Len(t, bundle.Entry, 1)
	assert.Nil(t, bundle.Entry[0].Search)
}
