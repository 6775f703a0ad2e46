package labtest

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fhirlab/catalog/internal/domain/audit"
	"github.com/fhirlab/catalog/internal/platform/db"
)

type testRepoPG struct {
	pool    *pgxpool.Pool
	auditor audit.Recorder
}

// NewTestRepoPG creates the PostgreSQL-backed repository. The audit recorder
// writes inside the repository's transactions.
func NewTestRepoPG(pool *pgxpool.Pool, auditor audit.Recorder) Repository {
	return &testRepoPG{pool: pool, auditor: auditor}
}

const testCols = `id, name, version, status, category, code,
	description, clinical_purpose, observation_definition, specimen_definition,
	reference_ranges, critical_values, analytical_method,
	precision, accuracy, turnaround_time, cost, ordering_information,
	created_date, modified_date, created_by, search_text`

func scanRecord(row pgx.Row) (*TestRecord, error) {
	var rec TestRecord
	err := row.Scan(&rec.ID, &rec.Name, &rec.Version, &rec.Status, &rec.Category, &rec.Code,
		&rec.Description, &rec.ClinicalPurpose, &rec.ObservationDefinition, &rec.SpecimenDefinition,
		&rec.ReferenceRanges, &rec.CriticalValues, &rec.AnalyticalMethod,
		&rec.Precision, &rec.Accuracy, &rec.TurnaroundTime, &rec.Cost, &rec.OrderingInformation,
		&rec.CreatedDate, &rec.ModifiedDate, &rec.CreatedBy, &rec.SearchText)
	return &rec, err
}

func (r *testRepoPG) Get(ctx context.Context, id string) (*TestRecord, error) {
	rec, err := scanRecord(r.pool.QueryRow(ctx,
		`SELECT `+testCols+` FROM lab_test_definitions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lab test definition: %w", err)
	}
	return rec, nil
}

func (r *testRepoPG) Create(ctx context.Context, rec *TestRecord, meta audit.Meta) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO lab_test_definitions (id, name, version, status, category, code,
			description, clinical_purpose, observation_definition, specimen_definition,
			reference_ranges, critical_values, analytical_method,
			precision, accuracy, turnaround_time, cost, ordering_information,
			created_date, modified_date, created_by, search_text)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`,
		rec.ID, rec.Name, rec.Version, rec.Status, rec.Category, rec.Code,
		rec.Description, rec.ClinicalPurpose, rec.ObservationDefinition, rec.SpecimenDefinition,
		rec.ReferenceRanges, rec.CriticalValues, rec.AnalyticalMethod,
		rec.Precision, rec.Accuracy, rec.TurnaroundTime, rec.Cost, rec.OrderingInformation,
		rec.CreatedDate, rec.ModifiedDate, rec.CreatedBy, rec.SearchText,
	); err != nil {
		return fmt.Errorf("insert lab test definition: %w", err)
	}

	if err := r.rebuildIndex(ctx, tx, rec); err != nil {
		return err
	}

	if err := r.auditor.Record(ctx, tx, &audit.Entry{
		Action:       audit.ActionCreate,
		ResourceType: "LabTestDefinition",
		ResourceID:   rec.ID,
		Actor:        meta.Actor,
		Origin:       meta.Origin,
	}); err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *testRepoPG) Update(ctx context.Context, id string, rec *TestRecord, meta audit.Meta) (*TestRecord, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	old, err := scanRecord(tx.QueryRow(ctx,
		`SELECT `+testCols+` FROM lab_test_definitions WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load lab test definition for update: %w", err)
	}

	// The id and creation stamp are immutable across updates; the modified
	// stamp always moves to now.
	rec.ID = id
	rec.CreatedDate = old.CreatedDate
	if rec.CreatedBy == nil {
		rec.CreatedBy = old.CreatedBy
	}
	rec.ModifiedDate = nowUTC()
	rec.SearchText = searchText(rec)

	if _, err := tx.Exec(ctx, `
		UPDATE lab_test_definitions SET name=$2, version=$3, status=$4, category=$5, code=$6,
			description=$7, clinical_purpose=$8, observation_definition=$9, specimen_definition=$10,
			reference_ranges=$11, critical_values=$12, analytical_method=$13,
			precision=$14, accuracy=$15, turnaround_time=$16, cost=$17, ordering_information=$18,
			created_date=$19, modified_date=$20, created_by=$21, search_text=$22
		WHERE id = $1`,
		rec.ID, rec.Name, rec.Version, rec.Status, rec.Category, rec.Code,
		rec.Description, rec.ClinicalPurpose, rec.ObservationDefinition, rec.SpecimenDefinition,
		rec.ReferenceRanges, rec.CriticalValues, rec.AnalyticalMethod,
		rec.Precision, rec.Accuracy, rec.TurnaroundTime, rec.Cost, rec.OrderingInformation,
		rec.CreatedDate, rec.ModifiedDate, rec.CreatedBy, rec.SearchText,
	); err != nil {
		return nil, fmt.Errorf("update lab test definition: %w", err)
	}

	if err := r.rebuildIndex(ctx, tx, rec); err != nil {
		return nil, err
	}

	if err := r.auditor.Record(ctx, tx, &audit.Entry{
		Action:       audit.ActionUpdate,
		ResourceType: "LabTestDefinition",
		ResourceID:   rec.ID,
		Actor:        meta.Actor,
		Changes:      audit.Diff(old.Projection(), rec.Projection()),
		Origin:       meta.Origin,
	}); err != nil {
		return nil, fmt.Errorf("record audit entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *testRepoPG) Delete(ctx context.Context, id string, meta audit.Meta) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM search_index WHERE test_id = $1`, id); err != nil {
		return false, fmt.Errorf("delete search index entries: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM lab_test_definitions WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete lab test definition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if err := r.auditor.Record(ctx, tx, &audit.Entry{
		Action:       audit.ActionDelete,
		ResourceType: "LabTestDefinition",
		ResourceID:   id,
		Actor:        meta.Actor,
		Origin:       meta.Origin,
	}); err != nil {
		return false, fmt.Errorf("record audit entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// rebuildIndex regenerates the full derived row set for a record.
func (r *testRepoPG) rebuildIndex(ctx context.Context, q db.Queryer, rec *TestRecord) error {
	if _, err := q.Exec(ctx, `DELETE FROM search_index WHERE test_id = $1`, rec.ID); err != nil {
		return fmt.Errorf("clear search index entries: %w", err)
	}
	for _, entry := range indexEntries(rec) {
		if _, err := q.Exec(ctx, `
			INSERT INTO search_index (test_id, kind, search_value, display_value)
			VALUES ($1, $2, $3, $4)`,
			entry.TestID, entry.Kind, entry.SearchValue, entry.DisplayValue,
		); err != nil {
			return fmt.Errorf("insert search index entry: %w", err)
		}
	}
	return nil
}

func (r *testRepoPG) Search(ctx context.Context, p SearchParams) (*SearchPage, error) {
	countSQL, countArgs, err := buildCountQuery(p)
	if err != nil {
		return nil, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count lab test definitions: %w", err)
	}

	pageSQL, pageArgs, err := buildSearchQuery(p)
	if err != nil {
		return nil, fmt.Errorf("build search query: %w", err)
	}
	rows, err := r.pool.Query(ctx, pageSQL, pageArgs...)
	if err != nil {
		return nil, fmt.Errorf("search lab test definitions: %w", err)
	}
	defer rows.Close()

	var records []*TestRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lab test definition: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lab test definitions: %w", err)
	}

	facets, err := r.facets(ctx, p)
	if err != nil {
		return nil, err
	}

	return &SearchPage{Total: total, Records: records, Facets: facets}, nil
}

func (r *testRepoPG) facets(ctx context.Context, p SearchParams) (Facets, error) {
	facets := Facets{Status: map[string]int{}, Category: map[string]int{}}

	statusSQL, statusArgs, err := buildStatusFacetQuery(p)
	if err != nil {
		return facets, fmt.Errorf("build status facet query: %w", err)
	}
	if err := r.scanCounts(ctx, statusSQL, statusArgs, facets.Status); err != nil {
		return facets, fmt.Errorf("status facets: %w", err)
	}

	categorySQL, categoryArgs, err := buildCategoryFacetQuery(p)
	if err != nil {
		return facets, fmt.Errorf("build category facet query: %w", err)
	}
	if err := r.scanCounts(ctx, categorySQL, categoryArgs, facets.Category); err != nil {
		return facets, fmt.Errorf("category facets: %w", err)
	}

	return facets, nil
}

func (r *testRepoPG) scanCounts(ctx context.Context, sql string, args []interface{}, into map[string]int) error {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		into[key] = count
	}
	return rows.Err()
}

func (r *testRepoPG) Statistics(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{
		ByStatus:       map[string]int{},
		ByCategory:     map[string]int{},
		RecentActivity: map[string]int{},
	}

	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM lab_test_definitions`).Scan(&stats.TotalTests); err != nil {
		return nil, fmt.Errorf("count lab test definitions: %w", err)
	}

	if err := r.scanCounts(ctx,
		`SELECT status, COUNT(*) FROM lab_test_definitions GROUP BY status`,
		nil, stats.ByStatus); err != nil {
		return nil, fmt.Errorf("status statistics: %w", err)
	}

	if err := r.scanCounts(ctx,
		`SELECT search_value, COUNT(*) FROM search_index WHERE kind = $1 GROUP BY search_value`,
		[]interface{}{IndexKindCategory}, stats.ByCategory); err != nil {
		return nil, fmt.Errorf("category statistics: %w", err)
	}

	if err := r.scanCounts(ctx, `
		SELECT to_char(created_date, 'YYYY-MM-DD') AS day, COUNT(*)
		FROM lab_test_definitions
		WHERE created_date >= NOW() - INTERVAL '30 days'
		GROUP BY day ORDER BY day DESC`,
		nil, stats.RecentActivity); err != nil {
		return nil, fmt.Errorf("recent activity statistics: %w", err)
	}

	return stats, nil
}
