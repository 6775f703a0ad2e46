package labtest

import (
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
)

var dialect = goqu.Dialect("postgres")

const (
	testTable  = "lab_test_definitions"
	indexTable = "search_index"
)

// recordColumns is the canonical column order; scanRecord must match it.
var recordColumns = []interface{}{
	"id", "name", "version", "status", "category", "code",
	"description", "clinical_purpose", "observation_definition", "specimen_definition",
	"reference_ranges", "critical_values", "analytical_method",
	"precision", "accuracy", "turnaround_time", "cost", "ordering_information",
	"created_date", "modified_date", "created_by", "search_text",
}

// searchConditions composes the filter predicates for a search. Filters AND
// together; the category and status lists OR internally. Every user-supplied
// value binds as a query parameter, never as query text.
//
// Category matching is deliberately substring-based against the category
// JSONB text (so "chem" matches "chemistry"); code matching is exact against
// the first coding's code. The specimen_type and code_system parameters are
// accepted but produce no predicate.
func searchConditions(p SearchParams) []goqu.Expression {
	var conds []goqu.Expression

	if p.Query != "" {
		conds = append(conds, goqu.C("search_text").ILike("%"+strings.ToLower(p.Query)+"%"))
	}

	if len(p.Category) > 0 {
		ors := make([]goqu.Expression, 0, len(p.Category))
		for _, cat := range p.Category {
			ors = append(ors, goqu.L("category::text").ILike("%"+cat+"%"))
		}
		conds = append(conds, goqu.Or(ors...))
	}

	if len(p.Status) > 0 {
		statuses := make([]string, 0, len(p.Status))
		for _, s := range p.Status {
			statuses = append(statuses, string(s))
		}
		conds = append(conds, goqu.C("status").In(statuses))
	}

	if p.Code != "" {
		conds = append(conds, goqu.L("code -> 'coding' -> 0 ->> 'code'").Eq(p.Code))
	}

	return conds
}

// buildSearchQuery produces the page-select SQL with sorting and pagination.
// The sort column renders as a quoted identifier; ParamsFromRequest has
// already restricted it to the sortableColumns set.
func buildSearchQuery(p SearchParams) (string, []interface{}, error) {
	order := goqu.I(p.SortBy).Asc()
	if p.SortOrder == "desc" {
		order = goqu.I(p.SortBy).Desc()
	}
	return dialect.From(testTable).
		Select(recordColumns...).
		Where(searchConditions(p)...).
		Order(order).
		Limit(uint(p.Limit)).
		Offset(uint(p.Offset)).
		Prepared(true).
		ToSQL()
}

// buildCountQuery counts all matches independently of pagination.
func buildCountQuery(p SearchParams) (string, []interface{}, error) {
	return dialect.From(testTable).
		Select(goqu.COUNT(goqu.Star())).
		Where(searchConditions(p)...).
		Prepared(true).
		ToSQL()
}

// buildStatusFacetQuery groups matches by status under the same filter set.
func buildStatusFacetQuery(p SearchParams) (string, []interface{}, error) {
	return dialect.From(testTable).
		Select(goqu.C("status"), goqu.COUNT(goqu.Star()).As("count")).
		Where(searchConditions(p)...).
		GroupBy("status").
		Prepared(true).
		ToSQL()
}

// buildCategoryFacetQuery derives the category breakdown from the derived
// index rows of the same filtered id set, so the facet reflects live data.
func buildCategoryFacetQuery(p SearchParams) (string, []interface{}, error) {
	matching := dialect.From(testTable).
		Select("id").
		Where(searchConditions(p)...)
	return dialect.From(indexTable).
		Select(goqu.C("search_value"), goqu.COUNT(goqu.Star()).As("count")).
		Where(
			goqu.C("kind").Eq(IndexKindCategory),
			goqu.C("test_id").In(matching),
		).
		GroupBy("search_value").
		Prepared(true).
		ToSQL()
}
