package labtest

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Pagination and sorting defaults for search requests.
const (
	DefaultCount = 50
	MaxCount     = 1000
	DefaultSort  = "name"
)

// sortableColumns is the closed set of columns _sort may name. Anything else
// is rejected at the boundary, never handed to the query builder.
var sortableColumns = map[string]bool{
	"name":          true,
	"status":        true,
	"version":       true,
	"created_date":  true,
	"modified_date": true,
}

// SearchParams are the decoded search filters. Filters combine with logical
// AND; multi-valued filters (category, status) OR internally.
type SearchParams struct {
	Query        string
	Category     []string
	Status       []Status
	SpecimenType []string
	CodeSystem   string
	Code         string
	Limit        int
	Offset       int
	SortBy       string
	SortOrder    string
}

// ParamsFromRequest decodes and bounds-checks search parameters from the
// query string. Status values outside the closed set, sort columns outside
// sortableColumns, and out-of-range _count/_offset are rejected.
func ParamsFromRequest(c echo.Context) (SearchParams, error) {
	p := SearchParams{
		Query:        c.QueryParam("query"),
		Category:     c.QueryParams()["category"],
		SpecimenType: c.QueryParams()["specimen_type"],
		CodeSystem:   c.QueryParam("code_system"),
		Code:         c.QueryParam("code"),
		Limit:        DefaultCount,
		Offset:       0,
		SortBy:       DefaultSort,
		SortOrder:    "asc",
	}

	for _, raw := range c.QueryParams()["status"] {
		status, err := ParseStatus(raw)
		if err != nil {
			return SearchParams{}, err
		}
		p.Status = append(p.Status, status)
	}

	if raw := c.QueryParam("_count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxCount {
			return SearchParams{}, fmt.Errorf("_count must be an integer between 1 and %d", MaxCount)
		}
		p.Limit = n
	}

	if raw := c.QueryParam("_offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return SearchParams{}, fmt.Errorf("_offset must be a non-negative integer")
		}
		p.Offset = n
	}

	if raw := c.QueryParam("_sort"); raw != "" {
		if !sortableColumns[raw] {
			return SearchParams{}, fmt.Errorf("_sort must be one of name, status, version, created_date, modified_date")
		}
		p.SortBy = raw
	}

	if raw := c.QueryParam("_order"); raw != "" {
		if raw != "asc" && raw != "desc" {
			return SearchParams{}, fmt.Errorf("_order must be asc or desc")
		}
		p.SortOrder = raw
	}

	return p, nil
}

// Facets are per-search aggregations computed under the same filter set as
// the page itself.
type Facets struct {
	Status   map[string]int `json:"status"`
	Category map[string]int `json:"category"`
}

// SearchPage is one page of matching records plus the filter-independent
// total and facets.
type SearchPage struct {
	Total   int
	Records []*TestRecord
	Facets  Facets
}

// SearchResults is the flat search response envelope.
type SearchResults struct {
	Total   int                  `json:"total"`
	Count   int                  `json:"count"`
	Offset  int                  `json:"offset"`
	Results []*LabTestDefinition `json:"results"`
	Facets  Facets               `json:"facets"`
}

// Statistics summarizes the catalog for the metadata endpoint.
type Statistics struct {
	TotalTests     int            `json:"total_tests"`
	ByStatus       map[string]int `json:"by_status"`
	ByCategory     map[string]int `json:"by_category"`
	RecentActivity map[string]int `json:"recent_activity"`
}
