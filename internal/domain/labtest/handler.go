package labtest

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fhirlab/catalog/internal/domain/audit"
	"github.com/fhirlab/catalog/internal/platform/auth"
	"github.com/fhirlab/catalog/internal/platform/fhir"
)

// StandardCategories is the category vocabulary served by /metadata/categories.
var StandardCategories = []string{
	"chemistry",
	"hematology",
	"microbiology",
	"immunology",
	"molecular",
	"pathology",
	"toxicology",
	"genetics",
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Capability)

	e.GET("/LabTestDefinition", h.SearchTests)
	e.POST("/LabTestDefinition", h.CreateTest)
	e.POST("/LabTestDefinition/$validate", h.ValidateTest)
	e.GET("/LabTestDefinition/:id", h.GetTest)
	e.PUT("/LabTestDefinition/:id", h.UpdateTest)
	e.DELETE("/LabTestDefinition/:id", h.DeleteTest)

	e.GET("/ObservationDefinition/:id", h.GetObservationDefinition)
	e.GET("/SpecimenDefinition/:id", h.GetSpecimenDefinition)

	e.GET("/Bundle/lab-tests", h.TestBundle)

	e.GET("/metadata/statistics", h.Statistics)
	e.GET("/metadata/categories", h.Categories)
}

func (h *Handler) Capability(c echo.Context) error {
	cs := fhir.NewCapabilityStatement(
		"lab-test-catalog",
		"LabTestCatalog",
		"FHIR-based laboratory test catalog service",
		[]fhir.CSResource{
			{
				Type:        "LabTestDefinition",
				Interaction: fhir.DefaultInteractions(),
				SearchParam: []fhir.CSSearchParam{
					{Name: "query", Type: "string"},
					{Name: "category", Type: "token"},
					{Name: "status", Type: "token"},
					{Name: "code", Type: "token"},
				},
			},
			{Type: "ObservationDefinition", Interaction: fhir.ReadOnlyInteractions()},
			{Type: "SpecimenDefinition", Interaction: fhir.ReadOnlyInteractions()},
		},
	)
	return c.JSON(http.StatusOK, cs)
}

func (h *Handler) SearchTests(c echo.Context) error {
	p, err := ParamsFromRequest(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome(err.Error()))
	}
	results, err := h.svc.SearchTests(c.Request().Context(), p)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, results)
}

func (h *Handler) GetTest(c echo.Context) error {
	def, err := h.svc.GetTest(c.Request().Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("LabTestDefinition", c.Param("id")))
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, def)
}

func (h *Handler) CreateTest(c echo.Context) error {
	var def LabTestDefinition
	if err := c.Bind(&def); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome(err.Error()))
	}
	created, issues, err := h.svc.CreateTest(c.Request().Context(), &def, requestMeta(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	if created == nil {
		return c.JSON(http.StatusBadRequest, fhir.NewOutcome(fhir.ErrorsOnly(issues)))
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) UpdateTest(c echo.Context) error {
	var def LabTestDefinition
	if err := c.Bind(&def); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome(err.Error()))
	}
	updated, issues, err := h.svc.UpdateTest(c.Request().Context(), c.Param("id"), &def, requestMeta(c))
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("LabTestDefinition", c.Param("id")))
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	if updated == nil {
		return c.JSON(http.StatusBadRequest, fhir.NewOutcome(fhir.ErrorsOnly(issues)))
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeleteTest(c echo.Context) error {
	deleted, err := h.svc.DeleteTest(c.Request().Context(), c.Param("id"), requestMeta(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	if !deleted {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("LabTestDefinition", c.Param("id")))
	}
	return c.NoContent(http.StatusNoContent)
}

// ValidateTest runs validation only. The response is always 200 with the full
// issue list, regardless of severities.
func (h *Handler) ValidateTest(c echo.Context) error {
	var def LabTestDefinition
	if err := c.Bind(&def); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, fhir.NewOutcome(h.svc.ValidateTest(&def)))
}

func (h *Handler) GetObservationDefinition(c echo.Context) error {
	obs, err := h.svc.GetObservationDefinition(c.Request().Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("ObservationDefinition", c.Param("id")))
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, obs)
}

func (h *Handler) GetSpecimenDefinition(c echo.Context) error {
	spec, err := h.svc.GetSpecimenDefinition(c.Request().Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("SpecimenDefinition", c.Param("id")))
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, spec)
}

func (h *Handler) TestBundle(c echo.Context) error {
	p, err := ParamsFromRequest(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome(err.Error()))
	}
	bundle, err := h.svc.SearchBundle(c.Request().Context(), p, c.Request().RequestURI)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, bundle)
}

func (h *Handler) Statistics(c echo.Context) error {
	stats, err := h.svc.Statistics(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, statisticsParameters(stats))
}

func (h *Handler) Categories(c echo.Context) error {
	concepts := make([]map[string]string, len(StandardCategories))
	for i, cat := range StandardCategories {
		concepts[i] = map[string]string{"code": cat, "display": cat}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"resourceType": "ValueSet",
		"id":           "lab-test-categories",
		"name":         "LabTestCategories",
		"status":       "active",
		"compose": map[string]interface{}{
			"include": []map[string]interface{}{
				{"system": "http://example.org/lab-test-categories", "concept": concepts},
			},
		},
	})
}

// statisticsParameters shapes catalog aggregates as a FHIR Parameters
// resource.
func statisticsParameters(stats *Statistics) map[string]interface{} {
	params := []map[string]interface{}{
		{"name": "totalTests", "valueInteger": stats.TotalTests},
	}
	for status, count := range stats.ByStatus {
		params = append(params, map[string]interface{}{
			"name": "byStatus", "part": []map[string]interface{}{
				{"name": status, "valueInteger": count},
			},
		})
	}
	for category, count := range stats.ByCategory {
		params = append(params, map[string]interface{}{
			"name": "byCategory", "part": []map[string]interface{}{
				{"name": category, "valueInteger": count},
			},
		})
	}
	for day, count := range stats.RecentActivity {
		params = append(params, map[string]interface{}{
			"name": "recentActivity", "part": []map[string]interface{}{
				{"name": day, "valueInteger": count},
			},
		})
	}
	params = append(params, map[string]interface{}{
		"name": "lastUpdated", "valueDateTime": time.Now().UTC().Format(time.RFC3339),
	})
	return map[string]interface{}{
		"resourceType": "Parameters",
		"parameter":    params,
	}
}

func requestMeta(c echo.Context) audit.Meta {
	return audit.Meta{
		Actor:  auth.Actor(c),
		Origin: c.RealIP(),
	}
}
