package labtest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*echo.Echo, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	svc := NewService(repo, zerolog.Nop())
	e := echo.New()
	NewHandler(svc).RegisterRoutes(e)
	return e, repo
}

func doJSON(e *echo.Echo, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), into))
}

func TestCapabilityEndpoint(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	decodeBody(t, rec, &body)
	assert.Equal(t, "CapabilityStatement", body["resourceType"])
}

func TestCreateAndReadTest(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/LabTestDefinition", glucoseDefinition())
	require.Equal(t, http.StatusCreated, rec.Code)

	var created LabTestDefinition
	decodeBody(t, rec, &created)
	require.NotEmpty(t, created.ID)

	rec = doJSON(e, http.MethodGet, "/LabTestDefinition/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got LabTestDefinition
	decodeBody(t, rec, &got)
	assert.Equal(t, created.Name, got.Name)
	assert.Equal(t, created.Code, got.Code)
}

func TestCreateInvalidReturnsOutcome(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/LabTestDefinition", &LabTestDefinition{Name: "No code or description"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var outcome map[string]interface{}
	decodeBody(t, rec, &outcome)
	assert.Equal(t, "OperationOutcome", outcome["resourceType"])
	assert.NotEmpty(t, outcome["issue"])
}

func TestGetMissingTestReturns404Outcome(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodGet, "/LabTestDefinition/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var outcome map[string]interface{}
	decodeBody(t, rec, &outcome)
	assert.Equal(t, "OperationOutcome", outcome["resourceType"])
}

func TestUpdateTestEndpoint(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/LabTestDefinition", glucoseDefinition())
	require.Equal(t, http.StatusCreated, rec.Code)
	var created LabTestDefinition
	decodeBody(t, rec, &created)

	changed := glucoseDefinition()
	changed.Description = "Updated description"
	rec = doJSON(e, http.MethodPut, "/LabTestDefinition/"+created.ID, changed)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated LabTestDefinition
	decodeBody(t, rec, &updated)
	assert.Equal(t, "Updated description", updated.Description)

	rec = doJSON(e, http.MethodPut, "/LabTestDefinition/nope", changed)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteTestEndpoint(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/LabTestDefinition", glucoseDefinition())
	require.Equal(t, http.StatusCreated, rec.Code)
	var created LabTestDefinition
	decodeBody(t, rec, &created)

	rec = doJSON(e, http.MethodDelete, "/LabTestDefinition/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(e, http.MethodDelete, "/LabTestDefinition/"+created.ID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var outcome map[string]interface{}
	decodeBody(t, rec, &outcome)
	assert.Equal(t, "OperationOutcome", outcome["resourceType"])
}

func TestSearchEndpoint(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/LabTestDefinition", glucoseDefinition())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodGet, "/LabTestDefinition?query=glucose&category=chemistry&status=active", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var results SearchResults
	decodeBody(t, rec, &results)
	require.Equal(t, 1, results.Total)
	assert.Equal(t, 1, results.Count)
	assert.Equal(t, "Glucose", results.Results[0].Name)
	assert.Equal(t, 1, results.Facets.Status["active"])
	assert.Equal(t, 1, results.Facets.Category["clinical chemistry"])
}

func TestSearchRejectsBadParams(t *testing.T) {
	e, _ := newTestServer(t)

	for _, path := range []string{
		"/LabTestDefinition?status=bogus",
		"/LabTestDefinition?_count=0",
		"/LabTestDefinition?_count=1001",
		"/LabTestDefinition?_offset=-1",
		"/LabTestDefinition?_order=sideways",
		"/LabTestDefinition?_sort=search_text",
		"/LabTestDefinition?_sort=name%22%3B%20DROP%20TABLE%20lab_test_definitions%3B%20--",
	} {
		rec := doJSON(e, http.MethodGet, path, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code, path)

		var outcome map[string]interface{}
		decodeBody(t, rec, &outcome)
		assert.Equal(t, "OperationOutcome", outcome["resourceType"], path)
	}
}

func TestValidateEndpointAlways200(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/LabTestDefinition/$validate", &LabTestDefinition{})
	require.Equal(t, http.StatusOK, rec.Code)

	var outcome map[string]interface{}
	decodeBody(t, rec, &outcome)
	assert.Equal(t, "OperationOutcome", outcome["resourceType"])
	assert.NotEmpty(t, outcome["issue"])

	rec = doJSON(e, http.MethodPost, "/LabTestDefinition/$validate", glucoseDefinition())
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSubResourceEndpoints(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/LabTestDefinition", glucoseDefinition())
	require.Equal(t, http.StatusCreated, rec.Code)
	var created LabTestDefinition
	decodeBody(t, rec, &created)

	rec = doJSON(e, http.MethodGet, "/ObservationDefinition/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var obs map[string]interface{}
	decodeBody(t, rec, &obs)
	assert.Equal(t, "ObservationDefinition", obs["resourceType"])

	// glucoseDefinition carries no SpecimenDefinition
	rec = doJSON(e, http.MethodGet, "/SpecimenDefinition/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBundleEndpoint(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/LabTestDefinition", glucoseDefinition())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodGet, "/Bundle/lab-tests?query=glucose", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var bundle map[string]interface{}
	decodeBody(t, rec, &bundle)
	assert.Equal(t, "Bundle", bundle["resourceType"])
	assert.Equal(t, "searchset", bundle["type"])
	assert.Equal(t, float64(1), bundle["total"])
}

func TestStatisticsEndpoint(t *testing.T) {
	e, repo := newTestServer(t)

	svc := NewService(repo, zerolog.Nop())
	_, _, err := svc.CreateTest(context.Background(), glucoseDefinition(), testMeta)
	require.NoError(t, err)

	rec := doJSON(e, http.MethodGet, "/metadata/statistics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var params map[string]interface{}
	decodeBody(t, rec, &params)
	assert.Equal(t, "Parameters", params["resourceType"])

	found := false
	for _, raw := range params["parameter"].([]interface{}) {
		p := raw.(map[string]interface{})
		if p["name"] == "totalTests" {
			found = true
			assert.Equal(t, float64(1), p["valueInteger"])
		}
	}
	assert.True(t, found)
}

func TestCategoriesEndpoint(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodGet, "/metadata/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var vs map[string]interface{}
	decodeBody(t, rec, &vs)
	assert.Equal(t, "ValueSet", vs["resourceType"])

	compose := vs["compose"].(map[string]interface{})
	include := compose["include"].([]interface{})[0].(map[string]interface{})
	concepts := include["concept"].([]interface{})
	assert.Len(t, concepts, len(StandardCategories))
}
