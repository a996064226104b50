package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"volt-data/cache"
	"volt-data/models"
	"volt-data/presign"
)

type catalogSource struct{}

func (catalogSource) ListComponents(context.Context) ([]*models.Component, error) {
	return []*models.Component{
		{ID: "mcb_b16", Name: "B16A", Description: "Wyłącznik nadprądowy", Fields: 1, Price: models.NewPrice(32.5), Image: "/images/mcb_b16.jpg"},
		{ID: "rcd", Name: "RCD 40A/30mA", Fields: 2, Price: models.NewPrice(250)},
		{ID: "spd", Name: "Ogranicznik przepięć", Fields: 4},
	}, nil
}

func (catalogSource) ListPlacements(context.Context) ([]models.Placement, error) {
	return []models.Placement{
		{ComponentID: "mcb_b16", CategoryID: "overcurrent_protection", SubcategoryID: "mcb_b"},
		{ComponentID: "rcd", CategoryID: "basic_protection"},
	}, nil
}

func (catalogSource) Summaries(context.Context) ([]models.CategorySummary, error) {
	return []models.CategorySummary{
		{ID: "basic_protection", Name: "Zabezpieczenia podstawowe", Subcategories: map[string]int{}, TotalCount: 1},
		{ID: "overcurrent_protection", Name: "Zabezpieczenia nadprądowe", Subcategories: map[string]int{"mcb_b": 1}, TotalCount: 1},
	}, nil
}

func (catalogSource) ListFuseTypes(context.Context, string) ([]models.FuseType, error) {
	return []models.FuseType{
		{FuseType: "16A", PhaseType: models.PhaseSingle},
		{FuseType: "25A", PhaseType: models.PhaseThree},
	}, nil
}

type fakeSigner struct {
	err error
}

func (f fakeSigner) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://volt-data-lake.s3.amazonaws.com/" + key + "?X-Amz-Expires=" + ttl.String(), nil
}

func newTestRouter(t *testing.T, images ImageURLs) http.Handler {
	t.Helper()
	c := cache.NewCatalogCache()
	require.NoError(t, c.Load(context.Background(), catalogSource{}, catalogSource{}, catalogSource{}))
	return NewHandler(c, images, zaptest.NewLogger(t)).Router([]string{"*"})
}

func get(t *testing.T, router http.Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	var body map[string]interface{}
	if rr.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	}
	return rr, body
}

func TestRoot(t *testing.T) {
	rr, _ := get(t, newTestRouter(t, nil), "/")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Volt catalog API is running.", rr.Body.String())
}

func TestListComponents(t *testing.T) {
	rr, body := get(t, newTestRouter(t, nil), "/api/components")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(3), body["count"])

	data := body["data"].([]interface{})
	first := data[0].(map[string]interface{})
	assert.Equal(t, "mcb_b16", first["id"])
	assert.Equal(t, 32.5, first["price"])
	assert.Equal(t, "overcurrent_protection", first["category"])
	assert.Equal(t, "mcb_b", first["subcategory"])

	spd := data[2].(map[string]interface{})
	assert.Equal(t, float64(0), spd["price"], "missing price renders as 0")
	assert.Equal(t, "", spd["category"])
}

func TestSearchComponents(t *testing.T) {
	router := newTestRouter(t, nil)

	rr, body := get(t, router, "/api/components/search?q="+url.QueryEscape("wyłącznik"))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(1), body["count"])
	assert.Equal(t, "wyłącznik", body["searchTerm"])

	_, body = get(t, router, "/api/components/search?q=")
	assert.Equal(t, float64(3), body["count"], "empty term lists everything")
	assert.NotContains(t, body, "searchTerm")
}

func TestCategories(t *testing.T) {
	rr, body := get(t, newTestRouter(t, nil), "/api/components/categories")
	require.Equal(t, http.StatusOK, rr.Code)

	data := body["data"].(map[string]interface{})
	require.Len(t, data, 2)
	over := data["overcurrent_protection"].(map[string]interface{})
	assert.Equal(t, "Zabezpieczenia nadprądowe", over["name"])
	assert.Equal(t, float64(1), over["totalCount"])
}

func TestComponentsByCategory(t *testing.T) {
	router := newTestRouter(t, nil)

	_, body := get(t, router, "/api/components/category/basic_protection")
	assert.Equal(t, float64(1), body["count"])
	assert.Equal(t, "basic_protection", body["category"])

	rr, body := get(t, router, "/api/components/category/unknown")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(0), body["count"])
	assert.Empty(t, body["data"])
}

func TestFuseTypes(t *testing.T) {
	router := newTestRouter(t, nil)

	_, body := get(t, router, "/api/components/fuse-types")
	assert.Equal(t, float64(2), body["count"])

	_, body = get(t, router, "/api/components/fuse-types?phase="+url.QueryEscape(models.PhaseThree))
	require.Equal(t, float64(1), body["count"])
	ft := body["data"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "25A", ft["fuse_type"])
}

func TestGetComponent(t *testing.T) {
	router := newTestRouter(t, nil)

	rr, body := get(t, router, "/api/components/rcd")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "RCD 40A/30mA", body["data"].(map[string]interface{})["name"])

	rr, body = get(t, router, "/api/components/missing")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Component not found", body["error"])
}

func TestImageURL(t *testing.T) {
	router := newTestRouter(t, presign.NewService(fakeSigner{}, nil))

	rr, body := get(t, router, "/api/components/mcb_b16/image-url?hours=2")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Presigned URL generated for 2 hours", body["message"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "mcb_b16", data["componentId"])
	assert.Contains(t, data["imageUrl"], "images/components/mcb_b16/mcb_b16.jpg")
	assert.Equal(t, float64(2), data["expiresInHours"])

	_, body = get(t, router, "/api/components/rcd/image-url")
	assert.Equal(t, float64(24), body["data"].(map[string]interface{})["expiresInHours"])

	rr, _ = get(t, router, "/api/components/rcd/image-url?hours=zero")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = get(t, router, "/api/components/missing/image-url")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestImageURLHoursRange(t *testing.T) {
	router := newTestRouter(t, presign.NewService(fakeSigner{}, nil))

	for _, raw := range []string{"0", "-3", "169", "9999999", "99999999999999999999"} {
		rr, body := get(t, router, "/api/components/mcb_b16/image-url?hours="+raw)
		assert.Equal(t, http.StatusBadRequest, rr.Code, raw)
		assert.Equal(t, "Invalid hours parameter", body["error"], raw)
		assert.Equal(t, raw, body["details"], raw)
	}

	rr, body := get(t, router, "/api/components/mcb_b16/image-url?hours=168")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(168), body["data"].(map[string]interface{})["expiresInHours"])
}

func TestImageURLErrors(t *testing.T) {
	rr, body := get(t, newTestRouter(t, nil), "/api/components/rcd/image-url")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, false, body["success"])

	router := newTestRouter(t, presign.NewService(fakeSigner{err: errors.New("no credentials")}, nil))
	rr, body = get(t, router, "/api/components/rcd/image-url")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "rcd", body["componentId"])
	assert.Contains(t, body["error"], "no credentials")
}
