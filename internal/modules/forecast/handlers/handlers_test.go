package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/riskterm/internal/dataset"
	testingpkg "github.com/aristath/riskterm/internal/testing"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	store := dataset.NewStore(testingpkg.WriteDataset(t), dataset.NewCache(log), log)

	r := chi.NewRouter()
	NewHandler(store, log).RegisterRoutes(r)
	return r
}

func getData(t *testing.T, h http.Handler, path string, wantStatus int) map[string]interface{} {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, wantStatus, rec.Code, rec.Body.String())
	if wantStatus != http.StatusOK {
		return nil
	}
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["data"].(map[string]interface{})
}

func TestForecastRoutes(t *testing.T) {
	router := newRouter(t)

	data := getData(t, router, "/forecasts/", http.StatusOK)
	assert.Equal(t, 3.0, data["count"])
	first := data["forecasts"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "NVDA", first["ticker"])
	assert.NotContains(t, first, "mae")

	data = getData(t, router, "/forecasts/uncertainty?n=1", http.StatusOK)
	assert.Len(t, data["leaders"], 1)

	data = getData(t, router, "/forecasts/map", http.StatusOK)
	assert.Len(t, data["points"], 3)

	data = getData(t, router, "/forecasts/accuracy?bins=2&ticker=NVDA", http.StatusOK)
	assert.Equal(t, 1.0, data["selected_bin"])

	data = getData(t, router, "/forecasts/AAPL", http.StatusOK)
	assert.Equal(t, "Apple Inc.", data["name"])
	assert.InDelta(t, 10.526, data["band_width_pct"].(float64), 1e-3)
}

func TestForecastRoutes_Errors(t *testing.T) {
	router := newRouter(t)

	getData(t, router, "/forecasts/XYZ", http.StatusNotFound)
	getData(t, router, "/forecasts/accuracy?ticker=XYZ", http.StatusNotFound)
	getData(t, router, "/forecasts/accuracy?bins=0", http.StatusBadRequest)
	getData(t, router, "/forecasts/uncertainty?n=abc", http.StatusBadRequest)
}
