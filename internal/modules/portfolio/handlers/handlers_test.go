package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/riskterm/internal/dataset"
	"github.com/aristath/riskterm/internal/domain"
	"github.com/aristath/riskterm/internal/modules/portfolio"
	testingpkg "github.com/aristath/riskterm/internal/testing"
)

func newRouter(t *testing.T, source portfolio.Source) http.Handler {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	if source == nil {
		source = dataset.NewStore(testingpkg.WriteDataset(t), dataset.NewCache(log), log)
	}

	r := chi.NewRouter()
	NewHandler(portfolio.NewService(source, nil, log), 20, log).RegisterRoutes(r)
	return r
}

func get(t *testing.T, h http.Handler, path string) (int, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec.Code, body
}

func TestRegisterRoutes(t *testing.T) {
	router := newRouter(t, nil)

	testCases := []struct {
		path string
		key  string
	}{
		{"/portfolio/overview", "verdict"},
		{"/portfolio/allocation", "holdings"},
		{"/portfolio/correlation", "diagnostics"},
		{"/portfolio/volatility", "points"},
		{"/portfolio/contribution", "rows"},
		{"/portfolio/stress", "results"},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			status, body := get(t, router, tc.path)
			require.Equal(t, http.StatusOK, status)
			data := body["data"].(map[string]interface{})
			assert.Contains(t, data, tc.key)
			assert.Contains(t, body["metadata"], "timestamp")
		})
	}
}

func TestHandleGetVolatility_Window(t *testing.T) {
	router := newRouter(t, nil)

	status, body := get(t, router, "/portfolio/volatility?sma=2")
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, 2.0, data["window"])
	points := data["points"].([]interface{})
	assert.NotContains(t, points[0].(map[string]interface{}), "sma")
	assert.Contains(t, points[1].(map[string]interface{}), "sma")

	status, body = get(t, router, "/portfolio/volatility")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 20.0, body["data"].(map[string]interface{})["window"])

	status, body = get(t, router, "/portfolio/volatility?sma=0")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "sma")
}

func TestHandleGetContribution_Top(t *testing.T) {
	router := newRouter(t, nil)

	status, body := get(t, router, "/portfolio/contribution?top=1")
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]interface{})
	assert.Len(t, data["top"], 1)
	assert.Len(t, data["rows"], 3)
	assert.Equal(t, "NVDA", data["top_driver"].(map[string]interface{})["ticker"])

	status, _ = get(t, router, "/portfolio/contribution?top=x")
	assert.Equal(t, http.StatusBadRequest, status)
}

type failingSource struct{}

func (failingSource) Holdings() ([]domain.Holding, error) {
	return nil, errors.New("holdings unavailable")
}

func (failingSource) Correlation() (*domain.CorrelationMatrix, error) {
	return nil, errors.New("correlation unavailable")
}

func (failingSource) Volatility() ([]domain.VolatilityObservation, error) {
	return nil, errors.New("volatility unavailable")
}

func TestHandlers_SourceFailure(t *testing.T) {
	router := newRouter(t, failingSource{})

	for _, path := range []string{
		"/portfolio/overview",
		"/portfolio/allocation",
		"/portfolio/correlation",
		"/portfolio/volatility",
		"/portfolio/contribution",
	} {
		status, body := get(t, router, path)
		assert.Equal(t, http.StatusInternalServerError, status, path)
		assert.Contains(t, body, "error", path)
	}

	// Stress scenarios do not depend on the datasets
	status, _ := get(t, router, "/portfolio/stress")
	assert.Equal(t, http.StatusOK, status)
}
