package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/twpayne/go-geofeatures"
	"github.com/twpayne/go-geofeatures/internal/server"
)

type mockResolver struct {
	resolveFn func(ctx context.Context, coord geofeatures.LatLon) (*geofeatures.Result, error)
}

func (m *mockResolver) ResolveFeatures(ctx context.Context, coord geofeatures.LatLon) (*geofeatures.Result, error) {
	return m.resolveFn(ctx, coord)
}

func doRequest(t *testing.T, resolver server.Resolver, target string) (int, []byte) {
	t.Helper()
	app := server.New(resolver, slog.New(slog.DiscardHandler), server.Config{})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
	assert.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	return resp.StatusCode, body
}

func TestFeatures(t *testing.T) {
	resolver := &mockResolver{
		resolveFn: func(ctx context.Context, coord geofeatures.LatLon) (*geofeatures.Result, error) {
			if coord.Lat > 80 {
				return nil, fmt.Errorf("(%g, %g): %w", coord.Lat, coord.Lon, geofeatures.ErrCoordinateOutOfDomain)
			}
			return &geofeatures.Result{
				Coord: coord,
				Elevation: geofeatures.ElevationResult{
					Tile:       "W020N40",
					Status:     geofeatures.ElevationOverWater,
					Elevation:  geofeatures.Sample{Present: true, Value: -9999, NoData: true},
					Provenance: "Ocean",
				},
				Climate: []geofeatures.ClimateFeatureResult{
					{
						ID:     "tmean",
						Values: []geofeatures.MonthlyValue{{Month: 1, Value: 265}},
						Errors: []error{geofeatures.ErrDatasetUnavailable},
					},
				},
			}, nil
		},
	}

	for _, tc := range []struct {
		name           string
		target         string
		expectedStatus int
		expectedCode   string
	}{
		{name: "ok", target: "/v1/features?lat=10&lon=10", expectedStatus: http.StatusOK},
		{name: "missing_lat", target: "/v1/features?lon=10", expectedStatus: http.StatusBadRequest, expectedCode: "bad_request"},
		{name: "bad_lon", target: "/v1/features?lat=10&lon=east", expectedStatus: http.StatusBadRequest, expectedCode: "bad_request"},
		{name: "lat_range", target: "/v1/features?lat=-90&lon=10", expectedStatus: http.StatusBadRequest, expectedCode: "bad_request"},
		{name: "lon_range", target: "/v1/features?lat=10&lon=180", expectedStatus: http.StatusBadRequest, expectedCode: "bad_request"},
		{name: "out_of_map", target: "/v1/features?lat=85&lon=10", expectedStatus: http.StatusNotFound, expectedCode: "out_of_map"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			status, body := doRequest(t, resolver, tc.target)
			assert.Equal(t, tc.expectedStatus, status)
			if tc.expectedCode != "" {
				var apiError server.APIError
				assert.NoError(t, json.Unmarshal(body, &apiError))
				assert.Equal(t, tc.expectedCode, apiError.Code)
				return
			}
			var actual map[string]any
			assert.NoError(t, json.Unmarshal(body, &actual))
			assert.Equal(t, "Coordinates are out of land", actual["notice"])
			assert.Equal[any](t, []any{"tmean: dataset unavailable"}, actual["errors"])
			elevation := actual["elevation"].(map[string]any)
			assert.Equal(t, "over_water", elevation["status"])
			assert.Equal(t, "Ocean", elevation["provenance"])
			_, hasValue := elevation["elevation"]
			assert.False(t, hasValue)
		})
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	resolver := &mockResolver{}

	status, body := doRequest(t, resolver, "/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "healthy")

	status, body = doRequest(t, resolver, "/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, strings.Contains(string(body), "geofeatures_http_requests_total"))
}

func TestMetricsUnmatchedPath(t *testing.T) {
	resolver := &mockResolver{}

	status, _ := doRequest(t, resolver, "/v1/no-such-route-4f2a")
	assert.Equal(t, http.StatusNotFound, status)

	_, body := doRequest(t, resolver, "/metrics")
	assert.Contains(t, string(body), `path="unmatched",status="404"`)
	assert.NotContains(t, string(body), "no-such-route-4f2a")
}
