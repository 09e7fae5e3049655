package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/customer-insights-api/internal/application/usecase"
	"github.com/jhoicas/customer-insights-api/internal/domain/entity"
	"github.com/jhoicas/customer-insights-api/internal/domain/repository"
	apphttp "github.com/jhoicas/customer-insights-api/internal/interfaces/http"
	"github.com/jhoicas/customer-insights-api/pkg/config"
	"github.com/jhoicas/customer-insights-api/pkg/logger"
	"github.com/jhoicas/customer-insights-api/pkg/metrics"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

// stubRepo repositorio mínimo: agrupa en memoria o falla siempre con err.
type stubRepo struct {
	records []entity.CustomerEvent
	err     error
}

func (r *stubRepo) CountCustomers(context.Context) (int64, error) {
	return int64(len(r.records)), r.err
}

func (r *stubRepo) CountDistinctLocations(context.Context) (int64, error) {
	seen := map[string]bool{}
	for _, c := range r.records {
		seen[c.LocationName] = true
	}
	return int64(len(seen)), r.err
}

func (r *stubRepo) AverageAge(_ context.Context, year int) (decimal.NullDecimal, error) {
	if r.err != nil || len(r.records) == 0 {
		return decimal.NullDecimal{}, r.err
	}
	var sum int64
	for _, c := range r.records {
		sum += int64(year - c.Age)
	}
	avg := decimal.NewFromInt(sum).Div(decimal.NewFromInt(int64(len(r.records))))
	return decimal.NullDecimal{Decimal: avg, Valid: true}, nil
}

func (r *stubRepo) CountByVisitDate(context.Context) ([]repository.DateCount, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := []repository.DateCount{}
	for _, c := range r.records {
		out = append(out, repository.DateCount{VisitDate: c.VisitDate, Count: 1})
	}
	return out, nil
}

func (r *stubRepo) TopGroups(ctx context.Context, field repository.GroupField, limit int) ([]repository.GroupCount, error) {
	out, err := r.CountByGroup(ctx, field)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubRepo) CountByGroup(_ context.Context, field repository.GroupField) ([]repository.GroupCount, error) {
	if r.err != nil {
		return nil, r.err
	}
	counts := map[string]int64{}
	var keys []string
	for _, c := range r.records {
		var k string
		switch field {
		case repository.GroupByLocation:
			k = c.LocationName
		case repository.GroupByDeviceBrand:
			k = c.BrandDevice
		case repository.GroupByDigitalInterest:
			k = c.DigitalInterest
		case repository.GroupByGender:
			k = c.Gender
		}
		if _, ok := counts[k]; !ok {
			keys = append(keys, k)
		}
		counts[k]++
	}
	out := []repository.GroupCount{}
	for _, k := range keys {
		out = append(out, repository.GroupCount{Key: k, Count: counts[k]})
	}
	return out, nil
}

func (r *stubRepo) RecentLogins(_ context.Context, limit int) ([]entity.CustomerEvent, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := append([]entity.CustomerEvent(nil), r.records...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].VisitDate != out[j].VisitDate {
			return out[i].VisitDate > out[j].VisitDate
		}
		return out[i].LoginHour > out[j].LoginHour
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func fourRecords() []entity.CustomerEvent {
	return []entity.CustomerEvent{
		{Name: "Ana", Email: "ana@x.io", LocationName: "A", BrandDevice: "Apple", Gender: "Female", DigitalInterest: "Music", VisitDate: "01/07/2024", LoginHour: "08:00"},
		{Name: "Luis", Email: "luis@x.io", LocationName: "A", BrandDevice: "Apple", Gender: "Male", DigitalInterest: "Music", VisitDate: "01/07/2024", LoginHour: "09:00"},
		{Name: "Marta", Email: "marta@x.io", LocationName: "B", BrandDevice: "Samsung", Gender: "Female", DigitalInterest: "Sports", VisitDate: "01/07/2024", LoginHour: "10:00"},
		{Name: "Pedro", Email: "pedro@x.io", LocationName: "C", BrandDevice: "Xiaomi", Gender: "Male", DigitalInterest: "Travel", VisitDate: "01/08/2024", LoginHour: "11:00"},
	}
}

// buildTestApp construye la app Fiber completa (middlewares + rutas) sobre repo.
func buildTestApp(repo repository.CustomerInsightsRepository, checks map[string]apphttp.Pinger) *fiber.App {
	uc := usecase.NewCustomerInsightsUseCase(repo, usecase.CustomerInsightsConfig{
		VisitDateLayout: config.DefaultVisitDateLayout,
		StrictVisitDate: true,
	}, logger.Nop())

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		ServiceName:  "customer-insights-test",
		AllowOrigins: "*",
		Insights:     uc,
		HealthChecks: checks,
		Logger:       logger.Nop(),
		Metrics:      metrics.New(),
	})
	return app
}

func get(t *testing.T, app *fiber.App, path string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests de endpoints
// ──────────────────────────────────────────────────────────────────────────────

func TestTotalCustomers_200(t *testing.T) {
	app := buildTestApp(&stubRepo{records: fourRecords()}, nil)
	resp := get(t, app, "/api/total-customers")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]int](t, resp)
	assert.Equal(t, map[string]int{"totalCustomers": 4}, body)
}

func TestTotalLocationsYAverageAge_200(t *testing.T) {
	app := buildTestApp(&stubRepo{records: fourRecords()}, nil)

	body := decode[map[string]int](t, get(t, app, "/api/total-locations"))
	assert.Equal(t, 3, body["totalLocations"])

	resp := get(t, app, "/api/average-age")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, decode[map[string]int](t, resp), "averageAge")
}

func TestMostPopularLocation_PorcentajeNumerico(t *testing.T) {
	app := buildTestApp(&stubRepo{records: fourRecords()}, nil)
	resp := get(t, app, "/api/most-popular-location")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"location":"A","percentage":50}`, string(raw),
		"percentage debe serializarse como número, no como string")
}

func TestMostUsedDeviceYTopDigitalInterest_200(t *testing.T) {
	app := buildTestApp(&stubRepo{records: fourRecords()}, nil)

	device := decode[map[string]any](t, get(t, app, "/api/most-used-device"))
	assert.Equal(t, "Apple", device["brand"])
	assert.Equal(t, 50.0, device["percentage"])

	interest := decode[map[string]any](t, get(t, app, "/api/top-digital-interest"))
	assert.Equal(t, "Music", interest["interest"])
	assert.Equal(t, 50.0, interest["percentage"])
}

func TestTopN_SinRegistros_404(t *testing.T) {
	app := buildTestApp(&stubRepo{}, nil)
	for _, path := range []string{"/api/most-popular-location", "/api/most-used-device", "/api/top-digital-interest"} {
		resp := get(t, app, path)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		assert.Equal(t, map[string]string{"error": "No data found"}, decode[map[string]string](t, resp), path)
	}
}

func TestListas_SinRegistros_DevuelvenArrayVacio(t *testing.T) {
	app := buildTestApp(&stubRepo{}, nil)
	for _, path := range []string{"/api/login-trends", "/api/login-per-location", "/api/recent-logins", "/api/gender"} {
		resp := get(t, app, path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, "[]", strings.TrimSpace(string(raw)), path)
	}
}

func TestLoginTrends_Domingos(t *testing.T) {
	app := buildTestApp(&stubRepo{records: fourRecords()}, nil)
	resp := get(t, app, "/api/login-trends")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `[{"day":"Sunday","total":3},{"day":"Monday","total":1}]`, string(raw))
}

func TestRecentLogins_Forma(t *testing.T) {
	app := buildTestApp(&stubRepo{records: fourRecords()}, nil)
	out := decode[[]map[string]string](t, get(t, app, "/api/recent-logins"))

	require.Len(t, out, 4)
	assert.Equal(t, map[string]string{
		"name": "Pedro", "email": "pedro@x.io", "location": "C",
		"device": "Xiaomi", "login_time": "01/08/2024 11:00",
	}, out[0])
}

func TestGender_Forma(t *testing.T) {
	app := buildTestApp(&stubRepo{records: fourRecords()}, nil)
	out := decode[[]map[string]any](t, get(t, app, "/api/gender"))

	require.Len(t, out, 2)
	var sum float64
	for _, g := range out {
		assert.Contains(t, g, "gender")
		sum += g["count"].(float64)
	}
	assert.Equal(t, 4.0, sum)
}

func TestFalloDelStore_500SinDetalle(t *testing.T) {
	app := buildTestApp(&stubRepo{err: errors.New("dial tcp 10.0.0.1:5432: connection refused")}, nil)

	cases := map[string]string{
		"/api/total-customers":       "Failed to get total customers",
		"/api/login-trends":          "Failed to get login trends",
		"/api/most-used-device":      "Failed to get most used device brand",
		"/api/gender":                "Failed to get gender distribution",
		"/api/most-popular-location": "Failed to get most popular location",
	}
	for path, msg := range cases {
		resp := get(t, app, path)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode, path)
		assert.Equal(t, map[string]string{"error": msg}, decode[map[string]string](t, resp), path)
	}
}

func TestFechaInvalida_500(t *testing.T) {
	records := fourRecords()
	records[0].VisitDate = "2024-01-07"
	app := buildTestApp(&stubRepo{records: records}, nil)

	resp := get(t, app, "/api/login-trends")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Middlewares y rutas operativas
// ──────────────────────────────────────────────────────────────────────────────

func TestCORS_Permisivo(t *testing.T) {
	app := buildTestApp(&stubRepo{records: fourRecords()}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/total-customers", nil)
	req.Header.Set("Origin", "http://dashboard.example.com")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRequestID_EnCabecera(t *testing.T) {
	app := buildTestApp(&stubRepo{}, nil)
	resp := get(t, app, "/api/total-customers")
	defer resp.Body.Close()

	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestRutaDesconocida_404(t *testing.T) {
	app := buildTestApp(&stubRepo{}, nil)
	resp := get(t, app, "/api/does-not-exist")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	ok := buildTestApp(&stubRepo{}, map[string]apphttp.Pinger{"postgres": stubPinger{}})
	resp := get(t, ok, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "ok", body["status"])

	down := buildTestApp(&stubRepo{}, map[string]apphttp.Pinger{
		"postgres": stubPinger{},
		"redis":    stubPinger{err: errors.New("dial tcp 10.0.0.7:6379: i/o timeout")},
	})
	resp = get(t, down, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	assert.JSONEq(t, `{
		"status": "degraded",
		"service": "customer-insights-test",
		"checks": {"postgres": "up", "redis": "down"}
	}`, string(raw))
	assert.NotContains(t, string(raw), "10.0.0.7", "el detalle del fallo solo va al log")
}

func TestMetrics_Expuestas(t *testing.T) {
	app := buildTestApp(&stubRepo{}, nil)
	get(t, app, "/api/most-popular-location").Body.Close()

	resp := get(t, app, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	assert.Contains(t, string(raw), "http_requests_total")
	assert.Contains(t, string(raw), `insights_query_failures_total{kind="not_found",operation="most-popular-location"} 1`)
}
