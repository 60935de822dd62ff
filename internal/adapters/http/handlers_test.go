package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/khiwniti/geofleet/internal/adapters/http"
	"github.com/khiwniti/geofleet/internal/adapters/memory"
	"github.com/khiwniti/geofleet/internal/core/domain"
	"github.com/khiwniti/geofleet/internal/core/events"
	"github.com/khiwniti/geofleet/internal/core/ports"
	"github.com/khiwniti/geofleet/internal/core/usecases"
)

// ---- Test helpers ----

// makeDeps wires the handlers to the real in-memory stack. There is no
// external infrastructure in the request path, so handler tests double as
// end-to-end tests of the engine behind them.
func makeDeps(t *testing.T) *handler.Dependencies {
	t.Helper()

	registry := memory.NewGeofenceRegistry()
	store := memory.NewPositionStore()
	history := memory.NewHistory(100)
	bus := events.NewBus()

	processor := usecases.NewProcessor(registry, store, history, bus,
		func() ports.MembershipTracker { return memory.NewTracker() }, 2)
	processor.Start()
	t.Cleanup(processor.Stop)

	return &handler.Dependencies{
		Fences:    usecases.NewGeofenceService(registry, nil),
		Vehicles:  usecases.NewVehicleService(store, history),
		Processor: processor,
	}
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

// seedFence registers a fence directly through the service, bypassing HTTP.
func seedFence(t *testing.T, deps *handler.Dependencies, fence domain.Geofence) domain.Geofence {
	t.Helper()
	created, err := deps.Fences.Create(context.Background(), fence)
	if err != nil {
		t.Fatalf("seed fence: %v", err)
	}
	return created
}

// seedReport pushes a report through the processor so the vehicle endpoints
// have state to serve.
func seedReport(t *testing.T, deps *handler.Dependencies, report domain.PositionReport) {
	t.Helper()
	if err := deps.Processor.Ingest(context.Background(), report); err != nil {
		t.Fatalf("seed report: %v", err)
	}
}

func circleFence(name string, lat, lon, radius float64) domain.Geofence {
	return domain.Geofence{
		Name:       name,
		Kind:       domain.GeofenceCircle,
		Center:     domain.GeoPoint{Lat: lat, Lon: lon},
		RadiusM:    radius,
		Authorized: true,
		Active:     true,
	}
}

func report(vehicleID string, lat, lon, speed float64) domain.PositionReport {
	return domain.PositionReport{
		Time:      time.Now().UTC(),
		VehicleID: vehicleID,
		Location:  domain.GeoPoint{Lat: lat, Lon: lon},
		Speed:     speed,
		Heading:   90,
	}
}

// ---- Geofence handler tests ----

func TestCreateGeofence_Circle(t *testing.T) {
	app := setupApp(makeDeps(t))

	body := `{"name":"Old Town","kind":"circle","center":{"lat":43.2569,"lon":-2.9236},"radius_m":400,"category":"restricted","authorized":false}`
	resp, err := app.Test(jsonRequest("POST", "/v1/geofences", body), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var created domain.Geofence
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if created.ID == "" {
		t.Error("expected assigned id")
	}
	if !created.Active {
		t.Error("expected active to default to true")
	}
	if created.Authorized {
		t.Error("expected authorized false")
	}
	if created.Category != domain.CategoryRestricted {
		t.Errorf("expected restricted category, got %q", created.Category)
	}
}

func TestCreateGeofence_InvalidBody(t *testing.T) {
	app := setupApp(makeDeps(t))

	resp, _ := app.Test(jsonRequest("POST", "/v1/geofences", `{not json`), -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateGeofence_MissingName(t *testing.T) {
	app := setupApp(makeDeps(t))

	body := `{"kind":"circle","center":{"lat":43.26,"lon":-2.93},"radius_m":100}`
	resp, _ := app.Test(jsonRequest("POST", "/v1/geofences", body), -1)
	if resp.StatusCode != 422 {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}

	var apiErr struct {
		Code string `json:"code"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Code != "invalid_geofence" {
		t.Errorf("expected invalid_geofence code, got %q", apiErr.Code)
	}
}

func TestCreateGeofence_BadGeometry(t *testing.T) {
	app := setupApp(makeDeps(t))

	// Two vertices pass the shape checks but fail the domain's polygon rule.
	body := `{"name":"Port","kind":"polygon","vertices":[{"lat":43.34,"lon":-3.01},{"lat":43.35,"lon":-3.02}]}`
	resp, _ := app.Test(jsonRequest("POST", "/v1/geofences", body), -1)
	if resp.StatusCode != 422 {
		t.Fatalf("expected 422, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}
}

func TestGetGeofence_Success(t *testing.T) {
	deps := makeDeps(t)
	created := seedFence(t, deps, circleFence("Depot", 43.27, -2.95, 250))
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/geofences/"+created.ID, nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got domain.Geofence
	json.NewDecoder(resp.Body).Decode(&got)
	if got.Name != "Depot" {
		t.Errorf("expected Depot, got %q", got.Name)
	}
}

func TestGetGeofence_NotFound(t *testing.T) {
	app := setupApp(makeDeps(t))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/geofences/ghost", nil), -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestUpdateGeofence_ChangesDefinition(t *testing.T) {
	deps := makeDeps(t)
	created := seedFence(t, deps, circleFence("Depot", 43.27, -2.95, 250))
	app := setupApp(deps)

	body := `{"name":"Depot East","kind":"circle","center":{"lat":43.27,"lon":-2.95},"radius_m":300,"max_speed":30,"authorized":true}`
	resp, _ := app.Test(jsonRequest("PUT", "/v1/geofences/"+created.ID, body), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var updated domain.Geofence
	json.NewDecoder(resp.Body).Decode(&updated)
	if updated.ID != created.ID {
		t.Errorf("expected id %s preserved, got %s", created.ID, updated.ID)
	}
	if updated.Name != "Depot East" {
		t.Errorf("expected renamed fence, got %q", updated.Name)
	}
	if updated.MaxSpeed == nil || *updated.MaxSpeed != 30 {
		t.Errorf("expected max_speed 30, got %v", updated.MaxSpeed)
	}
}

func TestUpdateGeofence_NotFound(t *testing.T) {
	app := setupApp(makeDeps(t))

	body := `{"name":"Ghost","kind":"circle","center":{"lat":43.26,"lon":-2.93},"radius_m":100}`
	resp, _ := app.Test(jsonRequest("PUT", "/v1/geofences/ghost", body), -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestDeleteGeofence_RemovesFence(t *testing.T) {
	deps := makeDeps(t)
	created := seedFence(t, deps, circleFence("Depot", 43.27, -2.95, 250))
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("DELETE", "/v1/geofences/"+created.ID, nil), -1)
	if resp.StatusCode != 204 {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/geofences/"+created.ID, nil), -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest("DELETE", "/v1/geofences/"+created.ID, nil), -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404 on second delete, got %d", resp.StatusCode)
	}
}

func TestListGeofences_ExcludesInactiveByDefault(t *testing.T) {
	deps := makeDeps(t)
	seedFence(t, deps, circleFence("A", 43.26, -2.93, 100))
	seedFence(t, deps, circleFence("B", 43.27, -2.94, 100))
	inactive := circleFence("C", 43.28, -2.95, 100)
	inactive.Active = false
	seedFence(t, deps, inactive)
	app := setupApp(deps)

	var result struct {
		Data       []domain.Geofence `json:"data"`
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/geofences", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Pagination.Total != 2 {
		t.Errorf("expected 2 active fences, got %d", result.Pagination.Total)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/geofences?include_inactive=true", nil), -1)
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Pagination.Total != 3 {
		t.Errorf("expected 3 fences with inactive, got %d", result.Pagination.Total)
	}
}

func TestListGeofences_Pagination(t *testing.T) {
	deps := makeDeps(t)
	for i := 0; i < 5; i++ {
		seedFence(t, deps, circleFence(fmt.Sprintf("Zone %d", i), 43.26+float64(i)*0.01, -2.93, 100))
	}
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/geofences?offset=2&limit=2", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.Geofence `json:"data"`
		Pagination struct {
			Offset int `json:"offset"`
			Limit  int `json:"limit"`
			Total  int `json:"total"`
		} `json:"pagination"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Pagination.Total != 5 {
		t.Errorf("expected total 5, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 2 {
		t.Errorf("expected 2 fences in page, got %d", len(result.Data))
	}
	if result.Pagination.Offset != 2 {
		t.Errorf("expected offset 2, got %d", result.Pagination.Offset)
	}
}

func TestListGeofences_LinkHeader(t *testing.T) {
	deps := makeDeps(t)
	for i := 0; i < 10; i++ {
		seedFence(t, deps, circleFence(fmt.Sprintf("Zone %d", i), 43.26+float64(i)*0.01, -2.93, 100))
	}
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/geofences?offset=0&limit=3", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	link := resp.Header.Get("Link")
	if link == "" {
		t.Fatal("expected Link header, got empty")
	}
	if !strings.Contains(link, `rel="next"`) {
		t.Errorf("expected next link, got %s", link)
	}
	if !strings.Contains(link, `rel="first"`) {
		t.Errorf("expected first link, got %s", link)
	}
	if !strings.Contains(link, `rel="last"`) {
		t.Errorf("expected last link, got %s", link)
	}
}

// ---- Position ingest tests ----

func TestIngestPosition_Accepted(t *testing.T) {
	deps := makeDeps(t)
	app := setupApp(deps)

	body := `{"vehicle_id":"bus-17","latitude":43.2627,"longitude":-2.9253,"speed":32.5,"heading":90}`
	resp, _ := app.Test(jsonRequest("POST", "/v1/positions", body), -1)
	if resp.StatusCode != 202 {
		t.Fatalf("expected 202, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/vehicles/bus-17/position", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got domain.PositionReport
	json.NewDecoder(resp.Body).Decode(&got)
	if got.Location.Lat != 43.2627 || got.Location.Lon != -2.9253 {
		t.Errorf("unexpected stored location %+v", got.Location)
	}
	if got.Speed != 32.5 {
		t.Errorf("expected speed 32.5, got %v", got.Speed)
	}
}

func TestIngestPosition_ValidationFails(t *testing.T) {
	app := setupApp(makeDeps(t))

	cases := []struct {
		name string
		body string
	}{
		{"missing vehicle id", `{"latitude":43.26,"longitude":-2.93,"speed":10,"heading":0}`},
		{"latitude out of range", `{"vehicle_id":"v1","latitude":95,"longitude":-2.93,"speed":10,"heading":0}`},
		{"heading out of range", `{"vehicle_id":"v1","latitude":43.26,"longitude":-2.93,"speed":10,"heading":400}`},
		{"negative speed", `{"vehicle_id":"v1","latitude":43.26,"longitude":-2.93,"speed":-5,"heading":0}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := app.Test(jsonRequest("POST", "/v1/positions", tc.body), -1)
			if resp.StatusCode != 422 {
				t.Fatalf("expected 422, got %d", resp.StatusCode)
			}
			var apiErr struct {
				Code string `json:"code"`
			}
			json.NewDecoder(resp.Body).Decode(&apiErr)
			if apiErr.Code != "invalid_position" {
				t.Errorf("expected invalid_position code, got %q", apiErr.Code)
			}
		})
	}
}

func TestIngestPosition_EngineStopped(t *testing.T) {
	deps := makeDeps(t)
	deps.Processor.Stop()
	app := setupApp(deps)

	body := `{"vehicle_id":"bus-17","latitude":43.26,"longitude":-2.93,"speed":10,"heading":0}`
	resp, _ := app.Test(jsonRequest("POST", "/v1/positions", body), -1)
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestIngestPosition_PublishesViolations(t *testing.T) {
	registry := memory.NewGeofenceRegistry()
	store := memory.NewPositionStore()
	history := memory.NewHistory(100)
	bus := events.NewBus()

	processor := usecases.NewProcessor(registry, store, history, bus,
		func() ports.MembershipTracker { return memory.NewTracker() }, 2)
	processor.Start()
	t.Cleanup(processor.Stop)

	deps := &handler.Dependencies{
		Fences:    usecases.NewGeofenceService(registry, nil),
		Vehicles:  usecases.NewVehicleService(store, history),
		Processor: processor,
	}

	limit := 30.0
	fence := circleFence("Old Town", 43.2569, -2.9236, 500)
	fence.Category = domain.CategoryRestricted
	fence.Authorized = false
	fence.MaxSpeed = &limit
	if _, err := deps.Fences.Create(context.Background(), fence); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var kinds []domain.ViolationKind
	bus.SubscribeViolations(func(ctx context.Context, v domain.Violation) error {
		mu.Lock()
		kinds = append(kinds, v.Kind)
		mu.Unlock()
		return nil
	})

	app := setupApp(deps)

	// Inside the fence, over its limit: entry, speed and unauthorized fire
	// before the response is written.
	body := `{"vehicle_id":"bus-17","latitude":43.2569,"longitude":-2.9236,"speed":80,"heading":90}`
	resp, _ := app.Test(jsonRequest("POST", "/v1/positions", body), -1)
	if resp.StatusCode != 202 {
		t.Fatalf("expected 202, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	mu.Lock()
	defer mu.Unlock()
	want := map[domain.ViolationKind]bool{
		domain.ViolationEntry:        false,
		domain.ViolationSpeedLimit:   false,
		domain.ViolationUnauthorized: false,
	}
	for _, k := range kinds {
		want[k] = true
	}
	for kind, seen := range want {
		if !seen {
			t.Errorf("expected %s violation, got %v", kind, kinds)
		}
	}
}

// ---- Vehicle handler tests ----

func TestListVehicles_AfterIngest(t *testing.T) {
	deps := makeDeps(t)
	seedReport(t, deps, report("bus-1", 43.26, -2.93, 20))
	seedReport(t, deps, report("bus-2", 43.27, -2.94, 30))
	seedReport(t, deps, report("bus-3", 43.28, -2.95, 40))
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/vehicles", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.PositionReport `json:"data"`
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Pagination.Total != 3 {
		t.Errorf("expected 3 vehicles, got %d", result.Pagination.Total)
	}

	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("expected no-cache on live vehicle data, got %q", cc)
	}
}

func TestNearVehicles_MissingParams(t *testing.T) {
	app := setupApp(makeDeps(t))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/vehicles/near?lat=43.26", nil), -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestNearVehicles_ClosestFirst(t *testing.T) {
	deps := makeDeps(t)
	// 0.001 deg of latitude is about 111 m.
	seedReport(t, deps, report("far", 43.265, -2.93, 20))
	seedReport(t, deps, report("close", 43.261, -2.93, 20))
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/vehicles/near?lat=43.26&lon=-2.93&radius=1000", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got []domain.PositionReport
	json.NewDecoder(resp.Body).Decode(&got)
	if len(got) != 2 {
		t.Fatalf("expected 2 vehicles, got %d", len(got))
	}
	if got[0].VehicleID != "close" {
		t.Errorf("expected closest vehicle first, got %s", got[0].VehicleID)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/vehicles/near?lat=43.26&lon=-2.93&radius=200", nil), -1)
	got = nil
	json.NewDecoder(resp.Body).Decode(&got)
	if len(got) != 1 || got[0].VehicleID != "close" {
		t.Errorf("expected only the close vehicle within 200m, got %v", got)
	}
}

func TestGetVehiclePosition_NotFound(t *testing.T) {
	app := setupApp(makeDeps(t))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/vehicles/ghost/position", nil), -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestVehicleHistory_BadWindow(t *testing.T) {
	app := setupApp(makeDeps(t))

	for _, window := range []string{"banana", "-5m", "0s"} {
		resp, _ := app.Test(httptest.NewRequest("GET", "/v1/vehicles/bus-1/history?window="+window, nil), -1)
		if resp.StatusCode != 400 {
			t.Errorf("window=%s: expected 400, got %d", window, resp.StatusCode)
		}
	}
}

func TestVehicleHistory_OldestFirst(t *testing.T) {
	deps := makeDeps(t)
	base := time.Now().UTC().Add(-3 * time.Minute)
	for i := 0; i < 3; i++ {
		r := report("bus-1", 43.26+float64(i)*0.001, -2.93, 20)
		r.Time = base.Add(time.Duration(i) * time.Minute)
		seedReport(t, deps, r)
	}
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/vehicles/bus-1/history?window=10m", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got []domain.PositionReport
	json.NewDecoder(resp.Body).Decode(&got)
	if len(got) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Time.Before(got[i-1].Time) {
			t.Errorf("history out of order at %d: %v before %v", i, got[i].Time, got[i-1].Time)
		}
	}
}

func TestForgetVehicle_EvictsState(t *testing.T) {
	deps := makeDeps(t)
	seedReport(t, deps, report("bus-9", 43.26, -2.93, 20))
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("DELETE", "/v1/vehicles/bus-9", nil), -1)
	if resp.StatusCode != 204 {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/vehicles/bus-9/position", nil), -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404 after forget, got %d", resp.StatusCode)
	}
}

// ---- Health and readiness ----

func TestHealth_Returns200(t *testing.T) {
	app := setupApp(makeDeps(t))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if result["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", result["status"])
	}
}

func TestReady_EngineRunning(t *testing.T) {
	// NATS and cache are nil: optional, reported but not failing.
	app := setupApp(makeDeps(t))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var result struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Checks["engine"] != "ok" {
		t.Errorf("expected engine ok, got %q", result.Checks["engine"])
	}
	if result.Checks["nats"] != "not configured" {
		t.Errorf("expected nats not configured, got %q", result.Checks["nats"])
	}
}

func TestReady_EngineStopped(t *testing.T) {
	deps := makeDeps(t)
	deps.Processor.Stop()
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

// ---- Middleware ----

func TestAPIVersionHeader(t *testing.T) {
	app := setupApp(makeDeps(t))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if v := resp.Header.Get("X-API-Version"); v != "1.0.0" {
		t.Errorf("expected X-API-Version 1.0.0, got %q", v)
	}
}

func TestListGeofences_CacheControlHeader(t *testing.T) {
	app := setupApp(makeDeps(t))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/geofences", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "public, max-age=30" {
		t.Errorf("expected Cache-Control header, got %q", cc)
	}
}

func TestETag_NotModified(t *testing.T) {
	deps := makeDeps(t)
	seedFence(t, deps, circleFence("Depot", 43.27, -2.95, 250))
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/geofences", nil), -1)
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag header on GET 200")
	}

	req := httptest.NewRequest("GET", "/v1/geofences", nil)
	req.Header.Set("If-None-Match", etag)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 304 {
		t.Fatalf("expected 304, got %d", resp.StatusCode)
	}
}

func TestAccessLogMiddleware(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(handler.AccessLogMiddleware())
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/test", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(readBody(t, resp.Body)), "ok") {
		t.Error("expected response body to pass through the middleware")
	}
}
