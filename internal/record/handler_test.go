package record

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"weighbridge-backend/internal/auth"
	"weighbridge-backend/internal/database"
	"weighbridge-backend/internal/models"
	"weighbridge-backend/internal/weighing"

	"github.com/gofiber/fiber/v2"
)

type fakeLive struct {
	kg  float64
	err error
}

func (f fakeLive) LiveWeight() (float64, error) { return f.kg, f.err }

type memoryMirror struct {
	mu   sync.Mutex
	recs []models.Record
}

func (m *memoryMirror) AppendRecord(_ context.Context, rec models.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

func setupRecordApp(t *testing.T, live LiveWeightSource, mirror Mirror) *fiber.App {
	t.Helper()
	db, err := database.OpenInMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	database.DB = db

	var s models.Setting
	if err := db.First(&s, models.SettingID).Error; err != nil {
		t.Fatalf("load settings: %v", err)
	}
	s.VehiclePrices = map[string]float64{"truck": 500, "tractor": 200}
	s.BusinessNames = []string{"North Scale"}
	if err := db.Save(&s).Error; err != nil {
		t.Fatalf("seed settings: %v", err)
	}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, uint(1))
		c.Locals(auth.CtxUsernameKey, "operator")
		c.Locals(auth.CtxUserRoleKey, models.RoleOperator)
		return c.Next()
	})
	app.Post("/records", CreateRecordHandler(live))
	app.Post("/records/final", FinalRecordHandler(live, mirror))
	app.Get("/records", ListRecordsHandler(time.UTC))
	app.Get("/records/:id", GetRecordHandler())
	app.Get("/records/:id/slip", SlipHandler(time.UTC))
	app.Post("/records/:id/second-weight", SecondWeightHandler(live, mirror))
	app.Put("/records/:id", UpdateRecordHandler(mirror))
	app.Delete("/records/:id", DeleteRecordHandler())
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestTwoStepWeighing(t *testing.T) {
	mirror := &memoryMirror{}
	app := setupRecordApp(t, nil, mirror)

	resp := doJSON(t, app, http.MethodPost, "/records", CreateRecordRequest{
		VehicleNumber: "lhr 1234", VehicleType: "Truck", PartyName: "Rashid Traders",
		Product: "Wheat", BusinessName: "north scale", FirstWeight: 15000,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	created := decode[RecordResponse](t, resp)
	if created.Status != StatusPending || created.NetMunds != nil || created.UUID == "" {
		t.Fatalf("unexpected pending record %+v", created)
	}
	if created.VehicleNumber != "LHR 1234" || created.VehicleType != "truck" {
		t.Fatalf("fields not normalised: %+v", created.Record)
	}

	path := "/records/" + itoa(created.ID) + "/second-weight"
	resp = doJSON(t, app, http.MethodPost, path, SecondWeightRequest{SecondWeight: 5000})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("second weight: expected 200, got %d", resp.StatusCode)
	}
	done := decode[RecordResponse](t, resp)
	if *done.NetWeight != 10000 || done.TotalPrice != 500 || done.Status != StatusCompleted {
		t.Fatalf("unexpected completed record %+v", done)
	}
	if done.NetMunds == nil || done.NetMunds.Text != "250 munds 0 kg" {
		t.Fatalf("net munds = %+v", done.NetMunds)
	}

	resp = doJSON(t, app, http.MethodPost, path, SecondWeightRequest{SecondWeight: 4000})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("repeat second weight: expected 409, got %d", resp.StatusCode)
	}

	if len(mirror.recs) != 1 || mirror.recs[0].ID != created.ID {
		t.Fatalf("mirror got %d records", len(mirror.recs))
	}

	var logs int64
	database.DB.Model(&models.AuditLog{}).Where("entity_type = ? AND entity_id = ?", models.EntityRecord, created.ID).Count(&logs)
	if logs != 2 {
		t.Fatalf("expected 2 audit logs, got %d", logs)
	}
}

func TestCreateValidation(t *testing.T) {
	app := setupRecordApp(t, nil, nil)

	cases := []struct {
		name string
		body CreateRecordRequest
		want int
	}{
		{"missing party", CreateRecordRequest{VehicleNumber: "A1", VehicleType: "truck", FirstWeight: 10}, http.StatusBadRequest},
		{"zero weight", CreateRecordRequest{VehicleNumber: "A1", VehicleType: "truck", PartyName: "P"}, http.StatusBadRequest},
		{"over capacity", CreateRecordRequest{VehicleNumber: "A1", VehicleType: "truck", PartyName: "P", FirstWeight: 1e19}, http.StatusBadRequest},
		{"unknown business", CreateRecordRequest{VehicleNumber: "A1", VehicleType: "truck", PartyName: "P", FirstWeight: 10, BusinessName: "Elsewhere"}, http.StatusBadRequest},
		{"live not configured", CreateRecordRequest{VehicleNumber: "A1", VehicleType: "truck", PartyName: "P", UseLiveWeight: true}, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doJSON(t, app, http.MethodPost, "/records", tc.body)
			if resp.StatusCode != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, resp.StatusCode)
			}
		})
	}
}

func TestLiveWeight(t *testing.T) {
	app := setupRecordApp(t, fakeLive{kg: 14250}, nil)

	resp := doJSON(t, app, http.MethodPost, "/records", CreateRecordRequest{
		VehicleNumber: "A1", VehicleType: "truck", PartyName: "P", UseLiveWeight: true, FirstWeight: 1,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if rec := decode[RecordResponse](t, resp); rec.FirstWeight != 14250 {
		t.Fatalf("first weight = %v, want live 14250", rec.FirstWeight)
	}

	stale := setupRecordApp(t, fakeLive{err: weighing.ErrNoLiveWeight}, nil)
	resp = doJSON(t, stale, http.MethodPost, "/records", CreateRecordRequest{
		VehicleNumber: "A1", VehicleType: "truck", PartyName: "P", UseLiveWeight: true,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("stale live weight: expected 409, got %d", resp.StatusCode)
	}
}

func TestFinalRecordAndList(t *testing.T) {
	mirror := &memoryMirror{}
	app := setupRecordApp(t, nil, mirror)

	resp := doJSON(t, app, http.MethodPost, "/records/final", FinalRecordRequest{
		VehicleNumber: "B2", VehicleType: "tractor", PartyName: "Farm Co", CurrentWeight: 9000, EmptyWeight: 3000,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("final: expected 201, got %d", resp.StatusCode)
	}
	final := decode[RecordResponse](t, resp)
	if final.Status != StatusFinal || *final.NetWeight != 6000 || final.TotalPrice != 200 {
		t.Fatalf("unexpected final record %+v", final)
	}
	if len(mirror.recs) != 1 {
		t.Fatalf("mirror got %d records", len(mirror.recs))
	}

	resp = doJSON(t, app, http.MethodPost, "/records/"+itoa(final.ID)+"/second-weight", SecondWeightRequest{SecondWeight: 100})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second weight on final: expected 409, got %d", resp.StatusCode)
	}

	doJSON(t, app, http.MethodPost, "/records", CreateRecordRequest{
		VehicleNumber: "C3", VehicleType: "truck", PartyName: "Other", FirstWeight: 7000,
	})

	today := time.Now().UTC().Format("2006-01-02")
	for _, tc := range []struct {
		query string
		want  int
	}{
		{"", 2},
		{"?status=final", 1},
		{"?status=pending", 1},
		{"?status=completed", 0},
		{"?party_name=farm", 1},
		{"?vehicle_number=c3", 1},
		{"?from=" + today + "&to=" + today, 2},
		{"?from=2000-01-01&to=2000-01-02", 0},
		{"?limit=1", 1},
	} {
		resp := doJSON(t, app, http.MethodGet, "/records"+tc.query, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("list %q: status %d", tc.query, resp.StatusCode)
		}
		if got := decode[[]RecordResponse](t, resp); len(got) != tc.want {
			t.Errorf("list %q: got %d records, want %d", tc.query, len(got), tc.want)
		}
	}

	if resp := doJSON(t, app, http.MethodGet, "/records?status=bogus", nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bogus status: expected 400, got %d", resp.StatusCode)
	}
}

func TestSlipUpdateDelete(t *testing.T) {
	mirror := &memoryMirror{}
	app := setupRecordApp(t, nil, mirror)

	resp := doJSON(t, app, http.MethodPost, "/records", CreateRecordRequest{
		VehicleNumber: "D4", VehicleType: "truck", PartyName: "P", FirstWeight: 12000,
	})
	rec := decode[RecordResponse](t, resp)
	id := itoa(rec.ID)

	resp = doJSON(t, app, http.MethodGet, "/records/"+id+"/slip", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("slip: status %d", resp.StatusCode)
	}
	slip := decode[Slip](t, resp)
	if slip.SlipNumber != rec.UUID || slip.Status != StatusPending {
		t.Fatalf("unexpected slip %+v", slip)
	}

	second := 2000.0
	vt := "tractor"
	resp = doJSON(t, app, http.MethodPut, "/records/"+id, UpdateRecordRequest{SecondWeight: &second, VehicleType: &vt})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: status %d", resp.StatusCode)
	}
	updated := decode[RecordResponse](t, resp)
	if *updated.NetWeight != 10000 || updated.TotalPrice != 200 || updated.SecondWeightAt == nil {
		t.Fatalf("update not recomputed: %+v", updated)
	}
	if len(mirror.recs) != 1 || mirror.recs[0].ID != rec.ID {
		t.Fatalf("completing via update: mirror got %d records", len(mirror.recs))
	}

	party := "Q"
	resp = doJSON(t, app, http.MethodPut, "/records/"+id, UpdateRecordRequest{PartyName: &party})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("second update: status %d", resp.StatusCode)
	}
	if len(mirror.recs) != 1 {
		t.Fatalf("correcting a completed record mirrored again: %d records", len(mirror.recs))
	}

	huge := 1e19
	resp = doJSON(t, app, http.MethodPut, "/records/"+id, UpdateRecordRequest{SecondWeight: &huge})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("oversized second weight: expected 400, got %d", resp.StatusCode)
	}

	resp = doJSON(t, app, http.MethodDelete, "/records/"+id, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: status %d", resp.StatusCode)
	}
	if resp := doJSON(t, app, http.MethodGet, "/records/"+id, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", resp.StatusCode)
	}
	if resp := doJSON(t, app, http.MethodGet, "/records/abc", nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad id: expected 400, got %d", resp.StatusCode)
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
