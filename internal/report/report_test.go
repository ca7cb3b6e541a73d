package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"weighbridge-backend/internal/auth"
	"weighbridge-backend/internal/database"
	"weighbridge-backend/internal/models"
	"weighbridge-backend/internal/period"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

func ptr(v float64) *float64 { return &v }

func tptr(t time.Time) *time.Time { return &t }

func at(day, hour int) time.Time {
	return time.Date(2026, 3, day, hour, 0, 0, 0, time.UTC)
}

// seedMarch writes two completed weighings, one final, one pending and two expenses.
func seedMarch(t *testing.T) {
	t.Helper()
	db, err := database.OpenInMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	database.DB = db

	records := []models.Record{
		{UUID: "r1", VehicleNumber: "A1", VehicleType: "truck", PartyName: "P", FirstWeight: 15000,
			SecondWeight: ptr(5000), NetWeight: ptr(10000), TotalPrice: 500,
			FirstWeightAt: at(2, 8), SecondWeightAt: tptr(at(2, 9))},
		{UUID: "r2", VehicleNumber: "A2", VehicleType: "tractor", PartyName: "Q", FirstWeight: 3000,
			SecondWeight: ptr(7000), NetWeight: ptr(-4000), TotalPrice: 200,
			FirstWeightAt: at(3, 8), SecondWeightAt: tptr(at(3, 10))},
		{UUID: "r3", VehicleNumber: "A3", VehicleType: "truck", PartyName: "R", FirstWeight: 9000,
			SecondWeight: ptr(3000), NetWeight: ptr(6000), TotalPrice: 500, FinalWeight: true,
			FirstWeightAt: at(3, 11), SecondWeightAt: tptr(at(3, 11))},
		{UUID: "r4", VehicleNumber: "A4", VehicleType: "truck", PartyName: "S", FirstWeight: 8000,
			FirstWeightAt: at(3, 12)},
		{UUID: "r5", VehicleNumber: "A5", VehicleType: "truck", PartyName: "T", FirstWeight: 8000,
			SecondWeight: ptr(1000), NetWeight: ptr(7000), TotalPrice: 500,
			FirstWeightAt: at(1, 8).AddDate(0, 1, 0), SecondWeightAt: tptr(at(1, 9).AddDate(0, 1, 0))},
	}
	if err := db.Create(&records).Error; err != nil {
		t.Fatalf("seed records: %v", err)
	}

	expenses := []models.Expense{
		{Description: "Diesel", Amount: 300, Category: "Fuel", Date: at(2, 0)},
		{Description: "Wage", Amount: 1000, Category: "Salary", Date: at(4, 0)},
	}
	if err := db.Create(&expenses).Error; err != nil {
		t.Fatalf("seed expenses: %v", err)
	}
}

func TestBuildDailyRange(t *testing.T) {
	seedMarch(t)

	r := period.Span(at(2, 0), at(4, 0), time.UTC)
	s, ds, err := Build(database.DB, r, time.UTC, "daily")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if s.Weighings != 3 || s.Pending != 1 {
		t.Fatalf("weighings=%d pending=%d", s.Weighings, s.Pending)
	}
	if s.NetWeightKg != 20000 || s.TotalRevenue != 1200 || s.TotalExpenses != 1300 || s.NetProfit != -100 {
		t.Fatalf("totals = %+v", s)
	}
	if len(s.DailyBreakdown) != 3 || s.StartDate != "2026-03-02" || s.EndDate != "2026-03-04" {
		t.Fatalf("breakdown = %+v", s.DailyBreakdown)
	}
	day3 := s.DailyBreakdown[1]
	if day3.Weighings != 2 || day3.Revenue != 700 || day3.NetWeightKg != 10000 {
		t.Fatalf("2026-03-03 = %+v", day3)
	}
	if last := s.DailyBreakdown[2]; last.Weighings != 0 || last.Expenses != 1000 || last.NetProfit != -1000 {
		t.Fatalf("2026-03-04 = %+v", last)
	}

	byType := VehicleTypeBreakdown(ds)
	if len(byType) != 2 || byType[0].VehicleType != "tractor" || byType[1].Revenue != 1000 {
		t.Fatalf("by vehicle type = %+v", byType)
	}
	byCat := CategoryBreakdown(ds)
	if len(byCat) != 2 || byCat[0].Category != "Fuel" || byCat[1].Total != 1000 {
		t.Fatalf("by category = %+v", byCat)
	}
}

func setupReportApp(t *testing.T) *fiber.App {
	t.Helper()
	seedMarch(t)
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, uint(1))
		c.Locals(auth.CtxUsernameKey, "admin")
		c.Locals(auth.CtxUserRoleKey, models.RoleAdmin)
		return c.Next()
	})
	app.Get("/reports/daily", DailySummaryHandler(time.UTC))
	app.Get("/reports/weekly", WeeklySummaryHandler(time.UTC))
	app.Get("/reports/monthly", MonthlySummaryHandler(time.UTC))
	app.Get("/reports/export", ExportHandler(time.UTC))
	app.Post("/monthly-reports", CreateMonthlyReportHandler(time.UTC))
	app.Get("/monthly-reports", ListMonthlyReportsHandler())
	app.Get("/monthly-reports/:id", GetMonthlyReportHandler())
	return app
}

func get(t *testing.T, app *fiber.App, path string) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func TestSummaryHandlers(t *testing.T) {
	app := setupReportApp(t)

	resp := get(t, app, "/reports/monthly?year=2026&month=3")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("monthly: status %d", resp.StatusCode)
	}
	var monthly Summary
	json.NewDecoder(resp.Body).Decode(&monthly)
	if monthly.Weighings != 3 || len(monthly.DailyBreakdown) != 31 || len(monthly.ByVehicleType) != 2 || len(monthly.ByCategory) != 2 {
		t.Fatalf("monthly = %+v", monthly)
	}

	// 2026-03-02 is the Monday of ISO week 10
	resp = get(t, app, "/reports/weekly?year=2026&week=10")
	var weekly Summary
	json.NewDecoder(resp.Body).Decode(&weekly)
	if weekly.StartDate != "2026-03-02" || weekly.EndDate != "2026-03-08" || weekly.Weighings != 3 {
		t.Fatalf("weekly = %+v", weekly)
	}

	for _, path := range []string{
		"/reports/daily",
		"/reports/daily?from=2026-03-05&to=2026-03-01",
		"/reports/daily?from=2024-01-01&to=2026-01-01",
		"/reports/monthly?year=2026",
		"/reports/weekly?year=2025&week=53",
	} {
		if resp := get(t, app, path); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, resp.StatusCode)
		}
	}
}

func TestExportWorkbook(t *testing.T) {
	app := setupReportApp(t)

	resp := get(t, app, "/reports/export?from=2026-03-01&to=2026-03-31")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export: status %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != `attachment; filename="weighbridge_2026-03-01_2026-03-31.xlsx"` {
		t.Errorf("content disposition = %q", cd)
	}

	f, err := excelize.OpenReader(resp.Body)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetWeighings)
	if err != nil {
		t.Fatalf("weighings sheet: %v", err)
	}
	if len(rows) != 4 || rows[1][0] != "r1" || rows[2][9] != "-100 munds 0 kg" {
		t.Fatalf("weighings rows = %v", rows)
	}

	rows, err = f.GetRows(SheetExpenses)
	if err != nil || len(rows) != 3 {
		t.Fatalf("expenses rows = %v, %v", rows, err)
	}

	v, err := f.GetCellValue(SheetSummary, "B7")
	if err != nil || v != "1200" {
		t.Fatalf("summary revenue cell = %q, %v", v, err)
	}
}

func TestMonthlySnapshots(t *testing.T) {
	app := setupReportApp(t)

	post := func() *http.Response {
		body, _ := json.Marshal(CreateMonthlyReportRequest{Year: 2026, Month: 3})
		req := httptest.NewRequest(http.MethodPost, "/monthly-reports", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		return resp
	}

	resp := post()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status %d", resp.StatusCode)
	}
	var created MonthlyReportResponse
	json.NewDecoder(resp.Body).Decode(&created)
	if created.TotalRevenue != 1200 || created.Weighings != 3 {
		t.Fatalf("snapshot = %+v", created)
	}

	if resp := post(); resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate: expected 409, got %d", resp.StatusCode)
	}

	resp = get(t, app, "/monthly-reports/1")
	var detail MonthlyReportDetail
	json.NewDecoder(resp.Body).Decode(&detail)
	if detail.ReportData.TotalExpenses != 1300 || len(detail.ReportData.ByCategory) != 2 {
		t.Fatalf("detail = %+v", detail)
	}

	var records int64
	database.DB.Model(&models.Record{}).Count(&records)
	if records != 5 {
		t.Fatalf("snapshot must not delete data, %d records left", records)
	}
}

type recordingArchive struct {
	saved []models.DailyReport
	err   error
}

func (a *recordingArchive) SaveDailyReport(_ context.Context, r models.DailyReport) error {
	a.saved = append(a.saved, r)
	return a.err
}

type recordingNotifier struct{ sent []models.DailyReport }

func (n *recordingNotifier) NotifyDailyReport(_ context.Context, r models.DailyReport) error {
	n.sent = append(n.sent, r)
	return nil
}

func TestCloseDay(t *testing.T) {
	seedMarch(t)
	archive := &recordingArchive{err: errors.New("mongo down")}
	notifier := &recordingNotifier{}
	cl := &Closer{Location: time.UTC, Archive: archive, Notifier: notifier}

	report, err := cl.CloseDay(context.Background(), at(3, 18))
	if err != nil {
		t.Fatalf("CloseDay: %v", err)
	}
	if report.Date != "2026-03-03" || report.Weighings != 2 || report.Pending != 1 || report.Revenue != 700 {
		t.Fatalf("report = %+v", report)
	}
	if report.ByVehicleType["truck"] != 500 || report.ByVehicleType["tractor"] != 200 {
		t.Fatalf("by vehicle type = %v", report.ByVehicleType)
	}
	if len(archive.saved) != 1 || len(notifier.sent) != 1 {
		t.Fatalf("archive=%d notify=%d", len(archive.saved), len(notifier.sent))
	}

	// closing again replaces the row
	if _, err := cl.CloseDay(context.Background(), at(3, 23)); err != nil {
		t.Fatalf("second CloseDay: %v", err)
	}
	var count int64
	database.DB.Model(&models.DailyReport{}).Where("date = ?", "2026-03-03").Count(&count)
	if count != 1 {
		t.Fatalf("expected one daily report row, got %d", count)
	}

	app := fiber.New()
	app.Post("/close", CloseDayHandler(cl))
	app.Get("/daily", ListDailyReportsHandler())

	resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/close?date=2026-03-02", nil), -1)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("close handler: status %d", resp.StatusCode)
	}
	resp, _ = app.Test(httptest.NewRequest(http.MethodPost, "/close?date=yesterday", nil), -1)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad date: expected 400, got %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/daily?from=2026-03-01&to=2026-03-31", nil), -1)
	var listed []models.DailyReport
	json.NewDecoder(resp.Body).Decode(&listed)
	if len(listed) != 2 || listed[0].Date != "2026-03-03" {
		t.Fatalf("daily reports = %+v", listed)
	}
}
