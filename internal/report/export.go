package report

import (
	"bytes"
	"fmt"
	"time"

	"weighbridge-backend/internal/database"
	"weighbridge-backend/internal/models"
	"weighbridge-backend/internal/period"
	"weighbridge-backend/internal/weighing"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	SheetWeighings = "Weighings"
	SheetExpenses  = "Expenses"
	SheetSummary   = "Summary"

	exportTimeLayout = "2006-01-02 15:04"
)

// Workbook renders a summary and its dataset as an xlsx file.
func Workbook(s Summary, ds Dataset, loc *time.Location) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetWeighings); err != nil {
		return nil, err
	}
	for _, name := range []string{SheetExpenses, SheetSummary} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	weighingRows := [][]any{{
		"Slip", "Vehicle", "Type", "Party", "Product", "Business",
		"First weight (kg)", "Second weight (kg)", "Net weight (kg)", "Net (munds)",
		"Price", "First weighed", "Completed", "Final",
	}}
	for _, rec := range ds.Completed {
		weighingRows = append(weighingRows, weighingRow(rec, loc))
	}
	if err := writeRows(f, SheetWeighings, weighingRows, bold); err != nil {
		return nil, err
	}

	expenseRows := [][]any{{"Date", "Category", "Description", "Amount"}}
	for _, exp := range ds.Expenses {
		expenseRows = append(expenseRows, []any{
			period.DayKey(exp.Date, loc), exp.Category, exp.Description, exp.Amount,
		})
	}
	if err := writeRows(f, SheetExpenses, expenseRows, bold); err != nil {
		return nil, err
	}

	summaryRows := [][]any{
		{"From", s.StartDate},
		{"To", s.EndDate},
		{"Weighings", s.Weighings},
		{"Pending", s.Pending},
		{"Net weight (kg)", s.NetWeightKg},
		{"Net weight (munds)", weighing.ToMunds(s.NetWeightKg).String()},
		{"Revenue", s.TotalRevenue},
		{"Expenses", s.TotalExpenses},
		{"Net profit", s.NetProfit},
		{},
		{"Date", "Weighings", "Net weight (kg)", "Revenue", "Expenses", "Net profit"},
	}
	for _, d := range s.DailyBreakdown {
		summaryRows = append(summaryRows, []any{d.Date, d.Weighings, d.NetWeightKg, d.Revenue, d.Expenses, d.NetProfit})
	}
	if err := writeRows(f, SheetSummary, summaryRows, 0); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(SheetSummary, "A11", "F11", bold); err != nil {
		return nil, err
	}

	return f, nil
}

func weighingRow(rec models.Record, loc *time.Location) []any {
	var second, net any
	munds := ""
	if rec.SecondWeight != nil {
		second = *rec.SecondWeight
	}
	if rec.NetWeight != nil {
		net = *rec.NetWeight
		munds = weighing.ToMunds(*rec.NetWeight).String()
	}
	completed := ""
	if rec.SecondWeightAt != nil {
		completed = rec.SecondWeightAt.In(loc).Format(exportTimeLayout)
	}
	return []any{
		rec.UUID, rec.VehicleNumber, rec.VehicleType, rec.PartyName, rec.Product, rec.BusinessName,
		rec.FirstWeight, second, net, munds,
		rec.TotalPrice, rec.FirstWeightAt.In(loc).Format(exportTimeLayout), completed, rec.FinalWeight,
	}
}

// writeRows fills a sheet from A1; a non-zero headerStyle is applied to the first row.
func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	if headerStyle != 0 && len(rows) > 0 {
		last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return err
		}
	}
	return nil
}

// GET /api/reports/export?from=YYYY-MM-DD&to=YYYY-MM-DD
func ExportHandler(loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := parseDayRange(c, loc)
		if err != nil {
			return err
		}
		s, ds, err := Build(database.DB, r, loc, "daily")
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Report could not be calculated")
		}

		f, err := Workbook(s, ds, loc)
		if err != nil {
			zap.L().Error("workbook build failed", zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "Export could not be created")
		}
		defer f.Close()

		var buf bytes.Buffer
		if err := f.Write(&buf); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Export could not be written")
		}

		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition,
			fmt.Sprintf(`attachment; filename="weighbridge_%s_%s.xlsx"`, s.StartDate, s.EndDate))
		return c.Send(buf.Bytes())
	}
}
