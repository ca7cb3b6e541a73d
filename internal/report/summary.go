// Package report aggregates weighings and expenses into financial summaries.
package report

import (
	"math"
	"sort"
	"time"

	"weighbridge-backend/internal/models"
	"weighbridge-backend/internal/period"

	"gorm.io/gorm"
)

type DayTotals struct {
	Date        string  `json:"date"`
	Weighings   int     `json:"weighings"`
	NetWeightKg float64 `json:"net_weight_kg"`
	Revenue     float64 `json:"revenue"`
	Expenses    float64 `json:"expenses"`
	NetProfit   float64 `json:"net_profit"`
}

type VehicleTypeTotals struct {
	VehicleType string  `json:"vehicle_type"`
	Weighings   int     `json:"weighings"`
	NetWeightKg float64 `json:"net_weight_kg"`
	Revenue     float64 `json:"revenue"`
}

type CategoryTotals struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	Total    float64 `json:"total"`
}

type Summary struct {
	Period         string              `json:"period"` // daily, weekly, monthly
	StartDate      string              `json:"start_date"`
	EndDate        string              `json:"end_date"`
	Weighings      int                 `json:"weighings"`
	Pending        int                 `json:"pending"`
	NetWeightKg    float64             `json:"net_weight_kg"`
	TotalRevenue   float64             `json:"total_revenue"`
	TotalExpenses  float64             `json:"total_expenses"`
	NetProfit      float64             `json:"net_profit"`
	DailyBreakdown []DayTotals         `json:"daily_breakdown,omitempty"`
	ByVehicleType  []VehicleTypeTotals `json:"by_vehicle_type,omitempty"`
	ByCategory     []CategoryTotals    `json:"by_category,omitempty"`
}

// Dataset is the raw material of a report.
type Dataset struct {
	// Completed holds records whose second weighing falls in the range.
	Completed []models.Record
	// Pending counts records first weighed in the range and still waiting.
	Pending  int
	Expenses []models.Expense
}

// Load reads everything a report over r needs.
func Load(db *gorm.DB, r period.Range) (Dataset, error) {
	var ds Dataset
	if err := db.Where("second_weight_at >= ? AND second_weight_at < ?", r.From, r.To).
		Order("second_weight_at asc, id asc").
		Find(&ds.Completed).Error; err != nil {
		return ds, err
	}

	var pending int64
	if err := db.Model(&models.Record{}).
		Where("first_weight_at >= ? AND first_weight_at < ? AND second_weight IS NULL AND final_weight = ?", r.From, r.To, false).
		Count(&pending).Error; err != nil {
		return ds, err
	}
	ds.Pending = int(pending)

	if err := db.Where("date >= ? AND date < ?", r.From, r.To).
		Order("date asc, id asc").
		Find(&ds.Expenses).Error; err != nil {
		return ds, err
	}
	return ds, nil
}

// billedKg is the magnitude of a record's net weight.
func billedKg(rec models.Record) float64 {
	if rec.NetWeight == nil {
		return 0
	}
	return math.Abs(*rec.NetWeight)
}

// Summarize builds totals with a per-day breakdown covering every day of r.
func Summarize(ds Dataset, r period.Range, loc *time.Location) Summary {
	days := period.EachDay(r, loc)
	byDay := make(map[string]*DayTotals, len(days))
	breakdown := make([]DayTotals, len(days))
	for i, d := range days {
		breakdown[i].Date = d
		byDay[d] = &breakdown[i]
	}

	s := Summary{Pending: ds.Pending}
	if len(days) > 0 {
		s.StartDate = days[0]
		s.EndDate = days[len(days)-1]
	}

	for _, rec := range ds.Completed {
		kg := billedKg(rec)
		s.Weighings++
		s.NetWeightKg += kg
		s.TotalRevenue += rec.TotalPrice
		if dt, ok := byDay[period.DayKey(*rec.SecondWeightAt, loc)]; ok {
			dt.Weighings++
			dt.NetWeightKg += kg
			dt.Revenue += rec.TotalPrice
		}
	}

	for _, exp := range ds.Expenses {
		s.TotalExpenses += exp.Amount
		if dt, ok := byDay[period.DayKey(exp.Date, loc)]; ok {
			dt.Expenses += exp.Amount
		}
	}

	for i := range breakdown {
		breakdown[i].NetProfit = breakdown[i].Revenue - breakdown[i].Expenses
	}
	s.NetProfit = s.TotalRevenue - s.TotalExpenses
	s.DailyBreakdown = breakdown
	return s
}

// VehicleTypeBreakdown groups completed weighings by vehicle type, alphabetically.
func VehicleTypeBreakdown(ds Dataset) []VehicleTypeTotals {
	m := make(map[string]*VehicleTypeTotals)
	for _, rec := range ds.Completed {
		vt, ok := m[rec.VehicleType]
		if !ok {
			vt = &VehicleTypeTotals{VehicleType: rec.VehicleType}
			m[rec.VehicleType] = vt
		}
		vt.Weighings++
		vt.NetWeightKg += billedKg(rec)
		vt.Revenue += rec.TotalPrice
	}

	out := make([]VehicleTypeTotals, 0, len(m))
	for _, vt := range m {
		out = append(out, *vt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VehicleType < out[j].VehicleType })
	return out
}

// CategoryBreakdown groups expenses by category, alphabetically.
func CategoryBreakdown(ds Dataset) []CategoryTotals {
	m := make(map[string]*CategoryTotals)
	for _, exp := range ds.Expenses {
		ct, ok := m[exp.Category]
		if !ok {
			ct = &CategoryTotals{Category: exp.Category}
			m[exp.Category] = ct
		}
		ct.Count++
		ct.Total += exp.Amount
	}

	out := make([]CategoryTotals, 0, len(m))
	for _, ct := range m {
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// Build loads and summarizes r in one call.
func Build(db *gorm.DB, r period.Range, loc *time.Location, name string) (Summary, Dataset, error) {
	ds, err := Load(db, r)
	if err != nil {
		return Summary{}, Dataset{}, err
	}
	s := Summarize(ds, r, loc)
	s.Period = name
	return s, ds, nil
}
