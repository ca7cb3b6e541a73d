package dashboard

import (
	"time"

	"weighbridge-backend/internal/database"
	"weighbridge-backend/internal/period"
	"weighbridge-backend/internal/report"

	"github.com/gofiber/fiber/v2"
)

const maxPoints = 60

type ChartPoint struct {
	Label       string  `json:"label"` // day, week start or month start
	Weighings   int     `json:"weighings"`
	NetWeightKg float64 `json:"net_weight_kg"`
	Revenue     float64 `json:"revenue"`
	Expenses    float64 `json:"expenses"`
	NetProfit   float64 `json:"net_profit"`
}

type ChartTotals struct {
	Weighings   int     `json:"weighings"`
	NetWeightKg float64 `json:"net_weight_kg"`
	Revenue     float64 `json:"revenue"`
	Expenses    float64 `json:"expenses"`
	NetProfit   float64 `json:"net_profit"`
}

type ChartResponse struct {
	Period      string       `json:"period"` // daily | weekly | monthly
	From        string       `json:"from"`
	To          string       `json:"to"`
	Points      []ChartPoint `json:"points"`
	GrandTotals ChartTotals  `json:"grand_totals"`
}

// bucketStart maps t to the start of its daily, weekly (ISO, Monday) or monthly bucket.
func bucketStart(t time.Time, periodName string, loc *time.Location) time.Time {
	d := period.StartOfDay(t, loc)
	switch periodName {
	case "weekly":
		offset := (int(d.Weekday()) + 6) % 7
		return d.AddDate(0, 0, -offset)
	case "monthly":
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, loc)
	default:
		return d
	}
}

func step(t time.Time, periodName string, n int) time.Time {
	switch periodName {
	case "weekly":
		return t.AddDate(0, 0, 7*n)
	case "monthly":
		return t.AddDate(0, n, 0)
	default:
		return t.AddDate(0, 0, n)
	}
}

// Window is the range covered by the last count buckets ending with the one containing now.
func Window(periodName string, count int, now time.Time, loc *time.Location) period.Range {
	last := bucketStart(now, periodName, loc)
	first := step(last, periodName, -(count - 1))
	return period.Range{From: first.UTC(), To: step(last, periodName, 1).UTC()}
}

// BuildChart buckets a dataset loaded for Window(periodName, count, now, loc).
func BuildChart(ds report.Dataset, periodName string, count int, now time.Time, loc *time.Location) ChartResponse {
	w := Window(periodName, count, now, loc)
	first := w.From.In(loc)

	points := make([]ChartPoint, count)
	index := make(map[string]int, count)
	for i := 0; i < count; i++ {
		label := step(first, periodName, i).Format(period.DayLayout)
		points[i].Label = label
		index[label] = i
	}

	resp := ChartResponse{
		Period: periodName,
		From:   points[0].Label,
		To:     step(first, periodName, count).AddDate(0, 0, -1).Format(period.DayLayout),
	}

	for _, rec := range ds.Completed {
		i, ok := index[bucketStart(*rec.SecondWeightAt, periodName, loc).Format(period.DayLayout)]
		if !ok {
			continue
		}
		kg := 0.0
		if rec.NetWeight != nil {
			kg = *rec.NetWeight
			if kg < 0 {
				kg = -kg
			}
		}
		points[i].Weighings++
		points[i].NetWeightKg += kg
		points[i].Revenue += rec.TotalPrice
	}
	for _, exp := range ds.Expenses {
		if i, ok := index[bucketStart(exp.Date, periodName, loc).Format(period.DayLayout)]; ok {
			points[i].Expenses += exp.Amount
		}
	}

	for i := range points {
		p := &points[i]
		p.NetProfit = p.Revenue - p.Expenses
		resp.GrandTotals.Weighings += p.Weighings
		resp.GrandTotals.NetWeightKg += p.NetWeightKg
		resp.GrandTotals.Revenue += p.Revenue
		resp.GrandTotals.Expenses += p.Expenses
	}
	resp.GrandTotals.NetProfit = resp.GrandTotals.Revenue - resp.GrandTotals.Expenses
	resp.Points = points
	return resp
}

// GET /api/dashboard/chart?period=daily&count=7
func ChartHandler(loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		periodName := c.Query("period", "daily")
		var count int
		switch periodName {
		case "daily":
			count = 7
		case "weekly":
			count = 8
		case "monthly":
			count = 12
		default:
			return fiber.NewError(fiber.StatusBadRequest, "period must be daily, weekly or monthly")
		}
		count = c.QueryInt("count", count)
		if count < 1 || count > maxPoints {
			return fiber.NewError(fiber.StatusBadRequest, "count must be between 1 and 60")
		}

		now := time.Now()
		ds, err := report.Load(database.DB, Window(periodName, count, now, loc))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Chart could not be calculated")
		}
		return c.JSON(BuildChart(ds, periodName, count, now, loc))
	}
}
