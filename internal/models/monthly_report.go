package models

import "time"

// MonthlyReport is a stored snapshot of one month's figures.
type MonthlyReport struct {
	ID         uint      `gorm:"primaryKey"`
	Year       int       `gorm:"uniqueIndex:idx_monthly_reports_period;not null"`
	Month      int       `gorm:"uniqueIndex:idx_monthly_reports_period;not null"`
	ReportDate time.Time `gorm:"not null"`

	Weighings     int     `gorm:"default:0"`
	NetWeightKg   float64 `gorm:"default:0"`
	TotalRevenue  float64 `gorm:"default:0"`
	TotalExpenses float64 `gorm:"default:0"`
	NetProfit     float64 `gorm:"default:0"`

	// breakdowns as JSON
	ReportData string `gorm:"type:text"`

	CreatedBy uint
	CreatedAt time.Time
	UpdatedAt time.Time
}
