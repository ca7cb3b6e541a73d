package models

import "time"

// SettingID is the primary key of the only settings row.
const SettingID = 1

// Setting holds the vehicle-type price table and the business names printed on slips.
// It is always replaced as a whole.
type Setting struct {
	ID            uint               `gorm:"primaryKey"`
	VehiclePrices map[string]float64 `gorm:"type:text;serializer:json"`
	BusinessNames []string           `gorm:"type:text;serializer:json"`
	UpdatedBy     uint
	UpdatedAt     time.Time
}
