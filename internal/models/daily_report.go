package models

import "time"

// DailyReport is the closing summary of one business day.
type DailyReport struct {
	ID            uint               `gorm:"primaryKey" json:"id" bson:"-"`
	Date          string             `gorm:"size:10;uniqueIndex;not null" json:"date" bson:"date"`
	Weighings     int                `json:"weighings" bson:"weighings"`
	Pending       int                `json:"pending" bson:"pending"`
	NetWeightKg   float64            `json:"net_weight_kg" bson:"net_weight_kg"`
	Revenue       float64            `json:"revenue" bson:"revenue"`
	Expenses      float64            `json:"expenses" bson:"expenses"`
	NetProfit     float64            `json:"net_profit" bson:"net_profit"`
	ByVehicleType map[string]float64 `gorm:"type:text;serializer:json" json:"by_vehicle_type" bson:"by_vehicle_type"`
	ClosedAt      time.Time          `json:"closed_at" bson:"closed_at"`
}
