package models

import "time"

// Record is one vehicle weighing. SecondWeight and NetWeight stay nil until the
// second weighing, unless the record was created final in a single step.
type Record struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UUID           string     `gorm:"size:36;uniqueIndex;not null" json:"uuid"`
	VehicleNumber  string     `gorm:"size:50;index;not null" json:"vehicle_number"`
	VehicleType    string     `gorm:"size:50;not null" json:"vehicle_type"`
	PartyName      string     `gorm:"size:150;index;not null" json:"party_name"`
	Product        string     `gorm:"size:150" json:"product"`
	BusinessName   string     `gorm:"size:150" json:"business_name"`
	FirstWeight    float64    `gorm:"not null" json:"first_weight"`
	SecondWeight   *float64   `json:"second_weight"`
	NetWeight      *float64   `json:"net_weight"`
	TotalPrice     float64    `gorm:"default:0" json:"total_price"`
	FirstWeightAt  time.Time  `gorm:"index;not null" json:"first_weight_at"`
	SecondWeightAt *time.Time `gorm:"index" json:"second_weight_at"`
	Driver         bool       `gorm:"default:false" json:"driver"`
	FinalWeight    bool       `gorm:"default:false" json:"final_weight"`
	CreatedBy      uint       `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Completed reports whether the record has both weights.
func (r *Record) Completed() bool {
	return r.SecondWeight != nil && r.NetWeight != nil
}
