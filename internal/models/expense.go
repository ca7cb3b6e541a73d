package models

import "time"

type Expense struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Description string    `gorm:"size:255;not null" json:"description"`
	Amount      float64   `gorm:"not null" json:"amount"`
	Category    string    `gorm:"size:100;index;not null" json:"category"`
	Date        time.Time `gorm:"index;not null" json:"date"`
	CreatedBy   uint      `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
