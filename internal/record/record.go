package record

import (
	"strings"
	"time"

	"weighbridge-backend/internal/models"
	"weighbridge-backend/internal/weighing"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFinal     = "final"
)

// Status is the lifecycle stage of a record.
func Status(rec models.Record) string {
	switch {
	case rec.FinalWeight:
		return StatusFinal
	case rec.Completed():
		return StatusCompleted
	default:
		return StatusPending
	}
}

// Complete applies the second weighing to a pending record.
func Complete(rec *models.Record, second float64, prices map[string]float64, at time.Time) error {
	if rec.FinalWeight || rec.Completed() {
		return weighing.ErrAlreadyCompleted
	}
	if second <= 0 || !weighing.WithinCapacity(second) {
		return weighing.ErrInvalidWeight
	}
	net := weighing.NetWeight(rec.FirstWeight, second)
	at = at.UTC()

	rec.SecondWeight = &second
	rec.NetWeight = &net
	rec.SecondWeightAt = &at
	rec.TotalPrice = weighing.PriceFor(prices, rec.VehicleType)
	return nil
}

// NewFinal builds a single-step record from the loaded and empty weights.
func NewFinal(rec models.Record, current, empty float64, prices map[string]float64, at time.Time) (models.Record, error) {
	if current <= 0 || empty < 0 || !weighing.WithinCapacity(current) || !weighing.WithinCapacity(empty) {
		return models.Record{}, weighing.ErrInvalidWeight
	}
	net := weighing.FinalNetWeight(current, empty)
	at = at.UTC()

	rec.FirstWeight = current
	rec.SecondWeight = &empty
	rec.NetWeight = &net
	rec.FirstWeightAt = at
	rec.SecondWeightAt = &at
	rec.FinalWeight = true
	rec.TotalPrice = weighing.PriceFor(prices, rec.VehicleType)
	return rec, nil
}

// Recompute refreshes net weight and price after an edit. Records without a
// second weight are left pending.
func Recompute(rec *models.Record, prices map[string]float64) {
	if rec.SecondWeight == nil {
		rec.NetWeight = nil
		rec.TotalPrice = 0
		return
	}
	net := weighing.NetWeight(rec.FirstWeight, *rec.SecondWeight)
	rec.NetWeight = &net
	rec.TotalPrice = weighing.PriceFor(prices, rec.VehicleType)
}

// NormalizeVehicleNumber is the stored form of a plate number.
func NormalizeVehicleNumber(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

type MundsView struct {
	weighing.Munds
	Text string `json:"text"`
}

func mundsOf(net *float64) *MundsView {
	if net == nil {
		return nil
	}
	m := weighing.ToMunds(*net)
	return &MundsView{Munds: m, Text: m.String()}
}

type RecordResponse struct {
	models.Record
	Status   string     `json:"status"`
	NetMunds *MundsView `json:"net_munds,omitempty"`
}

func NewRecordResponse(rec models.Record) RecordResponse {
	return RecordResponse{
		Record:   rec,
		Status:   Status(rec),
		NetMunds: mundsOf(rec.NetWeight),
	}
}

// Slip is what gets printed and handed to the driver.
type Slip struct {
	SlipNumber     string     `json:"slip_number"`
	Serial         uint       `json:"serial"`
	BusinessName   string     `json:"business_name"`
	VehicleNumber  string     `json:"vehicle_number"`
	VehicleType    string     `json:"vehicle_type"`
	PartyName      string     `json:"party_name"`
	Product        string     `json:"product"`
	Driver         bool       `json:"driver"`
	Status         string     `json:"status"`
	FirstWeight    float64    `json:"first_weight"`
	SecondWeight   *float64   `json:"second_weight"`
	NetWeight      *float64   `json:"net_weight"`
	NetMunds       *MundsView `json:"net_munds,omitempty"`
	TotalPrice     float64    `json:"total_price"`
	FirstWeightAt  string     `json:"first_weight_at"`
	SecondWeightAt string     `json:"second_weight_at,omitempty"`
	PrintedAt      string     `json:"printed_at"`
}

const slipTimeLayout = "2006-01-02 15:04"

func NewSlip(rec models.Record, loc *time.Location, now time.Time) Slip {
	s := Slip{
		SlipNumber:    rec.UUID,
		Serial:        rec.ID,
		BusinessName:  rec.BusinessName,
		VehicleNumber: rec.VehicleNumber,
		VehicleType:   rec.VehicleType,
		PartyName:     rec.PartyName,
		Product:       rec.Product,
		Driver:        rec.Driver,
		Status:        Status(rec),
		FirstWeight:   rec.FirstWeight,
		SecondWeight:  rec.SecondWeight,
		NetWeight:     rec.NetWeight,
		NetMunds:      mundsOf(rec.NetWeight),
		TotalPrice:    rec.TotalPrice,
		FirstWeightAt: rec.FirstWeightAt.In(loc).Format(slipTimeLayout),
		PrintedAt:     now.In(loc).Format(slipTimeLayout),
	}
	if rec.SecondWeightAt != nil {
		s.SecondWeightAt = rec.SecondWeightAt.In(loc).Format(slipTimeLayout)
	}
	return s
}
