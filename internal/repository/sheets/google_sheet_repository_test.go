package sheets

import (
	"testing"
	"time"

	"weighbridge-backend/internal/models"
)

func TestRecordRow(t *testing.T) {
	loc := time.FixedZone("PKT", 5*3600)
	second, net := 5000.0, 10000.0
	done := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	rec := models.Record{
		UUID: "slip-1", VehicleNumber: "LHR 1234", VehicleType: "truck", PartyName: "Rashid",
		FirstWeight: 15000, SecondWeight: &second, NetWeight: &net, TotalPrice: 500,
		FirstWeightAt: done.Add(-time.Hour), SecondWeightAt: &done,
	}

	row := RecordRow(rec, loc)
	if len(row) != 14 {
		t.Fatalf("row has %d columns", len(row))
	}
	if row[0] != "slip-1" || row[8] != 10000.0 || row[9] != "250 munds 0 kg" {
		t.Errorf("row = %v", row)
	}
	if row[11] != "2026-03-01 13:30" || row[12] != "2026-03-01 14:30" {
		t.Errorf("times = %v %v", row[11], row[12])
	}

	pending := RecordRow(models.Record{UUID: "slip-2", FirstWeightAt: done}, loc)
	if pending[7] != "" || pending[9] != "" || pending[12] != "" {
		t.Errorf("pending row = %v", pending)
	}
}
