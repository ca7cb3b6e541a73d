package weighing

import (
	"math"
	"testing"
)

func TestToMunds(t *testing.T) {
	tests := []struct {
		name string
		kg   float64
		want Munds
	}{
		{"zero", 0, Munds{}},
		{"exact", 1200, Munds{Munds: 30}},
		{"fraction rounds up", 1234.6, Munds{Munds: 30, Remainder: 35}},
		{"fraction rounds down", 1234.4, Munds{Munds: 30, Remainder: 34}},
		{"just under a mund rolls over", 79.6, Munds{Munds: 2}},
		{"below one mund", 39, Munds{Remainder: 39}},
		{"negative", -1234.6, Munds{Negative: true, Munds: 30, Remainder: 35}},
		{"negative rounds to zero", -0.4, Munds{}},
		{"nan", math.NaN(), Munds{}},
		{"infinity", math.Inf(1), Munds{}},
		{"largest exact float", 1 << 53, Munds{Munds: 225179981368524, Remainder: 32}},
		{"huge saturates", 1e19, Munds{Munds: 225179981368524, Remainder: 32}},
		{"huge negative saturates", -1e300, Munds{Negative: true, Munds: 225179981368524, Remainder: 32}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToMunds(tt.kg)
			if got != tt.want {
				t.Errorf("ToMunds(%v) = %+v, want %+v", tt.kg, got, tt.want)
			}
		})
	}
}

func TestToMundsIdentity(t *testing.T) {
	for kg := 0.0; kg < 5000; kg += 0.7 {
		m := ToMunds(kg)
		if m.Remainder < 0 || m.Remainder >= KgPerMund {
			t.Fatalf("ToMunds(%v) remainder %d out of range", kg, m.Remainder)
		}
		if got, want := m.Munds*KgPerMund+m.Remainder, int(math.Round(kg)); got != want {
			t.Fatalf("ToMunds(%v): %d*40+%d = %d, want %d", kg, m.Munds, m.Remainder, got, want)
		}

		neg := ToMunds(-kg)
		if math.Round(kg) > 0 && !neg.Negative {
			t.Fatalf("ToMunds(%v) lost the sign", -kg)
		}
		if neg.Munds != m.Munds || neg.Remainder != m.Remainder {
			t.Fatalf("ToMunds(%v) = %+v, want magnitude of %+v", -kg, neg, m)
		}
		if neg.kilograms() != -m.kilograms() {
			t.Fatalf("kilograms() not symmetric for %v", kg)
		}
	}
}

func TestMundsNormalizeRollover(t *testing.T) {
	got := Munds{Munds: 3, Remainder: 40}.normalize()
	if got.Munds != 4 || got.Remainder != 0 {
		t.Errorf("normalize = %+v, want 4 munds 0 kg", got)
	}
}

func TestMundsString(t *testing.T) {
	if s := ToMunds(1234.6).String(); s != "30 munds 35 kg" {
		t.Errorf("String() = %q", s)
	}
	if s := ToMunds(-80).String(); s != "-2 munds 0 kg" {
		t.Errorf("String() = %q", s)
	}
}

func TestToMundsHugeStaysInRange(t *testing.T) {
	for _, kg := range []float64{1e15, 1e18, 1e19, 1e20, 1e300, math.MaxFloat64} {
		m := ToMunds(kg)
		if m.Negative || m.Munds < 0 || m.Remainder < 0 || m.Remainder >= KgPerMund {
			t.Errorf("ToMunds(%g) = %+v, out of range", kg, m)
		}
	}
}
