package scale

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var ErrMalformed = errors.New("malformed indicator message")

// Reading is one live weight sample.
type Reading struct {
	WeightKg   float64   `json:"weight"`
	ReceivedAt time.Time `json:"received_at"`
}

type jsonMessage struct {
	Weight *json.Number `json:"weight"`
	Value  *json.Number `json:"value"`
	Unit   string       `json:"unit"`
}

// ParseMessage accepts a bare number ("12340", "+12340 kg") or a JSON object
// {"weight": 12340, "unit": "kg"}; "value" is accepted in place of "weight" and
// tonnes are converted to kilograms.
func ParseMessage(data []byte) (float64, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: empty", ErrMalformed)
	}

	if data[0] == '{' {
		var msg jsonMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		num := msg.Weight
		if num == nil {
			num = msg.Value
		}
		if num == nil {
			return 0, fmt.Errorf("%w: no weight field", ErrMalformed)
		}
		kg, err := num.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return toKg(kg, msg.Unit)
	}

	s := strings.ToLower(string(data))
	unit := "kg"
	switch {
	case strings.HasSuffix(s, "kg"):
		s = strings.TrimSuffix(s, "kg")
	case strings.HasSuffix(s, "t"):
		s = strings.TrimSuffix(s, "t")
		unit = "t"
	}
	s = strings.TrimPrefix(strings.TrimSpace(s), "+")

	kg, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, string(data))
	}
	return toKg(kg, unit)
}

func toKg(v float64, unit string) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: not a finite number", ErrMalformed)
	}
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "", "kg":
		return v, nil
	case "t", "ton", "tonne":
		return v * 1000, nil
	default:
		return 0, fmt.Errorf("%w: unknown unit %q", ErrMalformed, unit)
	}
}
