package settings

import (
	"fmt"
	"sort"
	"strings"

	"weighbridge-backend/internal/models"
	"weighbridge-backend/internal/weighing"

	"gorm.io/gorm"
)

// Load returns the settings row with nil collections replaced by empty ones.
func Load(db *gorm.DB) (models.Setting, error) {
	var s models.Setting
	if err := db.First(&s, models.SettingID).Error; err != nil {
		return models.Setting{}, fmt.Errorf("load settings: %w", err)
	}
	if s.VehiclePrices == nil {
		s.VehiclePrices = map[string]float64{}
	}
	if s.BusinessNames == nil {
		s.BusinessNames = []string{}
	}
	return s, nil
}

// Sanitize trims and validates a full settings document.
func Sanitize(prices map[string]float64, names []string) (map[string]float64, []string, error) {
	cleanPrices := make(map[string]float64, len(prices))
	for vehicleType, price := range prices {
		key := weighing.NormalizeVehicleType(vehicleType)
		if key == "" {
			return nil, nil, fmt.Errorf("vehicle type must not be empty")
		}
		if price < 0 {
			return nil, nil, fmt.Errorf("price for %q must not be negative", key)
		}
		if _, dup := cleanPrices[key]; dup {
			return nil, nil, fmt.Errorf("vehicle type %q is listed twice", key)
		}
		cleanPrices[key] = price
	}

	seen := make(map[string]bool, len(names))
	cleanNames := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[strings.ToLower(n)] {
			continue
		}
		seen[strings.ToLower(n)] = true
		cleanNames = append(cleanNames, n)
	}
	return cleanPrices, cleanNames, nil
}

// VehicleTypes lists the priced vehicle types alphabetically.
func VehicleTypes(s models.Setting) []string {
	types := make([]string, 0, len(s.VehiclePrices))
	for t := range s.VehiclePrices {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// HasBusiness reports whether name is allowed on a record. An empty list allows anything.
func HasBusiness(s models.Setting, name string) bool {
	if len(s.BusinessNames) == 0 || name == "" {
		return true
	}
	for _, n := range s.BusinessNames {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}
