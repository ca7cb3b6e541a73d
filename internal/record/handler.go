package record

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"weighbridge-backend/internal/audit"
	"weighbridge-backend/internal/auth"
	"weighbridge-backend/internal/database"
	"weighbridge-backend/internal/metrics"
	"weighbridge-backend/internal/models"
	"weighbridge-backend/internal/period"
	"weighbridge-backend/internal/settings"
	"weighbridge-backend/internal/weighing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LiveWeightSource supplies the indicator's current reading.
type LiveWeightSource interface {
	LiveWeight() (float64, error)
}

// Mirror receives completed weighings, e.g. a spreadsheet ledger.
type Mirror interface {
	AppendRecord(ctx context.Context, rec models.Record) error
}

const mirrorTimeout = 10 * time.Second

type CreateRecordRequest struct {
	VehicleNumber string  `json:"vehicle_number"`
	VehicleType   string  `json:"vehicle_type"`
	PartyName     string  `json:"party_name"`
	Product       string  `json:"product"`
	BusinessName  string  `json:"business_name"`
	Driver        bool    `json:"driver"`
	FirstWeight   float64 `json:"first_weight"`
	UseLiveWeight bool    `json:"use_live_weight"`
}

type SecondWeightRequest struct {
	SecondWeight  float64 `json:"second_weight"`
	UseLiveWeight bool    `json:"use_live_weight"`
}

type FinalRecordRequest struct {
	VehicleNumber string  `json:"vehicle_number"`
	VehicleType   string  `json:"vehicle_type"`
	PartyName     string  `json:"party_name"`
	Product       string  `json:"product"`
	BusinessName  string  `json:"business_name"`
	Driver        bool    `json:"driver"`
	CurrentWeight float64 `json:"current_weight"`
	EmptyWeight   float64 `json:"empty_weight"`
	UseLiveWeight bool    `json:"use_live_weight"`
}

type UpdateRecordRequest struct {
	VehicleNumber *string  `json:"vehicle_number"`
	VehicleType   *string  `json:"vehicle_type"`
	PartyName     *string  `json:"party_name"`
	Product       *string  `json:"product"`
	BusinessName  *string  `json:"business_name"`
	Driver        *bool    `json:"driver"`
	FirstWeight   *float64 `json:"first_weight"`
	SecondWeight  *float64 `json:"second_weight"`
}

// header fields shared by first and final weighings
type header struct {
	VehicleNumber string
	VehicleType   string
	PartyName     string
	Product       string
	BusinessName  string
	Driver        bool
}

func (h header) validate(s models.Setting) (models.Record, error) {
	rec := models.Record{
		VehicleNumber: NormalizeVehicleNumber(h.VehicleNumber),
		VehicleType:   weighing.NormalizeVehicleType(h.VehicleType),
		PartyName:     strings.TrimSpace(h.PartyName),
		Product:       strings.TrimSpace(h.Product),
		BusinessName:  strings.TrimSpace(h.BusinessName),
		Driver:        h.Driver,
	}
	if rec.VehicleNumber == "" || rec.VehicleType == "" || rec.PartyName == "" {
		return rec, fiber.NewError(fiber.StatusBadRequest, "vehicle_number, vehicle_type and party_name are required")
	}
	if !settings.HasBusiness(s, rec.BusinessName) {
		return rec, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Unknown business name %q", rec.BusinessName))
	}
	return rec, nil
}

// resolveWeight returns the submitted weight, or the live reading when requested.
func resolveWeight(live LiveWeightSource, useLive bool, submitted float64) (float64, error) {
	if !useLive {
		return submitted, nil
	}
	if live == nil {
		return 0, fiber.NewError(fiber.StatusServiceUnavailable, "Live weight is not configured")
	}
	kg, err := live.LiveWeight()
	if err != nil {
		return 0, fiber.NewError(fiber.StatusConflict, "No fresh live weight available")
	}
	return kg, nil
}

func weightMessage(field string) string {
	return fmt.Sprintf("%s must be greater than zero and at most %d kg", field, weighing.MaxWeightKg)
}

func mirrorRecord(mirror Mirror, rec models.Record) {
	if mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()
	if err := mirror.AppendRecord(ctx, rec); err != nil {
		zap.L().Warn("ledger mirror failed", zap.Uint("record_id", rec.ID), zap.Error(err))
	}
}

func countNet(rec models.Record) {
	if rec.NetWeight == nil {
		return
	}
	net := *rec.NetWeight
	if net < 0 {
		net = -net
	}
	metrics.NetWeightKg.Add(net)
}

func loadRecord(c *fiber.Ctx) (models.Record, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return models.Record{}, fiber.NewError(fiber.StatusBadRequest, "Invalid record id")
	}
	var rec models.Record
	if err := database.DB.First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Record{}, fiber.NewError(fiber.StatusNotFound, "Record not found")
		}
		return models.Record{}, fiber.NewError(fiber.StatusInternalServerError, "Record could not be loaded")
	}
	return rec, nil
}

// POST /api/records
func CreateRecordHandler(live LiveWeightSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateRecordRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		s, err := settings.Load(database.DB)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Settings could not be loaded")
		}
		rec, err := header{
			VehicleNumber: body.VehicleNumber,
			VehicleType:   body.VehicleType,
			PartyName:     body.PartyName,
			Product:       body.Product,
			BusinessName:  body.BusinessName,
			Driver:        body.Driver,
		}.validate(s)
		if err != nil {
			return err
		}

		first, err := resolveWeight(live, body.UseLiveWeight, body.FirstWeight)
		if err != nil {
			return err
		}
		if first <= 0 || !weighing.WithinCapacity(first) {
			return fiber.NewError(fiber.StatusBadRequest, weightMessage("first_weight"))
		}

		rec.UUID = uuid.NewString()
		rec.FirstWeight = first
		rec.FirstWeightAt = time.Now().UTC()
		rec.CreatedBy = userID

		if err := database.DB.Create(&rec).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Record could not be saved")
		}
		metrics.WeighingsTotal.WithLabelValues("first").Inc()

		audit.Record(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  models.EntityRecord,
			EntityID:    rec.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("First weight %.0f kg for %s", rec.FirstWeight, rec.VehicleNumber),
			After:       rec,
		})

		return c.Status(fiber.StatusCreated).JSON(NewRecordResponse(rec))
	}
}

// POST /api/records/:id/second-weight
func SecondWeightHandler(live LiveWeightSource, mirror Mirror) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rec, err := loadRecord(c)
		if err != nil {
			return err
		}

		var body SecondWeightRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		if rec.FinalWeight || rec.Completed() {
			return fiber.NewError(fiber.StatusConflict, "Record already has a second weight")
		}

		second, err := resolveWeight(live, body.UseLiveWeight, body.SecondWeight)
		if err != nil {
			return err
		}

		s, err := settings.Load(database.DB)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Settings could not be loaded")
		}

		before := rec
		if err := Complete(&rec, second, s.VehiclePrices, time.Now()); err != nil {
			if errors.Is(err, weighing.ErrInvalidWeight) {
				return fiber.NewError(fiber.StatusBadRequest, weightMessage("second_weight"))
			}
			return fiber.NewError(fiber.StatusConflict, "Record already has a second weight")
		}

		// guard against a concurrent second weighing of the same record
		res := database.DB.Model(&models.Record{}).
			Where("id = ? AND second_weight IS NULL AND final_weight = ?", rec.ID, false).
			Updates(map[string]interface{}{
				"second_weight":    rec.SecondWeight,
				"net_weight":       rec.NetWeight,
				"second_weight_at": rec.SecondWeightAt,
				"total_price":      rec.TotalPrice,
			})
		if res.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Record could not be updated")
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusConflict, "Record already has a second weight")
		}
		if err := database.DB.First(&rec, rec.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Record could not be loaded")
		}

		metrics.WeighingsTotal.WithLabelValues("second").Inc()
		countNet(rec)

		audit.Record(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  models.EntityRecord,
			EntityID:    rec.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Second weight %.0f kg for %s", second, rec.VehicleNumber),
			Before:      before,
			After:       rec,
		})
		mirrorRecord(mirror, rec)

		return c.JSON(NewRecordResponse(rec))
	}
}

// POST /api/records/final
func FinalRecordHandler(live LiveWeightSource, mirror Mirror) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body FinalRecordRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		s, err := settings.Load(database.DB)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Settings could not be loaded")
		}
		base, err := header{
			VehicleNumber: body.VehicleNumber,
			VehicleType:   body.VehicleType,
			PartyName:     body.PartyName,
			Product:       body.Product,
			BusinessName:  body.BusinessName,
			Driver:        body.Driver,
		}.validate(s)
		if err != nil {
			return err
		}

		current, err := resolveWeight(live, body.UseLiveWeight, body.CurrentWeight)
		if err != nil {
			return err
		}

		rec, err := NewFinal(base, current, body.EmptyWeight, s.VehiclePrices, time.Now())
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("current_weight must be greater than zero and empty_weight not negative, both at most %d kg", weighing.MaxWeightKg))
		}
		rec.UUID = uuid.NewString()
		rec.CreatedBy = userID

		if err := database.DB.Create(&rec).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Record could not be saved")
		}
		metrics.WeighingsTotal.WithLabelValues("final").Inc()
		countNet(rec)

		audit.Record(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  models.EntityRecord,
			EntityID:    rec.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Final weighing %.0f kg for %s", *rec.NetWeight, rec.VehicleNumber),
			After:       rec,
		})
		mirrorRecord(mirror, rec)

		return c.Status(fiber.StatusCreated).JSON(NewRecordResponse(rec))
	}
}

// GET /api/records?from=&to=&status=&vehicle_number=&party_name=&limit=
func ListRecordsHandler(loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, to, err := period.Days(c.Query("from"), c.Query("to"), loc)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		dbq := database.DB.Model(&models.Record{})
		if from != nil {
			dbq = dbq.Where("first_weight_at >= ?", *from)
		}
		if to != nil {
			dbq = dbq.Where("first_weight_at < ?", *to)
		}

		switch c.Query("status") {
		case "":
		case StatusPending:
			dbq = dbq.Where("second_weight IS NULL AND final_weight = ?", false)
		case StatusCompleted:
			dbq = dbq.Where("second_weight IS NOT NULL AND final_weight = ?", false)
		case StatusFinal:
			dbq = dbq.Where("final_weight = ?", true)
		default:
			return fiber.NewError(fiber.StatusBadRequest, "status must be pending, completed or final")
		}

		if v := NormalizeVehicleNumber(c.Query("vehicle_number")); v != "" {
			dbq = dbq.Where("vehicle_number LIKE ?", "%"+v+"%")
		}
		if p := strings.TrimSpace(c.Query("party_name")); p != "" {
			dbq = dbq.Where("LOWER(party_name) LIKE ?", "%"+strings.ToLower(p)+"%")
		}

		limit := 100
		if l := c.Query("limit"); l != "" {
			n, err := strconv.Atoi(l)
			if err != nil || n <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "limit must be a positive number")
			}
			if n > 1000 {
				n = 1000
			}
			limit = n
		}

		var rows []models.Record
		if err := dbq.Order("first_weight_at desc, id desc").Limit(limit).Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Records could not be listed")
		}

		resp := make([]RecordResponse, 0, len(rows))
		for _, r := range rows {
			resp = append(resp, NewRecordResponse(r))
		}
		return c.JSON(resp)
	}
}

// GET /api/records/:id
func GetRecordHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rec, err := loadRecord(c)
		if err != nil {
			return err
		}
		return c.JSON(NewRecordResponse(rec))
	}
}

// GET /api/records/:id/slip
func SlipHandler(loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rec, err := loadRecord(c)
		if err != nil {
			return err
		}
		return c.JSON(NewSlip(rec, loc, time.Now()))
	}
}

// PUT /api/records/:id (admin) corrects a record. A pending record that gains a
// second weight here counts as completed.
func UpdateRecordHandler(mirror Mirror) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rec, err := loadRecord(c)
		if err != nil {
			return err
		}

		var body UpdateRecordRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		s, err := settings.Load(database.DB)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Settings could not be loaded")
		}

		before := rec
		if body.VehicleNumber != nil {
			rec.VehicleNumber = NormalizeVehicleNumber(*body.VehicleNumber)
		}
		if body.VehicleType != nil {
			rec.VehicleType = weighing.NormalizeVehicleType(*body.VehicleType)
		}
		if body.PartyName != nil {
			rec.PartyName = strings.TrimSpace(*body.PartyName)
		}
		if body.Product != nil {
			rec.Product = strings.TrimSpace(*body.Product)
		}
		if body.BusinessName != nil {
			rec.BusinessName = strings.TrimSpace(*body.BusinessName)
		}
		if body.Driver != nil {
			rec.Driver = *body.Driver
		}
		if rec.VehicleNumber == "" || rec.VehicleType == "" || rec.PartyName == "" {
			return fiber.NewError(fiber.StatusBadRequest, "vehicle_number, vehicle_type and party_name must not be empty")
		}
		if body.BusinessName != nil && !settings.HasBusiness(s, rec.BusinessName) {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Unknown business name %q", rec.BusinessName))
		}

		if body.FirstWeight != nil {
			if *body.FirstWeight <= 0 || !weighing.WithinCapacity(*body.FirstWeight) {
				return fiber.NewError(fiber.StatusBadRequest, weightMessage("first_weight"))
			}
			rec.FirstWeight = *body.FirstWeight
		}
		if body.SecondWeight != nil {
			if *body.SecondWeight < 0 || (*body.SecondWeight == 0 && !rec.FinalWeight) || !weighing.WithinCapacity(*body.SecondWeight) {
				return fiber.NewError(fiber.StatusBadRequest, weightMessage("second_weight"))
			}
			second := *body.SecondWeight
			rec.SecondWeight = &second
			if rec.SecondWeightAt == nil {
				now := time.Now().UTC()
				rec.SecondWeightAt = &now
			}
		}
		Recompute(&rec, s.VehiclePrices)

		if err := database.DB.Save(&rec).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Record could not be updated")
		}

		audit.Record(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  models.EntityRecord,
			EntityID:    rec.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Record %s corrected", rec.VehicleNumber),
			Before:      before,
			After:       rec,
		})
		if Status(before) == StatusPending && Status(rec) == StatusCompleted {
			metrics.WeighingsTotal.WithLabelValues("second").Inc()
			countNet(rec)
			mirrorRecord(mirror, rec)
		}

		return c.JSON(NewRecordResponse(rec))
	}
}

// DELETE /api/records/:id (admin)
func DeleteRecordHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rec, err := loadRecord(c)
		if err != nil {
			return err
		}

		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		if err := database.DB.Delete(&models.Record{}, rec.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Record could not be deleted")
		}

		audit.Record(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  models.EntityRecord,
			EntityID:    rec.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Record %s deleted", rec.VehicleNumber),
			Before:      rec,
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}
