package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"weighbridge-backend/internal/database"
	"weighbridge-backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrAlreadyUndone = errors.New("this action was already undone")
	ErrNotUndoable   = errors.New("this action cannot be undone")
	ErrUnknownEntity = errors.New("unknown entity type")
)

type LogOptions struct {
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

func WriteLog(opts LogOptions) error {
	entry := models.AuditLog{
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  marshalOrNull(opts.Before),
		AfterData:   marshalOrNull(opts.After),
	}

	if err := database.DB.Create(&entry).Error; err != nil {
		return fmt.Errorf("audit log could not be saved: %w", err)
	}
	return nil
}

// Record writes a log and only reports failures to the logger.
func Record(opts LogOptions) {
	if err := WriteLog(opts); err != nil {
		zap.L().Warn("audit log write failed",
			zap.String("entity_type", opts.EntityType),
			zap.Uint("entity_id", opts.EntityID),
			zap.Error(err))
	}
}

func marshalOrNull(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// UndoLog reverses the action recorded by a log and writes an undo entry.
func UndoLog(logID uint, userID uint, userName string) error {
	var entry models.AuditLog
	if err := database.DB.First(&entry, "id = ?", logID).Error; err != nil {
		return fmt.Errorf("log not found: %w", err)
	}
	if entry.IsUndone {
		return ErrAlreadyUndone
	}
	return applyUndo(entry, userID, userName)
}

// applyUndo claims the log inside the transaction, so a log is reversed at most once
// even when entry was loaded before a concurrent undo committed.
func applyUndo(entry models.AuditLog, userID uint, userName string) error {
	switch entry.Action {
	case models.AuditActionCreate, models.AuditActionUpdate, models.AuditActionDelete:
	default:
		return ErrNotUndoable
	}

	return database.DB.Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		claim := tx.Model(&models.AuditLog{}).
			Where("id = ? AND is_undone = ?", entry.ID, false).
			Updates(map[string]interface{}{
				"is_undone": true,
				"undone_by": userID,
				"undone_at": now,
			})
		if claim.Error != nil {
			return fmt.Errorf("log could not be updated: %w", claim.Error)
		}
		if claim.RowsAffected == 0 {
			return ErrAlreadyUndone
		}

		switch entry.Action {
		case models.AuditActionCreate:
			if err := deleteEntity(tx, entry.EntityType, entry.EntityID); err != nil {
				return fmt.Errorf("entity could not be deleted: %w", err)
			}
		case models.AuditActionUpdate:
			if err := restoreEntity(tx, entry.EntityType, entry.EntityID, entry.BeforeData); err != nil {
				return fmt.Errorf("entity could not be restored: %w", err)
			}
		case models.AuditActionDelete:
			if err := recreateEntity(tx, entry.EntityType, entry.BeforeData); err != nil {
				return fmt.Errorf("entity could not be recreated: %w", err)
			}
		}

		undo := models.AuditLog{
			UserID:      userID,
			UserName:    userName,
			EntityType:  entry.EntityType,
			EntityID:    entry.EntityID,
			Action:      models.AuditActionUndo,
			Description: fmt.Sprintf("Undone: %s", entry.Description),
			BeforeData:  entry.AfterData,
			AfterData:   entry.BeforeData,
			Undone:      true,
		}
		if err := tx.Create(&undo).Error; err != nil {
			return fmt.Errorf("undo log could not be saved: %w", err)
		}
		return nil
	})
}

func deleteEntity(tx *gorm.DB, entityType string, entityID uint) error {
	switch entityType {
	case models.EntityRecord:
		return tx.Delete(&models.Record{}, "id = ?", entityID).Error
	case models.EntityExpense:
		return tx.Delete(&models.Expense{}, "id = ?", entityID).Error
	default:
		return fmt.Errorf("%w: %s", ErrUnknownEntity, entityType)
	}
}

// recreateEntity restores a deleted row under its original id.
func recreateEntity(tx *gorm.DB, entityType string, dataJSON string) error {
	switch entityType {
	case models.EntityRecord:
		var rec models.Record
		if err := json.Unmarshal([]byte(dataJSON), &rec); err != nil {
			return err
		}
		return tx.Create(&rec).Error
	case models.EntityExpense:
		var exp models.Expense
		if err := json.Unmarshal([]byte(dataJSON), &exp); err != nil {
			return err
		}
		return tx.Create(&exp).Error
	default:
		return fmt.Errorf("%w: %s", ErrUnknownEntity, entityType)
	}
}

func restoreEntity(tx *gorm.DB, entityType string, entityID uint, dataJSON string) error {
	switch entityType {
	case models.EntityRecord:
		var rec models.Record
		if err := json.Unmarshal([]byte(dataJSON), &rec); err != nil {
			return err
		}
		return tx.Model(&models.Record{}).Where("id = ?", entityID).Updates(map[string]interface{}{
			"vehicle_number":   rec.VehicleNumber,
			"vehicle_type":     rec.VehicleType,
			"party_name":       rec.PartyName,
			"product":          rec.Product,
			"business_name":    rec.BusinessName,
			"first_weight":     rec.FirstWeight,
			"second_weight":    rec.SecondWeight,
			"net_weight":       rec.NetWeight,
			"total_price":      rec.TotalPrice,
			"first_weight_at":  rec.FirstWeightAt,
			"second_weight_at": rec.SecondWeightAt,
			"driver":           rec.Driver,
			"final_weight":     rec.FinalWeight,
		}).Error
	case models.EntityExpense:
		var exp models.Expense
		if err := json.Unmarshal([]byte(dataJSON), &exp); err != nil {
			return err
		}
		return tx.Model(&models.Expense{}).Where("id = ?", entityID).Updates(map[string]interface{}{
			"description": exp.Description,
			"amount":      exp.Amount,
			"category":    exp.Category,
			"date":        exp.Date,
		}).Error
	default:
		return fmt.Errorf("%w: %s", ErrUnknownEntity, entityType)
	}
}
