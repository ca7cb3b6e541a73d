package sheets

import (
	"context"
	"fmt"
	"time"

	"weighbridge-backend/internal/config"
	"weighbridge-backend/internal/models"
	"weighbridge-backend/internal/weighing"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// DefaultLedgerRange is where completed weighings are appended.
const DefaultLedgerRange = "Weighings!A:N"

// GoogleSheetRepository mirrors completed weighings into a spreadsheet ledger.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	ledgerRange   string
	location      *time.Location
	logger        *zap.Logger
}

// NewGoogleSheetRepository authenticates with a service-account credentials file.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, loc *time.Location, logger *zap.Logger) (*GoogleSheetRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetRepository{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		ledgerRange:   DefaultLedgerRange,
		location:      loc,
		logger:        logger,
	}, nil
}

// WriteRow appends the provided values to the supplied sheet range.
func (r *GoogleSheetRepository) WriteRow(ctx context.Context, sheetRange string, values []interface{}) error {
	if sheetRange == "" {
		return fmt.Errorf("sheetRange must not be empty")
	}

	payload := &sheetsapi.ValueRange{Values: [][]interface{}{values}}

	call := r.service.Spreadsheets.Values.Append(r.spreadsheetID, sheetRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append row into range %s: %w", sheetRange, err)
	}

	r.logger.Debug("row appended to sheet", zap.String("range", sheetRange))
	return nil
}

// AppendRecord writes one completed weighing to the ledger.
func (r *GoogleSheetRepository) AppendRecord(ctx context.Context, rec models.Record) error {
	return r.WriteRow(ctx, r.ledgerRange, RecordRow(rec, r.location))
}

// RecordRow is the ledger layout of a weighing, matching the xlsx export columns.
func RecordRow(rec models.Record, loc *time.Location) []interface{} {
	const layout = "2006-01-02 15:04"

	var second, net interface{} = "", ""
	munds, completed := "", ""
	if rec.SecondWeight != nil {
		second = *rec.SecondWeight
	}
	if rec.NetWeight != nil {
		net = *rec.NetWeight
		munds = weighing.ToMunds(*rec.NetWeight).String()
	}
	if rec.SecondWeightAt != nil {
		completed = rec.SecondWeightAt.In(loc).Format(layout)
	}

	return []interface{}{
		rec.UUID,
		rec.VehicleNumber,
		rec.VehicleType,
		rec.PartyName,
		rec.Product,
		rec.BusinessName,
		rec.FirstWeight,
		second,
		net,
		munds,
		rec.TotalPrice,
		rec.FirstWeightAt.In(loc).Format(layout),
		completed,
		rec.FinalWeight,
	}
}
