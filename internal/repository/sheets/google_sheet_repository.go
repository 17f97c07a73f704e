package sheets

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/stockroom/internal/config"
	"github.com/mamadbah2/stockroom/internal/domain/models"
)

const snapshotRange = "Snapshots!A:J"

// GoogleSheetRepository appends inventory snapshots to a spreadsheet using
// the official Google Sheets API.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewGoogleSheetRepository builds a Google Sheets backed repository instance.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetRepository{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
	}, nil
}

// AppendSnapshot writes s as one row of the snapshot sheet.
func (r *GoogleSheetRepository) AppendSnapshot(ctx context.Context, s models.InventorySnapshot) error {
	return r.writeRow(ctx, snapshotRange, SnapshotRow(s))
}

// SnapshotRow lays out a snapshot in sheet column order.
func SnapshotRow(s models.InventorySnapshot) []interface{} {
	return []interface{}{
		s.Date.Format(time.DateOnly),
		s.OwnerID,
		s.Products,
		s.TotalStock,
		s.Warning,
		s.Low,
		s.Normal,
		s.CostValue.StringFixed(2),
		s.RetailValue.StringFixed(2),
		s.CreatedAt.Format(time.RFC3339),
	}
}

func (r *GoogleSheetRepository) writeRow(ctx context.Context, sheetRange string, values []interface{}) error {
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
