package reporting

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockroom/internal/domain/models"
)

const (
	trendLength        = 7
	dashboardRecentLen = 5
)

// Inventory exposes the signed-in user's collections.
type Inventory interface {
	Snapshot() ([]models.Product, []models.Activity)
	Categories() []models.Category
}

// Gate reports the signed-in user.
type Gate interface {
	UserID() (string, bool)
}

// SnapshotArchive stores and lists daily snapshots.
type SnapshotArchive interface {
	SaveSnapshot(ctx context.Context, s models.InventorySnapshot) error
	ListSnapshots(ctx context.Context, ownerID string, limit int) ([]models.InventorySnapshot, error)
}

// SnapshotExporter publishes a snapshot outside the archive.
type SnapshotExporter interface {
	AppendSnapshot(ctx context.Context, s models.InventorySnapshot) error
}

// Service computes dashboard figures, category statistics and snapshots.
// Archive and exporter are optional.
type Service struct {
	inventory Inventory
	gate      Gate
	archive   SnapshotArchive
	exporter  SnapshotExporter
	location  *time.Location
	now       func() time.Time
	logger    *zap.Logger
}

// NewService wires a new reporting service instance. A nil archive or
// exporter disables that sink.
func NewService(inventory Inventory, gate Gate, archive SnapshotArchive, exporter SnapshotExporter, location *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	return &Service{
		inventory: inventory,
		gate:      gate,
		archive:   archive,
		exporter:  exporter,
		location:  location,
		now:       time.Now,
		logger:    logger,
	}
}

// Dashboard summarises the current collections.
func (s *Service) Dashboard() models.Dashboard {
	products, activities := s.inventory.Snapshot()

	d := models.Dashboard{
		Products:   len(products),
		Categories: s.inventory.Categories(),
		Recent:     activities[:min(len(activities), dashboardRecentLen)],
	}
	for _, p := range products {
		d.TotalStock += p.Stock
		if p.Status == models.StatusWarning {
			d.Warning++
		}
	}
	return d
}

// Report returns category shares, valuation and the weekly snapshot trend.
// An unavailable archive yields an empty trend.
func (s *Service) Report(ctx context.Context) models.Report {
	products, _ := s.inventory.Snapshot()
	cost, retail := Valuation(products)

	report := models.Report{
		Shares:      CategoryShares(s.inventory.Categories(), products),
		CostValue:   cost,
		RetailValue: retail,
		Trend:       []models.InventorySnapshot{},
	}

	owner, ok := s.gate.UserID()
	if !ok || s.archive == nil {
		return report
	}
	trend, err := s.archive.ListSnapshots(ctx, owner, trendLength)
	if err != nil {
		s.logger.Warn("load snapshot trend failed", zap.Error(err))
		return report
	}
	report.Trend = trend
	return report
}

// CaptureSnapshot records today's totals in every configured sink. It
// returns nil without error when nobody is signed in.
func (s *Service) CaptureSnapshot(ctx context.Context) (*models.InventorySnapshot, error) {
	owner, ok := s.gate.UserID()
	if !ok {
		s.logger.Debug("snapshot skipped without session")
		return nil, nil
	}

	products, _ := s.inventory.Snapshot()
	snapshot := BuildSnapshot(owner, products, s.now().In(s.location))

	var errs []error
	if s.archive != nil {
		if err := s.archive.SaveSnapshot(ctx, snapshot); err != nil {
			errs = append(errs, fmt.Errorf("archive snapshot: %w", err))
		}
	}
	if s.exporter != nil {
		if err := s.exporter.AppendSnapshot(ctx, snapshot); err != nil {
			errs = append(errs, fmt.Errorf("export snapshot: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return &snapshot, err
	}

	s.logger.Info("inventory snapshot captured",
		zap.String("date", snapshot.Date.Format(time.DateOnly)),
		zap.Int("total_stock", snapshot.TotalStock),
	)
	return &snapshot, nil
}

// BuildSnapshot aggregates products into a snapshot dated at the start of
// now's day.
func BuildSnapshot(ownerID string, products []models.Product, now time.Time) models.InventorySnapshot {
	cost, retail := Valuation(products)
	s := models.InventorySnapshot{
		Date:        time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		OwnerID:     ownerID,
		Products:    len(products),
		CostValue:   cost,
		RetailValue: retail,
		CreatedAt:   now,
	}
	for _, p := range products {
		s.TotalStock += p.Stock
		switch models.DeriveStatus(p.Stock) {
		case models.StatusWarning:
			s.Warning++
		case models.StatusLow:
			s.Low++
		default:
			s.Normal++
		}
	}
	return s
}

// CategoryShares returns each category's share of the total stock in whole
// percent, largest first. Products with labels matching no category are
// left out. No stock yields no shares.
func CategoryShares(categories []models.Category, products []models.Product) []models.CategoryShare {
	total := 0
	byLabel := make(map[string]int)
	for _, p := range products {
		total += p.Stock
		byLabel[p.Category] += p.Stock
	}
	if total == 0 {
		return []models.CategoryShare{}
	}

	shares := make([]models.CategoryShare, 0, len(categories))
	for _, c := range categories {
		stock := byLabel[c.Name]
		shares = append(shares, models.CategoryShare{
			Label:   c.Name,
			Percent: int(math.Round(float64(stock) / float64(total) * 100)),
			Stock:   stock,
		})
	}
	slices.SortStableFunc(shares, func(a, b models.CategoryShare) int { return b.Percent - a.Percent })
	return shares
}

// Valuation returns the stock value at cost and at price.
func Valuation(products []models.Product) (cost, retail decimal.Decimal) {
	for _, p := range products {
		units := decimal.NewFromInt(int64(p.Stock))
		cost = cost.Add(p.Cost.Mul(units))
		retail = retail.Add(p.Price.Mul(units))
	}
	return cost, retail
}
