// Package insights produces short recommendations about the inventory. The
// panel it feeds is never empty: any generator failure yields Fallback.
package insights

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/stockroom/internal/domain/models"
	"github.com/mamadbah2/stockroom/pkg/metrics"
)

const insightCount = 3

// Fallback is returned whenever the generator cannot answer.
var Fallback = []string{
	"Prioritize restocking low-inventory items.",
	"Monitor stock levels of best sellers daily.",
	"Watch for seasonal demand swings.",
}

// Generator turns an inventory summary into recommendations.
type Generator interface {
	GenerateInsights(ctx context.Context, summary string, count int) ([]string, error)
}

// Service wraps a Generator with the mandatory fallback.
type Service struct {
	generator Generator
	metrics   *metrics.InventoryMetrics
	logger    *zap.Logger
}

// NewService wires the summarizer. A nil generator always yields Fallback.
func NewService(generator Generator, m *metrics.InventoryMetrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{generator: generator, metrics: m, logger: logger}
}

// Summary renders the one-line inventory description sent to the generator.
func Summary(products []models.Product) string {
	total := 0
	for _, p := range products {
		total += p.Stock
	}
	return fmt.Sprintf("Total Items: %d, Stock Values: %d", len(products), total)
}

// Insights returns up to three recommendations for products.
func (s *Service) Insights(ctx context.Context, products []models.Product) []string {
	if s.generator == nil {
		return s.fallback("generator not configured", nil)
	}

	got, err := s.generator.GenerateInsights(ctx, Summary(products), insightCount)
	if err != nil {
		return s.fallback("insight generation failed", err)
	}
	if len(got) == 0 {
		return s.fallback("insight generation returned nothing", nil)
	}
	if len(got) > insightCount {
		got = got[:insightCount]
	}
	return got
}

func (s *Service) fallback(reason string, err error) []string {
	s.metrics.IncInsightFallback()
	if err != nil {
		s.logger.Warn(reason, zap.Error(err))
	} else {
		s.logger.Debug(reason)
	}
	return append([]string(nil), Fallback...)
}
