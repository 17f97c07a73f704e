package insights

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/stockroom/internal/domain/models"
	"github.com/mamadbah2/stockroom/pkg/metrics"
)

type stubGenerator struct {
	out     []string
	err     error
	summary string
	count   int
}

func (g *stubGenerator) GenerateInsights(_ context.Context, summary string, count int) ([]string, error) {
	g.summary, g.count = summary, count
	return g.out, g.err
}

var products = []models.Product{{Stock: 12}, {Stock: 30}, {Stock: 0}}

func TestSummary(t *testing.T) {
	assert.Equal(t, "Total Items: 3, Stock Values: 42", Summary(products))
	assert.Equal(t, "Total Items: 0, Stock Values: 0", Summary(nil))
}

func TestInsightsPassThroughAndTrim(t *testing.T) {
	gen := &stubGenerator{out: []string{"a", "b", "c", "d"}}
	svc := NewService(gen, nil, nil)

	got := svc.Insights(context.Background(), products)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, "Total Items: 3, Stock Values: 42", gen.summary)
	assert.Equal(t, 3, gen.count)
}

func TestInsightsFallback(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewInventoryMetrics(reg)

	tests := []struct {
		name string
		gen  Generator
	}{
		{name: "no generator", gen: nil},
		{name: "failure", gen: &stubGenerator{err: errors.New("quota exceeded")}},
		{name: "empty", gen: &stubGenerator{out: []string{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewService(tt.gen, m, nil).Insights(context.Background(), products)
			assert.Equal(t, Fallback, got)
			assert.Len(t, got, 3)
		})
	}

	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == "stockroom_insight_fallbacks_total" {
			assert.Equal(t, 3.0, mf.GetMetric()[0].GetCounter().GetValue())
			return
		}
	}
	t.Fatal("fallback counter not exported")
}

func TestFallbackIsNotShared(t *testing.T) {
	got := NewService(nil, nil, nil).Insights(context.Background(), nil)
	got[0] = "changed"
	assert.Equal(t, "Prioritize restocking low-inventory items.", Fallback[0])
}
