package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		stock int
		want  StockStatus
	}{
		{0, StatusWarning},
		{5, StatusWarning},
		{6, StatusLow},
		{20, StatusLow},
		{21, StatusNormal},
		{500, StatusNormal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveStatus(tt.stock), "stock=%d", tt.stock)
	}
}

func TestDeriveStatusCoversEveryLevel(t *testing.T) {
	for stock := 0; stock <= 100; stock++ {
		got := DeriveStatus(stock)
		switch {
		case stock <= 5:
			assert.Equal(t, StatusWarning, got)
		case stock <= 20:
			assert.Equal(t, StatusLow, got)
		default:
			assert.Equal(t, StatusNormal, got)
		}
	}
}

func TestApplyOutboundNeverNegative(t *testing.T) {
	p := Product{ID: "p1", Stock: 7, Status: StatusLow}

	for qty := 0; qty <= 20; qty++ {
		next := ApplyOutbound(p, qty)
		assert.GreaterOrEqual(t, next.Stock, 0)
		assert.Equal(t, DeriveStatus(next.Stock), next.Status)
	}

	next := ApplyOutbound(p, 3)
	assert.Equal(t, 4, next.Stock)
	assert.Equal(t, StatusWarning, next.Status)
	assert.Equal(t, 7, p.Stock, "input must not be mutated")
}

func TestClampOutboundQuantity(t *testing.T) {
	assert.Equal(t, 1, ClampOutboundQuantity(10, 0))
	assert.Equal(t, 4, ClampOutboundQuantity(10, 4))
	assert.Equal(t, 10, ClampOutboundQuantity(10, 99))
	assert.Equal(t, 0, ClampOutboundQuantity(0, 3))
}

func TestReconcile(t *testing.T) {
	p := Product{ID: "p1", Stock: 12}

	surplus := Reconcile(p, 15)
	assert.Equal(t, 3, surplus.Delta)
	assert.Equal(t, CountSurplus, surplus.Label)

	shortage := Reconcile(p, 10)
	assert.Equal(t, -2, shortage.Delta)
	assert.Equal(t, CountShortage, shortage.Label)

	match := Reconcile(p, 12)
	assert.Equal(t, 0, match.Delta)
	assert.Equal(t, CountMatch, match.Label)
}

func TestProductFinalizeDiscardsSuppliedStatus(t *testing.T) {
	p := Product{Stock: 3, Status: StatusNormal}.Finalize()
	assert.Equal(t, StatusWarning, p.Status)

	neg := Product{Stock: -4}.Finalize()
	assert.Equal(t, 0, neg.Stock)
}

func TestAssignDefaults(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	p := Product{Name: "Watch"}
	p.AssignDefaults(now)
	assert.Equal(t, "p-1700000000123", p.ID)
	assert.Equal(t, "SKU-1700000000123", p.SKU)

	kept := Product{ID: "p9", SKU: "SW-1"}
	kept.AssignDefaults(now)
	assert.Equal(t, "p9", kept.ID)
	assert.Equal(t, "SW-1", kept.SKU)
}

func TestCountProducts(t *testing.T) {
	categories := []Category{{ID: "c1", Name: "Electronics"}, {ID: "c2", Name: "Apparel"}}
	products := []Product{
		{ID: "p1", Category: "Electronics", Price: decimal.NewFromInt(1)},
		{ID: "p2", Category: "Electronics"},
		{ID: "p3", Category: "Retired"},
	}

	counted := CountProducts(categories, products)
	assert.Equal(t, 2, counted[0].Count)
	assert.Equal(t, 0, counted[1].Count)
	assert.Equal(t, 0, categories[0].Count, "input must not be mutated")
}
