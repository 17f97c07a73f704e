package models

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// StockStatus is the tier derived from a product's stock level.
type StockStatus string

const (
	StatusWarning StockStatus = "warning"
	StatusLow     StockStatus = "low"
	StatusNormal  StockStatus = "normal"
)

// AllCategoriesLabel is the catch-all label used by listings; it also covers
// products whose category name no longer matches any category.
const AllCategoriesLabel = "All Categories"

// Product represents one inventory item.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	SKU      string          `json:"sku"`
	Cost     decimal.Decimal `json:"cost"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	Category string          `json:"category"` // label, not a foreign key
	Image    string          `json:"image"`
	Spec     string          `json:"spec,omitempty"`
	Status   StockStatus     `json:"status"`
}

// AssignDefaults fills the client-side id and SKU of a new product from a
// timestamp when they were not supplied.
func (p *Product) AssignDefaults(now time.Time) {
	stamp := strconv.FormatInt(now.UnixMilli(), 10)
	if p.ID == "" {
		p.ID = "p-" + stamp
	}
	if p.SKU == "" {
		p.SKU = "SKU-" + stamp
	}
}

// Finalize clamps stock at zero and recomputes the status tier. Any status
// supplied by the caller is discarded.
func (p Product) Finalize() Product {
	if p.Stock < 0 {
		p.Stock = 0
	}
	p.Status = DeriveStatus(p.Stock)
	return p
}

// ProductFilter narrows the product list view.
type ProductFilter struct {
	Category string
	Query    string
	Sort     SortOrder
}

// SortOrder orders the product list by stock.
type SortOrder string

const (
	SortNone SortOrder = ""
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)
