package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventorySnapshot represents the aggregated daily inventory state archived
// by the scheduler.
type InventorySnapshot struct {
	Date        time.Time       `json:"date"`
	OwnerID     string          `json:"owner_id"`
	Products    int             `json:"products"`
	TotalStock  int             `json:"total_stock"`
	Warning     int             `json:"warning"`
	Low         int             `json:"low"`
	Normal      int             `json:"normal"`
	CostValue   decimal.Decimal `json:"cost_value"`
	RetailValue decimal.Decimal `json:"retail_value"`
	CreatedAt   time.Time       `json:"created_at"`
}

// CategoryShare is one slice of the per-category stock distribution.
type CategoryShare struct {
	Label   string `json:"label"`
	Percent int    `json:"percent"`
	Stock   int    `json:"stock"`
}

// Dashboard is the landing view aggregate.
type Dashboard struct {
	Products   int        `json:"products"`
	TotalStock int        `json:"total_stock"`
	Warning    int        `json:"warning"`
	Categories []Category `json:"categories"`
	Recent     []Activity `json:"recent"`
}

// Report is the reports view aggregate.
type Report struct {
	Shares      []CategoryShare     `json:"shares"`
	CostValue   decimal.Decimal     `json:"cost_value"`
	RetailValue decimal.Decimal     `json:"retail_value"`
	Trend       []InventorySnapshot `json:"trend"`
}
