package models

const (
	warningThreshold = 5
	lowThreshold     = 20
)

// DeriveStatus maps a stock level to its status tier.
func DeriveStatus(stock int) StockStatus {
	switch {
	case stock <= warningThreshold:
		return StatusWarning
	case stock <= lowThreshold:
		return StatusLow
	default:
		return StatusNormal
	}
}

// ClampOutboundQuantity bounds a requested removal to [1, stock], as the
// quantity stepper does. A product without stock yields 0.
func ClampOutboundQuantity(stock, requested int) int {
	if stock <= 0 {
		return 0
	}
	if requested < 1 {
		return 1
	}
	if requested > stock {
		return stock
	}
	return requested
}

// ApplyOutbound removes qty units from the product. Stock never drops below
// zero and the status tier is recomputed.
func ApplyOutbound(p Product, qty int) Product {
	if qty < 0 {
		qty = 0
	}
	next := p
	next.Stock = max(0, p.Stock-qty)
	next.Status = DeriveStatus(next.Stock)
	return next
}

// CountLabel qualifies the difference between observed and recorded stock.
type CountLabel string

const (
	CountMatch    CountLabel = "match"
	CountSurplus  CountLabel = "surplus"
	CountShortage CountLabel = "shortage"
)

// Reconciliation is the outcome of comparing a physical count with the
// recorded stock. It is a report only; nothing is written.
type Reconciliation struct {
	ProductID string     `json:"product_id"`
	Recorded  int        `json:"recorded"`
	Observed  int        `json:"observed"`
	Delta     int        `json:"delta"`
	Label     CountLabel `json:"label"`
}

// Reconcile compares an observed count against the product's recorded stock.
func Reconcile(p Product, observed int) Reconciliation {
	r := Reconciliation{
		ProductID: p.ID,
		Recorded:  p.Stock,
		Observed:  observed,
		Delta:     observed - p.Stock,
		Label:     CountMatch,
	}
	switch {
	case r.Delta > 0:
		r.Label = CountSurplus
	case r.Delta < 0:
		r.Label = CountShortage
	}
	return r
}
