// Package activity derives audit entries from product saves.
package activity

import (
	"fmt"

	"github.com/mamadbah2/stockroom/internal/domain/models"
)

const (
	TitleCreated     = "New stock in"
	TitleIncreased   = "Stock adjustment"
	TitleDecreased   = "Stock out"
	TitleInfoUpdated = "Info update"
)

// Record returns the single activity a save from prev to next qualifies for,
// or nil when nothing audit-worthy changed. prev is nil for new products.
// A stock change wins over a name or price change.
func Record(prev *models.Product, next models.Product) *models.NewActivity {
	if prev == nil {
		return &models.NewActivity{
			Kind:        models.ActivityInbound,
			Title:       TitleCreated,
			Description: fmt.Sprintf("%s - %d units", next.Name, next.Stock),
		}
	}

	if delta := next.Stock - prev.Stock; delta != 0 {
		if delta > 0 {
			return &models.NewActivity{
				Kind:        models.ActivityInbound,
				Title:       TitleIncreased,
				Description: fmt.Sprintf("%s increased by %d units", next.Name, delta),
			}
		}
		return &models.NewActivity{
			Kind:        models.ActivityOutbound,
			Title:       TitleDecreased,
			Description: fmt.Sprintf("%s decreased by %d units", next.Name, -delta),
		}
	}

	if next.Name != prev.Name || !next.Price.Equal(prev.Price) {
		return &models.NewActivity{
			Kind:        models.ActivityTransfer,
			Title:       TitleInfoUpdated,
			Description: fmt.Sprintf("%s basic information updated", next.Name),
		}
	}

	return nil
}
