package inventory

import (
	"slices"
	"strings"

	"github.com/mamadbah2/stockroom/internal/domain/models"
)

// Filter narrows products by category label and a case-insensitive query
// over name and SKU, then orders them by stock when requested. The input is
// not modified.
func Filter(products []models.Product, f models.ProductFilter) []models.Product {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	matchAll := f.Category == "" || f.Category == models.AllCategoriesLabel

	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if !matchAll && p.Category != f.Category {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Name), query) &&
			!strings.Contains(strings.ToLower(p.SKU), query) {
			continue
		}
		out = append(out, p)
	}

	switch f.Sort {
	case models.SortAsc:
		slices.SortStableFunc(out, func(a, b models.Product) int { return a.Stock - b.Stock })
	case models.SortDesc:
		slices.SortStableFunc(out, func(a, b models.Product) int { return b.Stock - a.Stock })
	}
	return out
}
