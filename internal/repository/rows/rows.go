// Package rows translates between the hosted backend's table rows and the
// domain records used by the rest of the application.
package rows

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/stockroom/internal/domain/models"
)

const (
	TableProducts   = "products"
	TableCategories = "categories"
	TableActivities = "activities"
)

// MappingError signals a structurally malformed row.
type MappingError struct {
	Table string
	Field string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("map %s row: missing or invalid field %q", e.Table, e.Field)
}

// ProductRow mirrors the products table.
type ProductRow struct {
	ID           string          `json:"id,omitempty"`
	Name         string          `json:"name"`
	SKU          string          `json:"sku"`
	Cost         decimal.Decimal `json:"cost"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock"`
	CategoryID   *string         `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Image        *string         `json:"image"`
	Spec         *string         `json:"spec"`
	Status       string          `json:"status"`
	UserID       string          `json:"user_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at,omitzero"`
	UpdatedAt    time.Time       `json:"updated_at,omitzero"`
}

// CategoryRow mirrors the categories table.
type CategoryRow struct {
	ID           string    `json:"id,omitempty"`
	Name         string    `json:"name"`
	Icon         string    `json:"icon"`
	ColorClass   string    `json:"color_class"`
	BgColorClass string    `json:"bg_color_class"`
	UserID       string    `json:"user_id,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitzero"`
}

// ActivityRow mirrors the activities table.
type ActivityRow struct {
	ID          string    `json:"id,omitempty"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	ColorClass  string    `json:"color_class"`
	UserID      string    `json:"user_id,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
}

// ToProduct maps a products row into a domain product.
func ToProduct(row ProductRow) (models.Product, error) {
	if row.ID == "" {
		return models.Product{}, &MappingError{Table: TableProducts, Field: "id"}
	}
	if row.Cost.IsNegative() {
		return models.Product{}, &MappingError{Table: TableProducts, Field: "cost"}
	}
	if row.Price.IsNegative() {
		return models.Product{}, &MappingError{Table: TableProducts, Field: "price"}
	}

	return models.Product{
		ID:       row.ID,
		Name:     row.Name,
		SKU:      row.SKU,
		Cost:     row.Cost,
		Price:    row.Price,
		Stock:    row.Stock,
		Category: row.CategoryName,
		Image:    deref(row.Image),
		Spec:     deref(row.Spec),
		Status:   models.StockStatus(row.Status),
	}, nil
}

// FromProduct maps a domain product into a products row. categoryID is the
// resolved id of the category label, nil when none matched.
func FromProduct(p models.Product, ownerID string, categoryID *string) ProductRow {
	image := p.Image
	spec := p.Spec
	return ProductRow{
		ID:           p.ID,
		Name:         p.Name,
		SKU:          p.SKU,
		Cost:         p.Cost,
		Price:        p.Price,
		Stock:        p.Stock,
		CategoryID:   categoryID,
		CategoryName: p.Category,
		Image:        &image,
		Spec:         &spec,
		Status:       string(p.Status),
		UserID:       ownerID,
	}
}

// ToCategory maps a categories row into a domain category. Count is left at
// zero.
func ToCategory(row CategoryRow) (models.Category, error) {
	if row.ID == "" {
		return models.Category{}, &MappingError{Table: TableCategories, Field: "id"}
	}
	return models.Category{
		ID:           row.ID,
		Name:         row.Name,
		Icon:         row.Icon,
		ColorClass:   row.ColorClass,
		BgColorClass: row.BgColorClass,
	}, nil
}

// FromCategory maps a domain category into a categories row.
func FromCategory(c models.Category, ownerID string) CategoryRow {
	return CategoryRow{
		ID:           c.ID,
		Name:         c.Name,
		Icon:         c.Icon,
		ColorClass:   c.ColorClass,
		BgColorClass: c.BgColorClass,
		UserID:       ownerID,
	}
}

// ToActivity maps an activities row into a domain activity, computing the
// relative time against now.
func ToActivity(row ActivityRow, now time.Time) (models.Activity, error) {
	if row.ID == "" {
		return models.Activity{}, &MappingError{Table: TableActivities, Field: "id"}
	}
	if row.CreatedAt.IsZero() {
		return models.Activity{}, &MappingError{Table: TableActivities, Field: "created_at"}
	}
	kind, ok := kindFromWire(row.Type)
	if !ok {
		return models.Activity{}, &MappingError{Table: TableActivities, Field: "type"}
	}

	return models.Activity{
		ID:          row.ID,
		Kind:        kind,
		Title:       row.Title,
		Description: row.Description,
		Icon:        row.Icon,
		ColorClass:  row.ColorClass,
		Time:        FormatTimeAgo(row.CreatedAt, now),
		CreatedAt:   row.CreatedAt,
	}, nil
}

// FromNewActivity builds the row inserted for a new activity.
func FromNewActivity(a models.NewActivity, ownerID string) ActivityRow {
	icon, color := a.Kind.Presentation()
	return ActivityRow{
		Type:        KindToWire(a.Kind),
		Title:       a.Title,
		Description: a.Description,
		Icon:        icon,
		ColorClass:  color,
		UserID:      ownerID,
	}
}

// KindToWire returns the stored type code of an activity kind.
func KindToWire(k models.ActivityKind) string {
	switch k {
	case models.ActivityInbound:
		return "in"
	case models.ActivityOutbound:
		return "out"
	default:
		return "move"
	}
}

func kindFromWire(v string) (models.ActivityKind, bool) {
	switch v {
	case "in":
		return models.ActivityInbound, true
	case "out":
		return models.ActivityOutbound, true
	case "move":
		return models.ActivityTransfer, true
	default:
		return "", false
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ErrNoRows is returned when a write matched no row.
var ErrNoRows = errors.New("no rows matched")
