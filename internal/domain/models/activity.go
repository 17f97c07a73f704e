package models

import "time"

// ActivityKind enumerates audit entry categories.
type ActivityKind string

const (
	ActivityInbound  ActivityKind = "inbound"
	ActivityOutbound ActivityKind = "outbound"
	ActivityTransfer ActivityKind = "transfer"
)

// Activity is an append-only audit entry. Time is the human-relative form of
// CreatedAt and is computed whenever the entry is read.
type Activity struct {
	ID          string       `json:"id"`
	Kind        ActivityKind `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Icon        string       `json:"icon"`
	ColorClass  string       `json:"color_class"`
	Time        string       `json:"time"`
	CreatedAt   time.Time    `json:"created_at"`
}

// NewActivity describes an entry to append; presentation fields are derived
// from the kind by the storage collaborator.
type NewActivity struct {
	Kind        ActivityKind
	Title       string
	Description string
}

// Presentation returns the icon and color token for an activity kind.
func (k ActivityKind) Presentation() (icon, colorClass string) {
	switch k {
	case ActivityInbound:
		return "add_shopping_cart", "bg-blue-50 text-blue-500"
	case ActivityOutbound:
		return "local_shipping", "bg-orange-50 text-orange-500"
	default:
		return "warehouse", "bg-purple-50 text-purple-500"
	}
}
