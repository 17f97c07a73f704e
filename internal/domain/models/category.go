package models

// Category groups products by name. Count is never persisted; it is filled by
// CountProducts at read time.
type Category struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Icon         string `json:"icon"`
	ColorClass   string `json:"color_class"`
	BgColorClass string `json:"bg_color_class"`
	Count        int    `json:"count"`
}

const (
	DefaultCategoryIcon    = "category"
	DefaultCategoryColor   = "text-primary"
	DefaultCategoryBgColor = "bg-primary/5"
)

// CountProducts returns copies of categories with Count set to the number of
// products whose category label matches the category name.
func CountProducts(categories []Category, products []Product) []Category {
	counts := make(map[string]int, len(categories))
	for _, p := range products {
		counts[p.Category]++
	}

	out := make([]Category, len(categories))
	for i, c := range categories {
		c.Count = counts[c.Name]
		out[i] = c
	}
	return out
}

// DefaultCategories is the set seeded for a newly created account.
func DefaultCategories() []Category {
	return []Category{
		{Name: "Electronics", Icon: "laptop_mac", ColorClass: "text-blue-500", BgColorClass: "bg-blue-50"},
		{Name: "Apparel", Icon: "checkroom", ColorClass: "text-orange-500", BgColorClass: "bg-orange-50"},
		{Name: "Food & Beverage", Icon: "flatware", ColorClass: "text-green-500", BgColorClass: "bg-green-50"},
		{Name: "Hardware", Icon: "home_repair_service", ColorClass: "text-purple-500", BgColorClass: "bg-purple-50"},
		{Name: "Beauty & Care", Icon: "face_retouching_natural", ColorClass: "text-pink-500", BgColorClass: "bg-pink-50"},
		{Name: "Other", Icon: "more_horiz", ColorClass: "text-gray-500", BgColorClass: "bg-gray-50"},
	}
}
