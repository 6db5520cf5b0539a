package receipt

// FallbackCategory is assigned to items the extraction could not classify
const FallbackCategory = "その他"

// DefaultCategories is the fixed taxonomy seeded when the database is
// first used. Order is the display sort key and is stable.
var DefaultCategories = []Category{
	{Name: "食費", Icon: "🍽️", Color: "#FF6B6B", Order: 1},
	{Name: "日用品", Icon: "🧴", Color: "#4ECDC4", Order: 2},
	{Name: "交通費", Icon: "🚃", Color: "#45B7D1", Order: 3},
	{Name: "外食", Icon: "🍴", Color: "#F7DC6F", Order: 4},
	{Name: "娯楽", Icon: "🎮", Color: "#BB8FCE", Order: 5},
	{Name: "医療費", Icon: "🏥", Color: "#85C1E2", Order: 6},
	{Name: "衣服", Icon: "👕", Color: "#F8B739", Order: 7},
	{Name: FallbackCategory, Icon: "📦", Color: "#95A5A6", Order: 8},
}

// CategoryNames returns the taxonomy names in display order
func CategoryNames() []string {
	names := make([]string, len(DefaultCategories))
	for i, c := range DefaultCategories {
		names[i] = c.Name
	}
	return names
}

// CategoryByName looks up a category in the fixed taxonomy
func CategoryByName(name string) (Category, bool) {
	for _, c := range DefaultCategories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}
