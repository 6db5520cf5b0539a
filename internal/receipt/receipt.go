package receipt

import "time"

// Receipt represents one shopping transaction
type Receipt struct {
	ID          string        `json:"id"`
	StoreName   string        `json:"store_name"`
	Date        time.Time     `json:"date"`
	Items       []ReceiptItem `json:"items"`
	TotalAmount int           `json:"total_amount"` // Amount in yen, always the sum of the items
	ImagePath   string        `json:"image_path,omitempty"`
	Memo        string        `json:"memo,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// ReceiptItem represents one purchased line on a receipt
type ReceiptItem struct {
	ID         string `json:"id"`
	ReceiptID  string `json:"receipt_id,omitempty"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	UnitPrice  int    `json:"unit_price"`
	TotalPrice int    `json:"total_price"`
	Category   string `json:"category,omitempty"`
}

// Category is one entry of the fixed classification taxonomy
type Category struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
	Order int    `json:"order"`
}

// Budget is a monthly spending limit for one category
type Budget struct {
	YearMonth string `json:"year_month"` // YYYY-MM
	Category  string `json:"category"`
	Amount    int    `json:"amount"`
}

// Setting is a persisted key/value application setting
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RecomputeTotal updates the item's total after a quantity or unit price
// change. A direct edit of TotalPrice is left alone.
func (i *ReceiptItem) RecomputeTotal() {
	i.TotalPrice = i.Quantity * i.UnitPrice
}

// CalculatedTotal sums the item totals; this value, not whatever the
// extraction suggested, becomes TotalAmount at save time.
func CalculatedTotal(items []ReceiptItem) int {
	total := 0
	for _, item := range items {
		total += item.TotalPrice
	}
	return total
}
