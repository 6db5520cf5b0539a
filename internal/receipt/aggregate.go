package receipt

import "sort"

// SumTotals adds up the total amounts of already-fetched receipts.
// An empty slice sums to zero.
func SumTotals(receipts []*Receipt) int {
	total := 0
	for _, r := range receipts {
		total += r.TotalAmount
	}
	return total
}

// MainCategories returns the dominant item categories of one receipt:
// at most three names, ordered by descending occurrence count. Ties keep
// the order the categories first appeared in. Items without a category
// are not counted.
func MainCategories(receipt *Receipt) []string {
	counts := make(map[string]int)
	order := make([]string, 0)

	for _, item := range receipt.Items {
		if item.Category == "" {
			continue
		}
		if _, seen := counts[item.Category]; !seen {
			order = append(order, item.Category)
		}
		counts[item.Category]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > 3 {
		order = order[:3]
	}
	return order
}

// CategoryTotal is the spend attributed to one category
type CategoryTotal struct {
	Category string `json:"category"`
	Amount   int    `json:"amount"`
}

// CategoryTotals breaks down spending per item category across receipts.
// Items without a category are attributed to the fallback category.
// Results are ordered by descending amount.
func CategoryTotals(receipts []*Receipt) []CategoryTotal {
	amounts := make(map[string]int)
	order := make([]string, 0)

	for _, r := range receipts {
		for _, item := range r.Items {
			category := item.Category
			if category == "" {
				category = FallbackCategory
			}
			if _, seen := amounts[category]; !seen {
				order = append(order, category)
			}
			amounts[category] += item.TotalPrice
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return amounts[order[i]] > amounts[order[j]]
	})

	totals := make([]CategoryTotal, 0, len(order))
	for _, category := range order {
		totals = append(totals, CategoryTotal{Category: category, Amount: amounts[category]})
	}
	return totals
}
