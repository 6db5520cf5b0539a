package receipt

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SumTotals", func() {
	It("returns zero for no receipts", func() {
		Expect(SumTotals(nil)).To(Equal(0))
		Expect(SumTotals([]*Receipt{})).To(Equal(0))
	})

	It("adds up the receipt totals", func() {
		receipts := []*Receipt{
			{TotalAmount: 1200},
			{TotalAmount: 350},
			{TotalAmount: 0},
		}
		Expect(SumTotals(receipts)).To(Equal(1550))
	})
})

var _ = Describe("MainCategories", func() {
	itemsWithCategories := func(categories ...string) []ReceiptItem {
		items := make([]ReceiptItem, len(categories))
		for i, c := range categories {
			items[i] = ReceiptItem{Name: "item", Category: c}
		}
		return items
	}

	It("orders categories by descending occurrence count", func() {
		r := &Receipt{Items: itemsWithCategories("食費", "食費", "日用品", "交通費", "食費")}
		Expect(MainCategories(r)).To(Equal([]string{"食費", "日用品", "交通費"}))
	})

	It("breaks count ties by first appearance", func() {
		r := &Receipt{Items: itemsWithCategories("交通費", "日用品", "交通費", "日用品")}
		Expect(MainCategories(r)).To(Equal([]string{"交通費", "日用品"}))
	})

	It("returns at most three categories", func() {
		r := &Receipt{Items: itemsWithCategories("食費", "日用品", "交通費", "外食", "娯楽")}
		Expect(MainCategories(r)).To(HaveLen(3))
	})

	It("skips items without a category", func() {
		r := &Receipt{Items: []ReceiptItem{
			{Name: "a", Category: "食費"},
			{Name: "b"},
			{Name: "c"},
		}}
		Expect(MainCategories(r)).To(Equal([]string{"食費"}))
	})

	It("returns an empty result when no item has a category", func() {
		r := &Receipt{Items: itemsWithCategories("", "", "")}
		Expect(MainCategories(r)).To(BeEmpty())
	})
})

var _ = Describe("CategoryTotals", func() {
	It("sums item totals per category, largest first", func() {
		receipts := []*Receipt{
			{Items: []ReceiptItem{
				{Name: "牛乳", TotalPrice: 298, Category: "食費"},
				{Name: "洗剤", TotalPrice: 400, Category: "日用品"},
			}},
			{Items: []ReceiptItem{
				{Name: "パン", TotalPrice: 150, Category: "食費"},
			}},
		}
		Expect(CategoryTotals(receipts)).To(Equal([]CategoryTotal{
			{Category: "食費", Amount: 448},
			{Category: "日用品", Amount: 400},
		}))
	})

	It("attributes uncategorized items to the fallback category", func() {
		receipts := []*Receipt{
			{Items: []ReceiptItem{{Name: "謎の品", TotalPrice: 500}}},
		}
		Expect(CategoryTotals(receipts)).To(Equal([]CategoryTotal{
			{Category: FallbackCategory, Amount: 500},
		}))
	})

	It("returns an empty result for no receipts", func() {
		Expect(CategoryTotals(nil)).To(BeEmpty())
	})
})

var _ = Describe("ReceiptItem", func() {
	It("recomputes the total from quantity and unit price", func() {
		item := ReceiptItem{Quantity: 3, UnitPrice: 120, TotalPrice: 1}
		item.RecomputeTotal()
		Expect(item.TotalPrice).To(Equal(360))
	})
})
