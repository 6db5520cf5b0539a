package receipt

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltDB", func() {
	var db *BoltDB

	newReceipt := func(id string, date time.Time, createdAt time.Time, items ...ReceiptItem) *Receipt {
		return &Receipt{
			ID:          id,
			StoreName:   "スーパーマーケット",
			Date:        date,
			Items:       items,
			TotalAmount: CalculatedTotal(items),
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
		}
	}

	BeforeEach(func() {
		dbPath := filepath.Join(GinkgoT().TempDir(), "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("CreateReceipt and GetReceipt", func() {
		It("round-trips a receipt with its items", func() {
			date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
			items := []ReceiptItem{
				{ID: "i-1", Name: "牛乳", Quantity: 1, UnitPrice: 298, TotalPrice: 298, Category: "食費"},
				{ID: "i-2", Name: "洗剤", Quantity: 2, UnitPrice: 200, TotalPrice: 400, Category: "日用品"},
			}
			Expect(db.CreateReceipt(newReceipt("r-1", date, date, items...))).To(Succeed())

			saved, err := db.GetReceipt("r-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.StoreName).To(Equal("スーパーマーケット"))
			Expect(saved.TotalAmount).To(Equal(698))
			Expect(saved.Items).To(HaveLen(2))
			Expect(saved.Items[0].Name).To(Equal("牛乳"))
			Expect(saved.Items[1].ReceiptID).To(Equal("r-1"))
		})

		It("returns an error for an unknown id", func() {
			_, err := db.GetReceipt("nope")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ReceiptsByDateRange", func() {
		BeforeEach(func() {
			for day := 10; day <= 14; day += 2 {
				date := time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
				r := newReceipt("r-"+date.Format("02"), date, date,
					ReceiptItem{ID: "i", Name: "x", Quantity: 1, UnitPrice: 100, TotalPrice: 100})
				Expect(db.CreateReceipt(r)).To(Succeed())
			}
		})

		It("is inclusive on both bounds", func() {
			receipts, err := db.ReceiptsByDateRange(
				time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
				time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC),
			)
			Expect(err).NotTo(HaveOccurred())
			Expect(receipts).To(HaveLen(3))
		})

		It("excludes receipts outside the window", func() {
			receipts, err := db.ReceiptsByDateRange(
				time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
				time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC),
			)
			Expect(err).NotTo(HaveOccurred())
			Expect(receipts).To(HaveLen(1))
			Expect(receipts[0].ID).To(Equal("r-12"))
		})

		It("returns an empty slice for an empty window", func() {
			receipts, err := db.ReceiptsByDateRange(
				time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC),
			)
			Expect(err).NotTo(HaveOccurred())
			Expect(receipts).To(BeEmpty())
		})
	})

	Describe("RecentReceipts", func() {
		BeforeEach(func() {
			base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
			for i := 1; i <= 5; i++ {
				date := time.Date(2024, 1, i, 0, 0, 0, 0, time.UTC)
				r := newReceipt(
					"r-"+date.Format("02"), date, base.AddDate(0, 0, i),
					ReceiptItem{ID: "i", Name: "x", Quantity: 1, UnitPrice: 100, TotalPrice: 100})
				Expect(db.CreateReceipt(r)).To(Succeed())
			}
		})

		It("orders by creation time, newest first", func() {
			receipts, err := db.RecentReceipts(3)
			Expect(err).NotTo(HaveOccurred())
			Expect(receipts).To(HaveLen(3))
			Expect(receipts[0].ID).To(Equal("r-05"))
			Expect(receipts[1].ID).To(Equal("r-04"))
			Expect(receipts[2].ID).To(Equal("r-03"))
		})

		It("returns everything when the limit exceeds the count", func() {
			receipts, err := db.RecentReceipts(50)
			Expect(err).NotTo(HaveOccurred())
			Expect(receipts).To(HaveLen(5))
		})
	})

	Describe("DeleteReceipt", func() {
		BeforeEach(func() {
			date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
			Expect(db.CreateReceipt(newReceipt("r-1", date, date,
				ReceiptItem{ID: "i-1", Name: "牛乳", Quantity: 1, UnitPrice: 298, TotalPrice: 298},
			))).To(Succeed())
			Expect(db.CreateReceipt(newReceipt("r-2", date, date,
				ReceiptItem{ID: "i-1", Name: "パン", Quantity: 1, UnitPrice: 150, TotalPrice: 150},
			))).To(Succeed())
		})

		It("removes the receipt and its items, leaving others intact", func() {
			Expect(db.DeleteReceipt("r-1")).To(Succeed())

			_, err := db.GetReceipt("r-1")
			Expect(err).To(HaveOccurred())

			other, err := db.GetReceipt("r-2")
			Expect(err).NotTo(HaveOccurred())
			Expect(other.Items).To(HaveLen(1))
		})
	})

	Describe("InitializeCategories", func() {
		It("seeds the fixed set into an empty database", func() {
			Expect(db.InitializeCategories()).To(Succeed())

			categories, err := db.ListCategories()
			Expect(err).NotTo(HaveOccurred())
			Expect(categories).To(HaveLen(8))
			Expect(categories[0].Name).To(Equal("食費"))
			Expect(categories[7].Name).To(Equal("その他"))
		})

		It("is a no-op when categories already exist", func() {
			Expect(db.InitializeCategories()).To(Succeed())
			Expect(db.InitializeCategories()).To(Succeed())

			categories, err := db.ListCategories()
			Expect(err).NotTo(HaveOccurred())
			Expect(categories).To(HaveLen(8))
		})

		It("orders categories by their sort key", func() {
			Expect(db.InitializeCategories()).To(Succeed())

			categories, err := db.ListCategories()
			Expect(err).NotTo(HaveOccurred())
			for i, c := range categories {
				Expect(c.Order).To(Equal(i + 1))
			}
		})
	})

	Describe("budgets", func() {
		It("upserts on month and category", func() {
			Expect(db.SaveBudget(&Budget{YearMonth: "2024-01", Category: "食費", Amount: 30000})).To(Succeed())
			Expect(db.SaveBudget(&Budget{YearMonth: "2024-01", Category: "食費", Amount: 35000})).To(Succeed())
			Expect(db.SaveBudget(&Budget{YearMonth: "2024-02", Category: "食費", Amount: 40000})).To(Succeed())

			budgets, err := db.BudgetsByMonth("2024-01")
			Expect(err).NotTo(HaveOccurred())
			Expect(budgets).To(HaveLen(1))
			Expect(budgets[0].Amount).To(Equal(35000))
		})
	})

	Describe("settings", func() {
		It("round-trips a value", func() {
			Expect(db.PutSetting("notion_api_key", "secret")).To(Succeed())

			value, err := db.GetSetting("notion_api_key")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("secret"))
		})

		It("returns an empty string for an absent key", func() {
			value, err := db.GetSetting("missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(BeEmpty())
		})
	})
})
