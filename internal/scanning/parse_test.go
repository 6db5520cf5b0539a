package scanning

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestScanning(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Scanning Suite")
}

var _ = Describe("parseAnalyzedReceipt", func() {
	var (
		responseText string
		now          time.Time
		analyzed     *AnalyzedReceipt
		err          error
	)

	BeforeEach(func() {
		now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	})

	JustBeforeEach(func() {
		analyzed, err = parseAnalyzedReceipt(responseText, now)
	})

	When("parsing a complete response", func() {
		BeforeEach(func() {
			responseText = `{
				"storeName": "スーパーマーケット",
				"date": "2024-01-15",
				"items": [
					{"name": "牛乳", "quantity": 2, "unitPrice": 298, "totalPrice": 596, "category": "食費"}
				],
				"totalAmount": 596,
				"confidence": 0.95
			}`
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should parse the store name", func() {
			Expect(analyzed.StoreName).To(Equal("スーパーマーケット"))
		})

		It("should parse the date", func() {
			Expect(analyzed.Date).To(Equal("2024-01-15"))
		})

		It("should parse the items", func() {
			Expect(analyzed.Items).To(HaveLen(1))
			Expect(analyzed.Items[0]).To(Equal(AnalyzedItem{
				Name:       "牛乳",
				Quantity:   2,
				UnitPrice:  298,
				TotalPrice: 596,
				Category:   "食費",
			}))
		})

		It("should parse the total and confidence", func() {
			Expect(analyzed.TotalAmount).To(Equal(596))
			Expect(analyzed.Confidence).To(Equal(0.95))
		})
	})

	When("the JSON is wrapped in a fenced code block", func() {
		BeforeEach(func() {
			responseText = "Here you go:\n```json\n{\"storeName\": \"Test\", \"date\": \"2024-01-15\", \"items\": [], \"totalAmount\": 100, \"confidence\": 0.8}\n```\nLet me know!"
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should extract the fenced object", func() {
			Expect(analyzed.StoreName).To(Equal("Test"))
			Expect(analyzed.TotalAmount).To(Equal(100))
		})
	})

	When("the JSON appears bare inside prose", func() {
		BeforeEach(func() {
			responseText = `The extracted data is {"storeName": "Bare", "totalAmount": 42} as requested.`
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should extract the bare object", func() {
			Expect(analyzed.StoreName).To(Equal("Bare"))
			Expect(analyzed.TotalAmount).To(Equal(42))
		})
	})

	When("the response is empty", func() {
		BeforeEach(func() {
			responseText = "   \n  "
		})

		It("returns ErrEmptyResponse", func() {
			Expect(err).To(MatchError(ErrEmptyResponse))
		})
	})

	When("the response contains no JSON object", func() {
		BeforeEach(func() {
			responseText = "I could not read this receipt, sorry."
		})

		It("returns ErrNoJSON", func() {
			Expect(err).To(MatchError(ErrNoJSON))
		})
	})

	When("the located text is not valid JSON", func() {
		BeforeEach(func() {
			responseText = `{"storeName": "broken",`
		})

		It("returns a parse error", func() {
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("normalization", func() {
		When("the store name is missing", func() {
			BeforeEach(func() {
				responseText = `{"date": "2024-01-15", "items": [], "totalAmount": 1, "confidence": 0.9}`
			})

			It("substitutes the unknown placeholder", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(analyzed.StoreName).To(Equal("unknown"))
			})
		})

		When("the date is missing", func() {
			BeforeEach(func() {
				responseText = `{"storeName": "A", "items": [], "totalAmount": 1, "confidence": 0.9}`
			})

			It("substitutes the current date", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(analyzed.Date).To(Equal("2024-03-10"))
			})
		})

		When("items is not a sequence", func() {
			BeforeEach(func() {
				responseText = `{"storeName": "A", "date": "2024-01-15", "items": "none", "totalAmount": 1, "confidence": 0.9}`
			})

			It("substitutes an empty sequence", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(analyzed.Items).To(BeEmpty())
			})
		})

		When("the total is a string and confidence is missing", func() {
			BeforeEach(func() {
				responseText = `{"storeName": "A", "date": "2024-01-15", "items": [], "totalAmount": "5"}`
			})

			It("does not coerce the string total", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(analyzed.TotalAmount).To(Equal(0))
			})

			It("defaults confidence to 0.5", func() {
				Expect(analyzed.Confidence).To(Equal(0.5))
			})
		})

		When("an item has missing or mistyped fields", func() {
			BeforeEach(func() {
				responseText = `{"storeName": "A", "date": "2024-01-15", "totalAmount": 1, "confidence": 0.9,
					"items": [{"quantity": "two", "unitPrice": null, "totalPrice": "98"}]}`
			})

			It("substitutes every default from the table", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(analyzed.Items).To(HaveLen(1))
				Expect(analyzed.Items[0]).To(Equal(AnalyzedItem{
					Name:       "不明な商品",
					Quantity:   1,
					UnitPrice:  0,
					TotalPrice: 0,
					Category:   "その他",
				}))
			})
		})

		When("null fields arrive", func() {
			BeforeEach(func() {
				responseText = `{"storeName": null, "date": null, "items": null, "totalAmount": null, "confidence": null}`
			})

			It("applies every top-level default", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(analyzed.StoreName).To(Equal("unknown"))
				Expect(analyzed.Date).To(Equal("2024-03-10"))
				Expect(analyzed.Items).To(BeEmpty())
				Expect(analyzed.TotalAmount).To(Equal(0))
				Expect(analyzed.Confidence).To(Equal(0.5))
			})
		})
	})
})
