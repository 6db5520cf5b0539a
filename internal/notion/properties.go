package notion

import (
	"time"

	"github.com/moriyama/receipt-snap/internal/receipt"
)

// Property builders for the Notion page payloads. Column names are the
// Japanese names of the target databases.

func titleProperty(content string) map[string]any {
	return map[string]any{
		"title": []map[string]any{
			{"text": map[string]any{"content": content}},
		},
	}
}

func richTextProperty(content string) map[string]any {
	return map[string]any{
		"rich_text": []map[string]any{
			{"text": map[string]any{"content": content}},
		},
	}
}

func dateProperty(t time.Time) map[string]any {
	return map[string]any{
		"date": map[string]any{"start": t.Format(time.RFC3339)},
	}
}

func dateOnlyProperty(t time.Time) map[string]any {
	return map[string]any{
		"date": map[string]any{"start": t.Format("2006-01-02")},
	}
}

func numberProperty(value int) map[string]any {
	return map[string]any{"number": value}
}

func selectProperty(name string) map[string]any {
	return map[string]any{
		"select": map[string]any{"name": name},
	}
}

func relationProperty(id string) map[string]any {
	return map[string]any{
		"relation": []map[string]any{
			{"id": id},
		},
	}
}

func receiptProperties(r *receipt.Receipt) map[string]any {
	storeName := r.StoreName
	if storeName == "" {
		storeName = "不明な店舗"
	}
	return map[string]any{
		"店舗名":   titleProperty(storeName),
		"日付":    dateOnlyProperty(r.Date),
		"合計金額":  numberProperty(r.TotalAmount),
		"レシートID": richTextProperty(r.ID),
		"作成日時":  dateProperty(r.CreatedAt),
		"更新日時":  dateProperty(r.UpdatedAt),
	}
}

func itemProperties(item *receipt.ReceiptItem, receiptPageID string) map[string]any {
	category := item.Category
	if category == "" {
		category = receipt.FallbackCategory
	}
	return map[string]any{
		"商品名":  titleProperty(item.Name),
		"数量":   numberProperty(item.Quantity),
		"単価":   numberProperty(item.UnitPrice),
		"合計":   numberProperty(item.TotalPrice),
		"カテゴリ": selectProperty(category),
		"レシート": relationProperty(receiptPageID),
	}
}
