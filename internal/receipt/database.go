package receipt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

const (
	receiptBucketName  = "receipts"
	itemBucketName     = "receipt_items"
	categoryBucketName = "categories"
	budgetBucketName   = "monthly_budgets"
	settingBucketName  = "settings"
)

// DB defines the interface for database operations
type DB interface {
	// CreateReceipt writes a receipt and all of its items atomically
	CreateReceipt(receipt *Receipt) error

	// GetReceipt retrieves a receipt with its items by ID
	GetReceipt(id string) (*Receipt, error)

	// ListReceipts returns all receipts with their items
	ListReceipts() ([]*Receipt, error)

	// ReceiptsByDateRange returns receipts dated within [start, end], both inclusive
	ReceiptsByDateRange(start, end time.Time) ([]*Receipt, error)

	// RecentReceipts returns up to limit receipts ordered by CreatedAt descending
	RecentReceipts(limit int) ([]*Receipt, error)

	// DeleteReceipt removes a receipt and all of its items atomically
	DeleteReceipt(id string) error

	// InitializeCategories seeds the fixed category set if the bucket is empty
	InitializeCategories() error

	// ListCategories returns all categories ordered by their sort key
	ListCategories() ([]Category, error)

	// SaveBudget upserts a monthly budget for one category
	SaveBudget(budget *Budget) error

	// BudgetsByMonth returns all budgets for a YYYY-MM month
	BudgetsByMonth(yearMonth string) ([]*Budget, error)

	// PutSetting stores a key/value setting
	PutSetting(key, value string) error

	// GetSetting returns a setting value, or "" when the key is absent
	GetSetting(key string) (string, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	// Create buckets if they don't exist
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{
			receiptBucketName,
			itemBucketName,
			categoryBucketName,
			budgetBucketName,
			settingBucketName,
		} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// itemKey builds the composite key for an item record. Items are keyed
// under their receipt so a cursor prefix scan collects one receipt's lines.
func itemKey(receiptID, itemID string) []byte {
	return []byte(receiptID + "/" + itemID)
}

// CreateReceipt writes the receipt record and all of its item records in a
// single transaction; either everything is persisted or nothing is.
func (b *BoltDB) CreateReceipt(receipt *Receipt) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		// Item records live in their own bucket
		record := *receipt
		record.Items = nil

		data, err := json.Marshal(&record)
		if err != nil {
			return fmt.Errorf("marshaling receipt: %w", err)
		}
		if err := tx.Bucket([]byte(receiptBucketName)).Put([]byte(receipt.ID), data); err != nil {
			return fmt.Errorf("writing receipt: %w", err)
		}

		items := tx.Bucket([]byte(itemBucketName))
		for _, item := range receipt.Items {
			item.ReceiptID = receipt.ID
			data, err := json.Marshal(&item)
			if err != nil {
				return fmt.Errorf("marshaling item: %w", err)
			}
			if err := items.Put(itemKey(receipt.ID, item.ID), data); err != nil {
				return fmt.Errorf("writing item: %w", err)
			}
		}
		return nil
	})
}

// loadItems collects all item records belonging to a receipt
func loadItems(tx *bbolt.Tx, receiptID string) ([]ReceiptItem, error) {
	items := make([]ReceiptItem, 0)
	c := tx.Bucket([]byte(itemBucketName)).Cursor()
	prefix := []byte(receiptID + "/")
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		var item ReceiptItem
		if err := json.Unmarshal(v, &item); err != nil {
			return nil, fmt.Errorf("unmarshaling item: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

// GetReceipt retrieves a receipt and its items by ID
func (b *BoltDB) GetReceipt(id string) (*Receipt, error) {
	var receipt *Receipt
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(receiptBucketName)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("receipt not found: %s", id)
		}
		if err := json.Unmarshal(data, &receipt); err != nil {
			return fmt.Errorf("unmarshaling receipt: %w", err)
		}
		items, err := loadItems(tx, id)
		if err != nil {
			return err
		}
		receipt.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// listReceipts scans the receipt bucket and attaches items to each record
func listReceipts(tx *bbolt.Tx) ([]*Receipt, error) {
	receipts := make([]*Receipt, 0)
	err := tx.Bucket([]byte(receiptBucketName)).ForEach(func(k, v []byte) error {
		var receipt Receipt
		if err := json.Unmarshal(v, &receipt); err != nil {
			return fmt.Errorf("unmarshaling receipt: %w", err)
		}
		items, err := loadItems(tx, receipt.ID)
		if err != nil {
			return err
		}
		receipt.Items = items
		receipts = append(receipts, &receipt)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipts, nil
}

// ListReceipts returns all receipts with their items
func (b *BoltDB) ListReceipts() ([]*Receipt, error) {
	var receipts []*Receipt
	err := b.db.View(func(tx *bbolt.Tx) error {
		var err error
		receipts, err = listReceipts(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return receipts, nil
}

// ReceiptsByDateRange returns receipts whose purchase date falls within
// [start, end], inclusive on both bounds
func (b *BoltDB) ReceiptsByDateRange(start, end time.Time) ([]*Receipt, error) {
	all, err := b.ListReceipts()
	if err != nil {
		return nil, err
	}
	receipts := make([]*Receipt, 0)
	for _, r := range all {
		if !r.Date.Before(start) && !r.Date.After(end) {
			receipts = append(receipts, r)
		}
	}
	sort.Slice(receipts, func(i, j int) bool {
		return receipts[i].Date.Before(receipts[j].Date)
	})
	return receipts, nil
}

// RecentReceipts returns up to limit receipts, newest first by CreatedAt
func (b *BoltDB) RecentReceipts(limit int) ([]*Receipt, error) {
	receipts, err := b.ListReceipts()
	if err != nil {
		return nil, err
	}
	sort.Slice(receipts, func(i, j int) bool {
		return receipts[i].CreatedAt.After(receipts[j].CreatedAt)
	})
	if limit >= 0 && len(receipts) > limit {
		receipts = receipts[:limit]
	}
	return receipts, nil
}

// DeleteReceipt removes a receipt and all of its items in a single transaction
func (b *BoltDB) DeleteReceipt(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket([]byte(receiptBucketName)).Delete([]byte(id)); err != nil {
			return fmt.Errorf("deleting receipt: %w", err)
		}

		items := tx.Bucket([]byte(itemBucketName))
		c := items.Cursor()
		prefix := []byte(id + "/")
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			if err := items.Delete(k); err != nil {
				return fmt.Errorf("deleting item: %w", err)
			}
		}
		return nil
	})
}

// InitializeCategories seeds the fixed category set. It only writes when
// the category bucket is empty, so repeated calls are no-ops.
func (b *BoltDB) InitializeCategories() error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(categoryBucketName))
		if k, _ := bucket.Cursor().First(); k != nil {
			return nil
		}
		for _, category := range DefaultCategories {
			data, err := json.Marshal(&category)
			if err != nil {
				return fmt.Errorf("marshaling category: %w", err)
			}
			if err := bucket.Put([]byte(category.Name), data); err != nil {
				return fmt.Errorf("writing category: %w", err)
			}
		}
		return nil
	})
}

// ListCategories returns all categories ordered by their sort key
func (b *BoltDB) ListCategories() ([]Category, error) {
	categories := make([]Category, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(categoryBucketName)).ForEach(func(k, v []byte) error {
			var category Category
			if err := json.Unmarshal(v, &category); err != nil {
				return fmt.Errorf("unmarshaling category: %w", err)
			}
			categories = append(categories, category)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Order < categories[j].Order
	})
	return categories, nil
}

// SaveBudget upserts a monthly budget, keyed by month and category
func (b *BoltDB) SaveBudget(budget *Budget) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(budget)
		if err != nil {
			return fmt.Errorf("marshaling budget: %w", err)
		}
		key := []byte(budget.YearMonth + "/" + budget.Category)
		return tx.Bucket([]byte(budgetBucketName)).Put(key, data)
	})
}

// BudgetsByMonth returns all budgets for a YYYY-MM month
func (b *BoltDB) BudgetsByMonth(yearMonth string) ([]*Budget, error) {
	budgets := make([]*Budget, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(budgetBucketName)).Cursor()
		prefix := []byte(yearMonth + "/")
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var budget Budget
			if err := json.Unmarshal(v, &budget); err != nil {
				return fmt.Errorf("unmarshaling budget: %w", err)
			}
			budgets = append(budgets, &budget)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return budgets, nil
}

// PutSetting stores a key/value setting
func (b *BoltDB) PutSetting(key, value string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(settingBucketName)).Put([]byte(key), []byte(value))
	})
}

// GetSetting returns a setting value, or "" when the key was never stored
func (b *BoltDB) GetSetting(key string) (string, error) {
	var value string
	err := b.db.View(func(tx *bbolt.Tx) error {
		if data := tx.Bucket([]byte(settingBucketName)).Get([]byte(key)); data != nil {
			value = string(data)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
