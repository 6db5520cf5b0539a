package receipt

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/moriyama/receipt-snap/internal/scanning"
)

// IDGenerator generates unique IDs for receipts and items
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates random UUIDs; they are opaque and never reused
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles receipt operations
type Service struct {
	db          DB
	extractor   scanning.Extractor
	images      ImageStore
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, extractor scanning.Extractor, images ImageStore) *Service {
	return &Service{
		db:          db,
		extractor:   extractor,
		images:      images,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, extractor scanning.Extractor, images ImageStore, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		extractor:   extractor,
		images:      images,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// AnalyzeImage runs the vision extraction over a captured photo. The
// result is transient; the user confirms or edits it before anything is
// persisted. There is no automatic retry, the caller offers a retake.
func (s *Service) AnalyzeImage(data []byte, contentType string) (*scanning.AnalyzedReceipt, error) {
	analyzed, err := s.extractor.AnalyzeReceipt(data, contentType)
	if err != nil {
		slog.Error("Failed to analyze receipt image",
			"content_type", contentType,
			"image_size", len(data),
			"error", err,
		)
		return nil, fmt.Errorf("analyzing receipt: %w", err)
	}
	return analyzed, nil
}

// ReceiptDraft is the user-confirmed state of the save wizard
type ReceiptDraft struct {
	StoreName    string        `json:"store_name"`
	Date         string        `json:"date"` // YYYY-MM-DD
	Items        []ReceiptItem `json:"items"`
	Memo         string        `json:"memo"`
	ImageDataURL string        `json:"image_data_url"`
}

// SaveReceipt validates a confirmed draft and persists it atomically.
// Empty-name items are dropped, quantities and prices are clamped to
// sane ranges, and the stored total is recomputed from the items no
// matter what the extraction suggested.
func (s *Service) SaveReceipt(draft ReceiptDraft) (*Receipt, error) {
	if strings.TrimSpace(draft.StoreName) == "" {
		return nil, &ValidationError{Field: "store_name", Message: "store name is required"}
	}

	items := make([]ReceiptItem, 0, len(draft.Items))
	for _, item := range draft.Items {
		if strings.TrimSpace(item.Name) == "" {
			continue
		}
		if item.Quantity < 1 {
			item.Quantity = 1
		}
		if item.UnitPrice < 0 {
			item.UnitPrice = 0
		}
		item.ID = s.idGenerator.Generate()
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, &ValidationError{Field: "items", Message: "at least one named item is required"}
	}

	now := s.timeSource.Now()

	date, err := time.Parse("2006-01-02", draft.Date)
	if err != nil {
		// Purchase dates are stored at midnight; a raw clock value with a
		// time-of-day would fall outside month windows ending on their
		// last day
		date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}

	id := s.idGenerator.Generate()

	// The captured photo is kept for review only; losing it does not lose
	// the receipt
	imagePath := ""
	if draft.ImageDataURL != "" {
		imagePath = s.saveImage(id, draft.ImageDataURL)
	}

	receipt := &Receipt{
		ID:          id,
		StoreName:   draft.StoreName,
		Date:        date,
		Items:       items,
		TotalAmount: CalculatedTotal(items),
		ImagePath:   imagePath,
		Memo:        draft.Memo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.CreateReceipt(receipt); err != nil {
		if imagePath != "" {
			s.images.Delete(imagePath)
		}
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}

	return receipt, nil
}

// saveImage decodes and stores the captured photo, returning the stored
// path or "" when that fails
func (s *Service) saveImage(receiptID, dataURL string) string {
	data, mimeType, err := scanning.DecodeDataURL(dataURL)
	if err != nil {
		slog.Warn("Failed to decode receipt image", "receipt_id", receiptID, "error", err)
		return ""
	}

	ext := ".jpg"
	switch mimeType {
	case "image/png":
		ext = ".png"
	case "image/gif":
		ext = ".gif"
	}

	path, err := s.images.Save(receiptID+ext, data)
	if err != nil {
		slog.Warn("Failed to store receipt image", "receipt_id", receiptID, "error", err)
		return ""
	}
	return path
}

// GetReceipt retrieves a receipt by ID
func (s *Service) GetReceipt(id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return receipt, nil
}

// GetReceiptImage retrieves the stored photo for a receipt
func (s *Service) GetReceiptImage(id string) ([]byte, string, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt: %w", err)
	}
	if receipt.ImagePath == "" {
		return nil, "", fmt.Errorf("receipt %s has no stored image", id)
	}

	data, err := s.images.Get(receipt.ImagePath)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt image: %w", err)
	}
	return data, ImageContentType(receipt.ImagePath), nil
}

// ListReceipts returns every stored receipt. Unlike the view queries
// below this propagates failures, since batch sync must not silently run
// over nothing.
func (s *Service) ListReceipts() ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	return receipts, nil
}

// DeleteReceipt removes a receipt, its items, and its stored photo
func (s *Service) DeleteReceipt(id string) error {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return fmt.Errorf("getting receipt for deletion: %w", err)
	}

	// Database records go first: if their delete fails the receipt must
	// keep its photo, while an orphaned file after a successful delete is
	// harmless
	if err := s.db.DeleteReceipt(id); err != nil {
		return fmt.Errorf("deleting receipt from database: %w", err)
	}

	if receipt.ImagePath != "" {
		if err := s.images.Delete(receipt.ImagePath); err != nil {
			slog.Warn("Failed to delete receipt image", "path", receipt.ImagePath, "error", err)
		}
	}
	return nil
}

// monthWindow returns the first and last day of a month, both inclusive
func monthWindow(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, -1)
}

// The read-only view queries below degrade to empty results on storage
// failure. The UI treats "no data" and "query failed" identically, so the
// error is only logged.

// RecentReceipts returns the newest receipts, up to limit
func (s *Service) RecentReceipts(limit int) []*Receipt {
	receipts, err := s.db.RecentReceipts(limit)
	if err != nil {
		slog.Error("Error fetching recent receipts", "error", err)
		return []*Receipt{}
	}
	return receipts
}

// ReceiptsByMonth returns all receipts dated in the given month
func (s *Service) ReceiptsByMonth(year int, month time.Month) []*Receipt {
	start, end := monthWindow(year, month)
	receipts, err := s.db.ReceiptsByDateRange(start, end)
	if err != nil {
		slog.Error("Error fetching receipts by month", "year", year, "month", month, "error", err)
		return []*Receipt{}
	}
	return receipts
}

// ReceiptsByDate returns all receipts dated on the given day
func (s *Service) ReceiptsByDate(date time.Time) []*Receipt {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	receipts, err := s.db.ReceiptsByDateRange(day, day.AddDate(0, 0, 1).Add(-time.Second))
	if err != nil {
		slog.Error("Error fetching receipts by date", "date", day, "error", err)
		return []*Receipt{}
	}
	return receipts
}

// MonthlyTotal sums spending over one month; zero receipts total zero
func (s *Service) MonthlyTotal(year int, month time.Month) int {
	return SumTotals(s.ReceiptsByMonth(year, month))
}

// DailyTotal sums spending over one day
func (s *Service) DailyTotal(date time.Time) int {
	return SumTotals(s.ReceiptsByDate(date))
}

// MonthlyCategoryTotals breaks one month's spending down by item category
func (s *Service) MonthlyCategoryTotals(year int, month time.Month) []CategoryTotal {
	return CategoryTotals(s.ReceiptsByMonth(year, month))
}

// Categories returns the taxonomy in display order, falling back to the
// built-in seed when the store cannot be read
func (s *Service) Categories() []Category {
	categories, err := s.db.ListCategories()
	if err != nil || len(categories) == 0 {
		if err != nil {
			slog.Error("Error fetching categories", "error", err)
		}
		return DefaultCategories
	}
	return categories
}

// Setting reads a persisted application setting
func (s *Service) Setting(key string) (string, error) {
	return s.db.GetSetting(key)
}

// PutSetting stores an application setting
func (s *Service) PutSetting(key, value string) error {
	return s.db.PutSetting(key, value)
}

// SaveBudget upserts a monthly category budget
func (s *Service) SaveBudget(budget *Budget) error {
	if budget.YearMonth == "" || budget.Category == "" {
		return &ValidationError{Field: "budget", Message: "year_month and category are required"}
	}
	return s.db.SaveBudget(budget)
}

// BudgetsByMonth lists the budgets for a YYYY-MM month
func (s *Service) BudgetsByMonth(yearMonth string) []*Budget {
	budgets, err := s.db.BudgetsByMonth(yearMonth)
	if err != nil {
		slog.Error("Error fetching budgets", "year_month", yearMonth, "error", err)
		return []*Budget{}
	}
	return budgets
}
