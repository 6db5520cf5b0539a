package scanning

import "errors"

// AnalyzedItem is one extracted purchase line, before item ids are assigned
type AnalyzedItem struct {
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	UnitPrice  int    `json:"unit_price"`
	TotalPrice int    `json:"total_price"`
	Category   string `json:"category"`
}

// AnalyzedReceipt is the normalized output of an extraction. It lives only
// between extraction and user confirmation; saving consumes it into a
// stored receipt.
type AnalyzedReceipt struct {
	StoreName   string         `json:"store_name"`
	Date        string         `json:"date"` // YYYY-MM-DD
	Items       []AnalyzedItem `json:"items"`
	TotalAmount int            `json:"total_amount"`
	Confidence  float64        `json:"confidence"` // 0.0-1.0, self-reported by the model
}

// Extractor defines the interface for receipt extraction operations
type Extractor interface {
	// AnalyzeReceipt analyzes a receipt image/PDF and extracts its line items
	AnalyzeReceipt(imageData []byte, contentType string) (*AnalyzedReceipt, error)
	// Close closes the extractor and releases resources
	Close() error
}

// Disabled is the Extractor used when no vision service is configured.
// Analysis fails cleanly; the rest of the application keeps working.
type Disabled struct{}

func (Disabled) AnalyzeReceipt(imageData []byte, contentType string) (*AnalyzedReceipt, error) {
	return nil, &ExtractionError{Err: errors.New("no vision service configured")}
}

func (Disabled) Close() error {
	return nil
}

// ExtractionError reports a response the extractor could not turn into an
// AnalyzedReceipt. The usual recovery is retaking the photo.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return "extracting receipt: " + e.Err.Error()
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
