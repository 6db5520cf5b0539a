// Package notion mirrors locally stored receipts into Notion databases.
// The mirror is one-directional and best-effort; the external copy is
// never treated as a source of truth.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/moriyama/receipt-snap/internal/receipt"
)

const (
	apiVersion     = "2022-06-28"
	defaultBaseURL = "https://api.notion.com/v1"

	// interSyncPause spaces out page creations so a bulk sync stays under
	// the Notion rate limit
	interSyncPause = 100 * time.Millisecond
)

// Placeholder values shipped in .env.example. Credentials equal to these
// mean the integration was never configured.
const (
	PlaceholderAPIKey             = "your_notion_api_key_here"
	PlaceholderReceiptsDatabaseID = "your_receipts_database_id_here"
	PlaceholderItemsDatabaseID    = "your_items_database_id_here"
)

// Config carries the mirror credentials. It is passed to NewClient
// explicitly so short-lived values, like a connection test from the
// settings screen, stay scoped to the one client built from them.
type Config struct {
	APIKey             string
	ReceiptsDatabaseID string
	ItemsDatabaseID    string
}

// Enabled reports whether all three credentials are present and distinct
// from the placeholder defaults. It has no side effects.
func (c Config) Enabled() bool {
	return c.APIKey != "" && c.APIKey != PlaceholderAPIKey &&
		c.ReceiptsDatabaseID != "" && c.ReceiptsDatabaseID != PlaceholderReceiptsDatabaseID &&
		c.ItemsDatabaseID != "" && c.ItemsDatabaseID != PlaceholderItemsDatabaseID
}

// SyncError wraps the transport or service error behind one receipt's
// failed mirror attempt
type SyncError struct {
	ReceiptID string
	Err       error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("syncing receipt %s: %v", e.ReceiptID, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// ReceiptSync reports the outcome of mirroring one receipt. The line-item
// sub-sync has its own flag because its failure does not fail the receipt.
type ReceiptSync struct {
	PageID      string `json:"page_id"`
	ItemsSynced bool   `json:"items_synced"`
}

// Result aggregates a batch sync
type Result struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// ProgressFunc is invoked after each attempt of a batch sync, successful
// or not
type ProgressFunc func(current, total int)

// Client talks to the Notion REST API
type Client struct {
	cfg     Config
	baseURL string
	client  *http.Client
	pause   time.Duration
}

// NewClient creates a new Notion Client instance
func NewClient(cfg Config) *Client {
	return NewClientWithBaseURL(cfg, defaultBaseURL)
}

// NewClientWithBaseURL creates a Client against a custom endpoint for testing
func NewClientWithBaseURL(cfg Config, baseURL string) *Client {
	return &Client{
		cfg:     cfg,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		pause: interSyncPause,
	}
}

// do performs one authenticated API call and decodes the response into out
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", apiVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling notion API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("notion API error (status %d): %s", resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// page is the subset of a Notion page response the sync needs
type page struct {
	ID string `json:"id"`
}

// createPage creates one page in a database. Repeated calls create
// duplicate pages; Notion offers no dedup key for this.
func (c *Client) createPage(ctx context.Context, databaseID string, properties map[string]any) (string, error) {
	payload := map[string]any{
		"parent":     map[string]any{"database_id": databaseID},
		"properties": properties,
	}
	var created page
	if err := c.do(ctx, http.MethodPost, "/pages", payload, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// TestConnection verifies the credentials by retrieving both databases
func (c *Client) TestConnection(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/databases/"+c.cfg.ReceiptsDatabaseID, nil, nil); err != nil {
		return fmt.Errorf("receipts database: %w", err)
	}
	if err := c.do(ctx, http.MethodGet, "/databases/"+c.cfg.ItemsDatabaseID, nil, nil); err != nil {
		return fmt.Errorf("items database: %w", err)
	}
	return nil
}

// SyncReceipt mirrors one receipt and its line items. A failed item
// sub-sync is logged and reported in ItemsSynced but does not fail the
// receipt: a page without line items beats no page at all.
func (c *Client) SyncReceipt(ctx context.Context, r *receipt.Receipt) (*ReceiptSync, error) {
	pageID, err := c.createPage(ctx, c.cfg.ReceiptsDatabaseID, receiptProperties(r))
	if err != nil {
		return nil, &SyncError{ReceiptID: r.ID, Err: err}
	}

	sync := &ReceiptSync{PageID: pageID, ItemsSynced: true}
	if err := c.syncItems(ctx, r.Items, pageID); err != nil {
		slog.Warn("Failed to sync receipt items", "receipt_id", r.ID, "error", err)
		sync.ItemsSynced = false
	}
	return sync, nil
}

// syncItems mirrors the line items of an already-synced receipt
func (c *Client) syncItems(ctx context.Context, items []receipt.ReceiptItem, receiptPageID string) error {
	for _, item := range items {
		if _, err := c.createPage(ctx, c.cfg.ItemsDatabaseID, itemProperties(&item, receiptPageID)); err != nil {
			return fmt.Errorf("item %s: %w", item.ID, err)
		}
	}
	return nil
}

// SyncAll mirrors receipts one at a time, pausing between attempts to
// respect the external rate limit. The progress callback fires after
// every attempt regardless of outcome. Nothing tracks which receipts were
// already mirrored, so re-running creates duplicate pages.
func (c *Client) SyncAll(ctx context.Context, receipts []*receipt.Receipt, onProgress ProgressFunc) Result {
	var result Result
	for i, r := range receipts {
		if _, err := c.SyncReceipt(ctx, r); err != nil {
			slog.Error("Failed to sync receipt", "receipt_id", r.ID, "error", err)
			result.Failed++
		} else {
			result.Success++
		}

		if onProgress != nil {
			onProgress(i+1, len(receipts))
		}

		if i < len(receipts)-1 {
			time.Sleep(c.pause)
		}
	}
	return result
}
