// Package config loads external-service credentials from the environment.
package config

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/moriyama/receipt-snap/internal/notion"
)

// Config holds the credentials for the external integrations. Absent or
// placeholder values disable the corresponding integration; nothing here
// is fatal.
type Config struct {
	GeminiAPIKey string
	GeminiModel  string

	NotionAPIKey             string
	NotionReceiptsDatabaseID string
	NotionItemsDatabaseID    string
}

// Load reads configuration from environment variables, picking up a
// local .env file when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		GeminiAPIKey:             os.Getenv("GEMINI_API_KEY"),
		GeminiModel:              os.Getenv("GEMINI_MODEL"),
		NotionAPIKey:             os.Getenv("NOTION_API_KEY"),
		NotionReceiptsDatabaseID: os.Getenv("NOTION_RECEIPTS_DATABASE_ID"),
		NotionItemsDatabaseID:    os.Getenv("NOTION_ITEMS_DATABASE_ID"),
	}
}

// NotionConfig bundles the mirror credentials for the sync client
func (c *Config) NotionConfig() notion.Config {
	return notion.Config{
		APIKey:             c.NotionAPIKey,
		ReceiptsDatabaseID: c.NotionReceiptsDatabaseID,
		ItemsDatabaseID:    c.NotionItemsDatabaseID,
	}
}
