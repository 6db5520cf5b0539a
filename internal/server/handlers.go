package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/moriyama/receipt-snap/internal/notion"
	"github.com/moriyama/receipt-snap/internal/receipt"
	"github.com/moriyama/receipt-snap/internal/scanning"
)

// Phone photos are large; cap uploads at 50MB
const maxUploadSize = int64(50 << 20)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// writeJSON writes a JSON response body
func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// errorJSON writes an {"error": ...} response with CORS headers set
func errorJSON(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	writeJSON(w, code, map[string]string{"error": message})
}

// readImageUpload accepts the captured photo either as a multipart file
// or as a JSON body carrying a data URL, whichever the capture widget
// produced
func readImageUpload(r *http.Request) ([]byte, string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			ImageDataURL string `json:"image_data_url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, "", errors.New("invalid request body")
		}
		if body.ImageDataURL == "" {
			return nil, "", errors.New("image_data_url is required")
		}
		data, mimeType, err := scanning.DecodeDataURL(body.ImageDataURL)
		if err != nil {
			return nil, "", err
		}
		return data, mimeType, nil
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		if err.Error() == "http: request body too large" {
			return nil, "", errors.New("file is too large, maximum size is 50MB")
		}
		return nil, "", errors.New("error parsing form")
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", errors.New("no file provided")
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		return nil, "", errors.New("file is too large, maximum size is 50MB")
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", errors.New("error reading file")
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		switch strings.ToLower(filepath.Ext(header.Filename)) {
		case ".jpg", ".jpeg":
			contentType = "image/jpeg"
		case ".png":
			contentType = "image/png"
		case ".pdf":
			contentType = "application/pdf"
		case ".heic":
			contentType = "image/heic"
		case ".heif":
			contentType = "image/heif"
		default:
			contentType = "application/octet-stream"
		}
	}
	return data, strings.ToLower(strings.TrimSpace(contentType)), nil
}

// handleAnalyzeReceipt runs vision extraction on an uploaded photo and
// returns the transient analyzed receipt for the user to confirm
func (s *Server) handleAnalyzeReceipt(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := readImageUpload(r)
	if err != nil {
		errorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}

	analyzed, err := s.service.AnalyzeImage(data, contentType)
	if err != nil {
		var extractionErr *scanning.ExtractionError
		if errors.As(err, &extractionErr) {
			// Recoverable: the client offers a retake
			errorJSON(w, "could not read the receipt, please retake the photo", http.StatusUnprocessableEntity)
			return
		}
		errorJSON(w, "error analyzing receipt", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, analyzed)
}

// handleCreateReceipt persists a confirmed draft
func (s *Server) handleCreateReceipt(w http.ResponseWriter, r *http.Request) {
	var draft receipt.ReceiptDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		errorJSON(w, "invalid request body", http.StatusBadRequest)
		return
	}

	saved, err := s.service.SaveReceipt(draft)
	if err != nil {
		var validationErr *receipt.ValidationError
		if errors.As(err, &validationErr) {
			errorJSON(w, validationErr.Message, http.StatusBadRequest)
			return
		}
		slog.Error("Error saving receipt", "error", err)
		errorJSON(w, "save failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, saved)
}

// handleListReceipts returns receipts for one of three views: recent
// (default), a month, or a single day
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	if month := r.URL.Query().Get("month"); month != "" {
		t, err := time.Parse("2006-01", month)
		if err != nil {
			corsError(w, "month must be YYYY-MM", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, s.service.ReceiptsByMonth(t.Year(), t.Month()))
		return
	}

	if date := r.URL.Query().Get("date"); date != "" {
		t, err := time.Parse("2006-01-02", date)
		if err != nil {
			corsError(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, s.service.ReceiptsByDate(t))
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			corsError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, s.service.RecentReceipts(limit))
}

// handleGetReceipt returns a single receipt with its main categories
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	found, err := s.service.GetReceipt(id)
	if err != nil {
		corsError(w, "Receipt not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"receipt":         found,
		"main_categories": receipt.MainCategories(found),
	})
}

// handleGetReceiptImage serves the stored photo for a receipt
func (s *Server) handleGetReceiptImage(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetReceiptImage(r.PathValue("id"))
	if err != nil {
		corsError(w, "Image not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteReceipt deletes a receipt
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteReceipt(r.PathValue("id")); err != nil {
		corsError(w, "Error deleting receipt", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleListCategories returns the fixed taxonomy in display order
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Categories())
}

// handleTotals returns the monthly or daily spending summary
func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	if month := r.URL.Query().Get("month"); month != "" {
		t, err := time.Parse("2006-01", month)
		if err != nil {
			corsError(w, "month must be YYYY-MM", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"total":      s.service.MonthlyTotal(t.Year(), t.Month()),
			"categories": s.service.MonthlyCategoryTotals(t.Year(), t.Month()),
		})
		return
	}

	if date := r.URL.Query().Get("date"); date != "" {
		t, err := time.Parse("2006-01-02", date)
		if err != nil {
			corsError(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"total": s.service.DailyTotal(t),
		})
		return
	}

	corsError(w, "month or date query parameter required", http.StatusBadRequest)
}

// handleListBudgets returns the budgets for one month
func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	yearMonth := r.URL.Query().Get("month")
	if yearMonth == "" {
		corsError(w, "month query parameter required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.service.BudgetsByMonth(yearMonth))
}

// handleSaveBudget upserts a monthly category budget
func (s *Server) handleSaveBudget(w http.ResponseWriter, r *http.Request) {
	var budget receipt.Budget
	if err := json.NewDecoder(r.Body).Decode(&budget); err != nil {
		errorJSON(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.service.SaveBudget(&budget); err != nil {
		var validationErr *receipt.ValidationError
		if errors.As(err, &validationErr) {
			errorJSON(w, validationErr.Message, http.StatusBadRequest)
			return
		}
		slog.Error("Error saving budget", "error", err)
		errorJSON(w, "save failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, &budget)
}

// handleSyncStatus reports whether the Notion mirror is configured
func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{
		"enabled": s.notionConfig().Enabled(),
	})
}

// handleRunSync mirrors every stored receipt to Notion and reports the
// aggregate outcome. Individual failures are counted, never fatal.
func (s *Server) handleRunSync(w http.ResponseWriter, r *http.Request) {
	cfg := s.notionConfig()
	if !cfg.Enabled() {
		errorJSON(w, "notion sync is not configured", http.StatusConflict)
		return
	}

	receipts, err := s.service.ListReceipts()
	if err != nil {
		slog.Error("Error listing receipts for sync", "error", err)
		errorJSON(w, "error listing receipts", http.StatusInternalServerError)
		return
	}

	result := s.newSyncer(cfg).SyncAll(r.Context(), receipts, func(current, total int) {
		slog.Info("Sync progress", "current", current, "total", total)
	})

	writeJSON(w, http.StatusOK, result)
}

// settingsBody is the settings payload; empty fields are left unchanged
type settingsBody struct {
	APIKey             string `json:"api_key"`
	ReceiptsDatabaseID string `json:"receipts_database_id"`
	ItemsDatabaseID    string `json:"items_database_id"`
}

// handleGetSettings returns the mirror settings. The API key itself is
// never echoed back, only whether one is configured.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	cfg := s.notionConfig()
	writeJSON(w, http.StatusOK, map[string]any{
		"api_key_configured":   cfg.APIKey != "" && cfg.APIKey != notion.PlaceholderAPIKey,
		"receipts_database_id": cfg.ReceiptsDatabaseID,
		"items_database_id":    cfg.ItemsDatabaseID,
		"sync_enabled":         cfg.Enabled(),
	})
}

// handlePutSettings persists mirror credentials from the settings screen
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var body settingsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		errorJSON(w, "invalid request body", http.StatusBadRequest)
		return
	}

	for key, value := range map[string]string{
		settingNotionAPIKey:     body.APIKey,
		settingNotionReceiptsDB: body.ReceiptsDatabaseID,
		settingNotionItemsDB:    body.ItemsDatabaseID,
	} {
		if value == "" {
			continue
		}
		if err := s.service.PutSetting(key, value); err != nil {
			slog.Error("Error saving setting", "key", key, "error", err)
			errorJSON(w, "save failed", http.StatusInternalServerError)
			return
		}
	}

	s.handleGetSettings(w, r)
}

// handleTestSettings checks candidate credentials against the live API
// before they are persisted. Values in the body override saved settings
// for this one test; nothing is stored.
func (s *Server) handleTestSettings(w http.ResponseWriter, r *http.Request) {
	var body settingsBody
	if r.Body != nil {
		// An empty body tests the currently effective config
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	cfg := s.notionConfig()
	if body.APIKey != "" {
		cfg.APIKey = body.APIKey
	}
	if body.ReceiptsDatabaseID != "" {
		cfg.ReceiptsDatabaseID = body.ReceiptsDatabaseID
	}
	if body.ItemsDatabaseID != "" {
		cfg.ItemsDatabaseID = body.ItemsDatabaseID
	}

	if !cfg.Enabled() {
		errorJSON(w, "notion sync is not configured", http.StatusConflict)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()
	if err := s.newSyncer(cfg).TestConnection(ctx); err != nil {
		slog.Warn("Notion connection test failed", "error", err)
		errorJSON(w, "connection test failed", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
