package scanning

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	unknownStore = "unknown"
	unknownItem  = "不明な商品"

	// fallbackCategory catches items the model left unclassified
	fallbackCategory = "その他"
)

var (
	// ErrEmptyResponse means the model returned no usable text at all
	ErrEmptyResponse = errors.New("empty response from model")

	// ErrNoJSON means no JSON object could be located in the response text
	ErrNoJSON = errors.New("no JSON object found in response")

	fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	bareJSONPattern   = regexp.MustCompile(`(?s)\{.*\}`)
)

// locateJSON pulls the JSON object out of a model response. Models wrap
// their output in a fenced code block as often as not, so the fenced
// pattern is tried first, then a bare object.
func locateJSON(text string) (string, error) {
	if m := fencedJSONPattern.FindStringSubmatch(text); m != nil {
		return m[1], nil
	}
	if m := bareJSONPattern.FindString(text); m != "" {
		return m, nil
	}
	return "", ErrNoJSON
}

// parseAnalyzedReceipt locates and parses the JSON object in a model
// response, then normalizes it. Parsing can fail; normalization cannot.
func parseAnalyzedReceipt(text string, now time.Time) (*AnalyzedReceipt, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyResponse
	}

	jsonText, err := locateJSON(text)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(jsonText), &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	return normalizeAnalyzedReceipt(raw, now), nil
}

// normalizeAnalyzedReceipt substitutes defaults for every missing or
// mistyped field. Values of the wrong JSON type are replaced, never
// coerced: a string "5" for a numeric field becomes the default.
func normalizeAnalyzedReceipt(raw map[string]any, now time.Time) *AnalyzedReceipt {
	analyzed := &AnalyzedReceipt{
		StoreName:   stringField(raw, "storeName", unknownStore),
		Date:        stringField(raw, "date", now.Format("2006-01-02")),
		Items:       []AnalyzedItem{},
		TotalAmount: intField(raw, "totalAmount", 0),
		Confidence:  floatField(raw, "confidence", 0.5),
	}

	rawItems, ok := raw["items"].([]any)
	if !ok {
		return analyzed
	}
	for _, rawItem := range rawItems {
		fields, ok := rawItem.(map[string]any)
		if !ok {
			fields = map[string]any{}
		}
		analyzed.Items = append(analyzed.Items, AnalyzedItem{
			Name:       stringField(fields, "name", unknownItem),
			Quantity:   intField(fields, "quantity", 1),
			UnitPrice:  intField(fields, "unitPrice", 0),
			TotalPrice: intField(fields, "totalPrice", 0),
			Category:   stringField(fields, "category", fallbackCategory),
		})
	}
	return analyzed
}

func stringField(fields map[string]any, key, fallback string) string {
	if s, ok := fields[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func floatField(fields map[string]any, key string, fallback float64) float64 {
	if f, ok := fields[key].(float64); ok {
		return f
	}
	return fallback
}

func intField(fields map[string]any, key string, fallback int) int {
	if f, ok := fields[key].(float64); ok {
		return int(f)
	}
	return fallback
}
