package scanning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// receiptPromptFormat asks for the structured schema the parser expects.
// The %s is the enumerated category list so the model's category
// suggestions stay inside the known taxonomy; normalization does not
// enforce membership.
const receiptPromptFormat = `You are analyzing a photo of a store receipt. Carefully read all text in the image and extract:

1. **Store name** (storeName): the merchant name, usually the largest text at the top.
2. **Purchase date** (date): the transaction date in ISO 8601 format (YYYY-MM-DD).
3. **Line items** (items): every purchased product, each with:
   - name: the product name, kept in its original language (do not translate Japanese names)
   - quantity: how many were bought
   - unitPrice: the price of one, in yen
   - totalPrice: quantity times unit price, in yen
   - category: exactly one of: %s
4. **Total amount** (totalAmount): the grand total in yen, usually at the bottom.
5. **Confidence** (confidence): your own estimate between 0 and 1 of how reliably you read this receipt.

Return ONLY valid JSON in this exact format:
{
  "storeName": "スーパーマーケット",
  "date": "2024-01-15",
  "items": [
    {"name": "牛乳", "quantity": 1, "unitPrice": 298, "totalPrice": 298, "category": "食費"}
  ],
  "totalAmount": 298,
  "confidence": 0.95
}

Important:
- All amounts are whole yen. Numbers must be JSON numbers, not strings.
- If you cannot find a field, use null for that field.
- Do not include any text before or after the JSON.`

// Gemini implements the Extractor interface using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
	prompt string
	now    func() time.Time
}

// NewGemini creates a new Gemini Extractor instance. The category names
// are baked into the prompt so extraction suggests known categories.
func NewGemini(apiKey, modelName string, categories []string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
		prompt: fmt.Sprintf(receiptPromptFormat, strings.Join(categories, "、")),
		now:    time.Now,
	}, nil
}

// AnalyzeReceipt sends the image to Gemini and normalizes the response.
// One outbound call per invocation; retrying is the caller's decision.
func (g *Gemini) AnalyzeReceipt(imageData []byte, contentType string) (*AnalyzedReceipt, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Prepare image data (convert to PNG if needed)
	finalImageData, _, _, err := prepareImageData(imageData, contentType)
	if err != nil {
		return nil, err
	}

	// genai.ImageData expects just the format suffix, and prepareImageData
	// always produces PNG
	parts := []genai.Part{
		genai.ImageData("png", finalImageData),
		genai.Text(g.prompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, &ExtractionError{Err: fmt.Errorf("generating content: %w", err)}
	}

	responseText, err := candidateText(resp)
	if err != nil {
		return nil, &ExtractionError{Err: err}
	}

	analyzed, err := parseAnalyzedReceipt(responseText, g.now())
	if err != nil {
		return nil, &ExtractionError{Err: err}
	}

	return analyzed, nil
}

// candidateText concatenates the text parts of the first candidate. A
// safety-blocked candidate arrives with nil Content.
func candidateText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return "", ErrEmptyResponse
	}

	var text strings.Builder
	for _, part := range content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return text.String(), nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
