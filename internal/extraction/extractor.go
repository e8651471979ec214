package extraction

import "context"

// extractionPrompt is the shared system instruction used by all LLM providers
// for turning OCR receipt text into structured items
const extractionPrompt = `You are a receipt parsing engine. The user message contains noisy OCR text scraped from a retail receipt. Extract every purchased line item with its price and quantity.

Return ONLY a valid JSON array in this exact format:
[
  {"item": "Item Name", "price": 1.99, "quantity": 1}
]

Important:
- "item" is the product description as printed on the receipt, cleaned up
- "price" is the unit price as a number or the raw printed token as a string (e.g. "1,99" is acceptable)
- "quantity" is a positive integer; use 1 when the receipt does not state one
- Skip subtotal, total, tax, change and payment lines
- Do not include any text before or after the JSON array
- Do not use markdown code blocks
- If no items can be read, return []`

// Extractor defines the interface for receipt extraction providers
type Extractor interface {
	// Extract asks the model for structured items from OCR receipt text.
	// maxRetries is the number of additional attempts allowed after the
	// first; a negative value selects the provider default.
	Extract(ctx context.Context, receiptText string, maxRetries int) ([]Item, error)
	// Close closes the provider and releases resources
	Close() error
}
