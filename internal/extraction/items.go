package extraction

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// Item is a single structured line extracted from a receipt
type Item struct {
	Item     string  `json:"item"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// ParseItems locates the first bracketed JSON array inside free-form model
// text and converts it into receipt items. A malformed model response is
// expected rather than exceptional, so every failure mode degrades to an
// empty list and is logged, never raised.
func ParseItems(text string) []Item {
	// Find the array boundaries - look for first [ and last ]
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end < start {
		slog.Warn("No item array found in model response")
		return nil
	}

	var raw []any
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		slog.Warn("Model response array is not valid JSON", "error", err)
		return nil
	}

	items := make([]Item, 0, len(raw))
	for _, entry := range raw {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}

		name, ok := obj["item"].(string)
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		var price float64
		switch p := obj["price"].(type) {
		case float64, string:
			price = NormalizePrice(p)
		default:
			continue
		}
		// Zero or negative prices are unparsable tokens; drop them
		// silently rather than surfacing partial errors.
		if price <= 0 {
			continue
		}

		quantity := 1
		if q, ok := obj["quantity"].(float64); ok && q >= 1 {
			quantity = int(q)
		}

		items = append(items, Item{Item: name, Price: price, Quantity: quantity})
	}

	return items
}
