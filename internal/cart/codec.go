package cart

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EncodeSnapshot renders the cart as a JSON array of line items. An empty
// cart encodes as "[]".
func EncodeSnapshot(items []LineItem) (string, error) {
	if items == nil {
		items = []LineItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode cart snapshot: %w", err)
	}
	return string(b), nil
}

// DecodeSnapshot parses a stored snapshot. Blank and "null" payloads decode to
// an empty cart. Duplicate ids and quantities below one are rejected.
func DecodeSnapshot(raw string) ([]LineItem, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return []LineItem{}, nil
	}

	var items []LineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode cart snapshot: %w", err)
	}
	if items == nil {
		items = []LineItem{}
	}

	seen := make(map[string]struct{}, len(items))
	for i, it := range items {
		if it.ID == "" {
			return nil, fmt.Errorf("decode cart snapshot: item %d has no id", i)
		}
		if _, dup := seen[it.ID]; dup {
			return nil, fmt.Errorf("decode cart snapshot: duplicate id %q", it.ID)
		}
		seen[it.ID] = struct{}{}
		if it.Quantity < 1 {
			return nil, fmt.Errorf("decode cart snapshot: id %q has quantity %d", it.ID, it.Quantity)
		}
	}
	return items, nil
}
