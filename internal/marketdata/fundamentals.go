package marketdata

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/ternarybob/eodhd-mcp/internal/eodhd"
)

// Fundamentals maps a category ("General", "Highlights", "Financials", ...) to its fields.
// Values are kept exactly as provided: numbers are json.Number, strings stay strings
// (identifiers such as CIK or ISIN are never coerced), nested objects are map[string]any.
type Fundamentals map[string]map[string]any

// Categories returns the category names in sorted order.
func (f Fundamentals) Categories() []string {
	out := make([]string, 0, len(f))
	for k := range f {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Field returns a field of a category and whether it was reported.
func (f Fundamentals) Field(category, field string) (any, bool) {
	fields, ok := f[category]
	if !ok {
		return nil, false
	}
	v, ok := fields[field]
	return v, ok
}

// NormalizeFundamentals decodes a fundamentals object without flattening.
// Top-level values that are not objects carry no category and are dropped.
func NormalizeFundamentals(body json.RawMessage) (Fundamentals, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return Fundamentals{}, nil
	}
	if body[0] != '{' {
		return nil, malformed(eodhd.OpFundamentals, "expected a JSON object of categories")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, malformed(eodhd.OpFundamentals, "invalid fundamentals payload: %v", err)
	}

	out := make(Fundamentals, len(raw))
	for category, v := range raw {
		fields, ok := v.(map[string]any)
		if !ok {
			continue
		}
		out[category] = fields
	}
	return out, nil
}
