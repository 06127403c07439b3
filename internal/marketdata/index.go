package marketdata

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/ternarybob/eodhd-mcp/internal/eodhd"
)

// IndexComponent is one constituent of an index.
type IndexComponent struct {
	Symbol   string   `json:"symbol"`
	Exchange string   `json:"exchange,omitempty"`
	Name     string   `json:"name,omitempty"`
	Sector   string   `json:"sector,omitempty"`
	Industry string   `json:"industry,omitempty"`
	Weight   *float64 `json:"weight,omitempty"`
}

// rawComponent accepts the capitalised upstream keys and the normalized ones.
type rawComponent struct {
	Code        string `json:"Code"`
	SymbolUpper string `json:"Symbol"`
	Symbol      string `json:"symbol"`
	Exchange    string `json:"Exchange"`
	ExchangeLow string `json:"exchange"`
	Name        string `json:"Name"`
	NameLow     string `json:"name"`
	Sector      string `json:"Sector"`
	SectorLow   string `json:"sector"`
	Industry    string `json:"Industry"`
	IndustryLow string `json:"industry"`
	Weight      Number `json:"Weight"`
	WeightLow   Number `json:"weight"`
}

func firstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (r rawComponent) normalize(key string) IndexComponent {
	return IndexComponent{
		Symbol:   strings.ToUpper(firstString(r.Code, r.SymbolUpper, r.Symbol, key)),
		Exchange: firstString(r.Exchange, r.ExchangeLow),
		Name:     firstString(r.Name, r.NameLow),
		Sector:   firstString(r.Sector, r.SectorLow),
		Industry: firstString(r.Industry, r.IndustryLow),
		Weight:   firstValid(r.Weight, r.WeightLow),
	}
}

var componentKeys = []string{"Components", "components", "Holdings", "holdings"}

// NormalizeIndexComponents extracts the constituents of an index fundamentals payload.
// The constituent list may be an object keyed by position or symbol, or an array.
// A payload without any constituent key is malformed; an empty list is not.
func NormalizeIndexComponents(body json.RawMessage) ([]IndexComponent, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}

	var list json.RawMessage
	switch body[0] {
	case '[':
		list = body
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, malformed(eodhd.OpIndexComponents, "invalid index payload: %v", err)
		}
		for _, k := range componentKeys {
			if v, ok := fields[k]; ok {
				list = bytes.TrimSpace(v)
				break
			}
		}
		if list == nil {
			return nil, malformed(eodhd.OpIndexComponents, "index payload has no constituent list")
		}
	default:
		return nil, malformed(eodhd.OpIndexComponents, "expected an index object")
	}

	if len(list) == 0 || bytes.Equal(list, []byte("null")) {
		return nil, nil
	}

	var components []IndexComponent
	switch list[0] {
	case '[':
		var raw []rawComponent
		if err := json.Unmarshal(list, &raw); err != nil {
			return nil, malformed(eodhd.OpIndexComponents, "invalid constituent list: %v", err)
		}
		for _, r := range raw {
			components = append(components, r.normalize(""))
		}
	case '{':
		var raw map[string]rawComponent
		if err := json.Unmarshal(list, &raw); err != nil {
			return nil, malformed(eodhd.OpIndexComponents, "invalid constituent map: %v", err)
		}
		keys := make([]string, 0, len(raw))
		for k := range raw {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keyLess(keys[i], keys[j]) })
		for _, k := range keys {
			// Positional keys ("0", "1", ...) are not symbols.
			fallback := k
			if _, err := strconv.Atoi(k); err == nil {
				fallback = ""
			}
			components = append(components, raw[k].normalize(fallback))
		}
	default:
		return nil, malformed(eodhd.OpIndexComponents, "constituent list must be an array or object")
	}

	for _, c := range components {
		if c.Symbol == "" {
			return nil, malformed(eodhd.OpIndexComponents, "constituent without a symbol")
		}
	}

	// Heaviest first when upstream reports weights; unweighted entries keep their order at the end.
	sort.SliceStable(components, func(i, j int) bool {
		wi, wj := components[i].Weight, components[j].Weight
		switch {
		case wi != nil && wj != nil:
			return *wi > *wj
		case wi != nil:
			return true
		default:
			return false
		}
	})

	return components, nil
}

// keyLess orders numeric keys numerically ("2" < "10") and everything else lexically.
func keyLess(a, b string) bool {
	ai, errA := strconv.Atoi(a)
	bi, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return ai < bi
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
