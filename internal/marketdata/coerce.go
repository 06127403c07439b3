// Package marketdata converts EODHD response payloads into normalized tables.
// Each operation has its own tagged payload variant and normalizer; shape errors are
// reported as *eodhd.APIError with KindMalformedResponse.
package marketdata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ternarybob/eodhd-mcp/internal/eodhd"
)

// Number is a JSON value that may be a number, a numeric string, or null.
type Number struct {
	Value float64
	Valid bool
}

// UnmarshalJSON accepts 1.5, "1.5", "", "NA" and null.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = Number{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		switch strings.ToLower(s) {
		case "", "na", "n/a", "none", "null", "-":
			*n = Number{}
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("cannot coerce %q to a number", s)
		}
		*n = Number{Value: v, Valid: true}
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("cannot coerce %s to a number", string(data))
	}
	*n = Number{Value: v, Valid: true}
	return nil
}

// Ptr returns a pointer to the value, or nil when not valid.
func (n Number) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func malformed(op eodhd.Operation, format string, args ...any) error {
	return &eodhd.APIError{
		Kind:     eodhd.KindMalformedResponse,
		Message:  fmt.Sprintf(format, args...),
		Endpoint: string(op),
	}
}
