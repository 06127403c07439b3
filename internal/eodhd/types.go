// Package eodhd provides the request pipeline for the EODHD (End of Day Historical Data) API.
// A request passes through the rate limiter, the retry controller, the executor and the
// response classifier; callers receive either a classified body or a typed *APIError.
package eodhd

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateLayout is the date format used by the EODHD API.
const DateLayout = "2006-01-02"

// DefaultExchange is used when a request does not name an exchange.
const DefaultExchange = "US"

// Operation identifies the upstream endpoint a request maps to.
type Operation string

const (
	OpPrice           Operation = "price"
	OpEarnings        Operation = "earnings"
	OpFundamentals    Operation = "fundamentals"
	OpIndexComponents Operation = "index_components"
)

// Shape is the top-level JSON shape an operation is expected to return.
type Shape int

const (
	ShapeArrayOrObject Shape = iota
	ShapeObject
)

// Shape returns the expected response shape for the operation.
func (o Operation) Shape() Shape {
	switch o {
	case OpFundamentals, OpIndexComponents:
		return ShapeObject
	default:
		return ShapeArrayOrObject
	}
}

// Request is a single endpoint request.
type Request struct {
	Op        Operation
	Symbol    string
	Exchange  string
	From      time.Time
	To        time.Time
	IndexCode string
	Filters   map[string]string
}

// QueryOption represents an optional parameter for API queries.
type QueryOption func(*Request)

// WithDateRange sets the date range for the query.
func WithDateRange(from, to time.Time) QueryOption {
	return func(r *Request) {
		r.From = from
		r.To = to
	}
}

// WithExchange sets the exchange code (default "US").
func WithExchange(exchange string) QueryOption {
	return func(r *Request) {
		r.Exchange = exchange
	}
}

// WithFilter adds an extra query parameter.
func WithFilter(key, value string) QueryOption {
	return func(r *Request) {
		if r.Filters == nil {
			r.Filters = make(map[string]string)
		}
		r.Filters[key] = value
	}
}

// NewRequest builds a request for the given operation with options applied.
func NewRequest(op Operation, opts ...QueryOption) Request {
	r := Request{Op: op}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func (r Request) exchange() string {
	if r.Exchange == "" {
		return DefaultExchange
	}
	return strings.ToUpper(r.Exchange)
}

// Validate checks the request invariants.
func (r Request) Validate() error {
	switch r.Op {
	case OpPrice, OpFundamentals:
		if strings.TrimSpace(r.Symbol) == "" {
			return newError(KindBadRequest, 0, "symbol is required", string(r.Op))
		}
	case OpIndexComponents:
		if strings.TrimSpace(r.IndexCode) == "" {
			return newError(KindBadRequest, 0, "index code is required", string(r.Op))
		}
	case OpEarnings:
	default:
		return newError(KindBadRequest, 0, fmt.Sprintf("unknown operation %q", r.Op), "")
	}

	if !r.From.IsZero() && !r.To.IsZero() && r.From.After(r.To) {
		return newError(KindBadRequest, 0,
			fmt.Sprintf("from date %s is after to date %s", r.From.Format(DateLayout), r.To.Format(DateLayout)),
			string(r.Op))
	}
	return nil
}

// Path returns the versioned API path for the request.
func (r Request) Path() string {
	switch r.Op {
	case OpPrice:
		return "/eod/" + r.qualifiedSymbol()
	case OpEarnings:
		return "/calendar/earnings"
	case OpFundamentals:
		return "/fundamentals/" + r.qualifiedSymbol()
	case OpIndexComponents:
		return "/fundamentals/" + strings.ToUpper(strings.TrimSpace(r.IndexCode))
	}
	return ""
}

// qualifiedSymbol returns SYMBOL.EXCHANGE; symbols already carrying a suffix are kept.
func (r Request) qualifiedSymbol() string {
	symbol := strings.ToUpper(strings.TrimSpace(r.Symbol))
	if strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + "." + r.exchange()
}

// Params returns the query parameters for the request, without credentials.
func (r Request) Params() map[string]string {
	params := map[string]string{}
	if !r.From.IsZero() {
		params["from"] = r.From.Format(DateLayout)
	}
	if !r.To.IsZero() {
		params["to"] = r.To.Format(DateLayout)
	}

	switch r.Op {
	case OpPrice:
		params["period"] = "d"
		params["order"] = "a"
	case OpEarnings:
		if strings.TrimSpace(r.Symbol) != "" {
			params["symbols"] = r.qualifiedSymbol()
		}
	}

	for k, v := range r.Filters {
		params[k] = v
	}
	return params
}

// Key returns a stable identifier for the normalized request tuple.
func (r Request) Key() string {
	params := r.Params()
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(string(r.Op))
	sb.WriteString(":")
	sb.WriteString(r.Path())
	for _, k := range keys {
		sb.WriteString("|")
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(params[k])
	}
	return sb.String()
}
