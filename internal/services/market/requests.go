package market

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/eodhd-mcp/internal/eodhd"
)

// StockPriceRequest are the parameters of get_stock_price.
type StockPriceRequest struct {
	Symbol   string `json:"symbol" validate:"required,symbol"`
	Exchange string `json:"exchange" validate:"omitempty,alphanum,max=10"`
	From     string `json:"from_date" validate:"omitempty,datetime=2006-01-02"`
	To       string `json:"to_date" validate:"omitempty,datetime=2006-01-02"`
}

// EarningsCalendarRequest are the parameters of get_earnings_calendar.
type EarningsCalendarRequest struct {
	Symbols string `json:"symbols" validate:"omitempty,symbols"`
	From    string `json:"from_date" validate:"omitempty,datetime=2006-01-02"`
	To      string `json:"to_date" validate:"omitempty,datetime=2006-01-02"`
}

// FundamentalsRequest are the parameters of get_fundamentals.
type FundamentalsRequest struct {
	Symbol   string `json:"symbol" validate:"required,symbol"`
	Exchange string `json:"exchange" validate:"omitempty,alphanum,max=10"`
	// Sections optionally restricts the categories returned (comma-separated).
	Sections string `json:"sections" validate:"omitempty,max=256"`
}

// IndexComponentsRequest are the parameters of get_index_components.
type IndexComponentsRequest struct {
	Index string `json:"index_code" validate:"required,symbol"`
}

// GrowthRatesRequest are the parameters of get_growth_rates.
type GrowthRatesRequest struct {
	Symbol   string `json:"symbol" validate:"required,symbol"`
	Exchange string `json:"exchange" validate:"omitempty,alphanum,max=10"`
}

// VolumeAveragesRequest are the parameters of get_volume_averages.
type VolumeAveragesRequest struct {
	Symbol   string `json:"symbol" validate:"required,symbol"`
	Exchange string `json:"exchange" validate:"omitempty,alphanum,max=10"`
	Periods  string `json:"periods" validate:"omitempty,max=64"`
}

// EarningsTrendRequest are the parameters of get_earnings_trend.
type EarningsTrendRequest struct {
	Symbol   string `json:"symbol" validate:"required,symbol"`
	Exchange string `json:"exchange" validate:"omitempty,alphanum,max=10"`
	Years    int    `json:"years" validate:"omitempty,min=1,max=20"`
}

var (
	symbolPattern  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-^:]{0,31}$`)
	symbolsPattern = regexp.MustCompile(`^[A-Za-z0-9._\-^:, ]{1,512}$`)
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("symbol", func(fl validator.FieldLevel) bool {
		return symbolPattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	_ = v.RegisterValidation("symbols", func(fl validator.FieldLevel) bool {
		return symbolsPattern.MatchString(fl.Field().String())
	})
	return v
}

// validationError converts validator output into a BadRequest error naming the first bad field.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &eodhd.APIError{Kind: eodhd.KindBadRequest, Message: err.Error()}
	}

	fe := fieldErrs[0]
	field := fe.Field()
	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("%s is required", field)
	case "datetime":
		msg = fmt.Sprintf("%s must be a date in YYYY-MM-DD format, got %q", field, fe.Value())
	case "symbol", "symbols":
		msg = fmt.Sprintf("%s contains invalid characters: %q", field, fe.Value())
	case "min", "max":
		msg = fmt.Sprintf("%s is out of range (%s=%s)", field, fe.Tag(), fe.Param())
	default:
		msg = fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
	return &eodhd.APIError{Kind: eodhd.KindBadRequest, Message: msg}
}

// parseDate parses an optional YYYY-MM-DD date; empty yields the zero time.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(eodhd.DateLayout, s)
	if err != nil {
		return time.Time{}, &eodhd.APIError{
			Kind:    eodhd.KindBadRequest,
			Message: fmt.Sprintf("invalid date %q: expected YYYY-MM-DD", s),
		}
	}
	return t, nil
}
