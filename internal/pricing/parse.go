package pricing

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	nonAmountChars = regexp.MustCompile(`[^\d,.]`)
	cookieSep      = regexp.MustCompile(`\s*;\s*`)
)

// ParseIDRPrice parses Indonesian formatted amounts such as "Rp 150.000,00".
// Dots are thousands separators and the comma is the decimal mark.
func ParseIDRPrice(raw string) (float64, bool) {
	clean := nonAmountChars.ReplaceAllString(raw, "")
	if clean == "" {
		return 0, false
	}
	clean = strings.ReplaceAll(clean, ".", "")
	clean = strings.ReplaceAll(clean, ",", ".")
	if clean == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// ParseIDRPricePtr is ParseIDRPrice returning nil when nothing parsable was found.
func ParseIDRPricePtr(raw string) *float64 {
	value, ok := ParseIDRPrice(raw)
	if !ok {
		return nil
	}
	return &value
}

// ParseAmount converts a loosely typed JSON amount ("12.99", 12.99, json.Number) to a price.
func ParseAmount(raw any) *float64 {
	switch v := raw.(type) {
	case nil:
		return nil
	case float64:
		return Ptr(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil
		}
		return Ptr(f)
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(v, ",", ""))
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return Ptr(f)
	case int:
		return Ptr(float64(v))
	case int64:
		return Ptr(float64(v))
	default:
		return nil
	}
}

// FormatDecimal renders an amount at stored precision.
func FormatDecimal(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(Round2(*v), 'f', 2, 64)
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func Ptr(v float64) *float64 {
	return &v
}

// IsZeroOrNil reports whether a stored price is unknown or zero.
func IsZeroOrNil(v *float64) bool {
	return v == nil || *v == 0
}

// NormalizeCookies collapses "a=1 ;b=2" into "a=1; b=2". Blank input yields "".
func NormalizeCookies(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return cookieSep.ReplaceAllString(trimmed, "; ")
}
