package idwebhost

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/smallbiznis/domainledger/internal/pricing"
)

// The TLD picker is a select with an empty placeholder option; every other option is a TLD
// whose price sits in the JSON of data-hs-select-option.
var selTLDOptions = cascadia.MustCompile(`select[data-hs-select]:has(option[value=""]) option[value]:not([value=""])`)

func parsePrices(html string) ([]pricing.Quote, error) {
	doc, err := pricing.NewDocument(html)
	if err != nil {
		return nil, err
	}

	var quotes []pricing.Quote
	doc.FindMatcher(selTLDOptions).Each(func(_ int, option *goquery.Selection) {
		value, _ := option.Attr("value")
		tld := pricing.NormalizeTLD(value)
		if tld == "" {
			return
		}
		raw, _ := option.Attr("data-hs-select-option")
		price := pricing.ParseIDRPricePtr(optionDescription(raw))
		if price == nil {
			return
		}
		quotes = append(quotes, pricing.Quote{TLD: tld, Register: price})
	})
	return quotes, nil
}

// optionDescription returns the "description" member of the option JSON, tolerating a
// surrounding pair of quotes.
func optionDescription(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 {
		if (raw[0] == '\'' && raw[len(raw)-1] == '\'') || (raw[0] == '"' && raw[len(raw)-1] == '"') {
			raw = raw[1 : len(raw)-1]
		}
	}
	if raw == "" {
		return ""
	}
	var data struct {
		Description any `json:"description"`
	}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return ""
	}
	description, _ := data.Description.(string)
	return description
}
