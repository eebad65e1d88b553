package idwebhost

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/smallbiznis/domainledger/internal/facts"
	"github.com/smallbiznis/domainledger/internal/fetcher"
	"github.com/smallbiznis/domainledger/internal/pricing"
	"github.com/smallbiznis/domainledger/internal/syncerr"
	"go.uber.org/zap"
)

const domainsTableID = "tableDomainsList"

var (
	sortableDateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339, "02/01/2006"}
	visibleDateLayouts  = []string{"02/01/2006", "2006-01-02", "2 January 2006", "January 2, 2006", "02-01-2006"}
)

// GetDomains scrapes the member area domain table. Only dates are available there.
func (c *Client) GetDomains(ctx context.Context) ([]facts.FactSet, error) {
	cookies := c.cookies()
	if cookies == "" {
		return nil, syncerr.Configuration(source, "IDwebhost cookies are not configured")
	}

	var html string
	err := c.deps.Observe(source, "get_domains", func() error {
		var err error
		html, err = c.deps.Fetcher.Fetch(ctx, fetcher.Request{
			URL:             c.memberURL + "/clientarea.php?action=domains",
			Cookies:         cookies,
			WaitForSelector: "table#" + domainsTableID,
		})
		if err == nil && strings.TrimSpace(html) == "" {
			err = syncerr.TransientFetch(source, "Empty HTML response from IDwebhost domains page.", nil)
		}
		return err
	})
	if err != nil {
		c.log.Error("Failed to fetch IDwebhost domains", zap.Error(err))
		return nil, err
	}

	return parseRoster(html)
}

func parseRoster(html string) ([]facts.FactSet, error) {
	table, err := pricing.ExtractTableRows(html, domainsTableID)
	if err != nil {
		return nil, err
	}
	if table.RowCount == 0 {
		return nil, nil
	}

	var out []facts.FactSet
	table.Rows.Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("td")
		if cells.Length() < 4 {
			return
		}
		name := domainNameFromCell(cells.Eq(1))
		if name == "" {
			return
		}
		out = append(out, facts.FactSet{
			Name:             strings.ToLower(name),
			RegistrationDate: dateFromCell(cells.Eq(2)),
			ExpirationDate:   dateFromCell(cells.Eq(3)),
		})
	})
	return out, nil
}

func domainNameFromCell(td *goquery.Selection) string {
	if link := td.Find("a").First(); link.Length() > 0 {
		return pricing.CellText(link)
	}
	return pricing.CellText(td)
}

// dateFromCell prefers the hidden sortable span the table ships for ordering, then the
// visible dd/mm/yyyy text.
func dateFromCell(td *goquery.Selection) *time.Time {
	var found *time.Time
	td.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		class, _ := span.Attr("class")
		if !strings.Contains(class, "hidden") {
			return true
		}
		found = parseDate(pricing.CellText(span), sortableDateLayouts)
		return found == nil
	})
	if found != nil {
		return found
	}
	return parseDate(pricing.CellText(td), visibleDateLayouts)
}

func parseDate(raw string, layouts []string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return &t
		}
	}
	return nil
}
