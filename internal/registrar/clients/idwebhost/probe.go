package idwebhost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"regexp"
	"slices"
	"strings"

	"github.com/smallbiznis/domainledger/internal/pricing"
	"github.com/smallbiznis/domainledger/internal/syncerr"
	"go.uber.org/zap"
)

const (
	ajaxAccept   = "application/json, text/javascript, */*; q=0.01"
	probeTLD     = ".com"
	labelCharset = "abcdefghijklmnopqrstuvwxyz0123456789"
)

var (
	csrfPattern = regexp.MustCompile(`let csrfToken = '([a-f0-9]+)';`)
	probeBases  = []string{"contohdomain", "exampledomain", "domaincoba"}
)

type formField struct {
	name  string
	value string
}

// PriceCategories lists the price categories that are synced as deferred phases.
func (c *Client) PriceCategories() []string {
	return slices.Clone(c.deps.SyncConfig.Get().IDwebhostCategories)
}

// GetPricesByType reads renewal prices of one category. The site only reveals them in the
// result of an availability check, so a random probe name is validated first and then
// checked with the category filter. Unknown categories and a rejected probe yield no
// quotes. Renewal doubles as the transfer price.
func (c *Client) GetPricesByType(ctx context.Context, category string) ([]pricing.Quote, error) {
	if !slices.Contains(c.PriceCategories(), category) {
		return nil, nil
	}

	var quotes []pricing.Quote
	err := c.deps.Observe(source, "get_prices_by_type", func() error {
		var err error
		quotes, err = c.probeCategory(ctx, category)
		return err
	})
	if err != nil {
		c.log.Error("Failed to fetch IDwebhost type prices", zap.String("type", category), zap.Error(err))
		return nil, err
	}
	return quotes, nil
}

func (c *Client) probeCategory(ctx context.Context, category string) ([]pricing.Quote, error) {
	page, err := c.fetchPricingPage(ctx)
	if err != nil {
		return nil, err
	}
	if page.csrfToken == "" || page.cookie == "" {
		return nil, syncerr.UpstreamFormat(source, "Unable to prepare IDwebhost AJAX context.", nil)
	}

	label := probeLabel()
	var preflight struct {
		Response json.Number `json:"response"`
	}
	err = c.postAjax(ctx, "orderwhmcs.validatedomain", label, []formField{
		{"domainname", label},
		{"token", page.csrfToken},
	}, page.cookie, &preflight)
	if err != nil {
		return nil, err
	}
	if preflight.Response.String() != "1" {
		c.log.Info("IDwebhost probe rejected", zap.String("type", category), zap.String("label", label))
		return nil, nil
	}

	probe := label + probeTLD
	var whois struct {
		Result json.RawMessage `json:"result"`
	}
	err = c.postAjax(ctx, "whois.getwhoisdomain", probe, []formField{
		{"domain", probe},
		{"token", page.csrfToken},
		{"type", category},
	}, page.cookie, &whois)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		TLD        string `json:"tld"`
		PriceRenew any    `json:"price_renew"`
	}
	switch strings.TrimSpace(string(whois.Result)) {
	case "", "null", "false", `""`:
		return nil, nil
	}
	if err := json.Unmarshal(whois.Result, &rows); err != nil {
		return nil, syncerr.UpstreamFormat(source, fmt.Sprintf("Unexpected IDwebhost %s price result", category), err)
	}

	quotes := make([]pricing.Quote, 0, len(rows))
	for _, row := range rows {
		tld := pricing.NormalizeTLD(row.TLD)
		renew := pricing.ParseAmount(row.PriceRenew)
		if tld == "" || renew == nil {
			continue
		}
		transfer := *renew
		quotes = append(quotes, pricing.Quote{TLD: tld, Renew: renew, Transfer: &transfer})
	}
	c.log.Info("IDwebhost type prices fetched", zap.String("type", category), zap.Int("count", len(quotes)))
	return quotes, nil
}

// postAjax submits a multipart form to index.php?action=<action> the way the site's own
// scripts do and decodes the JSON reply into out.
func (c *Client) postAjax(ctx context.Context, action, name string, fields []formField, cookie string, out any) error {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	for _, field := range fields {
		if err := form.WriteField(field.name, field.value); err != nil {
			return err
		}
	}
	if err := form.Close(); err != nil {
		return err
	}

	endpoint := c.siteURL + "/index.php?action=" + action
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", ajaxAccept)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Referer", c.siteURL+"/cek-domain/"+name)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36")
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := c.deps.Do(ctx, source, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return syncerr.TransientFetch(source, fmt.Sprintf("IDwebhost AJAX request failed (%s)", endpoint), err)
	}
	if resp.StatusCode != http.StatusOK {
		return syncerr.TransientFetch(source, fmt.Sprintf("IDwebhost AJAX request failed (%s): %d", endpoint, resp.StatusCode), nil)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return syncerr.UpstreamFormat(source, fmt.Sprintf("IDwebhost AJAX response is not JSON (%s)", action), err)
	}
	return nil
}

func extractCSRFToken(html string) string {
	match := csrfPattern.FindStringSubmatch(html)
	if len(match) < 2 {
		return ""
	}
	return match[1]
}

func probeLabel() string {
	suffix := make([]byte, 3)
	for i := range suffix {
		suffix[i] = labelCharset[rand.IntN(len(labelCharset))]
	}
	return probeBases[rand.IntN(len(probeBases))] + string(suffix)
}
