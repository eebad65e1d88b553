// Package idwebhost scrapes IDwebhost. Base prices come from the public price page. Renewal
// prices per category are only exposed through the site's availability AJAX endpoints, so
// they are read by probing a random, almost certainly unregistered name (see probe.go). The
// account's domain roster is scraped from the member area with the stored session cookies.
package idwebhost

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/smallbiznis/domainledger/internal/fetcher"
	"github.com/smallbiznis/domainledger/internal/pricing"
	"github.com/smallbiznis/domainledger/internal/registrar/clients/transport"
	"github.com/smallbiznis/domainledger/internal/registrar/domain"
	"github.com/smallbiznis/domainledger/internal/syncerr"
	"go.uber.org/zap"
)

const (
	SiteURL   = "https://idwebhost.com"
	MemberURL = "https://member.idwebhost.com"
	source    = "idwebhost"

	welcomeMarker = "Selamat Datang"
	maxPageBytes  = 16 << 20
)

type Option func(*Client)

// WithURLs overrides the public site and member area roots.
func WithURLs(site, member string) Option {
	return func(c *Client) {
		c.siteURL = strings.TrimRight(site, "/")
		c.memberURL = strings.TrimRight(member, "/")
	}
}

type Client struct {
	domain.Unsupported

	creds     domain.Credentials
	deps      transport.Deps
	siteURL   string
	memberURL string
	log       *zap.Logger
}

func New(creds domain.Credentials, deps transport.Deps, opts ...Option) *Client {
	deps = deps.WithDefaults()
	c := &Client{
		creds:     creds.Normalize(),
		deps:      deps,
		siteURL:   SiteURL,
		memberURL: MemberURL,
		log:       deps.Log.Named("registrar.idwebhost"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Code() domain.Code { return domain.CodeIDwebhost }

func (c *Client) Capabilities() domain.Capabilities {
	return domain.Capabilities{DomainRoster: true, DeferredPricing: true, CredentialCheck: true}
}

// IsConfigured is true because prices are public. Roster and validation need cookies.
func (c *Client) IsConfigured() bool { return true }

func (c *Client) cookies() string {
	return pricing.NormalizeCookies(c.creds.Cookies)
}

// GetPrices returns register prices from the public price page.
func (c *Client) GetPrices(ctx context.Context) ([]pricing.Quote, error) {
	var quotes []pricing.Quote
	err := c.deps.Observe(source, "get_prices", func() error {
		page, err := c.fetchPricingPage(ctx)
		if err != nil {
			return err
		}
		quotes, err = parsePrices(page.html)
		return err
	})
	if err != nil {
		c.log.Error("Failed to fetch IDwebhost prices", zap.Error(err))
		return nil, err
	}
	return quotes, nil
}

func (c *Client) ValidateCredentials(ctx context.Context) error {
	cookies := c.cookies()
	if cookies == "" {
		return domain.ErrInvalidCredentials
	}

	var html string
	err := c.deps.Observe(source, "validate_credentials", func() error {
		var err error
		html, err = c.deps.Fetcher.Fetch(ctx, fetcher.Request{URL: c.memberURL + "/clientarea.php", Cookies: cookies})
		return err
	})
	if err != nil {
		c.log.Error("Failed to validate IDwebhost credentials", zap.Error(err))
		return errors.Join(domain.ErrInvalidCredentials, err)
	}
	if !strings.Contains(html, welcomeMarker) {
		return domain.ErrInvalidCredentials
	}
	return nil
}

type pricingPage struct {
	html      string
	csrfToken string
	cookie    string
}

// fetchPricingPage loads the price page directly. The session cookies it sets are needed
// for the AJAX probe, so this bypasses the fetcher.
func (c *Client) fetchPricingPage(ctx context.Context) (*pricingPage, error) {
	pageURL := c.siteURL + "/domain-murah"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("User-Agent", fetcher.DefaultUserAgent)

	resp, err := c.deps.Do(ctx, source, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, syncerr.TransientFetch(source, fmt.Sprintf("Request failed (%s)", pageURL), err)
	}
	html := string(raw)
	if strings.TrimSpace(html) == "" {
		return nil, syncerr.TransientFetch(source, "Empty HTML response from IDwebhost.", nil)
	}

	return &pricingPage{
		html:      html,
		csrfToken: extractCSRFToken(html),
		cookie:    cookieHeader(resp.Header.Values("Set-Cookie")),
	}, nil
}

// cookieHeader turns Set-Cookie values into a Cookie request header.
func cookieHeader(setCookies []string) string {
	parts := make([]string, 0, len(setCookies))
	for _, raw := range setCookies {
		pair := strings.TrimSpace(strings.SplitN(raw, ";", 2)[0])
		if pair != "" {
			parts = append(parts, pair)
		}
	}
	return pricing.NormalizeCookies(strings.Join(parts, "; "))
}
