// Package idcloudhost scrapes the public IDCloudHost domain price page. The registrar has
// no API and no account-scoped data, so the client is always configured.
package idcloudhost

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/smallbiznis/domainledger/internal/fetcher"
	"github.com/smallbiznis/domainledger/internal/pricing"
	"github.com/smallbiznis/domainledger/internal/registrar/clients/transport"
	"github.com/smallbiznis/domainledger/internal/registrar/domain"
	"go.uber.org/zap"
)

const (
	PriceURL = "https://idcloudhost.com/domain/"
	source   = "idcloudhost"
)

var (
	selItems    = cascadia.MustCompile("ul.nonmobile > li")
	selFeatures = cascadia.MustCompile("div.price-feature > div")
	selTitle    = cascadia.MustCompile("div.feature-title")
	selValue    = cascadia.MustCompile("div.feature-value")
)

type Option func(*Client)

func WithPriceURL(u string) Option {
	return func(c *Client) { c.priceURL = u }
}

type Client struct {
	domain.Unsupported

	deps     transport.Deps
	priceURL string
	log      *zap.Logger
}

func New(_ domain.Credentials, deps transport.Deps, opts ...Option) *Client {
	deps = deps.WithDefaults()
	c := &Client{
		deps:     deps,
		priceURL: PriceURL,
		log:      deps.Log.Named("registrar.idcloudhost"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Code() domain.Code { return domain.CodeIDCloudHost }

func (c *Client) Capabilities() domain.Capabilities {
	return domain.Capabilities{CredentialCheck: true}
}

func (c *Client) IsConfigured() bool { return true }

// ValidateCredentials always succeeds; there is nothing to authenticate.
func (c *Client) ValidateCredentials(context.Context) error { return nil }

func (c *Client) GetPrices(ctx context.Context) ([]pricing.Quote, error) {
	var html string
	err := c.deps.Observe(source, "get_prices", func() error {
		var err error
		html, err = c.deps.Fetcher.Fetch(ctx, fetcher.Request{URL: c.priceURL})
		return err
	})
	if err != nil {
		c.log.Error("Failed to fetch IDCloudHost prices", zap.Error(err))
		return nil, err
	}

	doc, err := pricing.NewDocument(html)
	if err != nil {
		return nil, err
	}
	return parsePrices(doc), nil
}

// parsePrices reads one quote per list item. Each item holds title/value pairs such as
// "Domain: .com", "Register: Rp 150.000". Renew falls back to register, transfer to renew.
func parsePrices(doc *goquery.Document) []pricing.Quote {
	var quotes []pricing.Quote
	doc.FindMatcher(selItems).Each(func(_ int, li *goquery.Selection) {
		fields := map[string]string{}
		li.FindMatcher(selFeatures).Each(func(_ int, block *goquery.Selection) {
			title := strings.ToLower(pricing.CellText(block.FindMatcher(selTitle).First()))
			value := pricing.CellText(block.FindMatcher(selValue).First())
			if title != "" && value != "" {
				fields[title] = value
			}
		})

		tld := pricing.NormalizeTLD(fields["domain"])
		register := pricing.ParseIDRPricePtr(fields["register"])
		if tld == "" || register == nil {
			return
		}
		renew := pricing.ParseIDRPricePtr(fields["renewal"])
		if renew == nil {
			renew = register
		}
		transfer := pricing.ParseIDRPricePtr(fields["transfer"])
		if transfer == nil {
			transfer = renew
		}
		quotes = append(quotes, pricing.Quote{
			TLD:      tld,
			Register: register,
			Renew:    renew,
			Transfer: transfer,
		})
	})
	return quotes
}
