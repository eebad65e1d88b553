package dynadot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/domainledger/internal/facts"
	"github.com/smallbiznis/domainledger/internal/pricing"
	"github.com/smallbiznis/domainledger/internal/registrar/clients/transport"
	"github.com/smallbiznis/domainledger/internal/registrar/domain"
	"github.com/smallbiznis/domainledger/internal/syncerr"
	"go.uber.org/zap"
)

const (
	BaseURL = "https://api.dynadot.com"
	source  = "dynadot"

	// Timestamps above this are milliseconds.
	millisecondThreshold = 10_000_000_000
)

type Option func(*Client)

func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(base, "/") }
}

// Client talks to the Dynadot REST API with a bearer API key.
type Client struct {
	domain.Unsupported

	creds   domain.Credentials
	deps    transport.Deps
	baseURL string
	log     *zap.Logger
}

func New(creds domain.Credentials, deps transport.Deps, opts ...Option) *Client {
	deps = deps.WithDefaults()
	c := &Client{
		creds:   creds.Normalize(),
		deps:    deps,
		baseURL: BaseURL,
		log:     deps.Log.Named("registrar.dynadot"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Code() domain.Code { return domain.CodeDynadot }

func (c *Client) Capabilities() domain.Capabilities {
	return domain.Capabilities{DomainLookup: true, DomainRoster: true, CredentialCheck: true}
}

func (c *Client) IsConfigured() bool {
	return c.creds.APIKey != ""
}

type envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func (e envelope[T]) err() error {
	if e.Code == http.StatusOK {
		return nil
	}
	message := e.Message
	if message == "" {
		message = "Unknown error"
	}
	return syncerr.UpstreamFormat(source, fmt.Sprintf("API Error (code: %d): %s", e.Code, message), nil)
}

type tldPrice struct {
	TLD                   string `json:"tld"`
	AllYearsRegisterPrice []any  `json:"allYearsRegisterPrice"`
	AllYearsRenewPrice    []any  `json:"allYearsRenewPrice"`
	TransferPrice         any    `json:"transferPrice"`
	RestorePrice          any    `json:"restorePrice"`
	SupportPrivacy        string `json:"supportPrivacy"`
	GraceFeePrice         any    `json:"graceFeePrice"`
}

type domainInfo struct {
	DomainName   string      `json:"domainName"`
	Registration json.Number `json:"registration"`
	Expiration   json.Number `json:"expiration"`
	Locked       string      `json:"locked"`
	Privacy      string      `json:"privacy"`
	GlueInfo     struct {
		NameServerSettings struct {
			NameServers []struct {
				ServerName string `json:"server_name"`
			} `json:"name_servers"`
		} `json:"name_server_settings"`
	} `json:"glueInfo"`
}

func (c *Client) GetPrices(ctx context.Context) ([]pricing.Quote, error) {
	if !c.IsConfigured() {
		return nil, c.notConfigured()
	}

	var resp envelope[struct {
		TLDPriceList []tldPrice `json:"tldPriceList"`
	}]
	err := c.deps.Observe(source, "get_prices", func() error {
		return c.get(ctx, "/restful/v1/tld/get_tld_price", url.Values{"currency": {"usd"}}, &resp)
	})
	if err != nil {
		c.log.Error("Failed to fetch Dynadot prices", zap.Error(err))
		return nil, err
	}

	quotes := make([]pricing.Quote, 0, len(resp.Data.TLDPriceList))
	for _, item := range resp.Data.TLDPriceList {
		tld := pricing.NormalizeTLD(item.TLD)
		if tld == "" {
			continue
		}
		quote := pricing.Quote{
			TLD:      tld,
			Register: pricing.ParseAmount(first(item.AllYearsRegisterPrice)),
			Renew:    pricing.ParseAmount(first(item.AllYearsRenewPrice)),
			Transfer: pricing.ParseAmount(item.TransferPrice),
			Restore:  pricing.ParseAmount(item.RestorePrice),
			Misc:     pricing.ParseAmount(item.GraceFeePrice),
		}
		if item.SupportPrivacy == "Yes" {
			quote.Privacy = pricing.Ptr(0)
		}
		quotes = append(quotes, quote)
	}
	return quotes, nil
}

func (c *Client) GetDomains(ctx context.Context) ([]facts.FactSet, error) {
	if !c.IsConfigured() {
		return nil, c.notConfigured()
	}

	var resp envelope[struct {
		DomainInfo []domainInfo `json:"domainInfo"`
	}]
	err := c.deps.Observe(source, "get_domains", func() error {
		return c.get(ctx, "/restful/v1/domains", url.Values{"currency": {"usd"}}, &resp)
	})
	if err != nil {
		c.log.Error("Failed to fetch Dynadot domains", zap.Error(err))
		return nil, err
	}

	out := make([]facts.FactSet, 0, len(resp.Data.DomainInfo))
	for _, item := range resp.Data.DomainInfo {
		out = append(out, item.factSet())
	}
	return out, nil
}

// GetDomain returns nil without error when Dynadot has no record for name.
func (c *Client) GetDomain(ctx context.Context, name string) (*facts.FactSet, error) {
	if !c.IsConfigured() {
		return nil, c.notConfigured()
	}

	var resp envelope[struct {
		DomainInfo []domainInfo `json:"domainInfo"`
	}]
	err := c.deps.Observe(source, "get_domain", func() error {
		return c.get(ctx, "/restful/v1/domains/"+url.PathEscape(name), nil, &resp)
	})
	if err != nil {
		c.log.Error("Failed to fetch Dynadot domain", zap.String("domain", name), zap.Error(err))
		return nil, err
	}
	if len(resp.Data.DomainInfo) == 0 {
		return nil, nil
	}
	fs := resp.Data.DomainInfo[0].factSet()
	return &fs, nil
}

func (c *Client) ValidateCredentials(ctx context.Context) error {
	if !c.IsConfigured() {
		return domain.ErrInvalidCredentials
	}

	var resp envelope[json.RawMessage]
	err := c.deps.Observe(source, "validate_credentials", func() error {
		return c.get(ctx, "/restful/v1/tld/get_tld_price", url.Values{"currency": {"usd"}, "count_per_page": {"1"}}, &resp)
	})
	if err != nil {
		c.log.Error("Dynadot credentials validation failed", zap.Error(err))
		return errors.Join(domain.ErrInvalidCredentials, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{ err() error }) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.creds.APIKey)

	if err := c.deps.DoJSON(ctx, source, req, out); err != nil {
		return err
	}
	return out.err()
}

func (c *Client) notConfigured() error {
	return syncerr.Configuration(source, "Dynadot API is not properly configured")
}

func (d domainInfo) factSet() facts.FactSet {
	nameservers := make([]string, 0, len(d.GlueInfo.NameServerSettings.NameServers))
	for _, ns := range d.GlueInfo.NameServerSettings.NameServers {
		nameservers = append(nameservers, ns.ServerName)
	}
	privacy := strings.ToLower(d.Privacy)
	return facts.FactSet{
		Name:             strings.ToLower(strings.TrimSpace(d.DomainName)),
		RegistrationDate: parseTimestamp(d.Registration),
		ExpirationDate:   parseTimestamp(d.Expiration),
		Nameservers:      facts.CleanNameservers(nameservers),
		SecurityLock:     facts.Bool(strings.EqualFold(d.Locked, "yes")),
		WhoisPrivacy:     facts.Bool(privacy == "full privacy" || privacy == "partial privacy"),
	}
}

func parseTimestamp(raw json.Number) *time.Time {
	if raw == "" {
		return nil
	}
	value, err := raw.Int64()
	if err != nil {
		return nil
	}
	var t time.Time
	if value > millisecondThreshold {
		t = time.UnixMilli(value).UTC()
	} else {
		t = time.Unix(value, 0).UTC()
	}
	return &t
}

func first(values []any) any {
	if len(values) == 0 {
		return nil
	}
	return values[0]
}
