package porkbun

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
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
	BaseURL = "https://api.porkbun.com"
	source  = "porkbun"

	dateLayout   = "2006-01-02 15:04:05"
	statusOK     = "SUCCESS"
	handshakeTLD = "handshake"
)

type Option func(*Client)

func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(base, "/") }
}

// Client talks to the Porkbun JSON API. Every call is a POST carrying the key pair in the body.
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
		log:     deps.Log.Named("registrar.porkbun"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Code() domain.Code { return domain.CodePorkbun }

func (c *Client) Capabilities() domain.Capabilities {
	return domain.Capabilities{DomainRoster: true, CredentialCheck: true}
}

func (c *Client) IsConfigured() bool {
	return c.creds.APIKey != "" && c.creds.SecretKey != ""
}

type status struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s status) err() error {
	if s.Status == statusOK {
		return nil
	}
	message := s.Message
	if message == "" {
		message = "Unknown error"
	}
	st := s.Status
	if st == "" {
		st = "no status"
	}
	return syncerr.UpstreamFormat(source, fmt.Sprintf("API Error (status: %s): %s", st, message), nil)
}

type tldPricing struct {
	Registration any    `json:"registration"`
	Renewal      any    `json:"renewal"`
	Transfer     any    `json:"transfer"`
	SpecialType  string `json:"specialType"`
}

type listedDomain struct {
	Domain       string `json:"domain"`
	CreateDate   string `json:"createDate"`
	ExpireDate   string `json:"expireDate"`
	SecurityLock any    `json:"securityLock"`
	WhoisPrivacy any    `json:"whoisPrivacy"`
}

// GetPrices reads the public price list. No credentials are needed.
func (c *Client) GetPrices(ctx context.Context) ([]pricing.Quote, error) {
	var resp struct {
		status
		Pricing map[string]tldPricing `json:"pricing"`
	}
	err := c.deps.Observe(source, "get_prices", func() error {
		return c.post(ctx, "/api/json/v3/pricing/get", nil, &resp, func() error { return resp.status.err() })
	})
	if err != nil {
		c.log.Error("Failed to fetch Porkbun prices", zap.Error(err))
		return nil, err
	}

	tlds := make([]string, 0, len(resp.Pricing))
	for tld, item := range resp.Pricing {
		if item.SpecialType == handshakeTLD {
			continue
		}
		tlds = append(tlds, tld)
	}
	sort.Strings(tlds)

	quotes := make([]pricing.Quote, 0, len(tlds))
	for _, tld := range tlds {
		item := resp.Pricing[tld]
		quotes = append(quotes, pricing.Quote{
			TLD:      pricing.NormalizeTLD(tld),
			Register: pricing.ParseAmount(item.Registration),
			Renew:    pricing.ParseAmount(item.Renewal),
			Transfer: pricing.ParseAmount(item.Transfer),
		})
	}
	return quotes, nil
}

func (c *Client) GetDomains(ctx context.Context) ([]facts.FactSet, error) {
	if !c.IsConfigured() {
		return nil, syncerr.Configuration(source, "Porkbun API is not properly configured")
	}

	var resp struct {
		status
		Domains []listedDomain `json:"domains"`
	}
	payload := c.authPayload()
	payload["start"] = "0"
	payload["includeLabels"] = "no"

	err := c.deps.Observe(source, "get_domains", func() error {
		return c.post(ctx, "/api/json/v3/domain/listAll", payload, &resp, func() error { return resp.status.err() })
	})
	if err != nil {
		c.log.Error("Failed to fetch Porkbun domains", zap.Error(err))
		return nil, err
	}

	out := make([]facts.FactSet, 0, len(resp.Domains))
	for _, item := range resp.Domains {
		out = append(out, facts.FactSet{
			Name:             strings.ToLower(strings.TrimSpace(item.Domain)),
			RegistrationDate: parseDate(item.CreateDate),
			ExpirationDate:   parseDate(item.ExpireDate),
			SecurityLock:     facts.Bool(flag(item.SecurityLock)),
			WhoisPrivacy:     facts.Bool(flag(item.WhoisPrivacy)),
		})
	}
	return out, nil
}

func (c *Client) ValidateCredentials(ctx context.Context) error {
	if !c.IsConfigured() {
		return domain.ErrInvalidCredentials
	}

	var resp status
	err := c.deps.Observe(source, "validate_credentials", func() error {
		return c.post(ctx, "/api/json/v3/ping", c.authPayload(), &resp, func() error { return resp.err() })
	})
	if err != nil {
		c.log.Error("Porkbun credentials validation failed", zap.Error(err))
		return errors.Join(domain.ErrInvalidCredentials, err)
	}
	return nil
}

func (c *Client) authPayload() map[string]string {
	return map[string]string{
		"apikey":       c.creds.APIKey,
		"secretapikey": c.creds.SecretKey,
	}
}

// post sends payload as JSON, decodes into out, then runs check on the decoded body.
func (c *Client) post(ctx context.Context, path string, payload map[string]string, out any, check func() error) error {
	body := []byte("{}")
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = encoded
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	if err := c.deps.DoJSON(ctx, source, req, out); err != nil {
		return err
	}
	return check()
}

// parseDate accepts Porkbun's "2006-01-02 15:04:05" dates and unix seconds.
func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if t, err := time.ParseInLocation(dateLayout, raw, time.UTC); err == nil {
		return &t
	}
	if n, err := json.Number(raw).Int64(); err == nil {
		t := time.Unix(n, 0).UTC()
		return &t
	}
	return nil
}

func flag(raw any) bool {
	switch v := raw.(type) {
	case string:
		return v == "1"
	case json.Number:
		return v.String() == "1"
	case bool:
		return v
	default:
		return false
	}
}
