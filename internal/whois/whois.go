// Package whois resolves domain facts from raw WHOIS text.
package whois

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"github.com/smallbiznis/domainledger/internal/config"
	"github.com/smallbiznis/domainledger/internal/facts"
	"github.com/smallbiznis/domainledger/internal/syncerr"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const sourceWHOIS = "whois"

var Module = fx.Module("whois",
	fx.Provide(func(cfg config.Config, log *zap.Logger) *Client {
		return NewClient(DefaultLookup(cfg.FetchTimeout), log)
	}),
)

var privacyKeywords = []string{
	"redacted for privacy",
	"redacted for privac",
	"whoisprivacy",
	"whois protection",
	"whoisprotection",
	"privacy service",
	"data not disclosed",
	"contact privacy",
	"proxy",
	"whoisguard",
	"domain admin",
}

// RawLookup returns the raw WHOIS response for a domain.
type RawLookup func(ctx context.Context, domain string) (string, error)

// DefaultLookup queries the registry WHOIS server over port 43. The underlying client is
// not context aware, so cancellation abandons the query rather than interrupting it.
func DefaultLookup(timeout time.Duration) RawLookup {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := whois.NewClient().SetTimeout(timeout)
	return func(ctx context.Context, domain string) (string, error) {
		type answer struct {
			text string
			err  error
		}
		done := make(chan answer, 1)
		go func() {
			text, err := client.Whois(domain)
			done <- answer{text: text, err: err}
		}()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case a := <-done:
			return a.text, a.err
		}
	}
}

type Client struct {
	raw RawLookup
	log *zap.Logger
}

func NewClient(raw RawLookup, log *zap.Logger) *Client {
	return &Client{raw: raw, log: log.Named("whois.client")}
}

// Lookup queries WHOIS for name. Lock and privacy are always reported; dates and
// nameservers only when the response carries them.
func (c *Client) Lookup(ctx context.Context, name string) (facts.FactSet, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	text, err := c.raw(ctx, name)
	if err != nil {
		if ctx.Err() != nil {
			return facts.FactSet{}, ctx.Err()
		}
		return facts.FactSet{}, syncerr.TransientFetch(sourceWHOIS, "WHOIS lookup failed", err)
	}

	info, err := whoisparser.Parse(text)
	if err != nil {
		if errors.Is(err, whoisparser.ErrNotFoundDomain) {
			return facts.FactSet{}, syncerr.NotFound(sourceWHOIS, fmt.Sprintf("WHOIS info not found for %s", name))
		}
		return facts.FactSet{}, syncerr.UpstreamFormat(sourceWHOIS, "WHOIS response could not be parsed", err)
	}
	if info.Domain == nil {
		return facts.FactSet{}, syncerr.NotFound(sourceWHOIS, fmt.Sprintf("WHOIS info not found for %s", name))
	}

	fs := facts.FactSet{
		Name:             name,
		RegistrationDate: resolveDate(info.Domain.CreatedDateInTime, info.Domain.CreatedDate),
		ExpirationDate:   resolveDate(info.Domain.ExpirationDateInTime, info.Domain.ExpirationDate),
		Nameservers:      facts.CleanNameservers(info.Domain.NameServers),
		SecurityLock:     facts.Bool(transferLocked(text, info.Domain.Status)),
		WhoisPrivacy:     facts.Bool(privacyHinted(text, info.Domain.Status)),
	}
	c.log.Debug("whois lookup parsed",
		zap.String("domain", name),
		zap.Int("nameservers", len(fs.Nameservers)),
		zap.Bool("complete", fs.IsComplete()),
	)
	return fs, nil
}

// transferLocked checks the parsed states and the raw status lines. The parser keeps only
// the first word of each status, so "pending renewal clientTransferProhibited" would be
// lost without the raw scan.
func transferLocked(raw string, states []string) bool {
	for _, s := range states {
		if lockToken(s) {
			return true
		}
	}
	for _, line := range strings.Split(raw, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key != "status" && key != "domain status" {
			continue
		}
		if lockToken(value) {
			return true
		}
	}
	return false
}

func lockToken(s string) bool {
	s = strings.ReplaceAll(strings.ToLower(s), " ", "")
	return strings.Contains(s, "transferprohibited")
}

func privacyHinted(raw string, states []string) bool {
	haystack := strings.ToLower(raw)
	if haystack != "" {
		for _, keyword := range privacyKeywords {
			if strings.Contains(haystack, keyword) {
				return true
			}
		}
	}
	for _, s := range states {
		if strings.Contains(strings.ToLower(s), "redacted") {
			return true
		}
	}
	return false
}

// fallbackLayouts covers registry formats whois-parser does not recognise, such as
// zone-less timestamps and dotted or slashed year-first dates.
var fallbackLayouts = []string{
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02-Jan-2006 15:04:05 MST",
	"2006.01.02",
	"2006/01/02",
}

// resolveDate prefers the time whois-parser already decoded.
func resolveDate(parsed *time.Time, raw string) *time.Time {
	if parsed != nil {
		return facts.Time(parsed.UTC())
	}
	return parseDate(raw)
}

func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return facts.Time(t.UTC())
		}
	}
	return nil
}
