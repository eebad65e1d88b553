package rdap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/domainledger/internal/facts"
	"github.com/smallbiznis/domainledger/internal/fetcher"
	"github.com/smallbiznis/domainledger/internal/syncerr"
	"go.uber.org/zap"
)

const sourceRDAP = "rdap"

// Result is the outcome of a lookup. Found is false when the directory has no RDAP
// service for the TLD; that is an expected miss, not an error.
type Result struct {
	Facts facts.FactSet
	Found bool
}

type Client struct {
	directory *Directory
	http      *http.Client
	limiter   *fetcher.HostLimiter
	log       *zap.Logger
}

func NewClient(directory *Directory, client *http.Client, limiter *fetcher.HostLimiter, log *zap.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		directory: directory,
		http:      client,
		limiter:   limiter,
		log:       log.Named("rdap.client"),
	}
}

// TLD returns the last label of name.
func TLD(name string) string {
	name = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), "."))
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Lookup queries {base}/domain/{name} on the RDAP service of the domain's TLD.
func (c *Client) Lookup(ctx context.Context, name string) (Result, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	tld := TLD(name)
	base, ok, err := c.directory.BaseURL(ctx, tld)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		c.log.Debug("no rdap service for tld", zap.String("tld", tld), zap.String("domain", name))
		return Result{}, nil
	}

	target := strings.TrimRight(base, "/") + "/domain/" + url.PathEscape(name)
	if err := c.limiter.Wait(ctx, target); err != nil {
		return Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Accept", "application/rdap+json, application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, syncerr.TransientFetch(sourceRDAP, "Failed to query RDAP", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return Result{}, syncerr.NotFound(sourceRDAP, fmt.Sprintf("RDAP has no record for %s", name))
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return Result{}, syncerr.TransientFetch(sourceRDAP, fmt.Sprintf("RDAP lookup failed with status %d", resp.StatusCode), nil)
	}

	var doc document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return Result{}, syncerr.UpstreamFormat(sourceRDAP, "Invalid RDAP response", err)
	}
	fs := doc.facts()
	fs.Name = name
	return Result{Facts: fs, Found: true}, nil
}
