// Package transport carries the collaborators shared by registrar clients and the JSON
// request helper the native API clients use.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/smallbiznis/domainledger/internal/config"
	"github.com/smallbiznis/domainledger/internal/fetcher"
	"github.com/smallbiznis/domainledger/internal/observability/metrics"
	"github.com/smallbiznis/domainledger/internal/syncerr"
	"go.uber.org/zap"
)

const maxJSONBytes = 8 << 20

// Deps is what every client factory receives.
type Deps struct {
	HTTP       *http.Client
	Fetcher    fetcher.Fetcher
	Limiter    *fetcher.HostLimiter
	SyncConfig *config.SyncConfigHolder
	Metrics    *metrics.SyncMetrics
	Log        *zap.Logger
}

// WithDefaults fills unset collaborators so clients never nil-check.
func (d Deps) WithDefaults() Deps {
	if d.HTTP == nil {
		d.HTTP = &http.Client{Timeout: 30 * time.Second}
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Fetcher == nil {
		d.Fetcher = fetcher.NewResilient(d.HTTP, nil, d.Limiter, d.Metrics, d.Log)
	}
	return d
}

// Observe runs fn and records it as one registrar call.
func (d Deps) Observe(registrar, operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	d.Metrics.ObserveRegistrarCall(registrar, operation, time.Since(start), err)
	return err
}

// Do waits for the host limiter and sends req.
func (d Deps) Do(ctx context.Context, source string, req *http.Request) (*http.Response, error) {
	if err := d.Limiter.Wait(ctx, req.URL.String()); err != nil {
		return nil, syncerr.TransientFetch(source, "rate limit wait", err)
	}
	resp, err := d.HTTP.Do(req.WithContext(ctx))
	if err != nil {
		return nil, syncerr.TransientFetch(source, fmt.Sprintf("Request failed (%s)", req.URL.Redacted()), err)
	}
	return resp, nil
}

// DoJSON sends req and decodes a 200 response into out. Numbers inside untyped fields
// decode as json.Number.
func (d Deps) DoJSON(ctx context.Context, source string, req *http.Request, out any) error {
	resp, err := d.Do(ctx, source, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, maxJSONBytes)
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, body)
		return syncerr.TransientFetch(source, fmt.Sprintf("API request failed: %d", resp.StatusCode), nil)
	}

	decoder := json.NewDecoder(body)
	decoder.UseNumber()
	if err := decoder.Decode(out); err != nil {
		return syncerr.UpstreamFormat(source, "decode response", err)
	}
	return nil
}
