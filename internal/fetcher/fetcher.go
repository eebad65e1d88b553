// Package fetcher retrieves HTML pages from sites that block or throttle plain clients.
// A direct request is tried first; when it fails and a rendering API key is configured
// the page is fetched through ScrapingAnt.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/domainledger/internal/observability/metrics"
	"github.com/smallbiznis/domainledger/internal/syncerr"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	acceptHTML       = "text/html,application/xhtml+xml"
	maxBodyBytes     = 16 << 20
)

// Request describes one page fetch.
type Request struct {
	URL             string
	Cookies         string
	WaitForSelector string
	// Headers override the browser-like defaults of the direct attempt.
	Headers map[string]string
}

// Fetcher returns the HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (string, error)
}

// Renderer fetches a page through a remote rendering service. It returns "" with a nil
// error when the service produced nothing usable.
type Renderer interface {
	Render(ctx context.Context, req Request) (string, error)
}

// Resilient is the direct-then-rendered Fetcher.
type Resilient struct {
	client   *http.Client
	renderer Renderer
	limiter  *HostLimiter
	metrics  *metrics.SyncMetrics
	log      *zap.Logger
}

// NewResilient builds a fetcher. A nil renderer disables the fallback tier.
func NewResilient(client *http.Client, renderer Renderer, limiter *HostLimiter, m *metrics.SyncMetrics, log *zap.Logger) *Resilient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Resilient{
		client:   client,
		renderer: renderer,
		limiter:  limiter,
		metrics:  m,
		log:      log.Named("fetcher"),
	}
}

// Fetch returns the first non-blank body from the direct request or the renderer. When
// both fail the error of the direct attempt is returned; every direct failure carries one.
func (f *Resilient) Fetch(ctx context.Context, req Request) (string, error) {
	html, primaryErr := f.direct(ctx, req)
	if primaryErr == nil {
		f.metrics.IncFetchAttempt(metrics.FetchTierDirect, metrics.OutcomeOK)
		return html, nil
	}
	f.metrics.IncFetchAttempt(metrics.FetchTierDirect, metrics.OutcomeError)

	if f.renderer == nil {
		f.log.Info("rendering fallback not enabled, skipping", zap.String("url", req.URL), zap.Error(primaryErr))
	} else {
		f.log.Info("rendering fallback attempt", zap.String("url", req.URL), zap.String("wait_for_selector", req.WaitForSelector))
		rendered, err := f.renderer.Render(ctx, req)
		switch {
		case err != nil:
			f.metrics.IncFetchAttempt(metrics.FetchTierRendered, metrics.OutcomeError)
			f.log.Warn("rendering fallback failed", zap.String("url", req.URL), zap.Error(err))
		case strings.TrimSpace(rendered) == "":
			f.metrics.IncFetchAttempt(metrics.FetchTierRendered, metrics.OutcomeEmpty)
		default:
			f.metrics.IncFetchAttempt(metrics.FetchTierRendered, metrics.OutcomeOK)
			f.log.Info("rendering fallback succeeded", zap.String("url", req.URL))
			return rendered, nil
		}
	}

	return "", primaryErr
}

func (f *Resilient) direct(ctx context.Context, req Request) (string, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, req.URL); err != nil {
			return "", syncerr.TransientFetch("fetcher", fmt.Sprintf("Request failed (%s): rate limit wait", req.URL), err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return "", syncerr.TransientFetch("fetcher", fmt.Sprintf("Request failed (%s)", req.URL), err)
	}
	httpReq.Header.Set("Accept", acceptHTML)
	httpReq.Header.Set("User-Agent", DefaultUserAgent)
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if cookies := strings.TrimSpace(req.Cookies); cookies != "" {
		httpReq.Header.Set("Cookie", cookies)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return "", syncerr.TransientFetch("fetcher", fmt.Sprintf("Request failed (%s)", req.URL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		f.log.Warn("direct fetch failed, will try fallback", zap.String("url", req.URL), zap.Int("status", resp.StatusCode))
		return "", syncerr.TransientFetch("fetcher", fmt.Sprintf("Request failed (%s): %d", req.URL, resp.StatusCode), nil)
	}

	body, err := readDecoded(resp)
	if err != nil {
		return "", syncerr.TransientFetch("fetcher", fmt.Sprintf("Request failed (%s)", req.URL), err)
	}
	if strings.TrimSpace(body) == "" {
		return "", syncerr.TransientFetch("fetcher", fmt.Sprintf("Empty HTML response from %s", req.URL), nil)
	}
	return body, nil
}

// readDecoded converts the body to UTF-8 using the declared charset, or by sniffing the
// document when none is declared.
func readDecoded(resp *http.Response) (string, error) {
	body := io.LimitReader(resp.Body, maxBodyBytes)
	contentType := resp.Header.Get("Content-Type")

	var reader io.Reader
	if _, params, err := mime.ParseMediaType(contentType); err == nil && params["charset"] != "" {
		if enc, err := htmlindex.Get(params["charset"]); err == nil {
			reader = transform.NewReader(body, enc.NewDecoder())
		}
	}
	if reader == nil {
		sniffed, err := charset.NewReader(body, contentType)
		if err != nil {
			return "", err
		}
		reader = sniffed
	}

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
