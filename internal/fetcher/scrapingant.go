package fetcher

import (
	"context"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/domainledger/internal/config"
	"go.uber.org/zap"
)

const ScrapingAntEndpoint = "https://api.scrapingant.com/v2/general"

// ScrapingAnt renders pages through the ScrapingAnt general endpoint. A browser render
// is tried first, then a static fetch with browser=false.
type ScrapingAnt struct {
	apiKey   string
	endpoint string
	client   *http.Client
	cfg      *config.SyncConfigHolder
	pick     func(n int) int
	log      *zap.Logger
}

func NewScrapingAnt(apiKey, endpoint string, client *http.Client, cfg *config.SyncConfigHolder, log *zap.Logger) *ScrapingAnt {
	if endpoint == "" {
		endpoint = ScrapingAntEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 90 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ScrapingAnt{
		apiKey:   strings.TrimSpace(apiKey),
		endpoint: endpoint,
		client:   client,
		cfg:      cfg,
		pick:     rand.IntN,
		log:      log.Named("scrapingant"),
	}
}

func (s *ScrapingAnt) Render(ctx context.Context, req Request) (string, error) {
	query := url.Values{}
	query.Set("url", req.URL)
	query.Set("x-api-key", s.apiKey)
	if country := s.proxyCountry(); country != "" {
		query.Set("proxy_country", country)
	}
	if req.WaitForSelector != "" {
		query.Set("wait_for_selector", req.WaitForSelector)
	}
	if cookies := strings.TrimSpace(req.Cookies); cookies != "" {
		query.Set("cookies", cookies)
	}

	if html := s.attempt(ctx, query, req.URL); html != "" {
		return html, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	query.Set("browser", "false")
	return s.attempt(ctx, query, req.URL), nil
}

// attempt returns "" on any failure; failures are logged, never returned.
func (s *ScrapingAnt) attempt(ctx context.Context, query url.Values, target string) string {
	log := s.log.With(
		zap.String("url", target),
		zap.String("proxy_country", query.Get("proxy_country")),
		zap.String("browser", query.Get("browser")),
		zap.Bool("cookies_present", query.Get("cookies") != ""),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		log.Warn("rendering request failed", zap.Error(err))
		return ""
	}
	resp, err := s.client.Do(httpReq)
	if err != nil {
		log.Warn("rendering request failed", zap.String("error", redactKey(err.Error(), s.apiKey)))
		return ""
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		log.Warn("rendering response unreadable", zap.Error(err))
		return ""
	}
	if resp.StatusCode != http.StatusOK {
		log.Warn("rendering returned non-200 status", zap.Int("status_code", resp.StatusCode))
		return ""
	}
	if strings.TrimSpace(string(body)) == "" {
		log.Warn("rendering returned empty body", zap.Int("status_code", resp.StatusCode))
		return ""
	}
	return string(body)
}

func (s *ScrapingAnt) proxyCountry() string {
	pool := s.cfg.Get().ProxyCountries
	if len(pool) == 0 {
		return ""
	}
	return pool[s.pick(len(pool))]
}

func redactKey(msg, key string) string {
	if key == "" {
		return msg
	}
	return strings.ReplaceAll(msg, key, "***")
}
