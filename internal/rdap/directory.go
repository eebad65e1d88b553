package rdap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/domainledger/internal/cache"
	"github.com/smallbiznis/domainledger/internal/clock"
	"github.com/smallbiznis/domainledger/internal/fetcher"
	"github.com/smallbiznis/domainledger/internal/syncerr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// IANABootstrapURL is the RDAP bootstrap file for DNS.
	IANABootstrapURL = "https://data.iana.org/rdap/dns.json"

	directoryCacheTTL = 30 * time.Minute
	sourceIANA        = "iana"
)

// Service is one (tld, base URL) pair of the bootstrap file.
type Service struct {
	TLD string
	URL string
}

// SyncResult counts what a directory sync changed.
type SyncResult struct {
	Total   int
	Created int
	Updated int
}

// Directory owns the local copy of the IANA RDAP bootstrap registry.
type Directory struct {
	db        *gorm.DB
	repo      Repository
	genID     *snowflake.Node
	http      *http.Client
	limiter   *fetcher.HostLimiter
	urls      cache.Cache[string, string]
	clock     clock.Clock
	sourceURL string
	log       *zap.Logger
}

func NewDirectory(db *gorm.DB, repo Repository, genID *snowflake.Node, client *http.Client, limiter *fetcher.HostLimiter, log *zap.Logger) *Directory {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Directory{
		db:        db,
		repo:      repo,
		genID:     genID,
		http:      client,
		limiter:   limiter,
		urls:      cache.NewTTLCache[string, string](),
		clock:     clock.SystemClock{},
		sourceURL: IANABootstrapURL,
		log:       log.Named("rdap.directory"),
	}
}

// WithClock stamps rows and expires cached lookups using c.
func (d *Directory) WithClock(c clock.Clock) *Directory {
	if c == nil {
		return d
	}
	d.clock = c
	d.urls = cache.NewTTLCacheWithClock[string, string](c.Now)
	return d
}

// WithSourceURL points the directory at another bootstrap file.
func (d *Directory) WithSourceURL(url string) *Directory {
	d.sourceURL = url
	return d
}

type bootstrapFile struct {
	Services [][][]string `json:"services"`
}

// FetchServices downloads the bootstrap file. Each service row is [[tlds...], [urls...]];
// the first URL serves every TLD of its row.
func (d *Directory) FetchServices(ctx context.Context) ([]Service, error) {
	if err := d.limiter.Wait(ctx, d.sourceURL); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.sourceURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, syncerr.TransientFetch(sourceIANA, "Failed to fetch RDAP data from IANA.", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, syncerr.TransientFetch(sourceIANA, fmt.Sprintf("IANA RDAP fetch returned %d", resp.StatusCode), nil)
	}

	var file bootstrapFile
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return nil, syncerr.UpstreamFormat(sourceIANA, "Invalid RDAP bootstrap file", err)
	}

	var services []Service
	for _, row := range file.Services {
		if len(row) < 2 || len(row[1]) == 0 {
			continue
		}
		url := strings.TrimSpace(row[1][0])
		if url == "" {
			continue
		}
		for _, tld := range row[0] {
			tld = strings.ToLower(strings.TrimSpace(tld))
			if tld == "" {
				continue
			}
			services = append(services, Service{TLD: tld, URL: url})
		}
	}
	return services, nil
}

// Sync fetches the bootstrap file and upserts it. An empty file changes nothing.
func (d *Directory) Sync(ctx context.Context) (SyncResult, error) {
	services, err := d.FetchServices(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	result := SyncResult{Total: len(services)}
	if len(services) == 0 {
		return result, nil
	}

	err = d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := d.repo.URLs(ctx, tx)
		if err != nil {
			return err
		}
		now := d.clock.Now()
		for _, svc := range services {
			current, ok := existing[svc.TLD]
			switch {
			case !ok:
				entry := Entry{
					ID:        d.genID.Generate().Int64(),
					TLD:       svc.TLD,
					RDAP:      svc.URL,
					CreatedAt: now,
					UpdatedAt: now,
				}
				if err := d.repo.Insert(ctx, tx, &entry); err != nil {
					return err
				}
				existing[svc.TLD] = svc.URL
				result.Created++
			case current != svc.URL:
				if err := d.repo.UpdateURL(ctx, tx, svc.TLD, svc.URL, now); err != nil {
					return err
				}
				existing[svc.TLD] = svc.URL
				result.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return SyncResult{}, err
	}

	d.urls.Purge()
	d.log.Info("rdap directory synced",
		zap.Int("total", result.Total),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
	)
	return result, nil
}

// BaseURL returns the RDAP base URL serving tld. ok is false when the directory has none.
func (d *Directory) BaseURL(ctx context.Context, tld string) (url string, ok bool, err error) {
	tld = strings.ToLower(strings.TrimSpace(tld))
	if tld == "" {
		return "", false, nil
	}
	if cached, hit := d.urls.Get(tld); hit {
		return cached, cached != "", nil
	}
	url, err = d.repo.FindURL(ctx, d.db, tld)
	if err != nil {
		return "", false, err
	}
	// Misses are cached as "".
	d.urls.Set(tld, url, directoryCacheTTL)
	return url, url != "", nil
}
