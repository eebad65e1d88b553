package rdap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/domainledger/internal/clock"
	"github.com/smallbiznis/domainledger/internal/syncerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&Entry{}))
	return db
}

func newTestDirectory(t *testing.T, db *gorm.DB, sourceURL string) *Directory {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return NewDirectory(db, NewRepository(), node, nil, nil, zap.NewNop()).WithSourceURL(sourceURL)
}

func TestDirectorySyncCountsCreatesAndUpdates(t *testing.T) {
	body := `{"services":[[["com","NET"],["https://rdap.verisign.example/com/v1/","https://backup.example/"]],[["id"],["https://rdap.pandi.example/"]],[["org"],[]]]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	db := newTestDB(t)
	dir := newTestDirectory(t, db, srv.URL)
	ctx := context.Background()

	result, err := dir.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Total: 3, Created: 3}, result)

	url, ok, err := dir.BaseURL(ctx, "NET")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://rdap.verisign.example/com/v1/", url)

	body = `{"services":[[["com","net"],["https://rdap.verisign.example/com/v1/"]],[["id"],["https://rdap.id.example/"]]]}`
	result, err = dir.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Total: 3, Updated: 1}, result)

	count, err := NewRepository().Count(ctx, db)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	url, _, err = dir.BaseURL(ctx, "id")
	require.NoError(t, err)
	assert.Equal(t, "https://rdap.id.example/", url)
}

func TestDirectoryUsesClockForStampsAndCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"services":[[["id"],["https://rdap.pandi.example/"]]]}`))
	}))
	defer srv.Close()

	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	fake := clock.NewFakeClock(start)
	db := newTestDB(t)
	dir := newTestDirectory(t, db, srv.URL).WithClock(fake)
	ctx := context.Background()

	_, err := dir.Sync(ctx)
	require.NoError(t, err)
	var entry Entry
	require.NoError(t, db.Where("tld = ?", "id").First(&entry).Error)
	assert.True(t, start.Equal(entry.CreatedAt), "created_at %s", entry.CreatedAt)

	url, _, err := dir.BaseURL(ctx, "id")
	require.NoError(t, err)
	assert.Equal(t, "https://rdap.pandi.example/", url)

	require.NoError(t, db.Exec(`UPDATE rdaps SET rdap = ? WHERE tld = ?`, "https://rdap.moved.example/", "id").Error)
	url, _, err = dir.BaseURL(ctx, "id")
	require.NoError(t, err)
	assert.Equal(t, "https://rdap.pandi.example/", url, "served from cache")

	fake.Advance(directoryCacheTTL)
	url, _, err = dir.BaseURL(ctx, "id")
	require.NoError(t, err)
	assert.Equal(t, "https://rdap.moved.example/", url)
}

func TestDirectorySyncEmptyFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"services":[]}`))
	}))
	defer srv.Close()

	result, err := newTestDirectory(t, newTestDB(t), srv.URL).Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SyncResult{}, result)
}

func TestDirectoryFetchErrors(t *testing.T) {
	status := http.StatusBadGateway
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()
	dir := newTestDirectory(t, newTestDB(t), srv.URL)

	_, err := dir.Sync(context.Background())
	assert.True(t, syncerr.IsKind(err, syncerr.KindTransientFetch))

	status = http.StatusOK
	_, err = dir.Sync(context.Background())
	assert.True(t, syncerr.IsKind(err, syncerr.KindUpstreamFormat))
}

const exampleDomainJSON = `{
  "objectClassName": "domain",
  "ldhName": "EXAMPLE.ID",
  "status": ["client transfer prohibited", "active"],
  "events": [
    {"eventAction": "registration", "eventDate": "2019-03-04T05:06:07Z"},
    {"eventAction": "expiration", "eventDate": "2027-03-04T05:06:07Z"},
    {"eventAction": "last changed", "eventDate": "2024-01-01T00:00:00Z"}
  ],
  "nameservers": [{"ldhName": "NS1.EXAMPLE.NET"}, {"ldhName": "ns2.example.net"}, {"ldhName": ""}],
  "entities": [{"roles": ["registrant"], "remarks": [{"title": "REDACTED FOR PRIVACY"}]}]
}`

func newLookupFixture(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	db := newTestDB(t)
	require.NoError(t, db.Create(&Entry{ID: 1, TLD: "id", RDAP: srv.URL + "/rdap/"}).Error)
	dir := newTestDirectory(t, db, "")
	return NewClient(dir, srv.Client(), nil, zap.NewNop())
}

func TestLookupParsesDomain(t *testing.T) {
	var path, accept string
	client := newLookupFixture(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		accept = r.Header.Get("Accept")
		_, _ = w.Write([]byte(exampleDomainJSON))
	})

	result, err := client.Lookup(context.Background(), "Example.ID")
	require.NoError(t, err)
	assert.Equal(t, "/rdap/domain/example.id", path)
	assert.Contains(t, accept, "application/rdap+json")

	require.True(t, result.Found)
	fs := result.Facts
	assert.Equal(t, "example.id", fs.Name)
	require.NotNil(t, fs.RegistrationDate)
	assert.Equal(t, time.Date(2019, 3, 4, 5, 6, 7, 0, time.UTC), *fs.RegistrationDate)
	require.NotNil(t, fs.ExpirationDate)
	assert.Equal(t, 2027, fs.ExpirationDate.Year())
	assert.Equal(t, []string{"ns1.example.net", "ns2.example.net"}, fs.Nameservers)
	assert.True(t, *fs.SecurityLock)
	assert.True(t, *fs.WhoisPrivacy)
}

func TestLookupStatusMapping(t *testing.T) {
	status := http.StatusNotFound
	client := newLookupFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{`))
	})
	ctx := context.Background()

	_, err := client.Lookup(ctx, "missing.id")
	assert.True(t, syncerr.IsKind(err, syncerr.KindNotFound))

	status = http.StatusServiceUnavailable
	_, err = client.Lookup(ctx, "busy.id")
	require.Error(t, err)
	assert.True(t, syncerr.IsKind(err, syncerr.KindTransientFetch))
	assert.Contains(t, err.Error(), "RDAP lookup failed with status 503")

	status = http.StatusOK
	_, err = client.Lookup(ctx, "broken.id")
	assert.True(t, syncerr.IsKind(err, syncerr.KindUpstreamFormat))
}

func TestLookupWithoutServiceSkips(t *testing.T) {
	calls := 0
	client := newLookupFixture(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
	})

	result, err := client.Lookup(context.Background(), "example.xyz")
	require.NoError(t, err)
	assert.False(t, result.Found)
	assert.Zero(t, calls)
}

func TestParseDefaultsLockAndPrivacyToFalse(t *testing.T) {
	fs := document{Status: []string{"active"}}.facts()
	assert.False(t, *fs.SecurityLock)
	assert.False(t, *fs.WhoisPrivacy)
	assert.Nil(t, fs.RegistrationDate)
	assert.Nil(t, fs.Nameservers)
}

func TestTLD(t *testing.T) {
	assert.Equal(t, "id", TLD("shop.co.ID"))
	assert.Equal(t, "com", TLD("example.com."))
	assert.Equal(t, "localhost", TLD("localhost"))
}
