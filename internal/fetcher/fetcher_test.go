package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/smallbiznis/domainledger/internal/config"
	"github.com/smallbiznis/domainledger/internal/syncerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRenderer struct {
	html  string
	err   error
	calls int
	last  Request
}

func (s *stubRenderer) Render(_ context.Context, req Request) (string, error) {
	s.calls++
	s.last = req
	return s.html, s.err
}

func TestFetchDirectSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, acceptHTML, r.Header.Get("Accept"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "sid=1; theme=dark", r.Header.Get("Cookie"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	renderer := &stubRenderer{html: "<html>rendered</html>"}
	f := NewResilient(srv.Client(), renderer, nil, nil, zap.NewNop())

	html, err := f.Fetch(context.Background(), Request{URL: srv.URL, Cookies: "sid=1; theme=dark"})
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", html)
	assert.Zero(t, renderer.calls)
}

func TestFetchFallsBackToRendererOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	renderer := &stubRenderer{html: "<html>rendered</html>"}
	f := NewResilient(srv.Client(), renderer, nil, nil, zap.NewNop())

	html, err := f.Fetch(context.Background(), Request{URL: srv.URL, WaitForSelector: "table#x", Cookies: "a=1"})
	require.NoError(t, err)
	assert.Equal(t, "<html>rendered</html>", html)
	assert.Equal(t, 1, renderer.calls)
	assert.Equal(t, "table#x", renderer.last.WaitForSelector)
	assert.Equal(t, "a=1", renderer.last.Cookies)
}

func TestFetchWithoutRendererReturnsTransientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewResilient(srv.Client(), nil, nil, nil, zap.NewNop())
	_, err := f.Fetch(context.Background(), Request{URL: srv.URL})
	require.Error(t, err)
	assert.True(t, syncerr.IsKind(err, syncerr.KindTransientFetch))
	assert.Contains(t, err.Error(), "Request failed ("+srv.URL+"): 500")
}

func TestFetchBlankBodyAndEmptyFallbackKeepsPrimaryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("   \n"))
	}))
	defer srv.Close()

	renderer := &stubRenderer{html: " "}
	f := NewResilient(srv.Client(), renderer, nil, nil, zap.NewNop())

	_, err := f.Fetch(context.Background(), Request{URL: srv.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Empty HTML response from "+srv.URL)
	assert.Equal(t, 1, renderer.calls)
}

func TestFetchDecodesDeclaredCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		_, _ = w.Write([]byte("<p>caf\xe9</p>"))
	}))
	defer srv.Close()

	f := NewResilient(srv.Client(), nil, nil, nil, zap.NewNop())
	html, err := f.Fetch(context.Background(), Request{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "<p>café</p>", html)
}

func TestScrapingAntRetriesWithStaticBrowser(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		q := r.URL.Query()
		assert.Equal(t, "https://idwebhost.com/domain-murah", q.Get("url"))
		assert.Equal(t, "key-123", q.Get("x-api-key"))
		assert.Equal(t, "SG", q.Get("proxy_country"))
		assert.Equal(t, "sid=1", q.Get("cookies"))
		if n == 1 {
			assert.Empty(t, q.Get("browser"))
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, "false", q.Get("browser"))
		_, _ = w.Write([]byte("<html>static</html>"))
	}))
	defer srv.Close()

	cfg := config.DefaultSyncConfig()
	cfg.ProxyCountries = []string{"SG"}
	ant := NewScrapingAnt("key-123", srv.URL, srv.Client(), config.StaticSyncConfig(cfg), zap.NewNop())

	html, err := ant.Render(context.Background(), Request{URL: "https://idwebhost.com/domain-murah", Cookies: "sid=1"})
	require.NoError(t, err)
	assert.Equal(t, "<html>static</html>", html)
	assert.Equal(t, int32(2), calls.Load())
}

func TestScrapingAntBlankBodiesYieldNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(" "))
	}))
	defer srv.Close()

	ant := NewScrapingAnt("k", srv.URL, srv.Client(), config.StaticSyncConfig(config.DefaultSyncConfig()), zap.NewNop())
	html, err := ant.Render(context.Background(), Request{URL: "https://example.com"})
	require.NoError(t, err)
	assert.Empty(t, html)
}

func TestHostLimiterReusesPerHost(t *testing.T) {
	l := NewHostLimiter(config.StaticSyncConfig(config.DefaultSyncConfig()))
	require.NoError(t, l.Wait(context.Background(), "https://a.example/x"))
	require.NoError(t, l.Wait(context.Background(), "https://A.example/y"))
	assert.Len(t, l.limiters, 1)
	assert.Equal(t, "b.example", hostOf("http://B.example/path"))
}
