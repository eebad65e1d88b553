package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/domainledger/internal/config"
	domaindomain "github.com/smallbiznis/domainledger/internal/domains/domain"
	feedomain "github.com/smallbiznis/domainledger/internal/fee/domain"
	"github.com/smallbiznis/domainledger/internal/fee/report"
	"github.com/smallbiznis/domainledger/internal/notification"
	obscontext "github.com/smallbiznis/domainledger/internal/observability/context"
	obslogger "github.com/smallbiznis/domainledger/internal/observability/logger"
	"github.com/smallbiznis/domainledger/internal/queue"
	"github.com/smallbiznis/domainledger/internal/ratelimit"
	registrardomain "github.com/smallbiznis/domainledger/internal/registrar/domain"
	"github.com/smallbiznis/domainledger/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDomains struct {
	domaindomain.Service
	items     map[int64]*domaindomain.Domain
	created   domaindomain.CreateRequest
	createErr error
	listReq   domaindomain.ListRequest
	syncUser  string
	synced    []int64
}

func (f *fakeDomains) Create(_ context.Context, req domaindomain.CreateRequest) (*domaindomain.Domain, error) {
	f.created = req
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &domaindomain.Domain{ID: 1, Name: req.Name, RegistrarID: req.RegistrarID}, nil
}

func (f *fakeDomains) Get(_ context.Context, id int64) (*domaindomain.Domain, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, domaindomain.ErrDomainNotFound
	}
	return item, nil
}

func (f *fakeDomains) List(_ context.Context, req domaindomain.ListRequest) (*domaindomain.ListResponse, error) {
	f.listReq = req
	return &domaindomain.ListResponse{Domains: []*domaindomain.Domain{}, PageInfo: &pagination.PageInfo{}}, nil
}

func (f *fakeDomains) RequestSync(ctx context.Context, id int64) error {
	if _, ok := f.items[id]; !ok {
		return domaindomain.ErrDomainNotFound
	}
	f.syncUser = obscontext.UserIDFromContext(ctx)
	f.synced = append(f.synced, id)
	return nil
}

type fakeRegistrars struct {
	registrardomain.Service
	creds  registrardomain.Credentials
	setErr error
}

func (f *fakeRegistrars) Get(_ context.Context, id int64) (*registrardomain.Registrar, error) {
	if id != 5 {
		return nil, registrardomain.ErrRegistrarNotFound
	}
	return &registrardomain.Registrar{ID: 5, Name: "Porkbun", APISupport: registrardomain.CodePorkbun}, nil
}

func (f *fakeRegistrars) SetCredentials(_ context.Context, _ int64, creds registrardomain.Credentials) error {
	f.creds = creds
	return f.setErr
}

type fakeFees struct {
	feedomain.Service
}

func (fakeFees) List(_ context.Context, registrarID int64) ([]feedomain.Fee, error) {
	return []feedomain.Fee{{ID: 9, RegistrarID: registrarID, TLD: "com"}}, nil
}

type recordingQueue struct {
	items []queue.WorkItem
}

func (q *recordingQueue) Enqueue(_ context.Context, items ...queue.WorkItem) error {
	q.items = append(q.items, items...)
	return nil
}

type fakeNotifications struct {
	req notification.ListRequest
}

func (f *fakeNotifications) List(_ context.Context, req notification.ListRequest) (*notification.ListResponse, error) {
	f.req = req
	return &notification.ListResponse{Notifications: []*notification.Notification{}, PageInfo: &pagination.PageInfo{}}, nil
}

type fakeReport struct {
	err error
}

func (f fakeReport) Matrix(context.Context) (report.Matrix, error) {
	return report.Matrix{}, f.err
}

func (f fakeReport) WriteXLSX(_ context.Context, w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	_, err := w.Write([]byte("PK"))
	return err
}

func (f fakeReport) WritePDF(_ context.Context, w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	_, err := w.Write([]byte("%PDF-"))
	return err
}

type testServer struct {
	engine        *gin.Engine
	domains       *fakeDomains
	registrars    *fakeRegistrars
	queue         *recordingQueue
	notifications *fakeNotifications
}

func newTestServer(t *testing.T, rep PriceReport) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	locker, limiter := ratelimit.NewBackends(nil)
	guard := ratelimit.NewSyncGuard(locker, limiter, nil, config.Config{ManualSyncRate: 1, ManualSyncBurst: 1}, zap.NewNop())

	ts := &testServer{
		engine: NewEngine(zap.NewNop()),
		domains: &fakeDomains{items: map[int64]*domaindomain.Domain{
			7: {ID: 7, Name: "example.id"},
		}},
		registrars:    &fakeRegistrars{},
		queue:         &recordingQueue{},
		notifications: &fakeNotifications{},
	}
	NewServer(Params{
		Engine:        ts.engine,
		Log:           zap.NewNop(),
		Domains:       ts.domains,
		Registrars:    ts.registrars,
		Fees:          fakeFees{},
		Queue:         ts.queue,
		Limiter:       guard,
		Notifications: ts.notifications,
		Report:        rep,
	})
	return ts
}

func (ts *testServer) do(method, path, body, userID string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(obslogger.UserIDHeader, userID)
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestCreateDomain(t *testing.T) {
	ts := newTestServer(t, fakeReport{})

	rec := ts.do(http.MethodPost, "/v1/domains", `{"domain_name":" example.id ","registrar_id":"5"}`, "42")
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data struct {
			ID          string `json:"id"`
			Name        string `json:"domain_name"`
			RegistrarID string `json:"registrar_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "1", resp.Data.ID)
	assert.Equal(t, "example.id", resp.Data.Name)
	assert.Equal(t, "5", resp.Data.RegistrarID)
	require.NotNil(t, ts.domains.created.RegistrarID)
	assert.Equal(t, int64(5), *ts.domains.created.RegistrarID)
}

func TestCreateDomainErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"invalid name", domaindomain.ErrInvalidName, http.StatusBadRequest, "validation_error"},
		{"duplicate", domaindomain.ErrDuplicateName, http.StatusConflict, "conflict"},
		{"unknown registrar", registrardomain.ErrRegistrarNotFound, http.StatusNotFound, "not_found"},
		{"storage", errors.New("db down"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, fakeReport{})
			ts.domains.createErr = tc.err

			rec := ts.do(http.MethodPost, "/v1/domains", `{"domain_name":"bad name"}`, "")
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.kind, decodeError(t, rec).Type)
		})
	}
}

func TestCreateDomainRejectsMalformedBody(t *testing.T) {
	ts := newTestServer(t, fakeReport{})

	rec := ts.do(http.MethodPost, "/v1/domains", `{"domain_name":`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "request", payload.Errors[0].Field)
}

func TestGetDomain(t *testing.T) {
	ts := newTestServer(t, fakeReport{})

	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/v1/domains/7", "", "").Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/v1/domains/8", "", "").Code)

	rec := ts.do(http.MethodGet, "/v1/domains/abc", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_id", decodeError(t, rec).Errors[0].Code)
}

func TestListDomainsFilters(t *testing.T) {
	ts := newTestServer(t, fakeReport{})

	rec := ts.do(http.MethodGet, "/v1/domains?registrar_id=5&status=completed&page_size=20", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, ts.domains.listReq.RegistrarID)
	assert.Equal(t, int64(5), *ts.domains.listReq.RegistrarID)
	require.NotNil(t, ts.domains.listReq.Status)
	assert.Equal(t, domaindomain.StatusCompleted, *ts.domains.listReq.Status)
	assert.Equal(t, 20, ts.domains.listReq.PageSize)

	rec = ts.do(http.MethodGet, "/v1/domains?status=6", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domaindomain.StatusFailedSyncRDAP, *ts.domains.listReq.Status)

	rec = ts.do(http.MethodGet, "/v1/domains?status=archived", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncDomainIsRateLimitedPerUser(t *testing.T) {
	ts := newTestServer(t, fakeReport{})

	rec := ts.do(http.MethodPost, "/v1/domains/7/sync", "", "42")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "42", ts.domains.syncUser)

	rec = ts.do(http.MethodPost, "/v1/domains/7/sync", "", "42")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limited", decodeError(t, rec).Type)

	rec = ts.do(http.MethodPost, "/v1/domains/7/sync", "", "43")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []int64{7, 7}, ts.domains.synced)
}

func TestSyncRegistrarPricesQueuesWork(t *testing.T) {
	ts := newTestServer(t, fakeReport{})

	rec := ts.do(http.MethodPost, "/v1/registrars/5/sync-prices", "", "42")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, ts.queue.items, 1)
	assert.Equal(t, queue.KindSyncRegistrarPrices, ts.queue.items[0].Kind)
	assert.Equal(t, int64(5), ts.queue.items[0].RegistrarID)
	assert.Equal(t, "42", ts.queue.items[0].UserID)

	rec = ts.do(http.MethodPost, "/v1/registrars/6/sync-domains", "", "42")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Len(t, ts.queue.items, 1)

	rec = ts.do(http.MethodPost, "/v1/registrars/5/sync-domains", "", "42")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, queue.KindSyncRegistrarDomains, ts.queue.items[1].Kind)
}

func TestSyncRdaps(t *testing.T) {
	ts := newTestServer(t, fakeReport{})

	rec := ts.do(http.MethodPost, "/v1/rdaps/sync", "", "42")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, ts.queue.items, 1)
	assert.Equal(t, queue.KindSyncRdaps, ts.queue.items[0].Kind)
	assert.Equal(t, "42", ts.queue.items[0].UserID)
}

func TestSetRegistrarCredentials(t *testing.T) {
	ts := newTestServer(t, fakeReport{})

	rec := ts.do(http.MethodPost, "/v1/registrars/5/credentials", `{"api_key":"  "}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/v1/registrars/5/credentials", `{"api_key":" pk1_abc ","secret_key":"sk1_def"}`, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "pk1_abc", ts.registrars.creds.APIKey)
	assert.Equal(t, "sk1_def", ts.registrars.creds.SecretKey)

	ts.registrars.setErr = registrardomain.ErrEncryptionKeyMissing
	rec = ts.do(http.MethodPost, "/v1/registrars/5/credentials", `{"api_key":"pk1_abc"}`, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "pk1_abc")
}

func TestListRegistrarFees(t *testing.T) {
	ts := newTestServer(t, fakeReport{})

	rec := ts.do(http.MethodGet, "/v1/registrars/5/fees", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tld":"com"`)

	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/v1/registrars/6/fees", "", "").Code)
}

func TestPriceCompareExports(t *testing.T) {
	ts := newTestServer(t, fakeReport{})

	rec := ts.do(http.MethodGet, "/v1/reports/price-compare.xlsx", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contentTypeXLSX, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "price-compare.xlsx")

	rec = ts.do(http.MethodGet, "/v1/reports/price-compare.pdf", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contentTypePDF, rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestPriceCompareFailureIsJSON(t *testing.T) {
	ts := newTestServer(t, fakeReport{err: errors.New("db down")})

	rec := ts.do(http.MethodGet, "/v1/reports/price-compare.xlsx", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", decodeError(t, rec).Type)
}

func TestListNotificationsUsesCaller(t *testing.T) {
	ts := newTestServer(t, fakeReport{})

	rec := ts.do(http.MethodGet, "/v1/notifications?page_size=5", "", "42")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42", ts.notifications.req.UserID)
	assert.Equal(t, 5, ts.notifications.req.PageSize)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, fakeReport{})

	rec := ts.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}
