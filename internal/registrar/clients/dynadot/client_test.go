package dynadot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smallbiznis/domainledger/internal/registrar/clients/transport"
	"github.com/smallbiznis/domainledger/internal/registrar/domain"
	"github.com/smallbiznis/domainledger/internal/syncerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(domain.Credentials{APIKey: "key-1"}, transport.Deps{HTTP: srv.Client()}, WithBaseURL(srv.URL))
}

func TestGetPrices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/restful/v1/tld/get_tld_price", r.URL.Path)
		assert.Equal(t, "usd", r.URL.Query().Get("currency"))
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"code":200,"data":{"tldPriceList":[
			{"tld":".com","allYearsRegisterPrice":["10.99","21.98"],"allYearsRenewPrice":[11.5],
			 "transferPrice":"9.99","restorePrice":"80","supportPrivacy":"Yes","graceFeePrice":""},
			{"tld":".xyz","allYearsRegisterPrice":[],"supportPrivacy":"No"}
		]}}`))
	})

	quotes, err := client.GetPrices(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	com := quotes[0]
	assert.Equal(t, "com", com.TLD)
	assert.Equal(t, 10.99, *com.Register)
	assert.Equal(t, 11.5, *com.Renew)
	assert.Equal(t, 9.99, *com.Transfer)
	assert.Equal(t, 80.0, *com.Restore)
	assert.Equal(t, 0.0, *com.Privacy)
	assert.Nil(t, com.Misc)

	xyz := quotes[1]
	assert.Nil(t, xyz.Register)
	assert.Nil(t, xyz.Privacy)
}

func TestGetPricesAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":401,"message":"bad key"}`))
	})

	_, err := client.GetPrices(context.Background())
	require.Error(t, err)
	assert.True(t, syncerr.IsKind(err, syncerr.KindUpstreamFormat))
	assert.Contains(t, err.Error(), "API Error (code: 401): bad key")
}

func TestGetPricesHTTPFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.GetPrices(context.Background())
	assert.True(t, syncerr.IsKind(err, syncerr.KindTransientFetch))
}

func TestNotConfigured(t *testing.T) {
	client := New(domain.Credentials{}, transport.Deps{})
	assert.False(t, client.IsConfigured())

	_, err := client.GetPrices(context.Background())
	assert.True(t, syncerr.IsKind(err, syncerr.KindConfiguration))
	assert.ErrorIs(t, client.ValidateCredentials(context.Background()), domain.ErrInvalidCredentials)
}

func TestGetDomain(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/restful/v1/domains/example.com", r.URL.Path)
		_, _ = w.Write([]byte(`{"code":200,"data":{"domainInfo":[{
			"domainName":"Example.com",
			"registration":1577836800000,
			"expiration":1893456000,
			"locked":"yes",
			"privacy":"Full Privacy",
			"glueInfo":{"name_server_settings":{"name_servers":[
				{"server_name":"ns1.dynadot.com"},{"server_name":""},{"server_name":"ns2.dynadot.com"}
			]}}
		}]}}`))
	})

	fs, err := client.GetDomain(context.Background(), "example.com")
	require.NoError(t, err)
	require.NotNil(t, fs)
	assert.Equal(t, "example.com", fs.Name)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), *fs.RegistrationDate)
	assert.Equal(t, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), *fs.ExpirationDate)
	assert.Equal(t, []string{"ns1.dynadot.com", "ns2.dynadot.com"}, fs.Nameservers)
	assert.True(t, *fs.SecurityLock)
	assert.True(t, *fs.WhoisPrivacy)
}

func TestGetDomainMissing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":200,"data":{"domainInfo":[]}}`))
	})

	fs, err := client.GetDomain(context.Background(), "nothing.com")
	require.NoError(t, err)
	assert.Nil(t, fs)
}

func TestGetDomains(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/restful/v1/domains", r.URL.Path)
		_, _ = w.Write([]byte(`{"code":200,"data":{"domainInfo":[
			{"domainName":"a.com","registration":1577836800,"locked":"no","privacy":"none"},
			{"domainName":"b.net"}
		]}}`))
	})

	list, err := client.GetDomains(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.False(t, *list[0].SecurityLock)
	assert.False(t, *list[0].WhoisPrivacy)
	assert.Nil(t, list[1].RegistrationDate)
	assert.Empty(t, list[1].Nameservers)
}

func TestValidateCredentials(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("count_per_page"))
		_, _ = w.Write([]byte(`{"code":200,"data":{}}`))
	})
	assert.NoError(t, client.ValidateCredentials(context.Background()))

	rejecting := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	assert.ErrorIs(t, rejecting.ValidateCredentials(context.Background()), domain.ErrInvalidCredentials)
}
