package whois

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/domainledger/internal/syncerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const exampleWhois = `Domain Name: EXAMPLE.COM
Registry Domain ID: 2336799_DOMAIN_COM-VRSN
Registrar WHOIS Server: whois.example-registrar.com
Registrar URL: http://www.example-registrar.com
Updated Date: 2024-08-14T07:01:34Z
Creation Date: 1995-08-14T04:00:00Z
Registry Expiry Date: 2025-08-13T04:00:00Z
Registrar: Example Registrar, Inc.
Registrar IANA ID: 376
Domain Status: clientDeleteProhibited https://icann.org/epp#clientDeleteProhibited
Domain Status: clientTransferProhibited https://icann.org/epp#clientTransferProhibited
Domain Status: clientUpdateProhibited https://icann.org/epp#clientUpdateProhibited
Name Server: A.IANA-SERVERS.NET
Name Server: B.IANA-SERVERS.NET
DNSSEC: signedDelegation
Registrant Organization: Internet Assigned Numbers Authority
Registrant State/Province: CA
Registrant Country: US
>>> Last update of whois database: 2024-09-01T00:00:00Z <<<
`

func fixed(text string, err error) RawLookup {
	return func(context.Context, string) (string, error) { return text, err }
}

func TestLookupParsesICANNResponse(t *testing.T) {
	c := NewClient(fixed(exampleWhois, nil), zap.NewNop())

	fs, err := c.Lookup(context.Background(), "Example.com")
	require.NoError(t, err)
	assert.Equal(t, "example.com", fs.Name)
	require.NotNil(t, fs.RegistrationDate)
	assert.Equal(t, time.Date(1995, 8, 14, 4, 0, 0, 0, time.UTC), *fs.RegistrationDate)
	require.NotNil(t, fs.ExpirationDate)
	assert.Equal(t, 2025, fs.ExpirationDate.Year())
	assert.Len(t, fs.Nameservers, 2)
	assert.True(t, *fs.SecurityLock)
	assert.False(t, *fs.WhoisPrivacy)
}

func TestLookupTransportFailureIsTransient(t *testing.T) {
	c := NewClient(fixed("", errors.New("connection reset")), zap.NewNop())

	_, err := c.Lookup(context.Background(), "example.com")
	assert.True(t, syncerr.IsKind(err, syncerr.KindTransientFetch))
}

func TestLookupCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewClient(func(ctx context.Context, _ string) (string, error) {
		return "", ctx.Err()
	}, zap.NewNop())

	_, err := c.Lookup(ctx, "example.com")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPrivacyHinted(t *testing.T) {
	cases := []struct {
		name   string
		raw    string
		states []string
		want   bool
	}{
		{"redacted contact", "Registrant Name: REDACTED FOR PRIVACY", nil, true},
		{"proxy service", "Registrant Organization: Domains By Proxy, LLC", nil, true},
		{"guard", "Admin Email: abc@WhoisGuard.com", nil, true},
		{"state", "", []string{"Redacted"}, true},
		{"plain", "Registrant Organization: Example Corp", []string{"ok"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, privacyHinted(tc.raw, tc.states))
		})
	}
}

const idWhois = `Domain ID:PANDI-DO123456
Domain Name:example.id
Created On:2019-03-10 11:22:33
Last Updated On:2024-02-01 08:00:00
Expiration Date:2025-03-10 23:59:59
Status:pending renewal clientTransferProhibited
Registrant Name:Example Owner
Name Server:ns1.example.id
Name Server:ns2.example.id
DNSSEC:Unsigned
`

func TestLookupReadsMultiWordStatus(t *testing.T) {
	c := NewClient(fixed(idWhois, nil), zap.NewNop())

	fs, err := c.Lookup(context.Background(), "example.id")
	require.NoError(t, err)
	require.NotNil(t, fs.SecurityLock)
	assert.True(t, *fs.SecurityLock)
	assert.Equal(t, []string{"ns1.example.id", "ns2.example.id"}, fs.Nameservers)
	require.NotNil(t, fs.RegistrationDate)
	assert.Equal(t, time.Date(2019, 3, 10, 11, 22, 33, 0, time.UTC), *fs.RegistrationDate)
	require.NotNil(t, fs.ExpirationDate)
	assert.Equal(t, 2025, fs.ExpirationDate.Year())
	assert.True(t, fs.IsComplete())
}

func TestTransferLocked(t *testing.T) {
	assert.True(t, transferLocked("", []string{"ok", "clientTransferProhibited"}))
	assert.True(t, transferLocked("", []string{"server transfer prohibited"}))
	assert.True(t, transferLocked("Status:pending renewal clientTransferProhibited", []string{"pending"}))
	assert.True(t, transferLocked("Domain Status: Server Transfer Prohibited", nil))
	assert.False(t, transferLocked("Remarks: clientTransferProhibited", []string{"ok"}))
	assert.False(t, transferLocked("Domain Status: clientUpdateProhibited", []string{"clientUpdateProhibited"}))
	assert.False(t, transferLocked("", nil))
}

func TestResolveDatePrefersParsedTime(t *testing.T) {
	parsed := time.Date(2020, 1, 2, 3, 4, 5, 0, time.FixedZone("WIB", 7*3600))
	got := resolveDate(&parsed, "garbage")
	require.NotNil(t, got)
	assert.Equal(t, parsed.UTC(), *got)

	got = resolveDate(nil, "2021.02.03")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2021, 2, 3, 0, 0, 0, 0, time.UTC), *got)
}

func TestParseDate(t *testing.T) {
	assert.Nil(t, parseDate(""))
	assert.Nil(t, parseDate("someday"))
	assert.Equal(t, time.Date(2021, 2, 3, 0, 0, 0, 0, time.UTC), *parseDate("2021/02/03"))
	assert.Equal(t, time.Date(2021, 2, 3, 10, 0, 0, 0, time.UTC), *parseDate("2021-02-03T10:00:00"))
}
