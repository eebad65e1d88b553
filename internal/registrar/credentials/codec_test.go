package credentials

import (
	"testing"

	"github.com/smallbiznis/domainledger/internal/registrar/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	codec, err := NewCodec("s3cret")
	require.NoError(t, err)

	sealed, err := codec.Seal(domain.Credentials{APIKey: " pk1 ", SecretKey: "sk1"})
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "pk1")

	creds, err := codec.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, domain.Credentials{APIKey: "pk1", SecretKey: "sk1"}, creds)
}

func TestOpenWithWrongKeyFails(t *testing.T) {
	a, _ := NewCodec("one")
	b, _ := NewCodec("two")

	sealed, err := a.Seal(domain.Credentials{Cookies: "sid=1"})
	require.NoError(t, err)

	_, err = b.Open(sealed)
	assert.Error(t, err)
}

func TestEmptyAndMissingKey(t *testing.T) {
	noKey, err := NewCodec("  ")
	require.NoError(t, err)

	sealed, err := noKey.Seal(domain.Credentials{})
	require.NoError(t, err)
	assert.Nil(t, sealed)

	_, err = noKey.Seal(domain.Credentials{APIKey: "x"})
	assert.ErrorIs(t, err, domain.ErrEncryptionKeyMissing)

	creds, err := noKey.Open(nil)
	require.NoError(t, err)
	assert.True(t, creds.Empty())

	_, err = noKey.Open([]byte(`{"version":1}`))
	assert.ErrorIs(t, err, domain.ErrEncryptionKeyMissing)
}

func TestOpenMalformed(t *testing.T) {
	codec, _ := NewCodec("k")
	_, err := codec.Open([]byte(`not json`))
	assert.ErrorIs(t, err, errMalformedPayload)
	_, err = codec.Open([]byte(`{"version":9,"nonce":"","ciphertext":""}`))
	assert.ErrorIs(t, err, errMalformedPayload)
}
