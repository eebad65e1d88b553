package syncerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfUnwrapsChains(t *testing.T) {
	base := TransientFetch("fetcher", "Request failed (https://example.com): 500", nil)
	wrapped := fmt.Errorf("sync prices: %w", base)

	assert.Equal(t, KindTransientFetch, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindTransientFetch))
	assert.True(t, IsRetryable(wrapped))
	assert.False(t, IsRetryable(UpstreamFormat("dynadot", "bad payload", nil)))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.False(t, IsKind(nil, KindNotFound))
}

func TestErrorMessage(t *testing.T) {
	cases := []struct {
		name string
		err  *Error
		want string
	}{
		{"message only", Configuration("porkbun", "API is not properly configured"), "porkbun: API is not properly configured"},
		{"wrapped", UpstreamFormat("rdap", "decode response", errors.New("unexpected EOF")), "rdap: decode response: unexpected EOF"},
		{"no source", &Error{Kind: KindNotFound, Message: "missing"}, "missing"},
		{"err only", &Error{Kind: KindTransientFetch, Source: "whois", Err: errors.New("timeout")}, "whois: timeout"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}
