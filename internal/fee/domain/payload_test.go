package domain

import (
	"testing"

	"github.com/smallbiznis/domainledger/internal/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePayloadKeepsOnlyPresentFields(t *testing.T) {
	payload := NormalizePayload(pricing.Quote{TLD: ".CO.ID", Renew: pricing.Ptr(10.004)})
	assert.Equal(t, "co.id", payload.TLD)
	assert.Nil(t, payload.Register)
	require.NotNil(t, payload.Renew)
	assert.Equal(t, 10.0, *payload.Renew)
	assert.Equal(t, []pricing.Field{pricing.FieldRenew}, payload.Present())
}

func TestHasChangesComparesPresentFieldsOnly(t *testing.T) {
	fee := Fee{RegisterPrice: pricing.Ptr(10)}

	payload := NormalizePayload(pricing.Quote{TLD: "com", Renew: pricing.Ptr(10)})
	assert.True(t, HasChanges(fee, payload))

	columns := ApplyPayload(&fee, payload)
	assert.Equal(t, map[string]any{"renew_price": 10.0}, columns)
	require.NotNil(t, fee.RegisterPrice)
	assert.Equal(t, 10.0, *fee.RegisterPrice)
	assert.False(t, HasChanges(fee, payload))
}

func TestHasChangesIgnoresFloatNoise(t *testing.T) {
	fee := Fee{RegisterPrice: pricing.Ptr(12.5)}
	payload := NormalizePayload(pricing.Quote{TLD: "com", Register: pricing.Ptr(12.500000001)})
	assert.False(t, HasChanges(fee, payload))
	assert.False(t, HasChanges(fee, pricing.Quote{TLD: "com"}))
}

func TestBackfillFromRegister(t *testing.T) {
	fee := Fee{RegisterPrice: pricing.Ptr(12.5), RenewPrice: pricing.Ptr(0)}
	columns := BackfillFromRegister(&fee)
	assert.Len(t, columns, 2)
	assert.Equal(t, 12.5, *fee.RenewPrice)
	assert.Equal(t, 12.5, *fee.TransferPrice)

	noRegister := Fee{RenewPrice: pricing.Ptr(3)}
	assert.Empty(t, BackfillFromRegister(&noRegister))

	complete := Fee{RegisterPrice: pricing.Ptr(1), RenewPrice: pricing.Ptr(2), TransferPrice: pricing.Ptr(3)}
	assert.Empty(t, BackfillFromRegister(&complete))
	assert.Equal(t, 2.0, *complete.RenewPrice)
}

func TestColumn(t *testing.T) {
	assert.Equal(t, "misc_price", Column(pricing.FieldMisc))
}
