package domain

import "github.com/smallbiznis/domainledger/internal/pricing"

// NormalizePayload keeps only the observed fields of q, rounded to stored precision, and
// normalizes the TLD. Absent fields stay nil so a partial phase cannot erase known prices.
func NormalizePayload(q pricing.Quote) pricing.Quote {
	out := pricing.Quote{TLD: pricing.NormalizeTLD(q.TLD)}
	for _, f := range q.Present() {
		out.Set(f, pricing.Ptr(pricing.Round2(*q.Get(f))))
	}
	return out
}

// HasChanges reports whether any field present in payload differs from the stored fee.
// Values are compared as two-decimal strings.
func HasChanges(fee Fee, payload pricing.Quote) bool {
	for _, f := range payload.Present() {
		if pricing.FormatDecimal(fee.Get(f)) != pricing.FormatDecimal(payload.Get(f)) {
			return true
		}
	}
	return false
}

// ApplyPayload copies the present fields of payload onto fee and returns the columns set.
func ApplyPayload(fee *Fee, payload pricing.Quote) map[string]any {
	columns := map[string]any{}
	for _, f := range payload.Present() {
		fee.Set(f, payload.Get(f))
		columns[Column(f)] = *payload.Get(f)
	}
	return columns
}

// BackfillFromRegister copies the register price into a missing or zero renew or transfer
// price. It reports the columns it changed.
func BackfillFromRegister(fee *Fee) map[string]any {
	columns := map[string]any{}
	if fee.RegisterPrice == nil {
		return columns
	}
	register := *fee.RegisterPrice
	if pricing.IsZeroOrNil(fee.RenewPrice) {
		fee.RenewPrice = pricing.Ptr(register)
		columns[Column(pricing.FieldRenew)] = register
	}
	if pricing.IsZeroOrNil(fee.TransferPrice) {
		fee.TransferPrice = pricing.Ptr(register)
		columns[Column(pricing.FieldTransfer)] = register
	}
	return columns
}
