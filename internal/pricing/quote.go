package pricing

import "strings"

// Field names a price column of a registrar fee.
type Field string

const (
	FieldRegister Field = "register"
	FieldRenew    Field = "renew"
	FieldTransfer Field = "transfer"
	FieldRestore  Field = "restore"
	FieldPrivacy  Field = "privacy"
	FieldMisc     Field = "misc"
)

// Fields lists every recognized price field in storage order.
var Fields = []Field{FieldRegister, FieldRenew, FieldTransfer, FieldRestore, FieldPrivacy, FieldMisc}

// Quote is one TLD's prices as observed from a registrar. Nil fields were not observed.
type Quote struct {
	TLD      string
	Register *float64
	Renew    *float64
	Transfer *float64
	Restore  *float64
	Privacy  *float64
	Misc     *float64
}

// Get returns the value of field f.
func (q Quote) Get(f Field) *float64 {
	switch f {
	case FieldRegister:
		return q.Register
	case FieldRenew:
		return q.Renew
	case FieldTransfer:
		return q.Transfer
	case FieldRestore:
		return q.Restore
	case FieldPrivacy:
		return q.Privacy
	case FieldMisc:
		return q.Misc
	default:
		return nil
	}
}

// Set assigns field f.
func (q *Quote) Set(f Field, v *float64) {
	switch f {
	case FieldRegister:
		q.Register = v
	case FieldRenew:
		q.Renew = v
	case FieldTransfer:
		q.Transfer = v
	case FieldRestore:
		q.Restore = v
	case FieldPrivacy:
		q.Privacy = v
	case FieldMisc:
		q.Misc = v
	}
}

// Present returns the fields that carry a value.
func (q Quote) Present() []Field {
	out := make([]Field, 0, len(Fields))
	for _, f := range Fields {
		if q.Get(f) != nil {
			out = append(out, f)
		}
	}
	return out
}

// NormalizeTLD lowercases and strips the leading dot: ".CO.ID" becomes "co.id".
func NormalizeTLD(raw string) string {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(raw), "."))
}
