package tracing

import (
	"errors"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

var blockedKeys = map[attribute.Key]struct{}{
	"api_key":     {},
	"secret_key":  {},
	"cookies":     {},
	"cookie":      {},
	"x-api-key":   {},
	"credentials": {},
}

var secretParam = regexp.MustCompile(`(?i)(api[_-]?key|secretapikey|token|cookies?)=([^&\s]+)`)

// SafeAttributes drops attributes that may carry registrar credentials.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, blocked := blockedKeys[attribute.Key(strings.ToLower(string(attr.Key)))]; blocked {
			continue
		}
		out = append(out, attr)
	}
	return out
}

// SafeError returns err with query-string secrets masked.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	msg := secretParam.ReplaceAllString(err.Error(), "$1=***")
	return errors.New(msg)
}
