package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	domaindomain "github.com/smallbiznis/domainledger/internal/domains/domain"
)

func parseOptionalInt64(value string) (*int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// parseID reads a positive numeric path parameter.
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id <= 0 {
		AbortWithError(c, newValidationError(name, "invalid_"+name, "invalid "+name))
		return 0, false
	}
	return id, true
}

// parseSyncStatus accepts either the numeric code or the status name.
func parseSyncStatus(value string) (*domaindomain.SyncStatus, bool) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if trimmed == "" {
		return nil, true
	}
	for s := domaindomain.StatusPending; s <= domaindomain.StatusFailedSyncWhois; s++ {
		if trimmed == s.String() || trimmed == strconv.Itoa(int(s)) {
			status := s
			return &status, true
		}
	}
	return nil, false
}

func trimStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}
