package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/domainledger/internal/notification"
	"github.com/smallbiznis/domainledger/internal/observability/logger"
	"github.com/smallbiznis/domainledger/internal/queue"
	"github.com/smallbiznis/domainledger/internal/rdap"
	"go.uber.org/zap"
)

// SyncRdaps refreshes the RDAP directory from IANA. Failures are reported to the user,
// not retried.
func (j *Jobs) SyncRdaps(ctx context.Context, item queue.WorkItem) error {
	log := logger.WithContext(ctx, j.log)

	result, err := j.directory.Sync(ctx)
	if err != nil {
		log.Error("rdap.directory.sync.failed", zap.Error(err))
		j.notifier.Notify(ctx, item.UserID, notification.TitleRdapSyncFailed,
			fmt.Sprintf("Failed to sync RDAP data: %s", err), notification.LevelDanger)
		return nil
	}
	if result.Total == 0 {
		j.notifier.Notify(ctx, item.UserID, notification.TitleRdapSyncCompleted,
			"No RDAP services returned from IANA.", notification.LevelWarning)
		return nil
	}
	j.notifier.Notify(ctx, item.UserID, notification.TitleRdapSyncCompleted, rdapSummary(result), notification.LevelSuccess)
	return nil
}

func rdapSummary(r rdap.SyncResult) string {
	parts := []string{fmt.Sprintf("Successfully synchronized %d RDAP records.", r.Total)}
	if r.Created > 0 {
		parts = append(parts, fmt.Sprintf("%d new %s added.", r.Created, records(r.Created)))
	}
	if r.Updated > 0 {
		parts = append(parts, fmt.Sprintf("%d existing %s updated.", r.Updated, records(r.Updated)))
	}
	if r.Created == 0 && r.Updated == 0 {
		parts = append(parts, "No changes detected.")
	}
	return strings.Join(parts, " ")
}

func records(n int) string {
	if n > 1 {
		return "records"
	}
	return "record"
}
