package jobs

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

type staleWithdrawalExpirer interface {
	ExpireStaleWithdrawals(ctx context.Context, olderThan time.Duration) (int, error)
}

// ExpireStaleWithdrawals fails withdrawals that have sat pending longer than
// olderThan, releasing their hold on the earner's balance.
func ExpireStaleWithdrawals(ctx context.Context, withdrawals staleWithdrawalExpirer, olderThan time.Duration) {
	logger := log.WithField("job", "expire_stale_withdrawals")
	logger.Debug("Running job")

	n, err := withdrawals.ExpireStaleWithdrawals(ctx, olderThan)
	if err != nil {
		logger.WithError(err).Error("Error expiring stale withdrawals")
		return
	}
	if n == 0 {
		logger.Debug("No stale withdrawals found")
		return
	}
	logger.WithField("count", n).Info("Failed stale withdrawals")
}
