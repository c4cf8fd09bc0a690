package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/wisdomAdida/edmerge/services"
)

type Schedule struct {
	WithdrawalExpiry     string
	SubscriptionExpiry   string
	WithdrawalStaleAfter time.Duration
}

// NewScheduler registers the housekeeping jobs on a cron that skips a run
// while the previous one is still going. The caller starts and stops it.
func NewScheduler(ctx context.Context, s Schedule, withdrawals *services.WithdrawalService, subscriptions *services.SubscriptionService) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))

	if _, err := c.AddFunc(s.WithdrawalExpiry, func() {
		ExpireStaleWithdrawals(ctx, withdrawals, s.WithdrawalStaleAfter)
	}); err != nil {
		return nil, err
	}
	if _, err := c.AddFunc(s.SubscriptionExpiry, func() {
		ExpireSubscriptionsAndKeys(ctx, subscriptions)
	}); err != nil {
		return nil, err
	}
	return c, nil
}
