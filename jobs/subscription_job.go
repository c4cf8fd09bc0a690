package jobs

import (
	"context"

	log "github.com/sirupsen/logrus"
)

type subscriptionExpirer interface {
	ExpireSubscriptions(ctx context.Context) (int, error)
	ExpireKeys(ctx context.Context) (int, error)
}

// ExpireSubscriptionsAndKeys ends subscriptions past their end date and
// expires unused keys past their expiry. One failing does not skip the other.
func ExpireSubscriptionsAndKeys(ctx context.Context, subscriptions subscriptionExpirer) {
	logger := log.WithField("job", "expire_subscriptions")

	if n, err := subscriptions.ExpireSubscriptions(ctx); err != nil {
		logger.WithError(err).Error("Error expiring subscriptions")
	} else if n > 0 {
		logger.WithField("count", n).Info("Expired subscriptions")
	}

	if n, err := subscriptions.ExpireKeys(ctx); err != nil {
		logger.WithError(err).Error("Error expiring subscription keys")
	} else if n > 0 {
		logger.WithField("count", n).Info("Expired subscription keys")
	}
}
