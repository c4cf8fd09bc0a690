package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/wisdomAdida/edmerge/notifications"
)

// Notifier delivers ledger events. Delivery is advisory: callers log failures
// and carry on.
type Notifier interface {
	Dispatch(ctx context.Context, event notifications.Event) error
}

// IDGenerator issues unique, prefixed transaction references.
type IDGenerator interface {
	Next(prefix string) (string, error)
}

type adminLister interface {
	ListUserIDsByRole(ctx context.Context, role string) ([]uuid.UUID, error)
}

func notify(ctx context.Context, n Notifier, event notifications.Event) {
	if n == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := n.Dispatch(ctx, event); err != nil {
		log.WithError(err).WithField("event", event.Type).Warn("Notification dispatch failed")
	}
}

func adminIDs(ctx context.Context, store adminLister) []uuid.UUID {
	ids, err := store.ListUserIDsByRole(ctx, "admin")
	if err != nil {
		log.WithError(err).Warn("Could not load admin recipients")
		return nil
	}
	return ids
}
