package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/wisdomAdida/edmerge/events"
)

type Sockets interface {
	Send(userID uuid.UUID, message interface{}) bool
}

// mailTimeout bounds one admin alert sent in the background.
const mailTimeout = 30 * time.Second

// Dispatcher fans one ledger event out to live sockets, the event stream and,
// for admin-facing events, the platform inbox. Mail goes out in the
// background; Wait blocks until it has drained.
type Dispatcher struct {
	sockets    Sockets
	publisher  events.Publisher
	mailer     EmailSender
	adminEmail string
	mail       sync.WaitGroup
}

func NewDispatcher(sockets Sockets, publisher events.Publisher, mailer EmailSender, adminEmail string) *Dispatcher {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Dispatcher{sockets: sockets, publisher: publisher, mailer: mailer, adminEmail: adminEmail}
}

type streamRecord struct {
	Type       string      `json:"type"`
	Recipients []uuid.UUID `json:"recipients"`
	Payload    interface{} `json:"payload"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// Dispatch attempts every channel and joins the socket and stream errors.
// Users with no open socket are skipped. Admin mail failures are logged.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) error {
	delivered := 0
	for _, id := range e.Recipients {
		if d.sockets != nil && d.sockets.Send(id, e) {
			delivered++
		}
	}

	var errs []error
	if err := d.publisher.Publish(ctx, e.Type, streamRecord{
		Type:       e.Type,
		Recipients: e.Recipients,
		Payload:    e.Payload,
		OccurredAt: e.OccurredAt,
	}); err != nil {
		errs = append(errs, fmt.Errorf("publish %s: %w", e.Type, err))
	}

	if e.AlertAdmins && d.mailer != nil && d.adminEmail != "" {
		d.mail.Add(1)
		go d.mailAdmins(context.WithoutCancel(ctx), e)
	}

	log.WithFields(log.Fields{
		"event":      e.Type,
		"recipients": len(e.Recipients),
		"delivered":  delivered,
	}).Debug("Event dispatched")
	return errors.Join(errs...)
}

func (d *Dispatcher) mailAdmins(ctx context.Context, e Event) {
	defer d.mail.Done()
	ctx, cancel := context.WithTimeout(ctx, mailTimeout)
	defer cancel()
	if err := d.mailer.SendEmail(ctx, d.adminEmail, subjectFor(e), bodyFor(e)); err != nil {
		log.WithError(err).WithField("event", e.Type).Error("Failed to mail admins")
	}
}

// Wait blocks until every queued admin mail has been attempted.
func (d *Dispatcher) Wait() {
	d.mail.Wait()
}

func subjectFor(e Event) string {
	if e.Subject != "" {
		return e.Subject
	}
	return "EdMerge: " + e.Type
}

func bodyFor(e Event) string {
	payload, err := json.MarshalIndent(e.Payload, "", "  ")
	if err != nil {
		payload = []byte(fmt.Sprintf("%+v", e.Payload))
	}
	return fmt.Sprintf("%s\n\nEvent: %s\nAt: %s\n\n%s\n", subjectFor(e), e.Type, e.OccurredAt.Format(time.RFC1123), payload)
}
