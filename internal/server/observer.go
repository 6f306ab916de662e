package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/morezero/plugin-dispatcher/pkg/db"
	"github.com/morezero/plugin-dispatcher/pkg/dispatcher"
	"github.com/morezero/plugin-dispatcher/pkg/events"
)

const observerLogPrefix = "server:observer"

// observerTimeout bounds the publish and journal write of one change.
const observerTimeout = 2 * time.Second

// journalStore is the part of db.Journal the host uses.
type journalStore interface {
	Record(ctx context.Context, entry db.JournalEntry) (db.JournalEntry, error)
	Recent(ctx context.Context, callsign string, limit int) ([]db.JournalEntry, error)
}

// subscriptionFanout forwards every subscription change to the events
// publisher and, when enabled, the journal. Failures are logged; they never
// change the answer the client already has.
type subscriptionFanout struct {
	callsign  string
	publisher events.EventPublisher
	journal   journalStore
}

var _ dispatcher.SubscriptionObserver = (*subscriptionFanout)(nil)

func newSubscriptionFanout(callsign string, publisher events.EventPublisher, journal journalStore) *subscriptionFanout {
	if publisher == nil {
		publisher = &events.NoOpPublisher{}
	}
	return &subscriptionFanout{callsign: callsign, publisher: publisher, journal: journal}
}

// SubscriptionChanged implements dispatcher.SubscriptionObserver.
func (f *subscriptionFanout) SubscriptionChanged(change dispatcher.SubscriptionChange) {
	ctx, cancel := context.WithTimeout(context.Background(), observerTimeout)
	defer cancel()

	id := uuid.New()
	event := &events.SubscriptionChangedEvent{
		EventID:   id.String(),
		Callsign:  f.callsign,
		ChannelID: change.ChannelID,
		Event:     change.Event,
		Client:    change.Client,
		Status:    change.Status.String(),
		Accepted:  change.Accepted,
		Code:      change.Code,
	}
	event.Stamp()

	if err := f.publisher.PublishSubscriptionChanged(ctx, event); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to publish %s of %s: %v", observerLogPrefix, event.Status, event.Event, err))
	}

	if f.journal == nil {
		return
	}
	_, err := f.journal.Record(ctx, db.JournalEntry{
		ID:        id,
		Callsign:  f.callsign,
		ChannelID: change.ChannelID,
		Event:     change.Event,
		Client:    change.Client,
		Status:    event.Status,
		Accepted:  change.Accepted,
		Code:      change.Code,
	})
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - %v", observerLogPrefix, err))
	}
}
