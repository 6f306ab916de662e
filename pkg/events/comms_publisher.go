package events

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/plugin-dispatcher/pkg/commsutil"
)

const commsPublisherLogPrefix = "events:comms_publisher"

// CommsPublisherOpts configures CommsPublisher. Nil or zero values use defaults.
type CommsPublisherOpts struct {
	// Prefix is the subject root, commsutil.DefaultPrefix when empty.
	Prefix string
	// GlobalSubject overrides the global subscription event subject.
	GlobalSubject string
}

// CommsPublisher publishes subscription change events to COMMS subjects.
type CommsPublisher struct {
	nc            *comms.Conn
	prefix        string
	globalSubject string
}

// NewCommsPublisher creates a new CommsPublisher. Pass nil for opts to use defaults.
func NewCommsPublisher(nc *comms.Conn, opts *CommsPublisherOpts) *CommsPublisher {
	prefix := commsutil.DefaultPrefix
	if opts != nil && opts.Prefix != "" {
		prefix = opts.Prefix
	}
	globalSubject := commsutil.BuildSubscriptionsSubject(prefix)
	if opts != nil && opts.GlobalSubject != "" {
		globalSubject = opts.GlobalSubject
	}
	return &CommsPublisher{nc: nc, prefix: prefix, globalSubject: globalSubject}
}

// PublishSubscriptionChanged publishes the event to both the granular
// per-event subject and the global subject.
func (p *CommsPublisher) PublishSubscriptionChanged(_ context.Context, event *SubscriptionChangedEvent) error {
	event.Stamp()
	data, err := commsutil.EncodePayload(event)
	if err != nil {
		return fmt.Errorf("%s - failed to encode event: %w", commsPublisherLogPrefix, err)
	}

	granularSubject := commsutil.BuildSubscriptionSubject(p.prefix, event.Callsign, event.Event)
	if err := p.nc.Publish(granularSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, granularSubject, err))
		return err
	}

	if err := p.nc.Publish(p.globalSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, p.globalSubject, err))
		return err
	}

	slog.Debug(fmt.Sprintf("%s - Published %s for %s.%s client=%s", commsPublisherLogPrefix, event.Status, event.Callsign, event.Event, event.Client))
	return nil
}
