package events

import (
	"context"
	"errors"
)

// EventPublisher is the interface for publishing subscription change events.
type EventPublisher interface {
	PublishSubscriptionChanged(ctx context.Context, event *SubscriptionChangedEvent) error
}

// NoOpPublisher is an EventPublisher that does nothing (for in-process usage without events).
type NoOpPublisher struct{}

// PublishSubscriptionChanged is a no-op.
func (p *NoOpPublisher) PublishSubscriptionChanged(_ context.Context, _ *SubscriptionChangedEvent) error {
	return nil
}

// CallbackPublisher is an EventPublisher that calls a callback function (for testing).
type CallbackPublisher struct {
	callback func(ctx context.Context, event *SubscriptionChangedEvent) error
}

// NewCallbackPublisher creates a new CallbackPublisher.
func NewCallbackPublisher(cb func(ctx context.Context, event *SubscriptionChangedEvent) error) *CallbackPublisher {
	return &CallbackPublisher{callback: cb}
}

// PublishSubscriptionChanged calls the callback.
func (p *CallbackPublisher) PublishSubscriptionChanged(ctx context.Context, event *SubscriptionChangedEvent) error {
	return p.callback(ctx, event)
}

// MultiPublisher fans an event out to several publishers. Every publisher is
// called; the errors are joined.
type MultiPublisher []EventPublisher

// PublishSubscriptionChanged publishes to each publisher in order.
func (m MultiPublisher) PublishSubscriptionChanged(ctx context.Context, event *SubscriptionChangedEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishSubscriptionChanged(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
