// Package events defines the subscription-change event and the publishers that
// carry it out of the dispatcher.
package events

import "time"

// Subscription change statuses.
const (
	StatusRegistered   = "registered"
	StatusUnregistered = "unregistered"
)

// SubscriptionChangedEvent is emitted after a register or unregister call was
// processed by a plugin's dispatcher.
type SubscriptionChangedEvent struct {
	EventID   string `json:"eventId"`
	Callsign  string `json:"callsign"`
	ChannelID uint32 `json:"channelId"`
	Event     string `json:"event"`
	Client    string `json:"client"`
	Status    string `json:"status"`
	Accepted  bool   `json:"accepted"`
	Code      int    `json:"code,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Stamp sets the timestamp to now when it is empty.
func (e *SubscriptionChangedEvent) Stamp() {
	if e.Timestamp == "" {
		e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
}
