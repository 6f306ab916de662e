package dispatcher

import (
	"fmt"
	"sync"

	"github.com/morezero/plugin-dispatcher/pkg/handler"
	"github.com/morezero/plugin-dispatcher/pkg/jsonrpc"
)

const eventStatusLogPrefix = "dispatcher:event_status"

// SubscriptionStatus tells an event-status listener what happened.
type SubscriptionStatus uint8

const (
	StatusRegistered SubscriptionStatus = iota
	StatusUnregistered
)

func (s SubscriptionStatus) String() string {
	if s == StatusRegistered {
		return "registered"
	}
	return "unregistered"
}

// EventStatusListener is called with the subscriber callsign whenever a
// subscription to its event is made or removed.
type EventStatusListener func(client string, status SubscriptionStatus)

// UnsubscribeDelegation selects what the event-status decorator forwards an
// unregister call to.
type UnsubscribeDelegation uint8

const (
	// DelegateUnsubscribe forwards unregister to Unsubscribe.
	DelegateUnsubscribe UnsubscribeDelegation = iota
	// DelegateSubscribeLegacy forwards unregister to Subscribe, as older hosts
	// did. Listeners still see StatusUnregistered while the registry keeps (or
	// re-adds) the subscription.
	DelegateSubscribeLegacy
)

// EventStatus keeps one listener per event and reports subscription changes
// to it. Listeners run under the decorator's own lock and must not register
// or unregister listeners themselves.
type EventStatus struct {
	delegation UnsubscribeDelegation

	mu        sync.Mutex
	listeners map[string]EventStatusListener
}

// NewEventStatus creates an empty set of listeners.
func NewEventStatus(delegation UnsubscribeDelegation) *EventStatus {
	return &EventStatus{
		delegation: delegation,
		listeners:  make(map[string]EventStatusListener),
	}
}

// RegisterEventStatusListener installs the listener for event. A second
// listener for the same event or a nil listener panics.
func (e *EventStatus) RegisterEventStatusListener(event string, listener EventStatusListener) {
	if listener == nil {
		panic(fmt.Sprintf("%s - nil listener for %q", eventStatusLogPrefix, event))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.listeners[event]; ok {
		panic(fmt.Sprintf("%s - listener for %q already registered", eventStatusLogPrefix, event))
	}
	e.listeners[event] = listener
}

// UnregisterEventStatusListener removes the listener for event. Removing one
// that was never installed panics.
func (e *EventStatus) UnregisterEventStatusListener(event string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.listeners[event]; !ok {
		panic(fmt.Sprintf("%s - no listener for %q", eventStatusLogPrefix, event))
	}
	delete(e.listeners, event)
}

func (e *EventStatus) notifyObservers(event, client string, status SubscriptionStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if listener, ok := e.listeners[event]; ok {
		listener(client, status)
	}
}

// Decorate wraps next so that subscription changes reach the listeners.
func (e *EventStatus) Decorate(next Hooks) Hooks {
	return &eventStatusHooks{status: e, next: next}
}

type eventStatusHooks struct {
	status *EventStatus
	next   Hooks
}

func (h *eventStatusHooks) Exists(source *handler.Handler, method string) bool {
	return h.next.Exists(source, method)
}

func (h *eventStatusHooks) Subscribe(source *handler.Handler, channelID uint32, event, client string, response *jsonrpc.Message) {
	h.next.Subscribe(source, channelID, event, client, response)
	h.status.notifyObservers(event, client, StatusRegistered)
}

func (h *eventStatusHooks) Unsubscribe(source *handler.Handler, channelID uint32, event, client string, response *jsonrpc.Message) {
	h.status.notifyObservers(event, client, StatusUnregistered)
	if h.status.delegation == DelegateSubscribeLegacy {
		h.next.Subscribe(source, channelID, event, client, response)
		return
	}
	h.next.Unsubscribe(source, channelID, event, client, response)
}

// JSONRPCSupportsEventStatus is a dispatcher whose subscription changes are
// reported to per-event listeners.
type JSONRPCSupportsEventStatus struct {
	*JSONRPC
	status *EventStatus
}

// NewSupportsEventStatus creates a dispatcher with event-status reporting. The
// event-status decorator sits directly on the base hooks, inside any decorator
// passed with WithHookDecorator.
func NewSupportsEventStatus(opts ...Option) *JSONRPCSupportsEventStatus {
	o := buildOptions(opts)
	status := NewEventStatus(o.unsubscribe)
	return &JSONRPCSupportsEventStatus{
		JSONRPC: newJSONRPC(o, status.Decorate),
		status:  status,
	}
}

// RegisterEventStatusListener installs the listener for event.
func (d *JSONRPCSupportsEventStatus) RegisterEventStatusListener(event string, listener EventStatusListener) {
	d.status.RegisterEventStatusListener(event, listener)
}

// UnregisterEventStatusListener removes the listener for event.
func (d *JSONRPCSupportsEventStatus) UnregisterEventStatusListener(event string) {
	d.status.UnregisterEventStatusListener(event)
}
