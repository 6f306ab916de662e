package dispatcher

import (
	"github.com/morezero/plugin-dispatcher/pkg/handler"
	"github.com/morezero/plugin-dispatcher/pkg/jsonrpc"
)

// SubscriptionChange describes one register or unregister call after the
// registry processed it.
type SubscriptionChange struct {
	ChannelID uint32
	Event     string
	Client    string
	Status    SubscriptionStatus
	Accepted  bool
	Code      int
}

// SubscriptionObserver receives subscription changes. It is called in the
// goroutine that served the request.
type SubscriptionObserver interface {
	SubscriptionChanged(change SubscriptionChange)
}

// SubscriptionObserverFunc adapts a function to SubscriptionObserver.
type SubscriptionObserverFunc func(change SubscriptionChange)

// SubscriptionChanged calls f.
func (f SubscriptionObserverFunc) SubscriptionChanged(change SubscriptionChange) {
	f(change)
}

// NewObservedHooks wraps next and reports every subscription change to observer.
func NewObservedHooks(next Hooks, observer SubscriptionObserver) Hooks {
	return &observedHooks{next: next, observer: observer}
}

type observedHooks struct {
	next     Hooks
	observer SubscriptionObserver
}

func (h *observedHooks) Exists(source *handler.Handler, method string) bool {
	return h.next.Exists(source, method)
}

func (h *observedHooks) Subscribe(source *handler.Handler, channelID uint32, event, client string, response *jsonrpc.Message) {
	h.next.Subscribe(source, channelID, event, client, response)
	h.report(channelID, event, client, StatusRegistered, response)
}

func (h *observedHooks) Unsubscribe(source *handler.Handler, channelID uint32, event, client string, response *jsonrpc.Message) {
	h.next.Unsubscribe(source, channelID, event, client, response)
	h.report(channelID, event, client, StatusUnregistered, response)
}

func (h *observedHooks) report(channelID uint32, event, client string, status SubscriptionStatus, response *jsonrpc.Message) {
	change := SubscriptionChange{
		ChannelID: channelID,
		Event:     event,
		Client:    client,
		Status:    status,
		Accepted:  true,
	}
	if response != nil && response.Error != nil {
		change.Accepted = false
		change.Code = response.Error.Code
	}
	h.observer.SubscriptionChanged(change)
}
