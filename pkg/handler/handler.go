// Package handler implements the method registry a dispatcher routes into: a
// table of named methods, the event subscriptions made against it, and the set
// of interface versions it serves.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/morezero/plugin-dispatcher/pkg/jsonrpc"
	"github.com/morezero/plugin-dispatcher/pkg/semver"
)

const logPrefix = "handler:handler"

// Reserved method names. The dispatcher intercepts them before any lookup, so
// they can never be registered.
const (
	MethodRegister   = "register"
	MethodUnregister = "unregister"
	MethodExists     = "exists"
)

// Response texts used by Subscribe and Unsubscribe.
const (
	TextDuplicateRegistration = "Duplicate registration. Only 1 remains!"
	TextRegistrationNotFound  = "Registration not found!"
)

// IsReserved reports whether name is one of the reserved method names.
func IsReserved(name string) bool {
	switch name {
	case MethodRegister, MethodUnregister, MethodExists:
		return true
	}
	return false
}

// Method is a registered callback. params is the raw "params" member of the
// request, empty when absent.
type Method func(conn jsonrpc.Connection, params json.RawMessage) Reply

// NotifyFunc delivers one event notification to a channel. The designator is
// "<client>.<event>", or just the event when the subscriber gave no callsign.
type NotifyFunc func(channelID uint32, designator string, params json.RawMessage) jsonrpc.Status

// Subscriber is one party registered for an event.
type Subscriber struct {
	ChannelID uint32 `json:"channel"`
	Callsign  string `json:"id"`
}

// Handler is a versioned method registry.
type Handler struct {
	versions semver.VersionSet
	notify   NotifyFunc

	methodsMu sync.RWMutex
	methods   map[string]Method

	observersMu sync.Mutex
	observers   map[string][]Subscriber
}

// New creates an empty registry serving the given versions. Notifications are
// delivered through notify.
func New(notify NotifyFunc, versions semver.VersionSet) *Handler {
	if notify == nil {
		panic(fmt.Sprintf("%s - nil notify function", logPrefix))
	}
	return &Handler{
		versions:  versions,
		notify:    notify,
		methods:   make(map[string]Method),
		observers: make(map[string][]Subscriber),
	}
}

// NewFrom creates a registry serving versions that starts with a copy of the
// methods of source. Subscriptions are not copied.
func NewFrom(notify NotifyFunc, versions semver.VersionSet, source *Handler) *Handler {
	h := New(notify, versions)
	source.methodsMu.RLock()
	for name, m := range source.methods {
		h.methods[name] = m
	}
	source.methodsMu.RUnlock()
	return h
}

// Versions returns the versions this registry serves.
func (h *Handler) Versions() semver.VersionSet {
	return h.versions
}

// HasVersionSupport reports whether the registry serves version.
func (h *Handler) HasVersionSupport(version uint8) bool {
	return h.versions.Contains(version)
}

// Register adds a method. Registering a reserved name, a name already taken or
// a nil method is a programming error and panics.
func (h *Handler) Register(name string, method Method) {
	if IsReserved(name) {
		panic(fmt.Sprintf("%s - method name %q is reserved", logPrefix, name))
	}
	if method == nil {
		panic(fmt.Sprintf("%s - nil method for %q", logPrefix, name))
	}

	h.methodsMu.Lock()
	defer h.methodsMu.Unlock()

	if _, ok := h.methods[name]; ok {
		panic(fmt.Sprintf("%s - method %q already registered", logPrefix, name))
	}
	h.methods[name] = method
}

// Unregister removes a method. Removing a method that was never registered
// panics.
func (h *Handler) Unregister(name string) {
	h.methodsMu.Lock()
	defer h.methodsMu.Unlock()

	if _, ok := h.methods[name]; !ok {
		panic(fmt.Sprintf("%s - method %q is not registered", logPrefix, name))
	}
	delete(h.methods, name)
}

// Exists returns ErrorNone when name is registered, ErrorUnknownKey otherwise.
func (h *Handler) Exists(name string) jsonrpc.Status {
	h.methodsMu.RLock()
	defer h.methodsMu.RUnlock()

	if _, ok := h.methods[name]; ok {
		return jsonrpc.ErrorNone
	}
	return jsonrpc.ErrorUnknownKey
}

// Methods returns the registered method names in sorted order.
func (h *Handler) Methods() []string {
	h.methodsMu.RLock()
	names := make([]string, 0, len(h.methods))
	for name := range h.methods {
		names = append(names, name)
	}
	h.methodsMu.RUnlock()

	sort.Strings(names)
	return names
}

// Invoke runs the named method in the calling goroutine.
func (h *Handler) Invoke(conn jsonrpc.Connection, name string, params json.RawMessage) Reply {
	h.methodsMu.RLock()
	method, ok := h.methods[name]
	h.methodsMu.RUnlock()

	if !ok {
		return WithError(jsonrpc.ErrorUnknownKey)
	}
	return method(conn, params)
}

// Subscribe registers client on channelID for event and writes the outcome
// into response, which may be nil for notifications.
func (h *Handler) Subscribe(channelID uint32, event, client string, response *jsonrpc.Message) {
	h.observersMu.Lock()
	defer h.observersMu.Unlock()

	subs := h.observers[event]
	for _, s := range subs {
		if s.ChannelID == channelID && s.Callsign == client {
			slog.Debug(fmt.Sprintf("%s - duplicate subscription event=%s client=%s channel=%d", logPrefix, event, client, channelID))
			setFailure(response, jsonrpc.ErrorDuplicateKey, TextDuplicateRegistration)
			return
		}
	}

	h.observers[event] = append(subs, Subscriber{ChannelID: channelID, Callsign: client})
	slog.Debug(fmt.Sprintf("%s - subscribed event=%s client=%s channel=%d", logPrefix, event, client, channelID))
	setSuccess(response)
}

// Unsubscribe removes the subscription made by Subscribe with the same
// arguments and writes the outcome into response, which may be nil.
func (h *Handler) Unsubscribe(channelID uint32, event, client string, response *jsonrpc.Message) {
	h.observersMu.Lock()
	defer h.observersMu.Unlock()

	subs := h.observers[event]
	for i, s := range subs {
		if s.ChannelID == channelID && s.Callsign == client {
			subs = append(subs[:i:i], subs[i+1:]...)
			if len(subs) == 0 {
				delete(h.observers, event)
			} else {
				h.observers[event] = subs
			}
			slog.Debug(fmt.Sprintf("%s - unsubscribed event=%s client=%s channel=%d", logPrefix, event, client, channelID))
			setSuccess(response)
			return
		}
	}

	setFailure(response, jsonrpc.ErrorUnknownKey, TextRegistrationNotFound)
}

// Subscribers returns the parties registered for event.
func (h *Handler) Subscribers(event string) []Subscriber {
	h.observersMu.Lock()
	defer h.observersMu.Unlock()

	return append([]Subscriber(nil), h.observers[event]...)
}

// Subscriptions returns a snapshot of every event and its subscribers.
func (h *Handler) Subscriptions() map[string][]Subscriber {
	h.observersMu.Lock()
	defer h.observersMu.Unlock()

	out := make(map[string][]Subscriber, len(h.observers))
	for event, subs := range h.observers {
		out[event] = append([]Subscriber(nil), subs...)
	}
	return out
}

// Notify sends params to every subscriber of event.
func (h *Handler) Notify(event string, params json.RawMessage) jsonrpc.Status {
	return h.NotifyFiltered(event, params, nil)
}

// NotifyFiltered sends params to the subscribers of event whose callsign
// satisfies sendIf. A nil sendIf selects everyone. The result is the first
// failing delivery status, or ErrorNone.
func (h *Handler) NotifyFiltered(event string, params json.RawMessage, sendIf func(client string) bool) jsonrpc.Status {
	targets := h.Subscribers(event)

	result := jsonrpc.ErrorNone
	for _, s := range targets {
		if sendIf != nil && !sendIf(s.Callsign) {
			continue
		}
		designator := event
		if s.Callsign != "" {
			designator = s.Callsign + "." + event
		}
		if status := h.notify(s.ChannelID, designator, params); status != jsonrpc.ErrorNone && result == jsonrpc.ErrorNone {
			result = status
		}
	}
	return result
}

// CloseChannel drops every subscription owned by channelID.
func (h *Handler) CloseChannel(channelID uint32) {
	h.observersMu.Lock()
	defer h.observersMu.Unlock()

	dropped := 0
	for event, subs := range h.observers {
		kept := subs[:0]
		for _, s := range subs {
			if s.ChannelID != channelID {
				kept = append(kept, s)
			}
		}
		dropped += len(subs) - len(kept)
		if len(kept) == 0 {
			delete(h.observers, event)
		} else {
			h.observers[event] = kept
		}
	}

	if dropped > 0 {
		slog.Debug(fmt.Sprintf("%s - channel %d closed, dropped %d subscriptions", logPrefix, channelID, dropped))
	}
}

// Close drops every subscription.
func (h *Handler) Close() {
	h.observersMu.Lock()
	h.observers = make(map[string][]Subscriber)
	h.observersMu.Unlock()
}

func setSuccess(response *jsonrpc.Message) {
	if response == nil {
		return
	}
	response.Result = json.RawMessage(jsonrpc.ErrorNone.Text())
	response.Error = nil
}

func setFailure(response *jsonrpc.Message, status jsonrpc.Status, text string) {
	if response == nil {
		return
	}
	response.Result = nil
	response.Error = &jsonrpc.Error{}
	response.Error.SetError(status)
	response.Error.Text = text
}
