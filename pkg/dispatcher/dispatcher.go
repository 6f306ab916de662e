// Package dispatcher routes JSON-RPC messages arriving on transport channels to
// the versioned method registries of one plugin, and sends responses and event
// notifications back through the hosting service.
package dispatcher

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/morezero/plugin-dispatcher/pkg/handler"
	"github.com/morezero/plugin-dispatcher/pkg/jsonrpc"
	"github.com/morezero/plugin-dispatcher/pkg/semver"
)

const logPrefix = "dispatcher:dispatcher"

const textInvokeFailed = "Destined invoke failed."

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks github.com/morezero/plugin-dispatcher/pkg/dispatcher Service

// Service is the hosting side of a dispatcher: it names the plugin and delivers
// outbound messages to channels.
type Service interface {
	Callsign() string
	Submit(channelID uint32, message *jsonrpc.Message) jsonrpc.Status
}

// IDispatcher is the contract the hosting framework drives.
type IDispatcher interface {
	// Invoke handles one inbound message and returns the response, or nil when
	// none is due.
	Invoke(channelID uint32, message *jsonrpc.Message) *jsonrpc.Message
	Activate(service Service)
	Deactivate()
	Closed(channelID uint32)
}

type state uint8

const (
	stateIncorrectHandler state = iota
	stateIncorrectVersion
	stateUnknownMethod
	stateRegistration
	stateUnregistration
	stateExists
	stateCustom
)

func (s state) String() string {
	switch s {
	case stateIncorrectHandler:
		return "incorrect-handler"
	case stateIncorrectVersion:
		return "incorrect-version"
	case stateUnknownMethod:
		return "unknown-method"
	case stateRegistration:
		return "registration"
	case stateUnregistration:
		return "unregistration"
	case stateExists:
		return "exists"
	default:
		return "custom"
	}
}

type registrationParams struct {
	Event string `json:"event"`
	ID    string `json:"id"`
}

// JSONRPC is the dispatcher of one plugin. It owns an ordered table of method
// registries; the first one is the default target of Register, Notify and
// friends, and version lookups always pick the oldest registry that matches.
type JSONRPC struct {
	hooks      Hooks
	newMessage func() *jsonrpc.Message
	strict     bool

	tableMu  sync.RWMutex
	handlers []*handler.Handler

	serviceMu sync.RWMutex
	service   Service
	callsign  string
}

var _ IDispatcher = (*JSONRPC)(nil)

// New creates a dispatcher with its default registry.
func New(opts ...Option) *JSONRPC {
	return newJSONRPC(buildOptions(opts))
}

func newJSONRPC(o *options, inner ...func(Hooks) Hooks) *JSONRPC {
	hooks := o.hooks
	for _, decorate := range inner {
		hooks = decorate(hooks)
	}
	for _, decorate := range o.decorators {
		hooks = decorate(hooks)
	}

	d := &JSONRPC{
		hooks:      hooks,
		newMessage: o.newMessage,
		strict:     o.strict,
	}
	d.handlers = []*handler.Handler{handler.New(d.send, o.versions)}
	return d
}

// CreateHandler appends a registry serving versions to the table.
func (d *JSONRPC) CreateHandler(versions semver.VersionSet) *handler.Handler {
	return d.appendHandler(handler.New(d.send, versions))
}

// CreateHandlerFrom appends a registry serving versions that starts with the
// methods of source.
func (d *JSONRPC) CreateHandlerFrom(versions semver.VersionSet, source *handler.Handler) *handler.Handler {
	return d.appendHandler(handler.NewFrom(d.send, versions, source))
}

func (d *JSONRPC) appendHandler(h *handler.Handler) *handler.Handler {
	d.tableMu.Lock()
	d.handlers = append(d.handlers, h)
	d.tableMu.Unlock()

	slog.Debug(fmt.Sprintf("%s - created registry for versions %s", logPrefix, h.Versions()))
	return h
}

// GetHandler returns the registry serving version: the default registry for
// jsonrpc.AnyVersion, otherwise the oldest registry supporting it, or nil.
func (d *JSONRPC) GetHandler(version uint8) *handler.Handler {
	d.tableMu.RLock()
	defer d.tableMu.RUnlock()

	if version == jsonrpc.AnyVersion {
		return d.handlers[0]
	}
	for _, h := range d.handlers {
		if h.HasVersionSupport(version) {
			return h
		}
	}
	return nil
}

// Handler returns the default registry.
func (d *JSONRPC) Handler() *handler.Handler {
	return d.GetHandler(jsonrpc.AnyVersion)
}

// Handlers returns the registry table in creation order.
func (d *JSONRPC) Handlers() []*handler.Handler {
	d.tableMu.RLock()
	defer d.tableMu.RUnlock()

	return append([]*handler.Handler(nil), d.handlers...)
}

// Register adds a method to the default registry.
func (d *JSONRPC) Register(name string, method handler.Method) {
	d.Handler().Register(name, method)
}

// Unregister removes a method from the default registry.
func (d *JSONRPC) Unregister(name string) {
	d.Handler().Unregister(name)
}

// Callsign returns the callsign bound at activation.
func (d *JSONRPC) Callsign() string {
	d.serviceMu.RLock()
	defer d.serviceMu.RUnlock()

	return d.callsign
}

// IsActive reports whether a service is bound.
func (d *JSONRPC) IsActive() bool {
	d.serviceMu.RLock()
	defer d.serviceMu.RUnlock()

	return d.service != nil
}

// Activate binds the hosting service and takes over its callsign. Activating
// twice or with a nil service panics.
func (d *JSONRPC) Activate(service Service) {
	if service == nil {
		panic(fmt.Sprintf("%s - activate with nil service", logPrefix))
	}

	d.serviceMu.Lock()
	defer d.serviceMu.Unlock()

	if d.service != nil {
		panic(fmt.Sprintf("%s - already activated as %q", logPrefix, d.callsign))
	}
	d.service = service
	d.callsign = service.Callsign()

	slog.Info(fmt.Sprintf("%s - activated callsign=%s", logPrefix, d.callsign))
}

// Deactivate closes every registry and unbinds the service. Requests arriving
// afterwards are answered with ErrorIllegalState.
func (d *JSONRPC) Deactivate() {
	for _, h := range d.Handlers() {
		h.Close()
	}

	d.serviceMu.Lock()
	callsign := d.callsign
	d.service = nil
	d.serviceMu.Unlock()

	slog.Info(fmt.Sprintf("%s - deactivated callsign=%s", logPrefix, callsign))
}

// Closed drops the subscriptions owned by channelID in every registry.
func (d *JSONRPC) Closed(channelID uint32) {
	for _, h := range d.Handlers() {
		h.CloseChannel(channelID)
	}
}

// Invoke handles one inbound message arriving on channelID.
func (d *JSONRPC) Invoke(channelID uint32, inbound *jsonrpc.Message) *jsonrpc.Message {
	var response *jsonrpc.Message
	if inbound.ID != nil {
		response = d.newMessage()
		id := *inbound.ID
		response.ID = &id
		response.JSONRPC = jsonrpc.DefaultVersion
	}

	d.serviceMu.RLock()
	active := d.service != nil
	callsign := d.callsign
	d.serviceMu.RUnlock()

	if !active {
		slog.Warn(fmt.Sprintf("%s - %s on channel %d while not active", logPrefix, inbound.Designator, channelID))
		failResponse(response, jsonrpc.ErrorIllegalState, "")
		return response
	}

	st, source := d.destination(inbound.Designator, callsign)
	slog.Debug(fmt.Sprintf("%s - channel=%d designator=%s state=%s", logPrefix, channelID, inbound.Designator, st))

	switch st {
	case stateIncorrectHandler:
		failResponse(response, jsonrpc.ErrorInvalidDesignator, textInvokeFailed)
	case stateIncorrectVersion:
		failResponse(response, jsonrpc.ErrorInvalidSignature, textInvokeFailed)
	case stateUnknownMethod:
		failResponse(response, jsonrpc.ErrorUnknownKey, textInvokeFailed)
	case stateRegistration, stateUnregistration:
		d.registration(st, source, channelID, inbound, response)
	case stateExists:
		result := jsonrpc.ErrorUnknownKey
		if d.hooks.Exists(source, existsTarget(inbound.Params)) {
			result = jsonrpc.ErrorNone
		}
		if response != nil {
			response.Result = json.RawMessage(result.Text())
		}
	case stateCustom:
		conn := jsonrpc.Connection{ChannelID: channelID}
		if inbound.ID != nil {
			conn.Sequence = *inbound.ID
		}
		reply := source.Invoke(conn, jsonrpc.Method(inbound.Designator), inbound.Params)
		if response == nil {
			return nil
		}
		switch reply.Kind() {
		case handler.ReplyNone:
			return nil
		case handler.ReplyError:
			status := reply.Status()
			response.Error = &jsonrpc.Error{Code: int(status), Text: status.String()}
		default:
			response.Result = reply.Value()
		}
	}

	return response
}

func (d *JSONRPC) destination(designator, own string) (state, *handler.Handler) {
	callsign := jsonrpc.Callsign(designator)
	if callsign != "" && callsign != own {
		return stateIncorrectHandler, nil
	}

	source := d.GetHandler(jsonrpc.Version(designator))
	if source == nil {
		return stateIncorrectVersion, nil
	}

	switch method := jsonrpc.Method(designator); method {
	case handler.MethodRegister:
		return stateRegistration, source
	case handler.MethodUnregister:
		return stateUnregistration, source
	case handler.MethodExists:
		return stateExists, source
	default:
		if source.Exists(method) == jsonrpc.ErrorNone {
			return stateCustom, source
		}
		return stateUnknownMethod, nil
	}
}

func (d *JSONRPC) registration(st state, source *handler.Handler, channelID uint32, inbound, response *jsonrpc.Message) {
	var info registrationParams
	err := json.Unmarshal(inbound.Params, &info)
	if d.strict && (err != nil || info.Event == "") {
		slog.Debug(fmt.Sprintf("%s - rejected %s on channel %d: bad registration params", logPrefix, inbound.Designator, channelID))
		failResponse(response, jsonrpc.ErrorBadRequest, "")
		return
	}

	// Notifications still change subscriptions; the outcome lands in a scratch
	// message nobody reads.
	target := response
	if target == nil {
		target = d.newMessage()
	}

	if st == stateRegistration {
		d.hooks.Subscribe(source, channelID, info.Event, info.ID, target)
	} else {
		d.hooks.Unsubscribe(source, channelID, info.Event, info.ID, target)
	}
}

// existsTarget extracts the method name an exists call asks about. A JSON
// string is unquoted; anything else is taken as raw text.
func existsTarget(params json.RawMessage) string {
	p := bytes.TrimSpace(params)
	if len(p) > 0 && p[0] == '"' {
		var name string
		if err := json.Unmarshal(p, &name); err == nil {
			return name
		}
	}
	return strings.TrimSpace(string(p))
}

// failResponse sets the error for status. An empty text keeps the default
// text of the status.
func failResponse(response *jsonrpc.Message, status jsonrpc.Status, text string) {
	if response == nil {
		return
	}
	response.Result = nil
	response.Error = &jsonrpc.Error{}
	response.Error.SetError(status)
	if text != "" {
		response.Error.Text = text
	}
}
