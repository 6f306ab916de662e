// Package transport carries JSON-RPC channels over COMMS subjects and hands
// inbound messages to a dispatcher.
package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	comms "github.com/nats-io/nats.go"
	"golang.org/x/time/rate"

	"github.com/morezero/plugin-dispatcher/pkg/commsutil"
	"github.com/morezero/plugin-dispatcher/pkg/dispatcher"
	"github.com/morezero/plugin-dispatcher/pkg/jsonrpc"
)

const logPrefix = "transport:transport"

// ErrAlreadyServing is returned by Serve when the transport already serves a
// dispatcher.
var ErrAlreadyServing = errors.New("transport is already serving")

// Options configures a Transport.
type Options struct {
	// Prefix is the subject root (default commsutil.DefaultPrefix).
	Prefix string
	// Callsign names the plugin on the bus.
	Callsign string
	// RateLimit is the per-channel request rate in messages per second.
	// Zero disables limiting.
	RateLimit float64
	// RateBurst is the per-channel burst (default 1 when limiting).
	RateBurst int
}

// Transport implements dispatcher.Service on a COMMS connection. Each channel
// has an inbound, an outbound and a close subject.
type Transport struct {
	nc       *comms.Conn
	prefix   string
	callsign string
	limit    rate.Limit
	burst    int

	mu         sync.Mutex
	limiters   map[uint32]*rate.Limiter
	subs       []*comms.Subscription
	dispatcher dispatcher.IDispatcher
}

var _ dispatcher.Service = (*Transport)(nil)

// New creates a Transport on nc.
func New(nc *comms.Conn, opts Options) *Transport {
	t := &Transport{
		nc:       nc,
		prefix:   opts.Prefix,
		callsign: opts.Callsign,
		limit:    rate.Inf,
		limiters: make(map[uint32]*rate.Limiter),
	}
	if t.prefix == "" {
		t.prefix = commsutil.DefaultPrefix
	}
	if opts.RateLimit > 0 {
		t.limit = rate.Limit(opts.RateLimit)
		t.burst = opts.RateBurst
		if t.burst <= 0 {
			t.burst = 1
		}
	}
	return t
}

// Callsign returns the plugin callsign.
func (t *Transport) Callsign() string {
	return t.callsign
}

// InboundSubject returns the subject clients publish requests to.
func (t *Transport) InboundSubject(channelID uint32) string {
	return commsutil.BuildChannelSubject(t.prefix, t.callsign, channelID, commsutil.DirectionIn)
}

// OutboundSubject returns the subject notifications and replies without an
// inbox are published to.
func (t *Transport) OutboundSubject(channelID uint32) string {
	return commsutil.BuildChannelSubject(t.prefix, t.callsign, channelID, commsutil.DirectionOut)
}

// CloseSubject returns the subject a client publishes to when it leaves.
func (t *Transport) CloseSubject(channelID uint32) string {
	return commsutil.BuildChannelSubject(t.prefix, t.callsign, channelID, commsutil.DirectionClose)
}

// Submit publishes message on the outbound subject of channelID.
func (t *Transport) Submit(channelID uint32, message *jsonrpc.Message) jsonrpc.Status {
	return t.publish(t.OutboundSubject(channelID), message)
}

func (t *Transport) publish(subject string, message *jsonrpc.Message) jsonrpc.Status {
	data, err := commsutil.EncodeMessage(message)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - %v", logPrefix, err))
		return jsonrpc.ErrorBadRequest
	}
	if err := t.nc.Publish(subject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish on %s: %v", logPrefix, subject, err))
		return jsonrpc.ErrorUnavailable
	}
	return jsonrpc.ErrorNone
}

// Serve activates d with this transport and subscribes to the inbound and
// close subjects of every channel.
func (t *Transport) Serve(d dispatcher.IDispatcher) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dispatcher != nil {
		return fmt.Errorf("%s - %w", logPrefix, ErrAlreadyServing)
	}

	in := commsutil.BuildChannelWildcard(t.prefix, t.callsign, commsutil.DirectionIn)
	inSub, err := t.nc.Subscribe(in, t.handleInbound)
	if err != nil {
		return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, in, err)
	}

	closing := commsutil.BuildChannelWildcard(t.prefix, t.callsign, commsutil.DirectionClose)
	closeSub, err := t.nc.Subscribe(closing, t.handleClose)
	if err != nil {
		_ = inSub.Unsubscribe()
		return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, closing, err)
	}

	d.Activate(t)
	t.dispatcher = d
	t.subs = []*comms.Subscription{inSub, closeSub}

	slog.Info(fmt.Sprintf("%s - Serving %s on %s", logPrefix, t.callsign, in))
	return nil
}

// Close unsubscribes and deactivates the served dispatcher.
func (t *Transport) Close() error {
	t.mu.Lock()
	d := t.dispatcher
	subs := t.subs
	t.dispatcher = nil
	t.subs = nil
	t.limiters = make(map[uint32]*rate.Limiter)
	t.mu.Unlock()

	if d == nil {
		return nil
	}

	var errs []error
	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			errs = append(errs, err)
		}
	}
	d.Deactivate()

	slog.Info(fmt.Sprintf("%s - Stopped serving %s", logPrefix, t.callsign))
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s - failed to unsubscribe: %w", logPrefix, err)
	}
	return nil
}

func (t *Transport) current() dispatcher.IDispatcher {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dispatcher
}

func (t *Transport) allow(channelID uint32) bool {
	if t.limit == rate.Inf {
		return true
	}
	t.mu.Lock()
	limiter, ok := t.limiters[channelID]
	if !ok {
		limiter = rate.NewLimiter(t.limit, t.burst)
		t.limiters[channelID] = limiter
	}
	t.mu.Unlock()
	return limiter.Allow()
}

func (t *Transport) handleInbound(msg *comms.Msg) {
	d := t.current()
	if d == nil {
		return
	}

	channelID, _, err := commsutil.ParseChannelSubject(msg.Subject)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - dropping message: %v", logPrefix, err))
		return
	}

	if !t.allow(channelID) {
		slog.Warn(fmt.Sprintf("%s - rate limit exceeded on channel %d", logPrefix, channelID))
		if id := commsutil.PeekID(msg.Data); id != nil {
			failure := jsonrpc.NewError(0, "")
			failure.SetError(jsonrpc.ErrorUnavailable)
			t.deliver(channelID, msg.Reply, errorResponse(id, failure))
		}
		return
	}

	inbound, err := commsutil.DecodeMessage(msg.Data)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - channel %d: %v", logPrefix, channelID, err))
		id := commsutil.PeekID(msg.Data)
		if id == nil && msg.Reply == "" {
			return
		}
		t.deliver(channelID, msg.Reply, errorResponse(id, jsonrpc.NewError(jsonrpc.CodeParseError, "Parse error.")))
		return
	}
	if inbound.IsResponse() {
		slog.Debug(fmt.Sprintf("%s - ignoring response on channel %d", logPrefix, channelID))
		return
	}

	if response := d.Invoke(channelID, inbound); response != nil {
		t.deliver(channelID, msg.Reply, response)
	}
}

func (t *Transport) handleClose(msg *comms.Msg) {
	d := t.current()
	if d == nil {
		return
	}

	channelID, _, err := commsutil.ParseChannelSubject(msg.Subject)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - dropping close: %v", logPrefix, err))
		return
	}

	t.mu.Lock()
	delete(t.limiters, channelID)
	t.mu.Unlock()

	d.Closed(channelID)
	slog.Info(fmt.Sprintf("%s - Channel %d closed", logPrefix, channelID))
}

// deliver answers on the request's inbox when there is one, else on the
// channel's outbound subject.
func (t *Transport) deliver(channelID uint32, inbox string, response *jsonrpc.Message) {
	subject := inbox
	if subject == "" {
		subject = t.OutboundSubject(channelID)
	}
	t.publish(subject, response)
}

func errorResponse(id *jsonrpc.ID, failure *jsonrpc.Error) *jsonrpc.Message {
	if id == nil {
		id = &jsonrpc.ID{}
	}
	return &jsonrpc.Message{JSONRPC: jsonrpc.DefaultVersion, ID: id, Error: failure}
}
