package handler

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morezero/plugin-dispatcher/pkg/jsonrpc"
	"github.com/morezero/plugin-dispatcher/pkg/semver"
)

type delivery struct {
	channelID  uint32
	designator string
	params     string
}

type recorder struct {
	mu  sync.Mutex
	got []delivery
}

func (r *recorder) notify(channelID uint32, designator string, params json.RawMessage) jsonrpc.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, delivery{channelID: channelID, designator: designator, params: string(params)})
	return jsonrpc.ErrorNone
}

func newTestHandler(t *testing.T) (*Handler, *recorder) {
	t.Helper()
	rec := &recorder{}
	return New(rec.notify, semver.Versions(1)), rec
}

func pong(_ jsonrpc.Connection, _ json.RawMessage) Reply {
	return WithResult(json.RawMessage(`"pong"`))
}

func TestHandler_RegisterInvoke(t *testing.T) {
	h, _ := newTestHandler(t)
	h.Register("ping", pong)

	assert.Equal(t, jsonrpc.ErrorNone, h.Exists("ping"))
	assert.Equal(t, jsonrpc.ErrorUnknownKey, h.Exists("pong"))

	reply := h.Invoke(jsonrpc.Connection{ChannelID: 1}, "ping", nil)
	assert.Equal(t, ReplyResult, reply.Kind())
	assert.JSONEq(t, `"pong"`, string(reply.Value()))

	missing := h.Invoke(jsonrpc.Connection{ChannelID: 1}, "missing", nil)
	assert.Equal(t, ReplyError, missing.Kind())
	assert.Equal(t, jsonrpc.ErrorUnknownKey, missing.Status())

	h.Unregister("ping")
	assert.Equal(t, jsonrpc.ErrorUnknownKey, h.Exists("ping"))
}

func TestHandler_RegisterPanics(t *testing.T) {
	tests := []struct {
		name string
		run  func(h *Handler)
	}{
		{name: "reserved register", run: func(h *Handler) { h.Register(MethodRegister, pong) }},
		{name: "reserved unregister", run: func(h *Handler) { h.Register(MethodUnregister, pong) }},
		{name: "reserved exists", run: func(h *Handler) { h.Register(MethodExists, pong) }},
		{name: "nil method", run: func(h *Handler) { h.Register("ping", nil) }},
		{name: "duplicate", run: func(h *Handler) { h.Register("ping", pong); h.Register("ping", pong) }},
		{name: "unregister unknown", run: func(h *Handler) { h.Unregister("ping") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(t)
			assert.Panics(t, func() { tt.run(h) })
		})
	}
}

func TestHandler_NilNotifyPanics(t *testing.T) {
	assert.Panics(t, func() { New(nil, semver.Versions(1)) })
}

func TestHandler_Methods(t *testing.T) {
	h, _ := newTestHandler(t)
	h.Register("b", pong)
	h.Register("a", pong)
	assert.Equal(t, []string{"a", "b"}, h.Methods())
}

func TestHandler_NewFromCopiesMethods(t *testing.T) {
	src, rec := newTestHandler(t)
	src.Register("ping", pong)
	src.Subscribe(1, "tick", "client1", nil)

	h := NewFrom(rec.notify, semver.Versions(2), src)
	assert.Equal(t, jsonrpc.ErrorNone, h.Exists("ping"))
	assert.Empty(t, h.Subscriptions())
	assert.True(t, h.HasVersionSupport(2))
	assert.False(t, h.HasVersionSupport(1))

	// The copy is independent of its source.
	h.Register("extra", pong)
	assert.Equal(t, jsonrpc.ErrorUnknownKey, src.Exists("extra"))
}

func TestHandler_SubscribeUnsubscribe(t *testing.T) {
	h, rec := newTestHandler(t)

	id := jsonrpc.NumberID(1)
	resp := &jsonrpc.Message{ID: &id}
	h.Subscribe(42, "tick", "client1", resp)
	require.Nil(t, resp.Error)
	assert.Equal(t, "0", string(resp.Result))
	assert.Equal(t, []Subscriber{{ChannelID: 42, Callsign: "client1"}}, h.Subscribers("tick"))

	dup := &jsonrpc.Message{ID: &id}
	h.Subscribe(42, "tick", "client1", dup)
	require.NotNil(t, dup.Error)
	assert.Equal(t, int(jsonrpc.ErrorDuplicateKey), dup.Error.Code)
	assert.Equal(t, TextDuplicateRegistration, dup.Error.Text)
	assert.Len(t, h.Subscribers("tick"), 1)

	un := &jsonrpc.Message{ID: &id}
	h.Unsubscribe(42, "tick", "client1", un)
	require.Nil(t, un.Error)
	assert.Empty(t, h.Subscribers("tick"))

	again := &jsonrpc.Message{ID: &id}
	h.Unsubscribe(42, "tick", "client1", again)
	require.NotNil(t, again.Error)
	assert.Equal(t, jsonrpc.CodeMethodNotFound, again.Error.Code)
	assert.Equal(t, TextRegistrationNotFound, again.Error.Text)

	assert.Equal(t, jsonrpc.ErrorNone, h.Notify("tick", json.RawMessage(`1`)))
	assert.Empty(t, rec.got)
}

func TestHandler_Notify(t *testing.T) {
	h, rec := newTestHandler(t)
	h.Subscribe(1, "tick", "client1", nil)
	h.Subscribe(2, "tick", "", nil)
	h.Subscribe(3, "tock", "client3", nil)

	status := h.Notify("tick", json.RawMessage(`{"n":1}`))
	assert.Equal(t, jsonrpc.ErrorNone, status)
	assert.ElementsMatch(t, []delivery{
		{channelID: 1, designator: "client1.tick", params: `{"n":1}`},
		{channelID: 2, designator: "tick", params: `{"n":1}`},
	}, rec.got)
}

func TestHandler_NotifyFiltered(t *testing.T) {
	h, rec := newTestHandler(t)
	h.Subscribe(1, "tick", "a", nil)
	h.Subscribe(2, "tick", "b", nil)

	h.NotifyFiltered("tick", nil, func(client string) bool { return client == "b" })
	require.Len(t, rec.got, 1)
	assert.Equal(t, uint32(2), rec.got[0].channelID)
}

func TestHandler_NotifyReportsFirstFailure(t *testing.T) {
	calls := 0
	h := New(func(channelID uint32, _ string, _ json.RawMessage) jsonrpc.Status {
		calls++
		return jsonrpc.ErrorWriteError
	}, semver.Versions(1))
	h.Subscribe(1, "tick", "a", nil)
	h.Subscribe(2, "tick", "b", nil)

	assert.Equal(t, jsonrpc.ErrorWriteError, h.Notify("tick", nil))
	assert.Equal(t, 2, calls)
}

func TestHandler_CloseChannel(t *testing.T) {
	h, _ := newTestHandler(t)
	h.Subscribe(1, "tick", "a", nil)
	h.Subscribe(2, "tick", "b", nil)
	h.Subscribe(1, "tock", "a", nil)

	h.CloseChannel(1)

	subs := h.Subscriptions()
	assert.Equal(t, map[string][]Subscriber{"tick": {{ChannelID: 2, Callsign: "b"}}}, subs)

	h.Close()
	assert.Empty(t, h.Subscriptions())
}

func TestHandler_ConcurrentSubscribe(t *testing.T) {
	h, _ := newTestHandler(t)

	var wg sync.WaitGroup
	for i := uint32(0); i < 32; i++ {
		wg.Add(1)
		go func(ch uint32) {
			defer wg.Done()
			h.Subscribe(ch, "tick", "c", nil)
			h.Notify("tick", nil)
			if ch%2 == 0 {
				h.CloseChannel(ch)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, h.Subscribers("tick"), 16)
}

func TestReply(t *testing.T) {
	assert.Equal(t, ReplyResult, WithError(jsonrpc.ErrorNone).Kind())
	assert.Equal(t, ReplyNone, NoReply().Kind())
	assert.Equal(t, jsonrpc.ErrorNone, WithResult(nil).Status())
	assert.Equal(t, jsonrpc.ErrorTimedOut, WithError(jsonrpc.ErrorTimedOut).Status())
}
