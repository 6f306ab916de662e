package dispatcher

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/morezero/plugin-dispatcher/pkg/jsonrpc"
)

const notifyLogPrefix = "dispatcher:notify"

// Notify sends an event without parameters to its subscribers on the default
// registry.
func (d *JSONRPC) Notify(event string) jsonrpc.Status {
	return d.NotifyFiltered(event, nil, nil)
}

// NotifyWith sends an event to its subscribers on the default registry. params
// is encoded as JSON unless it already is a json.RawMessage.
func (d *JSONRPC) NotifyWith(event string, params any) jsonrpc.Status {
	return d.NotifyFiltered(event, params, nil)
}

// NotifyFiltered is NotifyWith restricted to subscribers whose callsign
// satisfies sendIf. It returns ErrorIllegalState when the dispatcher is not
// active, otherwise the first failing delivery status.
func (d *JSONRPC) NotifyFiltered(event string, params any, sendIf func(client string) bool) jsonrpc.Status {
	if !d.IsActive() {
		return jsonrpc.ErrorIllegalState
	}

	raw, err := encodeParams(params)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to encode %s parameters: %v", notifyLogPrefix, event, err))
		return jsonrpc.ErrorBadRequest
	}
	return d.Handler().NotifyFiltered(event, raw, sendIf)
}

// send is the notification sink of every registry in the table.
func (d *JSONRPC) send(channelID uint32, designator string, params json.RawMessage) jsonrpc.Status {
	d.serviceMu.RLock()
	service := d.service
	d.serviceMu.RUnlock()

	if service == nil {
		return jsonrpc.ErrorIllegalState
	}

	message := d.newMessage()
	message.JSONRPC = jsonrpc.DefaultVersion
	message.Designator = designator
	if len(params) > 0 {
		message.Params = params
	}
	return service.Submit(channelID, message)
}

// Response answers the request identified by conn with result, for methods
// that replied with handler.NoReply and finish later. Calling it while not
// active panics.
func (d *JSONRPC) Response(conn jsonrpc.Connection, result any) jsonrpc.Status {
	raw, err := encodeParams(result)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to encode response for channel %d: %v", notifyLogPrefix, conn.ChannelID, err))
		return d.ResponseError(conn, jsonrpc.NewError(int(jsonrpc.ErrorGeneral), jsonrpc.ErrorGeneral.String()))
	}

	message := d.reply(conn)
	message.Result = raw
	return d.submit(conn.ChannelID, message)
}

// ResponseError answers the request identified by conn with failure.
func (d *JSONRPC) ResponseError(conn jsonrpc.Connection, failure *jsonrpc.Error) jsonrpc.Status {
	message := d.reply(conn)
	message.Error = failure
	return d.submit(conn.ChannelID, message)
}

func (d *JSONRPC) reply(conn jsonrpc.Connection) *jsonrpc.Message {
	message := d.newMessage()
	message.JSONRPC = jsonrpc.DefaultVersion
	id := conn.Sequence
	message.ID = &id
	return message
}

func (d *JSONRPC) submit(channelID uint32, message *jsonrpc.Message) jsonrpc.Status {
	d.serviceMu.RLock()
	service := d.service
	d.serviceMu.RUnlock()

	if service == nil {
		panic(fmt.Sprintf("%s - response on channel %d while not active", notifyLogPrefix, channelID))
	}
	return service.Submit(channelID, message)
}

func encodeParams(params any) (json.RawMessage, error) {
	switch v := params.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return v, nil
	default:
		return json.Marshal(v)
	}
}
