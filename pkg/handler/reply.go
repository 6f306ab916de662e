package handler

import (
	"encoding/json"

	"github.com/morezero/plugin-dispatcher/pkg/jsonrpc"
)

// ReplyKind is the outcome class of a method invocation.
type ReplyKind uint8

const (
	// ReplyResult carries a result value for the caller.
	ReplyResult ReplyKind = iota
	// ReplyError carries a failure status for the caller.
	ReplyError
	// ReplyNone suppresses the response. The method answered out of band
	// (see JSONRPC.Response) or deliberately stays silent.
	ReplyNone
)

// Reply is what a Method returns: a result, a failure status, or nothing.
type Reply struct {
	kind   ReplyKind
	value  json.RawMessage
	status jsonrpc.Status
}

// WithResult returns a successful reply. A nil value is sent as a JSON null.
func WithResult(value json.RawMessage) Reply {
	return Reply{kind: ReplyResult, value: value}
}

// WithError returns a failed reply. ErrorNone is treated as an empty success.
func WithError(status jsonrpc.Status) Reply {
	if status == jsonrpc.ErrorNone {
		return Reply{kind: ReplyResult}
	}
	return Reply{kind: ReplyError, status: status}
}

// NoReply returns a reply that discards the pending response.
func NoReply() Reply {
	return Reply{kind: ReplyNone}
}

// Kind returns the outcome class.
func (r Reply) Kind() ReplyKind {
	return r.kind
}

// Value returns the result payload of a ReplyResult.
func (r Reply) Value() json.RawMessage {
	return r.value
}

// Status returns the failure status, or ErrorNone for anything but ReplyError.
func (r Reply) Status() jsonrpc.Status {
	return r.status
}
