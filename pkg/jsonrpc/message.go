// Package jsonrpc defines the JSON-RPC envelope exchanged between transport channels
// and plugin dispatchers, together with the designator grammar used for routing.
package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

// DefaultVersion is the protocol tag stamped on every outbound message.
const DefaultVersion = "2.0"

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeServerError    = -32000
)

var errInvalidID = errors.New("jsonrpc: id must be a number or a string")

// ID is a request identifier: either a JSON number or a JSON string. The zero
// value is the empty id.
type ID struct {
	raw string
}

// NumberID returns a numeric id.
func NumberID(n uint64) ID {
	return ID{raw: strconv.FormatUint(n, 10)}
}

// StringID returns a string id.
func StringID(s string) ID {
	b, _ := json.Marshal(s)
	return ID{raw: string(b)}
}

// IsZero reports whether the id carries no value.
func (id ID) IsZero() bool {
	return id.raw == ""
}

// Number returns the id as an unsigned integer when it is numeric.
func (id ID) Number() (uint64, bool) {
	n, err := strconv.ParseUint(id.raw, 10, 64)
	return n, err == nil
}

// String returns the id value; string ids are returned unquoted.
func (id ID) String() string {
	if len(id.raw) > 0 && id.raw[0] == '"' {
		var s string
		if err := json.Unmarshal([]byte(id.raw), &s); err == nil {
			return s
		}
	}
	return id.raw
}

// MarshalJSON implements json.Marshaler.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.raw == "" {
		return []byte("null"), nil
	}
	return []byte(id.raw), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errInvalidID
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errInvalidID
		}
		*id = StringID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errInvalidID
	}
	id.raw = n.String()
	return nil
}

// Error is the error member of a JSON-RPC response.
type Error struct {
	Code int             `json:"code"`
	Text string          `json:"message"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewError returns an error with the given code and text.
func NewError(code int, text string) *Error {
	return &Error{Code: code, Text: text}
}

func (e *Error) Error() string {
	return e.Text
}

// SetError maps a framework status onto the closest JSON-RPC error. Statuses
// without a JSON-RPC equivalent keep their numeric value as the code.
func (e *Error) SetError(status Status) {
	switch status {
	case ErrorInvalidDesignator:
		e.Code = CodeInvalidRequest
		e.Text = "Dangling designator. Destination not found."
	case ErrorInvalidSignature:
		e.Code = CodeInvalidParams
		e.Text = "Invalid signature. Requested version is not supported."
	case ErrorUnknownKey:
		e.Code = CodeMethodNotFound
		e.Text = "Unknown method."
	case ErrorBadRequest:
		e.Code = CodeInvalidParams
		e.Text = "Invalid parameters."
	case ErrorIllegalState:
		e.Code = CodeServerError
		e.Text = "Service is not active."
	case ErrorPrivilegedRequest:
		e.Code = CodeServerError - 4
		e.Text = "Privileged request. Access denied."
	case ErrorTimedOut:
		e.Code = CodeServerError - 1
		e.Text = "Call timed out."
	default:
		e.Code = int(status)
		e.Text = status.String()
	}
}

// Connection addresses the originator of a request: the channel it arrived on
// and the id it carried.
type Connection struct {
	ChannelID uint32
	Sequence  ID
}

// Message is a JSON-RPC envelope. A message with a Designator is a request (ID
// set) or a notification (ID nil); a message without one is a response.
type Message struct {
	JSONRPC    string          `json:"jsonrpc"`
	ID         *ID             `json:"id,omitempty"`
	Designator string          `json:"method,omitempty"`
	Params     json.RawMessage `json:"params,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      *Error          `json:"error,omitempty"`
}

// NewMessage allocates an empty message.
func NewMessage() *Message {
	return &Message{}
}

// IsNotification reports whether the message is a call that expects no reply.
func (m *Message) IsNotification() bool {
	return m.ID == nil && m.Designator != ""
}

// IsResponse reports whether the message answers an earlier request.
func (m *Message) IsResponse() bool {
	return m.ID != nil && m.Designator == ""
}

// Callsign returns the callsign segment of the designator.
func (m *Message) Callsign() string {
	return Callsign(m.Designator)
}

// Version returns the version segment of the designator, or AnyVersion.
func (m *Message) Version() uint8 {
	return Version(m.Designator)
}

// Method returns the bare method name of the designator.
func (m *Message) Method() string {
	return Method(m.Designator)
}

type wireMessage struct {
	JSONRPC    string          `json:"jsonrpc"`
	ID         *ID             `json:"id,omitempty"`
	Designator string          `json:"method,omitempty"`
	Params     json.RawMessage `json:"params,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      *Error          `json:"error,omitempty"`
}

// MarshalJSON implements json.Marshaler. A successful response always carries a
// result member, "null" when the handler produced no value.
func (m Message) MarshalJSON() ([]byte, error) {
	w := wireMessage(m)
	if w.JSONRPC == "" {
		w.JSONRPC = DefaultVersion
	}
	if m.IsResponse() {
		if w.Error != nil {
			w.Result = nil
		} else if len(w.Result) == 0 {
			w.Result = json.RawMessage("null")
		}
	}
	return json.Marshal(w)
}
