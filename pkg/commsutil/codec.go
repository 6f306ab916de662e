package commsutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/morezero/plugin-dispatcher/pkg/jsonrpc"
)

const codecLogPrefix = "commsutil:codec"

// ErrBatchUnsupported is returned for JSON-RPC batch payloads.
var ErrBatchUnsupported = errors.New("batch requests are not supported")

// EncodePayload serializes a value to JSON bytes.
func EncodePayload(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// DecodePayload deserializes JSON bytes into the given target.
func DecodePayload(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// EncodeMessage serializes a JSON-RPC message.
func EncodeMessage(msg *jsonrpc.Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to encode message: %w", codecLogPrefix, err)
	}
	return data, nil
}

// DecodeMessage parses one JSON-RPC message. A message must carry a method or
// be a response carrying an id.
func DecodeMessage(data []byte) (*jsonrpc.Message, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return nil, fmt.Errorf("%s - %w", codecLogPrefix, ErrBatchUnsupported)
	}

	var msg jsonrpc.Message
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		return nil, fmt.Errorf("%s - failed to decode message: %w", codecLogPrefix, err)
	}
	if msg.Designator == "" && msg.ID == nil {
		return nil, fmt.Errorf("%s - message has neither method nor id", codecLogPrefix)
	}
	return &msg, nil
}

// PeekID extracts the id of a payload that may not decode as a message, so a
// parse error can still be addressed to the caller.
func PeekID(data []byte) *jsonrpc.ID {
	var probe struct {
		ID *jsonrpc.ID `json:"id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil
	}
	return probe.ID
}
