package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/morezero/plugin-dispatcher/pkg/jsonrpc"
)

const typedLogPrefix = "handler:typed"

// Register adds a method whose parameters decode into In and whose result
// encodes from Out. Parameters that do not decode are answered with
// ErrorBadRequest; a non-zero status from fn is answered as a failure.
func Register[In, Out any](h *Handler, name string, fn func(conn jsonrpc.Connection, in In) (Out, jsonrpc.Status)) {
	h.Register(name, func(conn jsonrpc.Connection, params json.RawMessage) Reply {
		var in In
		if err := decodeParams(params, &in); err != nil {
			slog.Debug(fmt.Sprintf("%s - %s: bad params: %v", typedLogPrefix, name, err))
			return WithError(jsonrpc.ErrorBadRequest)
		}

		out, status := fn(conn, in)
		if status != jsonrpc.ErrorNone {
			return WithError(status)
		}
		return encodeResult(name, out)
	})
}

// RegisterAction adds a method that takes In and produces no result value.
func RegisterAction[In any](h *Handler, name string, fn func(conn jsonrpc.Connection, in In) jsonrpc.Status) {
	h.Register(name, func(conn jsonrpc.Connection, params json.RawMessage) Reply {
		var in In
		if err := decodeParams(params, &in); err != nil {
			slog.Debug(fmt.Sprintf("%s - %s: bad params: %v", typedLogPrefix, name, err))
			return WithError(jsonrpc.ErrorBadRequest)
		}
		return WithError(fn(conn, in))
	})
}

// Property adds a read/write property. A call without parameters reads it
// through get; a call with parameters decodes them into T and writes through
// set. A nil accessor makes that direction unavailable.
func Property[T any](h *Handler, name string, get func() (T, jsonrpc.Status), set func(value T) jsonrpc.Status) {
	h.Register(name, func(_ jsonrpc.Connection, params json.RawMessage) Reply {
		if isEmptyParams(params) {
			if get == nil {
				return WithError(jsonrpc.ErrorUnavailable)
			}
			value, status := get()
			if status != jsonrpc.ErrorNone {
				return WithError(status)
			}
			return encodeResult(name, value)
		}

		if set == nil {
			return WithError(jsonrpc.ErrorUnavailable)
		}
		var value T
		if err := json.Unmarshal(params, &value); err != nil {
			slog.Debug(fmt.Sprintf("%s - %s: bad property value: %v", typedLogPrefix, name, err))
			return WithError(jsonrpc.ErrorBadRequest)
		}
		return WithError(set(value))
	})
}

func isEmptyParams(params json.RawMessage) bool {
	p := bytes.TrimSpace(params)
	return len(p) == 0 || bytes.Equal(p, []byte("null"))
}

func decodeParams(params json.RawMessage, into any) error {
	if isEmptyParams(params) {
		return nil
	}
	return json.Unmarshal(params, into)
}

func encodeResult(name string, value any) Reply {
	data, err := json.Marshal(value)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - %s: failed to encode result: %v", typedLogPrefix, name, err))
		return WithError(jsonrpc.ErrorGeneral)
	}
	return WithResult(data)
}
