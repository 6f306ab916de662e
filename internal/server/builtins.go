package server

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/morezero/plugin-dispatcher/pkg/dispatcher"
	"github.com/morezero/plugin-dispatcher/pkg/handler"
	"github.com/morezero/plugin-dispatcher/pkg/jsonrpc"
)

// Builtin method names served by every plugin host.
const (
	MethodPing          = "ping"
	MethodEcho          = "echo"
	MethodVersions      = "versions"
	MethodSubscriptions = "subscriptions"
	MethodLogLevel      = "loglevel"
)

type registryInfo struct {
	Versions []int    `json:"versions"`
	Methods  []string `json:"methods"`
}

type subscriptionsParams struct {
	Event string `json:"event,omitempty"`
}

type pingResult struct {
	Pong   bool   `json:"pong"`
	Time   string `json:"time"`
	Uptime int64  `json:"uptime"`
}

// registerBuiltins installs the builtin methods on the default registry of d.
// Registries created later with inherit copy them.
func registerBuiltins(d *dispatcher.JSONRPC, level *slog.LevelVar, started time.Time) {
	h := d.Handler()

	handler.Register(h, MethodPing, func(_ jsonrpc.Connection, _ struct{}) (pingResult, jsonrpc.Status) {
		return pingResult{
			Pong:   true,
			Time:   time.Now().UTC().Format(time.RFC3339),
			Uptime: int64(time.Since(started).Seconds()),
		}, jsonrpc.ErrorNone
	})

	h.Register(MethodEcho, func(_ jsonrpc.Connection, params json.RawMessage) handler.Reply {
		return handler.WithResult(params)
	})

	handler.Register(h, MethodVersions, func(_ jsonrpc.Connection, _ struct{}) ([]registryInfo, jsonrpc.Status) {
		handlers := d.Handlers()
		out := make([]registryInfo, 0, len(handlers))
		for _, reg := range handlers {
			majors := reg.Versions().List()
			info := registryInfo{Versions: make([]int, len(majors)), Methods: reg.Methods()}
			for i, m := range majors {
				info.Versions[i] = int(m)
			}
			out = append(out, info)
		}
		return out, jsonrpc.ErrorNone
	})

	handler.Register(h, MethodSubscriptions, func(_ jsonrpc.Connection, in subscriptionsParams) (map[string][]handler.Subscriber, jsonrpc.Status) {
		all := collectSubscriptions(d)
		if in.Event == "" {
			return all, jsonrpc.ErrorNone
		}
		subs, ok := all[in.Event]
		if !ok {
			return nil, jsonrpc.ErrorUnknownKey
		}
		return map[string][]handler.Subscriber{in.Event: subs}, jsonrpc.ErrorNone
	})

	if level != nil {
		handler.Property(h, MethodLogLevel,
			func() (string, jsonrpc.Status) {
				return strings.ToLower(level.Level().String()), jsonrpc.ErrorNone
			},
			func(value string) jsonrpc.Status {
				var l slog.Level
				if err := l.UnmarshalText([]byte(value)); err != nil {
					return jsonrpc.ErrorBadRequest
				}
				level.Set(l)
				return jsonrpc.ErrorNone
			})
	}
}

// collectSubscriptions merges the subscriptions of every registry of d.
func collectSubscriptions(d *dispatcher.JSONRPC) map[string][]handler.Subscriber {
	out := make(map[string][]handler.Subscriber)
	for _, reg := range d.Handlers() {
		for event, subs := range reg.Subscriptions() {
			out[event] = append(out[event], subs...)
		}
	}
	return out
}
