package dispatcher

import (
	"github.com/morezero/plugin-dispatcher/pkg/handler"
	"github.com/morezero/plugin-dispatcher/pkg/jsonrpc"
)

// Hooks is the set of operations the dispatcher performs on a registry when it
// serves the reserved methods. Decorators wrap a Hooks to observe or alter
// subscription changes.
type Hooks interface {
	Exists(h *handler.Handler, method string) bool
	Subscribe(h *handler.Handler, channelID uint32, event, client string, response *jsonrpc.Message)
	Unsubscribe(h *handler.Handler, channelID uint32, event, client string, response *jsonrpc.Message)
}

// DirectHooks calls straight into the registry.
type DirectHooks struct{}

// Exists reports whether method is registered on h.
func (DirectHooks) Exists(h *handler.Handler, method string) bool {
	return h.Exists(method) == jsonrpc.ErrorNone
}

// Subscribe registers client for event on h.
func (DirectHooks) Subscribe(h *handler.Handler, channelID uint32, event, client string, response *jsonrpc.Message) {
	h.Subscribe(channelID, event, client, response)
}

// Unsubscribe removes the registration of client for event on h.
func (DirectHooks) Unsubscribe(h *handler.Handler, channelID uint32, event, client string, response *jsonrpc.Message) {
	h.Unsubscribe(channelID, event, client, response)
}
