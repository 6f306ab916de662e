package dispatcher

import (
	"github.com/morezero/plugin-dispatcher/pkg/jsonrpc"
	"github.com/morezero/plugin-dispatcher/pkg/semver"
)

// Option configures a JSONRPC dispatcher.
type Option func(*options)

type options struct {
	versions    semver.VersionSet
	hooks       Hooks
	decorators  []func(Hooks) Hooks
	newMessage  func() *jsonrpc.Message
	strict      bool
	unsubscribe UnsubscribeDelegation
}

func buildOptions(opts []Option) *options {
	o := &options{
		versions:   semver.Versions(1),
		hooks:      DirectHooks{},
		newMessage: jsonrpc.NewMessage,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithVersions sets the versions served by the default registry. The default
// is version 1.
func WithVersions(versions semver.VersionSet) Option {
	return func(o *options) {
		o.versions = versions
	}
}

// WithHooks replaces the base hooks. Decorators still wrap them.
func WithHooks(h Hooks) Option {
	return func(o *options) {
		if h != nil {
			o.hooks = h
		}
	}
}

// WithHookDecorator wraps the hooks. Decorators apply in the order given, so
// the last one added is the outermost.
func WithHookDecorator(decorate func(Hooks) Hooks) Option {
	return func(o *options) {
		if decorate != nil {
			o.decorators = append(o.decorators, decorate)
		}
	}
}

// WithSubscriptionObserver reports every subscription change to observer.
func WithSubscriptionObserver(observer SubscriptionObserver) Option {
	return WithHookDecorator(func(next Hooks) Hooks {
		return NewObservedHooks(next, observer)
	})
}

// WithMessageFactory sets the allocator for outbound messages.
func WithMessageFactory(newMessage func() *jsonrpc.Message) Option {
	return func(o *options) {
		if newMessage != nil {
			o.newMessage = newMessage
		}
	}
}

// WithStrictRegistration rejects register/unregister calls whose parameters do
// not decode or carry no event name. By default such calls proceed with empty
// fields.
func WithStrictRegistration(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// WithUnsubscribeDelegation selects how the event-status decorator forwards
// unregister calls. It has no effect on a plain JSONRPC.
func WithUnsubscribeDelegation(d UnsubscribeDelegation) Option {
	return func(o *options) {
		o.unsubscribe = d
	}
}
