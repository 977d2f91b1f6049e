package tools

import (
	"context"

	"github.com/firebase/genkit/go/ai"
)

type emitterKey struct{}

// EventEmitter receives tool lifecycle events. Implementations live in
// the presentation layer; tools only report the name of what ran.
type EventEmitter interface {
	OnToolStart(name string)
	OnToolComplete(name string)
	OnToolError(name string)
}

// ContextWithEmitter stores an EventEmitter in the context for the
// duration of a request.
func ContextWithEmitter(ctx context.Context, emitter EventEmitter) context.Context {
	return context.WithValue(ctx, emitterKey{}, emitter)
}

// EmitterFromContext retrieves the EventEmitter, or nil when the caller
// did not install one. Nil disables event emission.
func EmitterFromContext(ctx context.Context) EventEmitter {
	emitter, _ := ctx.Value(emitterKey{}).(EventEmitter)
	return emitter
}

// WithEvents wraps a tool handler so start, complete, and error events
// reach the context's emitter, when one is present.
func WithEvents[In, Out any](name string, fn func(*ai.ToolContext, In) (Out, error)) func(*ai.ToolContext, In) (Out, error) {
	return func(ctx *ai.ToolContext, input In) (Out, error) {
		emitter := EmitterFromContext(ctx.Context)
		if emitter != nil {
			emitter.OnToolStart(name)
		}

		result, err := fn(ctx, input)

		if emitter != nil {
			if err != nil {
				emitter.OnToolError(name)
			} else {
				emitter.OnToolComplete(name)
			}
		}
		return result, err
	}
}
