// Package worker provides capwire integration for background-job consumers.
//
// A job-worker loop is responsible for opening one scope boundary per
// message, the same way a web layer opens one per request. This package
// wraps a handler so each invocation runs inside its own boundary.
//
// Example usage:
//
//	handle := worker.Wrap(container, func(ctx context.Context, msg EmailJob) error {
//	    sender, err := capwire.Resolve[EmailSender](ctx, container)
//	    if err != nil {
//	        return err
//	    }
//	    return sender.Send(ctx, msg)
//	})
//
//	for msg := range queue {
//	    if err := handle(ctx, msg); err != nil {
//	        nack(msg)
//	    }
//	}
package worker

import (
	"context"

	"github.com/avegner/capwire"
)

// Handler processes one job message.
type Handler[T any] func(ctx context.Context, msg T) error

// Wrap returns a handler that opens a scope boundary around each message.
// Scoped capabilities resolved while handling the message share one slot
// set, discarded when the handler returns on any path.
func Wrap[T any](container *capwire.Container, h Handler[T]) Handler[T] {
	return func(ctx context.Context, msg T) error {
		scope, ctx := container.EnterScope(ctx)
		defer scope.Close()

		return h(ctx, msg)
	}
}

// Handle wraps a job-handler method for type-safe resolution. The handler
// type H is resolved fresh inside each message's scope, so scoped
// dependencies reflect the message being processed.
//
// The method signature should be: func(H, context.Context, T) error
//
// Example:
//
//	handle := worker.Handle[*EmailHandler, EmailJob](container, (*EmailHandler).Process)
func Handle[H any, T any](container *capwire.Container, method func(H, context.Context, T) error) Handler[T] {
	return func(ctx context.Context, msg T) error {
		scope, ctx := container.EnterScope(ctx)
		defer scope.Close()

		handler, err := capwire.Resolve[H](ctx, container)
		if err != nil {
			return err
		}

		return method(handler, ctx, msg)
	}
}
