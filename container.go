package capwire

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/avegner/capwire/internal/reflection"
)

// Container is the immutable product of Collection.Build: a registry mapping
// capability keys to providers, a process-wide singleton store, and the
// resolution entry points. It is safe for concurrent use.
type Container struct {
	regs       map[reflect.Type]*Registration
	singletons *singletonStore
	analyzer   *reflection.Analyzer
	options    *containerOptions
}

// Lookup returns the registration for a capability key.
func (c *Container) Lookup(capability reflect.Type) (*Registration, bool) {
	reg, ok := c.regs[capability]
	return reg, ok
}

// Has reports whether a capability is registered.
func (c *Container) Has(capability reflect.Type) bool {
	_, ok := c.regs[capability]
	return ok
}

// ResolveType resolves a capability by its reflect.Type. Explicit arguments
// take precedence over auto-resolution for any capability they match by
// assignable type, at every level of the dependency graph.
//
// Scoped capabilities require a scope carried by ctx (see EnterScope) unless
// the container was built with WithLenientScoping.
func (c *Container) ResolveType(ctx context.Context, capability reflect.Type, explicit ...any) (any, error) {
	if capability == nil {
		return nil, ErrCapabilityTypeNil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()

	r, err := newResolution(c, explicit, nil)
	if err != nil {
		return nil, err
	}

	value, err := r.resolve(ctx, capability)
	if err != nil {
		if c.options.onError != nil {
			c.options.onError(capability, err)
		}
		return nil, err
	}

	if c.options.onResolved != nil {
		lifetime := Transient
		if reg, ok := c.regs[capability]; ok {
			lifetime = reg.Lifetime
		}
		c.options.onResolved(capability, lifetime, time.Since(start))
	}

	return value.Interface(), nil
}

// Resolve resolves a capability by its type parameter:
//
//	logger, err := capwire.Resolve[Logger](ctx, container)
func Resolve[T any](ctx context.Context, c *Container, explicit ...any) (T, error) {
	var zero T

	capability := reflect.TypeOf((*T)(nil)).Elem()

	value, err := c.ResolveType(ctx, capability, explicit...)
	if err != nil {
		return zero, err
	}

	typed, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("resolved %s is not assignable to %s", formatType(reflect.TypeOf(value)), formatType(capability))
	}

	return typed, nil
}

// MustResolve is like Resolve but panics on error. Intended for wiring code
// that runs at process startup where a failure is fatal anyway.
func MustResolve[T any](ctx context.Context, c *Container, explicit ...any) T {
	v, err := Resolve[T](ctx, c, explicit...)
	if err != nil {
		panic(err)
	}
	return v
}
