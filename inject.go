package capwire

import (
	"context"
	"fmt"
	"reflect"

	"github.com/avegner/capwire/internal/reflection"
)

// ConstructorWrapper wraps a constructor so that parameters the caller does
// not supply are resolved from the container at construction time. The
// wrapped constructor always receives a fully-populated argument list;
// resolution failures surface as construction failures.
type ConstructorWrapper struct {
	container *Container
	ctor      reflect.Value
	info      *reflection.Info
	defaults  []reflect.Value
}

// Constructor builds a ConstructorWrapper around ctor. Wrap-time defaults
// are matched by assignable type and used only for parameters whose
// capability has no registration.
func Constructor(c *Container, ctor any, defaults ...any) (*ConstructorWrapper, error) {
	info, err := c.analyzer.AnalyzeFunc(ctor)
	if err != nil {
		return nil, RegistrationError{Cause: err}
	}

	values, err := defaultValues(defaults)
	if err != nil {
		return nil, err
	}

	return &ConstructorWrapper{
		container: c,
		ctor:      reflect.ValueOf(ctor),
		info:      info,
		defaults:  values,
	}, nil
}

// New invokes the wrapped constructor, resolving every parameter the caller
// did not supply explicitly. Each call constructs a fresh instance; the
// result is not stored in any lifetime slot.
func (w *ConstructorWrapper) New(ctx context.Context, explicit ...any) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	r, err := newResolution(w.container, explicit, w.defaults)
	if err != nil {
		return nil, err
	}

	args, err := r.resolveParams(ctx, w.info)
	if err != nil {
		return nil, err
	}

	return callConstructor(w.info.ServiceType, w.ctor, w.info, args)
}

// OperationWrapper wraps an arbitrary operation so that parameters the
// caller does not supply are resolved per invocation. Unlike the constructor
// wrapper, resolution happens on every Call, so scoped dependencies reflect
// the operation's own scope rather than the enclosing object's.
type OperationWrapper struct {
	container *Container
	fn        reflect.Value
	info      *reflection.Info
	defaults  []reflect.Value
}

// Operation builds an OperationWrapper around fn. The function may have any
// return shape; a trailing error return is propagated unchanged.
func Operation(c *Container, fn any, defaults ...any) (*OperationWrapper, error) {
	info, err := c.analyzer.AnalyzeCall(fn)
	if err != nil {
		return nil, RegistrationError{Cause: err}
	}

	values, err := defaultValues(defaults)
	if err != nil {
		return nil, err
	}

	return &OperationWrapper{
		container: c,
		fn:        reflect.ValueOf(fn),
		info:      info,
		defaults:  values,
	}, nil
}

// Call invokes the wrapped operation. If no scope boundary is active on ctx,
// Call opens one for the duration of the invocation, so the first wrapped
// operation in a call chain owns the operation's scope.
func (w *OperationWrapper) Call(ctx context.Context, explicit ...any) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if state := scopeStateFromContext(ctx); state == nil || state.isClosed() {
		var scope *Scope
		scope, ctx = w.container.EnterScope(ctx)
		defer scope.Close()
	}

	r, err := newResolution(w.container, explicit, w.defaults)
	if err != nil {
		return nil, err
	}

	args, err := r.resolveParams(ctx, w.info)
	if err != nil {
		return nil, err
	}

	results := w.fn.Call(args)

	if w.info.ReturnsError {
		if errVal := results[len(results)-1]; !errVal.IsNil() {
			return nil, errVal.Interface().(error)
		}
		results = results[:len(results)-1]
	}

	if len(results) == 0 {
		return nil, nil
	}
	return results[0].Interface(), nil
}

// Run constructs-and-invokes in one step: it wraps fn as an operation, calls
// it inside its own scope boundary when none is active, and returns only the
// operation's result.
//
// For use-case objects, pass a method expression; the receiver is resolved
// like any other dependency:
//
//	result, err := capwire.Run(ctx, c, (*SyncReports).Execute)
func Run(ctx context.Context, c *Container, fn any, explicit ...any) (any, error) {
	op, err := Operation(c, fn)
	if err != nil {
		return nil, err
	}

	return op.Call(ctx, explicit...)
}

// Call is the typed variant of Run:
//
//	report, err := capwire.Call[*Report](ctx, c, (*BuildReport).Execute)
func Call[T any](ctx context.Context, c *Container, fn any, explicit ...any) (T, error) {
	var zero T

	result, err := Run(ctx, c, fn, explicit...)
	if err != nil {
		return zero, err
	}

	if result == nil {
		return zero, nil
	}

	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("operation returned %T, want %s", result, formatType(reflect.TypeOf((*T)(nil)).Elem()))
	}

	return typed, nil
}

func defaultValues(defaults []any) ([]reflect.Value, error) {
	if len(defaults) == 0 {
		return nil, nil
	}

	values := make([]reflect.Value, 0, len(defaults))
	for i, d := range defaults {
		if d == nil {
			return nil, fmt.Errorf("default value %d is nil", i)
		}
		values = append(values, reflect.ValueOf(d))
	}

	return values, nil
}
