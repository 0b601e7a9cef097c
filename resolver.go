package capwire

import (
	"context"
	"fmt"
	"reflect"

	"github.com/avegner/capwire/internal/reflection"
)

// resolution tracks the state of one top-level resolve call: the explicit
// arguments supplied by the caller, wrap-time fallback values, and the chain
// of capabilities currently being resolved on this call stack.
type resolution struct {
	container *Container

	// explicit values win over auto-resolution wherever they match.
	explicit []reflect.Value

	// fallbacks are consulted only when a capability has no registration
	// (the wrap-time default case). Lower precedence than the registry.
	fallbacks []reflect.Value

	// visiting is the ordered chain of capabilities being resolved on this
	// call stack. A repeat entry is a cycle.
	visiting []reflect.Type
}

func newResolution(c *Container, explicit []any, fallbacks []reflect.Value) (*resolution, error) {
	r := &resolution{
		container: c,
		fallbacks: fallbacks,
	}

	if len(explicit) > 0 {
		r.explicit = make([]reflect.Value, 0, len(explicit))
		for i, arg := range explicit {
			if arg == nil {
				return nil, fmt.Errorf("explicit argument %d is nil", i)
			}
			r.explicit = append(r.explicit, reflect.ValueOf(arg))
		}
	}

	return r, nil
}

// resolve produces an instance for a capability. The algorithm, in order:
// explicit arguments, cycle check, registry lookup (falling back to wrap-time
// defaults for unregistered capabilities), lifetime store, construction.
func (r *resolution) resolve(ctx context.Context, capability reflect.Type) (reflect.Value, error) {
	if v, ok := match(r.explicit, capability); ok {
		return v, nil
	}

	for i, t := range r.visiting {
		if t == capability {
			path := make([]reflect.Type, 0, len(r.visiting)-i+1)
			path = append(path, r.visiting[i:]...)
			path = append(path, capability)
			return reflect.Value{}, &CircularDependencyError{Path: path}
		}
	}

	reg, ok := r.container.regs[capability]
	if !ok {
		if v, ok := match(r.fallbacks, capability); ok {
			return v, nil
		}

		chain := make([]reflect.Type, len(r.visiting))
		copy(chain, r.visiting)
		return reflect.Value{}, NotRegisteredError{Type: capability, Chain: chain}
	}

	if reg.kind == providerInstance {
		return reflect.ValueOf(reg.instance), nil
	}

	switch reg.Lifetime {
	case Singleton:
		instance, err := r.container.singletons.getOrCreate(capability, func() (any, error) {
			return r.construct(ctx, reg)
		})
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(instance), nil

	case Scoped:
		state := scopeStateFromContext(ctx)
		if state == nil || state.isClosed() {
			if !r.container.options.lenientScoping {
				return reflect.Value{}, ScopeInactiveError{Type: capability}
			}
			// Lenient policy: behave as Transient for this call.
			instance, err := r.construct(ctx, reg)
			if err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(instance), nil
		}

		if instance, ok := state.get(capability); ok {
			return reflect.ValueOf(instance), nil
		}

		instance, err := r.construct(ctx, reg)
		if err != nil {
			return reflect.Value{}, err
		}

		// First stored wins; a duplicate built in a race inside the same
		// operation is discarded in favor of the cached one.
		return reflect.ValueOf(state.setIfAbsent(capability, instance)), nil

	default: // Transient
		instance, err := r.construct(ctx, reg)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(instance), nil
	}
}

// construct invokes the registration's provider with recursively resolved
// dependencies. The capability is on the visiting chain for the duration of
// the construction.
func (r *resolution) construct(ctx context.Context, reg *Registration) (any, error) {
	r.visiting = append(r.visiting, reg.Type)
	defer func() {
		r.visiting = r.visiting[:len(r.visiting)-1]
	}()

	switch reg.kind {
	case providerConstructor:
		args, err := r.resolveParams(ctx, reg.info)
		if err != nil {
			return nil, err
		}

		return callConstructor(reg.Type, reg.ctor, reg.info, args)

	case providerType:
		return r.constructStruct(ctx, reg)

	default:
		return reg.instance, nil
	}
}

// resolveParams produces the full argument list for a constructor function.
func (r *resolution) resolveParams(ctx context.Context, info *reflection.Info) ([]reflect.Value, error) {
	args := make([]reflect.Value, 0, len(info.Params))
	for _, param := range info.Params {
		if param.IsContext {
			args = append(args, reflect.ValueOf(ctx))
			continue
		}

		v, err := r.resolve(ctx, param.Type)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	return args, nil
}

// constructStruct builds an injectable struct type, filling tagged fields.
// Optional fields stay zero when their capability is unregistered.
func (r *resolution) constructStruct(ctx context.Context, reg *Registration) (any, error) {
	ptr := reflect.New(reg.info.Type)
	elem := ptr.Elem()

	for _, param := range reg.info.Params {
		if param.IsContext {
			elem.Field(param.Index).Set(reflect.ValueOf(ctx))
			continue
		}

		if param.Optional && !r.container.Has(param.Type) {
			if _, ok := match(r.explicit, param.Type); !ok {
				if _, ok := match(r.fallbacks, param.Type); !ok {
					continue
				}
			}
		}

		v, err := r.resolve(ctx, param.Type)
		if err != nil {
			return nil, err
		}
		elem.Field(param.Index).Set(v)
	}

	return ptr.Interface(), nil
}

// callConstructor invokes a constructor and unpacks its T or (T, error)
// return shape. A non-nil error becomes a ConstructionError and the instance
// is discarded.
func callConstructor(capability reflect.Type, ctor reflect.Value, info *reflection.Info, args []reflect.Value) (any, error) {
	results := ctor.Call(args)

	if info.ReturnsError {
		if errVal := results[1]; !errVal.IsNil() {
			return nil, ConstructionError{Type: capability, Cause: errVal.Interface().(error)}
		}
	}

	return results[0].Interface(), nil
}

// match finds a value assignable to the requested capability. Exact type
// matches are preferred over assignable ones so an explicit concrete value
// does not shadow a differently-typed sibling parameter.
func match(values []reflect.Value, capability reflect.Type) (reflect.Value, bool) {
	for _, v := range values {
		if v.Type() == capability {
			return v, true
		}
	}

	for _, v := range values {
		if v.Type().AssignableTo(capability) {
			if capability.Kind() == reflect.Interface {
				converted := reflect.New(capability).Elem()
				converted.Set(v)
				return converted, true
			}
			return v, true
		}
	}

	return reflect.Value{}, false
}
