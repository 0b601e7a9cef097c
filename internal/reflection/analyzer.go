// Package reflection analyzes providers at registration time: it extracts the
// declared parameter list of a constructor function or the injectable fields
// of a struct type, producing the dependency descriptors the resolver walks.
package reflection

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var (
	// ErrNotFunction indicates a value registered as a constructor is not a function.
	ErrNotFunction = errors.New("constructor must be a function")

	// ErrNoReturn indicates a constructor produces no service value.
	ErrNoReturn = errors.New("constructor must return a service value")

	// ErrTooManyReturns indicates a constructor returns more than (T, error).
	ErrTooManyReturns = errors.New("constructor must return T or (T, error)")

	// ErrNotStruct indicates a value registered as an injectable type is not a
	// struct or pointer to struct.
	ErrNotStruct = errors.New("injectable type must be a struct")
)

var (
	errType = reflect.TypeOf((*error)(nil)).Elem()
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
)

func isContext(t reflect.Type) bool {
	return t == ctxType
}

// Param describes one declared dependency of a provider: a constructor
// parameter or an injectable struct field.
type Param struct {
	// Type is the capability requested.
	Type reflect.Type

	// Index is the parameter position, or the field index for struct providers.
	Index int

	// Name is the field name for struct providers, empty for functions.
	Name string

	// Optional marks a field that may be left zero when no registration
	// exists (the "declared default" case).
	Optional bool

	// IsContext marks a context.Context parameter, which is supplied from
	// the resolution call rather than from the registry.
	IsContext bool
}

// Info is the analysis result for one provider.
type Info struct {
	// Type is the analyzed function or struct type.
	Type reflect.Type

	// IsFunc is true for constructor functions, false for struct providers.
	IsFunc bool

	// Params are the declared dependencies in declaration order.
	Params []Param

	// ServiceType is the capability the provider produces: the first return
	// for functions, the pointer type for structs.
	ServiceType reflect.Type

	// ReturnsError is true when a constructor's last return is an error.
	ReturnsError bool
}

// Analyzer analyzes providers and caches results by type. Analysis is pure,
// so a cached Info is valid for every registration of the same type.
type Analyzer struct {
	mu    sync.RWMutex
	cache map[reflect.Type]*Info
}

// New creates an analyzer with an empty cache.
func New() *Analyzer {
	return &Analyzer{
		cache: make(map[reflect.Type]*Info),
	}
}

// AnalyzeFunc analyzes a constructor function. The function must return a
// service value, optionally followed by an error.
func (a *Analyzer) AnalyzeFunc(ctor any) (*Info, error) {
	if ctor == nil {
		return nil, ErrNotFunction
	}

	t := reflect.TypeOf(ctor)
	if t.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w, got %s", ErrNotFunction, t.Kind())
	}

	if info := a.lookup(t); info != nil {
		return info, nil
	}

	info := &Info{Type: t, IsFunc: true}

	switch t.NumOut() {
	case 0:
		return nil, ErrNoReturn
	case 1:
		if t.Out(0) == errType {
			return nil, ErrNoReturn
		}
		info.ServiceType = t.Out(0)
	case 2:
		if t.Out(1) != errType {
			return nil, ErrTooManyReturns
		}
		info.ServiceType = t.Out(0)
		info.ReturnsError = true
	default:
		return nil, ErrTooManyReturns
	}

	if err := validateServiceType(info.ServiceType); err != nil {
		return nil, err
	}

	info.Params = make([]Param, 0, t.NumIn())
	for i := 0; i < t.NumIn(); i++ {
		in := t.In(i)
		if err := validateDependencyType(in); err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}

		info.Params = append(info.Params, Param{
			Type:      in,
			Index:     i,
			IsContext: isContext(in),
		})
	}

	a.store(t, info)
	return info, nil
}

// AnalyzeCall analyzes a function to be invoked with injected arguments,
// without constraining its return shape. Used for operation wrappers, where
// the function is a unit of work rather than a provider.
func (a *Analyzer) AnalyzeCall(fn any) (*Info, error) {
	if fn == nil {
		return nil, ErrNotFunction
	}

	t := reflect.TypeOf(fn)
	if t.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w, got %s", ErrNotFunction, t.Kind())
	}

	info := &Info{Type: t, IsFunc: true}

	if n := t.NumOut(); n > 0 && t.Out(n-1) == errType {
		info.ReturnsError = true
	}

	info.Params = make([]Param, 0, t.NumIn())
	for i := 0; i < t.NumIn(); i++ {
		in := t.In(i)
		if err := validateDependencyType(in); err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}

		info.Params = append(info.Params, Param{
			Type:      in,
			Index:     i,
			IsContext: isContext(in),
		})
	}

	return info, nil
}

// AnalyzeStruct analyzes an injectable struct type. Dependencies are the
// exported fields carrying an `inject` tag; a tag value of "optional" allows
// the field to stay zero when its capability is unregistered.
func (a *Analyzer) AnalyzeStruct(t reflect.Type) (*Info, error) {
	if t == nil {
		return nil, ErrNotStruct
	}

	structType := t
	if structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	}
	if structType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w, got %s", ErrNotStruct, t.Kind())
	}

	ptrType := reflect.PointerTo(structType)
	if info := a.lookup(ptrType); info != nil {
		return info, nil
	}

	info := &Info{
		Type:        structType,
		ServiceType: ptrType,
	}

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)

		tag, ok := field.Tag.Lookup("inject")
		if !ok {
			continue
		}

		if !field.IsExported() {
			return nil, fmt.Errorf("field %s.%s: inject tag on unexported field", structType.Name(), field.Name)
		}

		if err := validateDependencyType(field.Type); err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", structType.Name(), field.Name, err)
		}

		info.Params = append(info.Params, Param{
			Type:      field.Type,
			Index:     i,
			Name:      field.Name,
			Optional:  tag == "optional",
			IsContext: isContext(field.Type),
		})
	}

	a.store(ptrType, info)
	return info, nil
}

// Clear drops all cached analysis results.
func (a *Analyzer) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cache = make(map[reflect.Type]*Info)
}

func (a *Analyzer) lookup(t reflect.Type) *Info {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.cache[t]
}

func (a *Analyzer) store(t reflect.Type, info *Info) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cache[t] = info
}

func validateServiceType(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Chan:
		return fmt.Errorf("channel type %s is not supported as a service type", t)
	case reflect.UnsafePointer:
		return fmt.Errorf("unsafe pointer is not supported as a service type")
	}
	return nil
}

func validateDependencyType(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Chan:
		return fmt.Errorf("channel type %s is not supported as a dependency", t)
	case reflect.UnsafePointer:
		return fmt.Errorf("unsafe pointer is not supported as a dependency")
	}
	return nil
}
