package capwire

import (
	"fmt"
	"reflect"

	"github.com/avegner/capwire/internal/graph"
	"github.com/avegner/capwire/internal/reflection"
)

// providerKind discriminates the three provider mechanisms: a constructor
// function, a fixed instance, and an injectable struct type.
type providerKind int

const (
	providerConstructor providerKind = iota
	providerInstance
	providerType
)

// Registration maps one capability key to a provider and a lifetime.
// Registrations are immutable once the collection is built.
type Registration struct {
	// Type is the capability key.
	Type reflect.Type

	// Lifetime determines instance caching behavior.
	Lifetime Lifetime

	kind     providerKind
	ctor     reflect.Value
	info     *reflection.Info
	instance any
}

// Collection accumulates registrations before the container is built.
// Registration is a startup-time activity: a Collection is not safe for
// concurrent use, and it refuses registrations after Build.
type Collection struct {
	analyzer *reflection.Analyzer
	graph    *graph.Graph
	regs     map[reflect.Type]*Registration
	built    bool
}

// NewCollection creates an empty service collection.
func NewCollection() *Collection {
	return &Collection{
		analyzer: reflection.New(),
		graph:    graph.New(),
		regs:     make(map[reflect.Type]*Registration),
	}
}

// AddOption configures a single registration.
type AddOption interface {
	applyAddOption(*addOptions)
}

type addOptions struct {
	as reflect.Type
}

type asOption struct{ target reflect.Type }

func (o asOption) applyAddOption(opts *addOptions) {
	opts.as = o.target
}

// As registers the provider under the given interface instead of its concrete
// type. Pass a nil pointer to the interface:
//
//	collection.AddSingleton(NewFileLogger, capwire.As(new(Logger)))
func As(iface any) AddOption {
	t := reflect.TypeOf(iface)
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Interface {
		panic("capwire: As requires a pointer to an interface, e.g. As(new(Logger))")
	}

	return asOption{target: t.Elem()}
}

// AddSingleton registers a constructor with Singleton lifetime.
func (c *Collection) AddSingleton(ctor any, opts ...AddOption) error {
	return c.add(Singleton, ctor, opts...)
}

// AddScoped registers a constructor with Scoped lifetime.
func (c *Collection) AddScoped(ctor any, opts ...AddOption) error {
	return c.add(Scoped, ctor, opts...)
}

// AddTransient registers a constructor with Transient lifetime.
func (c *Collection) AddTransient(ctor any, opts ...AddOption) error {
	return c.add(Transient, ctor, opts...)
}

// Add registers a constructor with an explicit lifetime.
func (c *Collection) Add(lifetime Lifetime, ctor any, opts ...AddOption) error {
	return c.add(lifetime, ctor, opts...)
}

// AddInstance registers an already-constructed value as a Singleton.
// The instance is returned as-is on every resolution; construction and
// dependency resolution are bypassed entirely.
func (c *Collection) AddInstance(instance any, opts ...AddOption) error {
	if c.built {
		return ErrContainerBuilt
	}
	if instance == nil {
		return RegistrationError{Cause: ErrConstructorNil}
	}

	key := reflect.TypeOf(instance)

	options := applyAddOptions(opts)
	if options.as != nil {
		if !key.Implements(options.as) {
			return RegistrationError{
				Type:  options.as,
				Cause: fmt.Errorf("%s does not implement %s", formatType(key), formatType(options.as)),
			}
		}
		key = options.as
	}

	c.put(&Registration{
		Type:     key,
		Lifetime: Singleton,
		kind:     providerInstance,
		instance: instance,
	})
	return nil
}

// AddType registers an injectable struct type. Pass a nil pointer to the
// struct; dependencies are its fields tagged `inject:""`, and fields tagged
// `inject:"optional"` stay zero when their capability is unregistered.
//
//	type ReportJob struct {
//	    Repo  ReportRepository `inject:""`
//	    Clock Clock            `inject:"optional"`
//	}
//
//	collection.AddType(capwire.Scoped, (*ReportJob)(nil))
func (c *Collection) AddType(lifetime Lifetime, prototype any, opts ...AddOption) error {
	if c.built {
		return ErrContainerBuilt
	}
	if !lifetime.IsValid() {
		return RegistrationError{Cause: LifetimeError{Value: lifetime}}
	}

	info, err := c.analyzer.AnalyzeStruct(reflect.TypeOf(prototype))
	if err != nil {
		return RegistrationError{Cause: err}
	}

	key := info.ServiceType

	options := applyAddOptions(opts)
	if options.as != nil {
		if !key.Implements(options.as) {
			return RegistrationError{
				Type:  options.as,
				Cause: fmt.Errorf("%s does not implement %s", formatType(key), formatType(options.as)),
			}
		}
		key = options.as
	}

	c.put(&Registration{
		Type:     key,
		Lifetime: lifetime,
		kind:     providerType,
		info:     info,
	})
	return nil
}

func (c *Collection) add(lifetime Lifetime, ctor any, opts ...AddOption) error {
	if c.built {
		return ErrContainerBuilt
	}
	if !lifetime.IsValid() {
		return RegistrationError{Cause: LifetimeError{Value: lifetime}}
	}
	if ctor == nil {
		return RegistrationError{Cause: ErrConstructorNil}
	}

	info, err := c.analyzer.AnalyzeFunc(ctor)
	if err != nil {
		return RegistrationError{Cause: err}
	}

	key := info.ServiceType

	options := applyAddOptions(opts)
	if options.as != nil {
		if !key.Implements(options.as) && !(key.Kind() == reflect.Interface && key == options.as) {
			return RegistrationError{
				Type:  options.as,
				Cause: fmt.Errorf("%s does not implement %s", formatType(key), formatType(options.as)),
			}
		}
		key = options.as
	}

	c.put(&Registration{
		Type:     key,
		Lifetime: lifetime,
		kind:     providerConstructor,
		ctor:     reflect.ValueOf(ctor),
		info:     info,
	})
	return nil
}

// put stores a registration, overwriting any previous one for the same key.
func (c *Collection) put(reg *Registration) {
	c.regs[reg.Type] = reg

	deps := make([]reflect.Type, 0, 4)
	if reg.info != nil {
		for _, p := range reg.info.Params {
			if p.IsContext {
				continue
			}
			deps = append(deps, p.Type)
		}
	}
	c.graph.Add(reg.Type, deps...)
}

// Count returns the number of registrations.
func (c *Collection) Count() int {
	return len(c.regs)
}

// Build finalizes the collection into an immutable Container. With
// WithValidation, the declared dependency graph is checked for cycles up
// front; without it, cycles are still caught by the resolver on first
// resolution.
func (c *Collection) Build(opts ...BuildOption) (*Container, error) {
	options := defaultContainerOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	if options.validate {
		if err := c.graph.DetectCycles(); err != nil {
			return nil, err
		}
	}

	c.built = true

	regs := make(map[reflect.Type]*Registration, len(c.regs))
	for k, v := range c.regs {
		regs[k] = v
	}

	return &Container{
		regs:       regs,
		singletons: newSingletonStore(),
		analyzer:   c.analyzer,
		options:    options,
	}, nil
}

func applyAddOptions(opts []AddOption) *addOptions {
	options := &addOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyAddOption(options)
		}
	}
	return options
}
