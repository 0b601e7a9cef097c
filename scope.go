package capwire

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Scope marks one logical operation: one request, one job message, one CLI
// invocation. Scoped capabilities resolved under it share a slot set that is
// discarded when the boundary exits.
//
// The scope travels in the context.Context returned by EnterScope, so the
// per-operation identity survives suspension points: an operation that parks
// mid-resolution cannot corrupt another operation's notion of the current
// scope.
//
// Example:
//
//	scope, ctx := container.EnterScope(ctx)
//	defer scope.Close()
type Scope struct {
	state *scopeState
	ctx   context.Context

	// owns is true only for the boundary that activated the operation.
	// Nested boundaries share the slot set but never clear it.
	owns bool
}

// scopeState is the per-operation slot set. It is owned exclusively by its
// logical operation; no cross-operation mutation is permitted.
type scopeState struct {
	id        string
	container *Container

	mu     sync.Mutex
	slots  map[reflect.Type]any
	closed int32
}

// scopeContextKey is the key for storing the current scope state in context.
type scopeContextKey struct{}

// EnterScope opens a scope boundary for one logical operation and returns
// the boundary together with a context carrying it.
//
// If the context already carries a live scope, the returned boundary is a
// non-owning view of it: Close is still safe to call on every exit path but
// only the outermost boundary clears the slot set.
func (c *Container) EnterScope(ctx context.Context) (*Scope, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	if state := scopeStateFromContext(ctx); state != nil && !state.isClosed() {
		return &Scope{state: state, ctx: ctx}, ctx
	}

	state := &scopeState{
		id:        uuid.NewString(),
		container: c,
		slots:     make(map[reflect.Type]any),
	}

	ctx = context.WithValue(ctx, scopeContextKey{}, state)

	return &Scope{state: state, ctx: ctx, owns: true}, ctx
}

// FromContext returns a non-owning view of the scope carried by ctx.
func FromContext(ctx context.Context) (*Scope, error) {
	state := scopeStateFromContext(ctx)
	if state == nil {
		return nil, ErrScopeNotInContext
	}

	if state.isClosed() {
		return nil, ErrScopeClosed
	}

	return &Scope{state: state, ctx: ctx}, nil
}

func scopeStateFromContext(ctx context.Context) *scopeState {
	if ctx == nil {
		return nil
	}

	state, _ := ctx.Value(scopeContextKey{}).(*scopeState)
	return state
}

// ID returns the unique ID of the underlying operation scope.
func (s *Scope) ID() string {
	return s.state.id
}

// Context returns the context carrying this scope.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Owner reports whether this boundary activated the operation. Only the
// owning boundary clears the slot set on Close.
func (s *Scope) Owner() bool {
	return s.owns
}

// Container returns the container this scope resolves from.
func (s *Scope) Container() *Container {
	return s.state.container
}

// IsClosed reports whether the operation's boundary has exited.
func (s *Scope) IsClosed() bool {
	return s.state.isClosed()
}

// Resolve resolves a capability within this scope.
func (s *Scope) Resolve(capability reflect.Type, explicit ...any) (any, error) {
	if s.state.isClosed() {
		return nil, ErrScopeClosed
	}

	return s.state.container.ResolveType(s.ctx, capability, explicit...)
}

// Close exits the boundary. For the owning boundary it deactivates the
// operation and discards the slot set, exactly once no matter how many exit
// paths run. For nested boundaries it is a no-op.
func (s *Scope) Close() error {
	if !s.owns {
		return nil
	}

	if !atomic.CompareAndSwapInt32(&s.state.closed, 0, 1) {
		return nil
	}

	s.state.mu.Lock()
	s.state.slots = nil
	s.state.mu.Unlock()

	return nil
}

// get returns the cached instance for a capability, if any.
func (s *scopeState) get(capability reflect.Type) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slots == nil {
		return nil, false
	}

	v, ok := s.slots[capability]
	return v, ok
}

// setIfAbsent stores an instance unless one is already cached or the scope
// closed mid-construction, and returns the winning instance. A value built
// for a closed scope is discarded, never cached.
func (s *scopeState) setIfAbsent(capability reflect.Type, value any) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slots == nil {
		return value
	}

	if existing, ok := s.slots[capability]; ok {
		return existing
	}

	s.slots[capability] = value
	return value
}

func (s *scopeState) isClosed() bool {
	return atomic.LoadInt32(&s.closed) != 0
}
