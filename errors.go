package capwire

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/avegner/capwire/internal/graph"
)

// Sentinel errors. These are wrapped in typed errors when more context is
// available; callers should match them with errors.Is.
var (
	// ErrConstructorNil indicates a nil provider was registered.
	ErrConstructorNil = errors.New("constructor cannot be nil")

	// ErrContainerBuilt indicates a registration was attempted after Build.
	ErrContainerBuilt = errors.New("collection has already been built")

	// ErrScopeClosed indicates an operation on a scope whose boundary has exited.
	ErrScopeClosed = errors.New("scope has been closed")

	// ErrScopeNotInContext indicates no scope is attached to the context.
	ErrScopeNotInContext = errors.New("no scope in context")

	// ErrCapabilityTypeNil indicates a resolution was requested for a nil type.
	ErrCapabilityTypeNil = errors.New("capability type cannot be nil")
)

// CircularDependencyError reports a dependency cycle with its full path.
// It is produced both by Build-time validation and by the resolver's
// visiting-chain check.
type CircularDependencyError = graph.CircularDependencyError

var (
	_ error = NotRegisteredError{}
	_ error = ScopeInactiveError{}
	_ error = ConstructionError{}
	_ error = RegistrationError{}
	_ error = LifetimeError{}
)

// NotRegisteredError indicates a capability was requested with no registry
// entry, no caller-supplied value and no usable default.
type NotRegisteredError struct {
	// Type is the missing capability.
	Type reflect.Type

	// Chain is the resolution path that led to the missing capability,
	// outermost request first. Empty for direct resolutions.
	Chain []reflect.Type
}

func (e NotRegisteredError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("capability not registered: %s", formatType(e.Type)))

	if len(e.Chain) > 0 {
		b.WriteString(" (required by ")
		for i, t := range e.Chain {
			if i > 0 {
				b.WriteString(" -> ")
			}
			b.WriteString(formatType(t))
		}
		b.WriteString(")")
	}

	return b.String()
}

// ScopeInactiveError indicates a Scoped capability was requested while no
// scope boundary was active. Only strict containers return it; lenient
// containers fall back to a transient instance instead.
type ScopeInactiveError struct {
	Type reflect.Type
}

func (e ScopeInactiveError) Error() string {
	return fmt.Sprintf("scoped capability %s requested outside an active scope", formatType(e.Type))
}

// ConstructionError wraps an error returned by a provider after all of its
// dependencies resolved successfully. The cause is propagated unchanged and
// the partially-built instance is never cached.
type ConstructionError struct {
	Type  reflect.Type
	Cause error
}

func (e ConstructionError) Error() string {
	return fmt.Sprintf("failed to construct %s: %v", formatType(e.Type), e.Cause)
}

func (e ConstructionError) Unwrap() error {
	return e.Cause
}

// RegistrationError wraps errors raised while adding a provider to a Collection.
type RegistrationError struct {
	Type  reflect.Type
	Cause error
}

func (e RegistrationError) Error() string {
	if e.Type != nil {
		return fmt.Sprintf("failed to register %s: %v", formatType(e.Type), e.Cause)
	}
	return fmt.Sprintf("failed to register provider: %v", e.Cause)
}

func (e RegistrationError) Unwrap() error {
	return e.Cause
}

// LifetimeError indicates an invalid lifetime value.
type LifetimeError struct {
	Value any
}

func (e LifetimeError) Error() string {
	return fmt.Sprintf("invalid lifetime: %v", e.Value)
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + elem.Name()
		}
		return t.String()
	case reflect.Slice:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "[]" + elem.Name()
		}
		return t.String()
	case reflect.Interface, reflect.Struct:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}
