package graph

import (
	"reflect"
	"strings"
)

// CircularDependencyError reports a dependency cycle. Path holds the full
// chain, starting and ending with the capability that closes the cycle,
// e.g. A -> B -> A.
type CircularDependencyError struct {
	Path []reflect.Type
}

func (e *CircularDependencyError) Error() string {
	var b strings.Builder
	b.WriteString("circular dependency detected: ")

	for i, t := range e.Path {
		if i > 0 {
			b.WriteString(" -> ")
		}
		b.WriteString(typeName(t))
	}

	return b.String()
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	if t.Kind() == reflect.Pointer {
		elem := t.Elem()
		if elem.Name() != "" {
			return "*" + elem.Name()
		}
	}

	if t.Name() != "" {
		return t.Name()
	}

	return t.String()
}
