// Package graph maintains the declared dependency graph of a container and
// detects cycles in it before any resolution takes place.
package graph

import (
	"reflect"
	"sync"
)

// Graph is an adjacency-list dependency graph keyed by capability type.
// Nodes are added during registration; edges point from a capability to the
// capabilities its provider declares as parameters.
type Graph struct {
	mu    sync.RWMutex
	edges map[reflect.Type][]reflect.Type
}

// New creates an empty dependency graph.
func New() *Graph {
	return &Graph{
		edges: make(map[reflect.Type][]reflect.Type),
	}
}

// Add records a capability and the capabilities its provider depends on.
// Re-adding a capability replaces its edges (last registration wins).
func (g *Graph) Add(capability reflect.Type, deps ...reflect.Type) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges[capability] = deps
}

// Remove deletes a capability and its outgoing edges.
func (g *Graph) Remove(capability reflect.Type) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.edges, capability)
}

// Dependencies returns the declared dependencies of a capability.
func (g *Graph) Dependencies(capability reflect.Type) []reflect.Type {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.edges[capability]
}

// DetectCycles walks the whole graph and returns a CircularDependencyError
// describing the first cycle found, or nil if the graph is acyclic.
// Edges to unregistered capabilities are ignored; missing registrations are
// a resolution-time concern, not a graph shape concern.
func (g *Graph) DetectCycles() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	state := make(map[reflect.Type]visitState, len(g.edges))
	for node := range g.edges {
		if state[node] != unvisited {
			continue
		}

		if cycle := g.visit(node, state, nil); cycle != nil {
			return &CircularDependencyError{Path: cycle}
		}
	}

	return nil
}

type visitState int

const (
	unvisited visitState = iota
	visiting
	visited
)

// visit performs a depth-first walk and returns the cycle path when the walk
// re-enters a node already on the current stack. The returned path starts and
// ends with the node that closes the cycle.
func (g *Graph) visit(node reflect.Type, state map[reflect.Type]visitState, stack []reflect.Type) []reflect.Type {
	state[node] = visiting
	stack = append(stack, node)

	for _, dep := range g.edges[node] {
		if _, registered := g.edges[dep]; !registered {
			continue
		}

		switch state[dep] {
		case visiting:
			// Trim the stack down to where the cycle starts.
			start := 0
			for i, t := range stack {
				if t == dep {
					start = i
					break
				}
			}

			cycle := make([]reflect.Type, 0, len(stack)-start+1)
			cycle = append(cycle, stack[start:]...)
			cycle = append(cycle, dep)
			return cycle

		case unvisited:
			if cycle := g.visit(dep, state, stack); cycle != nil {
				return cycle
			}
		}
	}

	state[node] = visited
	return nil
}
