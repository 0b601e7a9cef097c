// Package capwire is a dependency resolution and lifecycle runtime: a
// registry mapping capability interfaces to concrete providers, a resolver
// that fills constructor and operation parameters by their declared types,
// and scope management that controls how long resolved instances live.
//
// # Basic Usage
//
// Register providers in a Collection, build a Container, then resolve:
//
//	services := capwire.NewCollection()
//	services.AddSingleton(NewLogger, capwire.As(new(Logger)))
//	services.AddScoped(NewRequestState)
//	services.AddTransient(NewToken)
//
//	container, err := services.Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	logger, err := capwire.Resolve[Logger](ctx, container)
//
// # Lifetimes
//
//   - Singleton: one instance for the lifetime of the container; concurrent
//     first requests serialize so the factory runs exactly once.
//   - Scoped: one instance per scope boundary (one request, one job message,
//     one CLI invocation).
//   - Transient: a fresh instance on every resolution.
//
// # Scope Boundaries
//
// A scope marks one logical operation. The boundary travels in the context,
// so interleaved operations sharing a thread cannot corrupt each other's
// scoped instances:
//
//	scope, ctx := container.EnterScope(ctx)
//	defer scope.Close()
//
// Nested boundaries are no-ops; only the outermost clears the slot set, on
// every exit path. By default, resolving a Scoped capability outside any
// boundary fails with ScopeInactiveError; WithLenientScoping downgrades such
// requests to Transient.
//
// # Injection Wrappers
//
// Constructor wraps instantiation so missing parameters are filled at
// construction time; Operation wraps a unit of work so they are filled at
// call time, under the operation's own scope:
//
//	newJob, _ := capwire.Constructor(container, NewReportJob)
//	job, err := newJob.New(ctx)
//
//	result, err := capwire.Run(ctx, container, (*SyncReports).Execute)
//
// Explicit arguments always win over auto-resolution:
//
//	job, err := newJob.New(ctx, fakeRepository)
//
// # Errors
//
// Failures are typed: NotRegisteredError names the missing capability and
// the chain that required it, CircularDependencyError carries the full
// cycle path, ScopeInactiveError reports a missing boundary, and
// ConstructionError wraps provider failures unchanged. The first
// unresolvable dependency aborts the whole resolution; partial graphs are
// never returned.
package capwire
