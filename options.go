package capwire

import (
	"reflect"
	"time"
)

// BuildOption configures the container produced by Collection.Build.
type BuildOption func(*containerOptions)

type containerOptions struct {
	validate       bool
	lenientScoping bool
	onResolved     func(capability reflect.Type, lifetime Lifetime, duration time.Duration)
	onError        func(capability reflect.Type, err error)
}

func defaultContainerOptions() *containerOptions {
	return &containerOptions{}
}

// WithValidation checks the declared dependency graph for cycles at Build
// time, so misconfigured graphs fail at startup instead of on first
// resolution.
func WithValidation() BuildOption {
	return func(o *containerOptions) {
		o.validate = true
	}
}

// WithLenientScoping makes the container treat a Scoped resolution outside
// any active scope boundary as Transient for that call, instead of failing
// with ScopeInactiveError. The policy is fixed per container.
func WithLenientScoping() BuildOption {
	return func(o *containerOptions) {
		o.lenientScoping = true
	}
}

// WithOnResolved installs a callback invoked after every successful top-level
// resolution.
func WithOnResolved(fn func(capability reflect.Type, lifetime Lifetime, duration time.Duration)) BuildOption {
	return func(o *containerOptions) {
		o.onResolved = fn
	}
}

// WithOnError installs a callback invoked when a top-level resolution fails.
func WithOnError(fn func(capability reflect.Type, err error)) BuildOption {
	return func(o *containerOptions) {
		o.onError = fn
	}
}
