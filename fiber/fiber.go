// Package fiber provides capwire integration for the Fiber web framework.
//
// This package provides middleware that opens one scope boundary per request
// and type-safe handler wrappers for resolving controllers from that scope.
//
// Example usage:
//
//	container, _ := services.Build()
//
//	app := fiber.New()
//	app.Use(capfiber.ScopeMiddleware(container))
//
//	app.Post("/login", capfiber.Handle(AuthController.Login))
//	app.Get("/users/:id", capfiber.Handle(UserController.GetByID))
package fiber

import (
	"log/slog"

	"github.com/avegner/capwire"
	"github.com/gofiber/fiber/v2"
)

// scopeKey is the key used to store the scope in fiber.Ctx.Locals.
const scopeKey = "capwire_scope"

// Config holds the configuration for the scope middleware.
type Config struct {
	// ErrorHandler is called when a scope middleware fails.
	ErrorHandler func(*fiber.Ctx, error) error

	// CloseErrorHandler is called when closing the request scope fails.
	// If nil, errors are logged using slog.
	CloseErrorHandler func(error)

	// Middlewares are functions that run after the scope opens.
	Middlewares []func(*capwire.Scope, *fiber.Ctx) error
}

// Option configures the scope middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for middleware failures.
func WithErrorHandler(h func(*fiber.Ctx, error) error) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithCloseErrorHandler sets the error handler for scope close failures.
func WithCloseErrorHandler(h func(error)) Option {
	return func(c *Config) {
		c.CloseErrorHandler = h
	}
}

// WithMiddleware adds a function that runs after the scope opens.
// Multiple middlewares are executed in the order they are added.
func WithMiddleware(mw func(*capwire.Scope, *fiber.Ctx) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal Server Error",
			})
		},
		CloseErrorHandler: func(err error) {
			slog.Error("failed to close scope", "error", err)
		},
	}
}

// ScopeMiddleware creates a Fiber middleware that opens one scope boundary
// per request. The scope is stored in fiber.Ctx.Locals and attached to the
// UserContext.
//
// The boundary is closed when the request completes, on every exit path.
//
// Example:
//
//	app := fiber.New()
//	app.Use(capfiber.ScopeMiddleware(container))
func ScopeMiddleware(container *capwire.Container, opts ...Option) fiber.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *fiber.Ctx) error {
		scope, ctx := container.EnterScope(c.UserContext())

		c.SetUserContext(ctx)
		c.Locals(scopeKey, scope)

		for _, mw := range cfg.Middlewares {
			if err := mw(scope, c); err != nil {
				scope.Close()
				return cfg.ErrorHandler(c, err)
			}
		}

		err := c.Next()

		if closeErr := scope.Close(); closeErr != nil {
			cfg.CloseErrorHandler(closeErr)
		}

		return err
	}
}

// ScopeFromCtx returns the request scope stored by ScopeMiddleware.
func ScopeFromCtx(c *fiber.Ctx) (*capwire.Scope, error) {
	scope, ok := c.Locals(scopeKey).(*capwire.Scope)
	if !ok || scope == nil {
		return nil, capwire.ErrScopeNotInContext
	}

	return scope, nil
}

// Handle wraps a controller method for type-safe resolution from the request
// scope. The controller type T is resolved from the scope stored by
// ScopeMiddleware.
//
// The method signature should be: func(T, *fiber.Ctx) error
//
// Example:
//
//	app.Get("/users/:id", capfiber.Handle(UserController.GetByID))
func Handle[T any](method func(T, *fiber.Ctx) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scope, err := ScopeFromCtx(c)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Internal Server Error")
		}

		controller, err := capwire.Resolve[T](c.UserContext(), scope.Container())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Internal Server Error")
		}

		return method(controller, c)
	}
}
