// Package echo provides capwire integration for the Echo web framework.
//
// This package provides middleware that opens one scope boundary per request
// and type-safe handler wrappers for resolving controllers from that scope.
//
// Example usage:
//
//	container, _ := services.Build()
//
//	e := echo.New()
//	e.Use(capecho.ScopeMiddleware(container))
//
//	e.POST("/login", capecho.Handle(AuthController.Login))
//	e.GET("/users/:id", capecho.Handle(UserController.GetByID))
package echo

import (
	"log/slog"
	"net/http"

	"github.com/avegner/capwire"
	"github.com/labstack/echo/v4"
)

// Config holds the configuration for the scope middleware.
type Config struct {
	// ErrorHandler is called when a scope middleware fails.
	// If nil, a 500 HTTPError is returned (Echo's default error handling).
	ErrorHandler func(echo.Context, error) error

	// CloseErrorHandler is called when closing the request scope fails.
	// If nil, errors are logged using slog.
	CloseErrorHandler func(error)

	// Middlewares are functions that run after the scope opens.
	Middlewares []func(*capwire.Scope, echo.Context) error
}

// Option configures the scope middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for middleware failures.
func WithErrorHandler(h func(echo.Context, error) error) Option {
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
func WithMiddleware(mw func(*capwire.Scope, echo.Context) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		},
		CloseErrorHandler: func(err error) {
			slog.Error("failed to close scope", "error", err)
		},
	}
}

// ScopeMiddleware creates an Echo middleware that opens one scope boundary
// per request. The scope is attached to the request context and can be
// retrieved with capwire.FromContext.
//
// The boundary is closed when the request completes, on every exit path.
//
// Example:
//
//	e := echo.New()
//	e.Use(capecho.ScopeMiddleware(container))
func ScopeMiddleware(container *capwire.Container, opts ...Option) echo.MiddlewareFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			scope, ctx := container.EnterScope(c.Request().Context())

			defer func() {
				if err := scope.Close(); err != nil {
					cfg.CloseErrorHandler(err)
				}
			}()

			c.SetRequest(c.Request().WithContext(ctx))

			for _, mw := range cfg.Middlewares {
				if err := mw(scope, c); err != nil {
					return cfg.ErrorHandler(c, err)
				}
			}

			return next(c)
		}
	}
}

// Handle wraps a controller method for type-safe resolution from the request
// scope. The controller type T is resolved from the scope attached to the
// request context by ScopeMiddleware.
//
// The method signature should be: func(T, echo.Context) error
//
// Example:
//
//	e.GET("/users/:id", capecho.Handle(UserController.GetByID))
func Handle[T any](method func(T, echo.Context) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		scope, err := capwire.FromContext(ctx)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error").SetInternal(err)
		}

		controller, err := capwire.Resolve[T](ctx, scope.Container())
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error").SetInternal(err)
		}

		return method(controller, c)
	}
}
