package capwire_test

import (
	"errors"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/avegner/capwire"
	"github.com/stretchr/testify/require"
)

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Test capabilities shared across the suite.

type Logger interface {
	Log(message string)
}

type ConsoleLogger struct {
	Messages []string
}

func (l *ConsoleLogger) Log(message string) {
	l.Messages = append(l.Messages, message)
}

func NewConsoleLogger() *ConsoleLogger {
	return &ConsoleLogger{}
}

type RequestID struct {
	Value int64
}

var requestIDCounter int64

func NewRequestID() *RequestID {
	return &RequestID{Value: atomic.AddInt64(&requestIDCounter, 1)}
}

type Token struct {
	Value int64
}

var tokenCounter int64

func NewToken() *Token {
	return &Token{Value: atomic.AddInt64(&tokenCounter, 1)}
}

type Database struct {
	DSN string
}

func NewDatabase() *Database {
	return &Database{DSN: "postgres://localhost/app"}
}

type UserService struct {
	DB     *Database
	Logger Logger
}

func NewUserService(db *Database, logger Logger) *UserService {
	return &UserService{DB: db, Logger: logger}
}

var errBrokenProvider = errors.New("connection refused")

func NewBrokenDatabase() (*Database, error) {
	return nil, errBrokenProvider
}

// buildContainer registers the three canonical lifetimes: Logger as
// Singleton, RequestID as Scoped, Token as Transient.
func buildContainer(t *testing.T, opts ...capwire.BuildOption) *capwire.Container {
	t.Helper()

	services := capwire.NewCollection()
	require.NoError(t, services.AddSingleton(NewConsoleLogger, capwire.As(new(Logger))))
	require.NoError(t, services.AddScoped(NewRequestID))
	require.NoError(t, services.AddTransient(NewToken))

	container, err := services.Build(opts...)
	require.NoError(t, err)

	return container
}
