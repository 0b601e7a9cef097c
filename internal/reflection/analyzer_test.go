package reflection

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type logger struct{}
type database struct{}

type service struct {
	DB     *database `inject:""`
	Logger *logger   `inject:"optional"`
	Name   string
}

func newService(db *database, l *logger) *service {
	return &service{DB: db, Logger: l}
}

func newServiceErr(db *database) (*service, error) {
	return &service{DB: db}, nil
}

func TestAnalyzeFunc(t *testing.T) {
	t.Run("single return", func(t *testing.T) {
		a := New()

		info, err := a.AnalyzeFunc(newService)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !info.IsFunc {
			t.Error("expected IsFunc")
		}
		if info.ServiceType != reflect.TypeOf(&service{}) {
			t.Errorf("unexpected service type: %v", info.ServiceType)
		}
		if info.ReturnsError {
			t.Error("expected ReturnsError to be false")
		}
		if len(info.Params) != 2 {
			t.Fatalf("expected 2 params, got %d", len(info.Params))
		}
		if info.Params[0].Type != reflect.TypeOf(&database{}) {
			t.Errorf("unexpected param type: %v", info.Params[0].Type)
		}
	})

	t.Run("value and error return", func(t *testing.T) {
		a := New()

		info, err := a.AnalyzeFunc(newServiceErr)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !info.ReturnsError {
			t.Error("expected ReturnsError")
		}
	})

	t.Run("context parameter flagged", func(t *testing.T) {
		a := New()

		info, err := a.AnalyzeFunc(func(ctx context.Context, db *database) *service {
			return &service{DB: db}
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !info.Params[0].IsContext {
			t.Error("expected first param to be flagged as context")
		}
		if info.Params[1].IsContext {
			t.Error("expected second param not to be flagged as context")
		}
	})

	t.Run("invalid shapes", func(t *testing.T) {
		a := New()

		cases := []struct {
			name string
			ctor any
			want error
		}{
			{"nil", nil, ErrNotFunction},
			{"not a function", 42, ErrNotFunction},
			{"no returns", func() {}, ErrNoReturn},
			{"error only", func() error { return nil }, ErrNoReturn},
			{"three returns", func() (int, int, error) { return 0, 0, nil }, ErrTooManyReturns},
			{"second return not error", func() (int, int) { return 0, 0 }, ErrTooManyReturns},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				if _, err := a.AnalyzeFunc(tc.ctor); !errors.Is(err, tc.want) {
					t.Errorf("got %v, want %v", err, tc.want)
				}
			})
		}
	})

	t.Run("channel dependency rejected", func(t *testing.T) {
		a := New()

		if _, err := a.AnalyzeFunc(func(ch chan int) *service { return nil }); err == nil {
			t.Error("expected an error for channel dependency")
		}
	})

	t.Run("results are cached", func(t *testing.T) {
		a := New()

		first, err := a.AnalyzeFunc(newService)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := a.AnalyzeFunc(newService)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first != second {
			t.Error("expected cached Info to be reused")
		}

		a.Clear()

		third, err := a.AnalyzeFunc(newService)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first == third {
			t.Error("expected a fresh Info after Clear")
		}
	})
}

func TestAnalyzeCall(t *testing.T) {
	t.Run("any return shape", func(t *testing.T) {
		a := New()

		info, err := a.AnalyzeCall(func(db *database) (int, string, error) { return 0, "", nil })
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !info.ReturnsError {
			t.Error("expected trailing error to be detected")
		}

		info, err = a.AnalyzeCall(func(db *database) {})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.ReturnsError {
			t.Error("expected no trailing error")
		}
	})

	t.Run("not a function", func(t *testing.T) {
		a := New()

		if _, err := a.AnalyzeCall("nope"); !errors.Is(err, ErrNotFunction) {
			t.Errorf("got %v, want ErrNotFunction", err)
		}
	})
}

func TestAnalyzeStruct(t *testing.T) {
	t.Run("tagged fields become params", func(t *testing.T) {
		a := New()

		info, err := a.AnalyzeStruct(reflect.TypeOf((*service)(nil)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if info.ServiceType != reflect.TypeOf(&service{}) {
			t.Errorf("unexpected service type: %v", info.ServiceType)
		}
		if len(info.Params) != 2 {
			t.Fatalf("expected 2 params, got %d", len(info.Params))
		}

		if info.Params[0].Name != "DB" || info.Params[0].Optional {
			t.Errorf("unexpected first param: %+v", info.Params[0])
		}
		if info.Params[1].Name != "Logger" || !info.Params[1].Optional {
			t.Errorf("unexpected second param: %+v", info.Params[1])
		}
	})

	t.Run("untagged fields are skipped", func(t *testing.T) {
		a := New()

		info, err := a.AnalyzeStruct(reflect.TypeOf((*service)(nil)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, p := range info.Params {
			if p.Name == "Name" {
				t.Error("expected untagged field to be skipped")
			}
		}
	})

	t.Run("unexported tagged field rejected", func(t *testing.T) {
		type hidden struct {
			db *database `inject:""` //nolint:unused
		}

		a := New()

		if _, err := a.AnalyzeStruct(reflect.TypeOf((*hidden)(nil))); err == nil {
			t.Error("expected an error for unexported tagged field")
		}
	})

	t.Run("non-struct rejected", func(t *testing.T) {
		a := New()

		if _, err := a.AnalyzeStruct(reflect.TypeOf(42)); !errors.Is(err, ErrNotStruct) {
			t.Errorf("got %v, want ErrNotStruct", err)
		}
		if _, err := a.AnalyzeStruct(nil); !errors.Is(err, ErrNotStruct) {
			t.Errorf("got %v, want ErrNotStruct", err)
		}
	})
}
