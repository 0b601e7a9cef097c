package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/avegner/capwire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emailJob struct {
	To string
}

type jobState struct {
	ID int
}

var jobStateSeq int

func newJobState() *jobState {
	jobStateSeq++
	return &jobState{ID: jobStateSeq}
}

type emailHandler struct {
	State *jobState
	Sent  []string
}

func newEmailHandler(state *jobState) *emailHandler {
	return &emailHandler{State: state}
}

func (h *emailHandler) Process(ctx context.Context, msg emailJob) error {
	h.Sent = append(h.Sent, msg.To)
	return nil
}

func buildContainer(t *testing.T) *capwire.Container {
	t.Helper()

	services := capwire.NewCollection()
	require.NoError(t, services.AddScoped(newJobState))
	require.NoError(t, services.AddScoped(newEmailHandler))

	container, err := services.Build()
	require.NoError(t, err)

	return container
}

func TestWrap(t *testing.T) {
	t.Run("each message gets its own boundary", func(t *testing.T) {
		container := buildContainer(t)

		var ids []int

		handle := Wrap(container, func(ctx context.Context, msg emailJob) error {
			first, err := capwire.Resolve[*jobState](ctx, container)
			if err != nil {
				return err
			}

			second, err := capwire.Resolve[*jobState](ctx, container)
			if err != nil {
				return err
			}
			assert.Same(t, first, second)

			ids = append(ids, first.ID)
			return nil
		})

		for i := 0; i < 3; i++ {
			require.NoError(t, handle(context.Background(), emailJob{To: "user@example.com"}))
		}

		require.Len(t, ids, 3)
		assert.NotEqual(t, ids[0], ids[1])
		assert.NotEqual(t, ids[1], ids[2])
	})

	t.Run("handler errors propagate", func(t *testing.T) {
		container := buildContainer(t)

		errNack := errors.New("queue full")

		handle := Wrap(container, func(ctx context.Context, msg emailJob) error {
			return errNack
		})

		assert.ErrorIs(t, handle(context.Background(), emailJob{}), errNack)
	})

	t.Run("boundary closes after each message", func(t *testing.T) {
		container := buildContainer(t)

		var scope *capwire.Scope

		handle := Wrap(container, func(ctx context.Context, msg emailJob) error {
			var err error
			scope, err = capwire.FromContext(ctx)
			return err
		})

		require.NoError(t, handle(context.Background(), emailJob{}))
		require.NotNil(t, scope)
		assert.True(t, scope.IsClosed())
	})
}

func TestHandle(t *testing.T) {
	t.Run("resolves the handler inside the message scope", func(t *testing.T) {
		container := buildContainer(t)

		handle := Handle[*emailHandler, emailJob](container, (*emailHandler).Process)

		require.NoError(t, handle(context.Background(), emailJob{To: "a@example.com"}))
		require.NoError(t, handle(context.Background(), emailJob{To: "b@example.com"}))
	})

	t.Run("reports resolution failures", func(t *testing.T) {
		services := capwire.NewCollection()
		container, err := services.Build()
		require.NoError(t, err)

		handle := Handle[*emailHandler, emailJob](container, (*emailHandler).Process)

		err = handle(context.Background(), emailJob{})

		var notRegistered capwire.NotRegisteredError
		assert.ErrorAs(t, err, &notRegistered)
	})
}
