package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quicktask/quicktask-api/internal/domain"
	"github.com/quicktask/quicktask-api/internal/platform/memory"
	"github.com/quicktask/quicktask-api/internal/store"
)

func newStoredTask(t *testing.T, ownerID uuid.UUID, title string) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(ownerID, title, "", time.Now().UTC().Add(time.Hour), []int{600})
	require.NoError(t, err)
	return task
}

func TestTaskStoreCRUD(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ownerID := uuid.New()

	t.Run("create and get", func(t *testing.T) {
		t.Parallel()

		s := memory.NewTaskStore()
		task := newStoredTask(t, ownerID, "Submit report")
		require.NoError(t, s.Create(ctx, task))

		got, err := s.GetForOwner(ctx, task.ID, ownerID)
		require.NoError(t, err)
		assert.Equal(t, task.Title, got.Title)
		assert.Equal(t, task.Reminders, got.Reminders)
	})

	t.Run("stored task is isolated from later mutation", func(t *testing.T) {
		t.Parallel()

		s := memory.NewTaskStore()
		task := newStoredTask(t, ownerID, "Original")
		require.NoError(t, s.Create(ctx, task))

		task.Title = "Mutated"
		task.Reminders[0] = 999

		got, err := s.GetForOwner(ctx, task.ID, ownerID)
		require.NoError(t, err)
		assert.Equal(t, "Original", got.Title)
		assert.Equal(t, []int{600}, got.Reminders)
	})

	t.Run("other owner's task is not found", func(t *testing.T) {
		t.Parallel()

		s := memory.NewTaskStore()
		task := newStoredTask(t, ownerID, "Private")
		require.NoError(t, s.Create(ctx, task))

		_, err := s.GetForOwner(ctx, task.ID, uuid.New())
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})

	t.Run("update", func(t *testing.T) {
		t.Parallel()

		s := memory.NewTaskStore()
		task := newStoredTask(t, ownerID, "Before")
		require.NoError(t, s.Create(ctx, task))

		updated := task.Clone()
		updated.Title = "After"
		require.NoError(t, s.Update(ctx, updated))

		got, err := s.GetForOwner(ctx, task.ID, ownerID)
		require.NoError(t, err)
		assert.Equal(t, "After", got.Title)
	})

	t.Run("update by other owner is not found", func(t *testing.T) {
		t.Parallel()

		s := memory.NewTaskStore()
		task := newStoredTask(t, ownerID, "Private")
		require.NoError(t, s.Create(ctx, task))

		foreign := task.Clone()
		foreign.OwnerID = uuid.New()
		assert.ErrorIs(t, s.Update(ctx, foreign), store.ErrTaskNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()

		s := memory.NewTaskStore()
		task := newStoredTask(t, ownerID, "Doomed")
		require.NoError(t, s.Create(ctx, task))

		require.NoError(t, s.Delete(ctx, task.ID, ownerID))
		_, err := s.GetForOwner(ctx, task.ID, ownerID)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)

		assert.ErrorIs(t, s.Delete(ctx, task.ID, ownerID), store.ErrTaskNotFound)
	})

	t.Run("delete by other owner is not found and keeps the task", func(t *testing.T) {
		t.Parallel()

		s := memory.NewTaskStore()
		task := newStoredTask(t, ownerID, "Private")
		require.NoError(t, s.Create(ctx, task))

		assert.ErrorIs(t, s.Delete(ctx, task.ID, uuid.New()), store.ErrTaskNotFound)

		_, err := s.GetForOwner(ctx, task.ID, ownerID)
		assert.NoError(t, err)
	})
}

func TestTaskStoreListByOwner(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memory.NewTaskStore()

	alice := uuid.New()
	bob := uuid.New()

	first := newStoredTask(t, alice, "first")
	first.CreatedAt = time.Now().UTC().Add(-2 * time.Minute)
	second := newStoredTask(t, alice, "second")
	second.CreatedAt = time.Now().UTC().Add(-time.Minute)

	require.NoError(t, s.Create(ctx, second))
	require.NoError(t, s.Create(ctx, first))
	require.NoError(t, s.Create(ctx, newStoredTask(t, bob, "bob's")))

	tasks, err := s.ListByOwner(ctx, alice)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "first", tasks[0].Title)
	assert.Equal(t, "second", tasks[1].Title)

	empty, err := s.ListByOwner(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}
