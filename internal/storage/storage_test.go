package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"todoclient/internal/models"
	"todoclient/internal/testutil"
)

type storeFactory func(t *testing.T) (Store, string, string)

func memoryStore(t *testing.T) (Store, string, string) {
	return NewStorage(), "owner-a", "owner-b"
}

func gormStore(t *testing.T) (Store, string, string) {
	db := testutil.SetupTestDB(t)
	a := testutil.CreateTestUser(t, db, "a@example.com")
	b := testutil.CreateTestUser(t, db, "b@example.com")
	return NewGormStorage(db), a.ID, b.ID
}

func TestStores(t *testing.T) {
	for name, factory := range map[string]storeFactory{"memory": memoryStore, "gorm": gormStore} {
		t.Run(name, func(t *testing.T) {
			t.Run("create and get", func(t *testing.T) { testCreateAndGet(t, factory) })
			t.Run("list pages newest first", func(t *testing.T) { testListPaging(t, factory) })
			t.Run("list search and filter", func(t *testing.T) { testListFilters(t, factory) })
			t.Run("update", func(t *testing.T) { testUpdate(t, factory) })
			t.Run("delete", func(t *testing.T) { testDelete(t, factory) })
			t.Run("owners are isolated", func(t *testing.T) { testIsolation(t, factory) })
		})
	}
}

func seedTodos(t *testing.T, store Store, owner string, n int) []*models.Todo {
	t.Helper()
	out := make([]*models.Todo, 0, n)
	for i := 1; i <= n; i++ {
		todo, err := store.CreateTodo(context.Background(), owner, models.CreateTodoRequest{Title: fmt.Sprintf("todo %02d", i)})
		require.NoError(t, err)
		out = append(out, todo)
		time.Sleep(2 * time.Millisecond)
	}
	return out
}

func testCreateAndGet(t *testing.T, factory storeFactory) {
	store, owner, _ := factory(t)
	ctx := context.Background()

	created, err := store.CreateTodo(ctx, owner, models.CreateTodoRequest{Title: "  buy milk ", Description: testutil.StringPtr("2 litres")})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "buy milk", created.Title)
	assert.False(t, created.Completed)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := store.GetTodo(ctx, owner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	require.NotNil(t, got.Description)
	assert.Equal(t, "2 litres", *got.Description)

	_, err = store.GetTodo(ctx, owner, "missing")
	assert.ErrorIs(t, err, ErrTodoNotFound)
}

func testListPaging(t *testing.T, factory storeFactory) {
	store, owner, _ := factory(t)
	ctx := context.Background()
	seedTodos(t, store, owner, 45)

	var seen []string
	for page := 1; page <= 3; page++ {
		todos, total, err := store.ListTodos(ctx, owner, TodoQuery{Page: page, Limit: 20})
		require.NoError(t, err)
		assert.Equal(t, 45, total)
		for _, td := range todos {
			seen = append(seen, td.Title)
		}
	}
	require.Len(t, seen, 45)
	assert.Equal(t, "todo 45", seen[0])
	assert.Equal(t, "todo 01", seen[44])

	todos, total, err := store.ListTodos(ctx, owner, TodoQuery{Page: 4, Limit: 20})
	require.NoError(t, err)
	assert.Empty(t, todos)
	assert.Equal(t, 45, total)
}

func testListFilters(t *testing.T, factory storeFactory) {
	store, owner, _ := factory(t)
	ctx := context.Background()
	todos := seedTodos(t, store, owner, 6)
	for _, td := range todos[:2] {
		_, err := store.UpdateTodo(ctx, owner, td.ID, models.UpdateTodoRequest{Completed: testutil.BoolPtr(true)})
		require.NoError(t, err)
	}
	_, err := store.CreateTodo(ctx, owner, models.CreateTodoRequest{Title: "100%_done"})
	require.NoError(t, err)

	t.Run("search ignores case", func(t *testing.T) {
		got, total, err := store.ListTodos(ctx, owner, TodoQuery{Page: 1, Limit: 10, Search: "TODO 0"})
		require.NoError(t, err)
		assert.Equal(t, 6, total)
		assert.Len(t, got, 6)
	})

	t.Run("search treats wildcards literally", func(t *testing.T) {
		got, _, err := store.ListTodos(ctx, owner, TodoQuery{Page: 1, Limit: 10, Search: "%_"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "100%_done", got[0].Title)
	})

	t.Run("status", func(t *testing.T) {
		_, done, err := store.ListTodos(ctx, owner, TodoQuery{Page: 1, Limit: 10, Filter: models.Filter{Status: models.StatusCompleted}})
		require.NoError(t, err)
		assert.Equal(t, 2, done)

		_, pending, err := store.ListTodos(ctx, owner, TodoQuery{Page: 1, Limit: 10, Filter: models.Filter{Status: models.StatusPending}})
		require.NoError(t, err)
		assert.Equal(t, 5, pending)
	})

	t.Run("created date", func(t *testing.T) {
		today := time.Now().UTC().Format(models.DateLayout)
		_, total, err := store.ListTodos(ctx, owner, TodoQuery{Page: 1, Limit: 10, Filter: models.Filter{Date: today}})
		require.NoError(t, err)
		assert.Equal(t, 7, total)

		_, total, err = store.ListTodos(ctx, owner, TodoQuery{Page: 1, Limit: 10, Filter: models.Filter{Date: "2001-01-01"}})
		require.NoError(t, err)
		assert.Zero(t, total)
	})
}

func testUpdate(t *testing.T, factory storeFactory) {
	store, owner, _ := factory(t)
	ctx := context.Background()
	todo := seedTodos(t, store, owner, 1)[0]

	updated, err := store.UpdateTodo(ctx, owner, todo.ID, models.UpdateTodoRequest{Title: testutil.StringPtr("renamed")})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	assert.False(t, updated.Completed)

	updated, err = store.UpdateTodo(ctx, owner, todo.ID, models.UpdateTodoRequest{Completed: testutil.BoolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	assert.True(t, updated.Completed)

	_, err = store.UpdateTodo(ctx, owner, "missing", models.UpdateTodoRequest{Title: testutil.StringPtr("x")})
	assert.ErrorIs(t, err, ErrTodoNotFound)
}

func testDelete(t *testing.T, factory storeFactory) {
	store, owner, _ := factory(t)
	ctx := context.Background()
	todo := seedTodos(t, store, owner, 1)[0]

	require.NoError(t, store.DeleteTodo(ctx, owner, todo.ID))
	assert.ErrorIs(t, store.DeleteTodo(ctx, owner, todo.ID), ErrTodoNotFound)

	_, total, err := store.ListTodos(ctx, owner, TodoQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func testIsolation(t *testing.T, factory storeFactory) {
	store, owner, other := factory(t)
	ctx := context.Background()
	todo := seedTodos(t, store, owner, 2)[0]

	_, total, err := store.ListTodos(ctx, other, TodoQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)

	_, err = store.GetTodo(ctx, other, todo.ID)
	assert.ErrorIs(t, err, ErrTodoNotFound)
	_, err = store.UpdateTodo(ctx, other, todo.ID, models.UpdateTodoRequest{Title: testutil.StringPtr("stolen")})
	assert.ErrorIs(t, err, ErrTodoNotFound)
	assert.ErrorIs(t, store.DeleteTodo(ctx, other, todo.ID), ErrTodoNotFound)
}
