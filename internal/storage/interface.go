package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"todoclient/internal/models"
)

var ErrTodoNotFound = errors.New("todo not found")

// TodoQuery selects one page of a user's todos
type TodoQuery struct {
	Page   int
	Limit  int
	Search string
	Filter models.Filter
}

// Offset is the number of rows before the page
func (q TodoQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// createdRange returns the UTC day bounds of the date filter
func (q TodoQuery) createdRange() (time.Time, time.Time, bool) {
	if q.Filter.Date == "" {
		return time.Time{}, time.Time{}, false
	}
	day, err := time.Parse(models.DateLayout, q.Filter.Date)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return day, day.Add(24 * time.Hour), true
}

func (q TodoQuery) search() string {
	return strings.ToLower(strings.TrimSpace(q.Search))
}

// Store defines the todo persistence operations. Every operation is scoped to an owner.
// Listings are ordered newest first.
type Store interface {
	ListTodos(ctx context.Context, ownerID string, q TodoQuery) ([]models.Todo, int, error)
	CreateTodo(ctx context.Context, ownerID string, req models.CreateTodoRequest) (*models.Todo, error)
	GetTodo(ctx context.Context, ownerID, id string) (*models.Todo, error)
	UpdateTodo(ctx context.Context, ownerID, id string, patch models.UpdateTodoRequest) (*models.Todo, error)
	DeleteTodo(ctx context.Context, ownerID, id string) error
}
