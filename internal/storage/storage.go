package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"todoclient/internal/models"
)

type memTodo struct {
	todo models.Todo
	seq  int64
}

// Storage is an in-memory Store for development and tests
type Storage struct {
	mu    sync.RWMutex
	todos map[string]*memTodo
	seq   int64
	now   func() time.Time
}

// NewStorage creates an empty in-memory store
func NewStorage() *Storage {
	return &Storage{todos: make(map[string]*memTodo), now: time.Now}
}

// ListTodos filters, orders newest first and pages the owner's todos
func (s *Storage) ListTodos(_ context.Context, ownerID string, q TodoQuery) ([]models.Todo, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := q.search()

	matched := make([]*memTodo, 0, len(s.todos))
	for _, m := range s.todos {
		t := m.todo
		if t.OwnerID != ownerID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Title), search) {
			continue
		}
		if !q.Filter.Matches(t) {
			continue
		}
		matched = append(matched, m)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.todo.CreatedAt.Equal(b.todo.CreatedAt) {
			return a.todo.CreatedAt.After(b.todo.CreatedAt)
		}
		return a.seq > b.seq
	})

	total := len(matched)
	start := min(q.Offset(), total)
	end := min(start+q.Limit, total)

	page := make([]models.Todo, 0, end-start)
	for _, m := range matched[start:end] {
		page = append(page, m.todo.Clone())
	}
	return page, total, nil
}

// CreateTodo stores a new todo
func (s *Storage) CreateTodo(_ context.Context, ownerID string, req models.CreateTodoRequest) (*models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	s.seq++
	t := models.Todo{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	t = t.Clone()
	s.todos[t.ID] = &memTodo{todo: t, seq: s.seq}

	out := t.Clone()
	return &out, nil
}

// GetTodo returns one of the owner's todos
func (s *Storage) GetTodo(_ context.Context, ownerID, id string) (*models.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.todos[id]
	if !ok || m.todo.OwnerID != ownerID {
		return nil, ErrTodoNotFound
	}
	out := m.todo.Clone()
	return &out, nil
}

// UpdateTodo applies a partial update
func (s *Storage) UpdateTodo(_ context.Context, ownerID, id string, patch models.UpdateTodoRequest) (*models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.todos[id]
	if !ok || m.todo.OwnerID != ownerID {
		return nil, ErrTodoNotFound
	}
	m.todo.Apply(patch)
	m.todo.Title = strings.TrimSpace(m.todo.Title)
	m.todo.UpdatedAt = s.now().UTC()

	out := m.todo.Clone()
	return &out, nil
}

// DeleteTodo removes a todo
func (s *Storage) DeleteTodo(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.todos[id]
	if !ok || m.todo.OwnerID != ownerID {
		return ErrTodoNotFound
	}
	delete(s.todos, id)
	return nil
}
