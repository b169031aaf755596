package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"todoclient/internal/models"
)

// GormStorage is a Store on SQLite or PostgreSQL through GORM
type GormStorage struct {
	db *gorm.DB
}

// NewGormStorage creates a store on an open connection
func NewGormStorage(db *gorm.DB) *GormStorage {
	return &GormStorage{db: db}
}

// ListTodos filters, orders newest first and pages the owner's todos
func (s *GormStorage) ListTodos(ctx context.Context, ownerID string, q TodoQuery) ([]models.Todo, int, error) {
	query := s.db.WithContext(ctx).Model(&models.Todo{}).Where("owner_id = ?", ownerID)

	if search := q.search(); search != "" {
		query = query.Where("LOWER(title) LIKE ? ESCAPE '\\'", "%"+escapeLike(search)+"%")
	}
	switch q.Filter.Status {
	case models.StatusCompleted:
		query = query.Where("completed = ?", true)
	case models.StatusPending:
		query = query.Where("completed = ?", false)
	}
	if from, to, ok := q.createdRange(); ok {
		query = query.Where("created_at >= ? AND created_at < ?", from, to)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count todos: %w", err)
	}

	todos := []models.Todo{}
	err := query.Order("created_at DESC").Order("id DESC").
		Offset(q.Offset()).
		Limit(q.Limit).
		Find(&todos).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list todos: %w", err)
	}
	return todos, int(total), nil
}

// CreateTodo stores a new todo
func (s *GormStorage) CreateTodo(ctx context.Context, ownerID string, req models.CreateTodoRequest) (*models.Todo, error) {
	now := time.Now().UTC()
	todo := &models.Todo{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(todo).Error; err != nil {
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}
	return todo, nil
}

// GetTodo returns one of the owner's todos
func (s *GormStorage) GetTodo(ctx context.Context, ownerID, id string) (*models.Todo, error) {
	var todo models.Todo
	err := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&todo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTodoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}
	return &todo, nil
}

// UpdateTodo applies a partial update and returns the stored row
func (s *GormStorage) UpdateTodo(ctx context.Context, ownerID, id string, patch models.UpdateTodoRequest) (*models.Todo, error) {
	updates := make(map[string]any)
	if patch.Title != nil {
		updates["title"] = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Completed != nil {
		updates["completed"] = *patch.Completed
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Todo{}).Where("id = ? AND owner_id = ?", id, ownerID).Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to update todo: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrTodoNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetTodo(ctx, ownerID, id)
}

// DeleteTodo soft-deletes a todo
func (s *GormStorage) DeleteTodo(ctx context.Context, ownerID, id string) error {
	result := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Delete(&models.Todo{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete todo: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTodoNotFound
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
