package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"todoclient/internal/logging"
	"todoclient/internal/middleware"
	"todoclient/internal/models"
	"todoclient/internal/storage"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// TodoHandler handles todo operations
type TodoHandler struct {
	storage storage.Store
}

// NewTodoHandler creates a new todo handler
func NewTodoHandler(store storage.Store) *TodoHandler {
	return &TodoHandler{storage: store}
}

// GetTodos handles POST /todos/get-todos
func (h *TodoHandler) GetTodos(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.Fail("User not authenticated"))
		return
	}

	var req models.GetTodosRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Fail("Invalid request body: "+err.Error()))
		return
	}

	query, err := todoQuery(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.Fail(err.Error()))
		return
	}

	todos, total, err := h.storage.ListTodos(c.Request.Context(), userID, query)
	if err != nil {
		logging.Component("todos").WithError(err).Error("Failed to list todos")
		c.JSON(http.StatusInternalServerError, models.Fail("Failed to retrieve todos"))
		return
	}
	if todos == nil {
		todos = []models.Todo{}
	}

	c.JSON(http.StatusOK, models.OK("Todos fetched", models.TodosPayload{
		Todos: todos,
		Pagination: models.Pagination{
			Page:  query.Page,
			Limit: query.Limit,
			Total: total,
			Skip:  query.Offset(),
		},
	}))
}

// todoQuery applies defaults. A skip without a page selects the page containing it.
func todoQuery(req models.GetTodosRequest) (storage.TodoQuery, error) {
	q := storage.TodoQuery{Page: req.Page, Limit: req.Limit, Search: req.Search}
	if q.Limit <= 0 {
		q.Limit = DefaultPageLimit
	}
	q.Limit = min(q.Limit, MaxPageLimit)
	if q.Page <= 0 {
		q.Page = req.Skip/q.Limit + 1
	}
	if req.Filter != nil {
		q.Filter = req.Filter.Normalize()
		if err := q.Filter.Validate(); err != nil {
			return storage.TodoQuery{}, err
		}
	}
	return q, nil
}

// CreateTodo handles POST /todos
func (h *TodoHandler) CreateTodo(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.Fail("User not authenticated"))
		return
	}

	var req models.CreateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Fail("Invalid request body: "+err.Error()))
		return
	}

	todo, err := h.storage.CreateTodo(c.Request.Context(), userID, req)
	if err != nil {
		logging.Component("todos").WithError(err).Error("Failed to create todo")
		c.JSON(http.StatusInternalServerError, models.Fail("Failed to create todo"))
		return
	}

	c.JSON(http.StatusCreated, models.OK("Todo created", todo))
}

// UpdateTodo handles PATCH /todos/:id, including completion toggles
func (h *TodoHandler) UpdateTodo(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.Fail("User not authenticated"))
		return
	}

	var req models.UpdateTodoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Fail("Invalid request body: "+err.Error()))
		return
	}
	if req.IsEmpty() {
		c.JSON(http.StatusBadRequest, models.Fail("Nothing to update"))
		return
	}

	todo, err := h.storage.UpdateTodo(c.Request.Context(), userID, c.Param("id"), req)
	if errors.Is(err, storage.ErrTodoNotFound) {
		c.JSON(http.StatusNotFound, models.Fail("Todo not found"))
		return
	}
	if err != nil {
		logging.Component("todos").WithError(err).Error("Failed to update todo")
		c.JSON(http.StatusInternalServerError, models.Fail("Failed to update todo"))
		return
	}

	c.JSON(http.StatusOK, models.OK("Todo updated", todo))
}

// DeleteTodo handles DELETE /todos/:id
func (h *TodoHandler) DeleteTodo(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.Fail("User not authenticated"))
		return
	}

	err := h.storage.DeleteTodo(c.Request.Context(), userID, c.Param("id"))
	if errors.Is(err, storage.ErrTodoNotFound) {
		c.JSON(http.StatusNotFound, models.Fail("Todo not found"))
		return
	}
	if err != nil {
		logging.Component("todos").WithError(err).Error("Failed to delete todo")
		c.JSON(http.StatusInternalServerError, models.Fail("Failed to delete todo"))
		return
	}

	c.JSON(http.StatusOK, models.OK[any]("Todo deleted", nil))
}
